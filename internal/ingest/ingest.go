// Package ingest turns partner files (contracts, quotes, policies) into
// catalog documents the planner can ground itineraries on.
package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/samber/lo"

	"github.com/planora/planora/internal/catalog"
)

// maxContentChars caps stored document text; anything longer is truncated so
// a single upload cannot flood the generation prompt.
const maxContentChars = 5000

// Categories recognized for uploaded documents.
var Categories = []string{
	"hotel_contract",
	"activity_price",
	"restaurant_menu",
	"transport_quote",
	"travel_policy",
	"other",
}

// ValidCategory reports whether category is one of the recognized kinds.
func ValidCategory(category string) bool {
	return lo.Contains(Categories, category)
}

// Params describes one file to ingest.
type Params struct {
	Path     string
	Category string
	Country  string
	CityID   string
	Title    string
	OwnerID  string
	IsPublic bool
}

// Build extracts text from the file and assembles a catalog document. PDF
// files go through text extraction; anything else is read as plain text.
func Build(p Params) (catalog.Document, error) {
	if !ValidCategory(p.Category) {
		return catalog.Document{}, fmt.Errorf("unknown category %q (valid: %s)", p.Category, strings.Join(Categories, ", "))
	}

	text, err := ExtractText(p.Path)
	if err != nil {
		return catalog.Document{}, fmt.Errorf("extracting text from %s: %w", p.Path, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return catalog.Document{}, fmt.Errorf("%s contains no extractable text", p.Path)
	}
	if runes := []rune(text); len(runes) > maxContentChars {
		text = string(runes[:maxContentChars])
	}

	title := p.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(p.Path), filepath.Ext(p.Path))
	}

	return catalog.Document{
		ID:          uuid.New().String(),
		Category:    p.Category,
		Country:     p.Country,
		CityID:      p.CityID,
		Title:       title,
		ContentText: text,
		UploadedAt:  time.Now().UTC(),
		OwnerID:     p.OwnerID,
		IsPublic:    p.IsPublic,
	}, nil
}

// ExtractText reads the file's text content. PDFs are parsed; other files
// are assumed to already be text.
func ExtractText(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return extractPDF(path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}
