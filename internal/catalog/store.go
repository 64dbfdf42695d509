// Package catalog provides the sqlite-backed travel resource store and the
// visibility-filtered query views consumed by the planning pipeline.
package catalog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the travel catalog and conversation
// memory summaries.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "planora.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// For returns a query view bound to the given caller identity. A nil identity
// yields an anonymous view: public entries only, prices masked to null.
func (s *Store) For(ident *Identity) *View {
	return &View{store: s, ident: ident}
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// --- Inserts (seeding and document ingestion) ---

func (s *Store) InsertCity(ctx context.Context, c City) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cities (id, name, country) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.Country)
	return err
}

func (s *Store) InsertHotel(ctx context.Context, h Hotel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hotels (id, city_id, name, room_type, price, owner_id, is_public)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.CityID, h.Name, h.RoomType, h.Price, h.OwnerID, boolInt(h.IsPublic))
	return err
}

func (s *Store) InsertSpot(ctx context.Context, sp Spot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO spots (id, city_id, name, price, owner_id, is_public)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sp.ID, sp.CityID, sp.Name, sp.Price, sp.OwnerID, boolInt(sp.IsPublic))
	return err
}

func (s *Store) InsertActivity(ctx context.Context, a Activity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (id, city_id, name, price, owner_id, is_public)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.CityID, a.Name, a.Price, a.OwnerID, boolInt(a.IsPublic))
	return err
}

func (s *Store) InsertTransport(ctx context.Context, t Transport) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transports (id, region, car_model, service_type, passengers, price_low, price_high, owner_id, is_public)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Region, t.CarModel, t.ServiceType, t.Passengers, t.PriceLow, t.PriceHigh, t.OwnerID, boolInt(t.IsPublic))
	return err
}

func (s *Store) InsertRestaurant(ctx context.Context, r Restaurant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO restaurants (id, city_id, name, cuisine_type, avg_price, dietary_tags, meal_type, owner_id, is_public)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CityID, r.Name, r.CuisineType, r.AvgPrice, r.DietaryTags, r.MealType, r.OwnerID, boolInt(r.IsPublic))
	return err
}

func (s *Store) InsertDocument(ctx context.Context, d Document) error {
	uploadedAt := d.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now()
	}
	var cityID any
	if d.CityID != "" {
		cityID = d.CityID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, category, country, city_id, title, content_text, uploaded_at, owner_id, is_public)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Category, d.Country, cityID, d.Title, d.ContentText,
		uploadedAt.UTC().Format(time.RFC3339), d.OwnerID, boolInt(d.IsPublic))
	return err
}

// --- Memory summaries ---

// GetMemory returns the stored summary for (ownerKey, conversationKey), or
// ErrNotFound.
func (s *Store) GetMemory(ctx context.Context, ownerKey, conversationKey string) (string, error) {
	var summary string
	err := s.db.QueryRowContext(ctx,
		`SELECT summary FROM memories WHERE owner_id = ? AND conversation_key = ?`,
		ownerKey, conversationKey).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return summary, err
}

// PutMemory upserts a summary; last writer wins.
func (s *Store) PutMemory(ctx context.Context, ownerKey, conversationKey, summary string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (owner_id, conversation_key, summary, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(owner_id, conversation_key) DO UPDATE SET summary = excluded.summary, updated_at = excluded.updated_at`,
		ownerKey, conversationKey, summary, time.Now().UTC().Format(time.RFC3339))
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
