package main

import (
	"fmt"
	"os"
)

// ANSI codes for the little color this CLI uses.
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
)

// paint wraps text in an ANSI code unless --no-color is set.
func paint(code, text string) string {
	if noColor {
		return text
	}
	return code + text + ansiReset
}

// note writes one glyph-prefixed colored line to stderr.
func note(code, glyph, format string, args ...any) {
	fmt.Fprintln(os.Stderr, paint(code, glyph+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { note(ansiGreen, "✓", format, args...) }

func printWarning(format string, args ...any) { note(ansiYellow, "⚠", format, args...) }

func printError(format string, args ...any) { note(ansiRed, "✗", format, args...) }

// printStatus writes an indented "label: value" line for the status command.
func printStatus(label, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", paint(ansiBold, label+":"), fmt.Sprintf(format, args...))
}
