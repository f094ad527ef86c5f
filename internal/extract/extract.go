// Package extract pulls plain text out of documents a user attaches to an
// advisor question. Extraction never fails loudly: an unreadable document
// simply yields no text.
package extract

import (
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxInputBytes caps how much of a document is read.
const MaxInputBytes = 8 << 20

// Extractor turns a document into text. ok is false when no text could be
// extracted; out is truncated to maxChars runes when maxChars > 0.
type Extractor interface {
	ExtractText(r io.Reader, maxChars int) (out string, ok bool)
}

// ForName picks an Extractor by file extension. ok is false for formats
// nothing here can read.
func ForName(name string) (Extractor, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text", ".csv", ".tsv", ".json", ".log", "":
		return PlainText{}, true
	case ".md", ".markdown", ".mdown":
		return Markdown{}, true
	}
	return nil, false
}

// PlainText passes text through, dropping invalid UTF-8.
type PlainText struct{}

// ExtractText implements Extractor.
func (PlainText) ExtractText(r io.Reader, maxChars int) (string, bool) {
	data, ok := readAll(r)
	if !ok {
		return "", false
	}
	text := strings.TrimSpace(normalizeNewlines(toValidUTF8(data)))
	if text == "" {
		return "", false
	}
	return truncateRunes(text, maxChars), true
}

func readAll(r io.Reader) ([]byte, bool) {
	if r == nil {
		return nil, false
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxInputBytes))
	if err != nil {
		return nil, false
	}
	return data, true
}

func toValidUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "")
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
