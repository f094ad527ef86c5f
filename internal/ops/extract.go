package ops

import (
	"path/filepath"
	"strings"

	"github.com/hpungsan/coursedesk/internal/config"
	"github.com/hpungsan/coursedesk/internal/errors"
	"github.com/hpungsan/coursedesk/internal/extract"
)

// ExtractOutput is the text pulled out of a document.
type ExtractOutput struct {
	Name      string `json:"name"`
	Text      string `json:"text"`
	Extracted bool   `json:"extracted"`
	Chars     int    `json:"chars"`
}

// ExtractFile reads the document at path and extracts its text. Unsupported
// formats are INVALID_REQUEST; an unreadable document yields Extracted=false.
func ExtractFile(cfg *config.Config, path string) (*ExtractOutput, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return nil, errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	ex, ok := extract.ForName(path)
	if !ok {
		return nil, errors.NewInvalidRequest("unsupported document type: " + filepath.Ext(path))
	}

	f, err := openFileNoFollowRead(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	maxChars := 0
	if cfg != nil {
		maxChars = cfg.ExtractMaxChars
	}

	text, extracted := ex.ExtractText(f, maxChars)
	return &ExtractOutput{
		Name:      filepath.Base(path),
		Text:      text,
		Extracted: extracted,
		Chars:     len([]rune(text)),
	}, nil
}

func containsTraversal(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}
