package planner

import (
	"bytes"

	"github.com/yuin/goldmark"
)

// RenderResponse converts the human-readable part of an AI response to HTML.
// Plan markers are removed first; the plan itself is not rendered.
func RenderResponse(content string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(StripPlanMarkers(content)), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
