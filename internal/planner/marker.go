package planner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/hpungsan/coursedesk/internal/logging"
)

// Marker grammar:
//
//	marker  = "<!--SEMESTER_PLAN:" body "-->"
//	body    = JSON object, ending at the first "-->" after the prefix
//
// Only the first marker in a text is used.
const (
	MarkerPrefix = "<!--SEMESTER_PLAN:"
	MarkerSuffix = "-->"
)

var markerRe = regexp.MustCompile(`(?s)<!--SEMESTER_PLAN:(.*?)-->`)

// MarkerStatus classifies the result of looking for a plan marker.
type MarkerStatus string

const (
	MarkerFound     MarkerStatus = "found"
	MarkerAbsent    MarkerStatus = "absent"
	MarkerMalformed MarkerStatus = "malformed"
)

// Payload is the JSON body of a marker.
type Payload struct {
	Winter []Course `json:"winter"`
	Summer []Course `json:"summer"`
	Title  *string  `json:"title,omitempty"`
}

// MarkerResult is the outcome of ExtractMarker.
type MarkerResult struct {
	Status  MarkerStatus
	Payload *Payload // set when Status is MarkerFound
	Raw     string   // marker body as found, trimmed
	Ignored int      // markers after the first one
	Err     error    // set when Status is MarkerMalformed
}

// ExtractMarker finds the first plan marker in content and decodes its body.
func ExtractMarker(content string) MarkerResult {
	matches := markerRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return MarkerResult{Status: MarkerAbsent}
	}

	raw := strings.TrimSpace(matches[0][1])
	res := MarkerResult{Raw: raw, Ignored: len(matches) - 1}

	payload, err := decodePayload(raw)
	if err != nil {
		res.Status = MarkerMalformed
		res.Err = err
		return res
	}

	res.Status = MarkerFound
	res.Payload = payload
	return res
}

func decodePayload(raw string) (*Payload, error) {
	body := []byte(raw)
	if len(body) == 0 || body[0] != '{' {
		return nil, fmt.Errorf("marker body must be a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}
	return &p, nil
}

// StripPlanMarkers removes every plan marker from content, leaving the
// human-readable part.
func StripPlanMarkers(content string) string {
	return strings.TrimSpace(markerRe.ReplaceAllString(content, ""))
}

// Parser turns AI responses into plans.
type Parser struct {
	now func() time.Time
	log *slog.Logger
}

// NewParser returns a Parser. nil arguments mean time.Now and slog.Default().
func NewParser(now func() time.Time, log *slog.Logger) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{now: now, log: logging.OrDefault(log)}
}

// Parse returns the plan embedded in content, or nil when there is no marker
// or its body is malformed. Missing terms become empty, generated_at is the
// current time, and courses without id_course or repeated within a term are
// dropped.
func (p *Parser) Parse(content string) *Plan {
	res := ExtractMarker(content)
	switch res.Status {
	case MarkerAbsent:
		return nil
	case MarkerMalformed:
		p.log.Warn("planner: malformed semester plan marker", "error", res.Err, "bytes", len(res.Raw))
		return nil
	}
	if res.Ignored > 0 {
		p.log.Debug("planner: extra semester plan markers ignored", "count", res.Ignored)
	}

	plan := NewPlan(p.now())
	plan.Title = res.Payload.Title
	plan.Winter = p.sanitize(Winter, res.Payload.Winter)
	plan.Summer = p.sanitize(Summer, res.Payload.Summer)
	return plan
}

func (p *Parser) sanitize(term Term, courses []Course) []Course {
	out := make([]Course, 0, len(courses))
	seen := make(map[string]bool, len(courses))
	for _, c := range courses {
		if c.IDCourse == "" {
			p.log.Warn("planner: dropping course without id_course", "term", term)
			continue
		}
		if seen[c.IDCourse] {
			continue
		}
		seen[c.IDCourse] = true
		out = append(out, c)
	}
	return out
}

// ParseSemesterPlanFromResponse parses content using time.Now and the default logger.
func ParseSemesterPlanFromResponse(content string) *Plan {
	return NewParser(nil, nil).Parse(content)
}
