package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Term is one half of the academic year.
type Term string

const (
	Winter Term = "winter"
	Summer Term = "summer"
)

// ParseTerm accepts "winter" or "summer" in any case.
func ParseTerm(s string) (Term, error) {
	switch Term(strings.ToLower(strings.TrimSpace(s))) {
	case Winter:
		return Winter, nil
	case Summer:
		return Summer, nil
	}
	return "", fmt.Errorf("term must be winter or summer (got %q)", s)
}

// Other returns the opposite term.
func (t Term) Other() Term {
	if t == Winter {
		return Summer
	}
	return Winter
}

// Course is a course placed into a plan term. Only IDCourse matters to the
// planner; every other field is carried through untouched, including fields
// this type does not know about.
type Course struct {
	IDCourse string
	Name     string
	Code     string
	ECTS     *float64
	// Extra holds unrecognised JSON fields verbatim.
	Extra map[string]json.RawMessage
}

// UnmarshalJSON accepts id_course as a JSON string or number.
func (c *Course) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out Course
	if raw, ok := fields["id_course"]; ok {
		id, err := decodeID(raw)
		if err != nil {
			return fmt.Errorf("id_course: %w", err)
		}
		out.IDCourse = id
	}
	// Descriptive fields that do not fit their typed slot stay in Extra as sent.
	keepRaw := func(k string, raw json.RawMessage) {
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[k] = raw
	}
	for k, raw := range fields {
		switch k {
		case "id_course":
		case "name":
			if !isNull(raw) && json.Unmarshal(raw, &out.Name) != nil {
				keepRaw(k, raw)
			}
		case "code":
			if !isNull(raw) && json.Unmarshal(raw, &out.Code) != nil {
				keepRaw(k, raw)
			}
		case "ects":
			var ects float64
			switch {
			case isNull(raw):
			case json.Unmarshal(raw, &ects) == nil:
				out.ECTS = &ects
			default:
				keepRaw(k, raw)
			}
		default:
			keepRaw(k, raw)
		}
	}

	*c = out
	return nil
}

// MarshalJSON writes known fields alongside Extra.
func (c Course) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(c.Extra)+4)
	for k, v := range c.Extra {
		fields[k] = v
	}
	fields["id_course"] = c.IDCourse
	if c.Name != "" {
		fields["name"] = c.Name
	}
	if c.Code != "" {
		fields["code"] = c.Code
	}
	if c.ECTS != nil {
		fields["ects"] = *c.ECTS
	}
	return json.Marshal(fields)
}

func decodeID(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if isNull(trimmed) {
		return "", nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", fmt.Errorf("must be a string or number")
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return "", fmt.Errorf("must be a string or number")
	}
	return n.String(), nil
}

func isNull(raw []byte) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func (c Course) clone() Course {
	out := c
	if c.ECTS != nil {
		ects := *c.ECTS
		out.ECTS = &ects
	}
	if c.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// Plan is a two-term draft semester plan.
type Plan struct {
	Winter      []Course  `json:"winter"`
	Summer      []Course  `json:"summer"`
	GeneratedAt time.Time `json:"generated_at"`
	Title       *string   `json:"title,omitempty"`
}

// NewPlan returns an empty plan stamped with at.
func NewPlan(at time.Time) *Plan {
	return &Plan{Winter: []Course{}, Summer: []Course{}, GeneratedAt: at}
}

// Courses returns the slice for term. Unknown terms yield nil.
func (p *Plan) Courses(term Term) []Course {
	switch term {
	case Winter:
		return p.Winter
	case Summer:
		return p.Summer
	}
	return nil
}

func (p *Plan) setCourses(term Term, courses []Course) {
	switch term {
	case Winter:
		p.Winter = courses
	case Summer:
		p.Summer = courses
	}
}

// Has reports whether term already holds a course with id.
func (p *Plan) Has(term Term, id string) bool {
	for _, c := range p.Courses(term) {
		if c.IDCourse == id {
			return true
		}
	}
	return false
}

// Credits sums ECTS over term. Courses without numeric ECTS count as zero.
func (p *Plan) Credits(term Term) float64 {
	var total float64
	for _, c := range p.Courses(term) {
		if c.ECTS != nil {
			total += *c.ECTS
		}
	}
	return total
}

// Clone returns a deep copy of p.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	out := &Plan{
		Winter:      cloneCourses(p.Winter),
		Summer:      cloneCourses(p.Summer),
		GeneratedAt: p.GeneratedAt,
	}
	if p.Title != nil {
		title := *p.Title
		out.Title = &title
	}
	return out
}

func cloneCourses(in []Course) []Course {
	out := make([]Course, len(in))
	for i, c := range in {
		out[i] = c.clone()
	}
	return out
}
