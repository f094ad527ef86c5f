package history

import (
	"fmt"
	"strings"
)

// ItemType is the kind of catalog entity a ViewedItem points at.
type ItemType string

const (
	TypeCourse  ItemType = "course"
	TypeLab     ItemType = "lab"
	TypeProgram ItemType = "program"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case TypeCourse, TypeLab, TypeProgram:
		return true
	}
	return false
}

// ViewedItem is one entry of the recently-viewed list. The JSON field names
// are the persisted format; ViewedAt is epoch milliseconds.
type ViewedItem struct {
	ID       string   `json:"id"`
	Type     ItemType `json:"type"`
	Name     string   `json:"name"`
	Href     string   `json:"href"`
	ViewedAt int64    `json:"viewedAt"`
	ECTS     *float64 `json:"ects,omitempty"`
	Code     string   `json:"code,omitempty"`
	Topics   []string `json:"topics,omitempty"`
}

// Key identifies an item within the list.
func (v ViewedItem) Key() string {
	return string(v.Type) + ":" + v.ID
}

// Validate checks the fields the list invariants depend on.
func (v ViewedItem) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if !v.Type.Valid() {
		return fmt.Errorf("type must be one of: course, lab, program (got %q)", v.Type)
	}
	return nil
}

func (v ViewedItem) clone() ViewedItem {
	out := v
	if v.ECTS != nil {
		ects := *v.ECTS
		out.ECTS = &ects
	}
	if v.Topics != nil {
		out.Topics = append([]string(nil), v.Topics...)
	}
	return out
}

func cloneItems(items []ViewedItem) []ViewedItem {
	out := make([]ViewedItem, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return out
}
