// Package selection tracks which catalog entries a user has ticked for bulk
// actions. Selections live in memory for the session only.
package selection

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Category is a kind of selectable entry.
type Category string

const (
	Courses   Category = "courses"
	Labs      Category = "labs"
	Documents Category = "documents"
)

// Categories lists every category in display order.
var Categories = []Category{Courses, Labs, Documents}

// ErrUnknownCategory is returned for a category outside Categories.
var ErrUnknownCategory = errors.New("selection: unknown category")

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// orderedSet is an insertion-ordered set of ids.
type orderedSet struct {
	order []string
	index map[string]int
}

func newSet() *orderedSet {
	return &orderedSet{index: make(map[string]int)}
}

func (s *orderedSet) has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *orderedSet) add(id string) {
	s.index[id] = len(s.order)
	s.order = append(s.order, id)
}

func (s *orderedSet) remove(id string) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	s.order = append(s.order[:i], s.order[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.order); j++ {
		s.index[s.order[j]] = j
	}
}

func (s *orderedSet) ids() []string {
	return append([]string{}, s.order...)
}

// State holds one set per category.
type State struct {
	mu   sync.Mutex
	sets map[Category]*orderedSet
}

// NewState returns a State with every category empty.
func NewState() *State {
	s := &State{}
	s.reset()
	return s
}

func (s *State) reset() {
	s.sets = make(map[Category]*orderedSet, len(Categories))
	for _, c := range Categories {
		s.sets[c] = newSet()
	}
}

func (s *State) setFor(category Category) (*orderedSet, error) {
	set, ok := s.sets[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return set, nil
}

// Toggle adds id to category if absent, removes it otherwise, and returns
// whether id is selected afterwards.
func (s *State) Toggle(category Category, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.setFor(category)
	if err != nil {
		return false, err
	}
	if set.has(id) {
		set.remove(id)
		return false, nil
	}
	set.add(id)
	return true, nil
}

// Has reports whether id is selected in category.
func (s *State) Has(category Category, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.setFor(category)
	if err != nil {
		return false
	}
	return set.has(id)
}

// IDs returns the selected ids of category in the order they were selected.
func (s *State) IDs(category Category) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.setFor(category)
	if err != nil {
		return nil, err
	}
	return set.ids(), nil
}

// All returns every category's selection.
func (s *State) All() map[Category][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Category][]string, len(s.sets))
	for c, set := range s.sets {
		out[c] = set.ids()
	}
	return out
}

// Count returns the number of selected ids across all categories.
func (s *State) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, set := range s.sets {
		n += len(set.order)
	}
	return n
}

// ClearAll empties every category at once.
func (s *State) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}
