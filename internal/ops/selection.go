package ops

import (
	"github.com/hpungsan/coursedesk/internal/selection"
	"github.com/hpungsan/coursedesk/internal/session"
)

// SelectionToggleOutput reports the membership after a toggle.
type SelectionToggleOutput struct {
	Category selection.Category `json:"category"`
	ID       string             `json:"id"`
	Selected bool               `json:"selected"`
	Count    int                `json:"count"`
}

// SelectionToggle flips id in category.
func SelectionToggle(sess *session.Session, category, id string) (*SelectionToggleOutput, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	c, err := ParseCategory(category)
	if err != nil {
		return nil, err
	}
	id, err = requireID("id", id)
	if err != nil {
		return nil, err
	}

	selected, err := sess.Selection.Toggle(c, id)
	if err != nil {
		return nil, err
	}
	return &SelectionToggleOutput{Category: c, ID: id, Selected: selected, Count: sess.Selection.Count()}, nil
}

// SelectionOutput lists selected ids per category.
type SelectionOutput struct {
	Courses   []string `json:"courses"`
	Labs      []string `json:"labs"`
	Documents []string `json:"documents"`
	Count     int      `json:"count"`
}

// SelectionList returns every category's selection.
func SelectionList(sess *session.Session) (*SelectionOutput, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	all := sess.Selection.All()
	return &SelectionOutput{
		Courses:   all[selection.Courses],
		Labs:      all[selection.Labs],
		Documents: all[selection.Documents],
		Count:     len(all[selection.Courses]) + len(all[selection.Labs]) + len(all[selection.Documents]),
	}, nil
}

// SelectionClear empties every category.
func SelectionClear(sess *session.Session) (*ClearOutput, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	sess.Selection.ClearAll()
	return &ClearOutput{Cleared: true}, nil
}
