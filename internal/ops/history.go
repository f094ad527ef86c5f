package ops

import (
	"github.com/hpungsan/coursedesk/internal/errors"
	"github.com/hpungsan/coursedesk/internal/history"
	"github.com/hpungsan/coursedesk/internal/session"
)

// HistoryOutput is the recently-viewed list after an operation.
type HistoryOutput struct {
	Items []history.ViewedItem `json:"items"`
	Count int                  `json:"count"`
}

func historyOutput(items []history.ViewedItem) *HistoryOutput {
	return &HistoryOutput{Items: items, Count: len(items)}
}

// HistoryList returns the recently-viewed list, newest first.
func HistoryList(sess *session.Session) (*HistoryOutput, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return historyOutput(sess.History.Items()), nil
}

// HistoryAddInput contains parameters for HistoryAdd. ViewedAt is always
// stamped by the store.
type HistoryAddInput struct {
	ID     string
	Type   string
	Name   string
	Href   string
	ECTS   *float64
	Code   string
	Topics []string
}

// HistoryAdd records a view.
func HistoryAdd(sess *session.Session, input HistoryAddInput) (*HistoryOutput, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}
	typ, err := ParseItemType(input.Type)
	if err != nil {
		return nil, err
	}
	if input.ECTS != nil && *input.ECTS < 0 {
		return nil, errors.NewInvalidRequest("ects must be non-negative")
	}

	sess.History.AddItem(history.ViewedItem{
		ID:     id,
		Type:   typ,
		Name:   input.Name,
		Href:   input.Href,
		ECTS:   input.ECTS,
		Code:   input.Code,
		Topics: input.Topics,
	})
	return historyOutput(sess.History.Items()), nil
}

// HistoryRemove drops one entry. Removing an entry that is not there is not an error.
func HistoryRemove(sess *session.Session, id, typ string) (*HistoryOutput, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	id, err := requireID("id", id)
	if err != nil {
		return nil, err
	}
	itemType, err := ParseItemType(typ)
	if err != nil {
		return nil, err
	}

	sess.History.Remove(id, itemType)
	return historyOutput(sess.History.Items()), nil
}

// ClearOutput reports a clear operation.
type ClearOutput struct {
	Cleared bool `json:"cleared"`
}

// HistoryClear empties the list.
func HistoryClear(sess *session.Session) (*ClearOutput, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	sess.History.ClearItems()
	return &ClearOutput{Cleared: true}, nil
}
