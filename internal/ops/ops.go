// Package ops implements the operations every surface (CLI, MCP, web) exposes.
// Operations validate their input, return coded errors from internal/errors,
// and translate the explicit outcomes of the state packages into results.
package ops

import (
	"fmt"
	"strings"

	"github.com/hpungsan/coursedesk/internal/errors"
	"github.com/hpungsan/coursedesk/internal/history"
	"github.com/hpungsan/coursedesk/internal/planner"
	"github.com/hpungsan/coursedesk/internal/selection"
	"github.com/hpungsan/coursedesk/internal/session"
)

func requireSession(sess *session.Session) error {
	if sess == nil {
		return errors.NewInternal(fmt.Errorf("ops: nil session"))
	}
	return nil
}

// ParseTerm validates a term name.
func ParseTerm(s string) (planner.Term, error) {
	term, err := planner.ParseTerm(s)
	if err != nil {
		return "", errors.NewInvalidRequest(err.Error())
	}
	return term, nil
}

// ParseItemType validates a history item type.
func ParseItemType(s string) (history.ItemType, error) {
	typ := history.ItemType(strings.ToLower(strings.TrimSpace(s)))
	if !typ.Valid() {
		return "", errors.NewInvalidRequest("type must be one of: course, lab, program")
	}
	return typ, nil
}

// ParseCategory validates a selection category.
func ParseCategory(s string) (selection.Category, error) {
	c, err := selection.ParseCategory(s)
	if err != nil {
		return "", errors.NewInvalidRequest("category must be one of: courses, labs, documents")
	}
	return c, nil
}

func requireID(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.NewInvalidRequest(field + " is required")
	}
	return value, nil
}
