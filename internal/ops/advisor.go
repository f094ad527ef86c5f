package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/coursedesk/internal/errors"
	"github.com/hpungsan/coursedesk/internal/remote"
	"github.com/hpungsan/coursedesk/internal/selection"
	"github.com/hpungsan/coursedesk/internal/session"
)

// AdvisorAskInput contains parameters for AdvisorAsk.
type AdvisorAskInput struct {
	Question string
	// IncludeSelection sends the session's selected courses and labs along.
	IncludeSelection bool
	// Documents are extracted texts attached to the question.
	Documents []Document
}

// Document is an attachment already reduced to text.
type Document struct {
	Name string
	Text string
}

// AdvisorAsk sends a question to the remote advisor. A plan in the reply
// becomes the session's draft.
func AdvisorAsk(ctx context.Context, sess *session.Session, invoker remote.Invoker, input AdvisorAskInput) (*remote.Answer, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if invoker == nil {
		return nil, errors.NewInvalidRequest("advisor is not configured (set remote_url)")
	}
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, errors.NewInvalidRequest("question is required")
	}

	req := remote.Question(withDocuments(question, input.Documents))
	if input.IncludeSelection {
		if ids, err := sess.Selection.IDs(selection.Courses); err == nil {
			req.SelectedCourses = ids
		}
		if ids, err := sess.Selection.IDs(selection.Labs); err == nil {
			req.SelectedLabs = ids
		}
	}

	return remote.NewAdvisor(invoker, sess.Plan, nil).Ask(ctx, req)
}

func withDocuments(question string, docs []Document) string {
	if len(docs) == 0 {
		return question
	}
	var b strings.Builder
	b.WriteString(question)
	for _, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n\n--- %s ---\n%s", d.Name, d.Text)
	}
	return b.String()
}
