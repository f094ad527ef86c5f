package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	deskerrors "github.com/hpungsan/coursedesk/internal/errors"
	"github.com/hpungsan/coursedesk/internal/logging"
	"github.com/hpungsan/coursedesk/internal/planner"
)

// ChatFunction is the remote function that answers advisor questions.
const ChatFunction = "ai-chat"

// Message is one turn of an advisor conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the ai-chat payload.
type ChatRequest struct {
	Messages []Message `json:"messages"`
	// SelectedCourses and SelectedLabs give the advisor the user's current picks.
	SelectedCourses []string `json:"selectedCourses,omitempty"`
	SelectedLabs    []string `json:"selectedLabs,omitempty"`
}

// Answer is what Ask returns.
type Answer struct {
	Content string        `json:"content"`
	HTML    string        `json:"html"`
	Plan    *planner.Plan `json:"plan,omitempty"`
}

// Advisor asks the remote AI advisor and applies any plan in its reply.
type Advisor struct {
	invoker Invoker
	plan    *planner.State
	log     *slog.Logger
}

// NewAdvisor returns an Advisor writing received plans into plan.
func NewAdvisor(invoker Invoker, plan *planner.State, log *slog.Logger) *Advisor {
	return &Advisor{invoker: invoker, plan: plan, log: logging.OrDefault(log)}
}

// Ask sends req to the advisor. When the reply embeds a semester plan it
// becomes the session's draft and is returned in Answer.Plan.
func (a *Advisor) Ask(ctx context.Context, req ChatRequest) (*Answer, error) {
	if len(req.Messages) == 0 || strings.TrimSpace(req.Messages[len(req.Messages)-1].Content) == "" {
		return nil, deskerrors.NewInvalidRequest("question is required")
	}

	raw, err := a.invoker.Invoke(ctx, ChatFunction, req)
	if err != nil {
		return nil, err
	}

	var reply struct {
		Content string `json:"content"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, deskerrors.NewRemoteFailure(ChatFunction, 200, fmt.Sprintf("decode reply: %v", err))
	}
	if reply.Error != "" {
		return nil, deskerrors.NewRemoteFailure(ChatFunction, 200, reply.Error)
	}

	answer := &Answer{Content: reply.Content}
	if a.plan != nil {
		answer.Plan = a.plan.ApplyResponse(reply.Content)
	} else {
		answer.Plan = planner.ParseSemesterPlanFromResponse(reply.Content)
	}
	if answer.Plan != nil {
		a.log.Info("advisor: semester plan received",
			"winter", len(answer.Plan.Winter), "summer", len(answer.Plan.Summer))
	}

	html, err := planner.RenderResponse(reply.Content)
	if err != nil {
		// The plan is already applied; fall back to the plain text.
		a.log.Warn("advisor: render failed", "error", err)
		html = planner.StripPlanMarkers(reply.Content)
	}
	answer.HTML = html
	return answer, nil
}

// Question wraps a single user question as a ChatRequest.
func Question(text string) ChatRequest {
	return ChatRequest{Messages: []Message{{Role: "user", Content: text}}}
}
