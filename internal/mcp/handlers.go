package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/coursedesk/internal/config"
	"github.com/hpungsan/coursedesk/internal/errors"
	"github.com/hpungsan/coursedesk/internal/ops"
	"github.com/hpungsan/coursedesk/internal/planner"
	"github.com/hpungsan/coursedesk/internal/remote"
	"github.com/hpungsan/coursedesk/internal/session"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	sess    *session.Session
	invoker remote.Invoker
	cfg     *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(sess *session.Session, invoker remote.Invoker, cfg *config.Config) *Handlers {
	return &Handlers{sess: sess, invoker: invoker, cfg: cfg}
}

// Request types for each tool

// HistoryAddRequest represents the arguments for history_add.
type HistoryAddRequest struct {
	ID     string   `json:"id"`
	Type   string   `json:"type"`
	Name   string   `json:"name,omitempty"`
	Href   string   `json:"href,omitempty"`
	ECTS   *float64 `json:"ects,omitempty"`
	Code   string   `json:"code,omitempty"`
	Topics []string `json:"topics,omitempty"`
}

// HistoryRemoveRequest represents the arguments for history_remove.
type HistoryRemoveRequest struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// PlanParseRequest represents the arguments for plan_parse.
type PlanParseRequest struct {
	Content string `json:"content"`
	Apply   bool   `json:"apply,omitempty"`
}

// PlanSetRequest represents the arguments for plan_set.
type PlanSetRequest struct {
	Plan *planner.Plan `json:"plan"`
}

// PlanAddCourseRequest represents the arguments for plan_add_course.
type PlanAddCourseRequest struct {
	Term   string          `json:"term"`
	Course *planner.Course `json:"course"`
}

// PlanRemoveCourseRequest represents the arguments for plan_remove_course.
type PlanRemoveCourseRequest struct {
	Term     string `json:"term"`
	IDCourse string `json:"id_course"`
}

// SelectionToggleRequest represents the arguments for selection_toggle.
type SelectionToggleRequest struct {
	Category string `json:"category"`
	ID       string `json:"id"`
}

// AdvisorAskRequest represents the arguments for advisor_ask.
type AdvisorAskRequest struct {
	Question         string   `json:"question"`
	IncludeSelection bool     `json:"include_selection,omitempty"`
	Documents        []string `json:"documents,omitempty"`
}

// Handler implementations

// HandleHistoryList handles the history_list tool call.
func (h *Handlers) HandleHistoryList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.HistoryList(h.sess)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleHistoryAdd handles the history_add tool call.
func (h *Handlers) HandleHistoryAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryAddRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.HistoryAdd(h.sess, ops.HistoryAddInput{
		ID:     input.ID,
		Type:   input.Type,
		Name:   input.Name,
		Href:   input.Href,
		ECTS:   input.ECTS,
		Code:   input.Code,
		Topics: input.Topics,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleHistoryRemove handles the history_remove tool call.
func (h *Handlers) HandleHistoryRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRemoveRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.HistoryRemove(h.sess, input.ID, input.Type)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleHistoryClear handles the history_clear tool call.
func (h *Handlers) HandleHistoryClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.HistoryClear(h.sess)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePlanShow handles the plan_show tool call.
func (h *Handlers) HandlePlanShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.PlanShow(h.sess)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePlanParse handles the plan_parse tool call.
func (h *Handlers) HandlePlanParse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PlanParseRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.PlanParse(h.sess, ops.PlanParseInput{Content: input.Content, Apply: input.Apply})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePlanSet handles the plan_set tool call.
func (h *Handlers) HandlePlanSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PlanSetRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.Plan == nil {
		return errorResult(errors.NewInvalidRequest("plan is required")), nil
	}

	result, err := ops.PlanSet(h.sess, *input.Plan)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePlanAddCourse handles the plan_add_course tool call.
func (h *Handlers) HandlePlanAddCourse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PlanAddCourseRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.Course == nil {
		return errorResult(errors.NewInvalidRequest("course is required")), nil
	}

	result, err := ops.PlanAddCourse(h.sess, input.Term, *input.Course)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePlanRemoveCourse handles the plan_remove_course tool call.
func (h *Handlers) HandlePlanRemoveCourse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PlanRemoveCourseRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.PlanRemoveCourse(h.sess, input.Term, input.IDCourse)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePlanClear handles the plan_clear tool call.
func (h *Handlers) HandlePlanClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.PlanClear(h.sess)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePlanToggle handles the plan_toggle tool call.
func (h *Handlers) HandlePlanToggle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.PlanToggle(h.sess)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSelectionToggle handles the selection_toggle tool call.
func (h *Handlers) HandleSelectionToggle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SelectionToggleRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.SelectionToggle(h.sess, input.Category, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSelectionList handles the selection_list tool call.
func (h *Handlers) HandleSelectionList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.SelectionList(h.sess)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSelectionClear handles the selection_clear tool call.
func (h *Handlers) HandleSelectionClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.SelectionClear(h.sess)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAdvisorAsk handles the advisor_ask tool call.
func (h *Handlers) HandleAdvisorAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AdvisorAskRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	docs := make([]ops.Document, 0, len(input.Documents))
	for i, path := range input.Documents {
		out, err := ops.ExtractFile(h.cfg, path)
		if err != nil {
			return errorResult(fmt.Errorf("documents[%d]: %w", i, err)), nil
		}
		if out.Extracted {
			docs = append(docs, ops.Document{Name: out.Name, Text: out.Text})
		}
	}

	result, err := ops.AdvisorAsk(ctx, h.sess, h.invoker, ops.AdvisorAskInput{
		Question:         input.Question,
		IncludeSelection: input.IncludeSelection,
		Documents:        docs,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var dErr *errors.DeskError
	if stderrors.As(err, &dErr) {
		message := dErr.Message
		// Keep wrapper context such as "documents[1]: ..."
		if prefix := strings.TrimSuffix(err.Error(), dErr.Error()); prefix != err.Error() {
			message = prefix + message
		}
		errorObj := map[string]any{
			"code":    dErr.Code,
			"message": message,
			"status":  dErr.Status,
		}
		if dErr.Code != errors.ErrInternal && dErr.Details != nil {
			errorObj["details"] = dErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
