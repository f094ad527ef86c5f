package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hpungsan/coursedesk/internal/errors"
	"github.com/hpungsan/coursedesk/internal/ops"
	"github.com/hpungsan/coursedesk/internal/planner"
	"github.com/hpungsan/coursedesk/internal/remote"
	"github.com/hpungsan/coursedesk/internal/session"
)

// SessionHeader carries the session ID in both directions.
const SessionHeader = "X-Session-ID"

// Handlers contains HTTP route handlers for the JSON API.
type Handlers struct {
	sessions *session.Manager
	invoker  remote.Invoker
	log      *slog.Logger
	version  string
}

// session resolves the caller's session and echoes its ID back. A missing or
// unknown ID starts a new session.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.sessions.Ensure(strings.TrimSpace(r.Header.Get(SessionHeader)))
	if err != nil {
		h.renderError(w, r, err)
		return nil, false
	}
	w.Header().Set(SessionHeader, sess.ID)
	return sess, true
}

// respond renders result, or err when set.
func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, result any, err error) {
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleIndex handles GET /: service info.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"name":     "coursedesk",
		"version":  h.version,
		"advisor":  h.invoker != nil,
		"sessions": h.sessions.Len(),
	})
}

// HandleHistoryList handles GET /history.
func (h *Handlers) HandleHistoryList(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := ops.HistoryList(sess)
	h.respond(w, r, result, err)
}

// historyAddBody is the POST /history body.
type historyAddBody struct {
	ID     string   `json:"id"`
	Type   string   `json:"type"`
	Name   string   `json:"name"`
	Href   string   `json:"href"`
	ECTS   *float64 `json:"ects"`
	Code   string   `json:"code"`
	Topics []string `json:"topics"`
}

// HandleHistoryAdd handles POST /history: record a view.
func (h *Handlers) HandleHistoryAdd(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var body historyAddBody
	if err := decodeBody(w, r, &body); err != nil {
		h.renderError(w, r, err)
		return
	}
	result, err := ops.HistoryAdd(sess, ops.HistoryAddInput{
		ID:     body.ID,
		Type:   body.Type,
		Name:   body.Name,
		Href:   body.Href,
		ECTS:   body.ECTS,
		Code:   body.Code,
		Topics: body.Topics,
	})
	h.respond(w, r, result, err)
}

// HandleHistoryRemove handles DELETE /history/{type}/{id}.
func (h *Handlers) HandleHistoryRemove(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := ops.HistoryRemove(sess, r.PathValue("id"), r.PathValue("type"))
	h.respond(w, r, result, err)
}

// HandleHistoryClear handles DELETE /history.
func (h *Handlers) HandleHistoryClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := ops.HistoryClear(sess)
	h.respond(w, r, result, err)
}

// HandlePlanShow handles GET /plan.
func (h *Handlers) HandlePlanShow(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := ops.PlanShow(sess)
	h.respond(w, r, result, err)
}

// HandlePlanSet handles PUT /plan: replace the draft.
func (h *Handlers) HandlePlanSet(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var plan *planner.Plan
	if err := decodeBody(w, r, &plan); err != nil {
		h.renderError(w, r, err)
		return
	}
	if plan == nil {
		h.renderError(w, r, errors.NewInvalidRequest("plan body is required"))
		return
	}
	result, err := ops.PlanSet(sess, *plan)
	h.respond(w, r, result, err)
}

// HandlePlanClear handles DELETE /plan.
func (h *Handlers) HandlePlanClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := ops.PlanClear(sess)
	h.respond(w, r, result, err)
}

// contentBody carries an advisor response.
type contentBody struct {
	Content string `json:"content"`
	Apply   bool   `json:"apply"`
}

// HandlePlanParse handles POST /plan/parse.
func (h *Handlers) HandlePlanParse(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var body contentBody
	if err := decodeBody(w, r, &body); err != nil {
		h.renderError(w, r, err)
		return
	}
	result, err := ops.PlanParse(sess, ops.PlanParseInput{Content: body.Content, Apply: body.Apply})
	h.respond(w, r, result, err)
}

// HandlePlanToggle handles POST /plan/toggle.
func (h *Handlers) HandlePlanToggle(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := ops.PlanToggle(sess)
	h.respond(w, r, result, err)
}

// HandlePlanAddCourse handles POST /plan/{term}/courses.
func (h *Handlers) HandlePlanAddCourse(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var course *planner.Course
	if err := decodeBody(w, r, &course); err != nil {
		h.renderError(w, r, err)
		return
	}
	if course == nil {
		h.renderError(w, r, errors.NewInvalidRequest("course body is required"))
		return
	}
	result, err := ops.PlanAddCourse(sess, r.PathValue("term"), *course)
	h.respond(w, r, result, err)
}

// HandlePlanRemoveCourse handles DELETE /plan/{term}/courses/{id}.
func (h *Handlers) HandlePlanRemoveCourse(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := ops.PlanRemoveCourse(sess, r.PathValue("term"), r.PathValue("id"))
	h.respond(w, r, result, err)
}

// HandleSelectionList handles GET /selection.
func (h *Handlers) HandleSelectionList(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := ops.SelectionList(sess)
	h.respond(w, r, result, err)
}

// HandleSelectionToggle handles POST /selection/{category}/{id}.
func (h *Handlers) HandleSelectionToggle(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := ops.SelectionToggle(sess, r.PathValue("category"), r.PathValue("id"))
	h.respond(w, r, result, err)
}

// HandleSelectionClear handles DELETE /selection.
func (h *Handlers) HandleSelectionClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := ops.SelectionClear(sess)
	h.respond(w, r, result, err)
}

// HandleRender handles POST /responses/render: advisor text to HTML.
func (h *Handlers) HandleRender(w http.ResponseWriter, r *http.Request) {
	var body contentBody
	if err := decodeBody(w, r, &body); err != nil {
		h.renderError(w, r, err)
		return
	}
	result, err := ops.RenderResponse(body.Content)
	h.respond(w, r, result, err)
}

// askBody is the POST /advisor/ask body.
type askBody struct {
	Question         string `json:"question"`
	IncludeSelection bool   `json:"include_selection"`
	Documents        []struct {
		Name string `json:"name"`
		Text string `json:"text"`
	} `json:"documents"`
}

// HandleAdvisorAsk handles POST /advisor/ask.
func (h *Handlers) HandleAdvisorAsk(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var body askBody
	if err := decodeBody(w, r, &body); err != nil {
		h.renderError(w, r, err)
		return
	}

	docs := make([]ops.Document, 0, len(body.Documents))
	for _, d := range body.Documents {
		docs = append(docs, ops.Document{Name: d.Name, Text: d.Text})
	}

	result, err := ops.AdvisorAsk(r.Context(), sess, h.invoker, ops.AdvisorAskInput{
		Question:         body.Question,
		IncludeSelection: body.IncludeSelection,
		Documents:        docs,
	})
	h.respond(w, r, result, err)
}
