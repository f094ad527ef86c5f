package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/coursedesk/internal/config"
	"github.com/hpungsan/coursedesk/internal/db"
	"github.com/hpungsan/coursedesk/internal/errors"
	"github.com/hpungsan/coursedesk/internal/history"
	"github.com/hpungsan/coursedesk/internal/logging"
	"github.com/hpungsan/coursedesk/internal/remote"
	"github.com/hpungsan/coursedesk/internal/session"
	"github.com/hpungsan/coursedesk/internal/storage"
)

// testSetup creates a session backed by a temporary sqlite database.
func testSetup(t *testing.T) (*session.Session, *config.Config, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}

	cfg := config.DefaultConfig()
	hist := history.NewStore(storage.NewSQLiteStore(database), history.WithLogger(logging.Discard()))
	sess, err := session.NewManager(hist, session.WithLogger(logging.Discard())).New()
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	cleanup := func() {
		database.Close()
	}

	return sess, cfg, cleanup
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestHandleHistory(t *testing.T) {
	sess, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(sess, nil, cfg)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name: "course with ects",
			args: map[string]any{"id": "c1", "type": "course", "name": "Calculus", "ects": 6.0, "code": "MAT101"},
		},
		{
			name: "lab with topics",
			args: map[string]any{"id": "l1", "type": "lab", "name": "Vision Lab", "topics": []any{"cv", "ml"}},
		},
		{
			name:      "missing id",
			args:      map[string]any{"type": "course"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "unknown type",
			args:      map[string]any{"id": "x", "type": "faculty"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "ects wrong type",
			args:      map[string]any{"id": "x", "type": "course", "ects": "six"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleHistoryAdd(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantError {
				if !result.IsError {
					t.Fatalf("expected error result")
				}
				assertErrorCode(t, result, tt.errorCode)
				return
			}
			if result.IsError {
				t.Fatalf("unexpected error result: %v", extractErrorMessage(result))
			}
		})
	}

	result, _ := h.HandleHistoryList(ctx, makeRequest(nil))
	output := parseOutput(t, result)
	if output["count"].(float64) != 2 {
		t.Fatalf("count = %v, want 2", output["count"])
	}
	items := output["items"].([]any)
	first := items[0].(map[string]any)
	if first["id"] != "l1" {
		t.Errorf("newest item = %v, want l1", first["id"])
	}
	if _, ok := first["viewedAt"]; !ok {
		t.Errorf("viewedAt missing from %v", first)
	}

	result, _ = h.HandleHistoryRemove(ctx, makeRequest(map[string]any{"id": "l1", "type": "lab"}))
	output = parseOutput(t, result)
	if output["count"].(float64) != 1 {
		t.Errorf("count after remove = %v, want 1", output["count"])
	}

	result, _ = h.HandleHistoryClear(ctx, makeRequest(nil))
	output = parseOutput(t, result)
	if output["cleared"] != true {
		t.Errorf("cleared = %v", output["cleared"])
	}

	result, _ = h.HandleHistoryList(ctx, makeRequest(nil))
	output = parseOutput(t, result)
	if output["count"].(float64) != 0 {
		t.Errorf("count after clear = %v, want 0", output["count"])
	}
}

func TestHandlePlanParse(t *testing.T) {
	sess, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(sess, nil, cfg)
	ctx := context.Background()

	tests := []struct {
		name      string
		content   string
		errorCode string
	}{
		{name: "no marker", content: "plain advice", errorCode: "PLAN_NOT_FOUND"},
		{name: "bad json", content: "<!--SEMESTER_PLAN:{nope-->", errorCode: "PLAN_MALFORMED"},
		{name: "empty", content: "", errorCode: "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _ := h.HandlePlanParse(ctx, makeRequest(map[string]any{"content": tt.content}))
			if !result.IsError {
				t.Fatal("expected error result")
			}
			assertErrorCode(t, result, tt.errorCode)
		})
	}

	content := `Try this: <!--SEMESTER_PLAN:{"title":"Y1","winter":[{"id_course":"C1","room":"A1"}]}-->`
	result, _ := h.HandlePlanParse(ctx, makeRequest(map[string]any{"content": content, "apply": true}))
	output := parseOutput(t, result)
	if output["applied"] != true {
		t.Errorf("applied = %v, want true", output["applied"])
	}
	plan := output["plan"].(map[string]any)
	course := plan["winter"].([]any)[0].(map[string]any)
	if course["room"] != "A1" {
		t.Errorf("unknown course field not preserved: %v", course)
	}
	if len(plan["summer"].([]any)) != 0 {
		t.Errorf("summer = %v, want empty", plan["summer"])
	}

	result, _ = h.HandlePlanShow(ctx, makeRequest(nil))
	output = parseOutput(t, result)
	if output["open"] != true {
		t.Errorf("open = %v, want true after apply", output["open"])
	}
}

func TestHandlePlanEditing(t *testing.T) {
	sess, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(sess, nil, cfg)
	ctx := context.Background()

	add := func(term, id string) map[string]any {
		result, _ := h.HandlePlanAddCourse(ctx, makeRequest(map[string]any{
			"term":   term,
			"course": map[string]any{"id_course": id, "ects": 5},
		}))
		return parseOutput(t, result)
	}

	if out := add("winter", "C1"); out["outcome"] != "added" {
		t.Errorf("outcome = %v, want added", out["outcome"])
	}
	if out := add("winter", "C1"); out["outcome"] != "duplicate" {
		t.Errorf("outcome = %v, want duplicate", out["outcome"])
	}

	result, _ := h.HandlePlanAddCourse(ctx, makeRequest(map[string]any{"term": "winter"}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	result, _ = h.HandlePlanAddCourse(ctx, makeRequest(map[string]any{
		"term": "fall", "course": map[string]any{"id_course": "C2"},
	}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	result, _ = h.HandlePlanRemoveCourse(ctx, makeRequest(map[string]any{"term": "summer", "id_course": "C1"}))
	if out := parseOutput(t, result); out["outcome"] != "absent" {
		t.Errorf("outcome = %v, want absent", out["outcome"])
	}

	result, _ = h.HandlePlanShow(ctx, makeRequest(nil))
	output := parseOutput(t, result)
	credits := output["credits"].(map[string]any)
	if credits["winter"].(float64) != 5 {
		t.Errorf("winter credits = %v, want 5", credits["winter"])
	}
	if output["open"] != false {
		t.Errorf("open = %v, adding courses must not open the planner", output["open"])
	}

	result, _ = h.HandlePlanToggle(ctx, makeRequest(nil))
	if out := parseOutput(t, result); out["open"] != true {
		t.Errorf("open = %v after toggle", out["open"])
	}

	result, _ = h.HandlePlanClear(ctx, makeRequest(nil))
	output = parseOutput(t, result)
	if output["plan"] != nil {
		t.Errorf("plan = %v, want null after clear", output["plan"])
	}
	if output["open"] != true {
		t.Errorf("clear must not change the open flag")
	}
}

func TestHandlePlanSet(t *testing.T) {
	sess, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(sess, nil, cfg)
	ctx := context.Background()

	result, _ := h.HandlePlanSet(ctx, makeRequest(map[string]any{
		"plan": map[string]any{
			"title":  "Light year",
			"summer": []any{map[string]any{"id_course": 77}},
		},
	}))
	output := parseOutput(t, result)
	plan := output["plan"].(map[string]any)
	if plan["title"] != "Light year" {
		t.Errorf("title = %v", plan["title"])
	}
	summer := plan["summer"].([]any)
	if summer[0].(map[string]any)["id_course"] != "77" {
		t.Errorf("id_course = %v, want \"77\"", summer[0])
	}

	result, _ = h.HandlePlanSet(ctx, makeRequest(map[string]any{}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	result, _ = h.HandlePlanSet(ctx, makeRequest(map[string]any{
		"plan": map[string]any{"winter": []any{map[string]any{"name": "no id"}}},
	}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleSelection(t *testing.T) {
	sess, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(sess, nil, cfg)
	ctx := context.Background()

	toggle := func(category, id string) *mcp.CallToolResult {
		result, _ := h.HandleSelectionToggle(ctx, makeRequest(map[string]any{"category": category, "id": id}))
		return result
	}

	if out := parseOutput(t, toggle("courses", "c1")); out["selected"] != true {
		t.Errorf("selected = %v, want true", out["selected"])
	}
	parseOutput(t, toggle("documents", "d1"))
	if out := parseOutput(t, toggle("courses", "c1")); out["selected"] != false {
		t.Errorf("selected = %v, want false", out["selected"])
	}
	assertErrorCode(t, toggle("buildings", "b1"), "INVALID_REQUEST")

	result, _ := h.HandleSelectionList(ctx, makeRequest(nil))
	output := parseOutput(t, result)
	if output["count"].(float64) != 1 {
		t.Errorf("count = %v, want 1", output["count"])
	}
	if docs := output["documents"].([]any); len(docs) != 1 || docs[0] != "d1" {
		t.Errorf("documents = %v", docs)
	}

	result, _ = h.HandleSelectionClear(ctx, makeRequest(nil))
	parseOutput(t, result)
	if sess.Selection.Count() != 0 {
		t.Errorf("selection not cleared")
	}
}

func TestHandleAdvisorAsk(t *testing.T) {
	sess, cfg, cleanup := testSetup(t)
	defer cleanup()

	mock := remote.NewMock().Reply(remote.ChatFunction, map[string]string{
		"content": "**Go for it.**\n<!--SEMESTER_PLAN:{\"winter\":[{\"id_course\":\"AI1\"}]}-->",
	})
	h := NewHandlers(sess, mock, cfg)

	doc := filepath.Join(t.TempDir(), "interests.md")
	if err := os.WriteFile(doc, []byte("# Interests\n\nRobotics"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	result, _ := h.HandleAdvisorAsk(context.Background(), makeRequest(map[string]any{
		"question":  "What should I take?",
		"documents": []any{doc},
	}))
	output := parseOutput(t, result)
	if !strings.Contains(output["html"].(string), "<strong>Go for it.</strong>") {
		t.Errorf("html = %v", output["html"])
	}
	if output["plan"] == nil {
		t.Fatal("plan missing from answer")
	}
	if !sess.Plan.IsOpen() {
		t.Error("planner should be open after a plan arrives")
	}
	if !strings.Contains(string(mock.Calls()[0].Payload), "Robotics") {
		t.Errorf("document text not sent: %s", mock.Calls()[0].Payload)
	}

	result, _ = h.HandleAdvisorAsk(context.Background(), makeRequest(map[string]any{
		"question":  "again",
		"documents": []any{"/definitely/missing.txt"},
	}))
	assertErrorCode(t, result, "NOT_FOUND")
	if msg := extractErrorMessage(result); !strings.Contains(msg, "documents[0]") {
		t.Errorf("error should name the document index, got %s", msg)
	}
}

func TestServerRegistration(t *testing.T) {
	sess, cfg, cleanup := testSetup(t)
	defer cleanup()

	s := NewServer(sess, nil, cfg, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"history_list",
		"history_add",
		"history_remove",
		"history_clear",
		"plan_show",
		"plan_parse",
		"plan_set",
		"plan_add_course",
		"plan_remove_course",
		"plan_clear",
		"plan_toggle",
		"selection_toggle",
		"selection_list",
		"selection_clear",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}
	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
	if _, ok := tools["advisor_ask"]; ok {
		t.Error("advisor_ask should not be registered without a remote backend")
	}
}

func TestServerRegistration_WithAdvisor(t *testing.T) {
	sess, cfg, cleanup := testSetup(t)
	defer cleanup()

	tools := NewServer(sess, remote.NewMock(), cfg, "test").ListTools()
	if len(tools) != 15 {
		t.Errorf("registered tool count = %d, want 15", len(tools))
	}
	if _, ok := tools["advisor_ask"]; !ok {
		t.Error("advisor_ask should be registered with a remote backend")
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	sess, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTools = []string{"history_clear", "plan_clear", "selection_clear"}
	tools := NewServer(sess, nil, cfg, "test").ListTools()

	if len(tools) != 11 {
		t.Errorf("registered tool count = %d, want 11", len(tools))
	}
	for _, name := range cfg.DisabledTools {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	for _, name := range []string{"history_list", "plan_show", "selection_toggle"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("core tool %q should be registered", name)
		}
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	sess, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTypes = []string{"plan", "advisor"}
	tools := NewServer(sess, remote.NewMock(), cfg, "test").ListTools()

	// 4 history + 3 selection
	if len(tools) != 7 {
		t.Errorf("registered tool count = %d, want 7", len(tools))
	}
	for name := range tools {
		if strings.HasPrefix(name, "plan_") || strings.HasPrefix(name, "advisor_") {
			t.Errorf("tool %q should be disabled by type", name)
		}
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	sess, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTools = AllToolNames()
	tools := NewServer(sess, remote.NewMock(), cfg, "test").ListTools()

	if len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestServerRegistration_DuplicateDisabled(t *testing.T) {
	sess, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTools = []string{"plan_toggle", "plan_toggle", "plan_toggle"}
	tools := NewServer(sess, nil, cfg, "test").ListTools()

	if len(tools) != 13 {
		t.Errorf("registered tool count = %d, want 13", len(tools))
	}
	if _, ok := tools["plan_toggle"]; ok {
		t.Error("disabled tool 'plan_toggle' should not be registered")
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{name: "all valid", input: []string{"history_clear", "advisor_ask"}, wantLen: 0},
		{name: "one unknown", input: []string{"plan_show", "fake_tool"}, wantLen: 1},
		{name: "all unknown", input: []string{"foo", "bar", "baz"}, wantLen: 3},
		{name: "empty list", input: []string{}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestValidateDisabledTypes(t *testing.T) {
	if unknown := ValidateDisabledTypes([]string{"history", "advisor", "rooms"}); len(unknown) != 1 || unknown[0] != "rooms" {
		t.Errorf("ValidateDisabledTypes() = %v, want [rooms]", unknown)
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()

	if len(names) != 15 {
		t.Errorf("AllToolNames() returned %d names, want 15", len(names))
	}
	if unknown := ValidateDisabledTools(names); len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
	for _, name := range names {
		typ := GetTypeForTool(name)
		if len(ValidateDisabledTypes([]string{typ})) != 0 {
			t.Errorf("tool %q has unknown type %q", name, typ)
		}
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrappedErr := fmt.Errorf("documents[2]: %w", errors.NewNotFound("file", "a.md"))

	r := errorResult(wrappedErr)
	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	msg := errObj["message"].(string)
	if !strings.HasPrefix(msg, "documents[2]: ") || !strings.Contains(msg, "file not found: a.md") {
		t.Errorf("message = %q, want wrapper context and original message", msg)
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	r := errorResult(fmt.Errorf("boom"))
	assertErrorCode(t, r, "INTERNAL")
	if strings.Contains(extractErrorMessage(r), "boom") {
		t.Error("plain errors must not leak their message")
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Errorf("content is not TextContent")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Errorf("failed to unmarshal error payload: %v", err)
		return
	}

	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Errorf("no error object in payload")
		return
	}

	code, ok := errorObj["code"].(string)
	if !ok {
		t.Errorf("no code in error object")
		return
	}

	if code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
