package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hpungsan/coursedesk/internal/db"
	"github.com/hpungsan/coursedesk/internal/history"
	"github.com/hpungsan/coursedesk/internal/logging"
	"github.com/hpungsan/coursedesk/internal/remote"
	"github.com/hpungsan/coursedesk/internal/session"
	"github.com/hpungsan/coursedesk/internal/storage"
)

type testClient struct {
	t       *testing.T
	handler http.Handler
	session string
}

func setupTest(t *testing.T, invoker remote.Invoker) *testClient {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	hist := history.NewStore(storage.NewSQLiteStore(database), history.WithLogger(logging.Discard()))
	mgr := session.NewManager(hist, session.WithLogger(logging.Discard()))
	srv := NewServer(mgr, invoker, logging.Discard(), "test", "127.0.0.1", 0)

	return &testClient{t: t, handler: srv.Handler}
}

// do sends a request, carrying the session ID across calls.
func (c *testClient) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != "" {
		req.Header.Set(SessionHeader, c.session)
	}

	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	if id := w.Header().Get(SessionHeader); id != "" {
		c.session = id
	}
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}

func expectErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, w, status)
	out := decodeJSON(t, w)
	errObj, ok := out["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in %v", out)
	}
	if errObj["code"] != code {
		t.Errorf("code = %v, want %s", errObj["code"], code)
	}
}

func TestIndex(t *testing.T) {
	c := setupTest(t, nil)

	w := c.do("GET", "/", "")
	expectStatus(t, w, http.StatusOK)
	out := decodeJSON(t, w)
	if out["name"] != "coursedesk" || out["advisor"] != false {
		t.Errorf("index = %v", out)
	}
}

func TestSecurityHeaders(t *testing.T) {
	c := setupTest(t, nil)

	w := c.do("GET", "/history", "")
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Content-Type":           "application/json",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if w.Header().Get("Content-Security-Policy") == "" {
		t.Error("Content-Security-Policy missing")
	}
}

func TestSessionHeader(t *testing.T) {
	c := setupTest(t, nil)

	w := c.do("POST", "/plan/toggle", "")
	expectStatus(t, w, http.StatusOK)
	first := c.session
	if first == "" {
		t.Fatal("no session ID returned")
	}

	w = c.do("GET", "/plan", "")
	if out := decodeJSON(t, w); out["open"] != true {
		t.Errorf("open = %v, session state not kept", out["open"])
	}
	if c.session != first {
		t.Errorf("session changed from %s to %s", first, c.session)
	}

	// A fresh client gets a fresh planner
	other := &testClient{t: t, handler: c.handler}
	w = other.do("GET", "/plan", "")
	if out := decodeJSON(t, w); out["open"] != false {
		t.Errorf("new session open = %v, want false", out["open"])
	}
	if other.session == first {
		t.Error("new client reused existing session")
	}
}

func TestHistoryRoutes(t *testing.T) {
	c := setupTest(t, nil)

	w := c.do("POST", "/history", `{"id":"c1","type":"course","name":"Calculus","href":"/courses/c1","ects":6}`)
	expectStatus(t, w, http.StatusOK)

	w = c.do("POST", "/history", `{"id":"p1","type":"program","name":"CS BSc"}`)
	expectStatus(t, w, http.StatusOK)
	out := decodeJSON(t, w)
	if out["count"].(float64) != 2 {
		t.Fatalf("count = %v, want 2", out["count"])
	}

	// History is shared between sessions
	other := &testClient{t: t, handler: c.handler}
	w = other.do("GET", "/history", "")
	out = decodeJSON(t, w)
	items := out["items"].([]any)
	if len(items) != 2 || items[0].(map[string]any)["id"] != "p1" {
		t.Errorf("items = %v", items)
	}

	w = c.do("DELETE", "/history/program/p1", "")
	expectStatus(t, w, http.StatusOK)
	if out := decodeJSON(t, w); out["count"].(float64) != 1 {
		t.Errorf("count after remove = %v", out["count"])
	}

	w = c.do("DELETE", "/history/instructor/p1", "")
	expectErrorCode(t, w, http.StatusBadRequest, "INVALID_REQUEST")

	w = c.do("POST", "/history", `{"id":"c1","type":"course"`)
	expectErrorCode(t, w, http.StatusBadRequest, "INVALID_REQUEST")

	w = c.do("DELETE", "/history", "")
	expectStatus(t, w, http.StatusOK)
	w = c.do("GET", "/history", "")
	if out := decodeJSON(t, w); out["count"].(float64) != 0 {
		t.Errorf("count after clear = %v", out["count"])
	}
}

func TestPlanRoutes(t *testing.T) {
	c := setupTest(t, nil)

	w := c.do("POST", "/plan/parse", `{"content":"no plan here"}`)
	expectErrorCode(t, w, http.StatusNotFound, "PLAN_NOT_FOUND")

	w = c.do("POST", "/plan/parse", `{"content":"<!--SEMESTER_PLAN:{bad-->"}`)
	expectErrorCode(t, w, 422, "PLAN_MALFORMED")

	content := `Here: <!--SEMESTER_PLAN:{\"winter\":[{\"id_course\":\"C1\"}]}-->`
	w = c.do("POST", "/plan/parse", `{"content":"`+content+`","apply":true}`)
	expectStatus(t, w, http.StatusOK)

	w = c.do("POST", "/plan/summer/courses", `{"id_course":"S1","name":"Stats","ects":4}`)
	expectStatus(t, w, http.StatusOK)
	if out := decodeJSON(t, w); out["outcome"] != "added" {
		t.Errorf("outcome = %v", out["outcome"])
	}

	w = c.do("POST", "/plan/summer/courses", `{"id_course":"S1"}`)
	if out := decodeJSON(t, w); out["outcome"] != "duplicate" {
		t.Errorf("outcome = %v, want duplicate", out["outcome"])
	}

	w = c.do("POST", "/plan/autumn/courses", `{"id_course":"S2"}`)
	expectErrorCode(t, w, http.StatusBadRequest, "INVALID_REQUEST")

	w = c.do("POST", "/plan/summer/courses", "")
	expectErrorCode(t, w, http.StatusBadRequest, "INVALID_REQUEST")

	w = c.do("DELETE", "/plan/winter/courses/C1", "")
	if out := decodeJSON(t, w); out["outcome"] != "removed" {
		t.Errorf("outcome = %v, want removed", out["outcome"])
	}

	w = c.do("GET", "/plan", "")
	out := decodeJSON(t, w)
	plan := out["plan"].(map[string]any)
	if len(plan["winter"].([]any)) != 0 || len(plan["summer"].([]any)) != 1 {
		t.Errorf("plan = %v", plan)
	}
	if out["credits"].(map[string]any)["summer"].(float64) != 4 {
		t.Errorf("credits = %v", out["credits"])
	}

	w = c.do("PUT", "/plan", `{"title":"Fresh","winter":[{"id_course":"W9"}]}`)
	expectStatus(t, w, http.StatusOK)
	out = decodeJSON(t, w)
	if out["plan"].(map[string]any)["title"] != "Fresh" {
		t.Errorf("plan = %v", out["plan"])
	}

	w = c.do("DELETE", "/plan", "")
	expectStatus(t, w, http.StatusOK)
	out = decodeJSON(t, w)
	if out["plan"] != nil || out["open"] != true {
		t.Errorf("after clear = %v", out)
	}
}

func TestExclusiveTermsConflict(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	hist := history.NewStore(storage.NewSQLiteStore(database), history.WithLogger(logging.Discard()))
	mgr := session.NewManager(hist, session.WithExclusiveTerms(true), session.WithLogger(logging.Discard()))
	c := &testClient{t: t, handler: NewServer(mgr, nil, logging.Discard(), "test", "127.0.0.1", 0).Handler}

	expectStatus(t, c.do("POST", "/plan/winter/courses", `{"id_course":"X"}`), http.StatusOK)
	expectErrorCode(t, c.do("POST", "/plan/summer/courses", `{"id_course":"X"}`), http.StatusConflict, "CONFLICT")
}

func TestSelectionRoutes(t *testing.T) {
	c := setupTest(t, nil)

	w := c.do("POST", "/selection/labs/L1", "")
	expectStatus(t, w, http.StatusOK)
	if out := decodeJSON(t, w); out["selected"] != true {
		t.Errorf("selected = %v", out["selected"])
	}

	w = c.do("POST", "/selection/courses/C1", "")
	expectStatus(t, w, http.StatusOK)

	w = c.do("POST", "/selection/labs/L1", "")
	if out := decodeJSON(t, w); out["selected"] != false {
		t.Errorf("second toggle selected = %v", out["selected"])
	}

	w = c.do("POST", "/selection/rooms/R1", "")
	expectErrorCode(t, w, http.StatusBadRequest, "INVALID_REQUEST")

	w = c.do("GET", "/selection", "")
	out := decodeJSON(t, w)
	if out["count"].(float64) != 1 {
		t.Errorf("count = %v, want 1", out["count"])
	}

	w = c.do("DELETE", "/selection", "")
	expectStatus(t, w, http.StatusOK)
	w = c.do("GET", "/selection", "")
	if out := decodeJSON(t, w); out["count"].(float64) != 0 {
		t.Errorf("count after clear = %v", out["count"])
	}
}

func TestRenderRoute(t *testing.T) {
	c := setupTest(t, nil)

	w := c.do("POST", "/responses/render", `{"content":"## Plan\n<!--SEMESTER_PLAN:{}-->"}`)
	expectStatus(t, w, http.StatusOK)
	out := decodeJSON(t, w)
	if !strings.Contains(out["html"].(string), "<h2>Plan</h2>") {
		t.Errorf("html = %v", out["html"])
	}
	if strings.Contains(out["html"].(string), "SEMESTER_PLAN") {
		t.Error("marker leaked into html")
	}
	if out["plan"] == nil {
		t.Error("plan should be reported")
	}
	if w.Header().Get(SessionHeader) != "" {
		t.Error("render is stateless and should not start a session")
	}
}

func TestAdvisorRoute(t *testing.T) {
	c := setupTest(t, nil)
	w := c.do("POST", "/advisor/ask", `{"question":"hi"}`)
	if w.Code != http.StatusNotFound && w.Code != http.StatusMethodNotAllowed {
		t.Errorf("advisor route without remote: status = %d, want 404/405", w.Code)
	}

	mock := remote.NewMock().Reply(remote.ChatFunction, map[string]string{
		"content": "ok <!--SEMESTER_PLAN:{\"summer\":[{\"id_course\":\"Z\"}]}-->",
	})
	c = setupTest(t, mock)

	w = c.do("POST", "/advisor/ask", `{"question":"what now?","documents":[{"name":"a.txt","text":"likes chemistry"}]}`)
	expectStatus(t, w, http.StatusOK)
	out := decodeJSON(t, w)
	if out["plan"] == nil {
		t.Fatal("plan missing")
	}

	w = c.do("GET", "/plan", "")
	if out := decodeJSON(t, w); out["open"] != true {
		t.Error("planner should open after the advisor sends a plan")
	}
	if !strings.Contains(string(mock.Calls()[0].Payload), "likes chemistry") {
		t.Error("document text not forwarded")
	}

	w = c.do("POST", "/advisor/ask", `{"question":"  "}`)
	expectErrorCode(t, w, http.StatusBadRequest, "INVALID_REQUEST")
}

func TestDecodeBody_TooLarge(t *testing.T) {
	c := setupTest(t, nil)

	big := `{"content":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	w := c.do("POST", "/responses/render", big)
	expectErrorCode(t, w, http.StatusBadRequest, "INVALID_REQUEST")
}

func TestRequestsWithoutSessionAreBounded(t *testing.T) {
	hist := history.NewStore(storage.NewMemoryStore(0), history.WithLogger(logging.Discard()))
	mgr := session.NewManager(hist, session.WithMaxSessions(3), session.WithLogger(logging.Discard()))
	handler := NewServer(mgr, nil, logging.Discard(), "test", "127.0.0.1", 0).Handler

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/selection", nil))
		expectStatus(t, w, http.StatusOK)
	}
	if mgr.Len() != 3 {
		t.Errorf("live sessions = %d, want 3", mgr.Len())
	}
}
