package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"hireline/internal/config"
	"hireline/internal/db"
	"hireline/internal/domain"
	"hireline/internal/engine"
	"hireline/internal/migrate"
	"hireline/internal/notify"
)

type testServer struct {
	URL    string
	hub    *notify.Hub
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default("test-org")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	hub := notify.NewHub()
	e := engine.New(conn, cfg, hub)
	ctx := context.Background()
	if _, err := e.CreateUser(ctx, domain.User{ID: "admin", FullName: "Admin", Role: domain.RoleAdmin}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if _, err := e.CreateUser(ctx, domain.User{ID: "int-1", FullName: "Interviewer One", Role: domain.RoleInterviewer}); err != nil {
		t.Fatalf("seed interviewer: %v", err)
	}
	if _, err := e.CreateVacancy(ctx, "vac-1", "Backend Engineer"); err != nil {
		t.Fatalf("seed vacancy: %v", err)
	}
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: AuthConfig{AllowLegacyActorHeader: true}, Hub: hub})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		hub:    hub,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			hub.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Id", "admin")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func createTestCandidate(t *testing.T, srv *testServer, id string) CandidateResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/candidates", map[string]any{
		"id":         id,
		"vacancy_id": "vac-1",
		"full_name":  "Ada Example",
		"chain": []map[string]string{
			{"stage_name": "HR Screen", "interviewer_id": "int-1"},
			{"stage_name": "Technical Interview", "interviewer_id": "int-1"},
		},
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create candidate status %d: %s", res.StatusCode, string(data))
	}
	var c CandidateResponse
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("unmarshal candidate: %v", err)
	}
	return c
}

func chainOf(t *testing.T, srv *testServer, candidateID string) []StageResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/candidates/"+candidateID+"/chain", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get chain status %d: %s", res.StatusCode, string(data))
	}
	var stages []StageResponse
	if err := json.Unmarshal(data, &stages); err != nil {
		t.Fatalf("unmarshal chain: %v", err)
	}
	return stages
}

func TestCandidateFlowOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	c := createTestCandidate(t, srv, "cand-1")
	stages := chainOf(t, srv, c.ID)
	if len(stages) != 2 || stages[0].Status != "pending" || stages[1].Status != "waiting" {
		t.Fatalf("unexpected chain: %+v", stages)
	}

	// Book and settle stage 0.
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/stages/"+stages[0].ID+"/interview", map[string]any{
		"scheduled_at": "2025-03-01T10:00:00Z",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("book status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/stages/"+stages[0].ID+"/outcome", map[string]any{
		"outcome":  "passed",
		"comments": "solid",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("outcome status %d: %s", res.StatusCode, string(data))
	}

	// Activate, book and settle the final stage.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/stages/"+stages[1].ID+"/activate", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("activate status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/stages/"+stages[1].ID+"/outcome", map[string]any{
		"outcome":  "passed",
		"comments": "hire",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("final outcome status %d: %s", res.StatusCode, string(data))
	}

	// Chain exhausted: the candidate is in documentation and can be hired.
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/candidates/"+c.ID, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get candidate status %d: %s", res.StatusCode, string(data))
	}
	var fetched CandidateResponse
	_ = json.Unmarshal(data, &fetched)
	if fetched.Status != "documentation" {
		t.Fatalf("expected documentation, got %s", fetched.Status)
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/candidates/"+c.ID+"/hire", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("hire status %d: %s", res.StatusCode, string(data))
	}
	var hired CandidateResponse
	_ = json.Unmarshal(data, &hired)
	if hired.Status != "hired" {
		t.Fatalf("expected hired, got %s", hired.Status)
	}
}

func TestBookingConflictOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	a := createTestCandidate(t, srv, "cand-a")
	b := createTestCandidate(t, srv, "cand-b")
	sa := chainOf(t, srv, a.ID)[0]
	sb := chainOf(t, srv, b.ID)[0]

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/stages/"+sa.ID+"/interview", map[string]any{
		"scheduled_at": "2025-03-01T10:00:00Z",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("first booking status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/stages/"+sb.ID+"/interview", map[string]any{
		"scheduled_at": "2025-03-01T10:15:00Z",
	}, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "slot_conflict" {
		t.Fatalf("expected slot_conflict code, got %s", envelope.Error.Code)
	}
}

func TestOutcomeValidationOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	c := createTestCandidate(t, srv, "cand-1")
	s := chainOf(t, srv, c.ID)[0]

	// Comments missing.
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/stages/"+s.ID+"/outcome", map[string]any{
		"outcome":  "passed",
		"comments": "",
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(data))
	}

	// Double outcome is a precondition failure.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/stages/"+s.ID+"/outcome", map[string]any{
		"outcome":  "failed",
		"comments": "no",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("fail outcome status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/stages/"+s.ID+"/outcome", map[string]any{
		"outcome":  "passed",
		"comments": "actually yes",
	}, nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", res.StatusCode, string(data))
	}
}

func TestPermissionsOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	// An interviewer cannot create candidates.
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/candidates", map[string]any{
		"vacancy_id": "vac-1",
		"full_name":  "Nope",
		"chain":      []map[string]string{{"stage_name": "Screen", "interviewer_id": "int-1"}},
	}, map[string]string{"X-Actor-Id": "int-1"})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", res.StatusCode, string(data))
	}

	// Unknown actors get nothing.
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/candidates", nil, map[string]string{"X-Actor-Id": "stranger"})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", res.StatusCode, string(data))
	}
}

func TestChainEditOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	c := createTestCandidate(t, srv, "cand-1")
	s := chainOf(t, srv, c.ID)[0]
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/stages/"+s.ID+"/outcome", map[string]any{
		"outcome":  "passed",
		"comments": "keeper",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("outcome status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/candidates/"+c.ID+"/chain", map[string]any{
		"chain": []map[string]string{
			{"stage_name": "Pair Programming", "interviewer_id": "int-1"},
		},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("chain update status %d: %s", res.StatusCode, string(data))
	}
	var stages []StageResponse
	_ = json.Unmarshal(data, &stages)
	if len(stages) != 1 || stages[0].StageName != "Pair Programming" {
		t.Fatalf("unexpected chain: %+v", stages)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/candidates/"+c.ID+"/history", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("history status %d: %s", res.StatusCode, string(data))
	}
	var history []StageHistoryResponse
	_ = json.Unmarshal(data, &history)
	if len(history) != 1 || history[0].Comments != "keeper" {
		t.Fatalf("expected archived feedback, got %+v", history)
	}
}

func TestNotificationStreamOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v0/notifications/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Actor-Id", "admin")
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stream status %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}

	// Emit until the subscriber registered by the handler picks one up.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				srv.hub.Emit(context.Background(), notify.Event{
					Type:        notify.TypeStageAdvanced,
					CandidateID: "cand-1",
				})
			}
		}
	}()

	scanner := bufio.NewScanner(res.Body)
	var payload string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			payload = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if payload == "" {
		t.Fatalf("no event received: %v", scanner.Err())
	}
	var evt notify.Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if evt.Type != notify.TypeStageAdvanced || evt.CandidateID != "cand-1" {
		t.Fatalf("unexpected event: %+v", evt)
	}
}

func TestNotificationStreamRequiresActor(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v0/notifications/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", res.StatusCode)
	}
}
