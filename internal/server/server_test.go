package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"docketline/internal/config"
	"docketline/internal/db"
	"docketline/internal/domain"
	"docketline/internal/engine"
	"docketline/internal/migrate"
)

const testJWTSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
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
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("District Court"))
	e.Now = func() time.Time { return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) }
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: AuthConfig{JWTSecret: testJWTSecret}})
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
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func signToken(t *testing.T, subject string, roles ...string) string {
	t.Helper()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
		Roles:            roles,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func registrarHeaders(t *testing.T) map[string]string {
	return map[string]string{"Authorization": "Bearer " + signToken(t, "registrar-1", RoleRegistrar)}
}

func readerHeaders(t *testing.T) map[string]string {
	return map[string]string{"Authorization": "Bearer " + signToken(t, "clerk-1")}
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

func TestHealthUnauthenticated(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", res.StatusCode)
	}
}

func TestCaseLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	createRes, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/cases", map[string]any{
		"title":              "Sharma v. State",
		"type":               "Civil",
		"filing_date":        "2016-01-01",
		"urgency_score":      8,
		"has_senior_citizen": true,
		"claim_amount":       100000,
	}, registrarHeaders(t))
	if createRes.StatusCode != http.StatusCreated {
		t.Fatalf("create case status %d: %s", createRes.StatusCode, string(data))
	}
	var created domain.Case
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal case: %v", err)
	}
	if created.PriorityScore != 74.0 {
		t.Fatalf("priority score = %v, want 74.0", created.PriorityScore)
	}
	if !created.ADREligible {
		t.Fatalf("expected ADR eligible")
	}

	detailRes, detailBody := doJSON(t, client, http.MethodGet, srv.URL+"/v0/cases/"+created.ID, nil, readerHeaders(t))
	if detailRes.StatusCode != http.StatusOK {
		t.Fatalf("get case status %d: %s", detailRes.StatusCode, string(detailBody))
	}
	var detail CaseDetailResponse
	if err := json.Unmarshal(detailBody, &detail); err != nil {
		t.Fatalf("unmarshal detail: %v", err)
	}
	if detail.Insights.ADR.Track != "mediation" {
		t.Fatalf("adr track = %s, want mediation", detail.Insights.ADR.Track)
	}
	if detail.Insights.Resolution.PredictedDays != 365 {
		t.Fatalf("predicted days = %d, want 365", detail.Insights.Resolution.PredictedDays)
	}

	adjRes, adjBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/cases/"+created.ID+"/adjourn", map[string]any{
		"reason": "counsel unavailable",
	}, registrarHeaders(t))
	if adjRes.StatusCode != http.StatusOK {
		t.Fatalf("adjourn status %d: %s", adjRes.StatusCode, string(adjBody))
	}
	var adjourned domain.Case
	_ = json.Unmarshal(adjBody, &adjourned)
	if adjourned.AdjournmentCount != 1 || adjourned.Status != domain.CasePending {
		t.Fatalf("adjourned case = %+v", adjourned)
	}

	dispRes, dispBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/cases/"+created.ID+"/dispose", map[string]any{
		"outcome": "settled",
	}, registrarHeaders(t))
	if dispRes.StatusCode != http.StatusOK {
		t.Fatalf("dispose status %d: %s", dispRes.StatusCode, string(dispBody))
	}
	againRes, _ := doJSON(t, client, http.MethodPost, srv.URL+"/v0/cases/"+created.ID+"/dispose", map[string]any{}, registrarHeaders(t))
	if againRes.StatusCode != http.StatusConflict {
		t.Fatalf("second dispose status %d, want 409", againRes.StatusCode)
	}
}

func TestMutatingOpsRequireRegistrar(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, _ := doJSON(t, client, http.MethodPost, srv.URL+"/v0/cases", map[string]any{
		"title": "x", "type": "Civil", "filing_date": "2024-01-01",
	}, readerHeaders(t))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("create without registrar role: status %d, want 403", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodPost, srv.URL+"/v0/schedule/auto", map[string]any{}, readerHeaders(t))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("schedule without registrar role: status %d, want 403", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/cases", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: status %d, want 401", res.StatusCode)
	}
}

func TestInsightEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	headers := readerHeaders(t)

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/insights/priority", map[string]any{
		"filing_age_years":   10,
		"urgency_score":      8,
		"adjournment_count":  6,
		"has_senior_citizen": true,
	}, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("priority insight status %d: %s", res.StatusCode, string(body))
	}
	var scored struct {
		Score float64 `json:"score"`
		Tier  string  `json:"tier"`
	}
	_ = json.Unmarshal(body, &scored)
	if scored.Score != 92.0 || scored.Tier != "CRITICAL" {
		t.Fatalf("priority insight = %+v, want 92.0 CRITICAL", scored)
	}

	res, _ = doJSON(t, client, http.MethodPost, srv.URL+"/v0/insights/priority", map[string]any{
		"filing_age_years": -1,
	}, headers)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid priority insight status %d, want 400", res.StatusCode)
	}

	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/v0/insights/adr", map[string]any{
		"type": "Criminal",
	}, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("adr insight status %d: %s", res.StatusCode, string(body))
	}
	var adrOut struct {
		Eligible bool `json:"eligible"`
	}
	_ = json.Unmarshal(body, &adrOut)
	if adrOut.Eligible {
		t.Fatalf("criminal case should not be ADR eligible")
	}

	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/v0/insights/no-show", map[string]any{
		"absence_rate":    0.5,
		"recent_no_shows": 0,
	}, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("no-show insight status %d: %s", res.StatusCode, string(body))
	}
	var noShow struct {
		Probability float64 `json:"probability"`
		RiskLevel   string  `json:"risk_level"`
	}
	_ = json.Unmarshal(body, &noShow)
	if noShow.RiskLevel != "MEDIUM" {
		t.Fatalf("no-show risk = %+v, want MEDIUM", noShow)
	}
}

func TestAutoScheduleAndDashboard(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	for _, title := range []string{"A", "B", "C"} {
		res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/cases", map[string]any{
			"title":       title,
			"type":        "Civil",
			"filing_date": "2022-06-01",
		}, registrarHeaders(t))
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("create %s status %d: %s", title, res.StatusCode, string(body))
		}
	}

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/schedule/auto", map[string]any{}, registrarHeaders(t))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("auto schedule status %d: %s", res.StatusCode, string(body))
	}
	var sched AutoScheduleResponse
	if err := json.Unmarshal(body, &sched); err != nil {
		t.Fatalf("unmarshal schedule: %v", err)
	}
	if sched.ScheduledCount != 3 {
		t.Fatalf("scheduled %d, want 3", sched.ScheduledCount)
	}
	for _, h := range sched.Hearings {
		if h.Date != "2026-03-03" {
			t.Fatalf("hearing date %s, want 2026-03-03", h.Date)
		}
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/v0/hearings", nil, readerHeaders(t))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list hearings status %d: %s", res.StatusCode, string(body))
	}
	var hearings HearingListResponse
	_ = json.Unmarshal(body, &hearings)
	if hearings.Count != 3 {
		t.Fatalf("hearing count %d, want 3", hearings.Count)
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/v0/dashboard/stats", nil, readerHeaders(t))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stats status %d: %s", res.StatusCode, string(body))
	}
	var stats struct {
		TotalCases   int `json:"total_cases"`
		PendingCases int `json:"pending_cases"`
	}
	_ = json.Unmarshal(body, &stats)
	if stats.TotalCases != 3 || stats.PendingCases != 0 {
		t.Fatalf("stats = %+v, want 3 total, 0 pending", stats)
	}
}

func TestListCasesPriorityOrder(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	low, _ := doJSON(t, client, http.MethodPost, srv.URL+"/v0/cases", map[string]any{
		"title": "Low", "type": "Civil", "filing_date": "2025-06-01", "urgency_score": 2,
	}, registrarHeaders(t))
	if low.StatusCode != http.StatusCreated {
		t.Fatalf("create low status %d", low.StatusCode)
	}
	high, _ := doJSON(t, client, http.MethodPost, srv.URL+"/v0/cases", map[string]any{
		"title": "High", "type": "Civil", "filing_date": "2015-06-01", "urgency_score": 9, "health_emergency": true,
	}, registrarHeaders(t))
	if high.StatusCode != http.StatusCreated {
		t.Fatalf("create high status %d", high.StatusCode)
	}

	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/v0/cases", nil, readerHeaders(t))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(body))
	}
	var list CaseListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if list.Count != 2 || list.Items[0].Title != "High" {
		t.Fatalf("expected High first, got %+v", list.Items)
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/v0/cases/search?q=Low", nil, readerHeaders(t))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("search status %d: %s", res.StatusCode, string(body))
	}
	_ = json.Unmarshal(body, &list)
	if list.Count != 1 || list.Items[0].Title != "Low" {
		t.Fatalf("search expected Low, got %+v", list.Items)
	}
}
