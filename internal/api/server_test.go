package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-climate/internal/audit"
	"github.com/nerrad567/gray-logic-climate/internal/climate/climatetest"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-climate/internal/ingest"
	"github.com/nerrad567/gray-logic-climate/internal/snapshot"
	_ "github.com/nerrad567/gray-logic-climate/migrations"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}
}

// testEnv is a server wired to a real pipeline over a temp-dir SQLite.
type testEnv struct {
	srv       *Server
	router    http.Handler
	snapshots *snapshot.SQLiteRepository
	audit     *audit.SQLiteRepository
	registry  *prometheus.Registry
}

type envOption func(*Deps)

func withSecret(secret string) envOption {
	return func(d *Deps) { d.Security.JWT.Secret = secret }
}

func withPort(port int) envOption {
	return func(d *Deps) { d.Config.Port = port }
}

func withIngester(in Ingester) envOption {
	return func(d *Deps) { d.Ingester = in }
}

func withCheck(name string, hc HealthChecker) envOption {
	return func(d *Deps) {
		if d.Checks == nil {
			d.Checks = make(map[string]HealthChecker)
		}
		d.Checks[name] = hc
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "api.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	env := &testEnv{
		snapshots: snapshot.NewSQLiteRepository(db.DB),
		audit:     audit.NewSQLiteRepository(db.DB),
		registry:  prometheus.NewRegistry(),
	}
	log := testLogger()
	hub := NewHub(testWSConfig(), log)

	pipeline := ingest.New(config.IngestConfig{Retry: config.RetryConfig{MaxAttempts: 1}}, ingest.Deps{
		Store:     env.snapshots,
		Publisher: NewHubPublisher(hub),
		Auditor:   env.audit,
		Metrics:   ingest.NewMetrics(env.registry),
	})

	deps := Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS:        testWSConfig(),
		Metrics:   config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Logger:    log,
		Snapshots: env.snapshots,
		Audit:     env.audit,
		Ingester:  pipeline,
		Gatherer:  env.registry,
		Hub:       hub,
		Version:   "test",
	}
	for _, opt := range opts {
		opt(&deps)
	}

	env.srv, err = New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	env.router = env.srv.Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return resp
}

// ingestBundle posts a fixture bundle and fails unless it was accepted.
func (e *testEnv) ingestBundle(t *testing.T, systemID string, devices ...string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/ingest", string(climatetest.BundleJSON(systemID, devices...)))
	if w.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}
}

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

type stubIngester struct {
	err error
}

func (s stubIngester) Ingest(context.Context, ingest.Source, []byte) (*ingest.Result, error) {
	return nil, s.err
}

// ─── Construction ──────────────────────────────────────────────────

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: testLogger()}); err == nil {
		t.Error("New() without snapshot reader should fail")
	}
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := newTestEnv(t, withCheck("database", checkFunc(func(context.Context) error { return nil })))

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	resp := decodeBody(t, w)
	if resp["status"] != "ok" || resp["version"] != "test" {
		t.Errorf("health = %v", resp)
	}
	components := resp["components"].(map[string]any)
	if components["database"] != "ok" {
		t.Errorf("components = %v", components)
	}
}

func TestHealth_Degraded(t *testing.T) {
	env := newTestEnv(t,
		withCheck("database", checkFunc(func(context.Context) error { return nil })),
		withCheck("mqtt", checkFunc(func(context.Context) error { return errors.New("mqtt: not connected") })),
	)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	resp := decodeBody(t, w)
	if resp["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", resp["status"])
	}
	if got := resp["components"].(map[string]any)["mqtt"]; got != "mqtt: not connected" {
		t.Errorf("mqtt component = %v", got)
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "", "X-Request-ID", "client-123")
	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodOptions, "/api/v1/health", "", "Origin", "http://localhost:3000")
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Config.CORS.AllowedOrigins = []string{"https://panel.local"}
	})

	w := env.do(t, http.MethodGet, "/api/v1/health", "", "Origin", "https://evil.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("ACAO = %q, want empty", got)
	}
}

func TestRecovery(t *testing.T) {
	env := newTestEnv(t)
	handler := env.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/nonexistent", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestJoinOrDefault(t *testing.T) {
	if got := joinOrDefault(nil, "GET"); got != "GET" {
		t.Errorf("joinOrDefault(nil) = %q", got)
	}
	if got := joinOrDefault([]string{"GET", "POST"}, "x"); got != "GET, POST" {
		t.Errorf("joinOrDefault() = %q", got)
	}
}

// ─── System Read Tests ─────────────────────────────────────────────

func TestListSystems_Empty(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/systems", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeBody(t, w)
	if int(resp["count"].(float64)) != 0 {
		t.Errorf("count = %v, want 0", resp["count"])
	}
	if systems, ok := resp["systems"].([]any); !ok || len(systems) != 0 {
		t.Errorf("systems = %v, want empty array", resp["systems"])
	}
}

func TestIngestAndReadSystem(t *testing.T) {
	env := newTestEnv(t)
	env.ingestBundle(t, "sys-7f3a", "dev-1")

	w := env.do(t, http.MethodGet, "/api/v1/systems", "")
	resp := decodeBody(t, w)
	if int(resp["count"].(float64)) != 1 {
		t.Fatalf("count = %v, want 1", resp["count"])
	}

	w = env.do(t, http.MethodGet, "/api/v1/systems/sys-7f3a", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp = decodeBody(t, w)
	if resp["system_id"] != "sys-7f3a" {
		t.Errorf("system_id = %v", resp["system_id"])
	}
	if _, ok := resp["system"].(map[string]any); !ok {
		t.Errorf("system = %v, want object", resp["system"])
	}
}

func TestGetSystem_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/systems/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if resp := decodeBody(t, w); resp["code"] != ErrCodeNotFound {
		t.Errorf("code = %v, want %s", resp["code"], ErrCodeNotFound)
	}
}

func TestSystemHistory(t *testing.T) {
	env := newTestEnv(t)
	env.ingestBundle(t, "sys-7f3a")
	env.ingestBundle(t, "sys-7f3a")
	env.ingestBundle(t, "sys-7f3a")

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCount int
	}{
		{"default limit", "", http.StatusOK, 3},
		{"limit", "?limit=2", http.StatusOK, 2},
		{"limit above max", "?limit=10000", http.StatusOK, 3},
		{"zero limit", "?limit=0", http.StatusBadRequest, 0},
		{"non-numeric limit", "?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/v1/systems/sys-7f3a/history"+tt.query, "")
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			if got := int(decodeBody(t, w)["count"].(float64)); got != tt.wantCount {
				t.Errorf("count = %d, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestSystemHistory_Unknown(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/systems/missing/history", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestListZones(t *testing.T) {
	env := newTestEnv(t)
	env.ingestBundle(t, "sys-7f3a")

	w := env.do(t, http.MethodGet, "/api/v1/systems/sys-7f3a/zones", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	zones := resp["zones"].([]any)
	if len(zones) != 1 {
		t.Fatalf("len(zones) = %d, want 1", len(zones))
	}
	zone := zones[0].(map[string]any)
	if zone["name"] != "Living" || zone["system_id"] != "sys-7f3a" {
		t.Errorf("zone = %v", zone)
	}
	display := zone["display"].(map[string]any)
	if display["heating_state"] != "Heating Up" {
		t.Errorf("display = %v", display)
	}
}

func TestGetZone(t *testing.T) {
	env := newTestEnv(t)
	env.ingestBundle(t, "sys-7f3a")

	tests := []struct {
		name     string
		index    string
		wantCode int
	}{
		{"existing", "0", http.StatusOK},
		{"missing", "7", http.StatusNotFound},
		{"not a number", "living", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/v1/systems/sys-7f3a/zones/"+tt.index, "")
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}

	w := env.do(t, http.MethodGet, "/api/v1/systems/sys-7f3a/zones/0", "")
	resp := decodeBody(t, w)
	if resp["heating_operation_mode"] != "TIME_CONTROLLED" {
		t.Errorf("heating_operation_mode = %v", resp["heating_operation_mode"])
	}
	if resp["display"].(map[string]any)["heating_operation_mode"] != "Time Controlled" {
		t.Errorf("display = %v", resp["display"])
	}
}

func TestListZones_UnknownSystem(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/systems/missing/zones", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Ingest Tests ──────────────────────────────────────────────────

func TestIngest_Accepted(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/ingest", string(climatetest.BundleJSON("sys-7f3a", "dev-1", "dev-2")))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	resp := decodeBody(t, w)
	if resp["system_id"] != "sys-7f3a" || resp["snapshot_id"] == "" {
		t.Errorf("response = %v", resp)
	}
	if int(resp["devices"].(float64)) != 2 || int(resp["zones"].(float64)) != 1 {
		t.Errorf("counts = %v", resp)
	}
}

func TestIngest_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind string
	}{
		{"not json", `{"system":`, "invalid_bundle"},
		{"no system", `{"devices": []}`, "missing_structure"},
		{"system not object", `{"system": []}`, "type_mismatch"},
		{"missing status", `{"system": {"id": "sys-1"}}`, "missing_field"},
		{"missing control state", `{"system": {"id": "sys-1", "status": {}, "devices": [], "has_ownership": false}}`, "missing_structure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do(t, http.MethodPost, "/api/v1/ingest", tt.body)
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
			}
			resp := decodeBody(t, w)
			if resp["code"] != ErrCodeValidation || resp["kind"] != tt.wantKind {
				t.Errorf("error = %v, want kind %s", resp, tt.wantKind)
			}

			// A rejected bundle leaves no snapshot.
			systems, err := env.snapshots.Systems(context.Background())
			if err != nil {
				t.Fatalf("Systems() error = %v", err)
			}
			if len(systems) != 0 {
				t.Errorf("rejected bundle stored %d systems", len(systems))
			}
		})
	}
}

func TestIngest_StoreFailed(t *testing.T) {
	env := newTestEnv(t, withIngester(stubIngester{err: fmt.Errorf("%w: disk full", ingest.ErrStoreFailed)}))

	w := env.do(t, http.MethodPost, "/api/v1/ingest", string(climatetest.BundleJSON("sys-1")))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestIngest_NotConfigured(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Ingester = nil })

	w := env.do(t, http.MethodPost, "/api/v1/ingest", string(climatetest.BundleJSON("sys-1")))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestIngest_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t)

	body := `{"system": "` + strings.Repeat("x", maxRequestBodySize) + `"}`
	w := env.do(t, http.MethodPost, "/api/v1/ingest", body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
}

// ─── Auth Tests ────────────────────────────────────────────────────

func TestIngest_Auth(t *testing.T) {
	env := newTestEnv(t, withSecret(testSecret))
	body := string(climatetest.BundleJSON("sys-auth"))

	valid, err := SignToken(testSecret, "gateway-1", time.Minute)
	if err != nil {
		t.Fatalf("SignToken() error = %v", err)
	}
	wrongSecret, err := SignToken("another-secret-that-is-long-enough-too", "gateway-1", time.Minute)
	if err != nil {
		t.Fatalf("SignToken() error = %v", err)
	}
	expired, err := SignToken(testSecret, "gateway-1", -time.Minute)
	if err != nil {
		t.Fatalf("SignToken() error = %v", err)
	}

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic YWRtaW46YWRtaW4=", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + wrongSecret, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w *httptest.ResponseRecorder
			if tt.header == "" {
				w = env.do(t, http.MethodPost, "/api/v1/ingest", body)
			} else {
				w = env.do(t, http.MethodPost, "/api/v1/ingest", body, "Authorization", tt.header)
			}
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestParseToken_RejectsOtherMethods(t *testing.T) {
	// alg "none" is refused even though the claims are well formed.
	raw := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiJnYXRld2F5In0."
	if _, err := parseToken(raw, testSecret); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("parseToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestParseToken_Subject(t *testing.T) {
	signed, err := SignToken(testSecret, "gateway-7", time.Minute)
	if err != nil {
		t.Fatalf("SignToken() error = %v", err)
	}
	claims, err := parseToken(signed, testSecret)
	if err != nil {
		t.Fatalf("parseToken() error = %v", err)
	}
	if claims.Subject != "gateway-7" {
		t.Errorf("Subject = %q, want gateway-7", claims.Subject)
	}
}

func TestWSTicket_SingleUse(t *testing.T) {
	env := newTestEnv(t, withSecret(testSecret))
	token, err := SignToken(testSecret, "panel", time.Minute)
	if err != nil {
		t.Fatalf("SignToken() error = %v", err)
	}

	w := env.do(t, http.MethodPost, "/api/v1/auth/ws-ticket", "", "Authorization", "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	ticket, ok := decodeBody(t, w)["ticket"].(string)
	if !ok || ticket == "" {
		t.Fatal("expected ticket to be a non-empty string")
	}
	if !env.srv.tickets.consume(ticket) {
		t.Error("ticket should be valid on first use")
	}
	if env.srv.tickets.consume(ticket) {
		t.Error("ticket should not be valid on second use")
	}
}

func TestTicketStore_Expiry(t *testing.T) {
	store := newTicketStore()
	ticket := generateTicket()
	store.tickets[ticket] = time.Now().Add(-1 * time.Second)

	if store.consume(ticket) {
		t.Error("expired ticket should not be valid")
	}

	stale := generateTicket()
	store.tickets[stale] = time.Now().Add(-1 * time.Second)
	fresh := store.issue()
	store.cleanExpired()
	if _, ok := store.tickets[stale]; ok {
		t.Error("cleanExpired() kept an expired ticket")
	}
	if _, ok := store.tickets[fresh]; !ok {
		t.Error("cleanExpired() dropped a live ticket")
	}
}

// ─── Audit and Metrics Tests ───────────────────────────────────────

func TestListAudit(t *testing.T) {
	env := newTestEnv(t)
	env.ingestBundle(t, "sys-7f3a")
	env.do(t, http.MethodPost, "/api/v1/ingest", `{"devices": []}`)

	tests := []struct {
		name      string
		query     string
		wantTotal int
	}{
		{"all", "", 2},
		{"accepted", "?action=accepted", 1},
		{"rejected", "?action=rejected", 1},
		{"by system", "?system_id=sys-7f3a", 1},
		{"by source", "?source=mqtt", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/v1/audit"+tt.query, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
			}
			if got := int(decodeBody(t, w)["total"].(float64)); got != tt.wantTotal {
				t.Errorf("total = %d, want %d", got, tt.wantTotal)
			}
		})
	}
}

func TestListAudit_NotConfigured(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Audit = nil })

	w := env.do(t, http.MethodGet, "/api/v1/audit", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestPrometheusMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.ingestBundle(t, "sys-7f3a")

	w := env.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`climate_ingest_total{result="accepted"} 1`,
		`climate_outdoor_temperature_celsius{system_id="sys-7f3a"} 5.5`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestPrometheusMetrics_Disabled(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Metrics.Enabled = false })

	w := env.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestRuntimeMetrics(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var stats RuntimeStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stats.Version != "test" || stats.Runtime.Goroutines == 0 {
		t.Errorf("stats = %+v", stats)
	}
}

// ─── Lifecycle Tests ───────────────────────────────────────────────

func TestServer_StartAndClose(t *testing.T) {
	env := newTestEnv(t, withPort(19180))
	srv := env.srv

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start() should fail")
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	addr := "127.0.0.1:19180"
	resp, err := http.Get("http://" + addr + "/api/v1/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health check status = %d, want 200", resp.StatusCode)
	}
	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if _, err := http.Get("http://" + addr + "/api/v1/health"); err == nil {
		t.Error("server still responding after Close()")
	}
}

func TestServer_CloseWithoutStart(t *testing.T) {
	env := newTestEnv(t)
	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
