package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/railbot/internal/archive"
	"github.com/antoniostano/railbot/internal/config"
	"github.com/antoniostano/railbot/internal/observability"
	"github.com/antoniostano/railbot/internal/protocol"
	"github.com/antoniostano/railbot/internal/session"
)

func newTestServer(t *testing.T) (*Server, *session.Store, *archive.InMemoryStore) {
	t.Helper()
	cfg := config.Config{
		LivenessMessage: "🚂 Rizz Rail Bot is Online and Awake!",
		OpsFeedInterval: time.Hour,
	}
	sessions := session.NewStore(time.Hour)
	history := archive.NewInMemoryStore(10)
	metrics := observability.NewMetrics("test_httpapi_" + strings.ToLower(t.Name()))
	return New(cfg, sessions, history, metrics, nil), sessions, history
}

func TestLivenessRoute(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.LivenessRouter())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("Content-Type = %q, want text/plain", ct)
	}
	body, _ := io.ReadAll(res.Body)
	if string(body) != "🚂 Rizz Rail Bot is Online and Awake!" {
		t.Fatalf("body = %q", body)
	}
}

func TestLivenessHasNoOtherRoutes(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.LivenessRouter())
	defer ts.Close()

	for _, path := range []string{"/metrics", "/healthz", "/v1/sessions"} {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusNotFound {
			t.Fatalf("GET %s status = %d, want %d", path, res.StatusCode, http.StatusNotFound)
		}
	}

	res, err := http.Post(ts.URL+"/", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST / error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST / status = %d, want %d", res.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestOpsSessionRoutes(t *testing.T) {
	srv, sessions, _ := newTestServer(t)
	if _, err := sessions.Create(session.CreateParams{ID: "m-1", ChannelID: "c-1", Game: "Dead Rails", HostID: "u-1", Capacity: 3}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := sessions.Join("m-1", "u-2"); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	ts := httptest.NewServer(srv.OpsRouter())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/v1/sessions")
	if err != nil {
		t.Fatalf("list request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	var views []protocol.SessionView
	if err := json.NewDecoder(res.Body).Decode(&views); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(views) != 1 || views[0].ID != "m-1" || views[0].OpenSlots != 1 {
		t.Fatalf("views = %+v, want one session with 1 open slot", views)
	}

	getRes, err := http.Get(ts.URL + "/v1/sessions/m-1")
	if err != nil {
		t.Fatalf("get request error = %v", err)
	}
	getRes.Body.Close()
	if getRes.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want %d", getRes.StatusCode, http.StatusOK)
	}

	missing, err := http.Get(ts.URL + "/v1/sessions/nope")
	if err != nil {
		t.Fatalf("missing request error = %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing status = %d, want %d", missing.StatusCode, http.StatusNotFound)
	}

	health, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("health request error = %v", err)
	}
	defer health.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(health.Body).Decode(&body); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if body["active_sessions"] != float64(1) || body["history_mode"] != "in-memory" {
		t.Fatalf("health = %+v", body)
	}
}

func TestOpsHistoryRoute(t *testing.T) {
	srv, _, history := newTestServer(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		rec := archive.Record{SessionID: id, Game: "Dead Rails", Capacity: 2, ExpiredAt: time.Now()}
		if err := history.SaveExpired(ctx, rec); err != nil {
			t.Fatalf("SaveExpired() error = %v", err)
		}
	}

	ts := httptest.NewServer(srv.OpsRouter())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/v1/history?limit=2")
	if err != nil {
		t.Fatalf("history request error = %v", err)
	}
	defer res.Body.Close()
	var records []archive.Record
	if err := json.NewDecoder(res.Body).Decode(&records); err != nil {
		t.Fatalf("decode history response: %v", err)
	}
	if len(records) != 2 || records[0].SessionID != "c" {
		t.Fatalf("records = %+v, want newest two", records)
	}

	bad, err := http.Get(ts.URL + "/v1/history?limit=-3")
	if err != nil {
		t.Fatalf("bad history request error = %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d, want %d", bad.StatusCode, http.StatusBadRequest)
	}
}

func TestOpsMetricsRoute(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.OpsRouter())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}

func TestSessionFeedSnapshots(t *testing.T) {
	srv, sessions, _ := newTestServer(t)
	ts := httptest.NewServer(srv.OpsRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/sessions/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first protocol.SessionsSnapshot
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first snapshot: %v", err)
	}
	if first.Type != protocol.TypeSessionsSnapshot || len(first.Sessions) != 0 {
		t.Fatalf("first snapshot = %+v, want empty sessions_snapshot", first)
	}

	if _, err := sessions.Create(session.CreateParams{ID: "m-9", Game: "Dead Rails", HostID: "u-1", Capacity: 2}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := conn.WriteJSON(protocol.ClientControl{Type: protocol.TypeClientControl, Action: "refresh"}); err != nil {
		t.Fatalf("write refresh: %v", err)
	}
	var second protocol.SessionsSnapshot
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read refreshed snapshot: %v", err)
	}
	if len(second.Sessions) != 1 || second.Sessions[0].ID != "m-9" {
		t.Fatalf("refreshed snapshot = %+v, want session m-9", second)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)); err != nil {
		t.Fatalf("write bogus: %v", err)
	}
	var errEvent protocol.ErrorEvent
	if err := conn.ReadJSON(&errEvent); err != nil {
		t.Fatalf("read error event: %v", err)
	}
	if errEvent.Type != protocol.TypeErrorEvent || errEvent.Code != "invalid_client_message" {
		t.Fatalf("error event = %+v", errEvent)
	}
}
