package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-climate/internal/climate/climatetest"
	"github.com/nerrad567/gray-logic-climate/internal/ingest"
)

// ─── WebSocket Hub Tests ───────────────────────────────────────────

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testWSConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return hub
}

func subscribedClient(hub *Hub, channels ...string) *WSClient {
	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	for _, ch := range channels {
		client.subscriptions[ch] = struct{}{}
	}
	hub.Register(client)
	return client
}

func receive(t *testing.T, client *WSClient) WSMessage {
	t.Helper()
	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return wsMsg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast message")
	}
	return WSMessage{}
}

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := newTestHub(t)
	client := subscribedClient(hub, ChannelSystemUpdated)

	hub.Broadcast(ChannelSystemUpdated, map[string]any{"system_id": "sys-1"})

	msg := receive(t, client)
	if msg.Type != WSTypeEvent || msg.EventType != ChannelSystemUpdated {
		t.Errorf("message = %+v", msg)
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	hub := newTestHub(t)
	client := subscribedClient(hub, ChannelIngestRejected)

	hub.Broadcast(ChannelSystemUpdated, map[string]any{"system_id": "sys-1"})

	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := newTestHub(t)

	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	client := subscribedClient(hub)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}

	// A second unregister must not close the channel twice.
	hub.Unregister(client)
}

func TestHubPublisher(t *testing.T) {
	hub := newTestHub(t)
	updates := subscribedClient(hub, ChannelSystemUpdated)
	rejections := subscribedClient(hub, ChannelIngestRejected)
	pub := NewHubPublisher(hub)

	sys := climatetest.System(t, "sys-7f3a")
	if err := pub.PublishSystem(context.Background(), sys); err != nil {
		t.Fatalf("PublishSystem() error = %v", err)
	}
	msg := receive(t, updates)
	payload, ok := msg.Payload.(map[string]any)
	if !ok || payload["id"] != "sys-7f3a" {
		t.Errorf("system payload = %v", msg.Payload)
	}

	rejection := ingest.Rejection{Source: ingest.SourceAPI, Kind: "missing_structure", Error: "no system", At: time.Now()}
	if err := pub.PublishRejection(context.Background(), rejection); err != nil {
		t.Fatalf("PublishRejection() error = %v", err)
	}
	msg = receive(t, rejections)
	if msg.EventType != ChannelIngestRejected || msg.Payload.(map[string]any)["kind"] != "missing_structure" {
		t.Errorf("rejection message = %+v", msg)
	}
}

func TestHubPublisher_Cancelled(t *testing.T) {
	pub := NewHubPublisher(newTestHub(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := pub.PublishSystem(ctx, climatetest.System(t, "sys-1")); !errors.Is(err, context.Canceled) {
		t.Errorf("PublishSystem() error = %v, want context.Canceled", err)
	}
	if err := pub.PublishRejection(ctx, ingest.Rejection{}); !errors.Is(err, context.Canceled) {
		t.Errorf("PublishRejection() error = %v, want context.Canceled", err)
	}
}

var _ ingest.Publisher = (*HubPublisher)(nil)

// ─── WebSocket Connection Tests ────────────────────────────────────

// testServerWithRealListener starts a server on port with a JWT secret set.
func testServerWithRealListener(t *testing.T, port int) (*Server, *testEnv, string) {
	t.Helper()
	env := newTestEnv(t, withPort(port), withSecret(testSecret))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := env.srv.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { env.srv.Close() }) //nolint:errcheck // Test cleanup

	time.Sleep(100 * time.Millisecond)
	return env.srv, env, "127.0.0.1:" + strconv.Itoa(port)
}

// connectWebSocket signs a token, exchanges it for a ticket, and connects.
func connectWebSocket(t *testing.T, addr string) *websocket.Conn {
	t.Helper()

	token, err := SignToken(testSecret, "panel", time.Minute)
	if err != nil {
		t.Fatalf("SignToken() error = %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, "http://"+addr+"/api/v1/auth/ws-ticket", nil)
	if err != nil {
		t.Fatalf("building ticket request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	ticketResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get ticket failed: %v", err)
	}
	defer ticketResp.Body.Close()

	var ticketResult struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(ticketResp.Body).Decode(&ticketResult); err != nil {
		t.Fatalf("decode ticket response: %v", err)
	}

	wsURL := "ws://" + addr + "/api/v1/ws?ticket=" + ticketResult.Ticket
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	t.Cleanup(func() { ws.Close() })

	return ws
}

func subscribe(t *testing.T, ws *websocket.Conn, channels ...string) WSMessage {
	t.Helper()
	if err := ws.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: channels},
	}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // Test deadline
	var resp WSMessage
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read subscribe response: %v", err)
	}
	return resp
}

func TestWebSocket_SubscribeUnsubscribe(t *testing.T) {
	srv, _, addr := testServerWithRealListener(t, 19181)
	ws := connectWebSocket(t, addr)

	resp := subscribe(t, ws, ChannelSystemUpdated, ChannelIngestRejected)
	if resp.Type != WSTypeResponse || resp.ID != "sub-1" {
		t.Errorf("subscribe response = %+v", resp)
	}
	if srv.hub.ClientCount() != 1 {
		t.Errorf("hub client count = %d, want 1", srv.hub.ClientCount())
	}

	if err := ws.WriteJSON(WSMessage{
		Type:    WSTypeUnsubscribe,
		ID:      "unsub-1",
		Payload: WSSubscribePayload{Channels: []string{ChannelIngestRejected}},
	}); err != nil {
		t.Fatalf("write unsubscribe: %v", err)
	}
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read unsubscribe response: %v", err)
	}
	if resp.Type != WSTypeResponse || resp.ID != "unsub-1" {
		t.Errorf("unsubscribe response = %+v", resp)
	}
}

func TestWebSocket_Messages(t *testing.T) {
	_, _, addr := testServerWithRealListener(t, 19182)
	ws := connectWebSocket(t, addr)

	tests := []struct {
		name     string
		send     []byte
		wantType string
	}{
		{"ping", []byte(`{"type":"ping","id":"ping-1"}`), WSTypePong},
		{"invalid json", []byte("not json"), WSTypeError},
		{"unknown type", []byte(`{"type":"unknown_type","id":"x"}`), WSTypeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ws.WriteMessage(websocket.TextMessage, tt.send); err != nil {
				t.Fatalf("write: %v", err)
			}
			ws.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // Test deadline
			var resp WSMessage
			if err := ws.ReadJSON(&resp); err != nil {
				t.Fatalf("read: %v", err)
			}
			if resp.Type != tt.wantType {
				t.Errorf("response type = %s, want %s", resp.Type, tt.wantType)
			}
		})
	}
}

func TestWebSocket_IngestBroadcast(t *testing.T) {
	_, env, addr := testServerWithRealListener(t, 19183)
	ws := connectWebSocket(t, addr)
	subscribe(t, ws, ChannelSystemUpdated, ChannelIngestRejected)

	token, err := SignToken(testSecret, "gateway", time.Minute)
	if err != nil {
		t.Fatalf("SignToken() error = %v", err)
	}

	w := env.do(t, http.MethodPost, "/api/v1/ingest", string(climatetest.BundleJSON("sys-ws")), "Authorization", "Bearer "+token)
	if w.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d; body: %s", w.Code, w.Body.String())
	}

	var msg WSMessage
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if msg.EventType != ChannelSystemUpdated {
		t.Errorf("event_type = %s, want %s", msg.EventType, ChannelSystemUpdated)
	}

	env.do(t, http.MethodPost, "/api/v1/ingest", `{"devices": []}`, "Authorization", "Bearer "+token)
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read rejection: %v", err)
	}
	if msg.EventType != ChannelIngestRejected {
		t.Errorf("event_type = %s, want %s", msg.EventType, ChannelIngestRejected)
	}
}

func TestWebSocket_TicketRequired(t *testing.T) {
	_, _, addr := testServerWithRealListener(t, 19184)

	for _, query := range []string{"", "?ticket=invalid-ticket"} {
		_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/v1/ws"+query, nil)
		if err == nil {
			t.Fatalf("dial %q: expected error", query)
		}
		if resp != nil && resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("dial %q: status = %d, want 401", query, resp.StatusCode)
		}
	}
}
