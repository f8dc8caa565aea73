package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rl-dashboard/src/logger"
	"rl-dashboard/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------

func testServer(t *testing.T) (*SimServer, *httptest.Server) {
	t.Helper()

	cfg := &models.MConfig{
		LogLevel: "ERROR",
		Simulator: models.MSimulatorConfig{
			PortfolioID: "pf-1",
			AgentRunID:  "run-1",
			Symbols:     []string{"AAPL"},
		},
	}

	srv := NewSimServer(cfg, logger.NewLogger("ERROR", "test"))
	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)
	t.Cleanup(srv.Stop)
	return srv, ts
}

// -----------------------------------------------------------------------------

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// -----------------------------------------------------------------------------

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}

	var frame map[string]interface{}
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatal(err)
	}
	return frame
}

// -----------------------------------------------------------------------------

func sendControl(t *testing.T, conn *websocket.Conn, frameType, channel string) {
	t.Helper()
	if err := conn.WriteJSON(models.MControlFrame{Type: frameType, Channel: channel}); err != nil {
		t.Fatal(err)
	}
}

// -----------------------------------------------------------------------------

func TestSubscribeAckAndBroadcast(t *testing.T) {
	srv, ts := testServer(t)
	conn := dialWS(t, ts)

	sendControl(t, conn, models.MsgSubscribe, "agent_stats:run-1")
	ack := readFrame(t, conn)
	if ack["type"] != models.MsgSubscribed || ack["channel"] != "agent_stats:run-1" {
		t.Fatalf("ack = %v", ack)
	}

	srv.Broadcast("agent_stats:run-1", map[string]interface{}{
		"type":         models.MsgAgentMetric,
		"agent_run_id": "run-1",
		"metric":       map[string]interface{}{"step": 1},
	})

	frame := readFrame(t, conn)
	if frame["type"] != models.MsgAgentMetric {
		t.Errorf("frame = %v", frame)
	}
}

// -----------------------------------------------------------------------------

func TestBroadcastRespectsMembership(t *testing.T) {
	srv, ts := testServer(t)

	subscriber := dialWS(t, ts)
	bystander := dialWS(t, ts)

	sendControl(t, subscriber, models.MsgSubscribe, "market_data:AAPL")
	readFrame(t, subscriber) // ack
	sendControl(t, bystander, models.MsgSubscribe, "market_data:MSFT")
	readFrame(t, bystander) // ack

	srv.Broadcast("market_data:AAPL", map[string]interface{}{
		"type": models.MsgMarketData, "ticker": "AAPL",
	})

	frame := readFrame(t, subscriber)
	if frame["ticker"] != "AAPL" {
		t.Errorf("subscriber frame = %v", frame)
	}

	// The bystander must stay silent.
	bystander.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	if _, raw, err := bystander.ReadMessage(); err == nil {
		t.Errorf("bystander received %s", raw)
	}
}

// -----------------------------------------------------------------------------

func TestUnsubscribeStopsDelivery(t *testing.T) {
	srv, ts := testServer(t)
	conn := dialWS(t, ts)

	sendControl(t, conn, models.MsgSubscribe, "trade_executed:pf-1")
	readFrame(t, conn) // ack
	sendControl(t, conn, models.MsgUnsubscribe, "trade_executed:pf-1")
	ack := readFrame(t, conn)
	if ack["type"] != models.MsgUnsubscribed {
		t.Fatalf("ack = %v", ack)
	}

	srv.Broadcast("trade_executed:pf-1", map[string]interface{}{"type": models.MsgTradeExecuted})

	conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	if _, raw, err := conn.ReadMessage(); err == nil {
		t.Errorf("received after unsubscribe: %s", raw)
	}
}

// -----------------------------------------------------------------------------

func TestPingPong(t *testing.T) {
	_, ts := testServer(t)
	conn := dialWS(t, ts)

	sendControl(t, conn, models.MsgPing, "")
	frame := readFrame(t, conn)
	if frame["type"] != models.MsgPong {
		t.Errorf("frame = %v", frame)
	}
}

// -----------------------------------------------------------------------------

func TestMalformedClientFrameIgnored(t *testing.T) {
	_, ts := testServer(t)
	conn := dialWS(t, ts)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{broken`)); err != nil {
		t.Fatal(err)
	}

	// Connection survives; a ping still gets its pong.
	sendControl(t, conn, models.MsgPing, "")
	frame := readFrame(t, conn)
	if frame["type"] != models.MsgPong {
		t.Errorf("frame = %v", frame)
	}
}

// -----------------------------------------------------------------------------

func TestHubDiscardsCommandsFromDroppedClient(t *testing.T) {
	// A client's last frames can still sit in the command queue when the hub
	// processes its unregister. Those commands must be discarded: replying
	// into the closed send queue, or re-adding the dead client to a channel,
	// would kill the hub loop.
	srv, _ := testServer(t)

	dead := &Client{hub: srv, send: make(chan []byte, 8)}
	srv.register <- dead
	srv.unregister <- dead

	// The drop is visible once the hub closes the send queue.
	select {
	case _, ok := <-dead.send:
		if ok {
			t.Fatal("unexpected frame before drop")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("client not dropped")
	}

	srv.commands <- &clientCommand{client: dead, raw: []byte(`{"type":"ping"}`)}
	srv.commands <- &clientCommand{client: dead, raw: []byte(`{"type":"subscribe","channel":"agent_stats:run-1"}`)}

	// The hub survives: a live client on the same channel still gets its
	// ack and the broadcast.
	live := &Client{hub: srv, send: make(chan []byte, 8)}
	srv.register <- live
	srv.commands <- &clientCommand{client: live, raw: []byte(`{"type":"subscribe","channel":"agent_stats:run-1"}`)}

	select {
	case raw := <-live.send:
		var ack models.MControlFrame
		if err := json.Unmarshal(raw, &ack); err != nil {
			t.Fatal(err)
		}
		if ack.Type != models.MsgSubscribed {
			t.Fatalf("ack = %+v", ack)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("hub loop did not survive dropped-client commands")
	}

	// If the dead subscribe had been honored, this fan-out would hit its
	// closed send queue.
	srv.Broadcast("agent_stats:run-1", map[string]interface{}{"type": models.MsgAgentMetric})

	select {
	case <-live.send:
	case <-time.After(3 * time.Second):
		t.Fatal("broadcast not delivered after dropped-client commands")
	}
}

// -----------------------------------------------------------------------------

func TestAgentStatsEndpoint(t *testing.T) {
	srv, ts := testServer(t)

	srv.RecordMetric("run-1", models.MAgentMetric{
		Step:             1,
		CumulativeReward: 5,
		PortfolioNAV:     100000,
	})
	srv.RecordMetric("run-1", models.MAgentMetric{
		Step:             2,
		CumulativeReward: 8,
		PortfolioNAV:     100100,
	})

	resp, err := http.Get(ts.URL + "/api/v1/agent/run-1/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var stats models.MAgentStats
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalMetrics != 2 || stats.AgentRun.ID != "run-1" {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Metrics[1].CumulativeReward.Float64() != 8 {
		t.Errorf("metric = %+v", stats.Metrics[1])
	}

	// Unknown runs are a 404
	resp2, err := http.Get(ts.URL + "/api/v1/agent/ghost/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("ghost status = %d", resp2.StatusCode)
	}
}

// -----------------------------------------------------------------------------

func TestSimulatorTickPublishes(t *testing.T) {
	srv, ts := testServer(t)
	conn := dialWS(t, ts)

	sendControl(t, conn, models.MsgSubscribe, "agent_stats:run-1")
	readFrame(t, conn) // ack

	sim := NewSimulator(srv, srv.Config, logger.NewLogger("ERROR", "test"))
	sim.Tick()

	frame := readFrame(t, conn)
	if frame["type"] != models.MsgAgentMetric || frame["agent_run_id"] != "run-1" {
		t.Errorf("frame = %v", frame)
	}

	// The tick also lands in the stored history behind the REST endpoint.
	resp, err := http.Get(ts.URL + "/api/v1/agent/run-1/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("stats status = %d", resp.StatusCode)
	}
}
