package realtime

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"rl-dashboard/src/logger"
	"rl-dashboard/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Test backend: accepts socket connections, records inbound control frames
// and lets tests push frames or kill connections.
// -----------------------------------------------------------------------------

type wsTestServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	frames chan models.MControlFrame
	conns  chan *websocket.Conn

	mu   sync.Mutex
	open []*websocket.Conn
}

// -----------------------------------------------------------------------------

func newWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()

	ts := &wsTestServer{
		frames: make(chan models.MControlFrame, 64),
		conns:  make(chan *websocket.Conn, 8),
	}

	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ts.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		ts.mu.Lock()
		ts.open = append(ts.open, conn)
		ts.mu.Unlock()
		ts.conns <- conn

		for {
			var frame models.MControlFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			ts.frames <- frame
		}
	}))

	t.Cleanup(func() {
		ts.mu.Lock()
		for _, c := range ts.open {
			c.Close()
		}
		ts.mu.Unlock()
		ts.srv.Close()
	})

	return ts
}

// -----------------------------------------------------------------------------

func (ts *wsTestServer) url() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
}

// -----------------------------------------------------------------------------

// waitConn waits for the next accepted connection.
func (ts *wsTestServer) waitConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-ts.conns:
		return conn
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for connection")
		return nil
	}
}

// -----------------------------------------------------------------------------

// collectFrames drains n control frames.
func (ts *wsTestServer) collectFrames(t *testing.T, n int) []models.MControlFrame {
	t.Helper()

	frames := make([]models.MControlFrame, 0, n)
	for len(frames) < n {
		select {
		case frame := <-ts.frames:
			frames = append(frames, frame)
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out after %d/%d frames: %v", len(frames), n, frames)
		}
	}
	return frames
}

// -----------------------------------------------------------------------------

// expectNoFrame asserts silence on the control channel for a grace period.
func (ts *wsTestServer) expectNoFrame(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case frame := <-ts.frames:
		t.Fatalf("unexpected frame: %+v", frame)
	case <-time.After(wait):
	}
}

// -----------------------------------------------------------------------------

func testClient(t *testing.T, url string) *Client {
	t.Helper()

	cfg := &models.MConfig{
		LogLevel: "ERROR",
		Realtime: models.MRealtimeConfig{
			URL:                     url,
			Reconnect:               true,
			ReconnectDelaySeconds:   1,
			PingIntervalSeconds:     30,
			HandshakeTimeoutSeconds: 2,
		},
	}

	client := NewClient(cfg, func() string { return "test-token" }, logger.NewLogger("ERROR", "test"))
	t.Cleanup(client.Stop)
	return client
}

// -----------------------------------------------------------------------------

func subscribedChannels(frames []models.MControlFrame) []string {
	var channels []string
	for _, f := range frames {
		if f.Type == models.MsgSubscribe {
			channels = append(channels, f.Channel)
		}
	}
	sort.Strings(channels)
	return channels
}

// -----------------------------------------------------------------------------
// Tests
// -----------------------------------------------------------------------------

func TestClientReplaysRegistryOnConnect(t *testing.T) {
	ts := newWSTestServer(t)
	client := testClient(t, ts.url())

	// Interest recorded while disconnected; control frames dropped, not queued.
	client.Subscribe("agent_stats:run-1", noop)
	client.Subscribe("portfolio_updates:pf-1", noop)

	if err := client.Start(); err != nil {
		t.Fatal(err)
	}
	ts.waitConn(t)

	frames := ts.collectFrames(t, 2)
	got := subscribedChannels(frames)
	want := []string{"agent_stats:run-1", "portfolio_updates:pf-1"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("replayed channels = %v, want %v", got, want)
	}
}

// -----------------------------------------------------------------------------

func TestClientMembershipEdgeFrames(t *testing.T) {
	ts := newWSTestServer(t)
	client := testClient(t, ts.url())

	connected := make(chan struct{}, 1)
	client.OnConnect(func() { connected <- struct{}{} })

	if err := client.Start(); err != nil {
		t.Fatal(err)
	}
	ts.waitConn(t)
	<-connected

	// First subscriber announces interest upstream
	subA := client.Subscribe("trade_executed:pf-1", noop)
	frames := ts.collectFrames(t, 1)
	if frames[0].Type != models.MsgSubscribe || frames[0].Channel != "trade_executed:pf-1" {
		t.Fatalf("frame = %+v", frames[0])
	}

	// Second subscriber on the same channel is silent
	subB := client.Subscribe("trade_executed:pf-1", noop)
	ts.expectNoFrame(t, 300*time.Millisecond)

	// Dropping a non-final subscriber is silent too
	subA.Close()
	ts.expectNoFrame(t, 300*time.Millisecond)

	// The final subscriber leaving releases the channel upstream
	subB.Close()
	frames = ts.collectFrames(t, 1)
	if frames[0].Type != models.MsgUnsubscribe || frames[0].Channel != "trade_executed:pf-1" {
		t.Fatalf("frame = %+v", frames[0])
	}

	// Closing again is a no-op
	subB.Close()
	ts.expectNoFrame(t, 300*time.Millisecond)
}

// -----------------------------------------------------------------------------

func TestClientRoutesDataFrames(t *testing.T) {
	ts := newWSTestServer(t)
	client := testClient(t, ts.url())

	received := make(chan *models.MInboundMessage, 8)
	client.Subscribe("agent_stats:run-1", func(msg *models.MInboundMessage) {
		received <- msg
	})

	if err := client.Start(); err != nil {
		t.Fatal(err)
	}
	conn := ts.waitConn(t)
	ts.collectFrames(t, 1) // replayed subscribe

	data := `{"type":"agent_metric","agent_run_id":"run-1","metric":{"step":7,"cumulative_reward":"14.5","portfolio_nav":100500}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(data)); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-received:
		metric, err := msg.AgentMetric()
		if err != nil {
			t.Fatal(err)
		}
		if metric.CumulativeReward.Float64() != 14.5 || metric.AgentRunID != "run-1" {
			t.Errorf("metric = %+v", metric)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("data frame not delivered")
	}
}

// -----------------------------------------------------------------------------

func TestClientReconnectReplaysExactChannelSet(t *testing.T) {
	ts := newWSTestServer(t)
	client := testClient(t, ts.url())

	client.Subscribe("agent_stats:run-1", noop)
	sub := client.Subscribe("market_data:AAPL", noop)
	client.Subscribe("market_data:AAPL", noop) // sibling, same channel

	if err := client.Start(); err != nil {
		t.Fatal(err)
	}
	conn := ts.waitConn(t)
	ts.collectFrames(t, 2)

	// One subscriber of the shared channel leaves before the drop; the
	// channel itself stays subscribed.
	sub.Close()

	disconnected := make(chan struct{}, 1)
	client.OnDisconnect(func() { disconnected <- struct{}{} })

	conn.Close()
	select {
	case <-disconnected:
	case <-time.After(3 * time.Second):
		t.Fatal("disconnect not observed")
	}

	// Single-shot reconnect after the flat delay, then the replay: the
	// current channel set exactly, one frame per channel.
	ts.waitConn(t)
	frames := ts.collectFrames(t, 2)
	got := subscribedChannels(frames)
	want := []string{"agent_stats:run-1", "market_data:AAPL"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("replayed channels = %v, want %v", got, want)
	}
	ts.expectNoFrame(t, 300*time.Millisecond)
}

// -----------------------------------------------------------------------------

func TestClientSendWhileDisconnected(t *testing.T) {
	ts := newWSTestServer(t)
	client := testClient(t, ts.url())

	// Never started: sends are dropped, not queued, and nothing panics.
	client.Send(&models.MControlFrame{Type: models.MsgPing})

	if client.State() != models.StateDisconnected {
		t.Errorf("State = %s, want disconnected", client.State())
	}

	// Nothing reached the server side.
	ts.expectNoFrame(t, 300*time.Millisecond)
}

// -----------------------------------------------------------------------------

func TestClientStopCancelsReconnect(t *testing.T) {
	ts := newWSTestServer(t)
	client := testClient(t, ts.url())

	if err := client.Start(); err != nil {
		t.Fatal(err)
	}
	conn := ts.waitConn(t)

	conn.Close()
	client.Stop()

	// No reconnect attempt arrives after teardown (flat delay is 1s).
	select {
	case <-ts.conns:
		t.Fatal("reconnect attempted after Stop")
	case <-time.After(1500 * time.Millisecond):
	}
}
