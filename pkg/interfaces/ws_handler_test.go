package interfaces

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yair/encore/pkg/graph"
)

type wsReply struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Payload struct {
		Data   map[string]interface{}   `json:"data"`
		Errors []map[string]interface{} `json:"errors"`
	} `json:"payload"`
}

func dialWS(t *testing.T, executor QueryExecutor, queryLog *mockQueryLog, subprotocol string) (*websocket.Conn, func()) {
	t.Helper()
	cfg := HandlerConfig{Executor: executor, EnableWebSocket: true}
	if queryLog != nil {
		cfg.QueryLog = queryLog
	}
	server := httptest.NewServer(newTestRouter(cfg))

	dialer := websocket.Dialer{Subprotocols: []string{subprotocol}}
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/graphql"
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		server.Close()
		t.Fatalf("failed to dial websocket: %v", err)
	}
	if conn.Subprotocol() != subprotocol {
		t.Errorf("expected subprotocol %s, got %s", subprotocol, conn.Subprotocol())
	}

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func readReply(t *testing.T, conn *websocket.Conn) wsReply {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply wsReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("failed to read reply: %v", err)
	}
	return reply
}

func artistExecutor() *mockExecutor {
	return &mockExecutor{
		executeFunc: func(ctx context.Context, req graph.Request) *graph.Response {
			return &graph.Response{Data: map[string]interface{}{"artist": map[string]interface{}{"name": "Muse"}}}
		},
	}
}

func TestWebSocket_TransportProtocol(t *testing.T) {
	queryLog := &mockQueryLog{}
	conn, cleanup := dialWS(t, artistExecutor(), queryLog, "graphql-transport-ws")
	defer cleanup()

	if err := conn.WriteJSON(map[string]string{"type": "connection_init"}); err != nil {
		t.Fatal(err)
	}
	if reply := readReply(t, conn); reply.Type != "connection_ack" {
		t.Fatalf("expected connection_ack, got %s", reply.Type)
	}

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatal(err)
	}
	if reply := readReply(t, conn); reply.Type != "pong" {
		t.Fatalf("expected pong, got %s", reply.Type)
	}

	subscribe := map[string]interface{}{
		"type":    "subscribe",
		"id":      "op-1",
		"payload": map[string]interface{}{"query": `{ artist(id: "1") { name } }`},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		t.Fatal(err)
	}

	next := readReply(t, conn)
	if next.Type != "next" || next.ID != "op-1" {
		t.Fatalf("expected next for op-1, got %s %s", next.Type, next.ID)
	}
	artist, _ := next.Payload.Data["artist"].(map[string]interface{})
	if artist["name"] != "Muse" {
		t.Errorf("unexpected payload %+v", next.Payload)
	}

	complete := readReply(t, conn)
	if complete.Type != "complete" || complete.ID != "op-1" {
		t.Errorf("expected complete for op-1, got %s %s", complete.Type, complete.ID)
	}

	records, _ := queryLog.List(context.Background(), 10)
	if len(records) != 1 || records[0].Transport != "websocket" {
		t.Errorf("expected one websocket record, got %+v", records)
	}
}

func TestWebSocket_LegacyProtocol(t *testing.T) {
	conn, cleanup := dialWS(t, artistExecutor(), nil, "graphql-ws")
	defer cleanup()

	if err := conn.WriteJSON(map[string]string{"type": "connection_init"}); err != nil {
		t.Fatal(err)
	}
	if reply := readReply(t, conn); reply.Type != "connection_ack" {
		t.Fatalf("expected connection_ack, got %s", reply.Type)
	}
	if reply := readReply(t, conn); reply.Type != "ka" {
		t.Fatalf("expected ka, got %s", reply.Type)
	}

	start := map[string]interface{}{
		"type":    "start",
		"id":      "1",
		"payload": map[string]interface{}{"query": `{ artist(id: "1") { name } }`},
	}
	if err := conn.WriteJSON(start); err != nil {
		t.Fatal(err)
	}

	if reply := readReply(t, conn); reply.Type != "data" || reply.ID != "1" {
		t.Fatalf("expected data for 1, got %s %s", reply.Type, reply.ID)
	}
	if reply := readReply(t, conn); reply.Type != "complete" {
		t.Fatalf("expected complete, got %s", reply.Type)
	}
}

func TestWebSocket_ProtocolErrors(t *testing.T) {
	expectClose := func(t *testing.T, conn *websocket.Conn, code int) {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			_, _, err := conn.ReadMessage()
			if err == nil {
				continue
			}
			if !websocket.IsCloseError(err, code) {
				t.Errorf("expected close code %d, got %v", code, err)
			}
			return
		}
	}

	t.Run("missing connection_init", func(t *testing.T) {
		conn, cleanup := dialWS(t, artistExecutor(), nil, "graphql-transport-ws")
		defer cleanup()

		if err := conn.WriteJSON(map[string]string{"type": "subscribe", "id": "1"}); err != nil {
			t.Fatal(err)
		}
		expectClose(t, conn, 4400)
	})

	t.Run("duplicate operation id", func(t *testing.T) {
		blocking := &mockExecutor{
			executeFunc: func(ctx context.Context, req graph.Request) *graph.Response {
				<-ctx.Done()
				return &graph.Response{}
			},
		}
		conn, cleanup := dialWS(t, blocking, nil, "graphql-transport-ws")
		defer cleanup()

		if err := conn.WriteJSON(map[string]string{"type": "connection_init"}); err != nil {
			t.Fatal(err)
		}
		readReply(t, conn)

		subscribe := map[string]interface{}{
			"type":    "subscribe",
			"id":      "same",
			"payload": map[string]interface{}{"query": "{ x }"},
		}
		for i := 0; i < 2; i++ {
			if err := conn.WriteJSON(subscribe); err != nil {
				t.Fatal(err)
			}
		}
		expectClose(t, conn, 4409)
	})

	t.Run("second connection_init", func(t *testing.T) {
		conn, cleanup := dialWS(t, artistExecutor(), nil, "graphql-transport-ws")
		defer cleanup()

		for i := 0; i < 2; i++ {
			if err := conn.WriteJSON(map[string]string{"type": "connection_init"}); err != nil {
				t.Fatal(err)
			}
		}
		expectClose(t, conn, 4429)
	})
}

func TestWebSocket_StopCancelsOperation(t *testing.T) {
	cancelled := make(chan struct{})
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, req graph.Request) *graph.Response {
			<-ctx.Done()
			close(cancelled)
			return &graph.Response{}
		},
	}
	conn, cleanup := dialWS(t, executor, nil, "graphql-transport-ws")
	defer cleanup()

	if err := conn.WriteJSON(map[string]string{"type": "connection_init"}); err != nil {
		t.Fatal(err)
	}
	readReply(t, conn)

	subscribe := map[string]interface{}{
		"type":    "subscribe",
		"id":      "slow",
		"payload": map[string]interface{}{"query": "{ x }"},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(map[string]string{"type": "complete", "id": "slow"}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("operation was not cancelled")
	}
}
