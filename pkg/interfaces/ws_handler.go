package interfaces

// Two websocket sub-protocols are spoken on /graphql:
//   graphql-transport-ws: the current protocol (subscribe/next/complete)
//   graphql-ws: the legacy Apollo protocol (start/data/stop)
// Only queries are supported, so every operation yields one result followed
// by complete.

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yair/encore/pkg/graph"
)

const (
	protocolTransportWS = "graphql-transport-ws"
	protocolLegacyWS    = "graphql-ws"

	initTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second

	closeBadRequest      = 4400
	closeInitTimeout     = 4408
	closeDuplicateID     = 4409
	closeTooManyInitReqs = 4429
)

var upgrader = websocket.Upgrader{
	CheckOrigin:  func(r *http.Request) bool { return true },
	Subprotocols: []string{protocolTransportWS, protocolLegacyWS},
}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wsOutgoing struct {
	Type    string      `json:"type"`
	ID      string      `json:"id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

type wsConnection struct {
	conn   *websocket.Conn
	h      *GraphQLHandler
	logger *zap.Logger

	// legacy is true for the graphql-ws sub-protocol.
	legacy bool

	writeMu sync.Mutex

	mu         sync.Mutex
	operations map[string]context.CancelFunc
	wg         sync.WaitGroup
}

func (h *GraphQLHandler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		// upgrader has already written the HTTP error
		return
	}

	c := &wsConnection{
		conn:       conn,
		h:          h,
		logger:     h.logger.With(zap.String("subprotocol", conn.Subprotocol())),
		legacy:     conn.Subprotocol() != protocolTransportWS,
		operations: make(map[string]context.CancelFunc),
	}
	defer func() {
		c.stopAll()
		c.wg.Wait()
		if err := conn.Close(); err != nil {
			c.logger.Debug("websocket close failed", zap.Error(err))
		}
	}()

	if !c.init() {
		return
	}
	c.serve(r.Context())
}

// init waits for connection_init and acknowledges it.
func (c *wsConnection) init() bool {
	c.conn.SetReadDeadline(time.Now().Add(initTimeout))
	message, err := c.read()
	if err != nil {
		if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
			c.close(closeInitTimeout, "Connection initialisation timeout")
		}
		return false
	}
	if message.Type != "connection_init" {
		c.close(closeBadRequest, "expected connection_init")
		return false
	}
	c.conn.SetReadDeadline(time.Time{})

	if err := c.write(wsOutgoing{Type: "connection_ack"}); err != nil {
		return false
	}
	if c.legacy {
		_ = c.write(wsOutgoing{Type: "ka"})
	}
	return true
}

func (c *wsConnection) serve(ctx context.Context) {
	for {
		message, err := c.read()
		if err != nil {
			return
		}

		switch message.Type {
		case "subscribe", "start":
			if !c.start(ctx, message) {
				return
			}

		case "complete", "stop":
			c.stop(message.ID)

		case "ping":
			_ = c.write(wsOutgoing{Type: "pong"})

		case "pong":

		case "connection_init":
			c.close(closeTooManyInitReqs, "Too many initialisation requests")
			return

		case "connection_terminate":
			return

		default:
			c.logger.Debug("unexpected websocket message", zap.String("type", message.Type))
			c.close(closeBadRequest, "unexpected message type "+message.Type)
			return
		}
	}
}

// start runs one operation in the background. It returns false when the
// connection must be closed.
func (c *wsConnection) start(ctx context.Context, message *wsMessage) bool {
	if message.ID == "" {
		c.close(closeBadRequest, "operation id is required")
		return false
	}

	var req graph.Request
	if err := decodeJSON(bytes.NewReader(message.Payload), &req); err != nil {
		c.close(closeBadRequest, "invalid operation payload")
		return false
	}

	c.mu.Lock()
	if _, ok := c.operations[message.ID]; ok {
		c.mu.Unlock()
		c.close(closeDuplicateID, "Subscriber for "+message.ID+" already exists")
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	c.operations[message.ID] = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.finish(message.ID)
		c.process(ctx, message.ID, req)
	}()
	return true
}

func (c *wsConnection) process(ctx context.Context, id string, req graph.Request) {
	resp := c.h.execute(ctx, req, transportWebSocket)
	if ctx.Err() != nil {
		// stopped by the client or the connection went away
		return
	}

	messageType := "next"
	if c.legacy {
		messageType = "data"
	}
	if err := c.write(wsOutgoing{Type: messageType, ID: id, Payload: resp}); err != nil {
		return
	}
	_ = c.write(wsOutgoing{Type: "complete", ID: id})
}

func (c *wsConnection) finish(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cancel, ok := c.operations[id]; ok {
		cancel()
		delete(c.operations, id)
	}
}

// stop cancels one running operation.
func (c *wsConnection) stop(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cancel, ok := c.operations[id]
	if !ok {
		c.logger.Debug("websocket operation not found or already completed", zap.String("id", id))
		return
	}
	cancel()
	delete(c.operations, id)
}

func (c *wsConnection) stopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, cancel := range c.operations {
		cancel()
		delete(c.operations, id)
	}
}

func (c *wsConnection) read() (*wsMessage, error) {
	_, reader, err := c.conn.NextReader()
	if err != nil {
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			c.logger.Debug("websocket read failed", zap.Error(err))
		}
		return nil, err
	}

	var message wsMessage
	if err := json.NewDecoder(reader).Decode(&message); err != nil {
		c.close(closeBadRequest, "invalid message")
		return nil, err
	}
	return &message, nil
}

// gorilla connections allow one concurrent writer.
func (c *wsConnection) write(message wsOutgoing) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(message); err != nil {
		c.logger.Debug("websocket write failed", zap.Error(err))
		return err
	}
	return nil
}

func (c *wsConnection) close(code int, reason string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(writeTimeout))
}
