package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AplusKminus/GraphWalker/internal/logger"
	"github.com/AplusKminus/GraphWalker/internal/repository"
)

// Timings follow the gorilla chat server.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// clientMessage is what a client sends:
//
//	{"type":"subscribe","view":"full_graph","id":1}
//	{"type":"unsubscribe","subscription":"0190..."}
type clientMessage struct {
	Type         string `json:"type"`
	View         string `json:"view,omitempty"`
	Subscription string `json:"subscription,omitempty"`
	repository.ViewArgs
}

// serverMessage is what the server pushes.
type serverMessage struct {
	Type         string `json:"type"`
	Subscription string `json:"subscription,omitempty"`
	View         string `json:"view,omitempty"`
	Data         any    `json:"data,omitempty"`
	Error        string `json:"error,omitempty"`
}

const (
	msgSubscribed   = "subscribed"
	msgUpdate       = "update"
	msgUnsubscribed = "unsubscribed"
	msgError        = "error"
)

type wsClient struct {
	server *Server
	conn   *websocket.Conn
	send   chan serverMessage
	id     string
	log    *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[string]context.CancelFunc
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin accepts clients without an Origin header and origins that
// start with one of the configured allowed origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("WebSocket upgrade failed", logger.FieldError, err)
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	c := &wsClient{
		server: s,
		conn:   conn,
		send:   make(chan serverMessage, sendBuffer),
		id:     uuid.Must(uuid.NewV7()).String(),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]context.CancelFunc),
	}
	c.log = s.log.With(logger.FieldClientID, c.id)
	c.log.Debugw("WebSocket client connected")

	go c.writePump()
	go c.readPump()
}

// readPump reads client messages until the connection fails, then tears
// the client down.
func (c *wsClient) readPump() {
	defer func() {
		c.cancel()
		c.conn.Close()
		c.log.Debugw("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNoStatusReceived,
			) {
				c.log.Warnw("WebSocket read error", logger.FieldError, err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.push(serverMessage{Type: msgError, Error: "invalid message: " + err.Error()})
			continue
		}
		c.route(msg)
	}
}

func (c *wsClient) route(msg clientMessage) {
	switch msg.Type {
	case "subscribe":
		c.subscribe(msg)
	case "unsubscribe":
		c.unsubscribe(msg.Subscription)
	default:
		c.push(serverMessage{Type: msgError, Error: "unknown message type " + msg.Type})
	}
}

func (c *wsClient) subscribe(msg clientMessage) {
	q, err := c.server.repo.View(msg.View, msg.ViewArgs)
	if err != nil {
		c.push(serverMessage{Type: msgError, View: msg.View, Error: err.Error()})
		return
	}

	subID := uuid.Must(uuid.NewV7()).String()
	ctx, cancel := context.WithCancel(c.ctx)
	c.mu.Lock()
	c.subs[subID] = cancel
	c.mu.Unlock()

	c.push(serverMessage{Type: msgSubscribed, Subscription: subID, View: msg.View})
	c.log.Debugw("Subscribed", logger.FieldView, msg.View, "subscription", subID)

	updates := q.Watch(ctx, c.server.repo.Feed())
	go func() {
		for u := range updates {
			out := serverMessage{Type: msgUpdate, Subscription: subID, View: msg.View, Data: u.Value}
			if u.Err != nil {
				out = serverMessage{Type: msgError, Subscription: subID, View: msg.View, Error: u.Err.Error()}
			}
			if !c.push(out) {
				return
			}
		}
	}()
}

func (c *wsClient) unsubscribe(subID string) {
	c.mu.Lock()
	cancel, ok := c.subs[subID]
	delete(c.subs, subID)
	c.mu.Unlock()
	if !ok {
		c.push(serverMessage{Type: msgError, Subscription: subID, Error: "unknown subscription"})
		return
	}
	cancel()
	c.push(serverMessage{Type: msgUnsubscribed, Subscription: subID})
}

// push queues msg for the write pump. It reports false once the client is
// gone.
func (c *wsClient) push(msg serverMessage) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// writePump serializes all writes to the connection and keeps it alive
// with pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Debugw("WebSocket write failed", logger.FieldError, err)
				c.cancel()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}
