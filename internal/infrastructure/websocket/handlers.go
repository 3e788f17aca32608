package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"bidding-app/internal/domain"
	"bidding-app/internal/infrastructure/signalr"
	"bidding-app/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

type HubHandler struct {
	connManager   domain.ConnectionManager
	keepAlive     time.Duration
	clientTimeout time.Duration
	log           logger.Logger

	tokensMu sync.Mutex
	tokens   map[string]pendingToken // keyed by connectionToken
	now      func() time.Time
}

// pendingToken is a negotiated connection that has not dialled in yet.
type pendingToken struct {
	connectionID string
	issuedAt     time.Time
}

func NewHubHandler(connManager domain.ConnectionManager, keepAlive time.Duration, log logger.Logger) *HubHandler {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return &HubHandler{
		connManager:   connManager,
		keepAlive:     keepAlive,
		clientTimeout: 2 * keepAlive,
		log:           log,
		tokens:        make(map[string]pendingToken),
		now:           time.Now,
	}
}

// Negotiate hands out a one-shot connection token for the websocket transport.
func (h *HubHandler) Negotiate(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	connectionID := uuid.NewString()
	token := uuid.NewString()

	h.tokensMu.Lock()
	now := h.now()
	h.sweepTokensLocked(now)
	h.tokens[token] = pendingToken{connectionID: connectionID, issuedAt: now}
	h.tokensMu.Unlock()

	resp := signalr.NegotiateResponse{
		NegotiateVersion: 1,
		ConnectionID:     connectionID,
		ConnectionToken:  token,
		AvailableTransports: []signalr.AvailableTransport{
			{Transport: "WebSockets", TransferFormats: []string{"Text"}},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("Failed to write negotiate response", "error", err)
	}
}

// Tokens that were never used to connect expire after clientTimeout.
func (h *HubHandler) sweepTokensLocked(now time.Time) {
	for token, pending := range h.tokens {
		if h.expired(pending, now) {
			delete(h.tokens, token)
		}
	}
}

func (h *HubHandler) expired(pending pendingToken, now time.Time) bool {
	return now.Sub(pending.issuedAt) > h.clientTimeout
}

func (h *HubHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("id")
	if token == "" {
		http.Error(w, "connection id required", http.StatusBadRequest)
		return
	}

	h.tokensMu.Lock()
	pending, ok := h.tokens[token]
	delete(h.tokens, token)
	if ok && h.expired(pending, h.now()) {
		ok = false
	}
	h.tokensMu.Unlock()
	connectionID := pending.connectionID

	if !ok {
		h.log.Info("Rejected connection - unknown token")
		http.Error(w, "No Connection with that ID", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	hubConn := NewHubClientConnection(conn, connectionID, h.log)

	if err := h.handshake(hubConn); err != nil {
		h.log.Error("Handshake failed", "connection_id", connectionID, "error", err)
		_ = hubConn.Close()
		return
	}

	// Register connection
	if err := h.connManager.RegisterConnection(hubConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		_ = hubConn.Close()
		return
	}

	// Start message handling
	go h.handleMessages(hubConn)
}

func (h *HubHandler) handshake(conn *HubClientConnection) error {
	_ = conn.conn.SetReadDeadline(time.Now().Add(h.clientTimeout))
	_, payload, err := conn.conn.ReadMessage()
	if err != nil {
		return err
	}

	records, _ := signalr.SplitFrames(payload)
	if len(records) == 0 {
		return signalr.ErrHandshakeRejected
	}
	if _, err := signalr.ParseHandshakeRequest(records[0]); err != nil {
		if frame, ferr := signalr.Frame(signalr.HandshakeResponse{Error: err.Error()}); ferr == nil {
			_ = conn.Send(frame)
		}
		return err
	}

	frame, err := signalr.Frame(signalr.HandshakeResponse{})
	if err != nil {
		return err
	}
	return conn.Send(frame)
}

func (h *HubHandler) handleMessages(conn *HubClientConnection) {
	stopPing := make(chan struct{})
	defer func() {
		close(stopPing)
		_ = h.connManager.UnregisterConnection(conn.ConnectionID())
		_ = conn.Close()
	}()

	go h.pingLoop(conn, stopPing)

	for {
		_ = conn.conn.SetReadDeadline(time.Now().Add(h.clientTimeout))
		_, payload, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Error("Failed to read message", "connection_id", conn.ConnectionID(), "error", err)
			}
			return
		}

		records, _ := signalr.SplitFrames(payload)
		for _, record := range records {
			msg, err := signalr.ParseMessage(record)
			if err != nil {
				h.log.Warn("Ignoring malformed message", "connection_id", conn.ConnectionID(), "error", err)
				continue
			}

			switch msg.Type {
			case signalr.MessagePing:
			case signalr.MessageClose:
				return
			case signalr.MessageInvocation:
				// The hub exposes no server methods; it only pushes.
				h.log.Warn("Client invoked unknown hub method", "target", msg.Target)
			}
		}
	}
}

func (h *HubHandler) pingLoop(conn *HubClientConnection, stop <-chan struct{}) {
	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.Send(signalr.PingFrame()); err != nil {
				return
			}
		}
	}
}

type HubClientConnection struct {
	conn         *websocket.Conn
	connectionID string
	writeMu      sync.Mutex
	closeOnce    sync.Once
	log          logger.Logger
}

func NewHubClientConnection(conn *websocket.Conn, connectionID string, log logger.Logger) *HubClientConnection {
	return &HubClientConnection{
		conn:         conn,
		connectionID: connectionID,
		log:          log,
	}
}

func (c *HubClientConnection) Send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *HubClientConnection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.Send(signalr.CloseFrame("", true))
		err = c.conn.Close()
	})
	return err
}

func (c *HubClientConnection) ConnectionID() string {
	return c.connectionID
}
