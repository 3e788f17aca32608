package signalr

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"bidding-app/internal/domain"
	"bidding-app/pkg/logger"

	"github.com/gorilla/websocket"
)

type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyStarted     = errors.New("hub connection already started")
	ErrStopped            = errors.New("hub connection stopped")
	ErrReconnectExhausted = errors.New("hub reconnect attempts exhausted")
)

// DefaultReconnectDelays is the automatic reconnect schedule: retry at once,
// then after 2, 10 and 30 seconds, then give up.
var DefaultReconnectDelays = []time.Duration{0, 2 * time.Second, 10 * time.Second, 30 * time.Second}

// CloseError is returned when the server ends the session with a close message.
type CloseError struct {
	Reason         string
	AllowReconnect bool
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return "hub closed the connection"
	}
	return "hub closed the connection: " + e.Reason
}

type Options struct {
	ReconnectDelays   []time.Duration
	KeepAliveInterval time.Duration
	ServerTimeout     time.Duration
	TLSConfig         *tls.Config
	Header            http.Header
	HTTPClient        *http.Client
	Dialer            *websocket.Dialer
}

func (o *Options) applyDefaults() {
	if o.ReconnectDelays == nil {
		o.ReconnectDelays = DefaultReconnectDelays
	}
	if o.KeepAliveInterval <= 0 {
		o.KeepAliveInterval = 15 * time.Second
	}
	if o.ServerTimeout <= 0 {
		o.ServerTimeout = 30 * time.Second
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{
			Timeout:   o.ServerTimeout,
			Transport: &http.Transport{TLSClientConfig: o.TLSConfig, Proxy: http.ProxyFromEnvironment},
		}
	}
	if o.Dialer == nil {
		o.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: o.ServerTimeout,
			TLSClientConfig:  o.TLSConfig,
		}
	}
}

// HubConnection is a client for a single named hub. Handlers registered with
// On run on the connection's reader goroutine, one at a time, in arrival order.
type HubConnection struct {
	hubURL string
	opts   Options
	log    logger.Logger

	mu             sync.Mutex
	state          ConnectionState
	conn           *websocket.Conn
	handlers       map[string][]domain.InvocationHandler
	onReconnecting func(error)
	onReconnected  func()
	onClose        func(error)
	cancel         context.CancelFunc
	done           chan struct{}

	writeMu sync.Mutex
}

// session is an established, handshaken websocket plus any records that
// arrived in the same frame as the handshake response.
type session struct {
	conn    *websocket.Conn
	pending [][]byte
}

func NewHubConnection(hubURL string, opts Options, log logger.Logger) *HubConnection {
	opts.applyDefaults()
	return &HubConnection{
		hubURL:   hubURL,
		opts:     opts,
		log:      log.With("hub", hubURL),
		handlers: make(map[string][]domain.InvocationHandler),
	}
}

// On registers a handler for invocations of target. Target matching is
// case-insensitive, as hub method names are.
func (h *HubConnection) On(target string, handler domain.InvocationHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := strings.ToLower(target)
	h.handlers[key] = append(h.handlers[key], handler)
}

func (h *HubConnection) OnReconnecting(fn func(error)) {
	h.mu.Lock()
	h.onReconnecting = fn
	h.mu.Unlock()
}

func (h *HubConnection) OnReconnected(fn func()) {
	h.mu.Lock()
	h.onReconnected = fn
	h.mu.Unlock()
}

// OnClose is called once the connection is gone for good: after Stop (with a
// nil error), after a close message that forbids reconnecting, or when the
// reconnect schedule is exhausted.
func (h *HubConnection) OnClose(fn func(error)) {
	h.mu.Lock()
	h.onClose = fn
	h.mu.Unlock()
}

func (h *HubConnection) State() ConnectionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Start negotiates, dials and handshakes. A failed start is not retried.
func (h *HubConnection) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.state != StateDisconnected {
		h.mu.Unlock()
		return ErrAlreadyStarted
	}
	h.state = StateConnecting
	runCtx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan struct{})
	h.mu.Unlock()

	sess, err := h.connect(ctx)
	if err == nil {
		err = h.adopt(runCtx, sess)
	}
	if err != nil {
		cancel()
		h.mu.Lock()
		h.state = StateDisconnected
		close(h.done)
		h.mu.Unlock()
		return err
	}

	h.log.Info("Hub connected")
	go h.run(runCtx, sess)
	return nil
}

// Stop closes the connection and cancels any pending reconnect. It blocks
// until the reader goroutine has exited. Safe to call more than once.
func (h *HubConnection) Stop() error {
	// Cancel under the lock so a concurrent adopt either sees the cancelled
	// context or has already published its conn for us to close.
	h.mu.Lock()
	if h.cancel == nil {
		h.mu.Unlock()
		return nil
	}
	h.cancel()
	conn := h.conn
	done := h.done
	h.mu.Unlock()

	if conn != nil {
		h.writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = conn.WriteMessage(websocket.TextMessage, CloseFrame("", false))
		h.writeMu.Unlock()
		_ = conn.Close()
	}

	if done != nil {
		<-done
	}
	return nil
}

// adopt installs a freshly connected session unless the lifetime context has
// already been cancelled by Stop.
func (h *HubConnection) adopt(ctx context.Context, sess *session) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ctx.Err() != nil {
		_ = sess.conn.Close()
		return ErrStopped
	}
	h.conn = sess.conn
	h.state = StateConnected
	return nil
}

func (h *HubConnection) run(ctx context.Context, sess *session) {
	var err error
	for {
		err = h.serve(ctx, sess)
		_ = sess.conn.Close()
		if ctx.Err() != nil {
			err = nil
			break
		}

		var closeErr *CloseError
		if errors.As(err, &closeErr) && !closeErr.AllowReconnect {
			h.log.Info("Hub closed the connection", "reason", closeErr.Reason)
			break
		}

		h.log.Warn("Hub connection lost", "error", err)
		sess, err = h.reconnect(ctx, err)
		if err != nil {
			if ctx.Err() != nil {
				err = nil
			}
			break
		}
	}

	h.mu.Lock()
	h.state = StateDisconnected
	h.conn = nil
	onClose := h.onClose
	close(h.done)
	h.mu.Unlock()

	if err != nil {
		h.log.Error("Hub connection closed", "error", err)
	} else {
		h.log.Info("Hub connection closed")
	}
	if onClose != nil {
		onClose(err)
	}
}

func (h *HubConnection) reconnect(ctx context.Context, cause error) (*session, error) {
	h.mu.Lock()
	h.state = StateReconnecting
	h.conn = nil
	onReconnecting := h.onReconnecting
	h.mu.Unlock()

	if onReconnecting != nil {
		onReconnecting(cause)
	}

	for attempt, delay := range h.opts.ReconnectDelays {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		sess, err := h.connect(ctx)
		if err != nil {
			h.log.Warn("Reconnect attempt failed", "attempt", attempt+1, "error", err)
			continue
		}
		if err := h.adopt(ctx, sess); err != nil {
			return nil, err
		}

		h.log.Info("Hub reconnected", "attempt", attempt+1)
		h.mu.Lock()
		onReconnected := h.onReconnected
		h.mu.Unlock()
		if onReconnected != nil {
			onReconnected()
		}
		return sess, nil
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrReconnectExhausted, len(h.opts.ReconnectDelays), cause)
}

func (h *HubConnection) serve(ctx context.Context, sess *session) error {
	var wg sync.WaitGroup
	stopKeepAlive := make(chan struct{})
	defer wg.Wait()
	defer close(stopKeepAlive)

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.keepAlive(sess.conn, stopKeepAlive)
	}()

	if err := h.handleRecords(sess.pending); err != nil {
		return err
	}

	for {
		_ = sess.conn.SetReadDeadline(time.Now().Add(h.opts.ServerTimeout))
		_, payload, err := sess.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read hub message: %w", err)
		}

		records, rest := SplitFrames(payload)
		if len(rest) > 0 {
			h.log.Warn("Dropping incomplete hub record", "bytes", len(rest))
		}
		if err := h.handleRecords(records); err != nil {
			return err
		}
	}
}

func (h *HubConnection) handleRecords(records [][]byte) error {
	for _, record := range records {
		msg, err := ParseMessage(record)
		if err != nil {
			h.log.Warn("Ignoring malformed hub message", "error", err)
			continue
		}

		switch msg.Type {
		case MessageInvocation:
			h.dispatch(msg)
		case MessagePing:
		case MessageClose:
			return &CloseError{Reason: msg.Error, AllowReconnect: msg.AllowReconnect}
		default:
			h.log.Debug("Ignoring hub message", "type", msg.Type.String())
		}
	}
	return nil
}

func (h *HubConnection) dispatch(msg *Message) {
	h.mu.Lock()
	handlers := append([]domain.InvocationHandler(nil), h.handlers[strings.ToLower(msg.Target)]...)
	h.mu.Unlock()

	if len(handlers) == 0 {
		h.log.Warn("No handler registered for hub method", "target", msg.Target)
		return
	}
	for _, handler := range handlers {
		handler(msg.Arguments)
	}
}

func (h *HubConnection) keepAlive(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(h.opts.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := h.write(conn, PingFrame()); err != nil {
				h.log.Debug("Failed to send keep-alive ping", "error", err)
				return
			}
		}
	}
}

func (h *HubConnection) write(conn *websocket.Conn, frame []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(h.opts.ServerTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (h *HubConnection) connect(ctx context.Context) (*session, error) {
	negotiated, err := h.negotiate(ctx)
	if err != nil {
		return nil, err
	}

	token := negotiated.ConnectionToken
	if token == "" {
		token = negotiated.ConnectionID
	}
	wsURL, err := websocketURL(h.hubURL, token)
	if err != nil {
		return nil, err
	}

	conn, _, err := h.opts.Dialer.DialContext(ctx, wsURL, h.opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial hub: %w", err)
	}

	pending, err := h.handshake(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &session{conn: conn, pending: pending}, nil
}

func (h *HubConnection) handshake(conn *websocket.Conn) ([][]byte, error) {
	request, err := Frame(HandshakeRequest{Protocol: "json", Version: 1})
	if err != nil {
		return nil, err
	}
	if err := h.write(conn, request); err != nil {
		return nil, fmt.Errorf("send handshake: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(h.opts.ServerTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read handshake response: %w", err)
	}

	records, _ := SplitFrames(payload)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty handshake response", ErrHandshakeRejected)
	}
	if err := ParseHandshakeResponse(records[0]); err != nil {
		return nil, err
	}
	return records[1:], nil
}

func (h *HubConnection) negotiate(ctx context.Context) (*NegotiateResponse, error) {
	negotiateURL, err := url.Parse(strings.TrimRight(h.hubURL, "/") + "/negotiate")
	if err != nil {
		return nil, fmt.Errorf("parse hub url: %w", err)
	}
	query := negotiateURL.Query()
	query.Set("negotiateVersion", "1")
	negotiateURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, negotiateURL.String(), nil)
	if err != nil {
		return nil, err
	}
	for key, values := range h.opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := h.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("negotiate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("negotiate: unexpected status %d", resp.StatusCode)
	}

	var negotiated NegotiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&negotiated); err != nil {
		return nil, fmt.Errorf("decode negotiate response: %w", err)
	}
	if negotiated.Error != "" {
		return nil, fmt.Errorf("negotiate: %s", negotiated.Error)
	}
	return &negotiated, nil
}

func websocketURL(hubURL, token string) (string, error) {
	u, err := url.Parse(hubURL)
	if err != nil {
		return "", fmt.Errorf("parse hub url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported hub url scheme %q", u.Scheme)
	}
	if token != "" {
		query := u.Query()
		query.Set("id", token)
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}
