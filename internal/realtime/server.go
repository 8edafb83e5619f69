package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"timerlist/internal/producer"
	"timerlist/internal/protocol"
	"timerlist/internal/timers"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	sendBufSize   = 256
)

// addTimerForm is the form name echoed in form.clear messages.
const addTimerForm = "add-timer"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow localhost origins for dev.
	},
}

// Server exposes the timer store to WebSocket and REST clients. Every
// connected client receives the current state on connect and a new
// timers.state message after each transition.
type Server struct {
	store     *timers.Store
	producer  *producer.Producer
	logger    *slog.Logger
	staticDir string

	clients   map[*client]bool
	clientsMu sync.RWMutex
	closed    bool // set by Shutdown; guarded by clientsMu
}

type client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	subID  string
	server *Server
}

// New creates a new realtime server. It panics with timers.ErrNilStore if
// store was not constructed.
func New(store *timers.Store, prod *producer.Producer, staticDir string, logger *slog.Logger) *Server {
	timers.MustBeReady(store)
	if prod == nil {
		prod = producer.New(store)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:     store,
		producer:  prod,
		logger:    logger,
		staticDir: staticDir,
		clients:   make(map[*client]bool),
	}
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint.
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API endpoints.
	mux.HandleFunc("GET /timers", s.handleGetTimers)
	mux.HandleFunc("POST /timers", s.handleAddTimer)
	mux.HandleFunc("POST /timers/start", s.handleStart)
	mux.HandleFunc("POST /timers/stop", s.handleStop)
	mux.HandleFunc("GET /timers/history", s.handleHistory)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Static file serving.
	if s.staticDir != "" {
		fileServer := http.FileServer(http.Dir(s.staticDir))
		mux.Handle("/", fileServer)
	}

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// handleWebSocket upgrades an HTTP connection to WebSocket. A client that
// reconnects passes ?since=<seq> with the last Seq it saw and receives only
// newer events; otherwise it receives every retained event.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r)
	if err != nil {
		http.Error(w, `{"error":"invalid since"}`, http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		id:     uuid.New().String(),
		conn:   conn,
		send:   make(chan []byte, sendBufSize),
		done:   make(chan struct{}),
		server: s,
	}

	subID, events, history := s.store.Subscribe(since)
	c.subID = subID

	s.clientsMu.Lock()
	if s.closed {
		s.clientsMu.Unlock()
		s.store.Unsubscribe(subID)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	s.clients[c] = true
	s.clientsMu.Unlock()

	// Replay before any live event so the client can render the current
	// state; the newest event carries it.
	if len(history) == 0 && since == 0 {
		// No transition yet.
		s.sendState(c, timers.ChangeEvent{State: timers.InitialState()})
	}
	for _, event := range history {
		s.sendState(c, event)
	}

	s.logger.Debug("websocket client connected",
		slog.String("client", c.id), slog.Int("replayed", len(history)))

	go c.forward(events)
	go c.writePump()
	go c.readPump()
}

// forward relays store change events to the client until unsubscribed.
func (c *client) forward(events <-chan timers.ChangeEvent) {
	for event := range events {
		c.server.sendState(c, event)
	}
}

// readPump reads messages from the WebSocket connection.
func (c *client) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Warn("websocket read failed",
					slog.String("client", c.id), slog.String("error", err.Error()))
			}
			return
		}

		c.server.handleMessage(c, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// removeClient cleans up a disconnected client. Safe to call more than once.
func (s *Server) removeClient(c *client) {
	c.once.Do(func() {
		s.clientsMu.Lock()
		delete(s.clients, c)
		s.clientsMu.Unlock()

		s.store.Unsubscribe(c.subID)
		close(c.done)

		s.logger.Debug("websocket client disconnected", slog.String("client", c.id))
	})
}

// Shutdown disconnects every WebSocket client and refuses new ones.
func (s *Server) Shutdown() {
	s.clientsMu.Lock()
	s.closed = true
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.Unlock()

	for _, c := range clients {
		s.removeClient(c)
	}
}

// handleMessage processes a validated client message.
func (s *Server) handleMessage(c *client, raw []byte) {
	msg, err := protocol.ValidateClientMessage(raw)
	if err != nil {
		s.sendError(c, protocol.ErrInvalidMessage, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeTimersAdd:
		s.handleWSAdd(c, msg)
	case protocol.TypeTimersStart:
		s.store.Start()
	case protocol.TypeTimersStop:
		s.store.Stop()
	}
}

func (s *Server) handleWSAdd(c *client, msg *protocol.Message) {
	var payload protocol.TimersAddPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		// ValidateClientMessage already decoded it once.
		s.logger.Error("decode timers.add payload", slog.String("client", c.id), slog.String("error", err.Error()))
		s.sendError(c, protocol.ErrInvalidMessage, err.Error())
		return
	}

	s.producer.Submit(payload.Fields(), producer.ClearFunc(func() {
		resp, err := protocol.NewMessage(protocol.TypeFormClear, protocol.FormClearPayload{
			Form: addTimerForm,
		})
		if err != nil {
			s.logger.Error("encode form.clear message", slog.String("error", err.Error()))
			return
		}
		s.sendMessage(c, resp)
	}))
}

func (s *Server) sendState(c *client, event timers.ChangeEvent) {
	msg, err := protocol.NewStateMessage(event)
	if err != nil {
		s.logger.Error("encode state message", slog.String("error", err.Error()))
		return
	}
	s.sendMessage(c, msg)
}

func (s *Server) sendError(c *client, code, message string) {
	msg, err := protocol.NewErrorMessage(code, message)
	if err != nil {
		s.logger.Error("encode error message", slog.String("code", code), slog.String("error", err.Error()))
		return
	}
	s.sendMessage(c, msg)
}

func (s *Server) sendMessage(c *client, msg *protocol.Message) {
	if msg == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("encode message", slog.String("type", msg.Type), slog.String("error", err.Error()))
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		// Client buffer full, skip.
		s.logger.Warn("dropping message for slow client",
			slog.String("client", c.id), slog.String("type", msg.Type))
	}
}
