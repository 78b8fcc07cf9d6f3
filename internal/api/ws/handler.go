package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webide/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webide/backend/internal/preview/dispatch"
	"github.com/GriffinCanCode/webide/backend/internal/preview/sandbox"
	"github.com/GriffinCanCode/webide/backend/internal/shared/id"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var errUnknownType = errors.New("unknown message type")

// Message is a client request.
type Message struct {
	Type        string `json:"type"`
	ID          string `json:"id,omitempty"`
	SourceCode  string `json:"sourceCode,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	TimeoutMs   int    `json:"timeoutMs,omitempty"`
	HTMLContext string `json:"htmlContext,omitempty"`
}

// Reply is a server message.
type Reply struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Config bounds what a single connection may do.
type Config struct {
	MaxMessageBytes int64         // Read limit per message
	MaxInFlight     int           // Concurrent executions per connection
	ClampTimeoutMs  func(int) int // Optional timeout policy

	CheckOrigin func(*http.Request) bool
}

// StatsFunc produces the payload for a stats request.
type StatsFunc func() any

// Handler manages WebSocket connections
type Handler struct {
	dispatcher *dispatch.Dispatcher
	config     Config
	upgrader   websocket.Upgrader
	stats      StatsFunc
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetrics counts connections and messages.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithStats overrides the stats payload. The default is the monitor's stats.
func WithStats(fn StatsFunc) Option {
	return func(h *Handler) { h.stats = fn }
}

// WithLogger sets the handler's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a new WebSocket handler
func NewHandler(dispatcher *dispatch.Dispatcher, config Config, opts ...Option) *Handler {
	if config.MaxMessageBytes <= 0 {
		config.MaxMessageBytes = 2 << 20
	}
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = 4
	}
	checkOrigin := config.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	h := &Handler{
		dispatcher: dispatcher,
		config:     config,
		upgrader:   websocket.Upgrader{CheckOrigin: checkOrigin},
		logger:     zap.NewNop(),
	}
	h.stats = func() any { return dispatcher.Monitor().Stats() }
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	s := newSession(h, conn)
	h.logger.Info("WebSocket connected", zap.String("conn_id", s.id))
	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	s.serve()
	h.logger.Info("WebSocket disconnected", zap.String("conn_id", s.id))
}

// session is one live connection.
type session struct {
	h      *Handler
	id     string
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	slots  chan struct{}
	wg     sync.WaitGroup
	wmu    sync.Mutex
}

func newSession(h *Handler, conn *websocket.Conn) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		h:      h,
		id:     id.NewConnectionID().String(),
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		slots:  make(chan struct{}, h.config.MaxInFlight),
	}
}

func (s *session) serve() {
	defer func() {
		s.cancel()
		s.wg.Wait()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(s.h.config.MaxMessageBytes)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	s.wg.Add(1)
	go s.keepalive()

	s.send(Reply{Type: "system", Data: gin.H{"connectionId": s.id, "message": "Connected to preview engine"}})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.h.logger.Debug("WebSocket read ended", zap.String("conn_id", s.id), zap.Error(err))
			}
			return
		}

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			s.send(Reply{Type: "error", Error: "invalid message"})
			continue
		}
		s.h.countMessage("in", msg.Type)

		if err := s.handle(msg); err != nil {
			s.send(Reply{Type: "error", ID: msg.ID, Error: err.Error()})
		}
	}
}

func (s *session) handle(msg Message) error {
	switch msg.Type {
	case "execute":
		if msg.FileName == "" {
			return errors.New("fileName is required")
		}
		s.execute(msg)
	case "stats":
		s.send(Reply{Type: "stats", ID: msg.ID, Data: s.h.stats()})
	case "ping":
		s.send(Reply{Type: "pong", ID: msg.ID})
	default:
		return errUnknownType
	}
	return nil
}

// execute runs msg in the background once a slot frees up.
func (s *session) execute(msg Message) {
	select {
	case s.slots <- struct{}{}:
	case <-s.ctx.Done():
		return
	}

	timeoutMs := msg.TimeoutMs
	if clamp := s.h.config.ClampTimeoutMs; clamp != nil {
		timeoutMs = clamp(timeoutMs)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.slots }()

		outcome := s.h.dispatcher.Execute(s.ctx, sandbox.ExecutionRequest{
			SourceCode:  msg.SourceCode,
			FileName:    msg.FileName,
			TimeoutMs:   timeoutMs,
			HTMLContext: msg.HTMLContext,
		})
		s.send(Reply{Type: "result", ID: msg.ID, Data: outcome})
	}()
}

func (s *session) keepalive() {
	defer s.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.wmu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.wmu.Unlock()
			if err != nil {
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *session) send(reply Reply) {
	reply.Timestamp = time.Now().Unix()
	data, err := sonic.Marshal(reply)
	if err != nil {
		s.h.logger.Error("WebSocket marshal failed", zap.String("conn_id", s.id), zap.Error(err))
		return
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.h.logger.Debug("WebSocket write failed", zap.String("conn_id", s.id), zap.Error(err))
		return
	}
	s.h.countMessage("out", reply.Type)
}

func (h *Handler) countMessage(direction, msgType string) {
	if h.metrics == nil {
		return
	}
	switch msgType {
	case "execute", "stats", "ping", "result", "pong", "error", "system":
	default:
		msgType = "unknown"
	}
	h.metrics.RecordWSMessage(direction, msgType)
}
