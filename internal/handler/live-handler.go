package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"alphaboutique/internal/domain"
	"alphaboutique/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMsgSize       = 512
	maxMsgsPerSecond = 3

	hubBroadcastBuf   = 1024
	hubRegisterBuf    = 64
	clientSendBuf     = 64
	registerTimeout   = 2 * time.Second
	unregisterTimeout = 2 * time.Second
)

// Live event types pushed to /ws/state subscribers
const (
	EventSession      = "session"
	EventCart         = "cart"
	EventTheme        = "theme"
	EventFault        = "fault"
	EventNotification = "notification"
	EventClients      = "clients"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the state server listens on a local address only
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveEvent is one frame on the state socket
type LiveEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	At   time.Time   `json:"at"`
}

// inboundMessage is what a client may send: currently only its color scheme
type inboundMessage struct {
	Type   string `json:"type"`
	Scheme string `json:"scheme"`
}

type liveClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *LiveHub

	tokens     float64
	lastRefill time.Time
}

// stateEvents are replayed to a client when it connects, in this order
var stateEvents = []string{EventSession, EventCart, EventTheme}

type liveFrame struct {
	eventType string
	msg       []byte
}

// LiveHub fans state changes out to every connected socket. A slow client
// is dropped instead of slowing the others down.
type LiveHub struct {
	clients    map[*liveClient]struct{}
	register   chan *liveClient
	unregister chan *liveClient
	broadcast  chan liveFrame

	// latest holds the last frame of each state event; owned by Run
	latest map[string][]byte

	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewLiveHub(logger *zap.Logger, m *metrics.Metrics) *LiveHub {
	return &LiveHub{
		clients:    make(map[*liveClient]struct{}),
		register:   make(chan *liveClient, hubRegisterBuf),
		unregister: make(chan *liveClient, hubRegisterBuf),
		broadcast:  make(chan liveFrame, hubBroadcastBuf),
		latest:     make(map[string][]byte),
		logger:     logger,
		metrics:    m,
	}
}

// Prime sets the initial frame of a state event, unless one is already held.
// It must be called before Run.
func (hub *LiveHub) Prime(eventType string, data interface{}) {
	if _, ok := hub.latest[eventType]; ok {
		return
	}
	if msg := hub.encode(eventType, data); msg != nil {
		hub.latest[eventType] = msg
	}
}

// Run owns the client set until ctx ends. A new client first gets the
// latest frame of every state event and then the changes after it, all
// from this goroutine, so it never misses or reorders a change.
func (hub *LiveHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range hub.clients {
				hub.drop(c)
			}
			return

		case c := <-hub.register:
			for _, eventType := range stateEvents {
				if msg, ok := hub.latest[eventType]; ok {
					c.send <- msg
				}
			}
			hub.clients[c] = struct{}{}
			hub.metrics.LiveClientConnected()
			hub.logger.Debug("Live client connected", zap.String("client_id", c.id), zap.Int("clients", len(hub.clients)))
			hub.fanout(liveFrame{eventType: EventClients, msg: hub.encode(EventClients, len(hub.clients))})

		case c := <-hub.unregister:
			if _, ok := hub.clients[c]; ok {
				hub.drop(c)
				hub.fanout(liveFrame{eventType: EventClients, msg: hub.encode(EventClients, len(hub.clients))})
			}

		case frame := <-hub.broadcast:
			hub.fanout(frame)
		}
	}
}

func (hub *LiveHub) fanout(frame liveFrame) {
	if frame.msg == nil {
		return
	}
	for _, eventType := range stateEvents {
		if frame.eventType == eventType {
			hub.latest[eventType] = frame.msg
		}
	}
	for c := range hub.clients {
		select {
		case c.send <- frame.msg:
		default:
			hub.logger.Warn("Dropping slow live client", zap.String("client_id", c.id))
			hub.drop(c)
		}
	}
}

func (hub *LiveHub) drop(c *liveClient) {
	delete(hub.clients, c)
	close(c.send)
	hub.metrics.LiveClientDisconnected()
}

func (hub *LiveHub) encode(eventType string, data interface{}) []byte {
	msg, err := json.Marshal(LiveEvent{Type: eventType, Data: data, At: time.Now().UTC()})
	if err != nil {
		hub.logger.Error("Failed to encode live event", zap.String("type", eventType), zap.Error(err))
		return nil
	}
	return msg
}

// Publish queues an event for every client. It never blocks; when the hub
// is overloaded the event is dropped.
func (hub *LiveHub) Publish(eventType string, data interface{}) {
	msg := hub.encode(eventType, data)
	if msg == nil {
		return
	}
	select {
	case hub.broadcast <- liveFrame{eventType: eventType, msg: msg}:
	default:
		hub.logger.Warn("Live hub overloaded, event dropped", zap.String("type", eventType))
	}
}

func (c *liveClient) allowMessage(now time.Time) bool {
	elapsed := now.Sub(c.lastRefill).Seconds()
	if elapsed > 0 {
		c.tokens += elapsed * float64(maxMsgsPerSecond)
		if c.tokens > float64(maxMsgsPerSecond) {
			c.tokens = float64(maxMsgsPerSecond)
		}
		c.lastRefill = now
	}
	if c.tokens >= 1 {
		c.tokens--
		return true
	}
	return false
}

func (c *liveClient) readPump(onScheme func(domain.ColorScheme)) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-time.After(unregisterTimeout):
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if !c.allowMessage(time.Now()) {
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "device_scheme" {
			onScheme(domain.ParseColorScheme(msg.Scheme))
		}
	}
}

func (c *liveClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleLiveState upgrades to a websocket and registers the client with the
// hub, which sends the current state of every store and then the changes.
// URL: /ws/state
func (h *Handler) handleLiveState(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", zap.Error(err))
		return
	}

	client := &liveClient{
		id:         uuid.NewString(),
		conn:       conn,
		send:       make(chan []byte, clientSendBuf),
		hub:        h.live,
		tokens:     float64(maxMsgsPerSecond),
		lastRefill: time.Now(),
	}

	select {
	case h.live.register <- client:
	case <-time.After(registerTimeout):
		h.logger.Warn("Live hub busy, rejecting client")
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h.theme.SetDeviceScheme)
}
