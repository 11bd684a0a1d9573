// Package stream broadcasts generation progress events to websocket
// subscribers, one room per session.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bentossell/fragg-sub002/internal/generator"
	"github.com/bentossell/fragg-sub002/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Progress streams carry no credentials or user data, so any origin
	// may subscribe
	CheckOrigin: func(r *http.Request) bool { return true },
}

type envelope struct {
	Session   string          `json:"session"`
	Event     generator.Event `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
}

type subscription struct {
	session string
	client  *client
}

// Hub fans generation events out to websocket clients grouped by session
type Hub struct {
	rooms      map[string]map[*client]bool
	register   chan subscription
	unregister chan subscription
	events     chan envelope
	shutdown   chan struct{}
	once       sync.Once
	log        *zap.Logger
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*client]bool),
		register:   make(chan subscription),
		unregister: make(chan subscription),
		events:     make(chan envelope, 256),
		shutdown:   make(chan struct{}),
		log:        logging.Named("stream"),
	}
}

// Run processes registrations and event fan-out until Shutdown. Call in
// its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			room, ok := h.rooms[sub.session]
			if !ok {
				room = make(map[*client]bool)
				h.rooms[sub.session] = room
			}
			room[sub.client] = true

		case sub := <-h.unregister:
			if room, ok := h.rooms[sub.session]; ok {
				if room[sub.client] {
					delete(room, sub.client)
					close(sub.client.send)
				}
				if len(room) == 0 {
					delete(h.rooms, sub.session)
				}
			}

		case env := <-h.events:
			data, err := json.Marshal(env)
			if err != nil {
				h.log.Warn("event marshal failed", zap.Error(err))
				continue
			}
			for c := range h.rooms[env.Session] {
				select {
				case c.send <- data:
				default:
					// Drop slow consumers instead of stalling the stream
					delete(h.rooms[env.Session], c)
					close(c.send)
				}
			}

		case <-h.shutdown:
			for session, room := range h.rooms {
				for c := range room {
					close(c.send)
				}
				delete(h.rooms, session)
			}
			return
		}
	}
}

// Shutdown stops the hub and disconnects all clients
func (h *Hub) Shutdown() {
	h.once.Do(func() { close(h.shutdown) })
}

// Publish sends an event to all subscribers of the session. Non-blocking;
// events are dropped when the hub is saturated.
func (h *Hub) Publish(session string, ev generator.Event) {
	env := envelope{Session: session, Event: ev, Timestamp: time.Now()}
	select {
	case h.events <- env:
	default:
		h.log.Warn("event queue full, dropping event",
			zap.String("session", session),
			zap.String("type", string(ev.Type)))
	}
}

// Sink returns a ProgressSink that publishes into the session's room
func (h *Hub) Sink(session string) generator.ProgressSink {
	return generator.SinkFunc(func(ev generator.Event) {
		h.Publish(session, ev)
	})
}

// ServeWS upgrades the request and subscribes it to the session's events
func (h *Hub) ServeWS(c *gin.Context) {
	session := c.Query("session")
	if session == "" {
		session = "default"
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register <- subscription{session: session, client: cl}

	go cl.writePump()
	go cl.readPump(h, session)
}

// client wraps one websocket connection
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// readPump discards inbound frames; its job is pong handling and detecting
// disconnects
func (c *client) readPump(h *Hub, session string) {
	defer func() {
		h.unregister <- subscription{session: session, client: c}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
