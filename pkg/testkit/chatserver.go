package testkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/chat"
	"github.com/shashiranjanraj/kisanbazaar/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxFrame   = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ChatServer emulates the real-time chat transport: presence, rooms, history
// replay on join and typing notices. Serve it with NewChatServer and dial
// WSURL().
type ChatServer struct {
	*httptest.Server

	hub *hub
}

// NewChatServer starts a hub and an HTTP server upgrading /ws.
func NewChatServer() *ChatServer {
	h := newHub()
	go h.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveConn(h, w, r)
	})
	return &ChatServer{Server: httptest.NewServer(mux), hub: h}
}

// WSURL is the dialable ws:// endpoint.
func (s *ChatServer) WSURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

// History returns the messages recorded for room.
func (s *ChatServer) History(room string) []chat.Message {
	reply := make(chan []chat.Message)
	s.hub.history <- historyReq{room: room, reply: reply}
	return <-reply
}

// Close stops the hub and the HTTP server.
func (s *ChatServer) Close() {
	s.Server.CloseClientConnections()
	s.Server.Close()
	close(s.hub.quit)
}

// ─── Connection ───────────────────────────────────────────────────────────────

type conn struct {
	hub  *hub
	ws   *websocket.Conn
	send chan []byte
	user chat.OnlineUser
	room string
}

type inbound struct {
	from *conn
	env  chat.Envelope
}

func serveConn(h *hub, w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("name") == "" || q.Get("userId") == "" {
		http.Error(w, "name and userId are required", http.StatusBadRequest)
		return
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("chatserver: upgrade failed", "error", err)
		return
	}
	c := &conn{
		hub:  h,
		ws:   ws,
		send: make(chan []byte, 256),
		user: chat.OnlineUser{Name: q.Get("name"), Role: models.Role(q.Get("role")), UserID: q.Get("userId")},
	}
	h.register <- c
	go c.writePump()
	go c.readPump()
}

func (c *conn) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.ws.Close()
	}()
	c.ws.SetReadLimit(maxFrame)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var env chat.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logger.Warn("chatserver: dropping malformed frame", "error", err)
			continue
		}
		select {
		case c.hub.inbound <- inbound{from: c, env: env}:
		case <-c.hub.quit:
			return
		}
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ─── Hub ──────────────────────────────────────────────────────────────────────

type historyReq struct {
	room  string
	reply chan []chat.Message
}

// hub owns every piece of chat state; only run touches it.
type hub struct {
	conns      map[*conn]bool
	rooms      map[string][]chat.Message
	register   chan *conn
	unregister chan *conn
	inbound    chan inbound
	history    chan historyReq
	quit       chan struct{}
}

func newHub() *hub {
	return &hub{
		conns:      map[*conn]bool{},
		rooms:      map[string][]chat.Message{},
		register:   make(chan *conn),
		unregister: make(chan *conn),
		inbound:    make(chan inbound, 256),
		history:    make(chan historyReq),
		quit:       make(chan struct{}),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.conns[c] = true
			h.broadcastPresence()

		case c := <-h.unregister:
			if h.conns[c] {
				delete(h.conns, c)
				close(c.send)
				h.broadcastPresence()
			}

		case in := <-h.inbound:
			h.handle(in)

		case req := <-h.history:
			out := make([]chat.Message, len(h.rooms[req.room]))
			copy(out, h.rooms[req.room])
			req.reply <- out

		case <-h.quit:
			return
		}
	}
}

func (h *hub) handle(in inbound) {
	switch in.env.Event {
	case chat.EventJoinRoom:
		var room string
		if json.Unmarshal(in.env.Data, &room) != nil || room == "" {
			return
		}
		in.from.room = room
		history := h.rooms[room]
		if history == nil {
			history = []chat.Message{}
		}
		h.deliver(in.from, chat.EventLoadMessages, history)

	case chat.EventSendMessage:
		var out chat.Outgoing
		if json.Unmarshal(in.env.Data, &out) != nil || out.RoomID == "" {
			return
		}
		msg := chat.Message{Sender: out.SenderName, Role: out.Role, Message: out.Message, Timestamp: time.Now().UTC()}
		h.rooms[out.RoomID] = append(h.rooms[out.RoomID], msg)
		h.toRoom(out.RoomID, nil, chat.EventReceiveMessage, msg)

	case chat.EventTyping:
		var t chat.TypingNotice
		if json.Unmarshal(in.env.Data, &t) != nil {
			return
		}
		h.toRoom(t.RoomID, in.from, chat.EventTyping, chat.TypingNotice{From: t.From})

	case chat.EventStopTyping:
		var t chat.TypingNotice
		if json.Unmarshal(in.env.Data, &t) != nil {
			return
		}
		h.toRoom(t.RoomID, in.from, chat.EventStopTyping, struct{}{})

	default:
		logger.Debug("chatserver: unknown event", "event", in.env.Event)
	}
}

func (h *hub) broadcastPresence() {
	users := make([]chat.OnlineUser, 0, len(h.conns))
	for c := range h.conns {
		users = append(users, c.user)
	}
	for c := range h.conns {
		h.deliver(c, chat.EventOnlineUsers, users)
	}
}

// toRoom delivers to every member of room except skip.
func (h *hub) toRoom(room string, skip *conn, event string, data interface{}) {
	for c := range h.conns {
		if c.room == room && c != skip {
			h.deliver(c, event, data)
		}
	}
}

func (h *hub) deliver(c *conn, event string, data interface{}) {
	frame, err := chat.Encode(event, data)
	if err != nil {
		logger.Error("chatserver: encode failed", "event", event, "error", err)
		return
	}
	select {
	case c.send <- frame:
	default:
		delete(h.conns, c)
		close(c.send)
	}
}
