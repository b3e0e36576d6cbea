// Package chat is the client for the marketplace's real-time channel:
// presence, rooms, messages and typing notices over a WebSocket.
//
//	c, err := chat.Dial(ctx, config.ChatURL(), session.Identity())
//	defer c.Close()
//	c.JoinRoom(chat.GlobalRoom)
//	c.Send(chat.GlobalRoom, "fresh mangoes today")
//
// The server owns presence and history; the client mirrors what it is told
// and publishes every change on its bus.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shashiranjanraj/kisanbazaar/pkg/auth"
	"github.com/shashiranjanraj/kisanbazaar/pkg/event"
	"github.com/shashiranjanraj/kisanbazaar/pkg/logger"
	"github.com/shashiranjanraj/kisanbazaar/pkg/metrics"
)

// Bus topics.
const (
	TopicPresence = "chat.presence" // []OnlineUser
	TopicTyping   = "chat.typing"   // string, empty when nobody types
	TopicMessages = "chat.message"  // []Message, the full room log
)

// TypingIdle is how long after the last keystroke stopTyping is sent.
const TypingIdle = time.Second

const writeWait = 10 * time.Second

var (
	ErrAnonymous    = errors.New("chat: login required")
	ErrEmptyMessage = errors.New("chat: message is empty")
	ErrClosed       = errors.New("chat: connection closed")
)

// Client is one connection to the chat server.
type Client struct {
	me   auth.Identity
	conn *websocket.Conn
	bus  *event.Bus
	log  *slog.Logger

	writeMu sync.Mutex

	mu       sync.RWMutex
	room     string
	online   []OnlineUser
	typing   string
	messages []Message
	idle     *time.Timer

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithBus publishes changes on bus.
func WithBus(bus *event.Bus) Option { return func(c *Client) { c.bus = bus } }

// Dial connects as me. The identity travels in the query string the way the
// server expects it.
func Dial(ctx context.Context, rawURL string, me auth.Identity, opts ...Option) (*Client, error) {
	if me.Anonymous() || me.Name == "" {
		return nil, ErrAnonymous
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("chat: parse url: %w", err)
	}
	q := u.Query()
	q.Set("name", me.Name)
	q.Set("role", string(me.Role))
	q.Set("userId", me.ID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("chat: dial %s: %w", u.Host, err)
	}

	c := &Client{
		me:   me,
		conn: conn,
		log:  logger.L.With("chat_user", me.Name),
		done: make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	if c.bus == nil {
		c.bus = event.New()
	}
	go c.readLoop()
	return c, nil
}

// ─── Outbound ─────────────────────────────────────────────────────────────────

func (c *Client) emit(ev string, data interface{}) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	frame, err := Encode(ev, data)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("chat: send %s: %w", ev, err)
	}
	return nil
}

// JoinRoom switches to room. The server answers with the room's history.
func (c *Client) JoinRoom(room string) error {
	if room == "" {
		room = GlobalRoom
	}
	c.mu.Lock()
	c.room = room
	c.messages = nil
	c.typing = ""
	c.mu.Unlock()
	return c.emit(EventJoinRoom, room)
}

// Send posts text to room and clears the typing notice.
func (c *Client) Send(room, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	err := c.emit(EventSendMessage, Outgoing{
		RoomID:     room,
		SenderName: c.me.Name,
		SenderID:   c.me.ID,
		ReceiverID: ReceiverID(room, c.me.ID),
		Role:       c.me.Role,
		Message:    text,
	})
	if err != nil {
		return err
	}
	return c.StopTyping(room)
}

// Typing tells the room the user is typing. A stopTyping follows
// automatically after TypingIdle without another call.
func (c *Client) Typing(room string) error {
	c.mu.Lock()
	if c.idle != nil {
		c.idle.Stop()
	}
	c.idle = time.AfterFunc(TypingIdle, func() { _ = c.StopTyping(room) })
	c.mu.Unlock()
	return c.emit(EventTyping, TypingNotice{From: c.me.Name, RoomID: room})
}

// StopTyping withdraws the typing notice.
func (c *Client) StopTyping(room string) error {
	c.mu.Lock()
	if c.idle != nil {
		c.idle.Stop()
		c.idle = nil
	}
	c.mu.Unlock()
	return c.emit(EventStopTyping, TypingNotice{RoomID: room})
}

// ─── Inbound ──────────────────────────────────────────────────────────────────

func (c *Client) readLoop() {
	defer c.shutdown()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("chat: connection lost", "error", err)
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warn("chat: dropping malformed frame", "error", err)
			continue
		}
		metrics.ChatEvents.WithLabelValues(env.Event).Inc()
		if err := c.dispatch(env); err != nil {
			c.log.Warn("chat: bad payload", "event", env.Event, "error", err)
		}
	}
}

func (c *Client) dispatch(env Envelope) error {
	switch env.Event {
	case EventOnlineUsers:
		var users []OnlineUser
		if err := json.Unmarshal(env.Data, &users); err != nil {
			return err
		}
		c.mu.Lock()
		c.online = users
		c.mu.Unlock()
		c.bus.Publish(TopicPresence, c.OnlineUsers())

	case EventTyping:
		var t TypingNotice
		if err := json.Unmarshal(env.Data, &t); err != nil {
			return err
		}
		c.setTyping(t.From)

	case EventStopTyping:
		c.setTyping("")

	case EventLoadMessages:
		var msgs []Message
		if err := json.Unmarshal(env.Data, &msgs); err != nil {
			return err
		}
		c.mu.Lock()
		c.messages = msgs
		c.mu.Unlock()
		c.bus.Publish(TopicMessages, c.Messages())

	case EventReceiveMessage:
		var m Message
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return err
		}
		c.mu.Lock()
		c.messages = append(c.messages, m)
		c.mu.Unlock()
		c.bus.Publish(TopicMessages, c.Messages())

	default:
		c.log.Debug("chat: ignoring event", "event", env.Event)
	}
	return nil
}

func (c *Client) setTyping(from string) {
	c.mu.Lock()
	c.typing = from
	c.mu.Unlock()
	c.bus.Publish(TopicTyping, c.TypingUser())
}

// ─── State ────────────────────────────────────────────────────────────────────

// Room is the joined room, empty before JoinRoom.
func (c *Client) Room() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room
}

// OnlineUsers is the last presence list sent by the server.
func (c *Client) OnlineUsers() []OnlineUser {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]OnlineUser, len(c.online))
	copy(out, c.online)
	return out
}

// TypingUser is who is typing in the room, never the user themself.
func (c *Client) TypingUser() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.typing == c.me.Name {
		return ""
	}
	return c.typing
}

// Messages is the room log in arrival order.
func (c *Client) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// IsOwn reports whether m was sent by this user.
func (c *Client) IsOwn(m Message) bool { return m.Sender == c.me.Name }

// Subscribe registers fn for one of the Topic constants.
func (c *Client) Subscribe(topic string, fn event.Handler) (unsubscribe func()) {
	return c.bus.Subscribe(topic, fn)
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close disconnects and forgets presence and typing state.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	err := c.conn.Close()
	c.shutdown()
	return err
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.online = nil
		c.typing = ""
		if c.idle != nil {
			c.idle.Stop()
			c.idle = nil
		}
		c.mu.Unlock()
		c.bus.Publish(TopicPresence, []OnlineUser{})
		c.bus.Publish(TopicTyping, "")
	})
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// PrivateRoomID names the one-to-one room of a and b, the same from either
// side.
func PrivateRoomID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "_" + pair[1]
}

// ReceiverID picks the other party of a private room, or GlobalRoom.
func ReceiverID(room, selfID string) string {
	if room == GlobalRoom {
		return GlobalRoom
	}
	first, second, ok := strings.Cut(room, "_")
	if !ok {
		return first
	}
	if first == selfID {
		return second
	}
	return first
}

// Filter keeps the messages whose sender or role contains term, ignoring
// case. An empty term keeps everything.
func Filter(messages []Message, term string) []Message {
	term = strings.ToLower(term)
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if strings.Contains(strings.ToLower(m.Sender), term) ||
			strings.Contains(strings.ToLower(string(m.Role)), term) {
			out = append(out, m)
		}
	}
	return out
}
