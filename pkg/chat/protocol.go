package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
)

// Event names on the wire.
const (
	EventJoinRoom       = "joinRoom"
	EventSendMessage    = "sendMessage"
	EventTyping         = "typing"
	EventStopTyping     = "stopTyping"
	EventOnlineUsers    = "onlineUsers"
	EventLoadMessages   = "loadMessages"
	EventReceiveMessage = "receiveMessage"
)

// GlobalRoom is the room every participant can join.
const GlobalRoom = "global"

// Envelope frames every event exchanged with the chat server.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode frames data under event.
func Encode(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("chat: encode %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// OnlineUser is a presence entry.
type OnlineUser struct {
	Name   string      `json:"name"`
	Role   models.Role `json:"role"`
	UserID string      `json:"userId,omitempty"`
}

// Message is a chat line as delivered by the server.
type Message struct {
	Sender    string      `json:"sender"`
	Role      models.Role `json:"role,omitempty"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// Outgoing is the sendMessage payload. The receiver field keeps the
// server's spelling.
type Outgoing struct {
	RoomID     string      `json:"roomId"`
	SenderName string      `json:"senderName"`
	SenderID   string      `json:"senderId"`
	ReceiverID string      `json:"recieverId"`
	Role       models.Role `json:"role"`
	Message    string      `json:"message"`
}

// TypingNotice is the typing / stopTyping payload.
type TypingNotice struct {
	From   string `json:"from,omitempty"`
	RoomID string `json:"roomId,omitempty"`
}
