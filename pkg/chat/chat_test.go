package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/auth"
	"github.com/shashiranjanraj/kisanbazaar/pkg/chat"
	"github.com/shashiranjanraj/kisanbazaar/pkg/testkit"
)

const wait = 3 * time.Second
const tick = 10 * time.Millisecond

var (
	asha = auth.Identity{ID: "u1", Name: "Asha", Role: models.RoleBuyer}
	ravi = auth.Identity{ID: "u2", Name: "Ravi", Role: models.RoleFarmer}
)

func dial(t *testing.T, srv *testkit.ChatServer, me auth.Identity) *chat.Client {
	t.Helper()
	c, err := chat.Dial(context.Background(), srv.WSURL(), me)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// join enters room and waits for the server's history replay.
func join(t *testing.T, c *chat.Client, room string) {
	t.Helper()
	loaded := make(chan struct{}, 1)
	unsub := c.Subscribe(chat.TopicMessages, func(interface{}) {
		select {
		case loaded <- struct{}{}:
		default:
		}
	})
	defer unsub()
	require.NoError(t, c.JoinRoom(room))
	select {
	case <-loaded:
	case <-time.After(wait):
		t.Fatalf("no history for room %s", room)
	}
}

func TestDialRequiresIdentity(t *testing.T) {
	_, err := chat.Dial(context.Background(), "ws://127.0.0.1:1/ws", auth.Identity{})
	assert.ErrorIs(t, err, chat.ErrAnonymous)
}

func TestPresence(t *testing.T) {
	srv := testkit.NewChatServer()
	defer srv.Close()

	a := dial(t, srv, asha)
	b := dial(t, srv, ravi)

	assert.Eventually(t, func() bool { return len(a.OnlineUsers()) == 2 }, wait, tick)
	assert.Eventually(t, func() bool { return len(b.OnlineUsers()) == 2 }, wait, tick)

	require.NoError(t, b.Close())
	assert.Eventually(t, func() bool { return len(a.OnlineUsers()) == 1 }, wait, tick)
	assert.Empty(t, b.OnlineUsers())
	<-b.Done()
}

func TestMessagesAndHistory(t *testing.T) {
	srv := testkit.NewChatServer()
	defer srv.Close()

	a := dial(t, srv, asha)
	b := dial(t, srv, ravi)
	join(t, a, chat.GlobalRoom)
	join(t, b, chat.GlobalRoom)

	assert.ErrorIs(t, a.Send(chat.GlobalRoom, "   "), chat.ErrEmptyMessage)
	require.NoError(t, a.Send(chat.GlobalRoom, "fresh tomatoes"))

	assert.Eventually(t, func() bool { return len(b.Messages()) == 1 }, wait, tick)
	assert.Eventually(t, func() bool { return len(a.Messages()) == 1 }, wait, tick)
	got := b.Messages()[0]
	assert.Equal(t, "Asha", got.Sender)
	assert.Equal(t, models.RoleBuyer, got.Role)
	assert.Equal(t, "fresh tomatoes", got.Message)
	assert.False(t, got.Timestamp.IsZero())
	assert.True(t, a.IsOwn(got))
	assert.False(t, b.IsOwn(got))

	late := dial(t, srv, auth.Identity{ID: "u3", Name: "Meena", Role: models.RoleAdmin})
	join(t, late, chat.GlobalRoom)
	require.Len(t, late.Messages(), 1)
	assert.Len(t, srv.History(chat.GlobalRoom), 1)
}

func TestRoomsAreIsolated(t *testing.T) {
	srv := testkit.NewChatServer()
	defer srv.Close()

	a := dial(t, srv, asha)
	b := dial(t, srv, ravi)
	private := chat.PrivateRoomID(asha.ID, ravi.ID)
	join(t, a, private)
	join(t, b, chat.GlobalRoom)

	require.NoError(t, a.Send(private, "price for 50kg?"))

	assert.Eventually(t, func() bool { return len(srv.History(private)) == 1 }, wait, tick)
	assert.Empty(t, b.Messages())
	assert.Empty(t, srv.History(chat.GlobalRoom))
}

func TestTypingNotices(t *testing.T) {
	srv := testkit.NewChatServer()
	defer srv.Close()

	a := dial(t, srv, asha)
	b := dial(t, srv, ravi)
	join(t, a, chat.GlobalRoom)
	join(t, b, chat.GlobalRoom)

	require.NoError(t, a.Typing(chat.GlobalRoom))
	assert.Eventually(t, func() bool { return b.TypingUser() == "Asha" }, wait, tick)
	assert.Empty(t, a.TypingUser())

	require.NoError(t, a.StopTyping(chat.GlobalRoom))
	assert.Eventually(t, func() bool { return b.TypingUser() == "" }, wait, tick)

	// Without an explicit stop the notice lapses on its own.
	require.NoError(t, a.Typing(chat.GlobalRoom))
	assert.Eventually(t, func() bool { return b.TypingUser() == "Asha" }, wait, tick)
	assert.Eventually(t, func() bool { return b.TypingUser() == "" }, wait, tick)
}

func TestPrivateRoomID(t *testing.T) {
	assert.Equal(t, "Asha_Ravi", chat.PrivateRoomID("Ravi", "Asha"))
	assert.Equal(t, chat.PrivateRoomID("x", "y"), chat.PrivateRoomID("y", "x"))
}

func TestReceiverID(t *testing.T) {
	assert.Equal(t, chat.GlobalRoom, chat.ReceiverID(chat.GlobalRoom, "u1"))
	assert.Equal(t, "u2", chat.ReceiverID("u1_u2", "u1"))
	assert.Equal(t, "u1", chat.ReceiverID("u1_u2", "u2"))
}

func TestFilter(t *testing.T) {
	msgs := []chat.Message{
		{Sender: "Asha", Role: models.RoleBuyer, Message: "hi"},
		{Sender: "Ravi", Role: models.RoleFarmer, Message: "hello"},
		{Sender: "Meena", Message: "no role"},
	}

	assert.Len(t, chat.Filter(msgs, ""), 3)
	assert.Equal(t, "Ravi", chat.Filter(msgs, "FARM")[0].Sender)
	assert.Equal(t, "Asha", chat.Filter(msgs, "ash")[0].Sender)
	assert.Empty(t, chat.Filter(msgs, "admin"))
}
