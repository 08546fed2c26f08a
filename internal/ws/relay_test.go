package ws

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rswarnkar/converse/internal/models"
)

func TestSendMessage_FanOutToRoomMembers(t *testing.T) {
	hub, store, _ := newTestHub()
	aliceID := store.addUser("alice")
	bobID := store.addUser("bob")
	carolID := store.addUser("carol")
	chatID := store.addChat(aliceID, bobID)

	alicePhone := dial(t, hub, aliceID, "alice")
	aliceLaptop := dial(t, hub, aliceID, "alice")
	bob := dial(t, hub, bobID, "bob")
	carol := dial(t, hub, carolID, "carol")

	for _, c := range []*Client{alicePhone, aliceLaptop, bob} {
		emit(t, hub, c, EventJoinChat, joinChatPayload{ChatID: chatID})
	}
	resetFrames(t, alicePhone, aliceLaptop, bob, carol)

	emit(t, hub, alicePhone, EventSendMessage, sendMessagePayload{
		ChatID:  chatID,
		Content: "hello there",
		Type:    models.MessageText,
	})

	// Every room member gets exactly one copy, including the sender's other
	// device; connections outside the room get nothing.
	for _, c := range []*Client{alicePhone, aliceLaptop, bob} {
		messages := framesNamed(drainFrames(t, c), EventNewMessage)
		require.Len(t, messages, 1)
		msg := decodeFrame[models.Message](t, messages[0])
		assert.Equal(t, chatID, msg.ChatID)
		assert.Equal(t, aliceID, msg.SenderID)
		assert.Equal(t, "hello there", msg.Content)
		assert.Equal(t, "alice", msg.Sender.Name)
	}
	assert.Empty(t, drainFrames(t, carol))
}

func TestSendMessage_RejectedForNonMember(t *testing.T) {
	hub, store, _ := newTestHub()
	aliceID := store.addUser("alice")
	bobID := store.addUser("bob")
	carolID := store.addUser("carol")
	chatID := store.addChat(aliceID, bobID)

	alice := dial(t, hub, aliceID, "alice")
	carol := dial(t, hub, carolID, "carol")
	emit(t, hub, alice, EventJoinChat, joinChatPayload{ChatID: chatID})
	emit(t, hub, carol, EventJoinChat, joinChatPayload{ChatID: chatID})
	resetFrames(t, alice, carol)

	emit(t, hub, carol, EventSendMessage, sendMessagePayload{
		ChatID:  chatID,
		Content: "let me in",
		Type:    models.MessageText,
	})

	failures := framesNamed(drainFrames(t, carol), EventError)
	require.Len(t, failures, 1)
	failure := decodeFrame[errorEvent](t, failures[0])
	assert.Equal(t, EventSendMessage, failure.Event)
	assert.NotEmpty(t, failure.Message)
	assert.Empty(t, framesNamed(drainFrames(t, alice), EventNewMessage))
}

func TestSendMessage_ValidationFailure(t *testing.T) {
	hub, store, _ := newTestHub()
	aliceID := store.addUser("alice")
	alice := dial(t, hub, aliceID, "alice")
	resetFrames(t, alice)

	emit(t, hub, alice, EventSendMessage, map[string]any{"chatId": uuid.New()})

	failures := framesNamed(drainFrames(t, alice), EventError)
	require.Len(t, failures, 1)
	assert.Equal(t, EventSendMessage, decodeFrame[errorEvent](t, failures[0]).Event)
}

func TestTyping_NotifiesOtherRoomMembersOnly(t *testing.T) {
	hub, store, _ := newTestHub()
	aliceID := store.addUser("alice")
	bobID := store.addUser("bob")
	chatID := store.addChat(aliceID, bobID)

	alice := dial(t, hub, aliceID, "alice")
	bob := dial(t, hub, bobID, "bob")
	emit(t, hub, alice, EventJoinChat, joinChatPayload{ChatID: chatID})
	emit(t, hub, bob, EventJoinChat, joinChatPayload{ChatID: chatID})
	resetFrames(t, alice, bob)

	emit(t, hub, alice, EventTyping, chatScopedPayload{ChatID: chatID})

	notices := framesNamed(drainFrames(t, bob), EventUserTyping)
	require.Len(t, notices, 1)
	notice := decodeFrame[typingEvent](t, notices[0])
	assert.Equal(t, aliceID, notice.UserID)
	assert.Equal(t, "alice", notice.UserName)
	assert.Empty(t, framesNamed(drainFrames(t, alice), EventUserTyping), "the typist never hears their own indicator")

	emit(t, hub, alice, EventStopTyping, chatScopedPayload{ChatID: chatID})
	assert.Len(t, framesNamed(drainFrames(t, bob), EventUserStoppedTyping), 1)
}

func TestMarkAsRead_BroadcastsReceiptToRoom(t *testing.T) {
	hub, store, _ := newTestHub()
	aliceID := store.addUser("alice")
	bobID := store.addUser("bob")
	chatID := store.addChat(aliceID, bobID)
	messageID := uuid.New()

	alice := dial(t, hub, aliceID, "alice")
	bob := dial(t, hub, bobID, "bob")
	emit(t, hub, alice, EventJoinChat, joinChatPayload{ChatID: chatID})
	emit(t, hub, bob, EventJoinChat, joinChatPayload{ChatID: chatID})
	resetFrames(t, alice, bob)

	emit(t, hub, bob, EventMarkAsRead, markAsReadPayload{ChatID: chatID, MessageID: messageID})

	for _, c := range []*Client{alice, bob} {
		receipts := framesNamed(drainFrames(t, c), EventMessageRead)
		require.Len(t, receipts, 1)
		receipt := decodeFrame[messageReadEvent](t, receipts[0])
		assert.Equal(t, messageID, receipt.MessageID)
		assert.Equal(t, bobID, receipt.UserID)
		_, err := time.Parse(time.RFC3339, receipt.ReadAt)
		assert.NoError(t, err)
	}
}

func TestHandleFrame_DropsMalformedAndUnknown(t *testing.T) {
	hub, store, _ := newTestHub()
	aliceID := store.addUser("alice")
	alice := dial(t, hub, aliceID, "alice")
	resetFrames(t, alice)

	hub.HandleFrame(context.Background(), alice, []byte("not json"))
	hub.HandleFrame(context.Background(), alice, mustFrame(t, "noSuchEvent", nil))

	assert.Empty(t, drainFrames(t, alice))
}

func TestHandleFrame_IgnoresUnauthenticatedClient(t *testing.T) {
	hub, _, _ := newTestHub()
	ghost := newClient(hub, nopConn{}, uuid.Nil, "")

	hub.HandleFrame(context.Background(), ghost, mustFrame(t, EventJoinChat, joinChatPayload{ChatID: uuid.New()}))

	assert.Empty(t, drainFrames(t, ghost))
	assert.Empty(t, hub.rooms.RoomsOf(ghost))
}

func mustFrame(t *testing.T, event string, payload any) []byte {
	t.Helper()
	frame, err := encodeFrame(event, payload)
	require.NoError(t, err)
	return frame
}

func TestDisconnect_RemovesClientEverywhere(t *testing.T) {
	hub, store, _ := newTestHub()
	aliceID := store.addUser("alice")
	bobID := store.addUser("bob")
	chatID := store.addChat(aliceID, bobID)

	alice := dial(t, hub, aliceID, "alice")
	bob := dial(t, hub, bobID, "bob")
	emit(t, hub, alice, EventJoinChat, joinChatPayload{ChatID: chatID})
	emit(t, hub, bob, EventJoinChat, joinChatPayload{ChatID: chatID})
	resetFrames(t, alice, bob)

	hub.Disconnect(context.Background(), alice)

	assert.False(t, hub.registry.IsOnline(aliceID))
	assert.Empty(t, hub.rooms.RoomsOf(alice))

	// Messages after the disconnect reach only the survivors.
	emit(t, hub, bob, EventSendMessage, sendMessagePayload{ChatID: chatID, Content: "still here", Type: models.MessageText})
	assert.Len(t, framesNamed(drainFrames(t, bob), EventNewMessage), 1)
}
