package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rswarnkar/converse/internal/models"
)

func TestCallSignaler_DirectCallAccepted(t *testing.T) {
	hub, store, calls := newTestHub()
	aliceID := store.addUser("alice")
	bobID := store.addUser("bob")
	chatID := store.addChat(aliceID, bobID)

	alice := dial(t, hub, aliceID, "alice")
	bob := dial(t, hub, bobID, "bob")
	resetFrames(t, alice, bob)

	// ACT: Alice rings the conversation.
	emit(t, hub, alice, EventInitiateCall, initiateCallPayload{ChatID: chatID, IsVideo: true})

	rings := framesNamed(drainFrames(t, bob), EventIncomingCall)
	require.Len(t, rings, 1)
	ring := decodeFrame[incomingCallEvent](t, rings[0])
	assert.Equal(t, chatID, ring.ChatID)
	assert.Equal(t, aliceID, ring.CallerID)
	assert.Equal(t, "alice", ring.CallerName)
	assert.True(t, ring.IsVideo)
	assert.Empty(t, framesNamed(drainFrames(t, alice), EventIncomingCall), "the caller never rings themselves")

	record := calls.lastRecord()
	require.NotNil(t, record)
	assert.Equal(t, models.CallMissed, record.Status, "a ringing call is missed until accepted")
	require.NotNil(t, record.TargetID)
	assert.Equal(t, bobID, *record.TargetID)

	// ACT: Bob accepts.
	emit(t, hub, bob, EventAcceptCall, callReplyPayload{ChatID: chatID, CallerID: aliceID})

	accepts := framesNamed(drainFrames(t, alice), EventCallAccepted)
	require.Len(t, accepts, 1)
	accept := decodeFrame[callAcceptedEvent](t, accepts[0])
	assert.Equal(t, bobID, accept.AcceptedBy)
	assert.Empty(t, framesNamed(drainFrames(t, bob), EventCallAccepted))
	assert.Equal(t, models.CallCompleted, calls.lastRecord().Status)
}

func TestCallSignaler_RejectClearsSession(t *testing.T) {
	hub, store, calls := newTestHub()
	aliceID := store.addUser("alice")
	bobID := store.addUser("bob")
	chatID := store.addChat(aliceID, bobID)

	alice := dial(t, hub, aliceID, "alice")
	bob := dial(t, hub, bobID, "bob")
	emit(t, hub, alice, EventInitiateCall, initiateCallPayload{ChatID: chatID})
	resetFrames(t, alice, bob)

	emit(t, hub, bob, EventRejectCall, callReplyPayload{ChatID: chatID, CallerID: aliceID})

	rejects := framesNamed(drainFrames(t, alice), EventCallRejected)
	require.Len(t, rejects, 1)
	assert.Equal(t, bobID, decodeFrame[callRejectedEvent](t, rejects[0]).RejectedBy)
	assert.Equal(t, models.CallRejected, calls.lastRecord().Status)
	assert.False(t, hub.signals.ActiveSession(chatID))

	// A stale accept after the rejection is a silent no-op.
	resetFrames(t, alice, bob)
	emit(t, hub, bob, EventAcceptCall, callReplyPayload{ChatID: chatID, CallerID: aliceID})
	assert.Empty(t, framesNamed(drainFrames(t, alice), EventCallAccepted))
	assert.Equal(t, models.CallRejected, calls.lastRecord().Status)
}

func TestCallSignaler_CancelNotifiesCallees(t *testing.T) {
	hub, store, calls := newTestHub()
	aliceID := store.addUser("alice")
	bobID := store.addUser("bob")
	chatID := store.addChat(aliceID, bobID)

	alice := dial(t, hub, aliceID, "alice")
	bob := dial(t, hub, bobID, "bob")
	emit(t, hub, alice, EventInitiateCall, initiateCallPayload{ChatID: chatID})
	resetFrames(t, alice, bob)

	emit(t, hub, alice, EventCancelCall, chatScopedPayload{ChatID: chatID})

	cancels := framesNamed(drainFrames(t, bob), EventCallCancelled)
	require.Len(t, cancels, 1)
	assert.Equal(t, chatID, decodeFrame[callCancelledEvent](t, cancels[0]).ChatID)
	assert.Empty(t, framesNamed(drainFrames(t, alice), EventCallCancelled))
	assert.Equal(t, models.CallCancelled, calls.lastRecord().Status)
	assert.False(t, hub.signals.ActiveSession(chatID))
}

func TestCallSignaler_GroupCallRingsEveryParticipant(t *testing.T) {
	hub, store, calls := newTestHub()
	aliceID := store.addUser("alice")
	bobID := store.addUser("bob")
	carolID := store.addUser("carol")
	chatID := store.addChat(aliceID, bobID, carolID)

	alice := dial(t, hub, aliceID, "alice")
	bob := dial(t, hub, bobID, "bob")
	carolPhone := dial(t, hub, carolID, "carol")
	carolLaptop := dial(t, hub, carolID, "carol")
	resetFrames(t, alice, bob, carolPhone, carolLaptop)

	emit(t, hub, alice, EventInitiateCall, initiateCallPayload{ChatID: chatID, IsVideo: true})

	for _, c := range []*Client{bob, carolPhone, carolLaptop} {
		assert.Len(t, framesNamed(drainFrames(t, c), EventIncomingCall), 1, "each callee connection rings exactly once")
	}
	assert.Nil(t, calls.lastRecord().TargetID, "group calls have no single target")
}

func TestCallSignaler_LastInitiateWins(t *testing.T) {
	hub, store, calls := newTestHub()
	aliceID := store.addUser("alice")
	bobID := store.addUser("bob")
	chatID := store.addChat(aliceID, bobID)

	alice := dial(t, hub, aliceID, "alice")
	bob := dial(t, hub, bobID, "bob")
	emit(t, hub, alice, EventInitiateCall, initiateCallPayload{ChatID: chatID})
	firstRecord := calls.lastRecord().ID
	emit(t, hub, bob, EventInitiateCall, initiateCallPayload{ChatID: chatID})
	resetFrames(t, alice, bob)

	// Accepting the superseded attempt does nothing; accepting the live one
	// completes it.
	emit(t, hub, bob, EventAcceptCall, callReplyPayload{ChatID: chatID, CallerID: aliceID})
	assert.Empty(t, framesNamed(drainFrames(t, alice), EventCallAccepted))

	emit(t, hub, alice, EventAcceptCall, callReplyPayload{ChatID: chatID, CallerID: bobID})
	assert.Len(t, framesNamed(drainFrames(t, bob), EventCallAccepted), 1)
	assert.Equal(t, models.CallCompleted, calls.lastRecord().Status)
	assert.NotEqual(t, firstRecord, calls.lastRecord().ID)
}

func TestCallSignaler_JoinRoomHandshake(t *testing.T) {
	hub, store, _ := newTestHub()
	aliceID := store.addUser("alice")
	bobID := store.addUser("bob")
	chatID := store.addChat(aliceID, bobID)

	alice := dial(t, hub, aliceID, "alice")
	bob := dial(t, hub, bobID, "bob")
	resetFrames(t, alice, bob)

	emit(t, hub, alice, EventJoinCall, chatScopedPayload{ChatID: chatID})

	existing := framesNamed(drainFrames(t, alice), EventExistingParticipants)
	require.Len(t, existing, 1)
	assert.Empty(t, decodeFrame[[]uuid.UUID](t, existing[0]), "first joiner sees an empty room")

	emit(t, hub, bob, EventJoinCall, chatScopedPayload{ChatID: chatID})

	existing = framesNamed(drainFrames(t, bob), EventExistingParticipants)
	require.Len(t, existing, 1)
	assert.Equal(t, []uuid.UUID{aliceID}, decodeFrame[[]uuid.UUID](t, existing[0]))

	joined := framesNamed(drainFrames(t, alice), EventUserJoinedCall)
	require.Len(t, joined, 1)
	assert.Equal(t, bobID, decodeFrame[uuid.UUID](t, joined[0]))
}

func TestCallSignaler_RelayReachesTargetOnly(t *testing.T) {
	hub, store, _ := newTestHub()
	aliceID := store.addUser("alice")
	bobID := store.addUser("bob")
	carolID := store.addUser("carol")
	chatID := store.addChat(aliceID, bobID, carolID)

	alice := dial(t, hub, aliceID, "alice")
	bob := dial(t, hub, bobID, "bob")
	carol := dial(t, hub, carolID, "carol")
	for _, c := range []*Client{alice, bob, carol} {
		emit(t, hub, c, EventJoinCall, chatScopedPayload{ChatID: chatID})
	}
	resetFrames(t, alice, bob, carol)

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	emit(t, hub, alice, EventOffer, signalPayload{ChatID: chatID, TargetUserID: bobID, Offer: offer})

	offers := framesNamed(drainFrames(t, bob), EventOffer)
	require.Len(t, offers, 1)
	relayed := decodeFrame[signalRelayEvent](t, offers[0])
	assert.Equal(t, aliceID, relayed.FromUserID)
	assert.JSONEq(t, string(offer), string(relayed.Offer))
	assert.Empty(t, drainFrames(t, carol), "negotiation payloads are never broadcast to bystanders")
	assert.Empty(t, drainFrames(t, alice))

	candidate := json.RawMessage(`{"candidate":"candidate:1"}`)
	emit(t, hub, bob, EventIceCandidate, signalPayload{ChatID: chatID, TargetUserID: aliceID, Candidate: candidate})
	ice := framesNamed(drainFrames(t, alice), EventIceCandidate)
	require.Len(t, ice, 1)
	assert.JSONEq(t, string(candidate), string(decodeFrame[signalRelayEvent](t, ice[0]).Candidate))
}

func TestCallSignaler_RelayDropsTargetOutsideRoom(t *testing.T) {
	hub, store, _ := newTestHub()
	aliceID := store.addUser("alice")
	bobID := store.addUser("bob")
	chatID := store.addChat(aliceID, bobID)

	alice := dial(t, hub, aliceID, "alice")
	bob := dial(t, hub, bobID, "bob")
	emit(t, hub, alice, EventJoinCall, chatScopedPayload{ChatID: chatID})
	resetFrames(t, alice, bob)

	// Bob is online but never joined the call room.
	emit(t, hub, alice, EventOffer, signalPayload{ChatID: chatID, TargetUserID: bobID, Offer: json.RawMessage(`{}`)})

	assert.Empty(t, drainFrames(t, bob))
}

func TestCallSignaler_LeaveAndDisconnectCleanup(t *testing.T) {
	hub, store, _ := newTestHub()
	aliceID := store.addUser("alice")
	bobID := store.addUser("bob")
	chatID := store.addChat(aliceID, bobID)

	alice := dial(t, hub, aliceID, "alice")
	bob := dial(t, hub, bobID, "bob")
	emit(t, hub, alice, EventInitiateCall, initiateCallPayload{ChatID: chatID})
	emit(t, hub, alice, EventJoinCall, chatScopedPayload{ChatID: chatID})
	emit(t, hub, bob, EventJoinCall, chatScopedPayload{ChatID: chatID})
	resetFrames(t, alice, bob)

	// Bob drops without a leaveCall frame.
	hub.Disconnect(context.Background(), bob)

	left := framesNamed(drainFrames(t, alice), EventUserLeftCall)
	require.Len(t, left, 1)
	assert.Equal(t, bobID, decodeFrame[uuid.UUID](t, left[0]))
	assert.True(t, hub.signals.ActiveSession(chatID), "session survives while the room is occupied")

	emit(t, hub, alice, EventLeaveCall, chatScopedPayload{ChatID: chatID})

	assert.False(t, hub.signals.ActiveSession(chatID), "session clears once the room empties")
}

func TestCallSignaler_ScreenShareNotifiesOthers(t *testing.T) {
	hub, store, _ := newTestHub()
	aliceID := store.addUser("alice")
	bobID := store.addUser("bob")
	chatID := store.addChat(aliceID, bobID)

	alice := dial(t, hub, aliceID, "alice")
	bob := dial(t, hub, bobID, "bob")
	emit(t, hub, alice, EventJoinCall, chatScopedPayload{ChatID: chatID})
	emit(t, hub, bob, EventJoinCall, chatScopedPayload{ChatID: chatID})
	resetFrames(t, alice, bob)

	emit(t, hub, alice, EventScreenShareStarted, chatScopedPayload{ChatID: chatID})

	started := framesNamed(drainFrames(t, bob), EventScreenShareStarted)
	require.Len(t, started, 1)
	assert.Equal(t, aliceID, decodeFrame[screenShareEvent](t, started[0]).UserID)
	assert.Empty(t, framesNamed(drainFrames(t, alice), EventScreenShareStarted))

	emit(t, hub, alice, EventScreenShareStopped, chatScopedPayload{ChatID: chatID})
	assert.Len(t, framesNamed(drainFrames(t, bob), EventScreenShareStopped), 1)
}

func TestCallSignaler_InitiateUnknownChatRejected(t *testing.T) {
	hub, store, calls := newTestHub()
	aliceID := store.addUser("alice")
	alice := dial(t, hub, aliceID, "alice")
	resetFrames(t, alice)

	emit(t, hub, alice, EventInitiateCall, initiateCallPayload{ChatID: uuid.New()})

	failures := framesNamed(drainFrames(t, alice), EventError)
	require.Len(t, failures, 1)
	assert.Equal(t, EventInitiateCall, decodeFrame[errorEvent](t, failures[0]).Event)
	assert.Nil(t, calls.lastRecord())
}
