package ws

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/rswarnkar/converse/internal/models"
)

const callRoomPrefix = "call:"

func callRoomID(chatID uuid.UUID) string {
	return callRoomPrefix + chatID.String()
}

// CallStore persists call-record lifecycle transitions.
type CallStore interface {
	CreateCallRecord(ctx context.Context, record *models.CallRecord) error
	UpdateCallStatus(ctx context.Context, id uuid.UUID, status models.CallStatus) error
}

// ChatDirectory resolves chat membership and user display fields for call
// notifications.
type ChatDirectory interface {
	ChatParticipants(ctx context.Context, chatID uuid.UUID) ([]uuid.UUID, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.UserSummary, error)
}

// callSession is the in-memory record of one call attempt on a conversation.
// At most one exists per chat id; a new initiate replaces any prior one.
type callSession struct {
	recordID  uuid.UUID
	callerID  uuid.UUID
	targetID  *uuid.UUID
	isVideo   bool
	accepted  bool
	startedAt time.Time
}

// CallSignaler owns the call life-cycle state machine per conversation:
// Idle -> Ringing -> Accepted | Rejected | Cancelled -> Idle. Negotiation
// payloads (offer/answer/ICE) are relayed point-to-point within the call
// room, never broadcast.
type CallSignaler struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*callSession

	registry *Registry
	rooms    *RoomTracker
	store    CallStore
	dir      ChatDirectory
}

func NewCallSignaler(registry *Registry, rooms *RoomTracker, store CallStore, dir ChatDirectory) *CallSignaler {
	return &CallSignaler{
		sessions: make(map[uuid.UUID]*callSession),
		registry: registry,
		rooms:    rooms,
		store:    store,
		dir:      dir,
	}
}

// Initiate starts ringing a conversation. For 1:1 chats the other
// participant becomes the call target; group chats ring every participant.
// The persisted record starts as MISSED and is flipped on acceptance. A
// prior session for the chat is replaced: last initiate wins.
func (s *CallSignaler) Initiate(ctx context.Context, c *Client, chatID uuid.UUID, isVideo bool) error {
	participants, err := s.dir.ChatParticipants(ctx, chatID)
	if err != nil {
		return fmt.Errorf("failed to resolve chat participants: %w", err)
	}
	if len(participants) == 0 {
		return fmt.Errorf("chat %s not found", chatID)
	}

	others := lo.Filter(participants, func(id uuid.UUID, _ int) bool {
		return id != c.UserID
	})

	var targetID *uuid.UUID
	if len(participants) == 2 && len(others) == 1 {
		targetID = &others[0]
	}

	record := &models.CallRecord{
		ChatID:   chatID,
		CallerID: c.UserID,
		TargetID: targetID,
		IsVideo:  isVideo,
		Status:   models.CallMissed,
	}
	if err := s.store.CreateCallRecord(ctx, record); err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[chatID] = &callSession{
		recordID:  record.ID,
		callerID:  c.UserID,
		targetID:  targetID,
		isVideo:   isVideo,
		startedAt: time.Now(),
	}
	s.mu.Unlock()

	notice := incomingCallEvent{
		ChatID:   chatID,
		CallerID: c.UserID,
		IsVideo:  isVideo,
	}
	if caller, err := s.dir.GetUserByID(ctx, c.UserID); err == nil {
		notice.CallerName = caller.Name
		notice.CallerAvatar = caller.Avatar
	}

	for _, peer := range s.ringTargets(chatID, c.UserID, others) {
		peer.Send(EventIncomingCall, notice)
	}
	return nil
}

// ringTargets resolves every connection that should hear the ring: sockets
// already joined to the chat room, plus every live connection of each chat
// participant. A recipient may be reachable by user-id lookup without having
// joined the chat room yet, so both paths are needed.
func (s *CallSignaler) ringTargets(chatID, callerID uuid.UUID, others []uuid.UUID) []*Client {
	var peers []*Client
	for _, member := range s.rooms.MembersOf(chatID.String()) {
		if member.UserID != callerID {
			peers = append(peers, member)
		}
	}
	for _, userID := range others {
		peers = append(peers, s.registry.ConnectionsFor(userID)...)
	}
	return lo.UniqBy(peers, func(c *Client) uuid.UUID { return c.ID })
}

// Accept moves a ringing session to Accepted: the record becomes COMPLETED
// and only the caller's connections are notified. A stale accept for a chat
// with no session is dropped.
func (s *CallSignaler) Accept(ctx context.Context, c *Client, chatID, callerID uuid.UUID) error {
	s.mu.Lock()
	sess := s.sessions[chatID]
	if sess == nil || sess.callerID != callerID {
		s.mu.Unlock()
		return nil
	}
	sess.accepted = true
	recordID := sess.recordID
	s.mu.Unlock()

	if err := s.store.UpdateCallStatus(ctx, recordID, models.CallCompleted); err != nil {
		return err
	}

	for _, peer := range s.registry.ConnectionsFor(callerID) {
		peer.Send(EventCallAccepted, callAcceptedEvent{ChatID: chatID, AcceptedBy: c.UserID})
	}
	return nil
}

// Reject terminates a ringing session: record becomes REJECTED, the session
// is cleared, and only the caller is notified.
func (s *CallSignaler) Reject(ctx context.Context, c *Client, chatID, callerID uuid.UUID) error {
	s.mu.Lock()
	sess := s.sessions[chatID]
	if sess == nil || sess.callerID != callerID {
		s.mu.Unlock()
		return nil
	}
	delete(s.sessions, chatID)
	recordID := sess.recordID
	s.mu.Unlock()

	if err := s.store.UpdateCallStatus(ctx, recordID, models.CallRejected); err != nil {
		return err
	}

	for _, peer := range s.registry.ConnectionsFor(callerID) {
		peer.Send(EventCallRejected, callRejectedEvent{ChatID: chatID, RejectedBy: c.UserID})
	}
	return nil
}

// Cancel is the caller withdrawing a ring: record becomes CANCELLED, the
// session is cleared, and every other chat participant is notified.
func (s *CallSignaler) Cancel(ctx context.Context, c *Client, chatID uuid.UUID) error {
	s.mu.Lock()
	sess := s.sessions[chatID]
	if sess == nil {
		s.mu.Unlock()
		return nil
	}
	delete(s.sessions, chatID)
	recordID := sess.recordID
	s.mu.Unlock()

	if err := s.store.UpdateCallStatus(ctx, recordID, models.CallCancelled); err != nil {
		return err
	}

	participants, err := s.dir.ChatParticipants(ctx, chatID)
	if err != nil {
		return fmt.Errorf("failed to resolve chat participants: %w", err)
	}
	for _, userID := range participants {
		if userID == c.UserID {
			continue
		}
		for _, peer := range s.registry.ConnectionsFor(userID) {
			peer.Send(EventCallCancelled, callCancelledEvent{ChatID: chatID})
		}
	}
	return nil
}

// JoinRoom admits the connection to the call room. The joiner receives the
// existing participant list; each existing participant gets a targeted
// userJoinedCall, not a broadcast.
func (s *CallSignaler) JoinRoom(c *Client, chatID uuid.UUID) {
	room := callRoomID(chatID)

	existing := lo.Filter(s.rooms.MembersOf(room), func(peer *Client, _ int) bool {
		return peer.UserID != c.UserID
	})
	existingUsers := lo.Uniq(lo.Map(existing, func(peer *Client, _ int) uuid.UUID {
		return peer.UserID
	}))

	s.rooms.Join(room, c)

	c.Send(EventExistingParticipants, existingUsers)
	for _, peer := range existing {
		peer.Send(EventUserJoinedCall, c.UserID)
	}
}

// LeaveRoom removes the connection from the call room and tells the
// remaining members. The session is cleared once the room empties.
func (s *CallSignaler) LeaveRoom(c *Client, chatID uuid.UUID) {
	room := callRoomID(chatID)
	remaining := s.rooms.Leave(room, c)

	for _, peer := range s.rooms.MembersOf(room) {
		peer.Send(EventUserLeftCall, c.UserID)
	}

	if remaining == 0 {
		s.mu.Lock()
		delete(s.sessions, chatID)
		s.mu.Unlock()
	}
}

// HandleDeparture runs the call-side cleanup for a room the disconnecting
// client was removed from.
func (s *CallSignaler) HandleDeparture(roomID string, c *Client) {
	if !strings.HasPrefix(roomID, callRoomPrefix) {
		return
	}
	chatID, err := uuid.Parse(strings.TrimPrefix(roomID, callRoomPrefix))
	if err != nil {
		return
	}

	members := s.rooms.MembersOf(roomID)
	for _, peer := range members {
		peer.Send(EventUserLeftCall, c.UserID)
	}
	if len(members) == 0 {
		s.mu.Lock()
		delete(s.sessions, chatID)
		s.mu.Unlock()
	}
}

// RelaySignal forwards a negotiation payload to the target user's
// connections within the call room only. A missing target is a silent drop:
// negotiation payloads are never queued for offline or late-joining peers.
func (s *CallSignaler) RelaySignal(c *Client, event string, payload signalPayload) {
	relay := signalRelayEvent{
		FromUserID: c.UserID,
		Offer:      payload.Offer,
		Answer:     payload.Answer,
		Candidate:  payload.Candidate,
	}

	for _, peer := range s.rooms.MembersOf(callRoomID(payload.ChatID)) {
		if peer.UserID == payload.TargetUserID {
			peer.Send(event, relay)
		}
	}
}

// ScreenShare notifies the other call-room members that the client toggled
// screen sharing. No persisted state changes.
func (s *CallSignaler) ScreenShare(c *Client, event string, chatID uuid.UUID) {
	for _, peer := range s.rooms.OtherMembers(callRoomID(chatID), c) {
		peer.Send(event, screenShareEvent{ChatID: chatID, UserID: c.UserID})
	}
}

// ActiveSession reports whether a call session currently exists for the
// chat. Exposed for observability endpoints.
func (s *CallSignaler) ActiveSession(chatID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[chatID] != nil
}
