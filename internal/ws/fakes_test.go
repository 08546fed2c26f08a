package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/rswarnkar/converse/internal/models"
)

// nopConn satisfies wireConn for tests that never run the pumps.
type nopConn struct{}

func (nopConn) ReadMessage() (int, []byte, error)  { return 0, nil, errors.New("closed") }
func (nopConn) WriteMessage(int, []byte) error     { return nil }
func (nopConn) Close() error                       { return nil }

// fakeStore is an in-memory ChatStore. Chat membership is seeded per test;
// everything else mirrors the storage semantics the hub depends on.
type fakeStore struct {
	mu       sync.Mutex
	chats    map[uuid.UUID][]uuid.UUID
	users    map[uuid.UUID]models.UserSummary
	statuses map[uuid.UUID]models.UserStatus
	sendErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		chats:    make(map[uuid.UUID][]uuid.UUID),
		users:    make(map[uuid.UUID]models.UserSummary),
		statuses: make(map[uuid.UUID]models.UserStatus),
	}
}

func (f *fakeStore) addUser(name string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.users[id] = models.UserSummary{ID: id, Name: name}
	return id
}

func (f *fakeStore) addChat(members ...uuid.UUID) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.chats[id] = members
	return id
}

func (f *fakeStore) SendMessage(ctx context.Context, chatID, senderID uuid.UUID, content string, msgType models.MessageType) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return nil, f.sendErr
	}
	members, ok := f.chats[chatID]
	if !ok {
		return nil, errors.New("chat not found")
	}
	if !lo.Contains(members, senderID) {
		return nil, errors.New("sender is not a chat member")
	}
	return &models.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		Type:      msgType,
		Sender:    f.users[senderID],
		CreatedAt: time.Now(),
	}, nil
}

func (f *fakeStore) MarkMessageAsRead(ctx context.Context, messageID, userID uuid.UUID) (*models.MessageReceipt, error) {
	return &models.MessageReceipt{
		ID:        uuid.New(),
		MessageID: messageID,
		UserID:    userID,
		ReadAt:    time.Now(),
	}, nil
}

func (f *fakeStore) UpdateUserStatus(ctx context.Context, userID uuid.UUID, status models.UserStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[userID] = status
	return nil
}

func (f *fakeStore) OnlineUsers(ctx context.Context) ([]models.UserPresence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.UserPresence, 0, len(f.statuses))
	for id, status := range f.statuses {
		if status == models.StatusOffline {
			continue
		}
		out = append(out, models.UserPresence{UserID: id, Status: status})
	}
	return out, nil
}

func (f *fakeStore) ChatParticipants(ctx context.Context, chatID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	members, ok := f.chats[chatID]
	if !ok {
		return nil, errors.New("chat not found")
	}
	return members, nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	summary, ok := f.users[userID]
	if !ok {
		return nil, errors.New("user not found")
	}
	return &summary, nil
}

func (f *fakeStore) statusOf(userID uuid.UUID) models.UserStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	status, ok := f.statuses[userID]
	if !ok {
		return models.StatusOffline
	}
	return status
}

// fakeCallStore records call lifecycle transitions in memory.
type fakeCallStore struct {
	mu      sync.Mutex
	records []*models.CallRecord
}

func newFakeCallStore() *fakeCallStore {
	return &fakeCallStore{}
}

func (f *fakeCallStore) CreateCallRecord(ctx context.Context, record *models.CallRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	record.ID = uuid.New()
	record.CreatedAt = time.Now()
	stored := *record
	f.records = append(f.records, &stored)
	return nil
}

func (f *fakeCallStore) UpdateCallStatus(ctx context.Context, id uuid.UUID, status models.CallStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, record := range f.records {
		if record.ID == id {
			record.Status = status
			return nil
		}
	}
	return fmt.Errorf("call record %s not found", id)
}

func (f *fakeCallStore) lastRecord() *models.CallRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.records) == 0 {
		return nil
	}
	copied := *f.records[len(f.records)-1]
	return &copied
}

func newTestHub() (*Hub, *fakeStore, *fakeCallStore) {
	store := newFakeStore()
	calls := newFakeCallStore()
	return NewHub(store, calls), store, calls
}

// dial registers a fresh connection for the user and discards the
// connect-time presence traffic so tests start from a clean slate.
func dial(t *testing.T, h *Hub, userID uuid.UUID, name string) *Client {
	t.Helper()
	c := newClient(h, nopConn{}, userID, "+15550000000")
	c.Name = name
	h.Connect(context.Background(), c)
	return c
}

// emit feeds one inbound frame through the hub on behalf of the client.
func emit(t *testing.T, h *Hub, c *Client, event string, payload any) {
	t.Helper()
	frame, err := encodeFrame(event, payload)
	require.NoError(t, err)
	h.HandleFrame(context.Background(), c, frame)
}

// drainFrames empties the client's outbound queue and returns the decoded
// envelopes, in delivery order.
func drainFrames(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var out []Envelope
	for {
		select {
		case frame := <-c.send:
			var env Envelope
			require.NoError(t, json.Unmarshal(frame, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func framesNamed(frames []Envelope, event string) []Envelope {
	return lo.Filter(frames, func(env Envelope, _ int) bool {
		return env.Event == event
	})
}

func decodeFrame[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// resetFrames discards everything queued so far on each client.
func resetFrames(t *testing.T, clients ...*Client) {
	t.Helper()
	for _, c := range clients {
		drainFrames(t, c)
	}
}
