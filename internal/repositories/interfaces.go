package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rswarnkar/converse/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus, lastSeen *time.Time) error
	GetOnlineUsers(ctx context.Context) ([]models.UserPresence, error)
}

type ChatRepository interface {
	Create(ctx context.Context, userID, otherUserID uuid.UUID) (*models.Chat, error)
	CreateGroup(ctx context.Context, userIDs []uuid.UUID, name string) (*models.Chat, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	GetParticipantIDs(ctx context.Context, chatID uuid.UUID) ([]uuid.UUID, error)
	IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID, archived bool) ([]*models.Chat, error)
	SetArchived(ctx context.Context, chatID uuid.UUID, archived bool) error
}

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	ListByChat(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error)
	AddReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (*models.Reaction, error)
	RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error
	CreateReceipt(ctx context.Context, messageID, userID uuid.UUID) (*models.MessageReceipt, error)
}

type CallRecordRepository interface {
	Create(ctx context.Context, record *models.CallRecord) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.CallStatus, duration int) error
	HistoryForUser(ctx context.Context, userID uuid.UUID) ([]*models.CallRecord, error)
}

type OtpRepository interface {
	Store(ctx context.Context, phone, code string) error
	Get(ctx context.Context, phone string) (string, error)
	Delete(ctx context.Context, phone string) error
}

type PresenceCacheRepository interface {
	SetStatus(ctx context.Context, presence *models.UserPresence) error
	GetBulkStatus(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.UserPresence, error)
	DeleteStatus(ctx context.Context, userID uuid.UUID) error
}
