package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/rswarnkar/converse/internal/models"
	"github.com/rswarnkar/converse/internal/repositories"
)

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotChatMember   = errors.New("sender is not a member of the chat")
	ErrSelfChat        = errors.New("cannot create chat with yourself")
	ErrEmptyEmoji      = errors.New("reaction emoji is required")
)

type ChatService struct {
	chatRepo      repositories.ChatRepository
	messageRepo   repositories.MessageRepository
	userRepo      repositories.UserRepository
	presenceCache repositories.PresenceCacheRepository
}

func NewChatService(
	chatRepo repositories.ChatRepository,
	messageRepo repositories.MessageRepository,
	userRepo repositories.UserRepository,
	presenceCache repositories.PresenceCacheRepository,
) *ChatService {
	return &ChatService{
		chatRepo:      chatRepo,
		messageRepo:   messageRepo,
		userRepo:      userRepo,
		presenceCache: presenceCache,
	}
}

func (s *ChatService) CreateChat(ctx context.Context, userID, otherUserID uuid.UUID) (*models.Chat, error) {
	if userID == otherUserID {
		return nil, ErrSelfChat
	}

	for _, id := range []uuid.UUID{userID, otherUserID} {
		if _, err := s.userRepo.GetByID(ctx, id); errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		} else if err != nil {
			return nil, fmt.Errorf("failed to check user: %w", err)
		}
	}

	return s.chatRepo.Create(ctx, userID, otherUserID)
}

func (s *ChatService) CreateGroupChat(ctx context.Context, userIDs []uuid.UUID, name string) (*models.Chat, error) {
	return s.chatRepo.CreateGroup(ctx, lo.Uniq(userIDs), name)
}

// SendMessage validates chat, sender, and membership before persisting. The
// returned message is fully hydrated and safe to fan out as-is.
func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID uuid.UUID, content string, msgType models.MessageType) (*models.Message, error) {
	if _, err := s.chatRepo.GetByID(ctx, chatID); errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrChatNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to check chat: %w", err)
	}

	if _, err := s.userRepo.GetByID(ctx, senderID); errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to check sender: %w", err)
	}

	member, err := s.chatRepo.IsMember(ctx, chatID, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, ErrNotChatMember
	}

	message := &models.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
		Type:     msgType,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

func (s *ChatService) GetMessages(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error) {
	return s.messageRepo.ListByChat(ctx, chatID)
}

func (s *ChatService) MarkMessageAsRead(ctx context.Context, messageID, userID uuid.UUID) (*models.MessageReceipt, error) {
	if _, err := s.messageRepo.GetByID(ctx, messageID); errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrMessageNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to check message: %w", err)
	}

	return s.messageRepo.CreateReceipt(ctx, messageID, userID)
}

func (s *ChatService) AddReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (*models.Reaction, error) {
	if emoji == "" {
		return nil, ErrEmptyEmoji
	}

	if _, err := s.messageRepo.GetByID(ctx, messageID); errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrMessageNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to check message: %w", err)
	}

	return s.messageRepo.AddReaction(ctx, messageID, userID, emoji)
}

func (s *ChatService) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	return s.messageRepo.RemoveReaction(ctx, messageID, userID, emoji)
}

// UpdateUserStatus writes the new status to postgres and mirrors it into the
// presence cache. Last seen is recorded only on the transition to OFFLINE.
func (s *ChatService) UpdateUserStatus(ctx context.Context, userID uuid.UUID, status models.UserStatus) error {
	var lastSeen *time.Time
	if status == models.StatusOffline {
		now := time.Now()
		lastSeen = &now
	}

	if err := s.userRepo.UpdateStatus(ctx, userID, status, lastSeen); err != nil {
		return err
	}

	// Cache mirror failures must not fail the presence transition.
	presence := &models.UserPresence{UserID: userID, Status: status, LastSeen: lastSeen}
	if err := s.presenceCache.SetStatus(ctx, presence); err != nil {
		log.Printf("failed to mirror presence for %s: %v", userID, err)
	}
	return nil
}

func (s *ChatService) OnlineUsers(ctx context.Context) ([]models.UserPresence, error) {
	return s.userRepo.GetOnlineUsers(ctx)
}

func (s *ChatService) BulkPresence(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.UserPresence, error) {
	return s.presenceCache.GetBulkStatus(ctx, userIDs)
}

func (s *ChatService) ChatParticipants(ctx context.Context, chatID uuid.UUID) ([]uuid.UUID, error) {
	return s.chatRepo.GetParticipantIDs(ctx, chatID)
}

func (s *ChatService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.UserSummary, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &models.UserSummary{ID: user.ID, Name: user.Name, Avatar: user.Avatar}, nil
}

func (s *ChatService) GetUserChats(ctx context.Context, userID uuid.UUID) ([]*models.Chat, error) {
	return s.chatRepo.ListForUser(ctx, userID, false)
}

func (s *ChatService) GetArchivedChats(ctx context.Context, userID uuid.UUID) ([]*models.Chat, error) {
	return s.chatRepo.ListForUser(ctx, userID, true)
}

// ArchiveChat toggles the archived flag.
func (s *ChatService) ArchiveChat(ctx context.Context, chatID uuid.UUID) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.chatRepo.SetArchived(ctx, chatID, !chat.IsArchived); err != nil {
		return nil, err
	}
	chat.IsArchived = !chat.IsArchived
	return chat, nil
}
