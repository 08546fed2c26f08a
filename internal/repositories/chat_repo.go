package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rswarnkar/converse/internal/models"
)

type PostgresChatRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresChatRepository(pool *pgxpool.Pool) *PostgresChatRepository {
	return &PostgresChatRepository{pool: pool}
}

// Create makes a 1:1 chat between two users, returning the existing chat if
// one already exists for the pair.
func (r *PostgresChatRepository) Create(ctx context.Context, userID, otherUserID uuid.UUID) (*models.Chat, error) {
	existing, err := r.findDirectChat(ctx, userID, otherUserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var chat models.Chat
	err = tx.QueryRow(ctx,
		`INSERT INTO chats (is_group) VALUES (false)
         RETURNING id, name, is_group, is_archived, created_at, updated_at`).
		Scan(&chat.ID, &chat.Name, &chat.IsGroup, &chat.IsArchived, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO chat_users (chat_id, user_id) VALUES ($1, $2), ($1, $3)`,
		chat.ID, userID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to add chat members: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit chat: %w", err)
	}

	chat.Users, err = r.participants(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *PostgresChatRepository) CreateGroup(ctx context.Context, userIDs []uuid.UUID, name string) (*models.Chat, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var chat models.Chat
	err = tx.QueryRow(ctx,
		`INSERT INTO chats (name, is_group) VALUES ($1, true)
         RETURNING id, name, is_group, is_archived, created_at, updated_at`, name).
		Scan(&chat.ID, &chat.Name, &chat.IsGroup, &chat.IsArchived, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create group chat: %w", err)
	}

	for _, id := range userIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_users (chat_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			chat.ID, id); err != nil {
			return nil, fmt.Errorf("failed to add group member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit group chat: %w", err)
	}

	chat.Users, err = r.participants(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *PostgresChatRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	query := `SELECT id, name, is_group, is_archived, created_at, updated_at
              FROM chats WHERE id = $1`

	var chat models.Chat
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&chat.ID, &chat.Name, &chat.IsGroup, &chat.IsArchived, &chat.CreatedAt, &chat.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &chat, nil
}

func (r *PostgresChatRepository) GetParticipantIDs(ctx context.Context, chatID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM chat_users WHERE chat_id = $1`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat participants: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}
	return ids, nil
}

func (r *PostgresChatRepository) IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat_users WHERE chat_id = $1 AND user_id = $2)`,
		chatID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check chat membership: %w", err)
	}
	return exists, nil
}

func (r *PostgresChatRepository) ListForUser(ctx context.Context, userID uuid.UUID, archived bool) ([]*models.Chat, error) {
	query := `SELECT c.id, c.name, c.is_group, c.is_archived, c.created_at, c.updated_at
              FROM chats c
              JOIN chat_users cu ON cu.chat_id = c.id
              WHERE cu.user_id = $1 AND c.is_archived = $2
              ORDER BY c.updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID, archived)
	if err != nil {
		return nil, fmt.Errorf("failed to query user chats: %w", err)
	}
	defer rows.Close()

	var chats []*models.Chat
	for rows.Next() {
		var chat models.Chat
		if err := rows.Scan(&chat.ID, &chat.Name, &chat.IsGroup, &chat.IsArchived, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, &chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chats: %w", err)
	}

	for _, chat := range chats {
		chat.Users, err = r.participants(ctx, chat.ID)
		if err != nil {
			return nil, err
		}
		chat.LastMessage, err = r.latestMessage(ctx, chat.ID)
		if err != nil {
			return nil, err
		}
	}
	return chats, nil
}

func (r *PostgresChatRepository) SetArchived(ctx context.Context, chatID uuid.UUID, archived bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE chats SET is_archived = $2, updated_at = NOW() WHERE id = $1`,
		chatID, archived)
	if err != nil {
		return fmt.Errorf("failed to archive chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresChatRepository) findDirectChat(ctx context.Context, userID, otherUserID uuid.UUID) (*models.Chat, error) {
	query := `SELECT c.id, c.name, c.is_group, c.is_archived, c.created_at, c.updated_at
              FROM chats c
              WHERE c.is_group = false
                AND EXISTS (SELECT 1 FROM chat_users WHERE chat_id = c.id AND user_id = $1)
                AND EXISTS (SELECT 1 FROM chat_users WHERE chat_id = c.id AND user_id = $2)
              LIMIT 1`

	var chat models.Chat
	err := r.pool.QueryRow(ctx, query, userID, otherUserID).
		Scan(&chat.ID, &chat.Name, &chat.IsGroup, &chat.IsArchived, &chat.CreatedAt, &chat.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find direct chat: %w", err)
	}

	chat.Users, err = r.participants(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *PostgresChatRepository) participants(ctx context.Context, chatID uuid.UUID) ([]models.UserSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, u.avatar
         FROM users u JOIN chat_users cu ON cu.user_id = u.id
         WHERE cu.chat_id = $1`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat users: %w", err)
	}
	defer rows.Close()

	var users []models.UserSummary
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Avatar); err != nil {
			return nil, fmt.Errorf("failed to scan chat user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat users: %w", err)
	}
	return users, nil
}

func (r *PostgresChatRepository) latestMessage(ctx context.Context, chatID uuid.UUID) (*models.Message, error) {
	query := `SELECT m.id, m.chat_id, m.sender_id, m.content, m.type, m.created_at,
                     u.id, u.name, u.avatar
              FROM messages m
              JOIN users u ON u.id = m.sender_id
              WHERE m.chat_id = $1
              ORDER BY m.created_at DESC
              LIMIT 1`

	var msg models.Message
	err := r.pool.QueryRow(ctx, query, chatID).Scan(
		&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.Type, &msg.CreatedAt,
		&msg.Sender.ID, &msg.Sender.Name, &msg.Sender.Avatar,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}
	return &msg, nil
}
