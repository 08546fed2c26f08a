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

type PostgresMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresMessageRepository(pool *pgxpool.Pool) *PostgresMessageRepository {
	return &PostgresMessageRepository{pool: pool}
}

// Create persists the message and hydrates the sender display fields in the
// same round trip, so the caller can fan the result out directly.
func (r *PostgresMessageRepository) Create(ctx context.Context, message *models.Message) error {
	query := `WITH inserted AS (
                  INSERT INTO messages (chat_id, sender_id, content, type)
                  VALUES ($1, $2, $3, $4)
                  RETURNING id, chat_id, sender_id, content, type, created_at
              )
              SELECT i.id, i.chat_id, i.sender_id, i.content, i.type, i.created_at,
                     u.id, u.name, u.avatar
              FROM inserted i
              JOIN users u ON u.id = i.sender_id`

	err := r.pool.QueryRow(ctx, query,
		message.ChatID, message.SenderID, message.Content, message.Type).
		Scan(
			&message.ID, &message.ChatID, &message.SenderID, &message.Content, &message.Type, &message.CreatedAt,
			&message.Sender.ID, &message.Sender.Name, &message.Sender.Avatar,
		)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	query := `SELECT m.id, m.chat_id, m.sender_id, m.content, m.type, m.created_at,
                     u.id, u.name, u.avatar
              FROM messages m
              JOIN users u ON u.id = m.sender_id
              WHERE m.id = $1`

	var msg models.Message
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.Type, &msg.CreatedAt,
		&msg.Sender.ID, &msg.Sender.Name, &msg.Sender.Avatar,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

func (r *PostgresMessageRepository) ListByChat(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error) {
	query := `SELECT m.id, m.chat_id, m.sender_id, m.content, m.type, m.created_at,
                     u.id, u.name, u.avatar
              FROM messages m
              JOIN users u ON u.id = m.sender_id
              WHERE m.chat_id = $1
              ORDER BY m.created_at ASC`

	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.Type, &msg.CreatedAt,
			&msg.Sender.ID, &msg.Sender.Name, &msg.Sender.Avatar,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// AddReaction is idempotent: a duplicate (message, user, emoji) insert is a
// no-op and the existing row is returned instead of an error.
func (r *PostgresMessageRepository) AddReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (*models.Reaction, error) {
	insert := `INSERT INTO reactions (message_id, user_id, emoji)
               VALUES ($1, $2, $3)
               ON CONFLICT (message_id, user_id, emoji) DO NOTHING
               RETURNING id, message_id, user_id, emoji, created_at`

	var reaction models.Reaction
	err := r.pool.QueryRow(ctx, insert, messageID, userID, emoji).
		Scan(&reaction.ID, &reaction.MessageID, &reaction.UserID, &reaction.Emoji, &reaction.CreatedAt)
	if err == nil {
		return &reaction, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to add reaction: %w", err)
	}

	// Conflict path: fetch the existing row.
	query := `SELECT id, message_id, user_id, emoji, created_at
              FROM reactions
              WHERE message_id = $1 AND user_id = $2 AND emoji = $3`
	err = r.pool.QueryRow(ctx, query, messageID, userID, emoji).
		Scan(&reaction.ID, &reaction.MessageID, &reaction.UserID, &reaction.Emoji, &reaction.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing reaction: %w", err)
	}
	return &reaction, nil
}

func (r *PostgresMessageRepository) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		messageID, userID, emoji)
	if err != nil {
		return fmt.Errorf("failed to remove reaction: %w", err)
	}
	return nil
}

// CreateReceipt follows the same idempotent shape as AddReaction, keyed by
// (message, user).
func (r *PostgresMessageRepository) CreateReceipt(ctx context.Context, messageID, userID uuid.UUID) (*models.MessageReceipt, error) {
	insert := `INSERT INTO message_receipts (message_id, user_id)
               VALUES ($1, $2)
               ON CONFLICT (message_id, user_id) DO NOTHING
               RETURNING id, message_id, user_id, read_at`

	var receipt models.MessageReceipt
	err := r.pool.QueryRow(ctx, insert, messageID, userID).
		Scan(&receipt.ID, &receipt.MessageID, &receipt.UserID, &receipt.ReadAt)
	if err == nil {
		return &receipt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}

	query := `SELECT id, message_id, user_id, read_at
              FROM message_receipts
              WHERE message_id = $1 AND user_id = $2`
	err = r.pool.QueryRow(ctx, query, messageID, userID).
		Scan(&receipt.ID, &receipt.MessageID, &receipt.UserID, &receipt.ReadAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing receipt: %w", err)
	}
	return &receipt, nil
}
