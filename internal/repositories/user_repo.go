package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rswarnkar/converse/internal/models"
)

var ErrNotFound = errors.New("not found")

type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (phone, name, status)
              VALUES ($1, $2, $3)
              RETURNING id, created_at, updated_at`

	if user.Status == "" {
		user.Status = models.StatusOffline
	}

	err := r.pool.QueryRow(ctx, query, user.Phone, user.Name, user.Status).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT id, phone, name, avatar, status, last_seen, created_at, updated_at
              FROM users WHERE id = $1`

	var user models.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Phone,
		&user.Name,
		&user.Avatar,
		&user.Status,
		&user.LastSeen,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := `SELECT id, phone, name, avatar, status, last_seen, created_at, updated_at
              FROM users WHERE phone = $1`

	var user models.User
	err := r.pool.QueryRow(ctx, query, phone).Scan(
		&user.ID,
		&user.Phone,
		&user.Name,
		&user.Avatar,
		&user.Status,
		&user.LastSeen,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}
	return &user, nil
}

// UpdateStatus sets the presence status column. lastSeen is only written on
// the transition to OFFLINE; passing nil leaves the column untouched.
func (r *PostgresUserRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus, lastSeen *time.Time) error {
	query := `UPDATE users
              SET status = $2, last_seen = COALESCE($3, last_seen), updated_at = NOW()
              WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, status, lastSeen)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepository) GetOnlineUsers(ctx context.Context) ([]models.UserPresence, error) {
	query := `SELECT id, status, last_seen FROM users
              WHERE status IN ('ONLINE', 'AWAY', 'DO_NOT_DISTURB')`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query online users: %w", err)
	}
	defer rows.Close()

	var out []models.UserPresence
	for rows.Next() {
		var p models.UserPresence
		if err := rows.Scan(&p.UserID, &p.Status, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan presence: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating online users: %w", err)
	}
	return out, nil
}
