package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpKeyPrefix = "otp:"
	otpTTL       = 5 * time.Minute
)

var ErrOtpExpired = errors.New("otp expired or not found")

type RedisOtpRepository struct {
	client *redis.Client
}

func NewRedisOtpRepository(client *redis.Client) *RedisOtpRepository {
	return &RedisOtpRepository{client: client}
}

// Store overwrites any previous code for the phone and resets the TTL.
func (r *RedisOtpRepository) Store(ctx context.Context, phone, code string) error {
	err := r.client.Set(ctx, otpKey(phone), code, otpTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

func (r *RedisOtpRepository) Get(ctx context.Context, phone string) (string, error) {
	code, err := r.client.Get(ctx, otpKey(phone)).Result()
	if err == redis.Nil {
		return "", ErrOtpExpired
	}
	if err != nil {
		return "", fmt.Errorf("failed to get otp: %w", err)
	}
	return code, nil
}

func (r *RedisOtpRepository) Delete(ctx context.Context, phone string) error {
	err := r.client.Del(ctx, otpKey(phone)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}

func otpKey(phone string) string {
	return otpKeyPrefix + phone
}
