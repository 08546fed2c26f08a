package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rswarnkar/converse/internal/models"
	"github.com/rswarnkar/converse/internal/repositories"
)

var (
	ErrInvalidOtp   = errors.New("invalid otp")
	ErrOtpExpired   = errors.New("otp expired")
	ErrInvalidToken = errors.New("invalid token")
)

type AuthService struct {
	userRepo  repositories.UserRepository
	otpRepo   repositories.OtpRepository
	jwtSecret string
	jwtExpiry time.Duration
}

type TokenClaims struct {
	UserID uuid.UUID
	Phone  string
}

type VerifyOtpResponse struct {
	User        *models.User
	AccessToken string
	ExpiresAt   time.Time
}

func NewAuthService(
	userRepo repositories.UserRepository,
	otpRepo repositories.OtpRepository,
	jwtSecret string,
	jwtExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		otpRepo:   otpRepo,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

// SendOtp generates a 6-digit code and stores it with a short TTL. Delivery
// via SMS is an external collaborator; the code is logged for development.
func (s *AuthService) SendOtp(ctx context.Context, phone string) error {
	code := fmt.Sprintf("%06d", rand.Intn(1000000))

	if err := s.otpRepo.Store(ctx, phone, code); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}

	// DEV ONLY: real deployments hand the code to the SMS provider instead.
	log.Printf("OTP for %s: %s", phone, code)
	return nil
}

// VerifyOtp checks the code, consumes it, finds or creates the user for the
// phone number, and issues an access token.
func (s *AuthService) VerifyOtp(ctx context.Context, phone, code string) (*VerifyOtpResponse, error) {
	stored, err := s.otpRepo.Get(ctx, phone)
	if errors.Is(err, repositories.ErrOtpExpired) {
		return nil, ErrOtpExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get otp: %w", err)
	}

	if stored != code {
		return nil, ErrInvalidOtp
	}

	if err := s.otpRepo.Delete(ctx, phone); err != nil {
		return nil, fmt.Errorf("failed to consume otp: %w", err)
	}

	user, err := s.userRepo.GetByPhone(ctx, phone)
	if errors.Is(err, repositories.ErrNotFound) {
		user = &models.User{Phone: phone, Status: models.StatusOffline}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	expiresAt := time.Now().Add(s.jwtExpiry)
	token, err := s.generateToken(user.ID, user.Phone, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &VerifyOtpResponse{
		User:        user,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *AuthService) generateToken(userID uuid.UUID, phone string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"phone": phone,
		"exp":   expiresAt.Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) VerifyToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrInvalidToken
	}

	phone, _ := claims["phone"].(string)

	return &TokenClaims{
		UserID: userID,
		Phone:  phone,
	}, nil
}
