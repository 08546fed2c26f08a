package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/rswarnkar/converse/internal/api"
	"github.com/rswarnkar/converse/internal/config"
	"github.com/rswarnkar/converse/internal/database"
	"github.com/rswarnkar/converse/internal/repositories"
	"github.com/rswarnkar/converse/internal/services"
	"github.com/rswarnkar/converse/internal/ws"
)

// tokenVerifier adapts the auth service to the gateway's collaborator
// contract.
type tokenVerifier struct {
	auth *services.AuthService
}

func (v tokenVerifier) Verify(token string) (*ws.Claims, error) {
	claims, err := v.auth.VerifyToken(token)
	if err != nil {
		return nil, err
	}
	return &ws.Claims{UserID: claims.UserID, Phone: claims.Phone}, nil
}

func main() {
	ctx := context.Background()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create postgres pool: %v", err)
	}
	defer postgresPool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to create redis client: %v", err)
	}
	defer redisClient.Close()

	// Repositories
	userRepo := repositories.NewPostgresUserRepository(postgresPool)
	chatRepo := repositories.NewPostgresChatRepository(postgresPool)
	messageRepo := repositories.NewPostgresMessageRepository(postgresPool)
	callRepo := repositories.NewPostgresCallRecordRepository(postgresPool)
	otpRepo := repositories.NewRedisOtpRepository(redisClient)
	presenceCache := repositories.NewRedisPresenceCacheRepository(redisClient)

	// Services
	authService := services.NewAuthService(userRepo, otpRepo, cfg.JWTSecret, cfg.JWTExpiry)
	chatService := services.NewChatService(chatRepo, messageRepo, userRepo, presenceCache)
	callService := services.NewCallService(callRepo)
	turnService := services.NewTurnService(cfg.TurnTokenURL, cfg.TurnAccountSID, cfg.TurnAuthToken, cfg.StunServers)

	// Gateway
	hub := ws.NewHub(chatService, callService)
	gateway := ws.NewHandler(hub, tokenVerifier{auth: authService})

	// HTTP surface
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Handle("/ws", gateway)
	router.Mount("/auth", api.NewAuthHandler(authService).Routes())

	router.Group(func(r chi.Router) {
		r.Use(api.RequireAuth(authService))
		r.Mount("/chats", api.NewChatHandler(chatService).Routes())
		r.Mount("/calls", api.NewCallHandler(callService, turnService).Routes())
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Starting server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-sigChan:
		case <-gctx.Done():
			return gctx.Err()
		}

		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped gracefully")
}
