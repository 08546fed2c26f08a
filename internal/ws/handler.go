package ws

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Claims is the identity the token verifier hands back on success.
type Claims struct {
	UserID uuid.UUID
	Phone  string
}

// TokenVerifier is the external token-validation collaborator.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins (adjust for production)
	},
}

// Handler upgrades HTTP requests into authenticated gateway connections.
type Handler struct {
	hub      *Hub
	verifier TokenVerifier
}

func NewHandler(hub *Hub, verifier TokenVerifier) *Handler {
	return &Handler{hub: hub, verifier: verifier}
}

// ServeHTTP authenticates the bearer token supplied at connection
// establishment and admits the socket. Auth is fail-closed: a connection
// that does not verify is terminated immediately and never registered.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	if token == "" {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "missing token"))
		_ = conn.Close()
		return
	}

	claims, err := h.verifier.Verify(token)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"))
		_ = conn.Close()
		return
	}

	// The request context dies when this handler returns; the connection
	// outlives it.
	ctx := context.Background()

	client := newClient(h.hub, conn, claims.UserID, claims.Phone)
	if user, err := h.hub.store.GetUserByID(ctx, claims.UserID); err == nil {
		client.Name = user.Name
	}

	h.hub.Connect(ctx, client)

	go client.writePump()
	go client.readPump(ctx)
}

// bearerToken pulls the credential from the query string or the
// Authorization header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
