package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// IceServer is one entry of the descriptor list handed to WebRTC clients.
type IceServer struct {
	URLs       string `json:"urls"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
}

// TurnService fetches ephemeral TURN credentials from the telephony
// provider's token endpoint. When no provider is configured it falls back to
// the static STUN servers from config.
type TurnService struct {
	tokenURL   string
	accountSID string
	authToken  string
	fallback   []string
	client     *http.Client
}

func NewTurnService(tokenURL, accountSID, authToken string, fallbackStun []string) *TurnService {
	return &TurnService{
		tokenURL:   tokenURL,
		accountSID: accountSID,
		authToken:  authToken,
		fallback:   fallbackStun,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *TurnService) GetIceServers(ctx context.Context) ([]IceServer, error) {
	if s.tokenURL == "" || s.accountSID == "" {
		return s.staticServers(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch turn token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("turn token endpoint returned %d", resp.StatusCode)
	}

	var token struct {
		IceServers []struct {
			URL        string `json:"url"`
			URLs       string `json:"urls"`
			Username   string `json:"username"`
			Credential string `json:"credential"`
		} `json:"ice_servers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode turn token: %w", err)
	}

	servers := make([]IceServer, 0, len(token.IceServers))
	for _, ice := range token.IceServers {
		urls := ice.URLs
		if urls == "" {
			urls = ice.URL
		}
		servers = append(servers, IceServer{
			URLs:       urls,
			Username:   ice.Username,
			Credential: ice.Credential,
		})
	}
	return servers, nil
}

func (s *TurnService) staticServers() []IceServer {
	servers := make([]IceServer, 0, len(s.fallback))
	for _, u := range s.fallback {
		servers = append(servers, IceServer{URLs: u})
	}
	return servers
}
