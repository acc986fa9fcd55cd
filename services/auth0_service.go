package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fabricaconecta/parceria-api/config"
)

var ErrAuth0SubjectMismatch = errors.New("userinfo subject does not match token subject")

// Auth0UserInfo is the part of Auth0's /userinfo payload used to open a profile
type Auth0UserInfo struct {
	Sub      string `json:"sub"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Nickname string `json:"nickname,omitempty"`
}

// Auth0Service reads identity data from the tenant's userinfo endpoint
type Auth0Service struct {
	userInfoURL string
	httpClient  *http.Client
}

// NewAuth0Service creates the service for cfg.Auth0Domain.
// A domain that already carries a scheme is used as-is.
func NewAuth0Service(cfg *config.Config) *Auth0Service {
	base := cfg.Auth0Domain
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &Auth0Service{
		userInfoURL: strings.TrimSuffix(base, "/") + "/userinfo",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetUserInfo calls /userinfo with the caller's access token
func (s *Auth0Service) GetUserInfo(ctx context.Context, accessToken string) (*Auth0UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("userinfo endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo Auth0UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	return &userInfo, nil
}

// FetchProfile loads the identity for auth0ID. The userinfo subject must match the
// token subject; the email comes back trimmed and lower-cased.
func (s *Auth0Service) FetchProfile(ctx context.Context, accessToken, auth0ID string) (*Auth0UserInfo, error) {
	info, err := s.GetUserInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if info.Sub != "" && info.Sub != auth0ID {
		return nil, ErrAuth0SubjectMismatch
	}

	info.Email = strings.ToLower(strings.TrimSpace(info.Email))
	info.Name = strings.TrimSpace(info.Name)
	if info.Name == "" {
		info.Name = strings.TrimSpace(info.Nickname)
	}
	return info, nil
}
