package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricaconecta/parceria-api/config"
)

func newUserInfoServer(t *testing.T, token string, info Auth0UserInfo) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" || r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Unauthorized"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewAuth0Service_UserInfoURL(t *testing.T) {
	tests := []struct {
		domain   string
		expected string
	}{
		{"tenant.us.auth0.com", "https://tenant.us.auth0.com/userinfo"},
		{"https://tenant.us.auth0.com/", "https://tenant.us.auth0.com/userinfo"},
		{"http://127.0.0.1:8080", "http://127.0.0.1:8080/userinfo"},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			s := NewAuth0Service(&config.Config{Auth0Domain: tt.domain})
			assert.Equal(t, tt.expected, s.userInfoURL)
		})
	}
}

func TestAuth0Service_GetUserInfo(t *testing.T) {
	server := newUserInfoServer(t, "good-token", Auth0UserInfo{Sub: "auth0|ana", Email: "ana@example.com", Name: "Ana"})
	s := NewAuth0Service(&config.Config{Auth0Domain: server.URL})

	info, err := s.GetUserInfo(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "auth0|ana", info.Sub)
	assert.Equal(t, "ana@example.com", info.Email)

	_, err = s.GetUserInfo(context.Background(), "bad-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestAuth0Service_FetchProfile(t *testing.T) {
	server := newUserInfoServer(t, "tok", Auth0UserInfo{
		Sub:      "auth0|ana",
		Email:    "  Ana@Example.COM ",
		Nickname: "ana.arq",
	})
	s := NewAuth0Service(&config.Config{Auth0Domain: server.URL})

	info, err := s.FetchProfile(context.Background(), "tok", "auth0|ana")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", info.Email)
	assert.Equal(t, "ana.arq", info.Name, "nickname fills a missing name")

	_, err = s.FetchProfile(context.Background(), "tok", "auth0|bruno")
	assert.ErrorIs(t, err, ErrAuth0SubjectMismatch)
}
