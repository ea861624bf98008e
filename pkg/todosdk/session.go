package todosdk

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// ErrSessionExpired is returned before sending a request with a token that
// has already expired.
var ErrSessionExpired = errors.New("todosdk: session token expired")

// Session holds one session token. There is no refresh: once the token
// expires the caller must authenticate again.
//
// A Session is safe for concurrent use.
type Session struct {
	client *Client

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	user      UserResponse
}

func newSession(client *Client, tokenResp *TokenResponse) *Session {
	return &Session{
		client:    client,
		token:     tokenResp.Token,
		expiresAt: tokenResp.ExpiresAt,
		user:      tokenResp.User,
	}
}

// Token returns the raw session token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the profile returned when the session was created.
func (s *Session) User() UserResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Logout asks the server to clear the session cookie. The token itself is
// not revoked and keeps working until it expires, so callers that must end
// access should also discard the Session.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) validToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.expiresAt.IsZero() && !time.Now().Before(s.expiresAt) {
		return "", ErrSessionExpired
	}
	return s.token, nil
}

func (s *Session) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token, err := s.validToken()
	if err != nil {
		return nil, err
	}
	return s.client.doRequest(ctx, method, path, token, body)
}
