package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService(Config{SecretKey: testSecret, Duration: time.Hour})
	require.NoError(t, err)
	return s
}

func TestNewServiceRejectsBadSecrets(t *testing.T) {
	_, err := NewService(Config{SecretKey: ""})
	assert.ErrorIs(t, err, ErrEmptySecretKey)

	_, err = NewService(Config{SecretKey: "short"})
	assert.ErrorIs(t, err, ErrWeakSecretKey)
}

func TestGenerateAndValidate(t *testing.T) {
	s := newTestService(t)
	tok, err := s.GenerateToken("cand-42", "candidate")
	assert.NoError(t, err)

	claims, err := s.ValidateToken(tok)
	assert.NoError(t, err)
	if assert.NotNil(t, claims) {
		assert.Equal(t, "cand-42", claims.UserID)
		assert.Equal(t, "candidate", claims.Role)
	}
}

func TestExpiredAndInvalidTokens(t *testing.T) {
	s, err := NewService(Config{SecretKey: testSecret, Duration: time.Hour})
	require.NoError(t, err)
	s.config.Duration = -time.Second
	tok, err := s.GenerateToken("cand-1", "candidate")
	assert.NoError(t, err)

	claims, err := s.ValidateToken(tok)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrExpiredToken)

	claims, err = s.ValidateToken("not-a-token")
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateFromCookieAndHeader(t *testing.T) {
	s := newTestService(t)
	tok, err := s.GenerateToken("cand-7", "candidate")
	require.NoError(t, err)

	// cookie
	r := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	r.AddCookie(&http.Cookie{Name: "token", Value: tok})
	claims, err := s.Authenticate(r, "token")
	assert.NoError(t, err)
	assert.Equal(t, "cand-7", claims.UserID)

	// bearer header
	r = httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	claims, err = s.Authenticate(r, "token")
	assert.NoError(t, err)
	assert.Equal(t, "cand-7", claims.UserID)

	// nothing presented
	r = httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	_, err = s.Authenticate(r, "token")
	assert.ErrorIs(t, err, ErrMissingToken)
}
