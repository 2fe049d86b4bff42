package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNextTurnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/interview/next", r.URL.Path)

		var req nextTurnRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "abc123", req.SessionID)
		assert.Equal(t, "Hello", req.CandidateAnswer)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Reply{
			Question: "Tell me about yourself",
			Hints:    []string{"keep it short"},
		})
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop(), srv.URL, time.Second)
	reply, err := c.NextTurn(context.Background(), "abc123", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Tell me about yourself", reply.Question)
	assert.Equal(t, []string{"keep it short"}, reply.Hints)
}

func TestNextTurnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop(), srv.URL, time.Second)
	_, err := c.NextTurn(context.Background(), "xyz", "Hello")
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestNextTurnTimeout(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	c := NewClient(zap.NewNop(), srv.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := c.NextTurn(context.Background(), "xyz", "Hello")
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNextTurnUnreachable(t *testing.T) {
	c := NewClient(zap.NewNop(), "http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.NextTurn(context.Background(), "xyz", "Hello")
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}
