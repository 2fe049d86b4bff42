package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrEngineUnavailable covers every failure of a next-turn call: transport
// errors, timeouts and non-2xx responses. Callers absorb it and fall back to
// a safe reply; the distinction only matters in logs.
var ErrEngineUnavailable = errors.New("engine unavailable")

// Reply is the engine's answer to one candidate turn.
type Reply struct {
	Question string   `json:"question"`
	Hints    []string `json:"hints,omitempty"`
}

// NextTurner issues one conversational turn against the AI engine.
type NextTurner interface {
	NextTurn(ctx context.Context, sessionID, candidateText string) (*Reply, error)
}

type nextTurnRequest struct {
	SessionID       string `json:"session_id"`
	CandidateAnswer string `json:"candidate_answer"`
}

// Client talks to the AI engine's request/response endpoints.
type Client struct {
	logger  *zap.Logger
	http    *resty.Client
	timeout time.Duration
}

var _ NextTurner = (*Client)(nil)

// NewClient creates an engine client for the given base URL. The timeout
// bounds every next-turn call so a hung engine can never pin a session in
// the awaiting state forever.
func NewClient(logger *zap.Logger, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		logger:  logger.Named("engine.client"),
		http:    resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		timeout: timeout,
	}
}

// NextTurn sends the candidate's answer and returns the engine's next
// question. Any failure is reported as ErrEngineUnavailable.
func (c *Client) NextTurn(ctx context.Context, sessionID, candidateText string) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reply Reply
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(nextTurnRequest{SessionID: sessionID, CandidateAnswer: candidateText}).
		SetResult(&reply).
		Post("/interview/next")
	if err != nil {
		c.logger.Warn("engine call failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	if resp.IsError() {
		c.logger.Warn("engine returned error status",
			zap.String("session_id", sessionID),
			zap.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("%w: status %d", ErrEngineUnavailable, resp.StatusCode())
	}
	return &reply, nil
}
