package relay

import (
	"context"
	"errors"
	"time"

	"github.com/fortitwin/interview-relay/internal/common/cnst"
	"github.com/fortitwin/interview-relay/internal/engine"
	"github.com/fortitwin/interview-relay/internal/session"
	"github.com/fortitwin/interview-relay/pkg/metrics"
	"go.uber.org/zap"
)

// ErrSessionBusy signals that a candidate message arrived while a previous
// one was still awaiting the engine. It is transient: the sender may retry
// once the pending reply lands.
var ErrSessionBusy = errors.New("session busy: a message is already awaiting the engine")

// Sink delivers relay output to one control connection. The transport owns
// the implementation; the relay never sees the socket.
type Sink interface {
	SendHistory(turns []session.Turn) error
	SendReply(text string, hints []string) error
	SendBusy() error
}

// Relay drives the per-session chat state machine: idle until a candidate
// message arrives, awaiting-engine while the next-turn call is in flight.
type Relay struct {
	logger   *zap.Logger
	registry *session.Registry
	engine   engine.NextTurner
	metrics  *metrics.Metrics
}

// New creates a chat relay. metrics may be nil.
func New(logger *zap.Logger, registry *session.Registry, eng engine.NextTurner, m *metrics.Metrics) *Relay {
	return &Relay{
		logger:   logger.Named("relay.chat"),
		registry: registry,
		engine:   eng,
		metrics:  m,
	}
}

// Join attaches a connection to a session, creating it on first join, and
// replays the full existing history so a reconnecting candidate sees the
// transcript it would have seen had it never disconnected.
func (r *Relay) Join(sink Sink, sessionID, ownerID string) (*session.Session, error) {
	sess := r.registry.GetOrCreate(sessionID, ownerID)
	sess.Touch()
	if r.metrics != nil {
		r.metrics.SetSessionsLive(r.registry.Len())
	}
	if err := sink.SendHistory(sess.History()); err != nil {
		return nil, err
	}
	r.logger.Info("connection joined session",
		zap.String("session_id", sessionID),
		zap.String("owner_id", ownerID),
		zap.Int("history_len", sess.Len()))
	return sess, nil
}

// HandleMessage processes one candidate utterance. At most one message per
// session may be in flight; a second is rejected with a busy signal rather
// than interleaved into the history out of order.
func (r *Relay) HandleMessage(ctx context.Context, sink Sink, sess *session.Session, text string) error {
	if !sess.TryAcquire() {
		if r.metrics != nil {
			r.metrics.ChatTurn("busy")
		}
		if err := sink.SendBusy(); err != nil {
			return err
		}
		return ErrSessionBusy
	}
	defer sess.Release()

	sess.Append(session.Turn{Role: session.RoleCandidate, Content: text})

	start := time.Now()
	reply, err := r.engine.NextTurn(ctx, sess.ID, text)
	if err != nil {
		// Absorbed here: the candidate gets a retryable fallback and the
		// session returns to idle with no engine turn appended.
		if r.metrics != nil {
			r.metrics.EngineCall("error", start)
			r.metrics.ChatTurn("fallback")
		}
		r.logger.Warn("engine call failed, sending fallback",
			zap.String("session_id", sess.ID),
			zap.Error(err))
		return sink.SendReply(cnst.FallbackReply, nil)
	}
	if r.metrics != nil {
		r.metrics.EngineCall("ok", start)
		r.metrics.ChatTurn("ok")
	}

	sess.Append(session.Turn{Role: session.RoleEngine, Content: reply.Question})
	return sink.SendReply(reply.Question, reply.Hints)
}
