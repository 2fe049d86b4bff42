package tunnel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fortitwin/interview-relay/internal/auth/jwt"
	"github.com/fortitwin/interview-relay/internal/common/cnst"
	"github.com/fortitwin/interview-relay/internal/session"
	"github.com/fortitwin/interview-relay/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Proxy tunnels the voice stream between a browser connection and the AI
// engine's streaming endpoint, keyed by session id. It is a dumb pipe:
// frames pass through verbatim in both directions, audio and control alike.
type Proxy struct {
	logger       *zap.Logger
	auth         *jwt.Service
	registry     *session.Registry
	metrics      *metrics.Metrics
	upstreamBase string // e.g. ws://127.0.0.1:8000
	dialer       *websocket.Dialer
	upgrader     websocket.Upgrader
}

// NewProxy creates an audio relay targeting the engine at upstreamBase.
// metrics may be nil.
func NewProxy(logger *zap.Logger, auth *jwt.Service, registry *session.Registry, m *metrics.Metrics, upstreamBase string) *Proxy {
	return &Proxy{
		logger:       logger.Named("relay.tunnel"),
		auth:         auth,
		registry:     registry,
		metrics:      m,
		upstreamBase: upstreamBase,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
}

// Handle serves GET /ws/voice/:sessionID. The credential is checked before
// the upgrade; the upstream leg is dialed before the downstream upgrade so
// an unreachable engine is answered with an explicit 502 instead of an open
// tunnel to nowhere.
func (p *Proxy) Handle(c *gin.Context) {
	sessionID := c.Param("sessionID")
	if sessionID == "" {
		c.String(http.StatusBadRequest, "missing session id")
		return
	}

	claims, err := p.auth.Authenticate(c.Request, cnst.TokenCookie)
	if err != nil {
		c.String(http.StatusUnauthorized, "unauthorized")
		return
	}

	upstreamURL := fmt.Sprintf("%s%s/%s", p.upstreamBase, cnst.VoicePathPrefix, sessionID)
	up, resp, err := p.dialer.Dial(upstreamURL, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		if p.metrics != nil {
			p.metrics.TunnelDialError()
		}
		p.logger.Error("upstream dial failed",
			zap.String("session_id", sessionID),
			zap.String("url", upstreamURL),
			zap.Error(err))
		c.String(http.StatusBadGateway, "Bad Gateway: AI service unreachable")
		return
	}

	down, err := p.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		_ = up.Close()
		p.logger.Error("downstream upgrade failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}

	if sess, ok := p.registry.Get(sessionID); ok {
		sess.Touch()
	}
	if p.metrics != nil {
		p.metrics.TunnelOpened()
	}
	p.logger.Info("tunnel established",
		zap.String("session_id", sessionID),
		zap.String("user_id", claims.UserID))

	p.pump(sessionID, down, up)
}

// pump runs the two copy loops until either side closes. Each direction is
// independent; the first error tears down both legs so a half-closed tunnel
// can never hang the other direction.
func (p *Proxy) pump(sessionID string, down, up *websocket.Conn) {
	g, ctx := errgroup.WithContext(context.Background())

	// Closing both connections is what unblocks the peer's blocked read.
	go func() {
		<-ctx.Done()
		_ = down.Close()
		_ = up.Close()
		if p.metrics != nil {
			p.metrics.TunnelClosed()
		}
	}()

	g.Go(func() error { return p.copyFrames(down, up, "up") })
	g.Go(func() error { return p.copyFrames(up, down, "down") })

	err := g.Wait()
	p.logger.Info("tunnel closed",
		zap.String("session_id", sessionID),
		zap.Error(err))
}

// copyFrames forwards messages from src to dst verbatim, preserving the
// frame type. Payload contents are never inspected.
func (p *Proxy) copyFrames(src, dst *websocket.Conn, direction string) error {
	for {
		msgType, data, err := src.ReadMessage()
		if err != nil {
			return err
		}
		if err := dst.WriteMessage(msgType, data); err != nil {
			return err
		}
		if p.metrics != nil {
			p.metrics.TunnelFrame(direction)
		}
	}
}
