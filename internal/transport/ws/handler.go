package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fortitwin/interview-relay/internal/auth/jwt"
	"github.com/fortitwin/interview-relay/internal/common/cnst"
	"github.com/fortitwin/interview-relay/internal/relay"
	"github.com/fortitwin/interview-relay/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler owns the control-channel lifecycle: credential check at
// handshake, explicit join before any relay work, cleanup on close.
type Handler struct {
	logger   *zap.Logger
	auth     *jwt.Service
	chat     *relay.Relay
	upgrader websocket.Upgrader
}

// NewHandler creates the control-channel handler.
func NewHandler(logger *zap.Logger, auth *jwt.Service, chat *relay.Relay) *Handler {
	return &Handler{
		logger: logger.Named("transport.ws"),
		auth:   auth,
		chat:   chat,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
}

// HandleChat serves GET /ws/chat. Authentication failures reject the
// handshake itself; a connection only becomes useful after it sends an
// explicit joinSession event.
func (h *Handler) HandleChat(c *gin.Context) {
	claims, err := h.auth.Authenticate(c.Request, cnst.TokenCookie)
	if err != nil {
		c.String(http.StatusUnauthorized, "unauthorized")
		return
	}

	wsConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	conn := newConn(uuid.NewString(), h.logger, wsConn, claims.UserID, claims.Role)
	h.logger.Info("control connection open",
		zap.String("conn_id", conn.id),
		zap.String("user_id", conn.userID))

	go conn.writeLoop()
	h.readLoop(conn)
}

// readLoop processes inbound events until the peer goes away. Closing the
// connection stops relaying for it but leaves the session in the registry:
// a reconnect resumes the same history.
func (h *Handler) readLoop(conn *Conn) {
	defer conn.close()

	var sess *session.Session

	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("read failed", zap.String("conn_id", conn.id), zap.Error(err))
			}
			return
		}

		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			// Malformed frames are dropped at the point of receipt.
			continue
		}

		switch evt.Event {
		case cnst.EventJoinSession:
			var join joinPayload
			if err := json.Unmarshal(evt.Data, &join); err != nil || join.SessionID == "" {
				continue
			}
			joined, err := h.chat.Join(conn, join.SessionID, conn.userID)
			if err != nil {
				h.logger.Warn("join failed",
					zap.String("conn_id", conn.id),
					zap.String("session_id", join.SessionID),
					zap.Error(err))
				continue
			}
			sess = joined

		case cnst.EventSendMessage:
			if sess == nil {
				_ = conn.send(cnst.EventError, errorPayload{Message: "join a session first"})
				continue
			}
			var msg messagePayload
			if err := json.Unmarshal(evt.Data, &msg); err != nil || msg.Text == "" {
				continue
			}
			// The engine call must not block this read loop, otherwise a
			// second message could never be answered with a busy signal.
			go func(s *session.Session, text string) {
				if err := h.chat.HandleMessage(context.Background(), conn, s, text); err != nil {
					h.logger.Debug("message not relayed",
						zap.String("conn_id", conn.id),
						zap.String("session_id", s.ID),
						zap.Error(err))
				}
			}(sess, msg.Text)

		default:
			// Unknown events are ignored, same as malformed ones.
		}
	}
}
