package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/fortitwin/interview-relay/internal/common/cnst"
	"github.com/fortitwin/interview-relay/internal/session"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	outboundQueueSize = 64
)

// ErrQueueFull is returned when a connection's outbound queue is saturated.
var ErrQueueFull = errors.New("outbound queue is full")

// Conn is one authenticated control connection. All writes funnel through a
// single writer goroutine; everything else just queues events.
type Conn struct {
	id     string
	userID string
	role   string

	logger *zap.Logger
	ws     *websocket.Conn

	outbound chan []byte
	done     chan struct{}
	closeOne sync.Once
}

func newConn(id string, logger *zap.Logger, wsConn *websocket.Conn, userID, role string) *Conn {
	return &Conn{
		id:       id,
		userID:   userID,
		role:     role,
		logger:   logger,
		ws:       wsConn,
		outbound: make(chan []byte, outboundQueueSize),
		done:     make(chan struct{}),
	}
}

// send marshals and queues one event without blocking the caller.
func (c *Conn) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Event{Event: event, Data: payload})
	if err != nil {
		return err
	}
	select {
	case c.outbound <- frame:
		return nil
	case <-c.done:
		return websocket.ErrCloseSent
	default:
		return ErrQueueFull
	}
}

// SendHistory implements relay.Sink.
func (c *Conn) SendHistory(turns []session.Turn) error {
	return c.send(cnst.EventChatHistory, toChatEntries(turns))
}

// SendReply implements relay.Sink.
func (c *Conn) SendReply(text string, hints []string) error {
	return c.send(cnst.EventReply, replyPayload{Text: text, Hints: hints})
}

// SendBusy implements relay.Sink.
func (c *Conn) SendBusy() error {
	return c.send(cnst.EventBusy, errorPayload{Message: "a message is already being answered, retry shortly"})
}

// writeLoop is the single writer: it drains the outbound queue and owns the
// ping schedule.
func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.outbound:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// close releases the connection once; safe to call from any goroutine.
func (c *Conn) close() {
	c.closeOne.Do(func() {
		close(c.done)
		_ = c.ws.Close()
		c.logger.Debug("connection closed", zap.String("conn_id", c.id))
	})
}
