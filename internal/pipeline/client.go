package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fortitwin/interview-relay/internal/common/cnst"
)

const dialTimeout = 10 * time.Second

// Client is the candidate-side end of the audio stream: it dials the voice
// endpoint for a session, streams captured audio up, and routes what comes
// back by frame kind. Binary frames are PCM audio and go to the playback
// queue; text frames are control messages and drive the transcript.
type Client struct {
	logger     *zap.Logger
	conn       *websocket.Conn
	writeMu    sync.Mutex
	Playback   *PlaybackQueue
	Transcript *Transcript
}

// Dial connects to relayURL (ws scheme, e.g. ws://host:port) for the given
// session, authenticating with the token cookie.
func Dial(ctx context.Context, logger *zap.Logger, relayURL, sessionID, token string, player Player, onEntry func(TranscriptEntry)) (*Client, error) {
	header := http.Header{}
	header.Set("Cookie", fmt.Sprintf("%s=%s", cnst.TokenCookie, token))

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	endpoint := fmt.Sprintf("%s%s/%s", relayURL, cnst.VoicePathPrefix, sessionID)
	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", endpoint, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	return &Client{
		logger:     logger.Named("pipeline.client"),
		conn:       conn,
		Playback:   NewPlaybackQueue(player),
		Transcript: NewTranscript(onEntry),
	}, nil
}

// WriteFrame sends one encoded PCM frame upstream. It satisfies
// FrameWriter so a Capture can feed the connection directly.
func (c *Client) WriteFrame(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// Run reads inbound frames until the connection closes or ctx ends.
func (c *Client) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	for {
		kind, payload, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		switch kind {
		case websocket.BinaryMessage:
			c.Playback.Enqueue(payload)
		case websocket.TextMessage:
			if !c.Transcript.Apply(payload) {
				c.logger.Debug("unrecognized control frame", zap.ByteString("frame", payload))
			}
		}
	}
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
