package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fortitwin/interview-relay/internal/auth/jwt"
	"github.com/fortitwin/interview-relay/internal/engine"
	"github.com/fortitwin/interview-relay/internal/relay"
	"github.com/fortitwin/interview-relay/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type scriptedEngine struct {
	mu      sync.Mutex
	replies []string
	err     error
	block   chan struct{}
}

func (f *scriptedEngine) NextTurn(ctx context.Context, sessionID, text string) (*engine.Reply, error) {
	f.mu.Lock()
	block := f.block
	err := f.err
	var q string
	if len(f.replies) > 0 {
		q = f.replies[0]
		f.replies = f.replies[1:]
	}
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &engine.Reply{Question: q}, nil
}

func startServer(t *testing.T, eng engine.NextTurner) (*httptest.Server, string) {
	t.Helper()
	auth, err := jwt.NewService(jwt.Config{SecretKey: testSecret, Duration: time.Hour})
	require.NoError(t, err)
	token, err := auth.GenerateToken("cand-1", "candidate")
	require.NoError(t, err)

	registry := session.NewRegistry(zap.NewNop(), 4)
	chat := relay.New(zap.NewNop(), registry, eng, nil)
	h := NewHandler(zap.NewNop(), auth, chat)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws/chat", h.HandleChat)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, token
}

func dialChat(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	hdr := http.Header{"Cookie": {"token=" + token}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, hdr)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(Event{Event: event, Data: payload})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var evt Event
	require.NoError(t, json.Unmarshal(data, &evt))
	return evt
}

func TestHandshakeRejectedWithoutCredential(t *testing.T) {
	srv, _ := startServer(t, &scriptedEngine{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJoinThenChat(t *testing.T) {
	srv, token := startServer(t, &scriptedEngine{replies: []string{"Tell me about yourself"}})
	conn := dialChat(t, srv, token)

	sendEvent(t, conn, "joinSession", joinPayload{SessionID: "abc123"})
	evt := readEvent(t, conn)
	assert.Equal(t, "chatHistory", evt.Event)
	var history []chatEntry
	require.NoError(t, json.Unmarshal(evt.Data, &history))
	assert.Empty(t, history)

	sendEvent(t, conn, "sendMessage", messagePayload{Text: "Hello"})
	evt = readEvent(t, conn)
	assert.Equal(t, "reply", evt.Event)
	var reply replyPayload
	require.NoError(t, json.Unmarshal(evt.Data, &reply))
	assert.Equal(t, "Tell me about yourself", reply.Text)
}

func TestRejoinSeesFullHistory(t *testing.T) {
	srv, token := startServer(t, &scriptedEngine{replies: []string{"q1"}})

	first := dialChat(t, srv, token)
	sendEvent(t, first, "joinSession", joinPayload{SessionID: "s1"})
	_ = readEvent(t, first) // empty history
	sendEvent(t, first, "sendMessage", messagePayload{Text: "a1"})
	_ = readEvent(t, first) // reply
	require.NoError(t, first.Close())

	second := dialChat(t, srv, token)
	sendEvent(t, second, "joinSession", joinPayload{SessionID: "s1"})
	evt := readEvent(t, second)
	require.Equal(t, "chatHistory", evt.Event)

	var history []chatEntry
	require.NoError(t, json.Unmarshal(evt.Data, &history))
	assert.Equal(t, []chatEntry{
		{Sender: "user", Text: "a1"},
		{Sender: "ai", Text: "q1"},
	}, history)
}

func TestMessageBeforeJoin(t *testing.T) {
	srv, token := startServer(t, &scriptedEngine{})
	conn := dialChat(t, srv, token)

	sendEvent(t, conn, "sendMessage", messagePayload{Text: "Hello"})
	evt := readEvent(t, conn)
	assert.Equal(t, "error", evt.Event)
}

func TestMalformedFrameIsDropped(t *testing.T) {
	srv, token := startServer(t, &scriptedEngine{})
	conn := dialChat(t, srv, token)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	// the connection survives and still accepts a join
	sendEvent(t, conn, "joinSession", joinPayload{SessionID: "s2"})
	evt := readEvent(t, conn)
	assert.Equal(t, "chatHistory", evt.Event)
}

func TestBusySignalWhileEngineInFlight(t *testing.T) {
	block := make(chan struct{})
	eng := &scriptedEngine{replies: []string{"q1"}, block: block}
	srv, token := startServer(t, eng)
	conn := dialChat(t, srv, token)

	sendEvent(t, conn, "joinSession", joinPayload{SessionID: "s3"})
	_ = readEvent(t, conn)

	sendEvent(t, conn, "sendMessage", messagePayload{Text: "first"})
	// give the first message time to reach the engine
	time.Sleep(50 * time.Millisecond)
	sendEvent(t, conn, "sendMessage", messagePayload{Text: "second"})

	evt := readEvent(t, conn)
	assert.Equal(t, "busy", evt.Event)

	close(block)
	evt = readEvent(t, conn)
	assert.Equal(t, "reply", evt.Event)
}
