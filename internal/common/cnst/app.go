package cnst

const (
	// AppName identifies the relay in logs and metrics.
	AppName = "interview-relay"

	// ChatPath is the control-channel endpoint candidates connect to.
	ChatPath = "/ws/chat"
	// VoicePathPrefix is the streaming endpoint prefix; the session id follows it.
	VoicePathPrefix = "/ws/voice"

	// TokenCookie is the cookie carrying the signed session credential.
	TokenCookie = "token"

	// RelayYaml is the default configuration file name.
	RelayYaml = "relay.yaml"
)

// Control-channel event names, inbound and outbound.
const (
	EventJoinSession = "joinSession"
	EventSendMessage = "sendMessage"
	EventChatHistory = "chatHistory"
	EventReply       = "reply"
	EventBusy        = "busy"
	EventError       = "error"
)

// FallbackReply is delivered when the engine call fails, so the candidate
// is never left waiting on a dead turn.
const FallbackReply = "AI engine unavailable. Try again."
