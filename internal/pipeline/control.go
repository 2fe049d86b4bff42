package pipeline

import (
	"sync"

	"github.com/tidwall/gjson"
)

// Control frame types emitted by the engine alongside the audio stream.
const (
	frameUserMessage      = "user_message"
	frameAssistantMessage = "assistant_message"
	frameUserPartial      = "user_partial"
	frameAudioOutputMeta  = "audio_output_meta"
)

// TranscriptEntry is one finalized line of the running transcript.
type TranscriptEntry struct {
	Sender string // "user" or "ai"
	Text   string
}

// Transcript is the display model driven by control frames: finalized user
// and assistant turns accumulate, while in-progress recognition overwrites
// a single partial line until the final arrives.
type Transcript struct {
	mu      sync.Mutex
	entries []TranscriptEntry
	partial string
	onEntry func(TranscriptEntry)
}

// NewTranscript creates a transcript. onEntry, if non-nil, fires for every
// finalized line.
func NewTranscript(onEntry func(TranscriptEntry)) *Transcript {
	return &Transcript{onEntry: onEntry}
}

// Apply interprets one control frame. Unknown types and frames that are
// not valid JSON are ignored. It reports whether the frame was recognized.
func (t *Transcript) Apply(raw []byte) bool {
	if !gjson.ValidBytes(raw) {
		return false
	}

	switch gjson.GetBytes(raw, "type").String() {
	case frameUserMessage:
		t.finalize("user", gjson.GetBytes(raw, "message.content").String())
	case frameAssistantMessage:
		t.finalize("ai", gjson.GetBytes(raw, "message.content").String())
	case frameUserPartial:
		t.mu.Lock()
		t.partial = gjson.GetBytes(raw, "partial").String()
		t.mu.Unlock()
	case frameAudioOutputMeta:
		// Carries timing for the audio that follows; playback state is
		// tracked from the frames themselves.
	default:
		return false
	}
	return true
}

func (t *Transcript) finalize(sender, text string) {
	if text == "" {
		return
	}
	entry := TranscriptEntry{Sender: sender, Text: text}

	t.mu.Lock()
	if sender == "user" {
		t.partial = ""
	}
	t.entries = append(t.entries, entry)
	cb := t.onEntry
	t.mu.Unlock()

	if cb != nil {
		cb(entry)
	}
}

// Entries returns a copy of the finalized lines in order.
func (t *Transcript) Entries() []TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TranscriptEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Partial returns the in-progress recognition line, empty when none.
func (t *Transcript) Partial() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.partial
}
