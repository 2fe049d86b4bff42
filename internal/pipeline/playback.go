package pipeline

import (
	"io"
	"sync"
	"time"

	"github.com/fortitwin/interview-relay/pkg/audio"
)

// Player renders one chunk of decoded samples on an output device. Play
// must not block; done is invoked exactly once when the chunk has finished
// rendering, at which point the queue hands over the next one.
type Player interface {
	Play(samples []float32, done func())
}

// PlaybackQueue serializes received audio onto a Player: frames queue up
// in arrival order and exactly one is active at a time, the next starting
// only when the player reports the current one done. The backlog is
// unbounded so bursty delivery never reorders or drops output.
type PlaybackQueue struct {
	mu       sync.Mutex
	player   Player
	fifo     [][]float32
	active   bool
	speaking bool
	drained  *sync.Cond
}

func NewPlaybackQueue(player Player) *PlaybackQueue {
	q := &PlaybackQueue{player: player}
	q.drained = sync.NewCond(&q.mu)
	return q
}

// Enqueue decodes one PCM16 frame and schedules it. If nothing is playing
// the frame starts immediately and the queue switches to speaking.
func (q *PlaybackQueue) Enqueue(frame []byte) {
	samples := audio.DecodePCM16(frame)
	if len(samples) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.speaking = true
	if q.active {
		q.fifo = append(q.fifo, samples)
		return
	}
	q.active = true
	q.player.Play(samples, q.onDone)
}

func (q *PlaybackQueue) onDone() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.fifo) > 0 {
		next := q.fifo[0]
		q.fifo = q.fifo[1:]
		q.player.Play(next, q.onDone)
		return
	}
	q.active = false
	q.speaking = false
	q.drained.Broadcast()
}

// Speaking reports whether output is audible: true from the first frame
// after silence until the backlog fully drains.
func (q *PlaybackQueue) Speaking() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.speaking
}

// Backlog reports how many frames wait behind the active one.
func (q *PlaybackQueue) Backlog() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fifo)
}

// Wait blocks until playback goes silent.
func (q *PlaybackQueue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.speaking {
		q.drained.Wait()
	}
}

// TimedPlayer renders chunks by pacing wall-clock time at the configured
// sample rate, optionally copying the re-encoded PCM to a sink (a file, or
// a speaker process reading raw audio on stdin).
type TimedPlayer struct {
	sampleRate int
	sink       io.Writer
	mu         sync.Mutex
}

func NewTimedPlayer(sampleRate int, sink io.Writer) *TimedPlayer {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &TimedPlayer{sampleRate: sampleRate, sink: sink}
}

func (p *TimedPlayer) Play(samples []float32, done func()) {
	go func() {
		if p.sink != nil {
			p.mu.Lock()
			p.sink.Write(audio.EncodePCM16(samples))
			p.mu.Unlock()
		}
		time.Sleep(audio.FrameDuration(len(samples)*audio.BytesPerSample, p.sampleRate))
		done()
	}()
}
