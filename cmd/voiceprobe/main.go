// voiceprobe exercises the audio path end to end: it streams a generated
// tone into a relay session and plays back whatever the engine returns,
// printing transcript lines as they arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fortitwin/interview-relay/internal/auth/jwt"
	"github.com/fortitwin/interview-relay/internal/pipeline"
	"github.com/fortitwin/interview-relay/pkg/audio"
)

var (
	relayURL   = flag.String("relay", "ws://127.0.0.1:5310", "relay base URL (ws scheme)")
	sessionID  = flag.String("session", "probe-session", "session id to join")
	token      = flag.String("token", "", "signed credential; minted locally when -secret is set")
	secret     = flag.String("secret", "", "JWT secret for minting a probe credential")
	sampleRate = flag.Int("rate", audio.DefaultSampleRate, "sample rate in Hz")
	freq       = flag.Float64("freq", 440, "tone frequency in Hz")
	duration   = flag.Duration("duration", 10*time.Second, "how long to stream")
	outPath    = flag.String("out", "", "write received PCM16 to this file")
)

// toneSource synthesizes a sine tone in fixed 20ms blocks, pacing itself
// to real time so the stream resembles a live microphone.
type toneSource struct {
	rate      int
	freq      float64
	blockSize int
	remaining int
	phase     float64
	next      time.Time
}

func newToneSource(rate int, freq float64, d time.Duration) *toneSource {
	return &toneSource{
		rate:      rate,
		freq:      freq,
		blockSize: rate / 50,
		remaining: int(d.Seconds() * float64(rate)),
		next:      time.Now(),
	}
}

func (s *toneSource) ReadBlock() ([]float32, error) {
	if s.remaining <= 0 {
		return nil, io.EOF
	}
	n := s.blockSize
	if n > s.remaining {
		n = s.remaining
	}
	s.remaining -= n

	block := make([]float32, n)
	step := 2 * math.Pi * s.freq / float64(s.rate)
	for i := range block {
		block[i] = float32(0.3 * math.Sin(s.phase))
		s.phase += step
	}

	time.Sleep(time.Until(s.next))
	s.next = s.next.Add(time.Duration(n) * time.Second / time.Duration(s.rate))
	return block, nil
}

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cred := *token
	if cred == "" && *secret != "" {
		auth, err := jwt.NewService(jwt.Config{SecretKey: *secret, Duration: time.Hour})
		if err != nil {
			logger.Fatal("failed to build signer", zap.Error(err))
		}
		cred, err = auth.GenerateToken("voiceprobe", "candidate")
		if err != nil {
			logger.Fatal("failed to mint credential", zap.Error(err))
		}
	}
	if cred == "" {
		logger.Fatal("either -token or -secret is required")
	}

	var sink io.Writer
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			logger.Fatal("failed to open output file", zap.Error(err))
		}
		defer f.Close()
		sink = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	player := pipeline.NewTimedPlayer(*sampleRate, sink)
	client, err := pipeline.Dial(ctx, logger, *relayURL, *sessionID, cred, player,
		func(e pipeline.TranscriptEntry) {
			if e.Sender == "user" {
				fmt.Printf("You: %s\n", e.Text)
				return
			}
			fmt.Printf("AI: %s\n", e.Text)
		})
	if err != nil {
		logger.Fatal("failed to connect", zap.Error(err))
	}
	defer client.Close()

	capture := pipeline.NewCapture(logger, newToneSource(*sampleRate, *freq, *duration), client, 32)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return client.Run(gctx) })
	g.Go(func() error {
		defer client.Close()
		return capture.Run(gctx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("probe finished with error", zap.Error(err))
	}

	client.Playback.Wait()
	logger.Info("probe done",
		zap.Int64("frames_dropped", capture.Dropped()),
		zap.Int("transcript_lines", len(client.Transcript.Entries())))
}
