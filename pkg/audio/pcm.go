// Package audio implements the fixed frame format shared by the relay's
// client pipeline and the AI engine: linear 16-bit signed little-endian
// samples, single channel. No length header is needed because the transport
// is message-delimited; one message is one frame.
package audio

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	// DefaultSampleRate matches the reference client's capture rate.
	DefaultSampleRate = 48000
	// BytesPerSample for 16-bit PCM.
	BytesPerSample = 2
)

// EncodePCM16 converts normalized float32 samples to 16-bit signed
// little-endian PCM. Samples are clamped to [-1, 1] and rounded to the
// nearest step; negative values scale by 0x8000 and positive by 0x7fff so
// the full integer range is reachable.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		v := float64(s)
		if v < -1 {
			v = -1
		} else if v > 1 {
			v = 1
		}
		var q int16
		if v < 0 {
			q = int16(math.Round(math.Max(v*0x8000, -0x8000)))
		} else {
			q = int16(math.Round(v * 0x7fff))
		}
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(q))
	}
	return out
}

// DecodePCM16 converts a 16-bit signed little-endian PCM frame back to
// normalized float32 samples. A trailing odd byte is dropped.
func DecodePCM16(frame []byte) []float32 {
	n := len(frame) / BytesPerSample
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		q := int16(binary.LittleEndian.Uint16(frame[i*BytesPerSample:]))
		out[i] = float32(q) / 32768
	}
	return out
}

// FrameDuration returns how long a frame of the given byte length plays at
// the given sample rate (mono).
func FrameDuration(frameBytes, sampleRate int) time.Duration {
	if sampleRate <= 0 || frameBytes <= 0 {
		return 0
	}
	samples := frameBytes / BytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
