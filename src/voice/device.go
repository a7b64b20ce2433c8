// Package voice records microphone audio and stops on its own after a
// sustained stretch of silence.
package voice

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/Protocol-Lattice/omnichat/src/speech"
)

// Stream is an acquired capture device.
type Stream interface {
	// Chunks yields raw PCM fragments, one per chunk interval. It is closed when capture
	// ends, or after Close once every fragment already captured has been delivered.
	Chunks() <-chan []byte
	// Energy is the mean signal energy of the latest analysis window on a 0-255 scale.
	Energy() float64
	Format() speech.PCMFormat
	Close() error
}

// Device acquires audio input.
type Device interface {
	Acquire(ctx context.Context, chunkInterval time.Duration) (Stream, error)
}

// Energy returns the mean absolute amplitude of little-endian PCM16 samples scaled to 0-255.
func Energy(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		if v < 0 {
			sum -= float64(v)
		} else {
			sum += float64(v)
		}
	}
	return sum / float64(n) / 32768 * 255
}

// chunkSize is the byte length of one PCM16 chunk of d.
func chunkSize(f speech.PCMFormat, d time.Duration) int {
	bytesPerSample := f.BitsPerSample / 8
	if bytesPerSample == 0 {
		bytesPerSample = 2
	}
	channels := f.Channels
	if channels == 0 {
		channels = 1
	}
	n := int(int64(f.SampleRate) * int64(d) / int64(time.Second))
	if n < 1 {
		n = 1
	}
	return n * channels * bytesPerSample
}
