package voice

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Protocol-Lattice/omnichat/src/speech"
)

// MockDevice produces silent PCM chunks and a scripted energy signal.
type MockDevice struct {
	// Err is returned by Acquire when set.
	Err error
	// EnergyAt maps time since acquisition to energy. Nil means silence.
	EnergyAt func(elapsed time.Duration) float64
	// MaxChunks ends the stream after this many chunks; 0 means unlimited.
	MaxChunks int
	Format    speech.PCMFormat

	acquired atomic.Int32
	closed   atomic.Int32
}

// Acquired reports how many streams were handed out.
func (m *MockDevice) Acquired() int { return int(m.acquired.Load()) }

// Closed reports how many streams were released.
func (m *MockDevice) Closed() int { return int(m.closed.Load()) }

func (m *MockDevice) Acquire(_ context.Context, chunkInterval time.Duration) (Stream, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.acquired.Add(1)
	f := m.Format
	if f.SampleRate == 0 {
		f = speech.PCMFormat{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
	}
	s := &mockStream{
		dev:    m,
		format: f,
		start:  time.Now(),
		chunks: make(chan []byte, 64),
		stop:   make(chan struct{}),
	}
	go s.emit(chunkInterval, chunkSize(f, chunkInterval))
	return s, nil
}

type mockStream struct {
	dev    *MockDevice
	format speech.PCMFormat
	start  time.Time
	chunks chan []byte
	stop   chan struct{}
	once   sync.Once
}

func (s *mockStream) emit(interval time.Duration, size int) {
	defer close(s.chunks)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for sent := 0; s.dev.MaxChunks == 0 || sent < s.dev.MaxChunks; {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			select {
			case s.chunks <- make([]byte, size):
				sent++
			case <-s.stop:
				return
			}
		}
	}
}

func (s *mockStream) Chunks() <-chan []byte { return s.chunks }

func (s *mockStream) Energy() float64 {
	if s.dev.EnergyAt == nil {
		return 0
	}
	return s.dev.EnergyAt(time.Since(s.start))
}

func (s *mockStream) Format() speech.PCMFormat { return s.format }

func (s *mockStream) Close() error {
	s.once.Do(func() {
		close(s.stop)
		s.dev.closed.Add(1)
	})
	return nil
}
