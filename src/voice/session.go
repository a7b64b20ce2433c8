package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Protocol-Lattice/omnichat/src/apierr"
	"github.com/Protocol-Lattice/omnichat/src/speech"
)

const (
	ChunkInterval    = 100 * time.Millisecond
	FrameInterval    = 16 * time.Millisecond
	DefaultThreshold = 30.0
	DefaultSilence   = 2000 * time.Millisecond
)

var (
	// ErrSessionActive is returned when a recording is already in progress.
	ErrSessionActive = errors.New("voice session already active")
	// ErrSessionClosed is returned when starting a session that already ran.
	ErrSessionClosed = errors.New("voice session already stopped")
)

// State is the lifecycle of a Session.
type State int

const (
	Idle State = iota
	Recording
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StopReason records why recording ended.
type StopReason string

const (
	ReasonManual      StopReason = "manual"
	ReasonSilence     StopReason = "silence"
	ReasonDeviceEnded StopReason = "device_ended"
)

// Config tunes silence detection.
type Config struct {
	// Threshold is the energy (0-255) above which a frame counts as sound.
	Threshold float64
	// Silence is how long energy must stay at or below Threshold before auto stop.
	Silence       time.Duration
	ChunkInterval time.Duration
	FrameInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Threshold:     DefaultThreshold,
		Silence:       DefaultSilence,
		ChunkInterval: ChunkInterval,
		FrameInterval: FrameInterval,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	if c.Silence <= 0 {
		c.Silence = d.Silence
	}
	if c.ChunkInterval <= 0 {
		c.ChunkInterval = d.ChunkInterval
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = d.FrameInterval
	}
	return c
}

// Session is one capture from Start to Stopped. It cannot be restarted.
type Session struct {
	id     string
	dev    Device
	tr     speech.Transcriber
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu            sync.Mutex
	state         State
	reason        StopReason
	stream        Stream
	chunks        [][]byte
	lastSound     time.Time
	base          context.Context
	cancel        context.CancelFunc
	onTranscribed func(string)
	transcript    string
	done          chan struct{}
}

// NewSession creates an Idle session. tr may be nil, in which case audio is captured but not transcribed.
func NewSession(dev Device, tr speech.Transcriber, cfg Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Session{
		id:     id,
		dev:    dev,
		tr:     tr,
		cfg:    cfg.withDefaults(),
		logger: logger.With("component", "voice.session", "session_id", id),
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reason is empty until recording has ended.
func (s *Session) Reason() StopReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Transcript is the text delivered to the callback, if any.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript
}

// Done is closed once the session is Stopped and the callback has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start acquires the device and begins recording. Device failures are
// reported as apierr.KindDeviceUnavailable and leave the session Stopped.
func (s *Session) Start(ctx context.Context, onTranscribed func(string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Idle:
	case Stopped:
		return ErrSessionClosed
	default:
		return ErrSessionActive
	}

	stream, err := s.dev.Acquire(ctx, s.cfg.ChunkInterval)
	if err != nil {
		s.state = Stopped
		close(s.done)
		if !errors.Is(err, apierr.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %w", apierr.ErrDeviceUnavailable, err)
		}
		s.logger.Warn("capture device unavailable", "error", err)
		return apierr.Normalize(err, "microphone")
	}

	s.base = context.WithoutCancel(ctx)
	loopCtx, cancel := context.WithCancel(s.base)
	s.stream = stream
	s.cancel = cancel
	s.onTranscribed = onTranscribed
	s.lastSound = s.now()
	s.state = Recording
	s.logger.Info("recording started", "threshold", s.cfg.Threshold, "silence", s.cfg.Silence)

	go s.run(loopCtx, stream)
	return nil
}

// Stop ends a recording. It is a no-op unless the session is Recording.
func (s *Session) Stop() {
	s.halt(ReasonManual)
}

func (s *Session) halt(reason StopReason) bool {
	s.mu.Lock()
	if s.state != Recording {
		s.mu.Unlock()
		return false
	}
	s.state = Stopping
	s.reason = reason
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info("recording stopping", "reason", reason)
	cancel()
	return true
}

func (s *Session) run(ctx context.Context, stream Stream) {
	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()

	chunks := stream.Chunks()
	for {
		select {
		case <-ctx.Done():
			s.finalize(stream)
			return
		case c, ok := <-chunks:
			if !ok {
				chunks = nil
				s.halt(ReasonDeviceEnded)
				continue
			}
			s.addChunk(c)
		case <-ticker.C:
			if s.analyze(s.now(), stream.Energy()) {
				s.halt(ReasonSilence)
			}
		}
	}
}

func (s *Session) addChunk(c []byte) {
	if len(c) == 0 {
		return
	}
	s.mu.Lock()
	s.chunks = append(s.chunks, c)
	s.mu.Unlock()
}

// analyze runs one frame of silence detection and reports whether recording should stop.
func (s *Session) analyze(now time.Time, energy float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Recording {
		return false
	}
	if energy > s.cfg.Threshold {
		s.lastSound = now
		return false
	}
	return now.Sub(s.lastSound) > s.cfg.Silence && len(s.chunks) > 0
}

func (s *Session) finalize(stream Stream) {
	defer close(s.done)

	if err := stream.Close(); err != nil {
		s.logger.Warn("release capture device", "error", err)
	}
	s.drain(stream.Chunks())

	s.mu.Lock()
	chunks := s.chunks
	s.chunks = nil
	s.stream = nil
	s.state = Stopped
	cb := s.onTranscribed
	s.mu.Unlock()

	if len(chunks) == 0 {
		s.logger.Info("recording stopped without audio")
		return
	}
	blob := concat(chunks)
	s.logger.Info("recording stopped", "chunks", len(chunks), "bytes", len(blob))
	if s.tr == nil {
		return
	}

	text := s.tr.Transcribe(s.base, speech.Audio{MIME: "audio/wav", Data: speech.WAV(blob, stream.Format())})
	s.mu.Lock()
	s.transcript = text
	s.mu.Unlock()
	if cb != nil {
		cb(text)
	}
}

// drain collects what the released stream still delivers, up to the close of its channel.
func (s *Session) drain(ch <-chan []byte) {
	for c := range ch {
		s.addChunk(c)
	}
}

func concat(chunks [][]byte) []byte {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
