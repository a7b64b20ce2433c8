package voice

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Protocol-Lattice/omnichat/src/speech"
)

// Recorder owns the single active Session.
type Recorder struct {
	dev    Device
	tr     speech.Transcriber
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	current *Session
}

func NewRecorder(dev Device, tr speech.Transcriber, cfg Config, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{dev: dev, tr: tr, cfg: cfg, logger: logger}
}

// Start begins a new session. It fails with ErrSessionActive while the
// previous one is still recording or finishing.
func (r *Recorder) Start(ctx context.Context, onTranscribed func(string)) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		switch r.current.State() {
		case Recording, Stopping:
			return nil, ErrSessionActive
		}
	}
	s := NewSession(r.dev, r.tr, r.cfg, r.logger)
	if err := s.Start(ctx, onTranscribed); err != nil {
		return nil, err
	}
	r.current = s
	return s, nil
}

// Stop stops the active session, if any, and returns it.
func (r *Recorder) Stop() *Session {
	r.mu.Lock()
	s := r.current
	r.mu.Unlock()
	if s != nil {
		s.Stop()
	}
	return s
}
