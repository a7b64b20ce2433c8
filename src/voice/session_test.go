package voice

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Protocol-Lattice/omnichat/src/apierr"
	"github.com/Protocol-Lattice/omnichat/src/speech"
)

type fakeTranscriber struct {
	calls atomic.Int32
	mu    sync.Mutex
	audio speech.Audio
	text  string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, a speech.Audio) string {
	f.calls.Add(1)
	f.mu.Lock()
	f.audio = a
	f.mu.Unlock()
	return f.text
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("session did not finish, state=%s", s.State())
	}
}

func TestAnalyzeStopsAfterSilenceWindow(t *testing.T) {
	s := NewSession(&MockDevice{}, nil, DefaultConfig(), nil)
	t0 := time.Unix(0, 0)
	s.state = Recording
	s.lastSound = t0
	s.chunks = [][]byte{{0, 0}}

	// 500ms of sound then silence, one frame every 16ms.
	var stopAt time.Duration = -1
	for at := time.Duration(0); at <= 4*time.Second; at += FrameInterval {
		energy := 0.0
		if at < 500*time.Millisecond {
			energy = 120
		}
		if s.analyze(t0.Add(at), energy) {
			stopAt = at
			break
		}
	}

	lastLoud := 496 * time.Millisecond
	if stopAt != lastLoud+DefaultSilence+FrameInterval {
		t.Fatalf("auto stop at %v, want %v", stopAt, lastLoud+DefaultSilence+FrameInterval)
	}
}

func TestAnalyzeSilenceBoundaryIsExclusive(t *testing.T) {
	s := NewSession(&MockDevice{}, nil, DefaultConfig(), nil)
	t0 := time.Unix(100, 0)
	s.state = Recording
	s.lastSound = t0
	s.chunks = [][]byte{{1}}

	if s.analyze(t0.Add(DefaultSilence), 0) {
		t.Fatal("exactly the silence window must not stop")
	}
	if !s.analyze(t0.Add(DefaultSilence+time.Millisecond), 0) {
		t.Fatal("past the silence window must stop")
	}
}

func TestAnalyzeThresholdAndChunkRequirement(t *testing.T) {
	s := NewSession(&MockDevice{}, nil, DefaultConfig(), nil)
	t0 := time.Unix(0, 0)
	s.state = Recording
	s.lastSound = t0

	if s.analyze(t0.Add(10*time.Second), 0) {
		t.Fatal("must not stop before any chunk was captured")
	}
	s.chunks = [][]byte{{1}}
	// Energy equal to the threshold is not sound.
	if !s.analyze(t0.Add(10*time.Second), DefaultThreshold) {
		t.Fatal("threshold energy should count as silence")
	}
	s.lastSound = t0
	if s.analyze(t0.Add(10*time.Second), DefaultThreshold+1) {
		t.Fatal("energy above threshold must reset the timer")
	}
	if !s.lastSound.Equal(t0.Add(10 * time.Second)) {
		t.Fatal("lastSound not updated")
	}
}

func fastConfig() Config {
	return Config{
		Threshold:     DefaultThreshold,
		Silence:       200 * time.Millisecond,
		ChunkInterval: 20 * time.Millisecond,
		FrameInterval: 5 * time.Millisecond,
	}
}

func TestSessionAutoStopsAndTranscribesOnce(t *testing.T) {
	dev := &MockDevice{EnergyAt: func(elapsed time.Duration) float64 {
		if elapsed < 100*time.Millisecond {
			return 90
		}
		return 2
	}}
	tr := &fakeTranscriber{text: "hello world"}
	s := NewSession(dev, tr, fastConfig(), nil)

	var got atomic.Int32
	var text atomic.Value
	if err := s.Start(context.Background(), func(txt string) {
		got.Add(1)
		text.Store(txt)
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.State() != Recording {
		t.Fatalf("state = %s, want recording", s.State())
	}

	waitDone(t, s)

	if got.Load() != 1 {
		t.Fatalf("onTranscribed fired %d times, want 1", got.Load())
	}
	if text.Load() != "hello world" {
		t.Fatalf("transcript = %v", text.Load())
	}
	if s.State() != Stopped || s.Reason() != ReasonSilence {
		t.Fatalf("state=%s reason=%s", s.State(), s.Reason())
	}
	if dev.Acquired() != 1 || dev.Closed() != 1 {
		t.Fatalf("device acquired=%d closed=%d", dev.Acquired(), dev.Closed())
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.audio.MIME != "audio/wav" || string(tr.audio.Data[:4]) != "RIFF" {
		t.Fatalf("transcriber got %s", tr.audio.MIME)
	}
}

func TestSessionZeroChunksSkipsTranscription(t *testing.T) {
	dev := &MockDevice{}
	tr := &fakeTranscriber{}
	cfg := fastConfig()
	cfg.ChunkInterval = time.Hour
	s := NewSession(dev, tr, cfg, nil)

	var fired atomic.Int32
	if err := s.Start(context.Background(), func(string) { fired.Add(1) }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(3 * cfg.Silence)
	if s.State() != Recording {
		t.Fatalf("silence without chunks must not auto stop, state=%s", s.State())
	}

	s.Stop()
	waitDone(t, s)

	if fired.Load() != 0 || tr.calls.Load() != 0 {
		t.Fatalf("callback=%d transcribe=%d, want 0/0", fired.Load(), tr.calls.Load())
	}
	if s.Reason() != ReasonManual {
		t.Fatalf("reason = %s", s.Reason())
	}
	if dev.Closed() != 1 {
		t.Fatal("device not released")
	}
}

func TestSessionStopIsIdempotent(t *testing.T) {
	dev := &MockDevice{}
	s := NewSession(dev, &fakeTranscriber{}, fastConfig(), nil)
	s.Stop() // idle: no effect
	if s.State() != Idle {
		t.Fatalf("stop on idle changed state to %s", s.State())
	}
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
	waitDone(t, s)
	s.Stop()
	s.Stop()
	if s.State() != Stopped || dev.Closed() != 1 {
		t.Fatalf("state=%s closed=%d", s.State(), dev.Closed())
	}
	if err := s.Start(context.Background(), nil); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("restart error = %v, want ErrSessionClosed", err)
	}
}

func TestSessionDeviceUnavailable(t *testing.T) {
	s := NewSession(&MockDevice{Err: errors.New("permission denied")}, nil, fastConfig(), nil)
	err := s.Start(context.Background(), nil)
	if apierr.KindOf(err) != apierr.KindDeviceUnavailable {
		t.Fatalf("kind = %s (%v)", apierr.KindOf(err), err)
	}
	if s.State() != Stopped {
		t.Fatalf("state = %s", s.State())
	}
	waitDone(t, s)
}

func TestSessionStopsWhenDeviceEnds(t *testing.T) {
	dev := &MockDevice{MaxChunks: 2}
	cfg := fastConfig()
	cfg.Silence = time.Hour
	tr := &fakeTranscriber{}
	s := NewSession(dev, tr, cfg, nil)
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, s)
	if s.State() != Stopped || s.Reason() != ReasonDeviceEnded {
		t.Fatalf("state=%s reason=%s", s.State(), s.Reason())
	}
	if tr.calls.Load() != 1 {
		t.Fatalf("transcribe calls = %d", tr.calls.Load())
	}
}

func TestRecorderAllowsOneActiveSession(t *testing.T) {
	r := NewRecorder(&MockDevice{}, &fakeTranscriber{}, fastConfig(), nil)
	first, err := r.Start(context.Background(), nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := r.Start(context.Background(), nil); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second Start error = %v, want ErrSessionActive", err)
	}

	if got := r.Stop(); got != first {
		t.Fatal("Stop returned a different session")
	}
	waitDone(t, first)

	second, err := r.Start(context.Background(), nil)
	if err != nil {
		t.Fatalf("Start after stop: %v", err)
	}
	if second.ID() == first.ID() {
		t.Fatal("expected a fresh session")
	}
	r.Stop()
	waitDone(t, second)
}

func TestRecorderStopWithoutSession(t *testing.T) {
	r := NewRecorder(&MockDevice{}, nil, Config{}, nil)
	if r.Stop() != nil {
		t.Fatal("expected no session")
	}
}

func TestEnergy(t *testing.T) {
	pcm := func(samples ...int16) []byte {
		b := make([]byte, 2*len(samples))
		for i, v := range samples {
			binary.LittleEndian.PutUint16(b[2*i:], uint16(v))
		}
		return b
	}
	if got := Energy(nil); got != 0 {
		t.Fatalf("Energy(nil) = %v", got)
	}
	if got := Energy(pcm(0, 0, 0)); got != 0 {
		t.Fatalf("silence = %v", got)
	}
	if got := Energy(pcm(math.MinInt16, math.MinInt16)); got != 255 {
		t.Fatalf("full scale = %v", got)
	}
	if got := Energy(pcm(16384, -16384)); math.Abs(got-127.5) > 1e-9 {
		t.Fatalf("half scale = %v", got)
	}
}

func TestChunkSize(t *testing.T) {
	f := speech.PCMFormat{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
	if got := chunkSize(f, ChunkInterval); got != 3200 {
		t.Fatalf("chunkSize = %d, want 3200", got)
	}
}

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{Idle: "idle", Recording: "recording", Stopping: "stopping", Stopped: "stopped"} {
		if st.String() != want {
			t.Fatalf("%d.String() = %s", int(st), st.String())
		}
	}
}
