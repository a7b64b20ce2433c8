package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Protocol-Lattice/omnichat/src/apierr"
	"github.com/Protocol-Lattice/omnichat/src/speech"
)

// CommandDevice captures mono PCM16 from a recorder subprocess writing raw audio to stdout.
type CommandDevice struct {
	Name       string
	Args       []string
	SampleRate int
	Logger     *slog.Logger
}

// NewCommandDevice returns an ALSA arecord device at 16 kHz.
func NewCommandDevice(logger *slog.Logger) *CommandDevice {
	return &CommandDevice{Name: "arecord", SampleRate: 16000, Logger: logger}
}

func (d *CommandDevice) args() []string {
	if len(d.Args) > 0 {
		return d.Args
	}
	return []string{"-q", "-f", "S16_LE", "-c", "1", "-r", strconv.Itoa(d.SampleRate), "-t", "raw"}
}

func (d *CommandDevice) Acquire(ctx context.Context, chunkInterval time.Duration) (Stream, error) {
	if _, err := exec.LookPath(d.Name); err != nil {
		return nil, fmt.Errorf("%w: %w", apierr.ErrDeviceUnavailable, err)
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apierr.ErrDeviceUnavailable, err)
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cmd := exec.CommandContext(runCtx, d.Name, d.args()...)
	cmd.Stdout = w
	if err := cmd.Start(); err != nil {
		cancel()
		r.Close()
		w.Close()
		return nil, fmt.Errorf("%w: %w", apierr.ErrDeviceUnavailable, err)
	}
	// The child holds its own copy of the write end; EOF arrives when it exits.
	w.Close()

	s := &commandStream{
		format: speech.PCMFormat{SampleRate: d.SampleRate, Channels: 1, BitsPerSample: 16},
		cmd:    cmd,
		cancel: cancel,
		out:    r,
		chunks: make(chan []byte, 32),
		logger: logger.With("component", "voice.device", "command", d.Name),
	}
	go s.read(chunkSize(s.format, chunkInterval))
	return s, nil
}

// closeGrace bounds the wait for a pipe still held open by a descendant of the killed recorder.
const closeGrace = time.Second

type commandStream struct {
	format speech.PCMFormat
	cmd    *exec.Cmd
	cancel context.CancelFunc
	out    *os.File
	chunks chan []byte
	energy atomic.Uint64
	logger *slog.Logger
	once   sync.Once
}

// read forwards stdout in chunk-sized pieces until EOF, including a short final piece.
// Sends block, so the consumer must drain Chunks until it is closed.
func (s *commandStream) read(size int) {
	defer close(s.chunks)
	defer s.out.Close()
	for {
		buf := make([]byte, size)
		n, err := io.ReadFull(s.out, buf)
		if n > 0 {
			buf = buf[:n]
			s.energy.Store(math.Float64bits(Energy(buf)))
			s.chunks <- buf
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Debug("capture read ended", "error", err)
			}
			return
		}
	}
}

func (s *commandStream) Chunks() <-chan []byte { return s.chunks }

func (s *commandStream) Energy() float64 { return math.Float64frombits(s.energy.Load()) }

func (s *commandStream) Format() speech.PCMFormat { return s.format }

// Close stops the recorder. Audio it already wrote is still delivered on Chunks before the channel closes.
func (s *commandStream) Close() error {
	s.once.Do(func() {
		s.cancel()
		_ = s.cmd.Wait()
		_ = s.out.SetReadDeadline(time.Now().Add(closeGrace))
	})
	return nil
}
