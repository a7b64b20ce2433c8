// Package omnichat routes chat, image and voice requests to AI providers and
// turns provider failures into short user-facing messages.
package omnichat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Protocol-Lattice/omnichat/src/apierr"
	"github.com/Protocol-Lattice/omnichat/src/concurrent"
	"github.com/Protocol-Lattice/omnichat/src/imaging"
	"github.com/Protocol-Lattice/omnichat/src/intent"
	"github.com/Protocol-Lattice/omnichat/src/models"
	"github.com/Protocol-Lattice/omnichat/src/speech"
	"github.com/Protocol-Lattice/omnichat/src/voice"
)

var (
	// ErrImagesDisabled is returned for image intents when no studio is configured.
	ErrImagesDisabled = errors.New("image generation is not configured")
	// ErrVoiceDisabled is returned by voice operations when no recorder is configured.
	ErrVoiceDisabled = errors.New("voice capture is not configured")
)

// ResultKind tags a Result.
type ResultKind string

const (
	KindText  ResultKind = "text"
	KindImage ResultKind = "image"
)

// Result is the outcome of one request. Content is text, or a data URI / URL for images.
type Result struct {
	Kind     ResultKind  `json:"kind"`
	Content  string      `json:"content"`
	Intent   intent.Kind `json:"-"`
	Provider string      `json:"provider"`
}

// Role identifies a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a chat entry ready for rendering.
type Message struct {
	ID        string        `json:"id"`
	Role      Role          `json:"role"`
	Kind      ResultKind    `json:"kind"`
	Content   string        `json:"content"`
	Provider  string        `json:"provider,omitempty"`
	Error     *apierr.Error `json:"-"`
	ErrorKind apierr.Kind   `json:"error_kind,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Invokers resolves text providers.
type Invokers interface {
	Lookup(id models.ProviderID) (models.Invoker, error)
}

// ImageStudio routes image requests.
type ImageStudio interface {
	Generate(ctx context.Context, prompt string, opts imaging.Options) (imaging.Image, error)
	Edit(ctx context.Context, source models.File, instruction string) (imaging.Image, error)
	Select(id string) error
	Selected() string
	IDs() []string
}

// Recorder owns voice sessions.
type Recorder interface {
	Start(ctx context.Context, onTranscribed func(string)) (*voice.Session, error)
	Stop() *voice.Session
}

// Speaker synthesizes speech and never fails.
type Speaker interface {
	Speak(ctx context.Context, text string) speech.Outcome
}

// Options configure an Orchestrator. Only Invokers and Provider are required.
type Options struct {
	Invokers Invokers
	Provider models.ProviderID
	Studio   ImageStudio
	Recorder Recorder
	Speaker  Speaker
	Metrics  *Metrics
	Logger   *slog.Logger
}

// Orchestrator classifies requests and dispatches them to the selected providers.
type Orchestrator struct {
	invokers Invokers
	studio   ImageStudio
	recorder Recorder
	speaker  Speaker
	metrics  *Metrics
	logger   *slog.Logger

	mu       sync.RWMutex
	provider models.ProviderID

	busy atomic.Int32
	bg   sync.WaitGroup
	// tts plays one utterance at a time.
	tts *concurrent.Pool
}

// New validates opts and returns an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Invokers == nil {
		return nil, errors.New("orchestrator requires text providers")
	}
	if _, err := opts.Invokers.Lookup(opts.Provider); err != nil {
		return nil, fmt.Errorf("default provider: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		invokers: opts.Invokers,
		studio:   opts.Studio,
		recorder: opts.Recorder,
		speaker:  opts.Speaker,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "orchestrator"),
		provider: opts.Provider,
		tts:      concurrent.NewPool(1),
	}, nil
}

// SendMessage classifies the request, dispatches it and returns a tagged result.
// Failures are returned as a single *apierr.Error. Nothing is retried.
func (o *Orchestrator) SendMessage(ctx context.Context, prompt string, files []models.File) (Result, error) {
	o.busy.Add(1)
	o.metrics.inFlight(1)
	defer func() {
		o.busy.Add(-1)
		o.metrics.inFlight(-1)
	}()

	start := time.Now()
	route := intent.Resolve(prompt, files)
	res, err := o.dispatch(ctx, route, prompt, files)
	res.Intent = route.Kind

	if err != nil {
		ne := apierr.Normalize(err, res.Provider)
		o.metrics.observeRequest(route.Kind.String(), res.Provider, "error", time.Since(start))
		o.metrics.observeError(res.Provider, string(ne.Kind))
		o.logger.Warn("request failed",
			"intent", route.Kind,
			"provider", res.Provider,
			"kind", ne.Kind,
			"status", ne.Status,
			"error", err,
		)
		return Result{Intent: route.Kind, Provider: res.Provider}, ne
	}

	o.metrics.observeRequest(route.Kind.String(), res.Provider, "ok", time.Since(start))
	o.logger.Debug("request served",
		"intent", route.Kind,
		"provider", res.Provider,
		"kind", res.Kind,
		"latency", time.Since(start),
	)
	return res, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, route intent.Result, prompt string, files []models.File) (Result, error) {
	switch route.Kind {
	case intent.ImageEdit:
		if o.studio == nil {
			return Result{Kind: KindImage}, ErrImagesDisabled
		}
		img, err := o.studio.Edit(ctx, *route.Source, prompt)
		return Result{Kind: KindImage, Content: img.URI, Provider: img.Provider}, err

	case intent.ImageGenerate:
		if o.studio == nil {
			return Result{Kind: KindImage}, ErrImagesDisabled
		}
		img, err := o.studio.Generate(ctx, prompt, imaging.Options{})
		return Result{Kind: KindImage, Content: img.URI, Provider: img.Provider}, err

	default:
		id := o.Provider()
		out := Result{Kind: KindText, Provider: string(id)}
		inv, err := o.invokers.Lookup(id)
		if err != nil {
			return out, err
		}
		out.Content, err = inv.Invoke(ctx, prompt, files)
		return out, err
	}
}

// Reply runs SendMessage and always returns an assistant message. Failures become
// a text message carrying the normalized sentence so the conversation continues.
func (o *Orchestrator) Reply(ctx context.Context, prompt string, files []models.File) Message {
	msg := Message{ID: uuid.NewString(), Role: RoleAssistant, CreatedAt: time.Now()}
	res, err := o.SendMessage(ctx, prompt, files)
	msg.Provider = res.Provider
	if err != nil {
		ne := apierr.Normalize(err, res.Provider)
		msg.Kind = KindText
		msg.Content = ne.Message
		msg.Error = ne
		msg.ErrorKind = ne.Kind
		return msg
	}
	msg.Kind = res.Kind
	msg.Content = res.Content
	return msg
}

// StartVoiceRecording begins a capture session. onTranscribed receives the
// transcript once the session stops with audio.
func (o *Orchestrator) StartVoiceRecording(ctx context.Context, onTranscribed func(string)) (*voice.Session, error) {
	if o.recorder == nil {
		return nil, apierr.Normalize(ErrVoiceDisabled, "microphone")
	}
	s, err := o.recorder.Start(ctx, onTranscribed)
	if err != nil {
		return nil, apierr.Normalize(err, "microphone")
	}
	o.bg.Add(1)
	go func() {
		defer o.bg.Done()
		<-s.Done()
		o.metrics.observeVoice(string(s.Reason()))
	}()
	return s, nil
}

// StopVoiceRecording stops the active session, if any.
func (o *Orchestrator) StopVoiceRecording() *voice.Session {
	if o.recorder == nil {
		return nil
	}
	return o.recorder.Stop()
}

// TextToSpeech speaks text in the background. Utterances do not overlap.
func (o *Orchestrator) TextToSpeech(text string) {
	if o.speaker == nil {
		o.logger.Debug("speech disabled, dropping text", "chars", len(text))
		return
	}
	o.tts.Go(context.Background(), func(ctx context.Context) {
		outcome := o.speaker.Speak(ctx, text)
		o.metrics.observeSpeech(string(outcome))
	})
}

// ChangeProvider selects the text provider for later requests.
func (o *Orchestrator) ChangeProvider(id models.ProviderID) error {
	if _, err := o.invokers.Lookup(id); err != nil {
		return err
	}
	o.mu.Lock()
	o.provider = id
	o.mu.Unlock()
	o.logger.Info("text provider changed", "provider", id)
	return nil
}

// ChangeImageProvider selects the image provider for later requests.
func (o *Orchestrator) ChangeImageProvider(id string) error {
	if o.studio == nil {
		return ErrImagesDisabled
	}
	if err := o.studio.Select(id); err != nil {
		return err
	}
	o.logger.Info("image provider changed", "provider", id)
	return nil
}

// Provider returns the selected text provider.
func (o *Orchestrator) Provider() models.ProviderID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.provider
}

// ImageProvider returns the selected image provider, or "" when images are disabled.
func (o *Orchestrator) ImageProvider() string {
	if o.studio == nil {
		return ""
	}
	return o.studio.Selected()
}

// ImageProviders lists the image providers that can be selected.
func (o *Orchestrator) ImageProviders() []string {
	if o.studio == nil {
		return nil
	}
	return o.studio.IDs()
}

// Busy reports whether a request is in flight.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load() > 0
}

// Close stops any recording and waits for background speech and voice bookkeeping.
func (o *Orchestrator) Close() {
	o.StopVoiceRecording()
	o.bg.Wait()
	o.tts.Wait()
}
