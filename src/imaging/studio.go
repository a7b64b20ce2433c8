package imaging

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Protocol-Lattice/omnichat/src/models"
)

// Image is a produced image together with the provider that made it.
// Provider is set on failures too so callers can attribute the error.
type Image struct {
	URI      string
	Provider string
}

// Studio routes image requests to the selected provider.
type Studio struct {
	mu            sync.RWMutex
	generators    map[string]Generator
	editors       map[string]Editor
	selected      string
	defaultEditor string
	logger        *slog.Logger
}

// NewStudio creates an empty studio. selected is the initial generation provider,
// defaultEditor is preferred for edits when the selected provider cannot edit.
func NewStudio(selected, defaultEditor string, logger *slog.Logger) *Studio {
	if logger == nil {
		logger = slog.Default()
	}
	return &Studio{
		generators:    make(map[string]Generator),
		editors:       make(map[string]Editor),
		selected:      selected,
		defaultEditor: defaultEditor,
		logger:        logger.With("component", "imaging.studio"),
	}
}

// AddGenerator registers g under id.
func (s *Studio) AddGenerator(id string, g Generator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generators[id] = g
}

// AddEditor registers e under id.
func (s *Studio) AddEditor(id string, e Editor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editors[id] = e
}

// Add registers v as generator and/or editor, depending on what it implements.
func (s *Studio) Add(id string, v any) {
	if g, ok := v.(Generator); ok {
		s.AddGenerator(id, g)
	}
	if e, ok := v.(Editor); ok {
		s.AddEditor(id, e)
	}
}

// Select changes the image provider used by later requests.
func (s *Studio) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, g := s.generators[id]
	_, e := s.editors[id]
	if !g && !e {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, id)
	}
	s.selected = id
	return nil
}

// HasEditor reports whether id is registered as an editor.
func (s *Studio) HasEditor(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.editors[id]
	return ok
}

// Selected returns the current image provider.
func (s *Studio) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// IDs lists every provider that can generate or edit, sorted.
func (s *Studio) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(s.generators)+len(s.editors))
	for id := range s.generators {
		seen[id] = struct{}{}
	}
	for id := range s.editors {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Generate renders prompt with the selected provider.
func (s *Studio) Generate(ctx context.Context, prompt string, opts Options) (Image, error) {
	s.mu.RLock()
	id := s.selected
	g, ok := s.generators[id]
	s.mu.RUnlock()

	out := Image{Provider: id}
	if !ok {
		return out, fmt.Errorf("%w: %s cannot generate images", ErrUnknownProvider, id)
	}
	opts, err := opts.Normalize()
	if err != nil {
		return out, err
	}
	s.logger.Debug("generating image", "provider", id, "style", opts.Style, "aspect_ratio", opts.AspectRatio)
	out.URI, err = g.Generate(ctx, prompt, opts)
	return out, err
}

// Edit applies instruction to source with the selected provider. When that
// provider cannot edit it falls back to the default editor, then to the first
// registered editor in ID order.
func (s *Studio) Edit(ctx context.Context, source models.File, instruction string) (Image, error) {
	s.mu.RLock()
	id := s.selected
	e, ok := s.editors[id]
	if !ok {
		id = s.defaultEditor
		e, ok = s.editors[id]
	}
	if !ok && len(s.editors) > 0 {
		ids := make([]string, 0, len(s.editors))
		for k := range s.editors {
			ids = append(ids, k)
		}
		sort.Strings(ids)
		id = ids[0]
		e, ok = s.editors[id]
	}
	s.mu.RUnlock()

	out := Image{Provider: id}
	if !ok {
		return out, ErrNoEditor
	}
	s.logger.Debug("editing image", "provider", id, "source", source.Name)
	uri, err := e.Edit(ctx, source, instruction)
	out.URI = uri
	return out, err
}
