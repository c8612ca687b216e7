// Package inference owns the single generative multimodal model context and
// exposes generation as lazy, cancellable token streams.
package inference

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
)

// State is the engine lifecycle state.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateGenerating
	StateUnloading
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "Loading"
	case StateReady:
		return "Ready"
	case StateGenerating:
		return "Generating"
	case StateUnloading:
		return "Unloading"
	default:
		return "Unloaded"
	}
}

var (
	// ErrModelNotLoaded is returned when generation is requested before
	// Initialize has completed. A precondition violation, never auto-retried.
	ErrModelNotLoaded = errors.New("inference: model not loaded")
	// ErrSlotBusy is returned when a sequence slot already has a generation
	// in flight. Callers serialize; this guards the invariant.
	ErrSlotBusy = errors.New("inference: sequence slot busy")
)

// Config sizes the engine.
type Config struct {
	// NSlots is how many independent conversational states the engine may
	// multiplex. The default is one slot, reused serially.
	NSlots int
}

func DefaultConfig() Config {
	return Config{NSlots: 1}
}

// Engine wraps a Backend with the Unloaded/Loading/Ready/Generating lifecycle
// and per-slot in-flight accounting. An Engine is an explicitly constructed,
// owned resource: exactly one loaded context, passed by reference to its
// consumers.
type Engine struct {
	backend Backend
	cfg     Config

	opMu sync.Mutex // serializes Initialize and Unload

	mu     sync.Mutex // guards state and active
	state  State
	active map[int]*TokenStream
}

func New(backend Backend, cfg Config) *Engine {
	if cfg.NSlots < 1 {
		cfg.NSlots = 1
	}
	return &Engine{
		backend: backend,
		cfg:     cfg,
		active:  make(map[int]*TokenStream),
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Initialize loads the model context. Idempotent: calling it when the engine
// is already Ready (or Generating) is a no-op.
func (e *Engine) Initialize(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	switch e.State() {
	case StateReady, StateGenerating:
		return nil
	}

	e.setState(StateLoading)
	if err := e.backend.Load(ctx); err != nil {
		e.setState(StateUnloaded)
		return fmt.Errorf("load model: %w", err)
	}
	e.setState(StateReady)
	return nil
}

// Unload releases the model context. Idempotent. An in-flight generation is
// force-cancelled first and awaited before the backend is released.
func (e *Engine) Unload() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.state == StateUnloaded {
		e.mu.Unlock()
		return nil
	}
	streams := make([]*TokenStream, 0, len(e.active))
	for _, s := range e.active {
		streams = append(streams, s)
	}
	e.state = StateUnloading
	e.mu.Unlock()

	for _, s := range streams {
		s.Close()
	}

	err := e.backend.Unload()
	e.setState(StateUnloaded)
	if err != nil {
		return fmt.Errorf("unload model: %w", err)
	}
	return nil
}

// GenerateText starts a text-only generation on the given sequence slot.
func (e *Engine) GenerateText(ctx context.Context, prompt string, slot int) (*TokenStream, error) {
	return e.generate(ctx, prompt, nil, slot)
}

// AnalyzeImage encodes the image into the context, then decodes a text
// response to the prompt, on the given sequence slot.
func (e *Engine) AnalyzeImage(ctx context.Context, img image.Image, prompt string, slot int) (*TokenStream, error) {
	if img == nil {
		return nil, fmt.Errorf("inference: nil image")
	}
	return e.generate(ctx, prompt, img, slot)
}

func (e *Engine) generate(ctx context.Context, prompt string, img image.Image, slot int) (*TokenStream, error) {
	if slot < 0 || slot >= e.cfg.NSlots {
		return nil, fmt.Errorf("inference: sequence slot %d out of range [0,%d)", slot, e.cfg.NSlots)
	}

	genCtx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	switch e.state {
	case StateReady, StateGenerating:
	default:
		e.mu.Unlock()
		cancel()
		return nil, ErrModelNotLoaded
	}
	if _, busy := e.active[slot]; busy {
		e.mu.Unlock()
		cancel()
		return nil, ErrSlotBusy
	}
	stream := newTokenStream(cancel)
	e.active[slot] = stream
	e.state = StateGenerating
	e.mu.Unlock()

	go func() {
		err := e.backend.Generate(genCtx, prompt, img, func(tok string) error {
			return stream.emit(genCtx, tok)
		})
		cancel()

		e.mu.Lock()
		delete(e.active, slot)
		if len(e.active) == 0 && e.state == StateGenerating {
			e.state = StateReady
		}
		e.mu.Unlock()

		stream.finish(err)
	}()

	return stream, nil
}
