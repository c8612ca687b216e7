package inference

import (
	"context"
	"image"
)

// Backend is the model runner behind the engine: it owns weights and the
// generation loop, nothing else. The engine layers state, slot accounting and
// stream plumbing on top.
//
// Generate must call emit once per decoded token and return when the
// sequence ends, emit returns an error, or ctx is cancelled. img is nil for
// text-only generation.
type Backend interface {
	Load(ctx context.Context) error
	Unload() error
	Generate(ctx context.Context, prompt string, img image.Image, emit func(token string) error) error
}
