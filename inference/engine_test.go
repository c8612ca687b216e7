package inference

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptBackend emits a fixed token script per generation.
type scriptBackend struct {
	tokens    []string
	loadCount atomic.Int32
	loadErr   error
	emitted   atomic.Int32
}

func (b *scriptBackend) Load(ctx context.Context) error {
	b.loadCount.Add(1)
	return b.loadErr
}

func (b *scriptBackend) Unload() error { return nil }

func (b *scriptBackend) Generate(ctx context.Context, prompt string, img image.Image, emit func(string) error) error {
	for _, tok := range b.tokens {
		if err := emit(tok); err != nil {
			return err
		}
		b.emitted.Add(1)
	}
	return nil
}

// infiniteBackend never stops emitting on its own.
type infiniteBackend struct {
	emitted atomic.Int64
}

func (b *infiniteBackend) Load(ctx context.Context) error { return nil }

func (b *infiniteBackend) Unload() error { return nil }

func (b *infiniteBackend) Generate(ctx context.Context, prompt string, img image.Image, emit func(string) error) error {
	for i := 0; ; i++ {
		if err := emit(fmt.Sprintf("tok%d ", i)); err != nil {
			return err
		}
		b.emitted.Add(1)
	}
}

func ready(t *testing.T, b Backend) *Engine {
	t.Helper()
	e := New(b, DefaultConfig())
	require.NoError(t, e.Initialize(context.Background()))
	return e
}

func TestGenerateBeforeInitialize(t *testing.T) {
	e := New(&scriptBackend{}, DefaultConfig())
	_, err := e.GenerateText(context.Background(), "hello", 0)
	assert.ErrorIs(t, err, ErrModelNotLoaded)
	assert.Equal(t, StateUnloaded, e.State())
}

func TestInitializeIdempotent(t *testing.T) {
	b := &scriptBackend{}
	e := ready(t, b)
	require.NoError(t, e.Initialize(context.Background()))
	require.NoError(t, e.Initialize(context.Background()))
	assert.Equal(t, int32(1), b.loadCount.Load())
	assert.Equal(t, StateReady, e.State())
}

func TestInitializeFailureReturnsToUnloaded(t *testing.T) {
	b := &scriptBackend{loadErr: errors.New("weights missing")}
	e := New(b, DefaultConfig())
	err := e.Initialize(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateUnloaded, e.State())

	// Not auto-retried by the engine, but a later explicit call may succeed.
	b.loadErr = nil
	require.NoError(t, e.Initialize(context.Background()))
	assert.Equal(t, StateReady, e.State())
}

func TestTokenSequence(t *testing.T) {
	e := ready(t, &scriptBackend{tokens: []string{"he", "llo"}})
	stream, err := e.GenerateText(context.Background(), "greet", 0)
	require.NoError(t, err)

	tok, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "he", tok)

	tok, err = stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "llo", tok)

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)

	stream.Close()
	assert.Equal(t, StateReady, e.State())
}

func TestEarlyCloseIsNormalCompletion(t *testing.T) {
	b := &infiniteBackend{}
	e := ready(t, b)

	stream, err := e.GenerateText(context.Background(), "ramble", 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := stream.Next()
		require.NoError(t, err)
	}
	stream.Close()

	// Close waits for the producer, so the context must be Ready again and
	// the backend must have stopped promptly.
	assert.Equal(t, StateReady, e.State())
	emitted := b.emitted.Load()
	assert.Less(t, emitted, int64(10), "generation loop kept running after Close")

	// Reads after Close report clean exhaustion.
	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestCollectBoundsInfiniteStream(t *testing.T) {
	e := ready(t, &infiniteBackend{})
	stream, err := e.GenerateText(context.Background(), "ramble", 0)
	require.NoError(t, err)

	out, err := stream.Collect(5)
	require.NoError(t, err)
	assert.Equal(t, "tok0 tok1 tok2 tok3 tok4 ", out)
	assert.Equal(t, StateReady, e.State())
}

func TestGenerationErrorSurfaces(t *testing.T) {
	boom := errors.New("decode failed")
	e := ready(t, backendFunc(func(ctx context.Context, emit func(string) error) error {
		if err := emit("par"); err != nil {
			return err
		}
		return boom
	}))

	stream, err := e.GenerateText(context.Background(), "x", 0)
	require.NoError(t, err)

	tok, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "par", tok)

	_, err = stream.Next()
	assert.ErrorIs(t, err, boom)
	stream.Close()
	assert.Equal(t, StateReady, e.State())
}

func TestSlotOutOfRange(t *testing.T) {
	e := ready(t, &scriptBackend{})
	_, err := e.GenerateText(context.Background(), "x", 1)
	assert.Error(t, err)
	_, err = e.GenerateText(context.Background(), "x", -1)
	assert.Error(t, err)
}

func TestSlotBusy(t *testing.T) {
	e := ready(t, &infiniteBackend{})
	stream, err := e.GenerateText(context.Background(), "x", 0)
	require.NoError(t, err)
	defer stream.Close()

	_, err = e.GenerateText(context.Background(), "y", 0)
	assert.ErrorIs(t, err, ErrSlotBusy)
}

func TestSecondSlotIndependent(t *testing.T) {
	e := New(&infiniteBackend{}, Config{NSlots: 2})
	require.NoError(t, e.Initialize(context.Background()))

	s0, err := e.GenerateText(context.Background(), "x", 0)
	require.NoError(t, err)
	s1, err := e.GenerateText(context.Background(), "y", 1)
	require.NoError(t, err)

	s0.Close()
	assert.Equal(t, StateGenerating, e.State(), "slot 1 still in flight")
	s1.Close()
	assert.Equal(t, StateReady, e.State())
}

func TestUnloadForceCancelsGeneration(t *testing.T) {
	e := ready(t, &infiniteBackend{})
	stream, err := e.GenerateText(context.Background(), "x", 0)
	require.NoError(t, err)

	_, err = stream.Next()
	require.NoError(t, err)

	require.NoError(t, e.Unload())
	assert.Equal(t, StateUnloaded, e.State())

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)

	_, err = e.GenerateText(context.Background(), "x", 0)
	assert.ErrorIs(t, err, ErrModelNotLoaded)
}

func TestUnloadIdempotent(t *testing.T) {
	e := ready(t, &scriptBackend{})
	require.NoError(t, e.Unload())
	require.NoError(t, e.Unload())
	assert.Equal(t, StateUnloaded, e.State())
}

func TestAnalyzeImageRequiresImage(t *testing.T) {
	e := ready(t, &scriptBackend{tokens: []string{"ok"}})
	_, err := e.AnalyzeImage(context.Background(), nil, "p", 0)
	assert.Error(t, err)
}

func TestCallerDeadlineIsRecoverable(t *testing.T) {
	e := ready(t, &infiniteBackend{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	stream, err := e.GenerateText(ctx, "x", 0)
	require.NoError(t, err)

	var last error
	for {
		_, err := stream.Next()
		if err != nil {
			last = err
			break
		}
	}
	assert.ErrorIs(t, last, context.DeadlineExceeded)
	stream.Close()

	// The engine is still usable afterwards.
	assert.Equal(t, StateReady, e.State())
	s2, err := e.GenerateText(context.Background(), "x", 0)
	require.NoError(t, err)
	s2.Close()
}

// backendFunc adapts a bare generate function into a Backend.
type backendFunc func(ctx context.Context, emit func(string) error) error

func (f backendFunc) Load(ctx context.Context) error { return nil }

func (f backendFunc) Unload() error { return nil }

func (f backendFunc) Generate(ctx context.Context, prompt string, img image.Image, emit func(string) error) error {
	return f(ctx, emit)
}
