package inference

import (
	"context"
	"errors"
	"io"
	"sync"
)

// TokenStream is a lazy, cancellable sequence of UTF-8 tokens from one
// generation call. Consumers pull with Next and may stop early with Close;
// early termination is normal completion, not an error, and promptly cancels
// the producing generation.
type TokenStream struct {
	ch     chan string
	done   chan struct{}
	cancel context.CancelFunc

	mu     sync.Mutex
	err    error
	closed bool
}

func newTokenStream(cancel context.CancelFunc) *TokenStream {
	return &TokenStream{
		ch:     make(chan string),
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// emit hands one token to the consumer, aborting if the stream was cancelled
// mid-send. Called from the producer goroutine.
func (s *TokenStream) emit(ctx context.Context, tok string) error {
	select {
	case s.ch <- tok:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish records the terminal outcome and unblocks consumers. Cancellation is
// folded into clean completion: a consumer that asked for fewer tokens than
// the model produced did not hit an error.
func (s *TokenStream) finish(err error) {
	s.mu.Lock()
	if err != nil && !errors.Is(err, context.Canceled) {
		s.err = err
	}
	s.mu.Unlock()
	close(s.ch)
	close(s.done)
}

// Next blocks for the next token. It returns io.EOF when the sequence is
// exhausted or was closed early, or the generation error if one occurred.
func (s *TokenStream) Next() (string, error) {
	tok, ok := <-s.ch
	if !ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	return tok, nil
}

// Collect drains the stream into one string, up to max tokens (unbounded if
// max <= 0), then closes it.
func (s *TokenStream) Collect(max int) (string, error) {
	defer s.Close()
	var out []byte
	for i := 0; max <= 0 || i < max; i++ {
		tok, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return string(out), err
		}
		out = append(out, tok...)
	}
	return string(out), nil
}

// Close cancels the underlying generation and waits for the producer to wind
// down, so the engine is back in Ready before Close returns. Idempotent.
func (s *TokenStream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
}
