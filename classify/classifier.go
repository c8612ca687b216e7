// Package classify turns detector candidates into category decisions by
// asking the on-device multimodal model, with a deterministic keyword
// fallback when the model is unavailable or ambiguous.
package classify

import (
	"context"
	"image"
	"io"
	"strings"
	"sync"
	"time"

	"elemark/category"
	"elemark/inference"
)

// Prompt is the fixed instruction sent with every crop. The answer is
// expected in the first few tokens, which is what makes the token cutoff
// safe.
const Prompt = "Classify this image into one of: water, land, fire, wood, metal. Answer with one word."

// Result is one classification outcome.
type Result struct {
	Category category.Category
	// RawModelOutput is the captured model text, empty on the pure
	// heuristic path.
	RawModelOutput string
	// Confidence is always 1.0: the engine provides no native confidence
	// and no downstream scoring scheme is invented here.
	Confidence float64
	// Heuristic marks results produced by mapping the detector label
	// instead of the model answer.
	Heuristic bool
	// InferenceLatency covers the engine round trip, zero on the pure
	// heuristic path.
	InferenceLatency time.Duration
}

// Config controls the classifier. All fields have working defaults.
type Config struct {
	// TokenCutoff is the maximum number of tokens read from the model per
	// classification; the rest of the stream is cancelled. Bounds worst-case
	// latency independent of model verbosity.
	TokenCutoff int
	// CropSize is the longest-side target for the downscaled crop sent to
	// the model.
	CropSize int
	// Slot is the engine sequence slot used for classification.
	Slot int
	// Timeout bounds one engine round trip. Expiry is recoverable and
	// resolves through the fallback.
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		TokenCutoff: 5,
		CropSize:    256,
		Slot:        0,
		Timeout:     30 * time.Second,
	}
}

// Classifier composes the inference engine with the keyword mapper. All
// classification is strictly sequential: the engine holds single-threaded
// mutable state, so concurrent callers serialize behind mu and are never
// dropped.
type Classifier struct {
	engine *inference.Engine
	mapper *category.Mapper
	cfg    Config
	mu     sync.Mutex
}

func New(engine *inference.Engine, mapper *category.Mapper, cfg Config) *Classifier {
	if cfg.TokenCutoff < 1 {
		cfg.TokenCutoff = 1
	}
	return &Classifier{engine: engine, mapper: mapper, cfg: cfg}
}

// Classify resolves one cropped candidate. detLabel is the fast detector's
// own label, used by the fallback. Never returns an error: every failure
// mode resolves to a heuristic result.
func (c *Classifier) Classify(ctx context.Context, crop image.Image, detLabel string) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil || c.engine.State() == inference.StateUnloaded {
		// Detector-only degraded mode: the model never loaded.
		return c.fallback(detLabel, "", 0)
	}

	genCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	stream, err := c.engine.AnalyzeImage(genCtx, crop, Prompt, c.cfg.Slot)
	if err != nil {
		return c.fallback(detLabel, "", time.Since(start))
	}

	var sb strings.Builder
	var streamErr error
	for i := 0; i < c.cfg.TokenCutoff; i++ {
		tok, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			streamErr = err
			break
		}
		sb.WriteString(tok)
	}
	stream.Close()
	latency := time.Since(start)
	raw := sb.String()

	if streamErr != nil {
		return c.fallback(detLabel, raw, latency)
	}
	if cat, ok := ParseAnswer(raw); ok {
		debugMsg("CLASSIFY", "model answer "+cat.String()+" in "+latency.String())
		return Result{Category: cat, RawModelOutput: raw, Confidence: 1.0, InferenceLatency: latency}
	}
	// Ambiguous output; resolved locally, never surfaced.
	return c.fallback(detLabel, raw, latency)
}

func (c *Classifier) fallback(detLabel, raw string, latency time.Duration) Result {
	cat := c.mapper.Map(detLabel)
	debugMsg("CLASSIFY", "heuristic "+detLabel+" -> "+cat.String())
	return Result{
		Category:         cat,
		RawModelOutput:   raw,
		Confidence:       1.0,
		Heuristic:        true,
		InferenceLatency: latency,
	}
}

// ParseAnswer scans the captured model text for the five answer keywords,
// case-insensitively, mapping "land" to Earth. Reports false when nothing
// matches.
func ParseAnswer(s string) (category.Category, bool) {
	t := strings.ToLower(s)
	switch {
	case strings.Contains(t, "water"):
		return category.Water, true
	case strings.Contains(t, "land"):
		return category.Earth, true
	case strings.Contains(t, "fire"):
		return category.Fire, true
	case strings.Contains(t, "wood"):
		return category.Wood, true
	case strings.Contains(t, "metal"):
		return category.Metal, true
	}
	return category.Other, false
}
