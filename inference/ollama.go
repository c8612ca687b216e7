package inference

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"net/url"

	"github.com/jmorganca/ollama/api"
)

// OllamaBackend drives a multimodal model served by a local ollama daemon.
// The daemon owns the weights and KV state; this backend is a thin streaming
// client, which keeps the whole pipeline on-device without linking the model
// runtime into this process.
type OllamaBackend struct {
	client *api.Client
	model  string
}

// NewOllamaBackend connects to the daemon at host (empty means the standard
// environment lookup) for the named model.
func NewOllamaBackend(host, model string) (*OllamaBackend, error) {
	if model == "" {
		return nil, fmt.Errorf("inference: model name required")
	}
	if host == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client: %w", err)
		}
		return &OllamaBackend{client: client, model: model}, nil
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("ollama host: %w", err)
	}
	return &OllamaBackend{client: api.NewClient(u, http.DefaultClient), model: model}, nil
}

// Load verifies the daemon is reachable and the model is present. The daemon
// loads weights lazily on first generation; surfacing a missing model here
// keeps load failure a distinct, one-time event.
func (b *OllamaBackend) Load(ctx context.Context) error {
	if _, err := b.client.Show(ctx, &api.ShowRequest{Model: b.model}); err != nil {
		return fmt.Errorf("model %q unavailable: %w", b.model, err)
	}
	return nil
}

// Unload is a no-op: the daemon owns the weights and evicts them on its own
// keep-alive schedule.
func (b *OllamaBackend) Unload() error {
	return nil
}

// Generate streams tokens for the prompt, with an optional image encoded as
// JPEG. Cancelling ctx aborts the request; an emit error aborts the stream
// callback, which the client reports as ctx cancellation.
func (b *OllamaBackend) Generate(ctx context.Context, prompt string, img image.Image, emit func(token string) error) error {
	req := &api.GenerateRequest{
		Model:  b.model,
		Prompt: prompt,
		Stream: boolPtr(true),
		Options: map[string]interface{}{
			"temperature": 0.0,
		},
	}

	if img != nil {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return fmt.Errorf("encode image: %w", err)
		}
		req.Images = []api.ImageData{buf.Bytes()}
	}

	err := b.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		if resp.Response == "" {
			return nil
		}
		return emit(resp.Response)
	})
	if err != nil && ctx.Err() != nil {
		// Early consumer termination surfaces as a cancelled request.
		return ctx.Err()
	}
	return err
}

func boolPtr(v bool) *bool { return &v }
