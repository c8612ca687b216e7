package detection

import (
	"fmt"
	"image"
	"sort"

	"elemark/camera"
	"elemark/transform"
)

// Detector is the fast per-frame detector. It rotates the raw frame upright,
// runs the provider, filters candidates by confidence and relative area, and
// remaps the surviving boxes back through the rotation so callers get both
// upright and sensor-space coordinates.
type Detector struct {
	provider Provider
	cfg      Config
}

func New(provider Provider, cfg Config) *Detector {
	return &Detector{provider: provider, cfg: cfg}
}

// Analyze returns the frame's candidates ordered highest confidence first,
// capped at Config.MaxResults. A provider error propagates untouched; callers
// treat it as a transient frame-skip.
func (d *Detector) Analyze(frame *camera.Frame) ([]ExtendedDetectedObject, error) {
	upright := frame.Upright()
	boxes, err := d.provider.Detect(upright)
	if err != nil {
		return nil, err
	}

	ub := upright.Bounds()
	frameArea := float64(ub.Dx() * ub.Dy())
	sb := frame.Bounds()

	var out []ExtendedDetectedObject
	for _, b := range boxes {
		if b.Confidence < d.cfg.MinConfidence {
			continue
		}
		r := b.Rect.Intersect(ub)
		if r.Empty() {
			continue
		}
		area := float64(r.Dx() * r.Dy())
		if area < d.cfg.MinAreaPct*frameArea || area > d.cfg.MaxAreaPct*frameArea {
			continue
		}

		center := image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2)
		out = append(out, ExtendedDetectedObject{
			DetectedObject: DetectedObject{
				Label:      b.Label,
				Confidence: b.Confidence,
				Center:     center,
				Width:      r.Dx(),
				Height:     r.Dy(),
			},
			BoundingBoxPixels: transform.UnrotateRect(r, sb.Dx(), sb.Dy(), frame.Rotation),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	if d.cfg.MaxResults > 0 && len(out) > d.cfg.MaxResults {
		out = out[:d.cfg.MaxResults]
	}

	if len(out) > 0 {
		debugMsg("DETECT", fmt.Sprintf("%d candidate(s), best %q %.2f", len(out), out[0].Label, out[0].Confidence))
	}
	return out, nil
}

// Close releases the underlying provider.
func (d *Detector) Close() error {
	return d.provider.Close()
}

// Info reports the active provider.
func (d *Detector) Info() ProviderInfo {
	return d.provider.Info()
}
