// Package detection wraps a lightweight, low-latency object detector behind a
// provider interface and normalizes its output into a single upright
// coordinate space with size filtering applied.
package detection

import (
	"image"
	"time"
)

// Provider is the interface a concrete detector backend implements. Detect
// returns raw boxes in the coordinate space of img; the Detector above it
// owns rotation remapping and filtering.
type Provider interface {
	Detect(img image.Image) ([]RawBox, error)
	Close() error
	Info() ProviderInfo
}

// ProviderInfo describes the active backend for logging and diagnostics.
type ProviderInfo struct {
	Name     string
	Backend  string
	InitTime time.Duration
}

// debugMsgFunc is set by the main package to route debug output through the
// unified logger.
var debugMsgFunc func(component, message string)

// SetDebugFunction allows the main package to provide the debug logger.
func SetDebugFunction(fn func(component, message string)) {
	debugMsgFunc = fn
}

func debugMsg(component, message string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message)
	}
}
