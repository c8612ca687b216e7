package main

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// DebugMessage is one captured debug line, kept for the in-memory history.
type DebugMessage struct {
	Timestamp time.Time
	Component string
	Message   string
}

// DebugLogger provides unified component-tagged logging for the whole
// pipeline. Sub-packages receive its debugMsg via their SetDebugFunction
// hooks.
type DebugLogger struct {
	enabled bool
	mu      sync.Mutex
	history []DebugMessage
	maxMsgs int
}

func NewDebugLogger(enabled bool) *DebugLogger {
	return &DebugLogger{
		enabled: enabled,
		maxMsgs: 500,
	}
}

func (dl *DebugLogger) debugMsg(component, message string) {
	if !dl.enabled {
		return
	}
	dl.mu.Lock()
	dl.history = append(dl.history, DebugMessage{Timestamp: time.Now(), Component: component, Message: message})
	if len(dl.history) > dl.maxMsgs {
		dl.history = dl.history[len(dl.history)-dl.maxMsgs:]
	}
	dl.mu.Unlock()
	log.Printf("[%s] %s", component, message)
}

// History returns a copy of the retained messages, newest last.
func (dl *DebugLogger) History() []DebugMessage {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	out := make([]DebugMessage, len(dl.history))
	copy(out, dl.history)
	return out
}

// notice prints a user-facing message regardless of debug mode. Used for the
// one-time model-load failure notice.
func notice(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}
