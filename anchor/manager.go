package anchor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"elemark/category"
	"elemark/classify"
	"elemark/detection"
	"elemark/transform"
)

// Config controls anchor lifecycle. Passed at construction, no globals.
type Config struct {
	// GracePeriod is how long an anchor may stay non-Tracking before it is
	// evicted.
	GracePeriod time.Duration
	// Capacity caps the live set; overflow evicts the oldest anchor first.
	Capacity int
}

func DefaultConfig() Config {
	return Config{
		GracePeriod: 3 * time.Second,
		Capacity:    20,
	}
}

// View is the size of the on-screen viewport hit-tests are issued against.
type View struct {
	Width  int
	Height int
}

// Manager owns the anchor set exclusively. The render loop reads defensive
// snapshots; classification results arrive asynchronously through
// OnClassified.
type Manager struct {
	world PoseProvider
	hits  HitTester
	cfg   Config

	mu      sync.Mutex
	anchors []*Anchor // creation order, oldest first
}

func NewManager(world PoseProvider, hits HitTester, cfg Config) *Manager {
	return &Manager{world: world, hits: hits, cfg: cfg}
}

// OnClassified converts a classified detection into an anchor. Returns false
// without side effects when the category is Other or the hit-test misses.
// imgW and imgH are the upright image dimensions the detection center lives
// in; view is the viewport the hit-test expects.
func (m *Manager) OnClassified(det detection.DetectedObject, res classify.Result, imgW, imgH int, view View) (*Anchor, bool) {
	if res.Category == category.Other {
		return nil, false
	}

	vx, vy := transform.ImageToView(det.Center, imgW, imgH, view.Width, view.Height)
	pose, ok := m.hits.HitTest(vx, vy)
	if !ok {
		return nil, false
	}

	now := time.Now()
	a := &Anchor{
		ID:                 uuid.New(),
		Category:           res.Category,
		Pose:               pose,
		TrackingState:      Tracking,
		DistanceFromCamera: pose.Distance(m.world.CameraPose()),
		CreatedAt:          now,
		lastTracking:       now,
	}

	m.mu.Lock()
	if m.cfg.Capacity > 0 && len(m.anchors) >= m.cfg.Capacity {
		m.anchors = m.anchors[1:]
	}
	m.anchors = append(m.anchors, a)
	m.mu.Unlock()

	return a, true
}

// Refresh updates pose, tracking state, distance and animation phase for
// every anchor from the world-tracking subsystem, and evicts anchors that
// stayed non-Tracking past the grace period. Called once per render frame.
func (m *Manager) Refresh(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cam := m.world.CameraPose()
	kept := m.anchors[:0]
	for _, a := range m.anchors {
		if pose, st, ok := m.world.AnchorPose(a.ID); ok {
			a.Pose = pose
			a.TrackingState = st
		} else {
			a.TrackingState = Stopped
		}

		if a.TrackingState == Tracking {
			a.lastTracking = now
		} else if now.Sub(a.lastTracking) > m.cfg.GracePeriod {
			continue
		}

		a.DistanceFromCamera = a.Pose.Distance(cam)
		a.AnimationPhase = now.Sub(a.CreatedAt).Seconds()
		kept = append(kept, a)
	}
	// Drop references past the new end so evicted anchors can be collected.
	for i := len(kept); i < len(m.anchors); i++ {
		m.anchors[i] = nil
	}
	m.anchors = kept
}

// Snapshot returns a defensive copy of the current anchor set for the render
// loop. Mutations after the call do not affect the returned slice.
func (m *Manager) Snapshot() []Anchor {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Anchor, len(m.anchors))
	for i, a := range m.anchors {
		out[i] = *a
	}
	return out
}

// Len reports the live anchor count.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.anchors)
}
