package main

import (
	"math"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"elemark/anchor"
	"elemark/transform"
)

// flatWorld is a minimal world-tracking implementation for running without a
// real AR host: a fixed camera at the origin looking down -Z, a ground plane,
// and hit-tests that back-project a view point onto that plane. Real
// deployments swap in the host SDK behind the same interfaces.
type flatWorld struct {
	viewW, viewH int
	fovY         float64 // vertical field of view, radians
	groundY      float64 // ground plane height in camera space, meters

	mu      sync.Mutex
	tracked map[uuid.UUID]transform.Pose
}

func newFlatWorld(viewW, viewH int) *flatWorld {
	return &flatWorld{
		viewW:   viewW,
		viewH:   viewH,
		fovY:    60 * math.Pi / 180,
		groundY: -1.4,
		tracked: make(map[uuid.UUID]transform.Pose),
	}
}

// HitTest back-projects the view point through the pinhole model and
// intersects the ground plane. Rays at or above the horizon miss.
func (w *flatWorld) HitTest(viewX, viewY float64) (transform.Pose, bool) {
	f := float64(w.viewH) / 2 / math.Tan(w.fovY/2)
	dir := r3.Vec{
		X: viewX - float64(w.viewW)/2,
		Y: -(viewY - float64(w.viewH)/2),
		Z: -f,
	}
	if dir.Y >= 0 {
		return transform.Pose{}, false
	}
	t := w.groundY / dir.Y
	hit := r3.Scale(t, dir)
	if -hit.Z < 0.2 || -hit.Z > 15 {
		return transform.Pose{}, false
	}
	pose := transform.IdentityPose()
	pose.Translation = hit
	return pose, true
}

// Track registers a placed anchor so AnchorPose can report it as tracking.
func (w *flatWorld) Track(id uuid.UUID, pose transform.Pose) {
	w.mu.Lock()
	w.tracked[id] = pose
	w.mu.Unlock()
}

// CameraPose implements anchor.PoseProvider. The debug world's camera is
// pinned at the origin.
func (w *flatWorld) CameraPose() transform.Pose {
	return transform.IdentityPose()
}

// AnchorPose implements anchor.PoseProvider. The flat world never moves, so
// registered anchors stay where they were placed.
func (w *flatWorld) AnchorPose(id uuid.UUID) (transform.Pose, anchor.TrackingState, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	pose, ok := w.tracked[id]
	if !ok {
		return transform.Pose{}, anchor.Stopped, false
	}
	return pose, anchor.Tracking, true
}

// PointCloud synthesizes a sparse ground grid so the point-cloud layer has
// something to draw without a real depth subsystem.
func (w *flatWorld) PointCloud() []r3.Vec {
	var pts []r3.Vec
	for z := -1.0; z >= -8.0; z -= 0.5 {
		for x := -4.0; x <= 4.0; x += 0.5 {
			pts = append(pts, r3.Vec{X: x, Y: w.groundY, Z: z})
		}
	}
	return pts
}

// Projection returns the column-major perspective matrix matching the
// pinhole model HitTest uses.
func (w *flatWorld) Projection() [16]float32 {
	const near, far = 0.1, 30.0
	aspect := float64(w.viewW) / float64(w.viewH)
	f := 1 / math.Tan(w.fovY/2)

	var m [16]float32
	m[0] = float32(f / aspect)
	m[5] = float32(f)
	m[10] = float32((far + near) / (near - far))
	m[11] = -1
	m[14] = float32(2 * far * near / (near - far))
	return m
}
