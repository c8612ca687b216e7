// Package anchor owns the live set of 3D markers placed in the world, their
// per-frame tracking refresh and their eviction policy.
package anchor

import (
	"time"

	"github.com/google/uuid"

	"elemark/category"
	"elemark/transform"
)

// TrackingState mirrors the host world-tracking subsystem's notion of how
// well an anchor's pose is currently known.
type TrackingState int

const (
	Tracking TrackingState = iota
	Paused
	Stopped
)

func (s TrackingState) String() string {
	switch s {
	case Tracking:
		return "Tracking"
	case Paused:
		return "Paused"
	default:
		return "Stopped"
	}
}

// Anchor is a tracked 3D marker bound to a world pose and a category. The
// category is never Other: OnClassified refuses to create one.
type Anchor struct {
	ID                 uuid.UUID
	Category           category.Category
	Pose               transform.Pose
	TrackingState      TrackingState
	DistanceFromCamera float64
	CreatedAt          time.Time
	// AnimationPhase is seconds since creation, driving the marker bob
	// animation in the object layer.
	AnimationPhase float64

	lastTracking time.Time
}

// HitTester is the world-model boundary: map a 2D view-space point to zero
// or one 3D pose. A miss is a valid negative outcome, not an error.
type HitTester interface {
	HitTest(viewX, viewY float64) (transform.Pose, bool)
}

// PoseProvider supplies the per-frame truth the manager refreshes from: the
// camera pose and each anchor's current pose and tracking state. A false
// return means the host lost the anchor entirely.
type PoseProvider interface {
	CameraPose() transform.Pose
	AnchorPose(id uuid.UUID) (transform.Pose, TrackingState, bool)
}
