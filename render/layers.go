package render

import "math"

// BackgroundLayer draws the camera image behind everything else. It must be
// the first child of the root composite.
type BackgroundLayer struct{}

func (l *BackgroundLayer) Init(s Surface) error { return nil }

func (l *BackgroundLayer) Draw(s Surface, fc *FrameContext) error {
	s.DrawVideoBackground()
	return nil
}

func (l *BackgroundLayer) Release() {}

// PointCloudLayer draws the world-tracking subsystem's feature points, a
// visual cue for how well the world is mapped.
type PointCloudLayer struct {
	Color [4]float32
}

func NewPointCloudLayer() *PointCloudLayer {
	return &PointCloudLayer{Color: [4]float32{1, 1, 1, 0.6}}
}

func (l *PointCloudLayer) Init(s Surface) error { return nil }

func (l *PointCloudLayer) Draw(s Surface, fc *FrameContext) error {
	if len(fc.PointCloud) == 0 {
		return nil
	}
	s.DrawPoints(fc.PointCloud, l.Color)
	return nil
}

func (l *PointCloudLayer) Release() {}

// bobAmplitude is the vertical marker bob in meters.
const bobAmplitude = 0.03

// ObjectLayer draws one marker per anchor in the frame's snapshot, using the
// category's mesh, texture and color, with a slow vertical bob driven by the
// anchor's animation phase.
type ObjectLayer struct{}

func (l *ObjectLayer) Init(s Surface) error { return nil }

func (l *ObjectLayer) Draw(s Surface, fc *FrameContext) error {
	for _, a := range fc.Anchors {
		model := a.Pose.Matrix()
		model[13] += float32(bobAmplitude * math.Sin(2*math.Pi*a.AnimationPhase/3))
		mvp := MulMat4(fc.Projection, MulMat4(fc.View, model))
		s.DrawMesh(a.Category.MeshAsset(), a.Category.TextureAsset(), mvp, a.Category.Color())
	}
	return nil
}

func (l *ObjectLayer) Release() {}

// MulMat4 multiplies two column-major 4x4 matrices, a*b.
func MulMat4(a, b [16]float32) [16]float32 {
	var out [16]float32
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// Identity4 is the identity matrix for callers building frame contexts.
func Identity4() [16]float32 {
	var m [16]float32
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	return m
}
