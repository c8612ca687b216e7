package camera

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elemark/transform"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	return img
}

func TestFrameValidation(t *testing.T) {
	_, err := New(nil, transform.Rotate0, time.Now())
	assert.Error(t, err)

	_, err = New(testImage(4, 4), transform.Rotation(45), time.Now())
	assert.Error(t, err)

	f, err := New(testImage(4, 4), transform.Rotate90, time.Now())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), f.Bounds())
}

func TestUprightDimensions(t *testing.T) {
	for _, tc := range []struct {
		rot  transform.Rotation
		w, h int
	}{
		{transform.Rotate0, 8, 4},
		{transform.Rotate90, 4, 8},
		{transform.Rotate180, 8, 4},
		{transform.Rotate270, 4, 8},
	} {
		f, err := New(testImage(8, 4), tc.rot, time.Now())
		require.NoError(t, err)
		up := f.Upright()
		assert.Equal(t, tc.w, up.Bounds().Dx(), "rotation %d", tc.rot)
		assert.Equal(t, tc.h, up.Bounds().Dy(), "rotation %d", tc.rot)
	}
}

func TestUprightRotatesClockwise(t *testing.T) {
	// Mark the sensor's top-left pixel; after a 90 degree clockwise rotation
	// it must land at the upright frame's top-right.
	img := testImage(8, 4)
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})

	f, err := New(img, transform.Rotate90, time.Now())
	require.NoError(t, err)
	up := f.Upright()

	r, _, _, _ := up.At(up.Bounds().Dx()-1, 0).RGBA()
	assert.NotZero(t, r, "marked pixel should be at the top-right after CW rotation")
}

func TestFromPlanes(t *testing.T) {
	const w, h = 8, 4
	y := make([]byte, w*h)
	cb := make([]byte, w*h/4)
	cr := make([]byte, w*h/4)

	f, err := FromPlanes(y, cb, cr, w, w/2, w, h, image.YCbCrSubsampleRatio420, transform.Rotate0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, w, h), f.Bounds())

	_, err = FromPlanes(y, cb, cr, w, w/2, 0, h, image.YCbCrSubsampleRatio420, transform.Rotate0)
	assert.Error(t, err)
}

func TestSamplerCadence(t *testing.T) {
	s := NewSampler(3)
	var fired []bool
	for i := 0; i < 7; i++ {
		fired = append(fired, s.Tick())
	}
	if !fired[0] || fired[1] || fired[2] || !fired[3] || fired[4] || fired[5] || !fired[6] {
		t.Errorf("unexpected cadence: %v", fired)
	}
}

func TestSamplerEveryFrame(t *testing.T) {
	s := NewSampler(0)
	for i := 0; i < 3; i++ {
		if !s.Tick() {
			t.Fatalf("interval<1 should fire every frame")
		}
	}
}
