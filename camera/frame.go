// Package camera holds the frame type crossing the camera boundary: planar
// luma/chroma pixels tagged with the clockwise rotation that makes them
// upright.
package camera

import (
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"

	"elemark/transform"
)

// Frame is one sampled camera frame in un-rotated sensor space. Frames are
// immutable once constructed and never persisted.
type Frame struct {
	img        image.Image
	Rotation   transform.Rotation
	CapturedAt time.Time
}

// New wraps an already-decoded image as a frame. Used by the capture loop
// and by tests.
func New(img image.Image, rot transform.Rotation, at time.Time) (*Frame, error) {
	if img == nil {
		return nil, fmt.Errorf("camera: nil frame image")
	}
	if !rot.Valid() {
		return nil, fmt.Errorf("camera: invalid rotation %d", rot)
	}
	return &Frame{img: img, Rotation: rot, CapturedAt: at}, nil
}

// FromPlanes builds a frame from raw planar YCbCr data as delivered by a
// camera HAL: a full-resolution luma plane plus subsampled chroma planes.
func FromPlanes(y, cb, cr []byte, yStride, cStride, w, h int, ratio image.YCbCrSubsampleRatio, rot transform.Rotation) (*Frame, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("camera: invalid frame size %dx%d", w, h)
	}
	img := &image.YCbCr{
		Y:              y,
		Cb:             cb,
		Cr:             cr,
		YStride:        yStride,
		CStride:        cStride,
		SubsampleRatio: ratio,
		Rect:           image.Rect(0, 0, w, h),
	}
	return New(img, rot, time.Now())
}

// Sensor returns the un-rotated sensor-space image. Crops for classification
// are taken from here, before any rotation-dependent coordinate swap.
func (f *Frame) Sensor() image.Image {
	return f.img
}

// Bounds returns the sensor-space bounds.
func (f *Frame) Bounds() image.Rectangle {
	return f.img.Bounds()
}

// Upright returns the frame rotated into upright orientation. The rotation
// hint is clockwise, imaging rotates counter-clockwise, hence the swap of 90
// and 270.
func (f *Frame) Upright() image.Image {
	switch f.Rotation {
	case transform.Rotate90:
		return imaging.Rotate270(f.img)
	case transform.Rotate180:
		return imaging.Rotate180(f.img)
	case transform.Rotate270:
		return imaging.Rotate90(f.img)
	default:
		return f.img
	}
}
