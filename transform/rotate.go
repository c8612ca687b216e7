package transform

import "image"

// Rotation is a clockwise sensor-to-upright rotation hint in degrees,
// matching the rotation tag delivered with each camera frame.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// Valid reports whether r is one of the four supported rotations.
func (r Rotation) Valid() bool {
	switch r {
	case Rotate0, Rotate90, Rotate180, Rotate270:
		return true
	}
	return false
}

// Swapped reports whether the rotation swaps width and height.
func (r Rotation) Swapped() bool {
	return r == Rotate90 || r == Rotate270
}

// RotatePoint maps a point from un-rotated sensor space (w x h) into the
// upright space produced by rotating the frame clockwise by rot. Coordinates
// use the edge convention (x in [0,w], y in [0,h]) so the mapping is an exact
// bijection and UnrotatePoint inverts it without loss.
func RotatePoint(p image.Point, w, h int, rot Rotation) image.Point {
	switch rot {
	case Rotate90:
		return image.Pt(h-p.Y, p.X)
	case Rotate180:
		return image.Pt(w-p.X, h-p.Y)
	case Rotate270:
		return image.Pt(p.Y, w-p.X)
	default:
		return p
	}
}

// UnrotatePoint maps a point from upright space back into un-rotated sensor
// space (w x h are the sensor dimensions). It is the exact inverse of
// RotatePoint for the same w, h and rot.
func UnrotatePoint(p image.Point, w, h int, rot Rotation) image.Point {
	switch rot {
	case Rotate90:
		return image.Pt(p.Y, h-p.X)
	case Rotate180:
		return image.Pt(w-p.X, h-p.Y)
	case Rotate270:
		return image.Pt(w-p.Y, p.X)
	default:
		return p
	}
}

// RotateRect maps a rectangle from sensor space into upright space.
func RotateRect(r image.Rectangle, w, h int, rot Rotation) image.Rectangle {
	a := RotatePoint(r.Min, w, h, rot)
	b := RotatePoint(r.Max, w, h, rot)
	return image.Rect(a.X, a.Y, b.X, b.Y)
}

// UnrotateRect maps a rectangle from upright space back into sensor space.
func UnrotateRect(r image.Rectangle, w, h int, rot Rotation) image.Rectangle {
	a := UnrotatePoint(r.Min, w, h, rot)
	b := UnrotatePoint(r.Max, w, h, rot)
	return image.Rect(a.X, a.Y, b.X, b.Y)
}

// UprightSize returns the frame dimensions after rotating a w x h sensor
// frame upright.
func UprightSize(w, h int, rot Rotation) (int, int) {
	if rot.Swapped() {
		return h, w
	}
	return w, h
}

// ImageToView maps a point in upright image pixels onto view (screen)
// coordinates, using the aspect-fill mapping a camera preview uses: the image
// is scaled until it covers the view and centered, with the overflow cropped.
func ImageToView(p image.Point, imgW, imgH, viewW, viewH int) (float64, float64) {
	sx := float64(viewW) / float64(imgW)
	sy := float64(viewH) / float64(imgH)
	scale := sx
	if sy > sx {
		scale = sy
	}
	offX := (float64(viewW) - float64(imgW)*scale) / 2
	offY := (float64(viewH) - float64(imgH)*scale) / 2
	return float64(p.X)*scale + offX, float64(p.Y)*scale + offY
}
