package detection

import "image"

// DetectedObject is one candidate object in upright-rotated image space.
// Ephemeral: it lives for the frame that produced it and is never persisted.
type DetectedObject struct {
	Label      string
	Confidence float64
	Center     image.Point
	Width      int
	Height     int
}

// ExtendedDetectedObject adds the bounding box in un-rotated sensor space.
// Cropping for classification happens against the raw sensor image, before
// the rotation-dependent coordinate swap, so both spaces are carried.
type ExtendedDetectedObject struct {
	DetectedObject
	BoundingBoxPixels image.Rectangle
}

// RawBox is a provider-level detection: a box in the coordinate space of the
// image handed to the provider, before any filtering or rotation remapping.
type RawBox struct {
	Rect       image.Rectangle
	Label      string
	Confidence float64
}
