package classify

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"elemark/camera"
	"elemark/detection"
)

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

// CropDetection cuts the candidate's sensor-space bounding box out of the
// raw frame and downscales it for the model. The crop is taken from the
// un-rotated sensor image: BoundingBoxPixels lives in that space, and
// cropping must happen before any rotation-dependent coordinate swap.
func CropDetection(frame *camera.Frame, det detection.ExtendedDetectedObject, size int) (image.Image, error) {
	r := det.BoundingBoxPixels.Intersect(frame.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("classify: detection box %v outside frame %v", det.BoundingBoxPixels, frame.Bounds())
	}
	crop := imaging.Crop(frame.Sensor(), r)
	if size > 0 && (crop.Bounds().Dx() > size || crop.Bounds().Dy() > size) {
		return imaging.Fit(crop, size, size, imaging.Lanczos), nil
	}
	return crop, nil
}
