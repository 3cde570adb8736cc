// Package vision holds the image-side building blocks of the recognition
// pipeline: the collaborator interface implemented by the AI worker, the
// region preprocessor that readies vehicle crops for OCR, and the annotator
// that renders detection overlays.
package vision

import (
	"image"

	"github.com/ripas/ripas-go/internal/types"
)

// Vision is the external detector/recognizer collaborator. The production
// implementation is the Python worker subprocess; tests substitute fakes.
type Vision interface {
	// Detect runs object detection on a JPEG-encoded frame. With track set,
	// the collaborator keeps track ids stable for the same physical object
	// across consecutive calls on frames of one stream. Without it, returned
	// detections carry TrackID -1.
	Detect(frame []byte, track bool) ([]types.Detection, error)

	// Recognize reads text candidates out of a preprocessed region. Zero
	// candidates is a normal outcome, and no ordering is guaranteed.
	Recognize(region image.Image) ([]types.Candidate, error)
}
