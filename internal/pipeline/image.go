package pipeline

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ripas/ripas-go/internal/consensus"
	"github.com/ripas/ripas-go/internal/types"
	"github.com/ripas/ripas-go/internal/vision"
)

// ImageResult is the outcome of a one-shot still-image scan.
type ImageResult struct {
	Plate      string
	Confidence float64
	Annotated  image.Image
}

// ProcessImage runs the one-shot variant: detect once without tracking, and
// for each vehicle detection in the order returned, crop, preprocess and
// recognize. The best accepted candidate within a detection's own candidate
// set wins, and the first detection yielding any accepted candidate returns
// immediately. Detections are deliberately not compared against each other;
// later vehicles are never reached once one qualifies.
//
// With no qualifying detection the UNKNOWN sentinel comes back with zero
// confidence and the boxed image.
func (p *Pipeline) ProcessImage(data []byte) (ImageResult, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return ImageResult{}, fmt.Errorf("image decode failed: %w", err)
	}

	detections, err := p.vision.Detect(data, false)
	if err != nil {
		return ImageResult{}, fmt.Errorf("detection failed: %w", err)
	}

	ann := vision.NewAnnotator(img)
	for _, det := range detections {
		if !types.IsVehicle(det.ClassID) {
			continue
		}
		ann.DrawBox(det.Box, vision.ImageBoxColor)

		crop := cropRegion(img, det.Box)
		if crop == nil {
			continue
		}

		candidates, err := p.vision.Recognize(vision.PreprocessRegion(crop))
		if err != nil {
			return ImageResult{}, fmt.Errorf("recognition failed: %w", err)
		}

		best := ""
		bestConf := 0.0
		for _, c := range candidates {
			clean := consensus.CleanText(c.Text)
			if len(clean) < p.cfg.MinPlateLength || c.Confidence <= p.cfg.ImageConfidence {
				continue
			}
			if c.Confidence > bestConf {
				best = clean
				bestConf = c.Confidence
			}
		}
		if best != "" {
			ann.DrawPlateLabel(det.Box, best, bestConf)
			return ImageResult{Plate: best, Confidence: bestConf, Annotated: ann.Image()}, nil
		}
	}

	return ImageResult{Plate: types.UnknownPlate, Annotated: ann.Image()}, nil
}
