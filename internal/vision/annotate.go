package vision

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/ripas/ripas-go/internal/types"
)

var (
	// VideoBoxColor outlines vehicle detections on scanned video frames.
	VideoBoxColor = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	// ImageBoxColor outlines vehicle detections on still images.
	ImageBoxColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	// LabelColor renders finalized plate text.
	LabelColor = color.RGBA{R: 36, G: 255, B: 12, A: 255}
)

// Annotator draws detection overlays onto a copy of a frame. The source frame
// is never modified.
type Annotator struct {
	dc *gg.Context
}

// NewAnnotator copies the frame into a drawing surface.
func NewAnnotator(frame image.Image) *Annotator {
	dc := gg.NewContextForImage(frame)
	dc.SetLineWidth(2)
	return &Annotator{dc: dc}
}

// DrawBox strokes a detection rectangle.
func (a *Annotator) DrawBox(b types.Box, c color.RGBA) {
	a.dc.SetColor(c)
	a.dc.DrawRectangle(float64(b.X1), float64(b.Y1), float64(b.X2-b.X1), float64(b.Y2-b.Y1))
	a.dc.Stroke()
}

// DrawPlateLabel overlays "PLATE (NN%)" just above the detection box.
func (a *Annotator) DrawPlateLabel(b types.Box, plate string, confidence float64) {
	label := fmt.Sprintf("%s (%d%%)", plate, int(confidence*100))
	a.dc.SetColor(LabelColor)
	y := float64(b.Y1 - 10)
	if y < 0 {
		y = 0
	}
	a.dc.DrawString(label, float64(b.X1), y)
}

// Image returns the annotated frame.
func (a *Annotator) Image() image.Image {
	return a.dc.Image()
}
