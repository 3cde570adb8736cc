package vision

import (
	"image"

	"github.com/disintegration/imaging"
)

// upscaleFactor recovers detail in small plates before OCR.
const upscaleFactor = 2

// contrastGain is the linear stretch applied after grayscale conversion.
const contrastGain = 1.2

// PreprocessRegion normalizes a cropped vehicle region for the recognizer:
// single-channel intensity, 2x upscale in both axes with Catmull-Rom (cubic)
// interpolation, then a linear contrast gain of ~1.2 with no offset.
//
// Deterministic and stateless. Precondition: the crop must be non-empty;
// zero-area regions are the caller's responsibility to skip.
func PreprocessRegion(crop image.Image) *image.NRGBA {
	gray := imaging.Grayscale(crop)
	b := gray.Bounds()
	up := imaging.Resize(gray, b.Dx()*upscaleFactor, b.Dy()*upscaleFactor, imaging.CatmullRom)
	return applyGain(up, contrastGain)
}

// applyGain multiplies every channel by gain, clamping at 255. Alpha is left
// untouched.
func applyGain(img *image.NRGBA, gain float64) *image.NRGBA {
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := float64(pix[i+c]) * gain
			if v > 255 {
				v = 255
			}
			pix[i+c] = uint8(v)
		}
	}
	return img
}
