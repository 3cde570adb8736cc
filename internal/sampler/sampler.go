// Package sampler decides which frames of a stream are analyzed and which
// are surfaced to the UI. Recognition is the expensive step: scanning every
// 3rd frame caps recognizer cost on a 30fps source at ~10fps of analysis,
// while the display heartbeat keeps a consumer responsive through long
// stretches with no detections.
package sampler

// Sampler gates scanning and display for 1-based frame indices of one stream.
type Sampler struct {
	totalFrames   int
	scanStride    int
	displayStride int
}

// New returns a sampler for a stream of totalFrames frames. Strides below 1
// are clamped to 1 (scan/display every frame).
func New(totalFrames, scanStride, displayStride int) Sampler {
	if scanStride < 1 {
		scanStride = 1
	}
	if displayStride < 1 {
		displayStride = 1
	}
	return Sampler{
		totalFrames:   totalFrames,
		scanStride:    scanStride,
		displayStride: displayStride,
	}
}

// ShouldScan reports whether the frame is subject to detection/recognition.
func (s Sampler) ShouldScan(frameIndex int) bool {
	return frameIndex%s.scanStride == 0
}

// ShouldDisplay reports whether a display-only heartbeat is due on this
// original frame, regardless of scan outcome.
func (s Sampler) ShouldDisplay(frameIndex int) bool {
	return frameIndex%s.displayStride == 0
}

// Progress converts a frame index into a completion fraction, clamped to 1.0
// at stream end. An unknown total (<= 0) always reports 0.
func (s Sampler) Progress(frameIndex int) float64 {
	if s.totalFrames <= 0 {
		return 0
	}
	p := float64(frameIndex) / float64(s.totalFrames)
	if p > 1 {
		return 1
	}
	return p
}
