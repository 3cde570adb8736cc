package pipeline

import (
	"testing"

	"github.com/ripas/ripas-go/internal/config"
	"github.com/ripas/ripas-go/internal/types"
)

func car(x1, y1, x2, y2 int) types.Detection {
	return types.Detection{
		Box:        types.Box{X1: x1, Y1: y1, X2: x2, Y2: y2},
		ClassID:    2,
		TrackID:    -1,
		Confidence: 0.8,
	}
}

// The first detection yields nothing above threshold; the pipeline falls
// through to the second detection and returns its plate. This names the
// deliberate "first qualifying detection wins" behavior: detections are not
// compared against each other.
func TestProcessImageFirstQualifyingDetectionWins(t *testing.T) {
	fv := &fakeVision{
		detect: func(call int, track bool) ([]types.Detection, error) {
			if track {
				t.Error("still-image pipeline must not run in tracking mode")
			}
			return []types.Detection{car(0, 0, 90, 90), car(100, 100, 190, 190)}, nil
		},
		recognize: func(call int) ([]types.Candidate, error) {
			if call == 1 {
				return []types.Candidate{{Text: "AB123", Confidence: 0.3}}, nil // below 0.35
			}
			return []types.Candidate{{Text: "xy9z1", Confidence: 0.6}}, nil
		},
	}
	p := New(fv, config.Default().Pipeline)

	res, err := p.ProcessImage(jpegFrame(t, 200, 200))
	if err != nil {
		t.Fatal(err)
	}
	if res.Plate != "XY9Z1" {
		t.Errorf("plate = %q, want XY9Z1", res.Plate)
	}
	if res.Confidence != 0.6 {
		t.Errorf("confidence = %v, want 0.6", res.Confidence)
	}
	if fv.recognizeCalls != 2 {
		t.Errorf("expected fall-through to the second detection, got %d recognizer calls", fv.recognizeCalls)
	}
}

// Once a detection qualifies, later detections are never reached even if they
// would read with higher confidence.
func TestProcessImageStopsAtFirstQualifying(t *testing.T) {
	fv := &fakeVision{
		detect: func(call int, track bool) ([]types.Detection, error) {
			return []types.Detection{car(0, 0, 90, 90), car(100, 100, 190, 190)}, nil
		},
		recognize: func(call int) ([]types.Candidate, error) {
			if call == 1 {
				return []types.Candidate{{Text: "AA111", Confidence: 0.4}}, nil
			}
			return []types.Candidate{{Text: "BB222", Confidence: 0.99}}, nil
		},
	}
	p := New(fv, config.Default().Pipeline)

	res, err := p.ProcessImage(jpegFrame(t, 200, 200))
	if err != nil {
		t.Fatal(err)
	}
	if res.Plate != "AA111" {
		t.Errorf("plate = %q, want AA111 from the first qualifying detection", res.Plate)
	}
	if fv.recognizeCalls != 1 {
		t.Errorf("recognizer ran %d times, want 1", fv.recognizeCalls)
	}
}

// Within one detection's candidate set the highest accepted confidence wins.
func TestProcessImageBestCandidateWithinDetection(t *testing.T) {
	fv := &fakeVision{
		detect: func(call int, track bool) ([]types.Detection, error) {
			return []types.Detection{car(0, 0, 150, 150)}, nil
		},
		recognize: func(call int) ([]types.Candidate, error) {
			return []types.Candidate{
				{Text: "CD456", Confidence: 0.3}, // rejected, at most 0.35 required
				{Text: "CD457", Confidence: 0.5},
			}, nil
		},
	}
	p := New(fv, config.Default().Pipeline)

	res, err := p.ProcessImage(jpegFrame(t, 200, 200))
	if err != nil {
		t.Fatal(err)
	}
	if res.Plate != "CD457" || res.Confidence != 0.5 {
		t.Errorf("got %q at %v, want CD457 at 0.5", res.Plate, res.Confidence)
	}
}

func TestProcessImageNoQualifyingCandidate(t *testing.T) {
	fv := &fakeVision{
		detect: func(call int, track bool) ([]types.Detection, error) {
			return []types.Detection{car(0, 0, 150, 150)}, nil
		},
		recognize: func(call int) ([]types.Candidate, error) {
			return []types.Candidate{
				{Text: "ab", Confidence: 0.9},    // too short after cleaning
				{Text: "AB123", Confidence: 0.2}, // too weak
			}, nil
		},
	}
	p := New(fv, config.Default().Pipeline)

	res, err := p.ProcessImage(jpegFrame(t, 200, 200))
	if err != nil {
		t.Fatal(err)
	}
	if res.Plate != types.UnknownPlate {
		t.Errorf("plate = %q, want the unknown sentinel", res.Plate)
	}
	if res.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", res.Confidence)
	}
	if res.Annotated == nil {
		t.Error("the boxed image must come back even without a plate")
	}
}

func TestProcessImageNoDetections(t *testing.T) {
	fv := &fakeVision{}
	p := New(fv, config.Default().Pipeline)

	res, err := p.ProcessImage(jpegFrame(t, 200, 200))
	if err != nil {
		t.Fatal(err)
	}
	if res.Plate != types.UnknownPlate || res.Confidence != 0 {
		t.Errorf("got %q at %v, want UNKNOWN at 0", res.Plate, res.Confidence)
	}
}

func TestProcessImageDecodeFailure(t *testing.T) {
	p := New(&fakeVision{}, config.Default().Pipeline)
	if _, err := p.ProcessImage([]byte{0xDE, 0xAD}); err == nil {
		t.Error("expected decode error for garbage input")
	}
}
