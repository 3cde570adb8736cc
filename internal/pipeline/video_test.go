package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/ripas/ripas-go/internal/config"
	"github.com/ripas/ripas-go/internal/types"
)

// fakeVision scripts the external collaborator without a subprocess.
type fakeVision struct {
	detect    func(call int, track bool) ([]types.Detection, error)
	recognize func(call int) ([]types.Candidate, error)

	detectCalls    int
	recognizeCalls int
}

func (f *fakeVision) Detect(frame []byte, track bool) ([]types.Detection, error) {
	f.detectCalls++
	if f.detect == nil {
		return nil, nil
	}
	return f.detect(f.detectCalls, track)
}

func (f *fakeVision) Recognize(region image.Image) ([]types.Candidate, error) {
	f.recognizeCalls++
	if f.recognize == nil {
		return nil, nil
	}
	return f.recognize(f.recognizeCalls)
}

// jpegFrame encodes a small uniform frame the pipeline can decode and crop.
func jpegFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 120, G: 120, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func frames(t *testing.T, n int) [][]byte {
	t.Helper()
	frame := jpegFrame(t, 200, 200)
	out := make([][]byte, n)
	for i := range out {
		out[i] = frame
	}
	return out
}

func collect(ch <-chan types.Event) []types.Event {
	var events []types.Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func assertMonotoneTo1(t *testing.T, events []types.Event) {
	t.Helper()
	last := 0.0
	for i, ev := range events {
		if ev.Progress < last {
			t.Fatalf("progress decreased at event %d: %v -> %v", i, last, ev.Progress)
		}
		last = ev.Progress
	}
	if len(events) > 0 && last != 1.0 {
		t.Errorf("final progress = %v, want 1.0", last)
	}
}

// trackedCar is a vehicle detection comfortably inside the prime zone.
func trackedCar(trackID int) types.Detection {
	return types.Detection{
		Box:        types.Box{X1: 0, Y1: 0, X2: 180, Y2: 180},
		ClassID:    2,
		TrackID:    trackID,
		Confidence: 0.9,
	}
}

// A 90-frame stream with no detections yields exactly the heartbeat events on
// frames 10,20,...,90, with the last one at progress 1.0 and no trailing
// completion event.
func TestHeartbeatCadence(t *testing.T) {
	fv := &fakeVision{}
	p := New(fv, config.Default().Pipeline)
	src := NewSliceSource(frames(t, 90), 90)

	events := collect(p.ProcessVideo(context.Background(), src))

	if len(events) != 9 {
		t.Fatalf("expected 9 heartbeats, got %d events", len(events))
	}
	for i, ev := range events {
		if !ev.IsHeartbeat() {
			t.Errorf("event %d is not a heartbeat: %q", i, ev.Plate)
		}
		want := float64((i+1)*10) / 90
		if ev.Progress != want {
			t.Errorf("event %d progress = %v, want %v", i, ev.Progress, want)
		}
		if ev.Frame == nil {
			t.Errorf("event %d carries no frame", i)
		}
	}
	assertMonotoneTo1(t, events)

	if fv.detectCalls != 30 {
		t.Errorf("expected detection on frames 3,6,...,90 (30 calls), got %d", fv.detectCalls)
	}
	if fv.recognizeCalls != 0 {
		t.Errorf("recognizer must not run without detections, got %d calls", fv.recognizeCalls)
	}
	if !src.Closed() {
		t.Error("source was not released at exhaustion")
	}
}

// Track 7 reads AB123 (0.5), AB12I (0.45), AB123 (0.55) across three scanned
// frames and must finalize with AB123 on the third observation.
func TestFinalizeOnSecondOccurrence(t *testing.T) {
	readings := [][]types.Candidate{
		{{Text: "AB123", Confidence: 0.5}},
		{{Text: "AB12I", Confidence: 0.45}},
		{{Text: "AB123", Confidence: 0.55}},
	}
	fv := &fakeVision{
		detect: func(call int, track bool) ([]types.Detection, error) {
			if !track {
				t.Error("video pipeline must detect in tracking mode")
			}
			return []types.Detection{trackedCar(7)}, nil
		},
		recognize: func(call int) ([]types.Candidate, error) {
			return readings[call-1], nil
		},
	}
	p := New(fv, config.Default().Pipeline)
	src := NewSliceSource(frames(t, 9), 9)

	events := collect(p.ProcessVideo(context.Background(), src))

	var plates []types.Event
	for _, ev := range events {
		if !ev.IsHeartbeat() {
			plates = append(plates, ev)
		}
	}
	if len(plates) != 1 {
		t.Fatalf("expected exactly one plate event, got %d", len(plates))
	}
	if plates[0].Plate != "AB123" {
		t.Errorf("finalized %q, want AB123", plates[0].Plate)
	}
	// Finalization happened on the third scanned frame (frame 9 of 9).
	if plates[0].Progress != 1.0 {
		t.Errorf("plate event progress = %v, want 1.0", plates[0].Progress)
	}
	if plates[0].Frame == nil {
		t.Error("plate event carries no annotated frame")
	}
	if fv.recognizeCalls != 3 {
		t.Errorf("expected 3 recognizer calls, got %d", fv.recognizeCalls)
	}
}

// Once a track finalizes it is excluded from all further scanning; the
// recognizer never runs for it again and no second plate event appears.
func TestFinalizedTrackStopsScanning(t *testing.T) {
	fv := &fakeVision{
		detect: func(call int, track bool) ([]types.Detection, error) {
			return []types.Detection{trackedCar(4)}, nil
		},
		recognize: func(call int) ([]types.Candidate, error) {
			return []types.Candidate{{Text: "ZZ999", Confidence: 0.9}}, nil
		},
	}
	p := New(fv, config.Default().Pipeline)
	src := NewSliceSource(frames(t, 30), 30)

	events := collect(p.ProcessVideo(context.Background(), src))

	plateEvents := 0
	for _, ev := range events {
		if !ev.IsHeartbeat() {
			plateEvents++
		}
	}
	if plateEvents != 1 {
		t.Errorf("track finalized %d times, want once", plateEvents)
	}
	// Scans happen on frames 3 and 6; from frame 9 on the track is finalized.
	if fv.recognizeCalls != 2 {
		t.Errorf("recognizer ran %d times, want 2", fv.recognizeCalls)
	}
	assertMonotoneTo1(t, events)
}

// When the heartbeat cadence does not land on the last frame, a trailing
// completion event settles progress at 1.0.
func TestTrailingCompletionEvent(t *testing.T) {
	fv := &fakeVision{}
	p := New(fv, config.Default().Pipeline)
	src := NewSliceSource(frames(t, 95), 95)

	events := collect(p.ProcessVideo(context.Background(), src))

	if len(events) != 10 {
		t.Fatalf("expected 9 heartbeats + 1 completion event, got %d", len(events))
	}
	assertMonotoneTo1(t, events)
}

// Abandoning the stream mid-way must still release the underlying source.
func TestAbandonmentReleasesSource(t *testing.T) {
	fv := &fakeVision{}
	cfg := config.Default().Pipeline
	cfg.DisplayStride = 1 // event on every frame so the producer blocks early
	p := New(fv, cfg)
	src := NewSliceSource(frames(t, 50), 50)

	ctx, cancel := context.WithCancel(context.Background())
	ch := p.ProcessVideo(ctx, src)

	<-ch // take one event, then walk away
	cancel()

	// The producer unblocks via ctx and closes the channel on its way out.
	for range ch {
	}
	if !src.Closed() {
		t.Error("source was not released after consumer abandonment")
	}
}

// A frame that fails to decode ends the stream as end-of-stream, not an error.
func TestDecodeFailureEndsStream(t *testing.T) {
	fs := frames(t, 2)
	fs = append(fs, []byte{0x00, 0x01, 0x02}) // frame 3 is scanned and undecodable
	fs = append(fs, frames(t, 27)...)

	fv := &fakeVision{}
	p := New(fv, config.Default().Pipeline)
	src := NewSliceSource(fs, 30)

	events := collect(p.ProcessVideo(context.Background(), src))

	// Stream ended at frame 3: no heartbeat was reached, only the completion
	// event remains.
	if len(events) != 1 || events[0].Progress != 1.0 {
		t.Fatalf("expected a single completion event at 1.0, got %+v", events)
	}
	if fv.detectCalls != 0 {
		t.Errorf("no detection should run on an undecodable frame, got %d calls", fv.detectCalls)
	}
	if !src.Closed() {
		t.Error("source was not released on early termination")
	}
}

// Detections below the prime-zone area are never sent to the recognizer.
func TestPrimeZoneGate(t *testing.T) {
	fv := &fakeVision{
		detect: func(call int, track bool) ([]types.Detection, error) {
			return []types.Detection{{
				Box:     types.Box{X1: 0, Y1: 0, X2: 50, Y2: 50}, // 2500 px²
				ClassID: 2,
				TrackID: 1,
			}}, nil
		},
	}
	p := New(fv, config.Default().Pipeline)
	src := NewSliceSource(frames(t, 12), 12)

	collect(p.ProcessVideo(context.Background(), src))

	if fv.recognizeCalls != 0 {
		t.Errorf("recognizer ran %d times for sub-prime-zone boxes, want 0", fv.recognizeCalls)
	}
}

// A crop that falls entirely outside the frame is skipped silently.
func TestZeroAreaCropSkipped(t *testing.T) {
	fv := &fakeVision{
		detect: func(call int, track bool) ([]types.Detection, error) {
			return []types.Detection{{
				Box:     types.Box{X1: 300, Y1: 300, X2: 500, Y2: 500}, // outside a 200x200 frame
				ClassID: 2,
				TrackID: 1,
			}}, nil
		},
	}
	p := New(fv, config.Default().Pipeline)
	src := NewSliceSource(frames(t, 6), 6)

	events := collect(p.ProcessVideo(context.Background(), src))

	if fv.recognizeCalls != 0 {
		t.Errorf("recognizer ran %d times on empty crops, want 0", fv.recognizeCalls)
	}
	for _, ev := range events {
		if !ev.IsHeartbeat() {
			t.Errorf("unexpected plate event %q from an empty crop", ev.Plate)
		}
	}
}

// Non-vehicle classes and untracked detections are ignored in video mode.
func TestNonVehicleAndUntrackedIgnored(t *testing.T) {
	fv := &fakeVision{
		detect: func(call int, track bool) ([]types.Detection, error) {
			return []types.Detection{
				{Box: types.Box{X1: 0, Y1: 0, X2: 180, Y2: 180}, ClassID: 0, TrackID: 1},  // person
				{Box: types.Box{X1: 0, Y1: 0, X2: 180, Y2: 180}, ClassID: 2, TrackID: -1}, // untracked car
			}, nil
		},
	}
	p := New(fv, config.Default().Pipeline)
	src := NewSliceSource(frames(t, 6), 6)

	collect(p.ProcessVideo(context.Background(), src))

	if fv.recognizeCalls != 0 {
		t.Errorf("recognizer ran %d times, want 0", fv.recognizeCalls)
	}
}
