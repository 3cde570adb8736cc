// Package pipeline drives the plate-recognition flow: frame sampling,
// detection and tracking through the external collaborator, consensus voting,
// and annotated result events. The video orchestrator is consumer-paced: one
// event in flight, the producer suspended on the channel until the consumer
// takes it.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"

	"github.com/ripas/ripas-go/internal/config"
	"github.com/ripas/ripas-go/internal/consensus"
	"github.com/ripas/ripas-go/internal/sampler"
	"github.com/ripas/ripas-go/internal/types"
	"github.com/ripas/ripas-go/internal/vision"
)

// Pipeline binds the external Vision collaborator to the tuning config. It
// holds no cross-run state; consensus history lives inside each invocation.
type Pipeline struct {
	vision vision.Vision
	cfg    config.PipelineConfig
}

// New returns a pipeline using the given collaborator and tuning.
func New(v vision.Vision, cfg config.PipelineConfig) *Pipeline {
	return &Pipeline{vision: v, cfg: cfg}
}

// ProcessVideo produces the stream of result events for one video source.
// The returned channel has capacity one: the internal loop suspends after
// each event until the consumer takes it. The channel closes at stream
// exhaustion, and the source is released on every exit path, including
// consumer abandonment via ctx cancellation.
//
// The shared collaborator handle is not synchronized; concurrent calls must
// be serialized or use independent Vision instances.
func (p *Pipeline) ProcessVideo(ctx context.Context, src FrameSource) <-chan types.Event {
	events := make(chan types.Event, 1)
	go p.run(ctx, src, events)
	return events
}

// ProcessVideoFile opens path as an FFmpeg stream and runs ProcessVideo over
// it. Input errors (unreadable source) surface here, before any event.
func (p *Pipeline) ProcessVideoFile(ctx context.Context, path string) (<-chan types.Event, error) {
	src, err := OpenVideo(path)
	if err != nil {
		return nil, err
	}
	return p.ProcessVideo(ctx, src), nil
}

func (p *Pipeline) run(ctx context.Context, src FrameSource, events chan<- types.Event) {
	defer close(events)
	defer src.Close()

	eng := consensus.New(p.cfg.MinPlateLength, p.cfg.VideoConfidence, p.cfg.PrimeZoneArea)
	smp := sampler.New(src.TotalFrames(), p.cfg.ScanStride, p.cfg.DisplayStride)

	var lastAnnotated image.Image
	peakProgress := 0.0
	framesSeen := 0

	// emit suspends until the consumer takes the event or walks away.
	emit := func(ev types.Event) bool {
		select {
		case events <- ev:
			if ev.Progress > peakProgress {
				peakProgress = ev.Progress
			}
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		task, ok := src.Next()
		if !ok {
			break
		}
		framesSeen++
		progress := smp.Progress(task.Index)

		if smp.ShouldScan(task.Index) {
			frame, err := imaging.Decode(bytes.NewReader(task.Data))
			if err != nil {
				// A failed frame decode ends the stream, it is not an error.
				break
			}

			detections, err := p.vision.Detect(task.Data, true)
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  Detection failed on frame %d: %v\n", task.Index, err)
				continue
			}

			ann := vision.NewAnnotator(frame)
			for _, det := range detections {
				if !types.IsVehicle(det.ClassID) || det.TrackID < 0 {
					continue
				}
				ann.DrawBox(det.Box, vision.VideoBoxColor)

				if !eng.ShouldScan(det.TrackID, det.Box) {
					continue
				}
				crop := cropRegion(frame, det.Box)
				if crop == nil {
					continue // zero-area crop, nothing to recognize
				}

				candidates, err := p.vision.Recognize(vision.PreprocessRegion(crop))
				if err != nil {
					fmt.Fprintf(os.Stderr, "⚠️  Recognition failed on frame %d: %v\n", task.Index, err)
					continue
				}

				for _, c := range candidates {
					if !eng.Observe(det.TrackID, c) {
						continue
					}
					plate, done := eng.TryFinalize(det.TrackID)
					if !done {
						continue
					}
					ann.DrawPlateLabel(det.Box, plate, c.Confidence)
					lastAnnotated = ann.Image()
					if !emit(types.Event{Plate: plate, Frame: lastAnnotated, Progress: progress}) {
						return
					}
					// First finalize is authoritative for this detection
					// this frame; stop scanning its remaining candidates.
					break
				}
			}
			lastAnnotated = ann.Image()
		}

		if smp.ShouldDisplay(task.Index) {
			display := lastAnnotated
			if display == nil {
				frame, err := imaging.Decode(bytes.NewReader(task.Data))
				if err != nil {
					break
				}
				display = frame
			}
			if !emit(types.Event{Plate: types.UnknownPlate, Frame: display, Progress: progress}) {
				return
			}
		}
	}

	// The heartbeat cadence usually lands the last event at progress 1.0
	// already; when it does not (total not a multiple of the stride, or an
	// unknown total), a single trailing display event settles the contract.
	if framesSeen > 0 && peakProgress < 1.0 {
		emit(types.Event{Plate: types.UnknownPlate, Frame: lastAnnotated, Progress: 1.0})
	}
}

// cropRegion cuts the detection box out of the frame, clamped to the frame
// bounds. Returns nil for zero-area intersections; callers skip those.
func cropRegion(frame image.Image, b types.Box) image.Image {
	r := b.Rect().Intersect(frame.Bounds())
	if r.Empty() {
		return nil
	}
	return imaging.Crop(frame, r)
}
