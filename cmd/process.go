package cmd

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/schollz/progressbar/v3"

	"github.com/ripas/ripas-go/internal/pipeline"
	"github.com/ripas/ripas-go/internal/types"
	"github.com/ripas/ripas-go/internal/utils"
	"github.com/ripas/ripas-go/internal/worker"
)

// gateOptions holds the flags shared by the entry and exit commands.
type gateOptions struct {
	InputPath  string
	OutputPath string
}

// processGateMedia runs the recognition pipeline over the gate camera input,
// which is either a video clip or a still image, and invokes onPlate for every
// plate read. Returns the number of plates handled; zero means the gate saw no
// readable vehicle.
func processGateMedia(ctx context.Context, opts gateOptions, onPlate func(plate string)) (int, error) {
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("input file does not exist: %s", opts.InputPath)
		}
		return 0, fmt.Errorf("unable to access input file: %w", err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("input path is a directory, expected a video or image file: %s", opts.InputPath)
	}

	vis, err := worker.Shared(Cfg.Worker)
	if err != nil {
		utils.Die("Worker startup failed", err, nil)
	}
	defer worker.CloseShared()

	p := pipeline.New(vis, Cfg.Pipeline)

	if utils.IsVideoPath(opts.InputPath) {
		return processGateVideo(ctx, p, opts, onPlate)
	}
	return processGateImage(p, opts, onPlate)
}

// processGateVideo consumes the full event stream: every finalized plate is
// handed to onPlate as it arrives, heartbeats only advance the progress bar.
func processGateVideo(ctx context.Context, p *pipeline.Pipeline, opts gateOptions, onPlate func(string)) (int, error) {
	events, err := p.ProcessVideoFile(ctx, opts.InputPath)
	if err != nil {
		return 0, err
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("🚗 Scanning gate camera"),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionShowCount(),
	)

	plates := 0
	var snapshot image.Image
	for ev := range events {
		bar.Set(int(ev.Progress * 100))
		if ev.Frame != nil {
			snapshot = ev.Frame
		}
		if !ev.IsHeartbeat() {
			bar.Clear()
			plates++
			onPlate(ev.Plate)
		}
	}
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	saveSnapshot(snapshot, opts.OutputPath)
	return plates, nil
}

func processGateImage(p *pipeline.Pipeline, opts gateOptions, onPlate func(string)) (int, error) {
	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read image: %w", err)
	}

	res, err := p.ProcessImage(data)
	if err != nil {
		return 0, err
	}

	saveSnapshot(res.Annotated, opts.OutputPath)

	if res.Plate == types.UnknownPlate {
		return 0, nil
	}
	fmt.Fprintf(os.Stderr, "🔍 Read %s at %.0f%% confidence\n", res.Plate, res.Confidence*100)
	onPlate(res.Plate)
	return 1, nil
}

// saveSnapshot writes the annotated frame when an output path was requested.
// A failed save is reported but never blocks the gate decision.
func saveSnapshot(img image.Image, path string) {
	if path == "" || img == nil {
		return
	}
	if err := imaging.Save(img, path); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to save snapshot to %s: %v\n", path, err)
		return
	}
	fmt.Fprintf(os.Stderr, "📸 Snapshot saved to %s\n", path)
}
