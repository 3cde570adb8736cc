// Package worker runs the external detector/OCR collaborator as a Python
// subprocess and exposes it through the vision.Vision interface.
package worker

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"sync"

	"github.com/ripas/ripas-go/internal/config"
	"github.com/ripas/ripas-go/internal/types"
	"github.com/ripas/ripas-go/internal/utils" // Using the SafeCommand wrapper
	"github.com/ripas/ripas-go/internal/vision"
)

// PlateWorker talks to one Python worker process over length-prefixed JSON
// envelopes: requests on stdin, responses on a dedicated FD-3 data pipe so
// stray prints from the ML libraries cannot corrupt the protocol.
type PlateWorker struct {
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser
}

var _ vision.Vision = (*PlateWorker)(nil)

// request is the envelope sent to the Python side.
type request struct {
	Op    string `json:"op"`    // "detect" or "recognize"
	Track bool   `json:"track"` // detect only: keep track ids stable across calls
	Image string `json:"image"` // base64 JPEG (detect) or PNG (recognize)
}

// response is the envelope coming back.
type response struct {
	Detections []types.Detection `json:"detections"`
	Candidates []types.Candidate `json:"candidates"`
	Error      string            `json:"error"`
}

// NewPlateWorker launches the worker process described by cfg.
func NewPlateWorker(cfg config.WorkerConfig) (*PlateWorker, error) {
	py := utils.NewSafeCommand(cfg.Command, cfg.Args...)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close() // Prevent FD leak
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("plate worker failed to start: %w", err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	return &PlateWorker{
		Cmd:      py,
		Stdin:    stdin,
		DataPipe: r,
	}, nil
}

// Detect runs object detection on a JPEG-encoded frame. With track set, the
// worker keeps track ids stable for the same physical object across calls on
// frames of one stream; without it, detections come back with TrackID -1.
func (w *PlateWorker) Detect(frame []byte, track bool) ([]types.Detection, error) {
	resp, err := w.roundTrip(request{
		Op:    "detect",
		Track: track,
		Image: base64.StdEncoding.EncodeToString(frame),
	})
	if err != nil {
		return nil, err
	}
	return resp.Detections, nil
}

// Recognize reads text candidates out of a preprocessed region.
func (w *PlateWorker) Recognize(region image.Image) ([]types.Candidate, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, region); err != nil {
		return nil, fmt.Errorf("region encode failed: %w", err)
	}

	resp, err := w.roundTrip(request{
		Op:    "recognize",
		Image: base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	if err != nil {
		return nil, err
	}
	return resp.Candidates, nil
}

// roundTrip sends one envelope and reads one back.
// Protocol: [Length:uint32 BE][JSON] in both directions.
func (w *PlateWorker) roundTrip(req request) (*response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(payload))); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(payload); err != nil {
		return nil, err
	}

	// Read from the clean DataPipe; an io error here usually means the worker
	// process crashed before answering.
	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, err
	}

	respLen := binary.BigEndian.Uint32(header)
	respBody := make([]byte, respLen)
	if _, err := io.ReadFull(w.DataPipe, respBody); err != nil {
		return nil, err
	}

	var resp response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("worker response malformed: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("plate worker error: %s", resp.Error)
	}
	return &resp, nil
}

// Close shuts the worker down and reaps the process.
func (w *PlateWorker) Close() {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd != nil {
		w.Cmd.Wait()
	}
}

// --- Shared handle ---

var (
	shared     *PlateWorker
	sharedErr  error
	sharedOnce sync.Once
)

// Shared returns the process-wide worker, constructing it on first use with
// the given settings and reusing it afterwards. The model load inside the
// worker is expensive; every pipeline run reuses the same instance. The
// handle must not be used by two concurrent pipeline runs.
func Shared(cfg config.WorkerConfig) (*PlateWorker, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = NewPlateWorker(cfg)
	})
	return shared, sharedErr
}

// CloseShared tears down the shared worker if it was ever constructed.
func CloseShared() {
	if shared != nil {
		shared.Close()
	}
}
