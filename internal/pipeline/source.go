package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/ripas/ripas-go/internal/types"
	"github.com/ripas/ripas-go/internal/utils"
)

const megabyte = 1024 * 1024

// FrameSource yields JPEG-encoded frames of one stream in order. Next returns
// false at exhaustion; a source-level read failure is surfaced the same way
// (the stream simply ends). Close must be safe on all exit paths, including
// abandonment by the consumer.
type FrameSource interface {
	Next() (types.FrameTask, bool)
	TotalFrames() int
	Close() error
}

// FFmpegSource streams MJPEG frames out of an FFmpeg decoder pipe, splitting
// on JPEG SOI/EOI markers.
type FFmpegSource struct {
	cmd     *os.Process
	wait    func() error
	stdout  io.ReadCloser
	scanner *bufio.Scanner
	total   int
	index   int
}

// OpenVideo probes the stream length and starts the decoder. An unreadable
// path is an input error and surfaces here, before any frame is produced.
func OpenVideo(path string) (*FFmpegSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open video source: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("video source %s is a directory", path)
	}

	total := utils.GetTotalFrames(path)

	ffmpeg := utils.NewFFmpegCmd(path)
	stdout, err := ffmpeg.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create FFmpeg stdout pipe: %w", err)
	}
	if err := ffmpeg.Start(); err != nil {
		stdout.Close()
		return nil, fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)

	return &FFmpegSource{
		cmd:     ffmpeg.Process,
		wait:    ffmpeg.Wait,
		stdout:  stdout,
		scanner: scanner,
		total:   total,
	}, nil
}

// Next returns the next frame. A failed read or split ends the stream; it is
// not distinguished from normal exhaustion.
func (s *FFmpegSource) Next() (types.FrameTask, bool) {
	if !s.scanner.Scan() {
		return types.FrameTask{}, false
	}
	s.index++
	data := append([]byte(nil), s.scanner.Bytes()...)
	return types.FrameTask{Index: s.index, Data: data}, true
}

// TotalFrames reports the probed frame count, 0 if unknown.
func (s *FFmpegSource) TotalFrames() int {
	return s.total
}

// Close releases the pipe and reaps FFmpeg. Killing first makes Close safe
// when the consumer abandons the stream mid-way.
func (s *FFmpegSource) Close() error {
	s.stdout.Close()
	if s.cmd != nil {
		s.cmd.Kill()
	}
	if s.wait != nil {
		s.wait()
	}
	return nil
}

// SliceSource serves pre-encoded frames from memory. Used by tests and any
// caller that already holds the frames.
type SliceSource struct {
	frames [][]byte
	total  int
	index  int
	closed bool
}

// NewSliceSource wraps frames as a stream reporting total as its length.
func NewSliceSource(frames [][]byte, total int) *SliceSource {
	return &SliceSource{frames: frames, total: total}
}

func (s *SliceSource) Next() (types.FrameTask, bool) {
	if s.closed || s.index >= len(s.frames) {
		return types.FrameTask{}, false
	}
	s.index++
	return types.FrameTask{Index: s.index, Data: s.frames[s.index-1]}, true
}

func (s *SliceSource) TotalFrames() int {
	return s.total
}

func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *SliceSource) Closed() bool {
	return s.closed
}
