package types

import "image"

// UnknownPlate is the sentinel emitted when no plate was read.
const UnknownPlate = "UNKNOWN"

// FrameTask represents a single decoded-stream frame handed to the pipeline.
// Data holds the raw JPEG bytes as split from the FFmpeg pipe.
type FrameTask struct {
	Index int
	Data  []byte
}

// Box is an axis-aligned bounding box in source-image pixels.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Area returns the box area in pixels. Degenerate boxes report 0.
func (b Box) Area() int {
	w := b.X2 - b.X1
	h := b.Y2 - b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Rect converts the box to an image.Rectangle for cropping.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Detection matches the JSON structure coming back from the Python worker.
// TrackID is -1 when the worker ran without tracking (single-image mode).
type Detection struct {
	Box        Box     `json:"box"`
	ClassID    int     `json:"class_id"`
	TrackID    int     `json:"track_id"`
	Confidence float64 `json:"confidence"`
}

// Candidate is one OCR reading for a cropped vehicle region.
type Candidate struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Event is one unit of pipeline output: a plate (or UnknownPlate for
// display-only heartbeats), the annotated frame it was read from, and the
// progress fraction through the stream.
type Event struct {
	Plate    string
	Frame    image.Image
	Progress float64
}

// IsHeartbeat reports whether the event carries no new plate.
func (e Event) IsHeartbeat() bool {
	return e.Plate == UnknownPlate
}

// VehicleClasses holds the COCO class IDs for vehicles: car, motorcycle, bus, truck.
var VehicleClasses = []int{2, 3, 5, 7}

// IsVehicle reports whether a detection class is one of the vehicle classes.
func IsVehicle(classID int) bool {
	for _, c := range VehicleClasses {
		if c == classID {
			return true
		}
	}
	return false
}
