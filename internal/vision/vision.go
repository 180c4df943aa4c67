// Package vision defines the contracts for the external perception
// collaborators: the per-frame object detector and the plate text reader.
// Both are black boxes to the processing engine; this package owns only
// their input/output types.
package vision

import (
	"gocv.io/x/gocv"

	"github.com/trafficlens/speedcam/internal/geom"
)

// COCO class IDs for the vehicle classes the engine tracks.
const (
	ClassCar        = 2
	ClassMotorcycle = 3
	ClassBus        = 5
	ClassTruck      = 7
)

// vehicleClassNames maps detector class IDs to human-readable labels.
var vehicleClassNames = map[int]string{
	ClassCar:        "car",
	ClassMotorcycle: "motorcycle",
	ClassBus:        "bus",
	ClassTruck:      "truck",
}

// IsVehicleClass reports whether the class ID is one of the tracked
// vehicle classes.
func IsVehicleClass(classID int) bool {
	_, ok := vehicleClassNames[classID]
	return ok
}

// ClassName converts a class ID to a human-readable name.
func ClassName(classID int) string {
	if name, ok := vehicleClassNames[classID]; ok {
		return name
	}
	return "unknown"
}

// Detection is a single raw detector output for one frame. It is consumed
// once by the engine and not retained.
type Detection struct {
	Box        geom.BBox
	ClassID    int
	Confidence float64
}

// Centroid returns the detection's centre in pixel space.
func (d Detection) Centroid() geom.Point {
	return d.Box.Centroid()
}

// Detector is the object-detection collaborator. Implementations run a
// model against a decoded frame and return raw detections; accuracy and
// latency are the implementation's concern.
type Detector interface {
	Detect(frame gocv.Mat) ([]Detection, error)
	Close() error
}

// Quad is the four-corner bounding quad of recognised text, in pixel
// coordinates relative to the crop the reader was given.
type Quad [4]geom.Point

// Candidate is one text hypothesis from the plate reader.
type Candidate struct {
	Text       string
	Confidence float64
	Box        Quad
}

// PlateReader is the text-recognition collaborator. ReadText returns all
// candidate strings found in the crop; an error indicates an engine
// failure, which callers treat as "no candidate" but log distinctly.
type PlateReader interface {
	ReadText(crop gocv.Mat) ([]Candidate, error)
	Close() error
}
