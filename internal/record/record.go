// Package record defines the per-detection output row of a processing run
// and the CSV export format downstream consumers ingest.
package record

import (
	"github.com/trafficlens/speedcam/internal/geom"
)

// MissingPlate is emitted for records whose vehicle had no accepted plate
// read at emission time.
const MissingPlate = "N/A"

// DetectionRecord is one detection of one vehicle on one frame, with its
// speed estimate and the plate state at that moment. Records are emitted
// only for vehicles carrying a nonzero speed estimate; zone membership
// gates the overlay, not emission.
type DetectionRecord struct {
	FrameNumber     int     `json:"frame_number"`
	VehicleID       int64   `json:"vehicle_id"`
	SpeedKmh        float64 `json:"speed"`
	LicensePlate    string  `json:"license_plate"`
	PlateConfidence float64 `json:"license_plate_confidence"`
	IsOverspeed     bool    `json:"is_overspeed"`
	X1              int     `json:"x1"`
	Y1              int     `json:"y1"`
	X2              int     `json:"x2"`
	Y2              int     `json:"y2"`
	Confidence      float64 `json:"confidence"`
	VehicleClass    string  `json:"vehicle_class"`
	Timestamp       float64 `json:"timestamp"`
}

// Box returns the record's bounding box.
func (r DetectionRecord) Box() geom.BBox {
	return geom.BBox{X1: r.X1, Y1: r.Y1, X2: r.X2, Y2: r.Y2}
}

// SetBox stores a bounding box into the record's coordinate fields.
func (r *DetectionRecord) SetBox(b geom.BBox) {
	r.X1, r.Y1, r.X2, r.Y2 = b.X1, b.Y1, b.X2, b.Y2
}
