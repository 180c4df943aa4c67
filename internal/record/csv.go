package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// csvHeader is the fixed column order of the export. Downstream tooling
// matches columns by name but the order is part of the contract anyway.
var csvHeader = []string{
	"frame_number",
	"vehicle_id",
	"speed",
	"license_plate",
	"license_plate_confidence",
	"is_overspeed",
	"x1", "y1", "x2", "y2",
	"confidence",
	"vehicle_class",
	"timestamp",
}

// WriteCSV writes the records to w in the export format: a header row
// followed by one row per record. Speeds and confidences are rounded to
// two decimals; timestamps keep full precision.
func WriteCSV(w io.Writer, records []DetectionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.FrameNumber),
			strconv.FormatInt(r.VehicleID, 10),
			strconv.FormatFloat(round2(r.SpeedKmh), 'f', -1, 64),
			r.LicensePlate,
			strconv.FormatFloat(round2(r.PlateConfidence), 'f', -1, 64),
			strconv.FormatBool(r.IsOverspeed),
			strconv.Itoa(r.X1),
			strconv.Itoa(r.Y1),
			strconv.Itoa(r.X2),
			strconv.Itoa(r.Y2),
			strconv.FormatFloat(round2(r.Confidence), 'f', -1, 64),
			r.VehicleClass,
			strconv.FormatFloat(r.Timestamp, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing record for frame %d: %w", r.FrameNumber, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
