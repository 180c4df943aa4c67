// Package render draws the run's overlay onto output frames: vehicle boxes
// colored by overspeed state, identity and speed labels, plate annotations,
// the measurement zone boundaries, and the frame status line.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/trafficlens/speedcam/internal/geom"
	"github.com/trafficlens/speedcam/internal/track"
	"github.com/trafficlens/speedcam/internal/zone"
)

var (
	colGreen = color.RGBA{G: 255}
	colRed   = color.RGBA{R: 255}
	colCyan  = color.RGBA{G: 255, B: 255}
	colWhite = color.RGBA{R: 255, G: 255, B: 255}
)

// Annotator draws the per-frame overlay. One annotator serves a whole run.
type Annotator struct {
	band zone.Band
}

// NewAnnotator creates an annotator for the given measurement band.
func NewAnnotator(band zone.Band) *Annotator {
	return &Annotator{band: band}
}

// Vehicle draws one tracked vehicle: its box and identity label always,
// its speed only while the centroid sits inside the measurement band, and
// its cached plate when one exists. Overspeeding vehicles get a red,
// thicker box.
func (a *Annotator) Vehicle(frame *gocv.Mat, t *track.Track, box geom.BBox, overspeed bool) {
	col, thickness := colGreen, 2
	if overspeed {
		col, thickness = colRed, 3
	}
	gocv.Rectangle(frame, image.Rect(box.X1, box.Y1, box.X2, box.Y2), col, thickness)

	gocv.PutText(frame, fmt.Sprintf("ID:%d", t.ID),
		image.Pt(box.X1, box.Y1-10), gocv.FontHersheySimplex, 0.7, col, 2)

	if a.band.Contains(box.Centroid()) {
		label := fmt.Sprintf("%.1f km/h", t.SpeedKmh)
		if overspeed {
			label += " OVERSPEED"
		}
		gocv.PutText(frame, label,
			image.Pt(box.X1, box.Y1+20), gocv.FontHersheySimplex, 0.6, col, 2)
	}

	if t.Plate != nil {
		a.plate(frame, t.Plate, box)
	}
}

// plate draws the cached plate text under the vehicle box and, when the
// read carried a location, the plate's own box translated from crop
// coordinates to frame coordinates.
func (a *Annotator) plate(frame *gocv.Mat, p *track.Plate, box geom.BBox) {
	gocv.PutText(frame, "LP: "+p.Text,
		image.Pt(box.X1, box.Y2+20), gocv.FontHersheySimplex, 0.6, colCyan, 2)

	tl, br := p.Box[0], p.Box[2]
	if tl == br {
		return // no location from this engine
	}
	gocv.Rectangle(frame, image.Rect(
		box.X1+int(tl.X), box.Y1+int(tl.Y),
		box.X1+int(br.X), box.Y1+int(br.Y)), colCyan, 2)
}

// Zone draws the measurement band boundaries across the frame width.
func (a *Annotator) Zone(frame *gocv.Mat) {
	w := frame.Cols()
	gocv.Line(frame, image.Pt(0, a.band.TopY), image.Pt(w, a.band.TopY), colRed, 2)
	gocv.Line(frame, image.Pt(0, a.band.BottomY), image.Pt(w, a.band.BottomY), colRed, 2)
	gocv.PutText(frame, "Speed Detection Zone",
		image.Pt(10, a.band.TopY-10), gocv.FontHersheySimplex, 0.7, colRed, 2)
}

// Status draws the frame counter and vehicle count in the top-left corner.
func (a *Annotator) Status(frame *gocv.Mat, frameNum, totalFrames, vehicles int) {
	gocv.PutText(frame,
		fmt.Sprintf("Frame: %d/%d | Vehicles: %d", frameNum, totalFrames, vehicles),
		image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, colWhite, 2)
}
