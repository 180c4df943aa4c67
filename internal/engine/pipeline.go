// Package engine orchestrates a processing run: the per-frame pipeline
// binding detections to identities, estimating speeds and emitting records,
// and the outer loop that feeds it frames, plate reads and overlays.
package engine

import (
	"github.com/trafficlens/speedcam/internal/config"
	"github.com/trafficlens/speedcam/internal/plate"
	"github.com/trafficlens/speedcam/internal/record"
	"github.com/trafficlens/speedcam/internal/speed"
	"github.com/trafficlens/speedcam/internal/track"
	"github.com/trafficlens/speedcam/internal/video"
	"github.com/trafficlens/speedcam/internal/vision"
	"github.com/trafficlens/speedcam/internal/zone"
)

// VehicleState is one vehicle's outcome on one frame: its resolved track,
// the detection that produced it, and the classification results the
// overlay and plate reader need.
type VehicleState struct {
	Track     *track.Track
	Detection vision.Detection
	InZone    bool
	Overspeed bool
	PlateDue  bool
}

// Pipeline is the per-frame core of a run. It owns the track store, the
// speed estimator and the accumulated records. One pipeline serves exactly
// one video; it is not safe for concurrent use.
type Pipeline struct {
	meta       video.Meta
	minConf    float64
	store      *track.Store
	estimator  *speed.Estimator
	band       zone.Band
	classifier zone.Classifier
	policy     plate.Policy

	frame   int
	records []record.DetectionRecord
}

// NewPipeline builds a pipeline for a video with the given metadata,
// deriving the calibration and measurement band from the frame geometry.
func NewPipeline(cfg *config.TuningConfig, meta video.Meta) *Pipeline {
	return &Pipeline{
		meta:       meta,
		minConf:    cfg.GetMinDetectionConfidence(),
		store:      track.NewStore(track.StoreConfigFromTuning(cfg)),
		estimator:  speed.NewEstimator(cfg, speed.CalibrationFromTuning(cfg, meta.Width)),
		band:       zone.BandFromTuning(cfg, meta.Height),
		classifier: zone.ClassifierFromTuning(cfg),
		policy:     plate.PolicyFromTuning(cfg),
	}
}

// Band returns the measurement band derived from the frame height.
func (p *Pipeline) Band() zone.Band { return p.band }

// Frame returns the number of frames stepped so far.
func (p *Pipeline) Frame() int { return p.frame }

// Store exposes the track store for inspection.
func (p *Pipeline) Store() *track.Store { return p.store }

// Begin advances the pipeline by one frame: it ages the track store,
// resolves each qualifying detection to an identity, records the position
// sample and refreshes the speed estimate. Low-confidence and non-vehicle
// detections are dropped here. The returned states carry everything the
// caller needs for plate reads and overlays before Commit.
func (p *Pipeline) Begin(detections []vision.Detection) []VehicleState {
	p.frame++
	p.store.Age(p.frame)

	states := make([]VehicleState, 0, len(detections))
	for _, d := range detections {
		if d.Confidence <= p.minConf || !vision.IsVehicleClass(d.ClassID) {
			continue
		}

		centroid := d.Centroid()
		t := p.store.Resolve(centroid, p.frame)
		t.History.Append(track.PositionSample{
			Position:  centroid,
			Frame:     p.frame,
			Timestamp: p.meta.FrameTimestamp(p.frame),
		})
		p.estimator.Update(t)

		states = append(states, VehicleState{
			Track:     t,
			Detection: d,
			InZone:    p.band.Contains(centroid),
			Overspeed: p.classifier.Overspeed(t.SpeedKmh),
			PlateDue:  p.policy.Due(p.frame, t.SpeedKmh),
		})
	}
	return states
}

// Commit emits detection records for the frame Begin just processed. Only
// vehicles with a nonzero speed estimate produce records; zone membership
// does not gate emission. Plate state is read at commit time so reads done
// between Begin and Commit land in the same frame's records.
func (p *Pipeline) Commit(states []VehicleState) {
	for _, s := range states {
		if !s.Track.HasSpeed() || s.Track.SpeedKmh <= 0 {
			continue
		}

		rec := record.DetectionRecord{
			FrameNumber:  p.frame,
			VehicleID:    s.Track.ID,
			SpeedKmh:     s.Track.SpeedKmh,
			LicensePlate: record.MissingPlate,
			IsOverspeed:  s.Overspeed,
			Confidence:   s.Detection.Confidence,
			VehicleClass: vision.ClassName(s.Detection.ClassID),
			Timestamp:    p.meta.FrameTimestamp(p.frame),
		}
		rec.SetBox(s.Detection.Box)
		if pl := s.Track.Plate; pl != nil {
			rec.LicensePlate = pl.Text
			rec.PlateConfidence = pl.Confidence
		}
		p.records = append(p.records, rec)
	}
}

// Records returns all records emitted so far.
func (p *Pipeline) Records() []record.DetectionRecord { return p.records }
