package track

import (
	"sort"

	"github.com/trafficlens/speedcam/internal/config"
	"github.com/trafficlens/speedcam/internal/geom"
)

// StoreConfig holds the tracker's tunable parameters.
type StoreConfig struct {
	DistanceGatePx         float64 // max centroid distance to count as the same vehicle
	MaxAgeFrames           int     // frames unseen before an active track goes dormant
	HistoryCapacity        int     // position samples retained per track
	DormantRetentionFrames int     // frames a dormant record survives before being forgotten
}

// StoreConfigFromTuning builds a StoreConfig from a loaded TuningConfig.
func StoreConfigFromTuning(cfg *config.TuningConfig) StoreConfig {
	return StoreConfig{
		DistanceGatePx:         cfg.GetDistanceGatePx(),
		MaxAgeFrames:           cfg.GetTrackMaxAgeFrames(),
		HistoryCapacity:        cfg.GetHistoryCapacity(),
		DormantRetentionFrames: cfg.GetDormantRetentionFrames(),
	}
}

// dormantRecord is what survives of an aged-out track: its last known
// centroid and the frame it was demoted on. History is discarded at
// demotion and not restored on revival.
type dormantRecord struct {
	lastPos      geom.Point
	demotedFrame int
}

// Store holds the active tracks and the dormant records of a single run.
// It is not safe for concurrent use; the frame loop is the only writer and
// reader by design.
type Store struct {
	cfg     StoreConfig
	active  map[int64]*Track
	dormant map[int64]dormantRecord
	nextID  int64
}

// NewStore creates an empty track store.
func NewStore(cfg StoreConfig) *Store {
	return &Store{
		cfg:     cfg,
		active:  make(map[int64]*Track),
		dormant: make(map[int64]dormantRecord),
		nextID:  1,
	}
}

// Config returns the store's configuration.
func (s *Store) Config() StoreConfig { return s.cfg }

// Get returns the active track with the given identity, or nil.
func (s *Store) Get(id int64) *Track { return s.active[id] }

// ActiveCount returns the number of active tracks.
func (s *Store) ActiveCount() int { return len(s.active) }

// DormantCount returns the number of dormant records.
func (s *Store) DormantCount() int { return len(s.dormant) }

// DormantCentroid returns a dormant record's last known centroid.
func (s *Store) DormantCentroid(id int64) (geom.Point, bool) {
	rec, ok := s.dormant[id]
	return rec.lastPos, ok
}

// ActiveIDs returns the active identities in ascending order.
func (s *Store) ActiveIDs() []int64 {
	ids := make([]int64, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Resolve binds a detection centroid to a track identity for the given
// frame. Active tracks are scanned first for the nearest recorded position
// within the distance gate; failing that, dormant records are scanned and
// the winner is revived under its original identity with fresh history.
// If nothing qualifies a new identity is allocated.
//
// Each detection is matched independently and greedily: two detections in
// the same frame may legally bind to the same track. A globally optimal
// assignment is deliberately not attempted.
func (s *Store) Resolve(centroid geom.Point, frame int) *Track {
	// Nearest active track by last recorded position.
	var best *Track
	minDist := s.cfg.DistanceGatePx
	for _, t := range s.active {
		last, ok := t.History.Last()
		if !ok {
			continue // created this frame, no position yet
		}
		if d := geom.Distance(centroid, last.Position); d < minDist {
			minDist = d
			best = t
		}
	}
	if best != nil {
		best.LastSeenFrame = frame
		return best
	}

	// Nearest dormant record by its last known centroid.
	var bestDormant int64 = -1
	minDist = s.cfg.DistanceGatePx
	for id, rec := range s.dormant {
		if d := geom.Distance(centroid, rec.lastPos); d < minDist {
			minDist = d
			bestDormant = id
		}
	}
	if bestDormant >= 0 {
		return s.revive(bestDormant, frame)
	}

	return s.spawn(frame)
}

// spawn allocates a fresh identity and registers it as active.
func (s *Store) spawn(frame int) *Track {
	t := &Track{
		ID:            s.nextID,
		History:       NewHistory(s.cfg.HistoryCapacity),
		LastSeenFrame: frame,
	}
	s.nextID++
	s.active[t.ID] = t
	return t
}

// revive moves a dormant record back to the active set under its original
// identity. The prior position history is gone; the track starts over with
// an empty buffer, so its speed estimate must be re-earned.
func (s *Store) revive(id int64, frame int) *Track {
	delete(s.dormant, id)
	t := &Track{
		ID:            id,
		History:       NewHistory(s.cfg.HistoryCapacity),
		LastSeenFrame: frame,
	}
	s.active[id] = t
	return t
}

// Age demotes active tracks unseen for more than MaxAgeFrames to dormant
// records and forgets dormant records older than DormantRetentionFrames.
// Call once per frame before resolving that frame's detections.
func (s *Store) Age(frame int) {
	for id, t := range s.active {
		if frame-t.LastSeenFrame <= s.cfg.MaxAgeFrames {
			continue
		}
		if last, ok := t.History.Last(); ok {
			s.dormant[id] = dormantRecord{lastPos: last.Position, demotedFrame: frame}
		}
		// A track that never recorded a position has nothing to revive
		// from; it is forgotten outright.
		delete(s.active, id)
	}

	if s.cfg.DormantRetentionFrames > 0 {
		for id, rec := range s.dormant {
			if frame-rec.demotedFrame > s.cfg.DormantRetentionFrames {
				delete(s.dormant, id)
			}
		}
	}
}
