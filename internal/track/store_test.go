package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficlens/speedcam/internal/geom"
)

func testStoreConfig() StoreConfig {
	return StoreConfig{
		DistanceGatePx:         50,
		MaxAgeFrames:           30,
		HistoryCapacity:        15,
		DormantRetentionFrames: 300,
	}
}

// observe resolves a centroid and records it in the winner's history, the
// way the frame loop does after identity resolution.
func observe(s *Store, p geom.Point, frame int) *Track {
	t := s.Resolve(p, frame)
	t.History.Append(PositionSample{Position: p, Frame: frame, Timestamp: float64(frame) / 30.0})
	return t
}

func TestResolveStableIdentityUnderSmallMotion(t *testing.T) {
	s := NewStore(testStoreConfig())

	// A centroid drifting well under the gate per frame keeps one identity.
	first := observe(s, geom.Point{X: 100, Y: 100}, 1)
	for f := 2; f <= 40; f++ {
		tr := observe(s, geom.Point{X: 100 + float64(f)*3, Y: 100}, f)
		assert.Equal(t, first.ID, tr.ID, "frame %d", f)
	}
	assert.Equal(t, 1, s.ActiveCount())
}

func TestResolveSpawnsBeyondGate(t *testing.T) {
	s := NewStore(testStoreConfig())

	a := observe(s, geom.Point{X: 100, Y: 100}, 1)
	b := observe(s, geom.Point{X: 100, Y: 151}, 1) // 51px away, outside gate
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, s.ActiveCount())
}

func TestResolveExactGateDistanceSpawnsNew(t *testing.T) {
	s := NewStore(testStoreConfig())

	a := observe(s, geom.Point{X: 0, Y: 0}, 1)
	// Exactly the gate distance is not a match; the comparison is strict.
	b := observe(s, geom.Point{X: 50, Y: 0}, 2)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestResolveIgnoresTracksWithoutPositions(t *testing.T) {
	s := NewStore(testStoreConfig())

	// Resolve without recording a position: the new track has an empty
	// history and must be invisible to same-frame matching.
	a := s.Resolve(geom.Point{X: 100, Y: 100}, 1)
	b := s.Resolve(geom.Point{X: 102, Y: 100}, 1)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestResolveGreedyDoubleBind(t *testing.T) {
	s := NewStore(testStoreConfig())

	tr := observe(s, geom.Point{X: 100, Y: 100}, 1)

	// Two detections next frame, both within the gate of the same track.
	// Matching is independent per detection, so both bind to it.
	first := s.Resolve(geom.Point{X: 103, Y: 100}, 2)
	second := s.Resolve(geom.Point{X: 98, Y: 100}, 2)
	assert.Equal(t, tr.ID, first.ID)
	assert.Equal(t, tr.ID, second.ID)
	assert.Equal(t, 1, s.ActiveCount())
}

func TestAgeDemotesAtThreshold(t *testing.T) {
	s := NewStore(testStoreConfig())

	tr := observe(s, geom.Point{X: 200, Y: 300}, 10)

	// Unseen for exactly MaxAgeFrames: still active.
	s.Age(40)
	require.NotNil(t, s.Get(tr.ID))

	// One frame later it is demoted, retaining only its last centroid.
	s.Age(41)
	assert.Nil(t, s.Get(tr.ID))
	pos, ok := s.DormantCentroid(tr.ID)
	require.True(t, ok)
	assert.Equal(t, geom.Point{X: 200, Y: 300}, pos)
}

func TestAgeForgetsPositionlessTracks(t *testing.T) {
	s := NewStore(testStoreConfig())

	tr := s.Resolve(geom.Point{X: 10, Y: 10}, 1) // never observed
	s.Age(100)
	assert.Nil(t, s.Get(tr.ID))
	_, ok := s.DormantCentroid(tr.ID)
	assert.False(t, ok, "positionless track should not become dormant")
}

func TestReviveKeepsIdentityDropsHistory(t *testing.T) {
	s := NewStore(testStoreConfig())

	tr := observe(s, geom.Point{X: 300, Y: 300}, 1)
	for f := 2; f <= 5; f++ {
		observe(s, geom.Point{X: 300, Y: 300 + float64(f)}, f)
	}
	origID := tr.ID

	s.Age(50)
	require.Equal(t, 0, s.ActiveCount())
	require.Equal(t, 1, s.DormantCount())

	// A detection near the dormant centroid revives the old identity.
	revived := observe(s, geom.Point{X: 310, Y: 304}, 60)
	assert.Equal(t, origID, revived.ID)
	assert.Equal(t, 0, s.DormantCount())
	// History starts over; speed must be re-earned.
	assert.Equal(t, 1, revived.History.Len())
	assert.False(t, revived.HasSpeed())
}

func TestReviveOutsideGateSpawnsNew(t *testing.T) {
	s := NewStore(testStoreConfig())

	tr := observe(s, geom.Point{X: 300, Y: 300}, 1)
	s.Age(50)

	fresh := observe(s, geom.Point{X: 300, Y: 400}, 60) // 100px from dormant
	assert.NotEqual(t, tr.ID, fresh.ID)
	assert.Equal(t, 1, s.DormantCount(), "dormant record stays for a later revival")
}

func TestAgePrunesOldDormantRecords(t *testing.T) {
	s := NewStore(testStoreConfig())

	observe(s, geom.Point{X: 100, Y: 100}, 1)
	s.Age(40) // demoted at frame 40
	require.Equal(t, 1, s.DormantCount())

	s.Age(340) // exactly at retention: kept
	assert.Equal(t, 1, s.DormantCount())
	s.Age(341)
	assert.Equal(t, 0, s.DormantCount())
}

func TestActiveIDsSorted(t *testing.T) {
	s := NewStore(testStoreConfig())

	observe(s, geom.Point{X: 0, Y: 0}, 1)
	observe(s, geom.Point{X: 500, Y: 0}, 1)
	observe(s, geom.Point{X: 1000, Y: 0}, 1)
	assert.Equal(t, []int64{1, 2, 3}, s.ActiveIDs())
}
