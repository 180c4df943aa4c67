package track

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/trafficlens/speedcam/internal/geom"
)

func sampleAt(frame int) PositionSample {
	return PositionSample{
		Position:  geom.Point{X: float64(frame), Y: float64(frame * 2)},
		Frame:     frame,
		Timestamp: float64(frame) / 30.0,
	}
}

func TestHistoryAppendBelowCapacity(t *testing.T) {
	h := NewHistory(5)
	for f := 1; f <= 3; f++ {
		h.Append(sampleAt(f))
	}

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}
	for i := 0; i < 3; i++ {
		if got := h.At(i).Frame; got != i+1 {
			t.Errorf("At(%d).Frame = %d, want %d", i, got, i+1)
		}
	}
}

func TestHistoryEvictsOldestFirst(t *testing.T) {
	h := NewHistory(15)
	for f := 1; f <= 20; f++ {
		h.Append(sampleAt(f))
	}

	if h.Len() != 15 {
		t.Fatalf("Len() = %d, want capacity 15", h.Len())
	}
	// Frames 1-5 were evicted; 6..20 remain in temporal order.
	want := make([]PositionSample, 0, 15)
	for f := 6; f <= 20; f++ {
		want = append(want, sampleAt(f))
	}
	if diff := cmp.Diff(want, h.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestHistoryLast(t *testing.T) {
	h := NewHistory(3)
	if _, ok := h.Last(); ok {
		t.Error("Last() on empty history reported ok")
	}

	h.Append(sampleAt(1))
	h.Append(sampleAt(2))
	last, ok := h.Last()
	if !ok || last.Frame != 2 {
		t.Errorf("Last() = (%+v, %v), want frame 2", last, ok)
	}
}

func TestHistoryReset(t *testing.T) {
	h := NewHistory(4)
	for f := 1; f <= 6; f++ {
		h.Append(sampleAt(f))
	}
	h.Reset()

	if h.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", h.Len())
	}
	if h.Cap() != 4 {
		t.Errorf("Cap() after Reset = %d, want 4", h.Cap())
	}
	h.Append(sampleAt(7))
	if got := h.At(0).Frame; got != 7 {
		t.Errorf("At(0).Frame after Reset = %d, want 7", got)
	}
}
