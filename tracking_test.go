package crate

import "testing"

func TestTrackingPolicyDefaultIsNone(t *testing.T) {
	s := newSparseSet[int]()
	e := packEntityID(0, 0)
	s.Insert(e, 1, 5)
	s.Remove(e, 6)

	if got := s.InsertedSince(0); got != nil {
		t.Fatalf("InsertedSince with TrackNone should report nothing, got %v", got)
	}
	if got := s.RemovedSince(0); got != nil {
		t.Fatalf("RemovedSince with TrackNone should report nothing, got %v", got)
	}
}

func TestTrackingClearOlderThan(t *testing.T) {
	s := newSparseSet[int]()
	s.SetTrackingPolicy(TrackRemoved)

	e1 := packEntityID(0, 0)
	e2 := packEntityID(1, 0)
	s.Insert(e1, 1, 1)
	s.Insert(e2, 2, 1)
	s.Remove(e1, 10)
	s.Remove(e2, 20)

	s.ClearTrackingOlderThan(10)

	removed := s.RemovedSince(0)
	if len(removed) != 1 || removed[0] != e2 {
		t.Fatalf("ClearTrackingOlderThan(10) should leave only the tick-20 event, got %v", removed)
	}
}

func TestTrackingPolicyHasBits(t *testing.T) {
	p := TrackInserted | TrackDeleted
	if !p.has(TrackInserted) {
		t.Fatalf("expected TrackInserted bit set")
	}
	if p.has(TrackModified) {
		t.Fatalf("did not expect TrackModified bit set")
	}
	if !TrackAll.has(TrackRemoved) {
		t.Fatalf("TrackAll should include TrackRemoved")
	}
}
