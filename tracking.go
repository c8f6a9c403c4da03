package crate

// TrackingPolicy selects which lifecycle events a storage records, per
// spec §6 (component registration surface) and §9 ("inserted / modified /
// deleted / removed"). It is a bitset so a component can opt into any
// combination.
type TrackingPolicy uint8

const (
	// TrackNone records nothing; Inserted/Modified/Deleted/Removed always
	// report empty and the storage does no bookkeeping. This is the
	// default for a component that never calls RegisterComponent.
	TrackNone TrackingPolicy = 0
	// TrackInserted records the tick of each component's most recent
	// insertion.
	TrackInserted TrackingPolicy = 1 << iota
	// TrackModified records the tick of each component's most recent
	// mutation, including automatic marking on ViewMut/GetMut access
	// (see DESIGN.md's Open Question decision).
	TrackModified
	// TrackDeleted records a tick-stamped side entry when a component is
	// dropped as a side effect of its owning entity being deleted.
	TrackDeleted
	// TrackRemoved records a tick-stamped side entry when a component is
	// removed directly (the entity stays alive).
	TrackRemoved
	// TrackAll records every event kind.
	TrackAll = TrackInserted | TrackModified | TrackDeleted | TrackRemoved
)

func (p TrackingPolicy) has(bit TrackingPolicy) bool { return p&bit != 0 }

// trackEvent is one tick-stamped removed/deleted side-buffer entry.
type trackEvent struct {
	entity EntityID
	tick   uint64
}

// trackingState is embedded in sparseSet[T] and keeps per-dense-slot
// insert/modify ticks plus removed/deleted side buffers, per spec §9's
// design note. It is a no-op (and allocates nothing) under TrackNone.
type trackingState struct {
	policy TrackingPolicy

	insertTick []uint64 // aligned with dense/data, same index
	modifyTick []uint64

	removed []trackEvent
	deleted []trackEvent
}

// setPolicy configures which events this storage records from here on. It
// does not retroactively populate history for components already present.
func (t *trackingState) setPolicy(p TrackingPolicy) {
	t.policy = p
}

func (t *trackingState) recordInsert(denseIndex uint32, tick uint64) {
	if t.policy == TrackNone {
		return
	}
	for uint32(len(t.insertTick)) <= denseIndex {
		t.insertTick = append(t.insertTick, 0)
		t.modifyTick = append(t.modifyTick, 0)
	}
	t.insertTick[denseIndex] = tick
	t.modifyTick[denseIndex] = tick
}

func (t *trackingState) markModified(denseIndex uint32, tick uint64) {
	if !t.policy.has(TrackModified) {
		return
	}
	for uint32(len(t.modifyTick)) <= denseIndex {
		t.insertTick = append(t.insertTick, 0)
		t.modifyTick = append(t.modifyTick, 0)
	}
	t.modifyTick[denseIndex] = tick
}

// moveSlot mirrors a swap-remove's tail-to-hole move in the tick arrays.
func (t *trackingState) moveSlot(from, to uint32) {
	if t.policy == TrackNone || int(from) >= len(t.insertTick) {
		return
	}
	t.insertTick[to] = t.insertTick[from]
	t.modifyTick[to] = t.modifyTick[from]
	t.insertTick = t.insertTick[:from]
	t.modifyTick = t.modifyTick[:from]
}

// recordRemoved appends a removed-side-buffer entry (component removed,
// entity stays alive).
func (t *trackingState) recordRemoved(id EntityID, tick uint64) {
	if !t.policy.has(TrackRemoved) {
		return
	}
	t.removed = append(t.removed, trackEvent{entity: id, tick: tick})
}

// recordDeleted appends a deleted-side-buffer entry (component dropped as
// a side effect of entity deletion).
func (t *trackingState) recordDeleted(id EntityID, tick uint64) {
	if !t.policy.has(TrackDeleted) {
		return
	}
	t.deleted = append(t.deleted, trackEvent{entity: id, tick: tick})
}

func (t *trackingState) reset() {
	t.insertTick = nil
	t.modifyTick = nil
	t.removed = nil
	t.deleted = nil
}

// insertedSince returns every live dense slot whose insertTick is strictly
// greater than sinceTick. ids must be the storage's current dense array.
func (t *trackingState) insertedSince(sinceTick uint64, ids []EntityID) []EntityID {
	if !t.policy.has(TrackInserted) {
		return nil
	}
	var out []EntityID
	for i, tick := range t.insertTick {
		if tick > sinceTick && i < len(ids) {
			out = append(out, ids[i])
		}
	}
	return out
}

// modifiedSince returns every live dense slot whose modifyTick is strictly
// greater than sinceTick.
func (t *trackingState) modifiedSince(sinceTick uint64, ids []EntityID) []EntityID {
	if !t.policy.has(TrackModified) {
		return nil
	}
	var out []EntityID
	for i, tick := range t.modifyTick {
		if tick > sinceTick && i < len(ids) {
			out = append(out, ids[i])
		}
	}
	return out
}

func eventsSince(events []trackEvent, sinceTick uint64) []EntityID {
	var out []EntityID
	for _, ev := range events {
		if ev.tick > sinceTick {
			out = append(out, ev.entity)
		}
	}
	return out
}

// removedSince returns entities whose component was removed (entity alive)
// after sinceTick.
func (t *trackingState) removedSince(sinceTick uint64) []EntityID {
	return eventsSince(t.removed, sinceTick)
}

// deletedSince returns entities whose component was dropped by entity
// deletion after sinceTick.
func (t *trackingState) deletedSince(sinceTick uint64) []EntityID {
	return eventsSince(t.deleted, sinceTick)
}

// clearOlderThan drops removed/deleted side-buffer entries at or
// before olderThan, per spec §6's "clear those records".
func (t *trackingState) clearOlderThan(olderThan uint64) {
	t.removed = clearOlderThanSlice(t.removed, olderThan)
	t.deleted = clearOlderThanSlice(t.deleted, olderThan)
}

func clearOlderThanSlice(events []trackEvent, olderThan uint64) []trackEvent {
	kept := events[:0]
	for _, ev := range events {
		if ev.tick > olderThan {
			kept = append(kept, ev)
		}
	}
	return kept
}
