package crate

// tombstoneIndex marks a sparse slot with no current mapping.
const tombstoneIndex = ^uint32(0)

// closer is the optional interface a component value can implement to run
// cleanup when its storage slot is swap-removed or the storage is cleared
// (spec §4.2's "drop"). It mirrors io.Closer's shape since that's the
// idiomatic Go name for "runs when this value goes away".
type closer interface {
	Close() error
}

// closeComponent invokes Close on v if it implements closer, recovering
// from (and logging) a panic so a broken destructor cannot corrupt the
// storage's lengths (spec §4.2: "Panics during user destructors must not
// corrupt lengths").
func closeComponent(v any, typeName string) {
	c, ok := v.(closer)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			Logger.Debug().
				Str("type", typeName).
				Interface("panic", r).
				Msg("component Close panicked; slot already removed")
		}
	}()
	if err := c.Close(); err != nil {
		Logger.Debug().Str("type", typeName).Err(err).Msg("component Close returned an error")
	}
}

// sparseSet is the storage for one component type T: three parallel
// arrays per spec §3 — sparse[slot] -> dense index, dense[i] -> full
// EntityID, data[i] -> T. Lookups validate the dense slot against the full
// handle (including generation) so a stale sparse entry for a recycled
// slot is never mistaken for a hit.
type sparseSet[T any] struct {
	sparse []uint32
	dense  []EntityID
	data   []T

	tracking trackingState
}

func newSparseSet[T any]() *sparseSet[T] {
	return &sparseSet[T]{}
}

func (s *sparseSet[T]) ensureSparse(slot uint32) {
	for uint32(len(s.sparse)) <= slot {
		s.sparse = append(s.sparse, tombstoneIndex)
	}
}

// denseIndexOf returns the dense index for id if present, validating the
// full handle, or (0, false) otherwise. Out-of-range slots are reported as
// absent rather than panicking (spec §4.2 edge case).
func (s *sparseSet[T]) denseIndexOf(id EntityID) (uint32, bool) {
	slot := id.Index()
	if int(slot) >= len(s.sparse) {
		return 0, false
	}
	d := s.sparse[slot]
	if d == tombstoneIndex || int(d) >= len(s.dense) || s.dense[d] != id {
		return 0, false
	}
	return d, true
}

// Contains reports whether id currently has a component in this storage.
func (s *sparseSet[T]) Contains(id EntityID) bool {
	_, ok := s.denseIndexOf(id)
	return ok
}

// Get returns a pointer to id's component, or nil if absent. The pointer
// is invalidated by any later Insert/Remove/Delete/Clear on this storage
// (swap-remove and append can relocate dense slots).
func (s *sparseSet[T]) Get(id EntityID) *T {
	d, ok := s.denseIndexOf(id)
	if !ok {
		return nil
	}
	return &s.data[d]
}

// Insert adds value for id, replacing (and closing) any existing
// component, or appending a new dense/data slot otherwise.
func (s *sparseSet[T]) Insert(id EntityID, value T, tick uint64) {
	if d, ok := s.denseIndexOf(id); ok {
		closeComponent(s.data[d], typeNameOf[T]())
		s.data[d] = value
		s.tracking.markModified(d, tick)
		return
	}

	slot := id.Index()
	s.ensureSparse(slot)
	d := uint32(len(s.dense))
	s.dense = append(s.dense, id)
	s.data = append(s.data, value)
	s.sparse[slot] = d
	s.tracking.recordInsert(d, tick)
}

// swapRemove does the raw sparse/dense/data swap-remove (spec §4.2),
// patching the sparse entry of the relocated tail element. It records no
// tracking event — callers decide whether the removal counts as a direct
// "removed" or a cascading "deleted" (spec §9).
func (s *sparseSet[T]) swapRemove(id EntityID) (T, bool) {
	var zero T
	d, ok := s.denseIndexOf(id)
	if !ok {
		return zero, false
	}

	last := uint32(len(s.dense) - 1)
	removed := s.data[d]
	if d != last {
		movedID := s.dense[last]
		s.dense[d] = movedID
		s.data[d] = s.data[last]
		s.sparse[movedID.Index()] = d
		s.tracking.moveSlot(last, d)
	}
	s.dense = s.dense[:last]
	s.data = s.data[:last]
	s.sparse[id.Index()] = tombstoneIndex
	return removed, true
}

// Remove swap-removes id's component and returns it (spec: "remove(id) ->
// Option<T>"). Tracked as a direct removal.
func (s *sparseSet[T]) Remove(id EntityID, tick uint64) (T, bool) {
	v, ok := s.swapRemove(id)
	if ok {
		s.tracking.recordRemoved(id, tick)
	}
	return v, ok
}

// Delete behaves like Remove but drops the value (running its Close hook,
// if any) and only reports whether anything was removed (spec: "delete(id)
// -> bool"). Tracked as a direct removal.
func (s *sparseSet[T]) Delete(id EntityID, tick uint64) bool {
	v, ok := s.swapRemove(id)
	if ok {
		s.tracking.recordRemoved(id, tick)
		closeComponent(v, typeNameOf[T]())
	}
	return ok
}

// dropForEntityDelete swap-removes and drops id's component as a side
// effect of its owning entity being deleted (spec §4.4's canonical
// delete_entity path). Tracked as a deletion, distinct from a direct
// Remove/Delete call.
func (s *sparseSet[T]) dropForEntityDelete(id EntityID, tick uint64) bool {
	v, ok := s.swapRemove(id)
	if ok {
		s.tracking.recordDeleted(id, tick)
		closeComponent(v, typeNameOf[T]())
	}
	return ok
}

// SetTrackingPolicy configures which lifecycle events future operations on
// this storage record (spec §6).
func (s *sparseSet[T]) SetTrackingPolicy(p TrackingPolicy) {
	s.tracking.setPolicy(p)
}

// InsertedSince returns entities whose component was inserted after
// sinceTick.
func (s *sparseSet[T]) InsertedSince(sinceTick uint64) []EntityID {
	return s.tracking.insertedSince(sinceTick, s.dense)
}

// ModifiedSince returns entities whose component was modified after
// sinceTick.
func (s *sparseSet[T]) ModifiedSince(sinceTick uint64) []EntityID {
	return s.tracking.modifiedSince(sinceTick, s.dense)
}

// RemovedSince returns entities whose component was explicitly removed
// (entity stayed alive) after sinceTick.
func (s *sparseSet[T]) RemovedSince(sinceTick uint64) []EntityID {
	return s.tracking.removedSince(sinceTick)
}

// DeletedSince returns entities whose component was dropped by entity
// deletion after sinceTick.
func (s *sparseSet[T]) DeletedSince(sinceTick uint64) []EntityID {
	return s.tracking.deletedSince(sinceTick)
}

// ClearTrackingOlderThan drops removed/deleted records at or before
// olderThan (spec §6's "clear-older-than operation").
func (s *sparseSet[T]) ClearTrackingOlderThan(olderThan uint64) {
	s.tracking.clearOlderThan(olderThan)
}

// markModifiedAt marks the component at dense index d as modified at tick,
// used by ViewMut/GetMut's automatic modification tracking.
func (s *sparseSet[T]) markModifiedAt(d uint32, tick uint64) {
	s.tracking.markModified(d, tick)
}

// Len returns the number of components currently stored.
func (s *sparseSet[T]) Len() int {
	return len(s.dense)
}

// IsEmpty reports whether Len() == 0.
func (s *sparseSet[T]) IsEmpty() bool {
	return len(s.dense) == 0
}

// Clear drops every component in dense order (spec §4.2), then resets the
// storage to empty.
func (s *sparseSet[T]) Clear() {
	typeName := typeNameOf[T]()
	for i := range s.data {
		closeComponent(s.data[i], typeName)
	}
	s.sparse = nil
	s.dense = nil
	s.data = nil
	s.tracking.reset()
}

// --- erasedStorage: the type-erased capability object the registry and
// join walk operate through (spec §9's "dynamic dispatch across
// storages"). ---

func (s *sparseSet[T]) typeID() TypeID { return typeIDOf[T]() }

func (s *sparseSet[T]) denseLen() int { return len(s.dense) }

func (s *sparseSet[T]) denseEntityAt(i int) EntityID { return s.dense[i] }

func (s *sparseSet[T]) containsFull(id EntityID) bool { return s.Contains(id) }

func (s *sparseSet[T]) dropEntity(id EntityID, tick uint64) bool { return s.dropForEntityDelete(id, tick) }

func (s *sparseSet[T]) clearErased() { s.Clear() }

func (s *sparseSet[T]) lenErased() int { return s.Len() }

var _ erasedStorage = (*sparseSet[int])(nil)
