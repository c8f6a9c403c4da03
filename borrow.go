package crate

import (
	"fmt"
	"sync"
)

// borrowKey identifies one borrowable unit: a single component/unique
// storage, or the registry-wide AllStorages unit.
type borrowKey struct {
	id   TypeID
	kind storageKind
}

// borrowCount is the shared/exclusive counters for one borrowable unit
// (spec §4.5's "shared or exclusive, never both at once, per storage").
// A storage may be shared-borrowed any number of times concurrently, or
// exclusive-borrowed exactly once, never both.
type borrowCount struct {
	shared    int
	exclusive int
}

func (c borrowCount) canShare() bool    { return c.exclusive == 0 }
func (c borrowCount) canExclude() bool   { return c.exclusive == 0 && c.shared == 0 }

// borrowTable is the run-time borrow checker of spec §4.5: per-storage
// counters plus a registry-wide counter for AllStoragesViewMut, which
// conflicts with every other borrow including itself. It mirrors the
// teacher's own per-storage lock-bit gating (deleted storage.go), widened
// from a single exclusive bit to independent shared/exclusive counts.
type borrowTable struct {
	mu    sync.Mutex
	units map[borrowKey]*borrowCount

	// registryShared/registryExclusive track AllStoragesViewMut borrows,
	// which are exclusive against every storage and against each other.
	registryShared    int
	registryExclusive int
}

func newBorrowTable() *borrowTable {
	return &borrowTable{units: make(map[borrowKey]*borrowCount)}
}

func (bt *borrowTable) countFor(key borrowKey) *borrowCount {
	c, ok := bt.units[key]
	if !ok {
		c = &borrowCount{}
		bt.units[key] = c
	}
	return c
}

// acquireShared borrows one storage for reading. It never blocks: if the
// storage is already exclusively held, or the registry is exclusively
// held, it returns a BorrowConflictError immediately (spec §4.5).
func (bt *borrowTable) acquireShared(key borrowKey, typeName string) (func(), error) {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	if bt.registryExclusive > 0 {
		return nil, BorrowConflictError{Type: typeName, Reason: "all-storages is exclusively held"}
	}
	c := bt.countFor(key)
	if !c.canShare() {
		return nil, BorrowConflictError{Type: typeName, Reason: "storage is exclusively held"}
	}
	c.shared++
	return func() {
		bt.mu.Lock()
		defer bt.mu.Unlock()
		c.shared--
	}, nil
}

// acquireExclusive borrows one storage for writing. It never blocks.
func (bt *borrowTable) acquireExclusive(key borrowKey, typeName string) (func(), error) {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	if bt.registryExclusive > 0 {
		return nil, BorrowConflictError{Type: typeName, Reason: "all-storages is exclusively held"}
	}
	c := bt.countFor(key)
	if !c.canExclude() {
		return nil, BorrowConflictError{Type: typeName, Reason: "storage is already borrowed"}
	}
	c.exclusive++
	return func() {
		bt.mu.Lock()
		defer bt.mu.Unlock()
		c.exclusive--
	}, nil
}

// acquireRegistryExclusive borrows the entire registry for
// AllStoragesViewMut, which conflicts with every other live borrow,
// including another AllStoragesViewMut (spec §4.5).
func (bt *borrowTable) acquireRegistryExclusive() (func(), error) {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	if bt.registryExclusive > 0 || bt.registryShared > 0 || bt.anyUnitBorrowed() {
		return nil, BorrowConflictError{Type: "AllStorages", Reason: "a storage or the registry is already borrowed"}
	}
	bt.registryExclusive++
	return func() {
		bt.mu.Lock()
		defer bt.mu.Unlock()
		bt.registryExclusive--
	}, nil
}

func (bt *borrowTable) anyUnitBorrowed() bool {
	for _, c := range bt.units {
		if c.shared > 0 || c.exclusive > 0 {
			return true
		}
	}
	return false
}

// acquireAll performs an all-or-nothing acquisition of several borrow
// requests (spec §4.5/§4.7: a multi-view Run call borrows every argument
// atomically). On the first failure, every already-acquired release is
// called in reverse order before the error is returned.
func acquireAll(requests []func() (func(), error)) ([]func(), error) {
	releases := make([]func(), 0, len(requests))
	for _, acquire := range requests {
		release, err := acquire()
		if err != nil {
			for i := len(releases) - 1; i >= 0; i-- {
				releases[i]()
			}
			return nil, err
		}
		releases = append(releases, release)
	}
	return releases, nil
}

func releaseAll(releases []func()) {
	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}
}

func borrowKeyFor[T any](kind storageKind) borrowKey {
	return borrowKey{id: typeIDOf[T](), kind: kind}
}

func componentTypeLabel[T any](kind storageKind) string {
	return fmt.Sprintf("%s[%s]", kindName(kind), typeNameOf[T]())
}
