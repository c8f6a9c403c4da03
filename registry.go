package crate

import (
	"errors"
	"reflect"
	"sync"

	"github.com/TheBitDrifter/bark"
)

// erasedStorage is the type-erased capability object every component
// storage exposes to the registry (spec §9: "dynamic dispatch across
// storages" / "a capability object per storage kind exposing only the
// type-erased operations the registry needs"). Unique storages do not
// implement it. Typed access is recovered by the registry's own
// reflect.Type-keyed map, not by a downcast trait object.
type erasedStorage interface {
	typeID() TypeID
	denseLen() int
	denseEntityAt(i int) EntityID
	containsFull(id EntityID) bool
	dropEntity(id EntityID, tick uint64) bool
	clearErased()
	lenErased() int
}

// AllStorages is the registry of §3/§4.4: a type-keyed map of component
// storages, a separate type-keyed map of unique (single-instance, not
// entity-keyed) storages, the entity allocator, and the lifecycle
// operations that span all of them.
type AllStorages struct {
	mu         sync.Mutex
	components map[reflect.Type]erasedStorage
	uniques    map[reflect.Type]any
	pinned     map[TypeID]bool
	allocator  *EntityAllocator
}

func newAllStorages(allocator *EntityAllocator) *AllStorages {
	return &AllStorages{
		components: make(map[reflect.Type]erasedStorage),
		uniques:    make(map[reflect.Type]any),
		pinned:     make(map[TypeID]bool),
		allocator:  allocator,
	}
}

// storageFor returns (creating on first access) the component storage for
// T (spec §4.4: "storage<T>() -> &Storage<T> creates on miss").
func storageFor[T any](as *AllStorages) *sparseSet[T] {
	rt := reflect.TypeFor[T]()

	as.mu.Lock()
	defer as.mu.Unlock()

	if existing, ok := as.components[rt]; ok {
		st, ok := existing.(*sparseSet[T])
		if !ok {
			// Unreachable unless two goroutines raced a first registration
			// in a way this mutex is supposed to prevent.
			panic(bark.AddTrace(errStorageTypeMismatch))
		}
		return st
	}

	st := newSparseSet[T]()
	as.components[rt] = st
	Logger.Debug().Str("type", typeNameOf[T]()).Str("kind", kindName(kindComponent)).Msg("storage registered")
	return st
}

// uniqueFor returns (creating on first access) the unique storage for T.
// Uniques are not entity-keyed, so they hold a single T directly rather
// than reusing the sparse/dense/data layout of component storage.
func uniqueFor[T any](as *AllStorages) *uniqueSlot[T] {
	rt := reflect.TypeFor[T]()

	as.mu.Lock()
	defer as.mu.Unlock()

	if existing, ok := as.uniques[rt]; ok {
		st, ok := existing.(*uniqueSlot[T])
		if !ok {
			panic(bark.AddTrace(errStorageTypeMismatch))
		}
		return st
	}

	st := &uniqueSlot[T]{}
	as.uniques[rt] = st
	Logger.Debug().Str("type", typeNameOf[T]()).Str("kind", kindName(kindUnique)).Msg("unique registered")
	return st
}

// uniqueSlot holds at most one T (spec §4.4). It is its own tiny storage
// rather than a one-entry sparseSet, since a unique has no entity to key
// on and no swap-remove to perform.
type uniqueSlot[T any] struct {
	value      T
	present    bool
	modifyTick uint64
}

func (u *uniqueSlot[T]) Get() *T { return &u.value }

func (u *uniqueSlot[T]) Set(value T, tick uint64) {
	u.value = value
	u.present = true
	u.modifyTick = tick
}

func (u *uniqueSlot[T]) MarkModified(tick uint64) { u.modifyTick = tick }

func (u *uniqueSlot[T]) Remove() {
	var zero T
	closeComponent(u.value, typeNameOf[T]())
	u.value = zero
	u.present = false
}

func kindName(k storageKind) string {
	switch k {
	case kindComponent:
		return "component"
	case kindUnique:
		return "unique"
	case kindEntities:
		return "entities"
	case kindAllStorages:
		return "all-storages"
	default:
		return "unknown"
	}
}

// isPinned reports whether the component storage identified by id has
// thread affinity (spec §5's "!Send/!Sync components" strategy): a system
// touching it must run on the workload's initiator goroutine.
func (as *AllStorages) isPinned(id TypeID) bool {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.pinned[id]
}

// setPinned pins or unpins the component storage identified by id.
func (as *AllStorages) setPinned(id TypeID, pin bool) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if pin {
		as.pinned[id] = true
	} else {
		delete(as.pinned, id)
	}
}

// hasUnique reports whether a unique of type T has been installed.
func hasUnique[T any](as *AllStorages) bool {
	rt := reflect.TypeFor[T]()
	as.mu.Lock()
	defer as.mu.Unlock()
	existing, ok := as.uniques[rt]
	if !ok {
		return false
	}
	st, ok := existing.(*uniqueSlot[T])
	return ok && st.present
}

// allComponentStorages returns every registered component storage, for
// cascade operations (DeleteEntity, Strip, Clear) that must never touch
// uniques, since uniques are not entity-keyed.
func (as *AllStorages) allComponentStorages() []erasedStorage {
	as.mu.Lock()
	defer as.mu.Unlock()
	out := make([]erasedStorage, 0, len(as.components))
	for _, st := range as.components {
		out = append(out, st)
	}
	return out
}

// DeleteEntity deletes the entity handle and then visits every component
// storage to drop its component for id (spec §4.4's canonical path). It
// does not touch unique storages, which are not keyed by entity.
func (as *AllStorages) DeleteEntity(id EntityID, tick uint64) bool {
	deleted := as.allocator.Delete(id)
	as.dropComponentsFor(id, tick)
	return deleted
}

// Strip removes every component for id but leaves the entity handle live
// (spec §4.4).
func (as *AllStorages) Strip(id EntityID, tick uint64) {
	as.dropComponentsFor(id, tick)
}

func (as *AllStorages) dropComponentsFor(id EntityID, tick uint64) {
	for _, st := range as.allComponentStorages() {
		st.dropEntity(id, tick)
	}
}

// Clear drops every component, every unique, and every entity (spec §4.4).
func (as *AllStorages) Clear() {
	for _, st := range as.allComponentStorages() {
		st.clearErased()
	}
	as.mu.Lock()
	as.uniques = make(map[reflect.Type]any)
	as.pinned = make(map[TypeID]bool)
	as.mu.Unlock()
	*as.allocator = *NewEntityAllocator()
}

var errStorageTypeMismatch = errors.New("crate: storage type mismatch for a registered key")
