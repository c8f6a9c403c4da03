package crate

import (
	"sync/atomic"

	"github.com/TheBitDrifter/bark"
)

// World is the façade of spec §4.6: the registry, the borrow table, the
// set of built workloads, and a monotonic tick used for tracking. All of
// its exported operations are safe to call from a single goroutine at a
// time; concurrency within a workload is the scheduler's job, not the
// caller's.
type World struct {
	registry  *AllStorages
	borrows   *borrowTable
	workloads map[string]*Workload
	tick      atomic.Uint64
}

// NewWorld returns an empty World with no entities, no uniques, and no
// built workloads.
func NewWorld() *World {
	w := &World{
		borrows:   newBorrowTable(),
		workloads: make(map[string]*Workload),
	}
	w.registry = newAllStorages(NewEntityAllocator())
	return w
}

func (w *World) currentTick() uint64 { return w.tick.Load() }

// Tick advances and returns the world's tick counter. A workload calls this
// once at the end of each successful run, after all of its batches (spec
// §9's tick-keyed tracking); tests may call it
// directly to simulate time passing between observations.
func (w *World) Tick() uint64 { return w.tick.Add(1) }

// CreateEntity allocates a fresh entity handle. Like every World-level
// mutator, it goes through the borrow table (the same "Entities" key
// EntitiesViewMut acquires) so a direct call from inside a system body
// cannot race a concurrently-scheduled system that declared EntitiesView/
// EntitiesViewMut (spec §4.6: "concurrency is managed internally via the
// borrow table").
func (w *World) CreateEntity() (EntityID, error) {
	release, err := w.borrows.acquireExclusive(entitiesBorrowKey, "Entities")
	if err != nil {
		return DeadEntityID, err
	}
	defer release()
	return w.registry.allocator.Allocate(), nil
}

// DeleteEntity deletes id and drops every component it carries. The
// cascade touches every component storage, so it is guarded by the same
// registry-exclusive borrow AllStoragesViewMut uses, not just the
// "Entities" key.
func (w *World) DeleteEntity(id EntityID) (bool, error) {
	release, err := w.borrows.acquireRegistryExclusive()
	if err != nil {
		return false, err
	}
	defer release()
	return w.registry.DeleteEntity(id, w.currentTick()), nil
}

// IsAlive reports whether id is currently live.
func (w *World) IsAlive(id EntityID) bool {
	return w.registry.allocator.IsAlive(id)
}

// AddComponent installs value as id's component of type T, replacing any
// existing one (spec §4.6). The storage mutation is guarded by the same
// exclusive borrow ViewMut[T] acquires, so a direct call races neither a
// concurrently-running ViewMut[T] system nor another direct AddComponent.
func AddComponent[T any](w *World, id EntityID, value T) error {
	if !w.IsAlive(id) {
		return DeadEntityError{Entity: id}
	}
	key := borrowKeyFor[T](kindComponent)
	release, err := w.borrows.acquireExclusive(key, componentTypeLabel[T](kindComponent))
	if err != nil {
		return err
	}
	defer release()
	storageFor[T](w.registry).Insert(id, value, w.currentTick())
	return nil
}

// RemoveComponent removes id's component of type T directly, if present.
func RemoveComponent[T any](w *World, id EntityID) (T, bool, error) {
	var zero T
	key := borrowKeyFor[T](kindComponent)
	release, err := w.borrows.acquireExclusive(key, componentTypeLabel[T](kindComponent))
	if err != nil {
		return zero, false, err
	}
	defer release()
	v, ok := storageFor[T](w.registry).Remove(id, w.currentTick())
	return v, ok, nil
}

// GetComponent returns a copy of id's component of type T.
func GetComponent[T any](w *World, id EntityID) (T, error) {
	var zero T
	if !w.IsAlive(id) {
		return zero, DeadEntityError{Entity: id}
	}
	key := borrowKeyFor[T](kindComponent)
	release, err := w.borrows.acquireShared(key, componentTypeLabel[T](kindComponent))
	if err != nil {
		return zero, err
	}
	defer release()
	v := storageFor[T](w.registry).Get(id)
	if v == nil {
		return zero, MissingComponentError{Entity: id, Type: typeNameOf[T]()}
	}
	return *v, nil
}

// AddUnique installs value as the world's unique instance of T, replacing
// any existing one (spec §4.4).
func AddUnique[T any](w *World, value T) error {
	key := borrowKeyFor[T](kindUnique)
	release, err := w.borrows.acquireExclusive(key, componentTypeLabel[T](kindUnique))
	if err != nil {
		return err
	}
	defer release()
	uniqueFor[T](w.registry).Set(value, w.currentTick())
	return nil
}

// RemoveUnique removes the world's unique instance of T, if any.
func RemoveUnique[T any](w *World) error {
	key := borrowKeyFor[T](kindUnique)
	release, err := w.borrows.acquireExclusive(key, componentTypeLabel[T](kindUnique))
	if err != nil {
		return err
	}
	defer release()
	uniqueFor[T](w.registry).Remove()
	return nil
}

// RegisterComponent configures T's tracking policy (spec §6). Call it
// before running systems that read Inserted/Modified/Deleted/Removed for
// T; the default policy is TrackNone.
func RegisterComponent[T any](w *World, policy TrackingPolicy) error {
	key := borrowKeyFor[T](kindComponent)
	release, err := w.borrows.acquireExclusive(key, componentTypeLabel[T](kindComponent))
	if err != nil {
		return err
	}
	defer release()
	storageFor[T](w.registry).SetTrackingPolicy(policy)
	return nil
}

// SetThreadAffinity pins or unpins T's component storage (spec §5's
// thread-affinity supplement, SPEC_FULL.md's "Thread affinity / pinned
// storages"). A system whose BorrowInfo touches a pinned storage always
// runs on the workload's initiator goroutine rather than the worker pool,
// though still inside its assigned batch (workload.go's Run).
func SetThreadAffinity[T any](w *World, pinned bool) error {
	key := borrowKeyFor[T](kindComponent)
	release, err := w.borrows.acquireExclusive(key, componentTypeLabel[T](kindComponent))
	if err != nil {
		return err
	}
	defer release()
	w.registry.setPinned(typeIDOf[T](), pinned)
	return nil
}

// MustGetComponent returns a copy of id's component of type T, panicking
// (with a traced error) if id is dead or lacks the component. It exists
// for call sites where the caller has already established both hold true
// and plumbing an error return would only obscure that invariant.
func MustGetComponent[T any](w *World, id EntityID) T {
	v, err := GetComponent[T](w, id)
	if err != nil {
		panic(bark.AddTrace(err))
	}
	return v
}

// Join starts a new iteration-set builder against w (spec §4.3).
func (w *World) Join() *Join { return NewJoin(w) }

// BuildWorkload builds wl and registers it under its own name (spec §5). A
// name that is already registered is rejected with a WorkloadBuildError and
// the previously-built workload is kept.
func (w *World) BuildWorkload(wl *WorkloadBuilder) (*Workload, error) {
	built, err := wl.Build()
	if err != nil {
		return nil, err
	}
	if _, dup := w.workloads[built.name]; dup {
		return nil, WorkloadBuildError{Workload: built.name, Reason: "duplicate workload name"}
	}
	w.workloads[built.name] = built
	return built, nil
}

// RunWorkload runs the previously-built workload named name (spec §7,
// kind 5: unknown name returns UnknownWorkloadError).
func (w *World) RunWorkload(name string) error {
	wl, ok := w.workloads[name]
	if !ok {
		return UnknownWorkloadError{Name: name}
	}
	return wl.Run(w)
}
