package crate

// AccessDescriptor names one borrow a view or system makes: which storage,
// and whether it needs exclusive (write) or shared (read) access (spec
// §4.7: "borrow_info is derived mechanically from a system's declared
// views").
type AccessDescriptor struct {
	TypeID   TypeID
	TypeName string
	Kind     storageKind
	Mutable  bool
}

// accessView is the self-referencing constraint every borrowable view type
// satisfies: it can describe the borrow it needs without acquiring
// anything, and it can acquire that borrow against a live World. Fixed-
// arity Run1..Run4 compose these into the all-or-nothing multi-borrow of
// spec §4.7. Go methods cannot introduce their own type parameters, so
// views are plain (non-generic-method) types instantiated once per
// component type, which is what lets this self-reference type-check.
type accessView[V any] interface {
	describe() AccessDescriptor
	acquire(w *World) (V, func(), error)
}

// View is read-only access to one component storage (spec §4.6).
type View[T any] struct {
	storage *sparseSet[T]
}

func (View[T]) describe() AccessDescriptor {
	return AccessDescriptor{TypeID: typeIDOf[T](), TypeName: typeNameOf[T](), Kind: kindComponent, Mutable: false}
}

func (View[T]) acquire(w *World) (View[T], func(), error) {
	st := storageFor[T](w.registry)
	key := borrowKeyFor[T](kindComponent)
	release, err := w.borrows.acquireShared(key, componentTypeLabel[T](kindComponent))
	if err != nil {
		return View[T]{}, nil, err
	}
	return View[T]{storage: st}, release, nil
}

// Get returns the component for id, or an error if id is dead or carries
// no component of this type (spec §7 kinds 1, 2).
func (v View[T]) Get(id EntityID, alloc *EntityAllocator) (*T, error) {
	if !alloc.IsAlive(id) {
		return nil, DeadEntityError{Entity: id}
	}
	val := v.storage.Get(id)
	if val == nil {
		return nil, MissingComponentError{Entity: id, Type: typeNameOf[T]()}
	}
	return val, nil
}

// Contains reports whether id carries a component of this type.
func (v View[T]) Contains(id EntityID) bool { return v.storage.Contains(id) }

// Len returns how many entities currently carry this component.
func (v View[T]) Len() int { return v.storage.Len() }

// ViewMut is read-write access to one component storage (spec §4.6).
// GetMut marks the slot modified per the tracking policy in force
// (DESIGN.md's Open Question decision: access through ViewMut/GetMut
// always marks modified, regardless of whether the caller changes the
// value).
type ViewMut[T any] struct {
	storage *sparseSet[T]
	tick    uint64
}

func (ViewMut[T]) describe() AccessDescriptor {
	return AccessDescriptor{TypeID: typeIDOf[T](), TypeName: typeNameOf[T](), Kind: kindComponent, Mutable: true}
}

func (ViewMut[T]) acquire(w *World) (ViewMut[T], func(), error) {
	st := storageFor[T](w.registry)
	key := borrowKeyFor[T](kindComponent)
	release, err := w.borrows.acquireExclusive(key, componentTypeLabel[T](kindComponent))
	if err != nil {
		return ViewMut[T]{}, nil, err
	}
	return ViewMut[T]{storage: st, tick: w.currentTick()}, release, nil
}

// GetMut returns a mutable pointer to id's component and marks it
// modified at the view's acquisition tick.
func (v ViewMut[T]) GetMut(id EntityID, alloc *EntityAllocator) (*T, error) {
	if !alloc.IsAlive(id) {
		return nil, DeadEntityError{Entity: id}
	}
	d, ok := v.storage.denseIndexOf(id)
	if !ok {
		return nil, MissingComponentError{Entity: id, Type: typeNameOf[T]()}
	}
	v.storage.markModifiedAt(d, v.tick)
	return &v.storage.data[d], nil
}

// Insert adds or replaces id's component (spec §4.2).
func (v ViewMut[T]) Insert(id EntityID, value T) { v.storage.Insert(id, value, v.tick) }

// Remove removes id's component directly, returning it if present.
func (v ViewMut[T]) Remove(id EntityID) (T, bool) { return v.storage.Remove(id, v.tick) }

// Contains reports whether id carries a component of this type.
func (v ViewMut[T]) Contains(id EntityID) bool { return v.storage.Contains(id) }

// Len returns how many entities currently carry this component.
func (v ViewMut[T]) Len() int { return v.storage.Len() }

// UniqueView is read-only access to a single-instance "unique" storage
// (spec §4.4: a storage holding at most one value, not keyed by entity).
type UniqueView[T any] struct {
	slot *uniqueSlot[T]
}

func (UniqueView[T]) describe() AccessDescriptor {
	return AccessDescriptor{TypeID: typeIDOf[T](), TypeName: typeNameOf[T](), Kind: kindUnique, Mutable: false}
}

func (UniqueView[T]) acquire(w *World) (UniqueView[T], func(), error) {
	if !hasUnique[T](w.registry) {
		return UniqueView[T]{}, nil, MissingUniqueError{Type: typeNameOf[T]()}
	}
	slot := uniqueFor[T](w.registry)
	key := borrowKeyFor[T](kindUnique)
	release, err := w.borrows.acquireShared(key, componentTypeLabel[T](kindUnique))
	if err != nil {
		return UniqueView[T]{}, nil, err
	}
	return UniqueView[T]{slot: slot}, release, nil
}

// Get returns the current unique value.
func (v UniqueView[T]) Get() *T { return v.slot.Get() }

// UniqueViewMut is read-write access to a unique storage.
type UniqueViewMut[T any] struct {
	slot *uniqueSlot[T]
	tick uint64
}

func (UniqueViewMut[T]) describe() AccessDescriptor {
	return AccessDescriptor{TypeID: typeIDOf[T](), TypeName: typeNameOf[T](), Kind: kindUnique, Mutable: true}
}

func (UniqueViewMut[T]) acquire(w *World) (UniqueViewMut[T], func(), error) {
	if !hasUnique[T](w.registry) {
		return UniqueViewMut[T]{}, nil, MissingUniqueError{Type: typeNameOf[T]()}
	}
	slot := uniqueFor[T](w.registry)
	key := borrowKeyFor[T](kindUnique)
	release, err := w.borrows.acquireExclusive(key, componentTypeLabel[T](kindUnique))
	if err != nil {
		return UniqueViewMut[T]{}, nil, err
	}
	return UniqueViewMut[T]{slot: slot, tick: w.currentTick()}, release, nil
}

// GetMut returns a mutable pointer to the unique value and marks it
// modified.
func (v UniqueViewMut[T]) GetMut() *T {
	v.slot.MarkModified(v.tick)
	return v.slot.Get()
}

// Set replaces the unique value outright.
func (v UniqueViewMut[T]) Set(value T) { v.slot.Set(value, v.tick) }

// EntitiesView is read-only access to the entity allocator, for systems
// that only need to enumerate or test liveness (spec §4.6).
type EntitiesView struct {
	alloc *EntityAllocator
}

func (EntitiesView) describe() AccessDescriptor {
	return AccessDescriptor{TypeID: entitiesTypeID, TypeName: "Entities", Kind: kindEntities, Mutable: false}
}

func (EntitiesView) acquire(w *World) (EntitiesView, func(), error) {
	release, err := w.borrows.acquireShared(entitiesBorrowKey, "Entities")
	if err != nil {
		return EntitiesView{}, nil, err
	}
	return EntitiesView{alloc: w.registry.allocator}, release, nil
}

// IsAlive reports whether id is currently live.
func (v EntitiesView) IsAlive(id EntityID) bool { return v.alloc.IsAlive(id) }

// Len returns the number of currently-live entities.
func (v EntitiesView) Len() int { return v.alloc.Len() }

// All yields every currently-live entity.
func (v EntitiesView) All(yield func(EntityID) bool) { v.alloc.All(yield) }

// EntitiesViewMut is read-write access to the entity allocator, allowing
// systems to create and delete entities (spec §4.6).
type EntitiesViewMut struct {
	world *World
}

func (EntitiesViewMut) describe() AccessDescriptor {
	return AccessDescriptor{TypeID: entitiesTypeID, TypeName: "Entities", Kind: kindEntities, Mutable: true}
}

func (EntitiesViewMut) acquire(w *World) (EntitiesViewMut, func(), error) {
	release, err := w.borrows.acquireExclusive(entitiesBorrowKey, "Entities")
	if err != nil {
		return EntitiesViewMut{}, nil, err
	}
	return EntitiesViewMut{world: w}, release, nil
}

// Create allocates a fresh entity handle.
func (v EntitiesViewMut) Create() EntityID { return v.world.registry.allocator.Allocate() }

// Delete deletes id and drops every component it carries.
func (v EntitiesViewMut) Delete(id EntityID) bool {
	return v.world.registry.DeleteEntity(id, v.world.currentTick())
}

// IsAlive reports whether id is currently live.
func (v EntitiesViewMut) IsAlive(id EntityID) bool { return v.world.registry.allocator.IsAlive(id) }

// AllStoragesViewMut grants exclusive access to the entire registry at
// once (spec §4.4/§4.7): structural operations that touch several storages
// together, such as bulk deletes or Clear. It conflicts with every other
// borrow, including another AllStoragesViewMut.
type AllStoragesViewMut struct {
	world *World
}

func (AllStoragesViewMut) describe() AccessDescriptor {
	return AccessDescriptor{TypeID: allStoragesTypeID, TypeName: "AllStorages", Kind: kindAllStorages, Mutable: true}
}

func (AllStoragesViewMut) acquire(w *World) (AllStoragesViewMut, func(), error) {
	release, err := w.borrows.acquireRegistryExclusive()
	if err != nil {
		return AllStoragesViewMut{}, nil, err
	}
	return AllStoragesViewMut{world: w}, release, nil
}

// DeleteEntity deletes id and cascades the drop across every component
// storage.
func (v AllStoragesViewMut) DeleteEntity(id EntityID) bool {
	return v.world.registry.DeleteEntity(id, v.world.currentTick())
}

// Strip removes every component for id, leaving the entity handle alive.
func (v AllStoragesViewMut) Strip(id EntityID) { v.world.registry.Strip(id, v.world.currentTick()) }

// Clear drops every entity and every component.
func (v AllStoragesViewMut) Clear() { v.world.registry.Clear() }

// run1 borrows a single view, runs fn, and releases the borrow afterward,
// regardless of whether fn returns an error (spec §4.7). It does not
// advance the tick — system.go's NewSystem1 calls this directly so a
// workload's single end-of-run Tick() is the only tick a batched system
// triggers; Run1 below is the public, direct-call entry point and ticks
// on its own.
func run1[A accessView[A]](w *World, fn func(A) error) error {
	var zeroA A
	a, release, err := zeroA.acquire(w)
	if err != nil {
		return err
	}
	defer release()
	return fn(a)
}

// Run1 borrows a single view, runs fn, and releases the borrow afterward.
// On success it advances w's tick, the same as a workload batch does at
// the end of RunWorkload, so tracking queries can tell successive direct
// runs apart (spec §4.7; SPEC_FULL.md's tracking supplement).
func Run1[A accessView[A]](w *World, fn func(A) error) error {
	if err := run1(w, fn); err != nil {
		return err
	}
	w.Tick()
	return nil
}

// run2 is run1's two-view counterpart, used internally by NewSystem2.
func run2[A accessView[A], B accessView[B]](w *World, fn func(A, B) error) error {
	var zeroA A
	var zeroB B
	var a A
	var b B
	releases, err := acquireAll([]func() (func(), error){
		func() (func(), error) { var r func(); var e error; a, r, e = zeroA.acquire(w); return r, e },
		func() (func(), error) { var r func(); var e error; b, r, e = zeroB.acquire(w); return r, e },
	})
	if err != nil {
		return err
	}
	defer releaseAll(releases)
	return fn(a, b)
}

// Run2 borrows two views atomically (all-or-nothing) and runs fn.
func Run2[A accessView[A], B accessView[B]](w *World, fn func(A, B) error) error {
	if err := run2(w, fn); err != nil {
		return err
	}
	w.Tick()
	return nil
}

// run3 is run1's three-view counterpart, used internally by NewSystem3.
func run3[A accessView[A], B accessView[B], C accessView[C]](w *World, fn func(A, B, C) error) error {
	var zeroA A
	var zeroB B
	var zeroC C
	var a A
	var b B
	var c C
	releases, err := acquireAll([]func() (func(), error){
		func() (func(), error) { var r func(); var e error; a, r, e = zeroA.acquire(w); return r, e },
		func() (func(), error) { var r func(); var e error; b, r, e = zeroB.acquire(w); return r, e },
		func() (func(), error) { var r func(); var e error; c, r, e = zeroC.acquire(w); return r, e },
	})
	if err != nil {
		return err
	}
	defer releaseAll(releases)
	return fn(a, b, c)
}

// Run3 borrows three views atomically and runs fn.
func Run3[A accessView[A], B accessView[B], C accessView[C]](w *World, fn func(A, B, C) error) error {
	if err := run3(w, fn); err != nil {
		return err
	}
	w.Tick()
	return nil
}

// run4 is run1's four-view counterpart, used internally by NewSystem4.
func run4[A accessView[A], B accessView[B], C accessView[C], D accessView[D]](w *World, fn func(A, B, C, D) error) error {
	var zeroA A
	var zeroB B
	var zeroC C
	var zeroD D
	var a A
	var b B
	var c C
	var d D
	releases, err := acquireAll([]func() (func(), error){
		func() (func(), error) { var r func(); var e error; a, r, e = zeroA.acquire(w); return r, e },
		func() (func(), error) { var r func(); var e error; b, r, e = zeroB.acquire(w); return r, e },
		func() (func(), error) { var r func(); var e error; c, r, e = zeroC.acquire(w); return r, e },
		func() (func(), error) { var r func(); var e error; d, r, e = zeroD.acquire(w); return r, e },
	})
	if err != nil {
		return err
	}
	defer releaseAll(releases)
	return fn(a, b, c, d)
}

// Run4 borrows four views atomically and runs fn.
func Run4[A accessView[A], B accessView[B], C accessView[C], D accessView[D]](w *World, fn func(A, B, C, D) error) error {
	if err := run4(w, fn); err != nil {
		return err
	}
	w.Tick()
	return nil
}
