package crate

import (
	"fmt"
	"sync"

	"github.com/TheBitDrifter/mask"
)

// Workload is a named, built schedule of systems grouped into sequential
// batches (spec §5): systems within a batch run concurrently, batches run
// one after another.
type Workload struct {
	name    string
	batches [][]*System
}

// Name returns the workload's name.
func (wl *Workload) Name() string { return wl.name }

// BatchCount returns how many sequential batches this workload has.
func (wl *Workload) BatchCount() int { return len(wl.batches) }

// WorkloadBuilder accumulates systems and ordering constraints, then
// derives batches via earliest-compatible-batch placement (spec §5),
// mirroring the teacher's own fluent NewXBuilder().With...().Build() shape.
type WorkloadBuilder struct {
	name    string
	systems []*System
}

// NewWorkloadBuilder starts a workload builder named name.
func NewWorkloadBuilder(name string) *WorkloadBuilder {
	return &WorkloadBuilder{name: name}
}

// WithSystems appends systems to the workload, in the order given. Order
// only matters among systems with no ordering constraint between them; it
// breaks ties in otherwise-equivalent placements.
func (b *WorkloadBuilder) WithSystems(systems ...*System) *WorkloadBuilder {
	b.systems = append(b.systems, systems...)
	return b
}

// Include flattens a previously-built Workload's systems into this builder
// (spec §4.8's optional "grouping into nested workloads"). The nested
// workload's own internal batch order is preserved by chaining synthetic
// After constraints from each batch to the next, so Build() can still
// interleave unrelated systems from the parent builder around the group
// without breaking the sequence wl already established.
func (b *WorkloadBuilder) Include(wl *Workload) *WorkloadBuilder {
	var prevBatch []string
	for _, batch := range wl.batches {
		names := make([]string, 0, len(batch))
		for _, sys := range batch {
			if len(prevBatch) > 0 {
				sys.After(prevBatch...)
			}
			b.systems = append(b.systems, sys)
			names = append(names, sys.Name)
		}
		prevBatch = names
	}
	return b
}

type systemMask struct {
	write       mask.Mask
	touch       mask.Mask
	writeBits   []uint32
	touchBits   []uint32
	allStorages bool
}

func maskFor(sys *System) systemMask {
	var sm systemMask
	for _, d := range sys.BorrowInfo {
		if d.Kind == kindAllStorages {
			sm.allStorages = true
			continue
		}
		bit := maskBit(d)
		sm.touch.Mark(bit)
		sm.touchBits = append(sm.touchBits, bit)
		if d.Mutable {
			sm.write.Mark(bit)
			sm.writeBits = append(sm.writeBits, bit)
		}
	}
	return sm
}

// maskBit folds a storage kind and TypeID into one mask.Mark-able bit so
// a component TypeID and a unique TypeID never collide.
func maskBit(d AccessDescriptor) uint32 {
	return uint32(d.Kind)<<28 | uint32(d.TypeID)
}

// conflicts reports whether a and b may not run in the same batch: an
// AllStoragesViewMut conflicts with everything including another one
// (spec §4.7), and otherwise two systems conflict if either one's writes
// intersect the other's touches.
func conflicts(a, b systemMask) bool {
	if a.allStorages || b.allStorages {
		return true
	}
	return a.write.ContainsAny(b.touch) || b.write.ContainsAny(a.touch)
}

// Build derives the batch schedule. It fails if two systems share a name,
// if an after/before constraint names an unknown system, or if the
// constraints form a cycle (spec §7, kind 6).
func (b *WorkloadBuilder) Build() (*Workload, error) {
	index := make(map[string]int, len(b.systems))
	for i, sys := range b.systems {
		if _, dup := index[sys.Name]; dup {
			return nil, WorkloadBuildError{Workload: b.name, Reason: fmt.Sprintf("duplicate system name %q", sys.Name)}
		}
		index[sys.Name] = i
	}

	// byTag lets an after/before constraint name a tag instead of a single
	// system (spec §4.8's "tagged-with" ordering constraint): every system
	// carrying that tag is bound, not just one.
	byTag := make(map[string][]int)
	for i, sys := range b.systems {
		for _, t := range sys.tags {
			byTag[t] = append(byTag[t], i)
		}
	}
	resolve := func(name string, self int) ([]int, bool) {
		if j, ok := index[name]; ok {
			return []int{j}, true
		}
		idxs, ok := byTag[name]
		if !ok {
			return nil, false
		}
		out := idxs[:0:0]
		for _, j := range idxs {
			if j != self {
				out = append(out, j)
			}
		}
		return out, true
	}

	// before[u] -> v becomes an edge u->v ("u must be scheduled before v"),
	// alongside direct after[v] -> u edges ("v must be scheduled after u").
	deps := make([][]int, len(b.systems)) // deps[i] = systems that must precede i
	for i, sys := range b.systems {
		for _, name := range sys.after {
			js, ok := resolve(name, i)
			if !ok {
				return nil, WorkloadBuildError{Workload: b.name, Reason: fmt.Sprintf("system %q declares after unknown system or tag %q", sys.Name, name)}
			}
			deps[i] = append(deps[i], js...)
		}
	}
	for i, sys := range b.systems {
		for _, name := range sys.before {
			js, ok := resolve(name, i)
			if !ok {
				return nil, WorkloadBuildError{Workload: b.name, Reason: fmt.Sprintf("system %q declares before unknown system or tag %q", sys.Name, name)}
			}
			for _, j := range js {
				deps[j] = append(deps[j], i)
			}
		}
	}

	order, err := topoOrder(deps)
	if err != nil {
		return nil, WorkloadBuildError{Workload: b.name, Reason: err.Error()}
	}

	masks := make([]systemMask, len(b.systems))
	for i, sys := range b.systems {
		masks[i] = maskFor(sys)
	}

	minBatch := make([]int, len(b.systems))
	var batches [][]*System
	var batchMasks []systemMask

	for _, i := range order {
		lo := 0
		for _, d := range deps[i] {
			if minBatch[d]+1 > lo {
				lo = minBatch[d] + 1
			}
		}
		placed := -1
		for bi := lo; bi < len(batches); bi++ {
			if !anyConflict(masks[i], batchMasks[bi]) {
				placed = bi
				break
			}
		}
		if placed == -1 {
			batches = append(batches, nil)
			batchMasks = append(batchMasks, systemMask{})
			placed = len(batches) - 1
		}
		batches[placed] = append(batches[placed], b.systems[i])
		batchMasks[placed] = mergeMask(batchMasks[placed], masks[i])
		minBatch[i] = placed
	}

	return &Workload{name: b.name, batches: batches}, nil
}

func anyConflict(sm systemMask, batch systemMask) bool {
	return conflicts(sm, batch)
}

// mergeMask folds b's bits into a by re-marking them (mask.Mask exposes
// Mark/ContainsAny/ContainsAll/ContainsNone, not a set-union operation, so
// merging is done one bit at a time from the original descriptor bits).
func mergeMask(a, b systemMask) systemMask {
	for _, bit := range b.touchBits {
		a.touch.Mark(bit)
		a.touchBits = append(a.touchBits, bit)
	}
	for _, bit := range b.writeBits {
		a.write.Mark(bit)
		a.writeBits = append(a.writeBits, bit)
	}
	a.allStorages = a.allStorages || b.allStorages
	return a
}

// topoOrder returns an index order consistent with deps[i] = predecessors
// of i, or an error if the graph has a cycle.
func topoOrder(deps [][]int) ([]int, error) {
	n := len(deps)
	visited := make([]uint8, n) // 0 unvisited, 1 in-progress, 2 done
	order := make([]int, 0, n)

	var visit func(i int) error
	visit = func(i int) error {
		switch visited[i] {
		case 2:
			return nil
		case 1:
			return fmt.Errorf("cycle in system ordering constraints")
		}
		visited[i] = 1
		for _, d := range deps[i] {
			if err := visit(d); err != nil {
				return err
			}
		}
		visited[i] = 2
		order = append(order, i)
		return nil
	}

	for i := 0; i < n; i++ {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Run executes the workload's batches in sequence: every system in a
// batch runs concurrently, the next batch waits for the current one to
// finish entirely (spec §5). A system's error is wrapped in a SystemError
// identifying it; the first batch with any failing system still runs all
// of its systems, then stops the workload and returns the first failure
// of that batch (pinned systems first, then the rest in declaration order).
func (wl *Workload) Run(w *World) error {
	for bi, batch := range wl.batches {
		pinned, pooled := partitionByAffinity(w, batch)
		Logger.Debug().Str("workload", wl.name).Int("batch", bi).Int("systems", len(batch)).Msg("batch start")
		var batchErr error

		// Pinned systems always run on the initiator goroutine, in
		// declaration order, before the rest of the batch is dispatched
		// (spec §5: "any system touching a pinned storage is executed on
		// the workload's initiator thread ... it runs in its batch but
		// not in parallel with peers that would otherwise require the
		// same thread").
		for _, sys := range pinned {
			var err error
			wl.runOne(w, sys, &err)
			if err != nil && batchErr == nil {
				batchErr = err
			}
		}

		if len(pooled) == 1 {
			var err error
			wl.runOne(w, pooled[0], &err)
			if batchErr == nil {
				batchErr = err
			}
		} else if len(pooled) > 1 {
			var wg sync.WaitGroup
			errs := make([]error, len(pooled))
			wg.Add(len(pooled))

			var sem chan struct{}
			if n := Config.WorkerPoolSize(); n > 0 {
				sem = make(chan struct{}, n)
			}

			for i, sys := range pooled {
				go func(i int, sys *System) {
					defer wg.Done()
					if sem != nil {
						sem <- struct{}{}
						defer func() { <-sem }()
					}
					defer func() {
						if r := recover(); r != nil {
							errs[i] = SystemError{Workload: wl.name, System: sys.Name, Err: fmt.Errorf("panic: %v", r)}
						}
					}()
					wl.runOne(w, sys, &errs[i])
				}(i, sys)
			}
			wg.Wait()

			for _, err := range errs {
				if err != nil && batchErr == nil {
					batchErr = err
				}
			}
		}

		if batchErr != nil {
			Logger.Debug().Str("workload", wl.name).Int("batch", bi).Err(batchErr).Msg("batch failed; workload stopped")
			return batchErr
		}
		Logger.Debug().Str("workload", wl.name).Int("batch", bi).Msg("batch done")
	}
	w.Tick()
	return nil
}

// partitionByAffinity splits batch into systems that must run on the
// initiator goroutine (pinned) and everything else (pooled), preserving
// declaration order in both groups.
func partitionByAffinity(w *World, batch []*System) (pinned, pooled []*System) {
	for _, sys := range batch {
		if systemIsPinned(w, sys) {
			pinned = append(pinned, sys)
		} else {
			pooled = append(pooled, sys)
		}
	}
	return pinned, pooled
}

// systemIsPinned reports whether sys declares a view over any component
// storage marked pinned via SetThreadAffinity.
func systemIsPinned(w *World, sys *System) bool {
	for _, d := range sys.BorrowInfo {
		if d.Kind == kindComponent && w.registry.isPinned(d.TypeID) {
			return true
		}
	}
	return false
}

// runOne executes sys, wrapping any error as a SystemError and invoking
// Config's SystemHooks around the call, if installed.
func (wl *Workload) runOne(w *World, sys *System, out *error) {
	if Config.hooks.BeforeSystem != nil {
		Config.hooks.BeforeSystem(wl.name, sys.Name)
	}
	err := sys.run(w)
	if err != nil {
		err = SystemError{Workload: wl.name, System: sys.Name, Err: err}
	}
	if Config.hooks.AfterSystem != nil {
		Config.hooks.AfterSystem(wl.name, sys.Name, err)
	}
	*out = err
}
