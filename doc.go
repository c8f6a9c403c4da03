/*
Package crate is an Entity-Component-System core for games and simulations.

Crate stores components in per-type sparse sets rather than archetypes:
each component type owns its own sparse/dense/data triple, entities are
generational handles, and a query walks the smallest matching storage
rather than a table keyed by a full component signature. This favors
cheap single-component add/remove over archetype-table cache locality.

Core Concepts:

  - EntityID: a generational handle, opaque and cheap to copy.
  - Component storage: a sparseSet[T] per type, created lazily on first
    use.
  - Join: a With/Without builder over component types, walked via a
    Cursor.
  - View / ViewMut: borrowed, type-safe access to one storage.
  - System / Workload: systems declare their views up front so a workload
    can batch non-conflicting systems to run concurrently.

Basic Usage:

	w := crate.NewWorld()

	type Position struct{ X, Y float64 }
	type Velocity struct{ X, Y float64 }

	e, _ := w.CreateEntity()
	crate.AddComponent(w, e, Position{})
	crate.AddComponent(w, e, Velocity{X: 1})

	crate.Run2(w, func(pos crate.ViewMut[Position], vel crate.View[Velocity]) error {
		j := w.Join()
		crate.With[Position](j)
		crate.With[Velocity](j)
		c := j.Cursor()
		for c.Next() {
			p := crate.GetFromCursorMut[Position](j, c)
			v := crate.GetFromCursor[Velocity](j, c)
			p.X += v.X
			p.Y += v.Y
		}
		return nil
	})
*/
package crate
