package crate

import "testing"

type viewHealth struct{ HP int }
type viewMana struct{ MP int }

func TestRun1BorrowsAndReleases(t *testing.T) {
	w := NewWorld()
	e, _ := w.CreateEntity()
	AddComponent(w, e, viewHealth{HP: 10})

	err := Run1(w, func(v ViewMut[viewHealth]) error {
		hp, gerr := v.GetMut(e, w.registry.allocator)
		if gerr != nil {
			return gerr
		}
		hp.HP += 5
		return nil
	})
	if err != nil {
		t.Fatalf("Run1 returned error: %v", err)
	}

	got, _ := GetComponent[viewHealth](w, e)
	if got.HP != 15 {
		t.Fatalf("HP = %d, want 15", got.HP)
	}

	// The borrow must have been released: a second Run1 should succeed.
	if err := Run1(w, func(v View[viewHealth]) error { return nil }); err != nil {
		t.Fatalf("borrow was not released after Run1 returned: %v", err)
	}
}

func TestRun2ConflictingWritesFail(t *testing.T) {
	w := NewWorld()
	e, _ := w.CreateEntity()
	AddComponent(w, e, viewHealth{HP: 1})

	release, err := w.borrows.acquireExclusive(borrowKeyFor[viewHealth](kindComponent), "viewHealth")
	if err != nil {
		t.Fatalf("setup exclusive borrow failed: %v", err)
	}
	defer release()

	err = Run2(w, func(v ViewMut[viewHealth], m View[viewMana]) error { return nil })
	if err == nil {
		t.Fatalf("expected a BorrowConflictError while the storage is already exclusively held")
	}
	if _, ok := err.(BorrowConflictError); !ok {
		t.Fatalf("expected BorrowConflictError, got %T", err)
	}
}

func TestRun2AllOrNothingReleasesOnPartialFailure(t *testing.T) {
	w := NewWorld()
	e, _ := w.CreateEntity()
	AddComponent(w, e, viewHealth{HP: 1})

	releaseMana, err := w.borrows.acquireExclusive(borrowKeyFor[viewMana](kindComponent), "viewMana")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	defer releaseMana()

	err = Run2(w, func(hp ViewMut[viewHealth], mp ViewMut[viewMana]) error { return nil })
	if err == nil {
		t.Fatalf("expected failure acquiring the already-held viewMana storage")
	}

	// viewHealth should have been released when the second acquisition failed.
	if err := Run1(w, func(v ViewMut[viewHealth]) error { return nil }); err != nil {
		t.Fatalf("viewHealth borrow from the failed Run2 was not released: %v", err)
	}
}

func TestUniqueViewMissingReturnsError(t *testing.T) {
	w := NewWorld()

	err := Run1(w, func(v UniqueView[viewHealth]) error { return nil })
	if err == nil {
		t.Fatalf("expected MissingUniqueError for a unique that was never added")
	}
	if _, ok := err.(MissingUniqueError); !ok {
		t.Fatalf("expected MissingUniqueError, got %T", err)
	}
}

func TestUniqueViewMutRoundTrip(t *testing.T) {
	w := NewWorld()
	AddUnique(w, viewHealth{HP: 3})

	err := Run1(w, func(v UniqueViewMut[viewHealth]) error {
		v.GetMut().HP = 42
		return nil
	})
	if err != nil {
		t.Fatalf("Run1 failed: %v", err)
	}

	err = Run1(w, func(v UniqueView[viewHealth]) error {
		if v.Get().HP != 42 {
			t.Fatalf("unique value not updated, got %d", v.Get().HP)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run1 failed: %v", err)
	}
}

func TestRun1AdvancesTickExactlyOnce(t *testing.T) {
	w := NewWorld()
	before := w.currentTick()

	if err := Run1(w, func(v View[viewHealth]) error { return nil }); err != nil {
		t.Fatalf("Run1 failed: %v", err)
	}
	if got := w.currentTick(); got != before+1 {
		t.Fatalf("tick = %d, want %d after one Run1 call", got, before+1)
	}

	if err := Run1(w, func(v View[viewHealth]) error { return nil }); err != nil {
		t.Fatalf("Run1 failed: %v", err)
	}
	if got := w.currentTick(); got != before+2 {
		t.Fatalf("tick = %d, want %d after two Run1 calls", got, before+2)
	}
}

func TestAllStoragesViewMutConflictsWithEverything(t *testing.T) {
	w := NewWorld()
	e, _ := w.CreateEntity()
	AddComponent(w, e, viewHealth{HP: 1})

	release, err := w.borrows.acquireShared(borrowKeyFor[viewHealth](kindComponent), "viewHealth")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	defer release()

	err = Run1(w, func(v AllStoragesViewMut) error { return nil })
	if err == nil {
		t.Fatalf("AllStoragesViewMut should conflict with any live storage borrow")
	}
}
