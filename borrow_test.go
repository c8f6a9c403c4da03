package crate

import "testing"

func TestBorrowTableSharedSharedOK(t *testing.T) {
	bt := newBorrowTable()
	key := borrowKey{id: 1, kind: kindComponent}

	r1, err := bt.acquireShared(key, "T")
	if err != nil {
		t.Fatalf("first shared borrow failed: %v", err)
	}
	r2, err := bt.acquireShared(key, "T")
	if err != nil {
		t.Fatalf("second concurrent shared borrow should succeed: %v", err)
	}
	r1()
	r2()
}

func TestBorrowTableExclusiveBlocksShared(t *testing.T) {
	bt := newBorrowTable()
	key := borrowKey{id: 1, kind: kindComponent}

	release, err := bt.acquireExclusive(key, "T")
	if err != nil {
		t.Fatalf("exclusive borrow failed: %v", err)
	}

	if _, err := bt.acquireShared(key, "T"); err == nil {
		t.Fatalf("shared borrow should conflict with a live exclusive borrow")
	}
	if _, err := bt.acquireExclusive(key, "T"); err == nil {
		t.Fatalf("a second exclusive borrow should conflict")
	}

	release()

	if _, err := bt.acquireShared(key, "T"); err != nil {
		t.Fatalf("shared borrow should succeed after release: %v", err)
	}
}

func TestBorrowTableSharedBlocksExclusive(t *testing.T) {
	bt := newBorrowTable()
	key := borrowKey{id: 1, kind: kindComponent}

	release, err := bt.acquireShared(key, "T")
	if err != nil {
		t.Fatalf("shared borrow failed: %v", err)
	}

	if _, err := bt.acquireExclusive(key, "T"); err == nil {
		t.Fatalf("exclusive borrow should conflict with a live shared borrow")
	}

	release()

	if _, err := bt.acquireExclusive(key, "T"); err != nil {
		t.Fatalf("exclusive borrow should succeed after the shared borrow releases: %v", err)
	}
}

func TestBorrowTableRegistryExclusiveConflictsWithEverything(t *testing.T) {
	bt := newBorrowTable()
	key := borrowKey{id: 1, kind: kindComponent}

	release, err := bt.acquireRegistryExclusive()
	if err != nil {
		t.Fatalf("registry exclusive borrow failed: %v", err)
	}

	if _, err := bt.acquireShared(key, "T"); err == nil {
		t.Fatalf("a storage borrow should conflict while the registry is exclusively held")
	}
	if _, err := bt.acquireRegistryExclusive(); err == nil {
		t.Fatalf("a second registry exclusive borrow should conflict with the first")
	}

	release()

	if _, err := bt.acquireShared(key, "T"); err != nil {
		t.Fatalf("storage borrow should succeed once the registry borrow releases: %v", err)
	}
}

func TestBorrowTableStorageBorrowBlocksRegistryExclusive(t *testing.T) {
	bt := newBorrowTable()
	key := borrowKey{id: 1, kind: kindComponent}

	release, err := bt.acquireShared(key, "T")
	if err != nil {
		t.Fatalf("shared borrow failed: %v", err)
	}

	if _, err := bt.acquireRegistryExclusive(); err == nil {
		t.Fatalf("registry exclusive should conflict with any live storage borrow")
	}

	release()

	if _, err := bt.acquireRegistryExclusive(); err != nil {
		t.Fatalf("registry exclusive should succeed once the storage borrow releases: %v", err)
	}
}

func TestAcquireAllReleasesInReverseOrderOnFailure(t *testing.T) {
	var order []int
	ok := func(n int) func() (func(), error) {
		return func() (func(), error) {
			return func() { order = append(order, n) }, nil
		}
	}
	fail := func() (func(), error) {
		return nil, BorrowConflictError{Type: "X", Reason: "boom"}
	}

	_, err := acquireAll([]func() (func(), error){ok(1), ok(2), fail})
	if err == nil {
		t.Fatalf("expected a BorrowConflictError")
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("releases should run in reverse acquisition order, got %v", order)
	}
}
