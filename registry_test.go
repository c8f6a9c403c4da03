package crate

import "testing"

func TestStorageForCreatesOnceAndReusesAfter(t *testing.T) {
	as := newAllStorages(NewEntityAllocator())

	s1 := storageFor[int](as)
	s2 := storageFor[int](as)

	if s1 != s2 {
		t.Fatalf("storageFor should return the same storage on repeated calls")
	}
}

func TestStorageForIsPerTypeDistinct(t *testing.T) {
	as := newAllStorages(NewEntityAllocator())

	ints := storageFor[int](as)
	strs := storageFor[string](as)

	ints.Insert(packEntityID(0, 0), 5, 1)
	strs.Insert(packEntityID(0, 0), "hi", 1)

	if ints.Len() != 1 || strs.Len() != 1 {
		t.Fatalf("int and string storages should be independent")
	}
}

func TestUniqueForIsSeparateFromComponentStorage(t *testing.T) {
	as := newAllStorages(NewEntityAllocator())

	type Marker struct{ N int }

	storageFor[Marker](as).Insert(packEntityID(0, 0), Marker{N: 1}, 1)
	if hasUnique[Marker](as) {
		t.Fatalf("a component insert must not be visible as a unique")
	}

	uniqueFor[Marker](as).Set(Marker{N: 2}, 1)
	if !hasUnique[Marker](as) {
		t.Fatalf("unique should be present after Set")
	}
	if got := uniqueFor[Marker](as).Get().N; got != 2 {
		t.Fatalf("unique value = %d, want 2", got)
	}
	if got := storageFor[Marker](as).Get(packEntityID(0, 0)); got.N != 1 {
		t.Fatalf("component storage should be untouched by the unique write")
	}
}

func TestDeleteEntityCascadesAcrossComponentStorages(t *testing.T) {
	alloc := NewEntityAllocator()
	as := newAllStorages(alloc)

	e := alloc.Allocate()
	storageFor[int](as).Insert(e, 1, 1)
	storageFor[string](as).Insert(e, "x", 1)

	if !as.DeleteEntity(e, 2) {
		t.Fatalf("DeleteEntity should succeed for a live entity")
	}
	if alloc.IsAlive(e) {
		t.Fatalf("entity should be dead after DeleteEntity")
	}
	if storageFor[int](as).Contains(e) || storageFor[string](as).Contains(e) {
		t.Fatalf("every component storage should have dropped the entity")
	}
}

func TestStripLeavesEntityAlive(t *testing.T) {
	alloc := NewEntityAllocator()
	as := newAllStorages(alloc)

	e := alloc.Allocate()
	storageFor[int](as).Insert(e, 1, 1)

	as.Strip(e, 2)

	if !alloc.IsAlive(e) {
		t.Fatalf("Strip must not delete the entity handle")
	}
	if storageFor[int](as).Contains(e) {
		t.Fatalf("Strip should have removed the component")
	}
}

func TestClearDropsEverything(t *testing.T) {
	alloc := NewEntityAllocator()
	as := newAllStorages(alloc)

	e := alloc.Allocate()
	storageFor[int](as).Insert(e, 1, 1)
	uniqueFor[int](as).Set(9, 1)

	as.Clear()

	if alloc.IsAlive(e) {
		t.Fatalf("Clear should drop every entity")
	}
	if storageFor[int](as).Len() != 0 {
		t.Fatalf("Clear should empty every component storage")
	}
	if hasUnique[int](as) {
		t.Fatalf("Clear should drop every unique")
	}
}
