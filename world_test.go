package crate

import "testing"

type worldPosition struct{ X int }

func TestWorldAddGetRemoveComponent(t *testing.T) {
	w := NewWorld()
	e, _ := w.CreateEntity()

	if err := AddComponent(w, e, worldPosition{X: 1}); err != nil {
		t.Fatalf("AddComponent failed: %v", err)
	}

	got, err := GetComponent[worldPosition](w, e)
	if err != nil || got.X != 1 {
		t.Fatalf("GetComponent = (%v, %v), want (worldPosition{1}, nil)", got, err)
	}

	removed, ok, err := RemoveComponent[worldPosition](w, e)
	if !ok || removed.X != 1 || err != nil {
		t.Fatalf("RemoveComponent = (%v, %v, %v), want (worldPosition{1}, true, nil)", removed, ok, err)
	}

	if _, err := GetComponent[worldPosition](w, e); err == nil {
		t.Fatalf("expected MissingComponentError after removal")
	}
}

func TestWorldAddComponentOnDeadEntity(t *testing.T) {
	w := NewWorld()
	e, _ := w.CreateEntity()
	w.DeleteEntity(e)

	err := AddComponent(w, e, worldPosition{X: 1})
	if _, ok := err.(DeadEntityError); !ok {
		t.Fatalf("expected DeadEntityError, got %v", err)
	}
}

func TestWorldGetComponentOnDeadEntity(t *testing.T) {
	w := NewWorld()
	e, _ := w.CreateEntity()
	AddComponent(w, e, worldPosition{X: 1})
	w.DeleteEntity(e)

	_, err := GetComponent[worldPosition](w, e)
	if _, ok := err.(DeadEntityError); !ok {
		t.Fatalf("expected DeadEntityError, got %v", err)
	}
}

func TestWorldDeleteEntityDropsComponents(t *testing.T) {
	w := NewWorld()
	e, _ := w.CreateEntity()
	AddComponent(w, e, worldPosition{X: 1})

	ok, err := w.DeleteEntity(e)
	if !ok || err != nil {
		t.Fatalf("DeleteEntity should succeed on a live entity, got (%v, %v)", ok, err)
	}
	if w.IsAlive(e) {
		t.Fatalf("entity should be dead")
	}
}

func TestWorldUniqueLifecycle(t *testing.T) {
	w := NewWorld()

	type Settings struct{ Volume int }
	AddUnique(w, Settings{Volume: 5})

	var got Settings
	Run1(w, func(v UniqueView[Settings]) error {
		got = *v.Get()
		return nil
	})
	if got.Volume != 5 {
		t.Fatalf("Volume = %d, want 5", got.Volume)
	}

	RemoveUnique[Settings](w)
	if err := Run1(w, func(v UniqueView[Settings]) error { return nil }); err == nil {
		t.Fatalf("expected MissingUniqueError after RemoveUnique")
	}
}

func TestMustGetComponentPanicsOnMissing(t *testing.T) {
	w := NewWorld()
	e, _ := w.CreateEntity()

	defer func() {
		if recover() == nil {
			t.Fatalf("MustGetComponent should panic for a missing component")
		}
	}()
	MustGetComponent[worldPosition](w, e)
}

func TestWorldRunWorkloadUnknownName(t *testing.T) {
	w := NewWorld()
	err := w.RunWorkload("nope")
	if _, ok := err.(UnknownWorkloadError); !ok {
		t.Fatalf("expected UnknownWorkloadError, got %v", err)
	}
}
