package crate

import (
	"reflect"
	"sync"

	"github.com/TheBitDrifter/bark"
)

// TypeID is a stable, process-lifetime identifier for a component, unique,
// or pseudo-storage type. It is assigned in first-registration order and
// reused as the bit index for the scheduler's access masks.
type TypeID uint32

// storageKind distinguishes the namespaces a TypeID can live in, so a type
// used as both a Component and a Unique doesn't collide on a single bit.
type storageKind uint8

const (
	kindComponent storageKind = iota
	kindUnique
	kindEntities
	kindAllStorages
)

// entitiesTypeID is the fixed pseudo-type used by EntitiesView/EntitiesViewMut,
// which don't key off a user type.
const entitiesTypeID TypeID = 0

// allStoragesTypeID is the fixed pseudo-type used by AllStoragesViewMut.
const allStoragesTypeID TypeID = 0

// entitiesBorrowKey is the single borrow-table key every entity-allocator
// mutator (EntitiesViewMut, World.CreateEntity) contends on.
var entitiesBorrowKey = borrowKey{id: entitiesTypeID, kind: kindEntities}

var (
	typeRegistryMu sync.Mutex
	typeRegistry   = map[reflect.Type]TypeID{}
	nextTypeID     TypeID
)

// typeIDOf returns the stable TypeID for T, assigning one on first use.
func typeIDOf[T any]() TypeID {
	rt := reflect.TypeFor[T]()

	typeRegistryMu.Lock()
	defer typeRegistryMu.Unlock()

	if id, ok := typeRegistry[rt]; ok {
		return id
	}
	id := nextTypeID
	if id == ^TypeID(0) {
		// Exhausting a 32-bit space of distinct component types never
		// happens in practice; guard it anyway rather than silently wrap.
		panic(bark.AddTrace(errTypeIDSpaceExhausted))
	}
	nextTypeID++
	typeRegistry[rt] = id
	return id
}

// typeNameOf returns a short, human-readable name for T, used in error
// messages and logs.
func typeNameOf[T any]() string {
	return reflect.TypeFor[T]().String()
}
