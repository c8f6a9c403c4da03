package crate

import (
	"errors"
	"fmt"
)

// errTypeIDSpaceExhausted guards an unreachable condition (see typeid.go);
// it is never expected to surface to a caller.
var errTypeIDSpaceExhausted = errors.New("crate: type id space exhausted")

// DeadEntityError reports an operation attempted against an EntityID whose
// generation no longer matches the allocator's record (spec §7, kind 1).
type DeadEntityError struct {
	Entity EntityID
}

func (e DeadEntityError) Error() string {
	return fmt.Sprintf("crate: entity %v is dead", e.Entity)
}

// MissingComponentError reports a Get against an entity that does not carry
// the requested component (spec §7, kind 2).
type MissingComponentError struct {
	Entity EntityID
	Type   string
}

func (e MissingComponentError) Error() string {
	return fmt.Sprintf("crate: entity %v has no component %s", e.Entity, e.Type)
}

// BorrowConflictError reports a runtime borrow that would violate the
// shared/exclusive discipline of the borrow table (spec §7, kind 3).
type BorrowConflictError struct {
	Type   string
	Reason string
}

func (e BorrowConflictError) Error() string {
	return fmt.Sprintf("crate: borrow conflict on %s: %s", e.Type, e.Reason)
}

// MissingUniqueError reports a unique view borrowed before any value was
// installed via AddUnique (spec §7, kind 4).
type MissingUniqueError struct {
	Type string
}

func (e MissingUniqueError) Error() string {
	return fmt.Sprintf("crate: unique %s was never added", e.Type)
}

// UnknownWorkloadError reports RunWorkload called with a name that was
// never built (spec §7, kind 5).
type UnknownWorkloadError struct {
	Name string
}

func (e UnknownWorkloadError) Error() string {
	return fmt.Sprintf("crate: workload %q was not built", e.Name)
}

// WorkloadBuildError reports an impossible ordering constraint or a
// duplicated workload name at build time (spec §7, kind 6).
type WorkloadBuildError struct {
	Workload string
	Reason   string
}

func (e WorkloadBuildError) Error() string {
	return fmt.Sprintf("crate: workload %q failed to build: %s", e.Workload, e.Reason)
}

// SystemError wraps an error returned by a user system, identifying which
// system produced it so a workload failure is attributable (spec §7,
// kind 7).
type SystemError struct {
	Workload string
	System   string
	Err      error
}

func (e SystemError) Error() string {
	return fmt.Sprintf("crate: system %q in workload %q failed: %v", e.System, e.Workload, e.Err)
}

func (e SystemError) Unwrap() error {
	return e.Err
}

// LockedStorageError reports an operation refused because the target
// storage is exclusively held elsewhere and the caller did not go through
// the borrow table (mirrors the teacher's own locked-storage discipline).
type LockedStorageError struct {
	Type string
}

func (e LockedStorageError) Error() string {
	return fmt.Sprintf("crate: storage %s is locked", e.Type)
}
