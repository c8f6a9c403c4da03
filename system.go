package crate

// System is one unit of scheduled work: a name, the borrows it needs
// (derived mechanically from its declared views, never hand-written, per
// spec §4.7), the function that runs it, and the ordering constraints a
// workload builder uses to place it into batches (spec §5).
type System struct {
	Name       string
	BorrowInfo []AccessDescriptor

	run func(*World) error

	after []string
	before []string
	tags   []string
}

// After declares that this system must run in a later batch than the named
// system(s) or tag(s) (spec §5).
func (s *System) After(names ...string) *System {
	s.after = append(s.after, names...)
	return s
}

// Before declares that this system must run in an earlier batch than the
// named system(s) or tag(s).
func (s *System) Before(names ...string) *System {
	s.before = append(s.before, names...)
	return s
}

// Tag attaches arbitrary labels to a system, for workloads that group by
// tag rather than by name.
func (s *System) Tag(tags ...string) *System {
	s.tags = append(s.tags, tags...)
	return s
}

// NewSystem1 builds a System over a single declared view. The view's
// zero value describes its own borrow without acquiring anything, which
// is how BorrowInfo is derived without running fn.
func NewSystem1[A accessView[A]](name string, fn func(*World, A) error) *System {
	var zeroA A
	return &System{
		Name:       name,
		BorrowInfo: []AccessDescriptor{zeroA.describe()},
		run: func(w *World) error {
			return run1(w, func(a A) error { return fn(w, a) })
		},
	}
}

// NewSystem2 builds a System over two declared views.
func NewSystem2[A accessView[A], B accessView[B]](name string, fn func(*World, A, B) error) *System {
	var zeroA A
	var zeroB B
	return &System{
		Name:       name,
		BorrowInfo: []AccessDescriptor{zeroA.describe(), zeroB.describe()},
		run: func(w *World) error {
			return run2(w, func(a A, b B) error { return fn(w, a, b) })
		},
	}
}

// NewSystem3 builds a System over three declared views.
func NewSystem3[A accessView[A], B accessView[B], C accessView[C]](name string, fn func(*World, A, B, C) error) *System {
	var zeroA A
	var zeroB B
	var zeroC C
	return &System{
		Name:       name,
		BorrowInfo: []AccessDescriptor{zeroA.describe(), zeroB.describe(), zeroC.describe()},
		run: func(w *World) error {
			return run3(w, func(a A, b B, c C) error { return fn(w, a, b, c) })
		},
	}
}

// NewSystem4 builds a System over four declared views.
func NewSystem4[A accessView[A], B accessView[B], C accessView[C], D accessView[D]](name string, fn func(*World, A, B, C, D) error) *System {
	var zeroA A
	var zeroB B
	var zeroC C
	var zeroD D
	return &System{
		Name:       name,
		BorrowInfo: []AccessDescriptor{zeroA.describe(), zeroB.describe(), zeroC.describe(), zeroD.describe()},
		run: func(w *World) error {
			return run4(w, func(a A, b B, c C, d D) error { return fn(w, a, b, c, d) })
		},
	}
}
