package component

import ferrors "github.com/finam-ufz/finam/errors"

// IOList is a name-indexed collection of either Outputs or Inputs, owned by
// a component. It starts open for Add calls during initialization and is
// frozen by Component once initialization completes, matching the
// teacher's pattern of a mutable builder phase followed by an immutable
// runtime phase.
type IOList[T any] struct {
	name   string
	order  []string
	byName map[string]T
	frozen bool
}

// NewIOList creates an empty, unfrozen list. name is used only in error
// messages ("inputs" or "outputs").
func NewIOList[T any](name string) *IOList[T] {
	return &IOList[T]{name: name, byName: map[string]T{}}
}

// Add registers slot under name. Adding after Freeze, or adding a name
// already present, is a SetupError.
func (l *IOList[T]) Add(name string, slot T) error {
	if l.frozen {
		return ferrors.Newf(ferrors.SetupError, l.name, "Add", "%s list is frozen; %q cannot be added after initialization", l.name, name)
	}
	if _, exists := l.byName[name]; exists {
		return ferrors.Newf(ferrors.SetupError, l.name, "Add", "%s %q already exists", l.name, name)
	}
	l.byName[name] = slot
	l.order = append(l.order, name)
	return nil
}

// Freeze forbids further Add calls. Component calls this once hosted
// initialization returns.
func (l *IOList[T]) Freeze() { l.frozen = true }

// Get returns the slot registered under name and whether it exists.
func (l *IOList[T]) Get(name string) (T, bool) {
	v, ok := l.byName[name]
	return v, ok
}

// Names returns slot names in registration order.
func (l *IOList[T]) Names() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Len returns the number of registered slots.
func (l *IOList[T]) Len() int { return len(l.order) }

// Each calls fn for every slot in registration order.
func (l *IOList[T]) Each(fn func(name string, slot T)) {
	for _, name := range l.order {
		fn(name, l.byName[name])
	}
}
