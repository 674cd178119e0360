package hfsm

// FieldSlot is a declared, bindable field. Field[T] is the only implementation.
type FieldSlot interface {
	Key() string
	Bound() bool
	bind(vars *Variables)
}

// FieldDeclarer is implemented by states and actions that want shared
// variables. The machine binds every returned slot to its Variables before the
// node's Initialize hook runs.
type FieldDeclarer interface {
	Fields() []FieldSlot
}

// Field is a non-owning reference from a state or action to a shared
// Variable. An unbound field reads as the zero value and ignores writes.
type Field[T comparable] struct {
	key  string
	cell *Variable[T]
}

// NewField declares a field for key.
func NewField[T comparable](key string) *Field[T] {
	return &Field[T]{key: key}
}

// Key returns the field key.
func (f *Field[T]) Key() string { return f.key }

// Bound reports whether the field references a cell.
func (f *Field[T]) Bound() bool { return f.cell != nil }

// Variable returns the bound cell or nil.
func (f *Field[T]) Variable() *Variable[T] { return f.cell }

// Get returns the cell value, or the zero value while unbound.
func (f *Field[T]) Get() T {
	if f.cell == nil {
		var zero T
		return zero
	}
	return f.cell.Get()
}

// Set writes through to the cell and reports whether the value changed.
func (f *Field[T]) Set(value T) bool {
	if f.cell == nil {
		return false
	}
	return f.cell.Set(value)
}

func (f *Field[T]) bind(vars *Variables) {
	f.cell = Resolve[T](vars, f.key)
}
