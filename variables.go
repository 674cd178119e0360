package hfsm

import (
	"fmt"
	"reflect"
	"sort"
)

// Variables is a machine-scoped registry of shared, typed cells.
// A cell is identified by its value type and key: Resolve[int](v, "hp") and
// Resolve[float64](v, "hp") return independent cells.
//
// Variables is not safe for concurrent use; a machine tree is confined to one
// goroutine.
type Variables struct {
	cells map[any]cell
}

// cellKey is parameterised by T so that the dynamic type of the map key carries
// the value type of the cell.
type cellKey[T comparable] struct {
	key string
}

type cell interface {
	Key() string
	TypeName() string
	Version() uint64
	value() any
}

// NewVariables creates an empty registry.
func NewVariables() *Variables {
	return &Variables{
		cells: make(map[any]cell),
	}
}

// Len returns the number of cells.
func (v *Variables) Len() int {
	return len(v.cells)
}

// Snapshot returns a copy of all cell values keyed by "key(type)".
func (v *Variables) Snapshot() map[string]any {
	snapshot := make(map[string]any, len(v.cells))
	for _, c := range v.cells {
		snapshot[fmt.Sprintf("%s(%s)", c.Key(), c.TypeName())] = c.value()
	}
	return snapshot
}

// Keys returns the sorted "key(type)" names of all cells.
func (v *Variables) Keys() []string {
	keys := make([]string, 0, len(v.cells))
	for _, c := range v.cells {
		keys = append(keys, fmt.Sprintf("%s(%s)", c.Key(), c.TypeName()))
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the cell for (T, key) if it exists.
func Lookup[T comparable](v *Variables, key string) (*Variable[T], bool) {
	if v == nil {
		return nil, false
	}
	c, ok := v.cells[cellKey[T]{key: key}]
	if !ok {
		return nil, false
	}
	return c.(*Variable[T]), true
}

// Resolve returns the cell for (T, key), creating and registering it with the
// zero value on first use.
func Resolve[T comparable](v *Variables, key string) *Variable[T] {
	if existing, ok := Lookup[T](v, key); ok {
		return existing
	}
	created := &Variable[T]{
		key:      key,
		typeName: reflect.TypeOf((*T)(nil)).Elem().String(),
	}
	v.cells[cellKey[T]{key: key}] = created
	return created
}

// Variable is a shared value cell. Writes are gated by equality: assigning the
// current value is a no-op and does not notify watchers.
type Variable[T comparable] struct {
	key      string
	typeName string
	val      T
	version  uint64
	watchers []func(old, new T)
}

// Key returns the cell key.
func (c *Variable[T]) Key() string { return c.key }

// TypeName returns the name of the value type.
func (c *Variable[T]) TypeName() string { return c.typeName }

// Version counts effective writes.
func (c *Variable[T]) Version() uint64 { return c.version }

// Get returns the current value.
func (c *Variable[T]) Get() T { return c.val }

// Set stores value and reports whether it differed from the current one.
// Values that are not equal to themselves, such as NaN, count as equal to
// each other. For an interface T, a dynamic value that is not comparable
// panics like == does.
func (c *Variable[T]) Set(value T) bool {
	if same(c.val, value) {
		return false
	}
	old := c.val
	c.val = value
	c.version++
	for _, fn := range c.watchers {
		fn(old, value)
	}
	return true
}

// Watch registers fn to be called after every effective write.
func (c *Variable[T]) Watch(fn func(old, new T)) {
	if fn != nil {
		c.watchers = append(c.watchers, fn)
	}
}

func (c *Variable[T]) value() any { return c.val }

func same[T comparable](a, b T) bool {
	return a == b || (a != a && b != b)
}
