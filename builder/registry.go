package builder

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/comalice/hfsm"
)

var (
	// ErrUnknownKind is returned when a layout names an unregistered factory.
	ErrUnknownKind = errors.New("unknown kind")
	// ErrDuplicateKind is returned when a kind is registered twice.
	ErrDuplicateKind = errors.New("duplicate kind")
)

// Params are the free-form parameters of a layout node.
type Params map[string]any

// Decode copies p into target, a pointer to a struct with mapstructure tags.
// Strings such as "1.5s" decode into time.Duration fields and numbers may be
// given as strings.
func (p Params) Decode(target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(p)); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}

// Factory builds the leaf state for one layout node.
type Factory func(id string, params Params) (hfsm.State[string], error)

// ActionFactory builds one action attached to a layout node.
type ActionFactory func(params Params) (hfsm.Action[string], error)

// Registry maps kind names to factories.
type Registry struct {
	states  map[string]Factory
	actions map[string]ActionFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		states:  make(map[string]Factory),
		actions: make(map[string]ActionFactory),
	}
}

// Register adds the leaf factory for kind.
func (r *Registry) Register(kind string, f Factory) error {
	if _, ok := r.states[kind]; ok {
		return fmt.Errorf("register state %q: %w", kind, ErrDuplicateKind)
	}
	r.states[kind] = f
	return nil
}

// RegisterAction adds the action factory for kind.
func (r *Registry) RegisterAction(kind string, f ActionFactory) error {
	if _, ok := r.actions[kind]; ok {
		return fmt.Errorf("register action %q: %w", kind, ErrDuplicateKind)
	}
	r.actions[kind] = f
	return nil
}

// Kinds returns the registered leaf kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.states))
	for k := range r.states {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func (r *Registry) state(kind string) (Factory, error) {
	f, ok := r.states[kind]
	if !ok {
		return nil, fmt.Errorf("state kind %q: %w", kind, ErrUnknownKind)
	}
	return f, nil
}

func (r *Registry) action(kind string) (ActionFactory, error) {
	f, ok := r.actions[kind]
	if !ok {
		return nil, fmt.Errorf("action kind %q: %w", kind, ErrUnknownKind)
	}
	return f, nil
}
