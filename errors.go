package hfsm

import "errors"

// Sentinel errors reported by machines and the variable binder.
// All of them except ErrTransitionLoop degrade to a no-op for the operation
// that triggered them.
var (
	// ErrDuplicateStateID is reported when AddState receives an identifier
	// that is already registered in the machine.
	ErrDuplicateStateID = errors.New("duplicate state id")
	// ErrNilState is reported when AddState receives a nil state.
	ErrNilState = errors.New("nil state")
	// ErrUnknownStateID is reported when the current or requested state is not
	// registered in the machine.
	ErrUnknownStateID = errors.New("unknown state id")
	// ErrNotInitialized is reported when Update is called before Initialize.
	ErrNotInitialized = errors.New("machine not initialized")
	// ErrNilOwner is reported when a node or field is bound without an owning
	// machine.
	ErrNilOwner = errors.New("nil owner")
	// ErrNilField is reported when a field declaration list contains nil.
	ErrNilField = errors.New("nil field")
	// ErrAlreadyInitialized is reported when Initialize runs twice or when a
	// node is attached after its initialization.
	ErrAlreadyInitialized = errors.New("already initialized")
	// ErrTransitionLoop is fatal: the resolver exceeded the configured hop
	// budget and the machine stops resolving.
	ErrTransitionLoop = errors.New("transition loop")
)

// errorKind maps err to a short label used by metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrTransitionLoop):
		return "transition_loop"
	case errors.Is(err, ErrDuplicateStateID):
		return "duplicate_state_id"
	case errors.Is(err, ErrNilState):
		return "nil_state"
	case errors.Is(err, ErrUnknownStateID):
		return "unknown_state_id"
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, ErrNilOwner):
		return "nil_owner"
	case errors.Is(err, ErrNilField):
		return "nil_field"
	case errors.Is(err, ErrAlreadyInitialized):
		return "already_initialized"
	default:
		return "hook"
	}
}

// IsFatal reports whether err carries ErrTransitionLoop.
func IsFatal(err error) bool {
	return errors.Is(err, ErrTransitionLoop)
}
