package registry

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind (or errors.Is against the sentinels below)
// rather than matching error strings.
type Kind string

const (
	// KindIntegrity means a signature or payload failed verification. The
	// entry must not be trusted or used.
	KindIntegrity Kind = "Integrity"
	// KindNotFound means the key has no entry. Expected and non-fatal.
	KindNotFound Kind = "NotFound"
	// KindTransport means the network or backing store failed.
	KindTransport Kind = "Transport"
	// KindConflict means a newer revision won the race.
	KindConflict Kind = "Conflict"
	// KindEncoding means a malformed FileID, entry or wire payload.
	KindEncoding Kind = "Encoding"
)

// Sentinels returned by Transport implementations.
var (
	ErrNotFound = errors.New("registry: entry not found")
	ErrConflict = errors.New("registry: revision conflict")
)

// Error is the structured error type of the registry and session layers.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := e.Message
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is makes NotFound and Conflict kinds match their sentinels even when the
// error was built without wrapping them.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	}
	return false
}

// E builds an *Error.
func E(kind Kind, op, msg string, cause error) error {
	return &Error{Kind: kind, Op: op, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the Kind of the outermost *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}
