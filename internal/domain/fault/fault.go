// Package fault classifies domain errors into the kinds the transport layer
// maps to status codes.
package fault

import "github.com/go-faster/errors"

// Kind is the category of a domain failure.
type Kind int

const (
	// Internal covers unexpected failures: storage, encoding, bugs.
	Internal Kind = iota
	// Validation means the request itself is malformed.
	Validation
	// NotFound means a referenced entity does not exist (or is not visible
	// to the requester).
	NotFound
	// BusinessRule means the request is well-formed but violates a rule.
	BusinessRule
	// Conflict means a concurrent operation won a race for the same resource.
	Conflict
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case BusinessRule:
		return "business_rule"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified domain error. Values are meant to be declared once as
// package-level sentinels and compared with errors.Is.
type Error struct {
	kind Kind
	code string
	msg  string
}

// New creates a classified error. Code is a stable machine-readable
// identifier, msg is safe to show to API clients.
func New(kind Kind, code, msg string) *Error {
	return &Error{kind: kind, code: code, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Kind returns the error category.
func (e *Error) Kind() Kind { return e.kind }

// Code returns the stable error identifier.
func (e *Error) Code() string { return e.code }

// kinded is implemented by every error that carries a category.
type kinded interface {
	error
	Kind() Kind
}

// KindOf returns the kind of the first classified error in err's chain, or
// Internal when there is none.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return Internal
}

// Message returns the client-facing message for err. Internal errors are
// never exposed.
func Message(err error) string {
	var k kinded
	if errors.As(err, &k) && k.Kind() != Internal {
		return k.Error()
	}
	return "internal server error"
}

// Code returns the stable identifier of the first classified error in the
// chain that has one, or "internal".
func Code(err error) string {
	var c interface{ Code() string }
	if errors.As(err, &c) {
		return c.Code()
	}
	return "internal"
}
