package keysig

import "errors"

// Kind is a stable category for programmatic error handling.
// Callers should branch on Kind rather than matching error strings.
type Kind string

const (
	// KindInvalidKeyState: the operation needs a key but the node is unset.
	KindInvalidKeyState Kind = "InvalidKeyState"
	// KindMissingKeyData: an input payload names no key.
	KindMissingKeyData Kind = "MissingKeyData"
	// KindUnsupportedKeyVariant: an input payload uses a key variant this package does not know.
	KindUnsupportedKeyVariant Kind = "UnsupportedKeyVariant"
	// KindMissingKeyType: a document has no "type" field.
	KindMissingKeyType Kind = "MissingKeyType"
	// KindShapeMismatch: a signature payload does not have the shape of its key payload.
	KindShapeMismatch Kind = "ShapeMismatch"
	// KindInvalidArgument: the caller broke an input contract.
	KindInvalidArgument Kind = "InvalidArgument"
	// KindInterrupted: the wait for a node was cancelled or timed out.
	KindInterrupted Kind = "Interrupted"
	// KindTransport: the node could not be reached or failed the call.
	KindTransport Kind = "Transport"
	// KindMalformed: a payload could not be parsed at all.
	KindMalformed Kind = "Malformed"
)

// Error is the package's structured error type.
//
// Op names the failing operation. Message is intended for humans; do not match on it.
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
	msg := "keysig: "
	if e.Op != "" {
		msg += e.Op + ": "
	}
	msg += e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Message: msg}
}

func wrapError(kind Kind, op, msg string, cause error) error {
	return &Error{Kind: kind, Op: op, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}
