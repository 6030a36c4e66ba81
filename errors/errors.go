package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseGuard   Phase = "guard"   // guest pointer validation
	PhaseMarshal Phase = "marshal" // value packing/unpacking
	PhaseTable   Phase = "table"   // closure table operations
	PhaseReflect Phase = "reflect" // signature reflection
	PhaseInvoke  Phase = "invoke"  // dynamic invocation
	PhaseHost    Phase = "host"    // host syscall surface
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidHandle   Kind = "invalid_handle"
	KindInvalidType     Kind = "invalid_type"
	KindLengthMismatch  Kind = "length_mismatch"
	KindMemoryViolation Kind = "memory_violation"
	KindOverflow        Kind = "overflow"
	KindUnresolved      Kind = "unresolved"
	KindUnsupported     Kind = "unsupported"
	KindInvalidInput    Kind = "invalid_input"
	KindTrap            Kind = "trap"
)

// Error is the structured error type used throughout the module
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidHandle creates an invalid handle error
func InvalidHandle(phase Phase, handle uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Detail: fmt.Sprintf("handle %d does not name a managed slot", handle),
	}
}

// InvalidType creates an unknown value-type tag error
func InvalidType(phase Phase, tag uint8) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidType,
		Detail: fmt.Sprintf("unknown value-type tag %d", tag),
	}
}

// LengthMismatch creates a strict-mode buffer length error
func LengthMismatch(phase Phase, what string, got, want uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindLengthMismatch,
		Detail: fmt.Sprintf("%s length %d, signature requires %d", what, got, want),
	}
}

// MemoryViolation creates a guest pointer range error
func MemoryViolation(phase Phase, addr, length uint32, mode string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMemoryViolation,
		Detail: fmt.Sprintf("%s of [%#x, %#x) not accessible", mode, addr, uint64(addr)+uint64(length)),
	}
}

// Overflow creates a reflection output capacity error
func Overflow(phase Phase, argsCap, resultsCap, args, results uint32) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindOverflow,
		Detail: fmt.Sprintf("output capacity %d/%d smaller than signature arity %d/%d",
			argsCap, resultsCap, args, results),
	}
}

// Unresolved creates an unresolved function pointer error
func Unresolved(phase Phase, fp uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnresolved,
		Detail: fmt.Sprintf("function pointer %d resolves to neither builtin nor closure", fp),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
