package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConfig  Phase = "config"  // memory construction
	PhaseGrow    Phase = "grow"    // memory.grow
	PhaseAtomic  Phase = "atomic"  // wait/notify address validation
	PhaseRuntime Phase = "runtime" // lifecycle and limiter callbacks
	PhaseHost    Phase = "host"    // engine bridge
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidConfig Kind = "invalid_config"
	KindAlreadyShared Kind = "already_shared"
	KindUnaligned     Kind = "unaligned"
	KindOutOfBounds   Kind = "out_of_bounds"
	KindGrowthDenied  Kind = "growth_denied"
	KindClosed        Kind = "closed"
	KindLimiter       Kind = "limiter"
	KindRegistration  Kind = "registration"
	KindUnknownMemory Kind = "unknown_memory"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
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

// Fault reports whether the error is an address-validation fault.
// Faults are traps for the calling logical thread, not operation failures.
func (e *Error) Fault() bool {
	return e.Phase == PhaseAtomic && (e.Kind == KindUnaligned || e.Kind == KindOutOfBounds)
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

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
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

// InvalidConfig creates a construction-time configuration error
func InvalidConfig(detail string, args ...any) *Error {
	return New(PhaseConfig, KindInvalidConfig).Detail(detail, args...).Build()
}

// AlreadyShared creates the error returned when a memory is wrapped twice
func AlreadyShared() *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindAlreadyShared,
		Detail: "cannot re-wrap a shared memory",
	}
}

// Unaligned creates a misaligned atomic access fault
func Unaligned(addr uint64, align uint64) *Error {
	return &Error{
		Phase:  PhaseAtomic,
		Kind:   KindUnaligned,
		Detail: fmt.Sprintf("address %#x is not %d-byte aligned", addr, align),
		Value:  addr,
	}
}

// OutOfBounds creates an out of bounds atomic access fault
func OutOfBounds(addr uint64, size uint64, length uint64) *Error {
	return &Error{
		Phase:  PhaseAtomic,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access of %d bytes at %#x out of bounds (length %d)", size, addr, length),
		Value:  addr,
	}
}

// GrowthDenied creates a recoverable growth failure
func GrowthDenied(current, desired uint64, reason string, cause error) *Error {
	return &Error{
		Phase:  PhaseGrow,
		Kind:   KindGrowthDenied,
		Detail: fmt.Sprintf("grow from %d to %d bytes: %s", current, desired, reason),
		Value:  desired,
		Cause:  cause,
	}
}

// Limiter wraps an error returned by a host growth limiter
func Limiter(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindLimiter,
		Detail: "memory growth limiter",
		Cause:  cause,
	}
}

// Closed creates a use-after-close error
func Closed(what string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// Registration creates a host function registration error
func Registration(namespace, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", namespace, name),
		Cause:  cause,
	}
}

// UnknownMemory reports a host call from a module whose memory the engine
// bridge did not allocate
func UnknownMemory(module string) *Error {
	e := &Error{
		Phase:  PhaseHost,
		Kind:   KindUnknownMemory,
		Detail: "caller memory was not allocated by this allocator",
	}
	if module != "" {
		e.Path = []string{module}
	}
	return e
}

// IsFault reports whether err carries an address-validation fault
func IsFault(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Fault()
}

// IsGrowthDenied reports whether err is a recoverable growth denial
func IsGrowthDenied(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindGrowthDenied
}

// IsConfig reports whether err is a construction-time configuration error
func IsConfig(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Phase == PhaseConfig
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
