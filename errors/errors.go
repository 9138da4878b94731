package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseResolve Phase = "resolve" // class and field lookup
	PhaseAccess  Phase = "access"  // instance, static and array reads/writes
	PhaseBarrier Phase = "barrier" // collector notification
	PhaseLoad    Phase = "load"    // runtime image loading
	PhaseConfig  Phase = "config"  // configuration parsing and lookup
)

// Kind categorizes the error
type Kind string

const (
	KindClassNotFound        Kind = "class_not_found"
	KindFieldNotFound        Kind = "field_not_found"
	KindNullInstance         Kind = "null_instance"
	KindIndexOutOfRange      Kind = "index_out_of_range"
	KindUnsupportedFieldKind Kind = "unsupported_field_kind"
	KindOverflow             Kind = "overflow"
	KindReadOnly             Kind = "read_only"
	KindOutOfBounds          Kind = "out_of_bounds"
	KindInvalidInput         Kind = "invalid_input"
	KindInvalidData          Kind = "invalid_data"
	KindNotFound             Kind = "not_found"
	KindInitialization       Kind = "initialization"
)

// Sentinels match an error of the same Kind in any phase.
var (
	ErrClassNotFound        = &Error{Kind: KindClassNotFound}
	ErrFieldNotFound        = &Error{Kind: KindFieldNotFound}
	ErrNullInstance         = &Error{Kind: KindNullInstance}
	ErrIndexOutOfRange      = &Error{Kind: KindIndexOutOfRange}
	ErrUnsupportedFieldKind = &Error{Kind: KindUnsupportedFieldKind}
	ErrReadOnly             = &Error{Kind: KindReadOnly}
	ErrNotFound             = &Error{Kind: KindNotFound}
)

// Error is the structured error type used throughout heapbind
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Class  string
	Detail string
	Path   []string
}

// Error renders "[phase] kind at path in class: detail: cause", leaving out
// the parts that are empty.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Phase, e.Kind)
	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}
	if e.Class != "" {
		b.WriteString(" in ")
		b.WriteString(e.Class)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// IsKind reports whether any error in err's chain is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	for err != nil {
		if stderrors.As(err, &e) {
			if e.Kind == k {
				return true
			}
			err = e.Cause
			continue
		}
		return false
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
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

// Class sets the class name
func (b *Builder) Class(name string) *Builder {
	b.err.Class = name
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

// ClassNotFound creates a class lookup failure
func ClassNotFound(module, namespace, name string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindClassNotFound,
		Class:  QualifiedName(namespace, name),
		Detail: fmt.Sprintf("no class in module %q", module),
	}
}

// FieldNotFound creates a field lookup failure
func FieldNotFound(class, field string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindFieldNotFound,
		Path:   []string{field},
		Class:  class,
		Detail: fmt.Sprintf("no field %q", field),
	}
}

// NullInstance creates a null base pointer error
func NullInstance(class, field string) *Error {
	return &Error{
		Phase:  PhaseAccess,
		Kind:   KindNullInstance,
		Path:   []string{field},
		Class:  class,
		Detail: "null instance",
	}
}

// IndexOutOfRange creates an array bounds error
func IndexOutOfRange(path []string, index int, length uint64) *Error {
	return &Error{
		Phase:  PhaseAccess,
		Kind:   KindIndexOutOfRange,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of range (length %d)", index, length),
		Value:  index,
	}
}

// UnsupportedFieldKind creates an accessor/kind mismatch error
func UnsupportedFieldKind(path []string, fieldType, accessor string) *Error {
	return &Error{
		Phase:  PhaseAccess,
		Kind:   KindUnsupportedFieldKind,
		Path:   path,
		Detail: fmt.Sprintf("%s not supported by %s", accessor, fieldType),
	}
}

// Overflow creates an overflow error
func Overflow(path []string, value any, fieldType string) *Error {
	return &Error{
		Phase:  PhaseAccess,
		Kind:   KindOverflow,
		Path:   path,
		Detail: fmt.Sprintf("value %v overflows %s", value, fieldType),
		Value:  value,
	}
}

// ReadOnly creates a write-to-read-only error
func ReadOnly(path []string) *Error {
	return &Error{
		Phase:  PhaseAccess,
		Kind:   KindReadOnly,
		Path:   path,
		Detail: "field is read-only",
	}
}

// OutOfBounds creates a foreign memory bounds error
func OutOfBounds(addr uint64, length uint32) *Error {
	return &Error{
		Phase:  PhaseAccess,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("memory access out of bounds: addr=0x%x, length=%d", addr, length),
		Value:  addr,
	}
}

// Barrier wraps a collector notification failure
func Barrier(slot, value uint64, cause error) *Error {
	return &Error{
		Phase:  PhaseBarrier,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("write barrier slot=0x%x value=0x%x", slot, value),
		Cause:  cause,
	}
}

// Initialization wraps a failed one-time class initialization
func Initialization(class string, cause error) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindInitialization,
		Class:  class,
		Detail: "class initialization failed",
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
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

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Load creates a loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(phase Phase, what string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// QualifiedName joins a namespace and class name the way the foreign
// runtime prints them.
func QualifiedName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}
