package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in tracing the error occurred
type Phase string

const (
	PhaseDecode   Phase = "decode"   // wasm binary decoding
	PhaseLink     Phase = "link"     // import resolution and instantiation
	PhaseRegister Phase = "register" // instance and instruction registration
	PhaseSnapshot Phase = "snapshot" // initial memory and global capture
	PhaseLookup   Phase = "lookup"   // id resolution of live instances
	PhaseFrame    Phase = "frame"    // call frame bookkeeping
	PhasePhantom  Phase = "phantom"  // synthesized host-input steps
	PhaseRuntime  Phase = "runtime"  // guest execution
	PhaseHost     Phase = "host"     // host function registration
	PhaseExport   Phase = "export"   // table export
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch      Kind = "type_mismatch"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindInvalidData       Kind = "invalid_data"
	KindUnsupported       Kind = "unsupported"
	KindNotFound          Kind = "not_found"
	KindInvalidInput      Kind = "invalid_input"
	KindMissingImport     Kind = "missing_import"
	KindInstantiation     Kind = "instantiation"
	KindNotRegistered     Kind = "not_registered"
	KindAlreadyRegistered Kind = "already_registered"
	KindUnknownHost       Kind = "unknown_host"
	KindUnimplemented     Kind = "unimplemented"
	KindUnderflow         Kind = "underflow"
	KindExhausted         Kind = "exhausted"
	KindTrap              Kind = "trap"
)

// Error is the structured error type used throughout the tracer
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

// IsKind reports whether err is an *Error of the given kind, in any phase.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
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

// Path sets the location path
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

// Constructors for the errors the tracer reports most often.

// NotRegistered reports a lookup of an instance the tracer never saw.
func NotRegistered(what string, handle any) *Error {
	return New(PhaseLookup, KindNotRegistered).
		Value(handle).
		Detail("%s instance %v is not registered", what, handle).
		Build()
}

// AlreadyRegistered reports a second registration of the same instance.
func AlreadyRegistered(phase Phase, what string, handle any) *Error {
	return New(phase, KindAlreadyRegistered).
		Value(handle).
		Detail("%s instance %v is already registered", what, handle).
		Build()
}

// UnknownHost reports a raw host function index missing from the plugin registry.
func UnknownHost(phase Phase, index int) *Error {
	return New(phase, KindUnknownHost).
		Value(index).
		Detail("host function index %d has no plugin descriptor", index).
		Build()
}

// Unimplemented marks a known path that is not supported yet.
func Unimplemented(phase Phase, what string) *Error {
	return New(phase, KindUnimplemented).Detail("%s", what).Build()
}

// Underflow reports popping past the bottom of a stack.
func Underflow(phase Phase, what string) *Error {
	return New(phase, KindUnderflow).Detail("%s underflow", what).Build()
}

// Unsupported creates an unsupported operation error.
func Unsupported(phase Phase, what string) *Error {
	return New(phase, KindUnsupported).Detail("%s", what).Build()
}

// OutOfBounds reports index past length; path names the indexed space.
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return New(phase, KindOutOfBounds).
		Path(path...).
		Value(index).
		Detail("index %d out of bounds (length %d)", index, length).
		Build()
}

// TypeMismatch reports a value of the wrong type at path.
func TypeMismatch(phase Phase, path []string, want, got string) *Error {
	return New(phase, KindTypeMismatch).
		Path(path...).
		Detail("expected %s, got %s", want, got).
		Build()
}

// InvalidData reports malformed data at path.
func InvalidData(phase Phase, path []string, detail string) *Error {
	return New(phase, KindInvalidData).Path(path...).Detail("%s", detail).Build()
}

// NotFound reports a named item missing from a lookup.
func NotFound(phase Phase, what, name string) *Error {
	return New(phase, KindNotFound).Value(name).Detail("%s %q not found", what, name).Build()
}

// InvalidInput reports a bad caller-supplied argument.
func InvalidInput(phase Phase, detail string) *Error {
	return New(phase, KindInvalidInput).Detail("%s", detail).Build()
}

// Wrap attaches phase, kind and detail to an underlying error.
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return New(phase, kind).Cause(cause).Detail("%s", detail).Build()
}

// Instantiation wraps an engine failure while instantiating a module.
func Instantiation(cause error) *Error {
	return Wrap(PhaseLink, KindInstantiation, cause, "instantiate module")
}

// Decode wraps a binary parsing failure.
func Decode(detail string, cause error) *Error {
	return Wrap(PhaseDecode, KindInvalidData, cause, detail)
}

// MissingImport represents a single unresolved import
type MissingImport struct {
	Module string // e.g., "env"
	Name   string // e.g., "wasm_input"
}

// MissingImportsError is returned when linking fails due to missing host functions
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error from a list of "module#name" strings
func NewMissingImportsError(imports []string) *MissingImportsError {
	result := &MissingImportsError{
		Imports: make([]MissingImport, 0, len(imports)),
	}
	for _, imp := range imports {
		mod, name := parseImportKey(imp)
		result.Imports = append(result.Imports, MissingImport{
			Module: mod,
			Name:   name,
		})
	}
	return result
}

func parseImportKey(key string) (module, name string) {
	mod, fn, found := strings.Cut(key, "#")
	if found {
		return mod, fn
	}
	return key, ""
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[link] missing_import: no imports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d host function(s):\n", len(e.Imports)))

	// Group by module for cleaner output
	byModule := make(map[string][]string)
	var order []string
	for _, imp := range e.Imports {
		if _, exists := byModule[imp.Module]; !exists {
			order = append(order, imp.Module)
		}
		byModule[imp.Module] = append(byModule[imp.Module], imp.Name)
	}

	for _, mod := range order {
		b.WriteString("\n  ")
		b.WriteString(mod)
		b.WriteString(":\n")
		for _, fn := range byModule[mod] {
			b.WriteString("    - ")
			b.WriteString(fn)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingImportsError) Is(target error) bool {
	_, ok := target.(*MissingImportsError)
	return ok
}
