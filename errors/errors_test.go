package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseSnapshot,
				Kind:   KindOutOfBounds,
				Path:   []string{"memory", "3"},
				Detail: "read past end",
			},
			contains: []string{"[snapshot]", "out_of_bounds", "memory.3", "read past end"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseFrame,
				Kind:  KindUnderflow,
			},
			contains: []string{"[frame]", "underflow"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindInvalidData,
				Detail: "bad section",
				Cause:  errors.New("unexpected EOF"),
			},
			contains: []string{"[decode]", "invalid_data", "bad section", "caused by", "unexpected EOF"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLink,
		Kind:  KindInstantiation,
		Cause: cause,
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := NotRegistered("module", 7)

	if !errors.Is(err, &Error{Phase: PhaseLookup, Kind: KindNotRegistered}) {
		t.Error("errors.Is should match same phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseRegister, Kind: KindNotRegistered}) {
		t.Error("Is should not match different phase")
	}
	if errors.Is(err, &Error{Phase: PhaseLookup, Kind: KindUnknownHost}) {
		t.Error("Is should not match different kind")
	}
}

func TestIsKind(t *testing.T) {
	inner := Unimplemented(PhaseSnapshot, "global aliasing")
	wrapped := fmt.Errorf("instantiate: %w", inner)

	if !IsKind(wrapped, KindUnimplemented) {
		t.Error("IsKind should see through fmt wrapping")
	}
	if IsKind(wrapped, KindUnderflow) {
		t.Error("IsKind matched the wrong kind")
	}
	if IsKind(nil, KindUnimplemented) {
		t.Error("IsKind(nil) should be false")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhasePhantom, KindTypeMismatch).
		Path("wasm_input").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "host", "wasm").
		Build()

	if err.Phase != PhasePhantom {
		t.Errorf("Phase = %v, want %v", err.Phase, PhasePhantom)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 1 || err.Path[0] != "wasm_input" {
		t.Errorf("Path = %v, want [wasm_input]", err.Path)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected host, got wasm" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		err   *Error
		phase Phase
		kind  Kind
	}{
		{NotRegistered("memory", 3), PhaseLookup, KindNotRegistered},
		{AlreadyRegistered(PhaseSnapshot, "memory", 3), PhaseSnapshot, KindAlreadyRegistered},
		{UnknownHost(PhaseRegister, 9), PhaseRegister, KindUnknownHost},
		{Unimplemented(PhaseSnapshot, "aliasing"), PhaseSnapshot, KindUnimplemented},
		{Underflow(PhaseFrame, "frame stack"), PhaseFrame, KindUnderflow},
		{Unsupported(PhaseRegister, "multi-value"), PhaseRegister, KindUnsupported},
		{OutOfBounds(PhaseSnapshot, nil, 10, 5), PhaseSnapshot, KindOutOfBounds},
		{TypeMismatch(PhasePhantom, nil, "i32", "f32"), PhasePhantom, KindTypeMismatch},
		{InvalidData(PhaseDecode, nil, "bad"), PhaseDecode, KindInvalidData},
		{NotFound(PhaseRuntime, "export", "main"), PhaseRuntime, KindNotFound},
		{InvalidInput(PhaseHost, "empty"), PhaseHost, KindInvalidInput},
		{Instantiation(errors.New("x")), PhaseLink, KindInstantiation},
		{Decode("type section", errors.New("x")), PhaseDecode, KindInvalidData},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %v, want %v", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
		})
	}

	if err := UnknownHost(PhaseRegister, 9); err.Value != 9 || !strings.Contains(err.Detail, "9") {
		t.Errorf("UnknownHost should carry the index, got %+v", err)
	}
}

func TestConstructorsKeepDetailVerbatim(t *testing.T) {
	const detail = "load 100% of %d pages"
	tests := []struct {
		name string
		err  *Error
	}{
		{"unimplemented", Unimplemented(PhaseSnapshot, detail)},
		{"unsupported", Unsupported(PhaseRegister, detail)},
		{"invalid data", InvalidData(PhaseDecode, []string{"code"}, detail)},
		{"invalid input", InvalidInput(PhaseHost, detail)},
		{"wrap", Wrap(PhaseRuntime, KindInvalidData, errors.New("x"), detail)},
		{"decode", Decode(detail, errors.New("x"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Detail != detail {
				t.Errorf("Detail = %q, want %q", tt.err.Detail, detail)
			}
		})
	}
}

func TestMissingImportsError(t *testing.T) {
	t.Run("grouped by module", func(t *testing.T) {
		err := NewMissingImportsError([]string{
			"env#wasm_input",
			"wasi#fd_write",
			"env#require",
		})
		if len(err.Imports) != 3 {
			t.Fatalf("expected 3 imports, got %d", len(err.Imports))
		}
		if err.Imports[0].Module != "env" || err.Imports[0].Name != "wasm_input" {
			t.Errorf("first import = %+v", err.Imports[0])
		}

		msg := err.Error()
		for _, s := range []string{"missing 3", "env:", "wasi:", "wasm_input", "require"} {
			if !strings.Contains(msg, s) {
				t.Errorf("error %q should contain %q", msg, s)
			}
		}
	})

	t.Run("empty imports", func(t *testing.T) {
		msg := NewMissingImportsError(nil).Error()
		if !strings.Contains(msg, "no imports specified") {
			t.Errorf("empty error should have specific message, got: %s", msg)
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingImportsError([]string{"env#fn"})
		if !errors.Is(err, &MissingImportsError{}) {
			t.Error("errors.Is should match MissingImportsError")
		}
	})
}
