package tables

import (
	"fmt"
	"strings"

	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/wasm"
)

// ValueType is the value type recorded in the tables.
type ValueType uint8

const (
	ValueTypeNone ValueType = iota
	ValueTypeI32
	ValueTypeI64
	ValueTypeF32
	ValueTypeF64
)

func (v ValueType) String() string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return "none"
	}
}

// MarshalText renders the type by name.
func (v ValueType) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// ValType converts back to the binary value type.
func (v ValueType) ValType() wasm.ValType {
	switch v {
	case ValueTypeI32:
		return wasm.ValI32
	case ValueTypeI64:
		return wasm.ValI64
	case ValueTypeF32:
		return wasm.ValF32
	case ValueTypeF64:
		return wasm.ValF64
	default:
		return 0
	}
}

// FromValType converts a numeric binary value type. Reference types have
// no table representation.
func FromValType(t wasm.ValType) (ValueType, error) {
	switch t {
	case wasm.ValI32:
		return ValueTypeI32, nil
	case wasm.ValI64:
		return ValueTypeI64, nil
	case wasm.ValF32:
		return ValueTypeF32, nil
	case wasm.ValF64:
		return ValueTypeF64, nil
	default:
		return ValueTypeNone, errors.Unsupported(errors.PhaseRegister, fmt.Sprintf("value type %s", t))
	}
}

// Canonical returns the 64-bit table encoding of a raw value of this
// type: i32 and f32 are zero-extended from their 32-bit pattern.
func (v ValueType) Canonical(raw uint64) uint64 {
	switch v {
	case ValueTypeI32, ValueTypeF32:
		return uint64(uint32(raw))
	default:
		return raw
	}
}

// Signature is a function signature with at most one result.
type Signature struct {
	Params []ValueType
	Return ValueType // ValueTypeNone when the function returns nothing
}

// HasReturn reports whether the signature declares a result.
func (s Signature) HasReturn() bool {
	return s.Return != ValueTypeNone
}

func (s Signature) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.String()
	}
	ret := "()"
	if s.HasReturn() {
		ret = s.Return.String()
	}
	return "(" + strings.Join(parts, ", ") + ") -> " + ret
}

// SignatureFromFuncType converts a binary signature. More than one
// result is unsupported.
func SignatureFromFuncType(ft wasm.FuncType) (Signature, error) {
	if len(ft.Results) > 1 {
		return Signature{}, errors.Unsupported(errors.PhaseRegister,
			fmt.Sprintf("multi-value signature %s", ft))
	}
	sig := Signature{Params: make([]ValueType, len(ft.Params))}
	for i, p := range ft.Params {
		vt, err := FromValType(p)
		if err != nil {
			return Signature{}, err
		}
		sig.Params[i] = vt
	}
	if len(ft.Results) == 1 {
		vt, err := FromValType(ft.Results[0])
		if err != nil {
			return Signature{}, err
		}
		sig.Return = vt
	}
	return sig, nil
}
