package tables

// StepInfo is the opcode-specific runtime effect of one execution step.
type StepInfo interface {
	// Kind names the variant, e.g. "call_host".
	Kind() string
}

// I32Const records the constant pushed by i32.const.
type I32Const struct {
	Value int32
}

// CallHost records a call into a host plugin with its observed arguments
// and return value.
type CallHost struct {
	Ret             *uint64
	Plugin          HostPlugin
	FunctionName    string
	Signature       Signature
	Args            []uint64
	HostFunctionIdx int
	OpIndexInPlugin int
}

// I32WrapI64 records the before and after values of a narrowing.
type I32WrapI64 struct {
	Value  int64
	Result int32
}

// Return records the values dropped and kept by a return.
type Return struct {
	Keep       []ValueType
	KeepValues []uint64
	Drop       uint32
}

func (I32Const) Kind() string { return "i32_const" }
func (CallHost) Kind() string { return "call_host" }
func (I32WrapI64) Kind() string { return "i32_wrap_i64" }
func (Return) Kind() string { return "return" }
