package tables

// HostPlugin identifies the plugin a host function belongs to.
type HostPlugin string

const (
	HostPluginInput   HostPlugin = "HostInput"
	HostPluginRequire HostPlugin = "Require"
	HostPluginContext HostPlugin = "Context"
)

// HostFunctionDesc describes one host function as the plugin registry
// knows it.
type HostFunctionDesc struct {
	Plugin          HostPlugin
	Name            string
	Signature       Signature
	OpIndexInPlugin int
}

// Names and signature of the input-fetch host function.
const (
	WasmInputName = "wasm_input"
	WasmInputOp   = 0
)

// WasmInputSignature is (i32) -> i64: the argument selects the public or
// private input queue.
func WasmInputSignature() Signature {
	return Signature{Params: []ValueType{ValueTypeI32}, Return: ValueTypeI64}
}
