package host

import (
	"sort"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/tables"
	"github.com/wippyai/wasm-tracer/wasm"
)

// DefaultModule is the import module name host functions are exposed under.
const DefaultModule = "env"

// Func is one host function definition.
type Func struct {
	Handler         api.GoModuleFunc
	Module          string
	Name            string
	Plugin          tables.HostPlugin
	Type            wasm.FuncType
	OpIndexInPlugin int
}

// Registry owns the raw host index space. Indices are dense and assigned
// in definition order starting at 0.
type Registry struct {
	funcs  []Func
	byName map[string]map[string]int
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]map[string]int)}
}

// Define adds fn and returns its raw host index.
func (r *Registry) Define(fn Func) (int, error) {
	if fn.Name == "" {
		return 0, errors.InvalidInput(errors.PhaseHost, "host function name cannot be empty")
	}
	if fn.Handler == nil {
		return 0, errors.InvalidInput(errors.PhaseHost, "host function "+fn.Name+" has no handler")
	}
	if len(fn.Type.Results) > 1 {
		return 0, errors.Unsupported(errors.PhaseHost, "multi-value host function "+fn.Name)
	}
	if fn.Module == "" {
		fn.Module = DefaultModule
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := r.byName[fn.Module]
	if names == nil {
		names = make(map[string]int)
		r.byName[fn.Module] = names
	}
	if _, ok := names[fn.Name]; ok {
		return 0, errors.AlreadyRegistered(errors.PhaseHost, "host function", fn.Module+"#"+fn.Name)
	}

	idx := len(r.funcs)
	r.funcs = append(r.funcs, fn)
	names[fn.Name] = idx
	Logger().Debug("defined host function",
		zap.String("module", fn.Module),
		zap.String("name", fn.Name),
		zap.Int("index", idx))
	return idx, nil
}

// LookupHost returns the descriptor of the host function at raw index idx.
func (r *Registry) LookupHost(idx int) (tables.HostFunctionDesc, bool) {
	fn, ok := r.Func(idx)
	if !ok {
		return tables.HostFunctionDesc{}, false
	}
	sig, err := tables.SignatureFromFuncType(fn.Type)
	if err != nil {
		return tables.HostFunctionDesc{}, false
	}
	return tables.HostFunctionDesc{
		Plugin:          fn.Plugin,
		Name:            fn.Name,
		Signature:       sig,
		OpIndexInPlugin: fn.OpIndexInPlugin,
	}, true
}

// Func returns the definition at raw index idx.
func (r *Registry) Func(idx int) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx < 0 || idx >= len(r.funcs) {
		return Func{}, false
	}
	return r.funcs[idx], true
}

// Resolve returns the raw index of module#name.
func (r *Registry) Resolve(module, name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byName[module][name]
	return idx, ok
}

// Modules returns the import module names with at least one function, sorted.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for m := range r.byName {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Funcs returns the functions of one import module in index order.
func (r *Registry) Funcs(module string) []Func {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Func
	for _, fn := range r.funcs {
		if fn.Module == module {
			out = append(out, fn)
		}
	}
	return out
}

// Len returns the number of defined host functions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.funcs)
}
