package linker

import (
	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/wasm"
)

// resolveImports maps every function import of m to a raw host index.
// All unresolved function imports are reported together.
func (l *Linker) resolveImports(m *wasm.Module) ([]int, error) {
	var (
		idxs    []int
		missing []string
	)
	for _, imp := range m.Imports {
		switch imp.Desc.Kind {
		case wasm.KindFunc:
		case wasm.KindMemory:
			return nil, errors.Unsupported(errors.PhaseLink, "imported memory "+imp.Module+"#"+imp.Name)
		case wasm.KindTable:
			return nil, errors.Unsupported(errors.PhaseLink, "imported table "+imp.Module+"#"+imp.Name)
		case wasm.KindGlobal:
			return nil, errors.Unsupported(errors.PhaseLink, "imported global "+imp.Module+"#"+imp.Name)
		default:
			return nil, errors.InvalidData(errors.PhaseLink, []string{imp.Module, imp.Name}, "unknown import kind")
		}

		if int(imp.Desc.TypeIdx) >= len(m.Types) {
			return nil, errors.OutOfBounds(errors.PhaseLink,
				[]string{imp.Module, imp.Name, "type"}, int(imp.Desc.TypeIdx), len(m.Types))
		}
		idx, ok := l.hosts.Resolve(imp.Module, imp.Name)
		if !ok {
			missing = append(missing, imp.Module+"#"+imp.Name)
			continue
		}
		fn, _ := l.hosts.Func(idx)
		want := m.Types[imp.Desc.TypeIdx]
		if !want.Equal(fn.Type) {
			return nil, errors.TypeMismatch(errors.PhaseLink,
				[]string{imp.Module, imp.Name}, want.String(), fn.Type.String())
		}
		idxs = append(idxs, idx)
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingImportsError(missing)
	}
	return idxs, nil
}

func functionImports(m *wasm.Module) []wasm.Import {
	var out []wasm.Import
	for _, imp := range m.Imports {
		if imp.Desc.Kind == wasm.KindFunc {
			out = append(out, imp)
		}
	}
	return out
}
