// Package linker builds static instance images of parsed WebAssembly
// modules.
//
// An image is what the tracer registers before execution starts: every
// function with its decoded body, the linear memory with active data
// segments applied, and globals evaluated from their initializers.
// Function imports resolve against a host.Registry; imported memories,
// tables and globals are not supported.
//
// # Example
//
//	l := linker.New(hosts, linker.Options{})
//	inst, err := l.Instantiate("main", module)
//	if err != nil {
//		return err
//	}
//	_ = t.PushInitMemory(inst.Memory())
//	_ = t.RegisterModuleInstance(inst)
//
// All handles of one Linker come from a single allocator; use one Linker
// per tracer.
package linker
