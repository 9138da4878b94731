// Package heapbind binds named fields of named classes that live in a
// foreign, garbage-collected runtime to typed, offset-based accessors.
//
// The foreign runtime owns every object this library touches. Class and
// field layout is only known by name and is resolved into binary offsets
// the first time it is used, then cached for the life of the process.
//
// # Architecture Overview
//
//	heapbind/          Root package with Memory and Runtime interfaces
//	├── codec/         Fixed-width integer reads and writes over Memory
//	├── kind/          Field kinds derived from WIT types
//	├── registry/      Class registry and field descriptor cache
//	├── binding/       Instance, static and array accessors, write barrier
//	├── native/        In-process Memory over raw addresses
//	├── metadata/      Runtime image metadata (classes, fields, offsets)
//	├── wasmheap/      Foreign runtime hosted in wazero
//	├── foreigntest/   Fake foreign runtime for tests
//	├── config/        Symbolic names and capabilities
//	├── feature/       Feature binding with disable-on-failure
//	└── errors/        Structured error types
//
// # Quick Start
//
//	b := binding.New(rt)
//
//	unit, err := b.Class("Assembly-CSharp.dll", "Game", "Unit")
//	if err != nil {
//	    return err // ClassNotFound: disable the feature
//	}
//
//	inst := unit.Instance(addr)
//	hp, err := inst.GetUint("hp")
//
//	buffs, err := inst.GetArray("buffs")
//	if buffs != nil {
//	    n, _ := buffs.Len()
//	    ...
//	}
//
// # Write Barriers
//
// Every write of a reference-typed slot (object field, array field, array
// element, static reference) goes through binding.Gate, which stores the
// pointer and notifies the runtime's Collector in the same call. Writes of
// null are reported too.
//
// # Thread Safety
//
// The registry caches are safe for concurrent use. Accessors do not
// serialize reads and writes of the same field; the foreign runtime's
// memory model governs visibility.
package heapbind
