// Package binding gives typed access to objects living in a foreign managed
// heap.
//
// A Binder is created once per runtime. Classes are resolved by name and
// cached; fields are resolved on first access and cached as descriptors.
// Every read and write goes straight to foreign memory, so values written
// by the foreign runtime are always visible.
//
//	b := binding.New(rt)
//	unit, err := b.Class("Assembly-CSharp.dll", "Game", "Unit")
//
//	inst := unit.Instance(addr)
//	hp, err := inst.GetUint("hp")
//	buffs, err := inst.GetArray("buffs") // nil when the field holds null
//
// # Write barriers
//
// Reference writes (SetRef, SetObject, SetArray and array SetRef) go through
// a Gate, which stores the pointer and notifies the runtime's collector in
// the same call. Null writes are reported too. Scalar writes never notify.
//
// # Lifetimes
//
// Instance and Array are borrowed views. They do not pin the object; the
// caller must keep it reachable by the foreign runtime's rules for as long
// as the view is used.
package binding
