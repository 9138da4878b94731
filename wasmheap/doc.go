// Package wasmheap hosts a foreign managed heap inside a wasm32 guest run
// by wazero.
//
// Object addresses are offsets into the guest's exported "memory". Type
// layout comes from a metadata.Image with pointer size 4. The guest may
// export:
//
//	class_init(class: i32)                      run once per class
//	gc_wbarrier_set_field(slot: i32, value: i32) collector write barrier
//
// Both are optional.
//
//	img, err := metadata.Load("game.yaml")
//	rt, err := wasmheap.Open(ctx, wasmBytes, img, &wasmheap.Config{WASI: true})
//	defer rt.Close(ctx)
//
//	b := binding.New(rt)
package wasmheap
