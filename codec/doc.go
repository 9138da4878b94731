// Package codec maps a field's declared width and signedness to a typed
// read or write of that many bytes in foreign memory.
//
// Values travel as uint64 bit patterns. Read sign-extends signed widths, so
// int64(bits) is the field's value; Write truncates to the field's width.
// Range checks (FitsInt, FitsUint) belong to the caller, which knows whether
// it was handed a signed or unsigned value.
//
//	bits, err := codec.Read(mem, addr, codec.S16)
//	v := int64(bits)
//
// No alignment is assumed: 2, 4 and 8 byte accesses may start at any
// address the Memory accepts.
package codec
