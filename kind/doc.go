// Package kind classifies foreign fields by how their storage is accessed.
//
// Field types are expressed with the WIT type vocabulary and mapped to one
// of four classes:
//
//	WIT / expression         Class    Storage
//	──────────────────────────────────────────────────────────
//	bool, u8..s64, char      scalar   1, 2, 4 or 8 bytes inline
//	list<T>, T[]             array    pointer to a foreign array object
//	own<T>, ref<T>, string   ref      pointer to a foreign object
//	f32, f64, records, ...   opaque   resolvable, not accessible
//
// Parse accepts both WIT spellings and the C# names metadata dumpers print
// (int, ulong, byte[]).
package kind
