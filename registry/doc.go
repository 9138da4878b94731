// Package registry resolves symbolic class and field names into runtime
// handles and byte offsets.
//
// Each entry moves through Unresolved -> Resolving -> Resolved | Failed.
// Resolved entries are cached for the life of the process; the foreign
// runtime's type layout is fixed once its image is loaded. Failed entries
// are not cached, so a caller can retry after the image loads.
//
// Concurrent resolutions of the same key share a single call into the
// runtime:
//
//	reg := registry.New(rt, registry.NewMetrics(prometheus.DefaultRegisterer))
//
//	unit, err := reg.Classes.Resolve("Assembly-CSharp.dll", "Game", "Unit")
//	hp, err := reg.Fields.Resolve(unit, "hp")
//	// hp.Offset, hp.Kind
//
// Only layout is cached. Field values are never cached here.
package registry
