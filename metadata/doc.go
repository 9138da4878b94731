// Package metadata loads the type metadata of a foreign runtime image:
// classes, their fields, field offsets and types, static storage blocks and
// the array header layout.
//
// Metadata files are YAML or JSON:
//
//	pointer_size: 8
//	classes:
//	  - module: Assembly-CSharp.dll
//	    namespace: Game
//	    name: Unit
//	    static_base: 0x4000
//	    fields:
//	      - {name: hp, type: u8, offset: 0x10}
//	      - {name: buffs, type: "list<u8>", offset: 0x18}
//	      - {name: alive, type: s32, offset: 0x0, static: true}
//
// Static fields are offsets into the class's static_base block. Until a
// class has a base, from the file or from SetStaticBase, its static fields
// do not resolve.
//
// Field types use the expressions understood by kind.Parse. An Image
// answers the runtime's name lookups; it does not read memory.
package metadata
