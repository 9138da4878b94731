// Package config loads the binding configuration: where the guest image and
// its metadata live, which features to bind, and the capability name table.
//
//	image: game.wasm
//	metadata: game.yaml
//	capabilities:
//	  Fireball: 12
//	features:
//	  - name: unit-stats
//	    class: {module: Assembly-CSharp.dll, namespace: Game, name: Unit}
//	    fields: [hp, buffs]
//	    statics: [count]
//
// Files may be YAML or JSON.
package config
