// Package property implements the typed property mappings carried by
// drawing objects and figures.
//
// A [Value] is a tagged union of string, number, boolean and numeric list.
// [Props] maps case-insensitive property names to values and serialises as a
// plain JSON object, so persisted state documents stay readable by the native
// rendering engine.
//
// # Merging
//
// [Merge] is last-write-wins per key:
//
//	p := property.Props{"a": property.Int(1), "b": property.Int(2)}
//	p = property.Merge(p, property.Props{"b": property.Int(3), "c": property.Int(4)})
//	// p == {a:1, b:3, c:4}
//
// [Defaults] fills only absent keys, which is how variant defaults are applied
// on top of user-supplied properties.
//
// # Schemas
//
// Each drawing-object variant declares a [Schema]: the fixed set of property
// names it understands and the kind each holds. [Schema.Merge] validates
// before merging and reports INVALID_PROPERTY errors.
package property
