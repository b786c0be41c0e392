// Package state holds the persisted visual state of figures and the two ways
// it is produced.
//
// A [Store] accumulates drawing objects across every figure that shares it.
// In [Live] mode, [Store.Generate] derives a [FigureState] from the objects
// active in one figure and rewrites the whole [Document]. In [ViewOnly] mode,
// [Store.Reconcile] takes a previously persisted figure state, applies local
// overrides by object name and rewrites the document again. The mode is
// decided when the store is created and never changes.
//
// The document is JSON: a top-level array of figure states, each holding the
// figure properties, a single view and a flat mapping per object.
package state
