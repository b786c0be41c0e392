// Package glucifer attaches drawing objects to figures, persists their
// visual state in a visualization database and hands that database to the
// rendering engine and interactive viewer.
//
// # Stores and figures
//
// A [Store] owns one database and every drawing object its figures have
// shown. Figures sharing a store write their state into the same file:
//
//	store, err := glucifer.NewStore(ctx, "run")  // run.gldb
//	fig, err := glucifer.NewFigure(ctx, store, glucifer.WithTitle("Temperature"))
//	surf, err := fig.Add("surface", drawing.Args{Fn: temperature, Mesh: mesh})
//	path, err := fig.Save(ctx, "temperature") // temperature.png
//
// # Revisualisation
//
// A store opened WithView on an existing file is view-only: rendering a
// figure reconciles the saved state instead of regenerating it. [Viewer]
// loads every saved figure this way.
//
// # Errors
//
// Invalid arguments are returned. Failures of the engine, database or
// viewer while exporting are logged and the export yields nothing, so a
// simulation carries on when visualisation breaks. Viewer commands are
// retried once after one second.
//
// # Parallel runs
//
// Only rank 0 reads or writes state, exports or drives the viewer; on other
// ranks those operations return zero values.
package glucifer
