// Package drawing describes the renderable objects attached to a figure.
//
// Each variant (surface, points, vector arrows, volume, mesh, cross section,
// colour bar and the generic drawing) validates its constructor arguments,
// stores references to simulation objects as foreign keys in its properties,
// and fills in variant defaults without overriding user values:
//
//	surf, err := drawing.NewSurface(temperature, mesh, drawing.DefaultSurfaceParams(),
//	    drawing.WithColourBar(),
//	    drawing.WithProperties(property.Props{"opacity": property.Number(0.5)}))
//
// Objects can also be created by kind name through a [Registry]:
//
//	obj, err := drawing.DefaultRegistry.New("Points", drawing.Args{Swarm: swarm})
//
// Property keys are checked against the variant's schema, so misspelled or
// mistyped properties fail at construction or merge time.
package drawing
