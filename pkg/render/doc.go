// Package render converts diagrams produced by glucifer into shareable
// formats.
//
// [ToPDF] and [ToPNG] convert SVG using the external rsvg-convert tool (from
// librsvg). The [scenegraph] subpackage draws the figures of a state
// document and the objects they show as a Graphviz diagram:
//
//	dot := scenegraph.ToDOT(doc, scenegraph.Options{})
//	svg, err := scenegraph.RenderSVG(ctx, dot)
//	png, err := render.ToPNG(ctx, svg, 2)
package render
