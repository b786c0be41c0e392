package drawing

import "github.com/chronictectonic/underworld2/pkg/property"

const (
	str     = property.KindString
	num     = property.KindNumber
	boolean = property.KindBool
	list    = property.KindList
)

var (
	baseSchema = property.NewSchema("Drawing", map[string]property.Kind{
		"name": str, "visible": boolean, "opacity": num, "colourmap": str, "colour": str,
		"lit": boolean, "cullface": boolean, "wireframe": boolean, "flat": boolean,
		"linewidth": num, "pointsize": num, "pointtype": num,
		"logscale": boolean, "discrete": boolean, "range": list,
	})

	colourBarSchema = property.NewSchema("ColourBar", map[string]property.Kind{
		"colourbar": num, "height": num, "lengthfactor": num, "margin": num, "border": num,
		"precision": num, "scientific": boolean, "font": str, "ticks": num,
		"printticks": boolean, "printunits": boolean, "scalevalue": num, "align": str,
	}, baseSchema)

	crossSectionSchema = property.NewSchema("CrossSection", map[string]property.Kind{
		"fn": str, "mesh": str, "crosssection": str,
	}, baseSchema)

	surfaceSchema = property.NewSchema("Surface", map[string]property.Kind{
		"drawsides": str, "usemesh": boolean,
	}, crossSectionSchema)

	pointsSchema = property.NewSchema("Points", map[string]property.Kind{
		"swarm": str, "fn_colour": str, "fn_mask": str,
	}, baseSchema)

	gridSchema = property.NewSchema("GridSampler", map[string]property.Kind{
		"resolutionx": num, "resolutiony": num, "resolutionz": num,
	}, crossSectionSchema)

	vectorArrowsSchema = property.NewSchema("VectorArrows", map[string]property.Kind{
		"arrowhead": num, "scaling": num, "glyphs": num,
	}, gridSchema)

	volumeSchema = property.NewSchema("Volume", nil, gridSchema)

	meshSchema = property.NewSchema("Mesh", map[string]property.Kind{
		"mesh": str, "nodenumbers": boolean, "segments": num,
	}, baseSchema)

	// drawingSchema accepts any key a built-in variant knows.
	drawingSchema = property.NewSchema("Drawing", nil,
		colourBarSchema, surfaceSchema, pointsSchema, vectorArrowsSchema, meshSchema)
)

// SchemaFor returns the property schema of a kind.
func SchemaFor(k Kind) (*property.Schema, bool) {
	switch k {
	case KindDrawing:
		return drawingSchema, true
	case KindColourBar:
		return colourBarSchema, true
	case KindCrossSection:
		return crossSectionSchema, true
	case KindSurface:
		return surfaceSchema, true
	case KindPoints:
		return pointsSchema, true
	case KindVectorArrows:
		return vectorArrowsSchema, true
	case KindVolume:
		return volumeSchema, true
	case KindMesh:
		return meshSchema, true
	}
	return nil, false
}
