package drawing

import (
	"strings"

	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/property"
)

// NewDrawing creates a generic drawing object for custom drawing.
func NewDrawing(opts ...Option) (*Object, error) {
	return newObject(KindDrawing, TagDrawingObject, nil, nil, opts)
}

// NewColourBar creates a colour bar. Tick marks default to 2 for a
// logarithmic colour map and 0 otherwise.
func NewColourBar(opts ...Option) (*Object, error) {
	o, err := newObject(KindColourBar, TagDrawingObject, nil, nil, opts)
	if err != nil {
		return nil, err
	}
	ticks := 0
	if o.colourMap.LogScale() {
		ticks = 2
	}
	o.props = property.Defaults(o.props, property.Props{
		"colourbar":    property.Int(1),
		"height":       property.Int(10),
		"lengthfactor": property.Number(0.8),
		"margin":       property.Int(16),
		"border":       property.Int(1),
		"precision":    property.Int(2),
		"scientific":   property.Bool(false),
		"font":         property.String("small"),
		"ticks":        property.Int(ticks),
		"printticks":   property.Bool(true),
		"printunits":   property.Bool(false),
		"scalevalue":   property.Number(1.0),
	})
	return o, nil
}

func requireHandle(what string, h Handle) error {
	if h == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "%s is required", what)
	}
	return nil
}

func crossSectionProps(fn, mesh Handle, crossSection string) (property.Props, error) {
	if err := requireHandle("function", fn); err != nil {
		return nil, err
	}
	if err := requireHandle("mesh", mesh); err != nil {
		return nil, err
	}
	p := property.Props{
		"fn":   property.String(fn.ID()),
		"mesh": property.String(mesh.ID()),
	}
	if crossSection != "" {
		p["crosssection"] = property.String(crossSection)
	}
	return p, nil
}

// NewCrossSection creates a cross-section plane through fn on mesh.
// crossSection selects the plane, for example "x=0.5"; empty means the
// whole domain.
func NewCrossSection(fn, mesh Handle, crossSection string, opts ...Option) (*Object, error) {
	fixed, err := crossSectionProps(fn, mesh, crossSection)
	if err != nil {
		return nil, err
	}
	return newObject(KindCrossSection, TagCrossSection, fixed, nil, opts)
}

// SurfaceParams configures [NewSurface].
type SurfaceParams struct {
	// DrawSides lists the domain sides drawn, a subset of "xyzXYZ".
	DrawSides string
	// UseMesh samples the field on the mesh instead of a regular grid.
	UseMesh      bool
	CrossSection string
}

// DefaultSurfaceParams draws every side.
func DefaultSurfaceParams() SurfaceParams {
	return SurfaceParams{DrawSides: "xyzXYZ"}
}

// NewSurface creates a scalar surface of fn over mesh.
func NewSurface(fn, mesh Handle, p SurfaceParams, opts ...Option) (*Object, error) {
	if p.DrawSides == "" || strings.Trim(p.DrawSides, "xyzXYZ") != "" {
		return nil, errors.New(errors.ErrCodeInvalidArgument,
			"drawSides %q must be made of the characters xyzXYZ", p.DrawSides)
	}
	fixed, err := crossSectionProps(fn, mesh, p.CrossSection)
	if err != nil {
		return nil, err
	}
	fixed["drawsides"] = property.String(p.DrawSides)
	tag := TagScalarField
	if p.UseMesh {
		tag = TagScalarFieldOnMesh
		fixed["usemesh"] = property.Bool(true)
	}
	return newObject(KindSurface, tag, fixed, property.Props{"cullface": property.Bool(true)}, opts)
}

// PointsParams configures [NewPoints].
type PointsParams struct {
	// FnColour and FnMask are optional.
	FnColour  Handle
	FnMask    Handle
	PointSize float64
	// PointType is the glyph type, 0 to 4.
	PointType int
}

func DefaultPointsParams() PointsParams {
	return PointsParams{PointSize: 1, PointType: 1}
}

// NewPoints draws the particles of swarm.
func NewPoints(swarm Handle, p PointsParams, opts ...Option) (*Object, error) {
	if err := requireHandle("swarm", swarm); err != nil {
		return nil, err
	}
	if p.PointSize < 0 {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "pointSize must not be negative, got %g", p.PointSize)
	}
	if p.PointType < 0 || p.PointType > 4 {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "pointType must be within [0, 4], got %d", p.PointType)
	}
	fixed := property.Props{"swarm": property.String(swarm.ID())}
	if p.FnColour != nil {
		fixed["fn_colour"] = property.String(p.FnColour.ID())
	}
	if p.FnMask != nil {
		fixed["fn_mask"] = property.String(p.FnMask.ID())
	}
	defaults := property.Props{
		"pointsize": property.Number(p.PointSize),
		"pointtype": property.Int(p.PointType),
	}
	return newObject(KindPoints, TagSwarmViewer, fixed, defaults, opts)
}

// GridParams sets the number of samples along each axis of a regular grid.
type GridParams struct {
	ResolutionX, ResolutionY, ResolutionZ int
	CrossSection                          string
}

func DefaultGridParams() GridParams {
	return GridParams{ResolutionX: 16, ResolutionY: 16, ResolutionZ: 16}
}

func gridProps(fn, mesh Handle, g GridParams) (property.Props, error) {
	for i, r := range []int{g.ResolutionX, g.ResolutionY, g.ResolutionZ} {
		if r <= 0 {
			return nil, errors.New(errors.ErrCodeInvalidArgument, "resolution%c must be positive, got %d", "XYZ"[i], r)
		}
	}
	fixed, err := crossSectionProps(fn, mesh, g.CrossSection)
	if err != nil {
		return nil, err
	}
	fixed["resolutionx"] = property.Int(g.ResolutionX)
	fixed["resolutiony"] = property.Int(g.ResolutionY)
	fixed["resolutionz"] = property.Int(g.ResolutionZ)
	return fixed, nil
}

// VectorArrowsParams configures [NewVectorArrows].
type VectorArrowsParams struct {
	Grid GridParams
	// ArrowHead is the head size relative to the arrow length, within [0, 1].
	ArrowHead float64
	Scaling   float64
	// Glyphs is the glyph quality: 0 draws lines, higher values 3-D arrows.
	Glyphs int
}

func DefaultVectorArrowsParams() VectorArrowsParams {
	return VectorArrowsParams{Grid: DefaultGridParams(), ArrowHead: 0.3, Scaling: 0.3, Glyphs: 3}
}

// NewVectorArrows draws arrows for the vector field fn sampled over mesh.
func NewVectorArrows(fn, mesh Handle, p VectorArrowsParams, opts ...Option) (*Object, error) {
	if p.ArrowHead < 0 || p.ArrowHead > 1 {
		return nil, errors.New(errors.ErrCodeInvalidArgument,
			"arrowHead can only take values between zero and one, got %g", p.ArrowHead)
	}
	if p.Glyphs < 0 {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "glyphs must not be negative, got %d", p.Glyphs)
	}
	fixed, err := gridProps(fn, mesh, p.Grid)
	if err != nil {
		return nil, err
	}
	defaults := property.Props{
		"arrowhead": property.Number(p.ArrowHead),
		"scaling":   property.Number(p.Scaling),
		"glyphs":    property.Int(p.Glyphs),
	}
	return newObject(KindVectorArrows, TagVectorArrows, fixed, defaults, opts)
}

// NewVolume draws the scalar field fn as a volume sampled over mesh.
func NewVolume(fn, mesh Handle, g GridParams, opts ...Option) (*Object, error) {
	fixed, err := gridProps(fn, mesh, g)
	if err != nil {
		return nil, err
	}
	return newObject(KindVolume, TagFieldSampler, fixed, nil, opts)
}

// MeshParams configures [NewMesh].
type MeshParams struct {
	NodeNumbers     bool
	SegmentsPerEdge int
}

func DefaultMeshParams() MeshParams { return MeshParams{SegmentsPerEdge: 1} }

// NewMesh draws the element edges of mesh.
func NewMesh(mesh Handle, p MeshParams, opts ...Option) (*Object, error) {
	if err := requireHandle("mesh", mesh); err != nil {
		return nil, err
	}
	if p.SegmentsPerEdge < 1 {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "segmentsPerEdge must be a positive integer, got %d", p.SegmentsPerEdge)
	}
	fixed := property.Props{
		"mesh":        property.String(mesh.ID()),
		"nodenumbers": property.Bool(p.NodeNumbers),
		"segments":    property.Int(p.SegmentsPerEdge),
	}
	pointSize, pointType := 1, 4
	if p.NodeNumbers {
		pointSize, pointType = 5, 2
	}
	defaults := property.Props{
		"lit":       property.Bool(false),
		"linewidth": property.Number(0.1),
		"pointsize": property.Int(pointSize),
		"pointtype": property.Int(pointType),
	}
	return newObject(KindMesh, TagMeshViewer, fixed, defaults, opts)
}
