package drawing

import (
	"math"
	"slices"
	"sync"

	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/property"
)

// Args carries everything a constructor may need when a drawing is created
// by kind name. Params holds the variant parameters (drawsides, usemesh,
// pointsize, resolutionx, arrowhead, segmentsperedge, ...); absent
// parameters take the variant defaults.
type Args struct {
	Fn, Mesh, Swarm  Handle
	FnColour, FnMask Handle
	Params           property.Props
	Options          []Option
}

// Constructor creates a drawing object from Args.
type Constructor func(Args) (*Object, error)

// Registry maps drawing kinds to constructors.
type Registry struct {
	mu    sync.RWMutex
	ctors map[Kind]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[Kind]Constructor)}
}

// Register binds a constructor to a built-in kind. Unknown kinds and
// duplicate registrations are rejected.
func (r *Registry) Register(kind Kind, c Constructor) error {
	if !kind.Valid() {
		return errors.New(errors.ErrCodeUnknownKind, "cannot register unknown drawing kind %q", kind)
	}
	if c == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "nil constructor for %s", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ctors[kind]; ok {
		return errors.New(errors.ErrCodeInvalidArgument, "drawing kind %s already registered", kind)
	}
	r.ctors[kind] = c
	return nil
}

// New creates a drawing object by kind name.
func (r *Registry) New(kind string, args Args) (*Object, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	c, ok := r.ctors[k]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownKind, "drawing kind %s is not registered", k)
	}
	return c(args)
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.ctors))
	for k := range r.ctors {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// DefaultRegistry holds a constructor for every built-in kind.
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	for k, c := range map[Kind]Constructor{
		KindDrawing:      newDrawingArgs,
		KindColourBar:    newColourBarArgs,
		KindCrossSection: newCrossSectionArgs,
		KindSurface:      newSurfaceArgs,
		KindPoints:       newPointsArgs,
		KindVectorArrows: newVectorArrowsArgs,
		KindVolume:       newVolumeArgs,
		KindMesh:         newMeshArgs,
	} {
		if err := r.Register(k, c); err != nil {
			panic(err)
		}
	}
	return r
}

var (
	paramsNone         = property.NewSchema("parameters", nil)
	paramsCrossSection = property.NewSchema("CrossSection parameters", map[string]property.Kind{"crosssection": str})
	paramsSurface      = property.NewSchema("Surface parameters", map[string]property.Kind{"drawsides": str, "usemesh": boolean}, paramsCrossSection)
	paramsPoints       = property.NewSchema("Points parameters", map[string]property.Kind{"pointsize": num, "pointtype": num})
	paramsGrid         = property.NewSchema("Volume parameters", map[string]property.Kind{"resolutionx": num, "resolutiony": num, "resolutionz": num}, paramsCrossSection)
	paramsVectorArrows = property.NewSchema("VectorArrows parameters", map[string]property.Kind{"arrowhead": num, "scaling": num, "glyphs": num}, paramsGrid)
	paramsMesh         = property.NewSchema("Mesh parameters", map[string]property.Kind{"nodenumbers": boolean, "segmentsperedge": num})
)

func intParam(p property.Props, key string, def int) (int, error) {
	v, ok := p.Get(key)
	if !ok {
		return def, nil
	}
	f, _ := v.AsNumber()
	if f != math.Trunc(f) {
		return 0, errors.New(errors.ErrCodeInvalidArgument, "parameter %s must be an integer, got %g", key, f)
	}
	return int(f), nil
}

func gridParams(p property.Props) (GridParams, error) {
	g := DefaultGridParams()
	g.CrossSection = p.GetString("crosssection", "")
	var err error
	if g.ResolutionX, err = intParam(p, "resolutionx", g.ResolutionX); err != nil {
		return g, err
	}
	if g.ResolutionY, err = intParam(p, "resolutiony", g.ResolutionY); err != nil {
		return g, err
	}
	if g.ResolutionZ, err = intParam(p, "resolutionz", g.ResolutionZ); err != nil {
		return g, err
	}
	return g, nil
}

func newDrawingArgs(a Args) (*Object, error) {
	if err := paramsNone.Validate(a.Params); err != nil {
		return nil, err
	}
	return NewDrawing(a.Options...)
}

func newColourBarArgs(a Args) (*Object, error) {
	if err := paramsNone.Validate(a.Params); err != nil {
		return nil, err
	}
	return NewColourBar(a.Options...)
}

func newCrossSectionArgs(a Args) (*Object, error) {
	if err := paramsCrossSection.Validate(a.Params); err != nil {
		return nil, err
	}
	return NewCrossSection(a.Fn, a.Mesh, a.Params.GetString("crosssection", ""), a.Options...)
}

func newSurfaceArgs(a Args) (*Object, error) {
	if err := paramsSurface.Validate(a.Params); err != nil {
		return nil, err
	}
	p := DefaultSurfaceParams()
	p.DrawSides = a.Params.GetString("drawsides", p.DrawSides)
	p.UseMesh = a.Params.GetBool("usemesh", p.UseMesh)
	p.CrossSection = a.Params.GetString("crosssection", "")
	return NewSurface(a.Fn, a.Mesh, p, a.Options...)
}

func newPointsArgs(a Args) (*Object, error) {
	if err := paramsPoints.Validate(a.Params); err != nil {
		return nil, err
	}
	p := DefaultPointsParams()
	p.FnColour, p.FnMask = a.FnColour, a.FnMask
	p.PointSize = a.Params.GetNumber("pointsize", p.PointSize)
	var err error
	if p.PointType, err = intParam(a.Params, "pointtype", p.PointType); err != nil {
		return nil, err
	}
	return NewPoints(a.Swarm, p, a.Options...)
}

func newVectorArrowsArgs(a Args) (*Object, error) {
	if err := paramsVectorArrows.Validate(a.Params); err != nil {
		return nil, err
	}
	p := DefaultVectorArrowsParams()
	var err error
	if p.Grid, err = gridParams(a.Params); err != nil {
		return nil, err
	}
	p.ArrowHead = a.Params.GetNumber("arrowhead", p.ArrowHead)
	p.Scaling = a.Params.GetNumber("scaling", p.Scaling)
	if p.Glyphs, err = intParam(a.Params, "glyphs", p.Glyphs); err != nil {
		return nil, err
	}
	return NewVectorArrows(a.Fn, a.Mesh, p, a.Options...)
}

func newVolumeArgs(a Args) (*Object, error) {
	if err := paramsGrid.Validate(a.Params); err != nil {
		return nil, err
	}
	g, err := gridParams(a.Params)
	if err != nil {
		return nil, err
	}
	return NewVolume(a.Fn, a.Mesh, g, a.Options...)
}

func newMeshArgs(a Args) (*Object, error) {
	if err := paramsMesh.Validate(a.Params); err != nil {
		return nil, err
	}
	p := DefaultMeshParams()
	p.NodeNumbers = a.Params.GetBool("nodenumbers", p.NodeNumbers)
	var err error
	if p.SegmentsPerEdge, err = intParam(a.Params, "segmentsperedge", p.SegmentsPerEdge); err != nil {
		return nil, err
	}
	return NewMesh(a.Mesh, p, a.Options...)
}
