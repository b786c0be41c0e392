package drawing

import (
	"slices"
	"strings"

	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/property"
	"github.com/chronictectonic/underworld2/pkg/state"
)

// Kind names a drawing-object variant.
type Kind string

const (
	KindDrawing      Kind = "Drawing"
	KindColourBar    Kind = "ColourBar"
	KindCrossSection Kind = "CrossSection"
	KindSurface      Kind = "Surface"
	KindPoints       Kind = "Points"
	KindVectorArrows Kind = "VectorArrows"
	KindVolume       Kind = "Volume"
	KindMesh         Kind = "Mesh"
)

var kinds = []Kind{
	KindDrawing, KindColourBar, KindCrossSection, KindSurface,
	KindPoints, KindVectorArrows, KindVolume, KindMesh,
}

// Kinds returns every built-in kind.
func Kinds() []Kind { return slices.Clone(kinds) }

// Valid reports whether k is a built-in kind.
func (k Kind) Valid() bool { return slices.Contains(kinds, k) }

// ParseKind resolves a kind name case-insensitively.
func ParseKind(name string) (Kind, error) {
	for _, k := range kinds {
		if strings.EqualFold(string(k), strings.TrimSpace(name)) {
			return k, nil
		}
	}
	return "", errors.New(errors.ErrCodeUnknownKind, "unknown drawing kind %q", name)
}

// Native type tags. Default object names are derived from them.
const (
	TagDrawingObject     = "DrawingObject"
	TagCrossSection      = "CrossSection"
	TagScalarField       = "ScalarField"
	TagScalarFieldOnMesh = "ScalarFieldOnMesh"
	TagSwarmViewer       = "SwarmViewer"
	TagVectorArrows      = "VectorArrows"
	TagFieldSampler      = "FieldSampler"
	TagMeshViewer        = "MeshViewer"
)

// Handle is a simulation object (mesh, swarm or function) a drawing refers
// to. Its ID is stored as a foreign key in the drawing's properties.
type Handle interface {
	ID() string
}

// Object is a drawing object: a renderable item described by properties.
type Object struct {
	kind      Kind
	typeTag   string
	schema    *property.Schema
	props     property.Props
	colourMap *ColourMap
	colourBar *Object
	parent    *Object
	opacity   float64
}

// Option configures the common part of a drawing object.
type Option func(*settings)

type settings struct {
	name      string
	colours   []string
	colourMap *ColourMap
	props     property.Props
	opacity   float64
	colourBar bool
}

// WithName sets an explicit object name instead of a generated one.
func WithName(name string) Option { return func(s *settings) { s.name = name } }

// WithColours builds the object's colour map from a colour list.
func WithColours(colours ...string) Option {
	return func(s *settings) { s.colours = append(s.colours, colours...) }
}

// WithColourMap sets the object's colour map.
func WithColourMap(cm *ColourMap) Option { return func(s *settings) { s.colourMap = cm } }

// WithProperties sets user properties. They take precedence over variant
// defaults but not over values derived from constructor arguments.
func WithProperties(p property.Props) Option {
	return func(s *settings) { s.props = property.Merge(s.props, p) }
}

// WithOpacity sets opacity from 0 to 1. Negative values disable opacity.
func WithOpacity(o float64) Option { return func(s *settings) { s.opacity = o } }

// WithColourBar attaches a colour bar drawn with the object's colour map.
func WithColourBar() Option { return func(s *settings) { s.colourBar = true } }

func newObject(kind Kind, typeTag string, fixed, defaults property.Props, opts []Option) (*Object, error) {
	st := settings{opacity: -1}
	for _, opt := range opts {
		opt(&st)
	}
	if st.opacity < -1 || st.opacity > 1 {
		return nil, errors.New(errors.ErrCodeInvalidArgument,
			"opacity must be within [-1, 1], got %g", st.opacity)
	}

	cm := st.colourMap
	if cm == nil {
		if len(st.colours) > 0 {
			var err error
			if cm, err = NewColourMap(st.colours); err != nil {
				return nil, err
			}
		} else {
			cm = DefaultColourMap()
		}
	}

	schema, _ := SchemaFor(kind)
	if err := schema.Validate(st.props); err != nil {
		return nil, err
	}
	props := property.Merge(st.props.Clone(), fixed)
	props = property.Defaults(props, defaults)
	props = property.Defaults(props, colourMapProps(cm))
	if st.name != "" {
		if err := errors.ValidateFigureName(st.name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidArgument, err, "object name")
		}
		props.Set("name", property.String(st.name))
	}
	if st.opacity >= 0 {
		props.Set("opacity", property.Number(st.opacity))
	}

	o := &Object{
		kind:      kind,
		typeTag:   typeTag,
		schema:    schema,
		props:     props,
		colourMap: cm,
		opacity:   st.opacity,
	}
	if st.colourBar {
		cb, err := NewColourBar(WithColourMap(cm))
		if err != nil {
			return nil, err
		}
		cb.parent = o
		o.colourBar = cb
	}
	return o, nil
}

func colourMapProps(cm *ColourMap) property.Props {
	p := property.Props{"colourmap": property.String(cm.String())}
	if cm.LogScale() {
		p["logscale"] = property.Bool(true)
	}
	if cm.Discrete() {
		p["discrete"] = property.Bool(true)
	}
	if !cm.DynamicRange() {
		lo, hi := cm.ValueRange()
		p["range"] = property.List(lo, hi)
	}
	return p
}

// FromDescriptor rebuilds a generic drawing holding persisted properties.
// The properties are trusted and not validated.
func FromDescriptor(d state.Descriptor) *Object {
	props := d.Props.Clone()
	props.Set("name", property.String(d.Name))
	props.Set("visible", property.Bool(d.Visible))

	cm := DefaultColourMap()
	if colours := ParseColours(props.GetString("colourmap", "")); len(colours) > 0 {
		cm = &ColourMap{colours: colours, dynamic: true}
	}
	return &Object{
		kind:      KindDrawing,
		typeTag:   TagDrawingObject,
		schema:    drawingSchema,
		props:     props,
		colourMap: cm,
		opacity:   props.GetNumber("opacity", -1),
	}
}

func (o *Object) Kind() Kind { return o.kind }

// TypeTag returns the native type name.
func (o *Object) TypeTag() string { return o.typeTag }

// Name returns the explicit or assigned name, or "".
func (o *Object) Name() string { return o.props.GetString("name", "") }

func (o *Object) SetName(name string) { o.props.Set("name", property.String(name)) }

func (o *Object) Visible() bool { return o.props.GetBool("visible", false) }

func (o *Object) SetVisible(v bool) { o.props.Set("visible", property.Bool(v)) }

// IsColourBar reports whether o draws a colour bar.
func (o *Object) IsColourBar() bool {
	if o.kind == KindColourBar {
		return true
	}
	v, ok := o.props.Get("colourbar")
	return ok && v.Truthy()
}

// Properties returns a copy of the property mapping.
func (o *Object) Properties() property.Props { return o.props.Clone() }

// Property returns a single property.
func (o *Object) Property(key string) (property.Value, bool) { return o.props.Get(key) }

// SetProperties validates p against the variant's schema and merges it,
// replacing existing values. Nothing is changed when validation fails.
func (o *Object) SetProperties(p property.Props) error {
	merged, err := o.schema.Merge(o.props.Clone(), p)
	if err != nil {
		return err
	}
	o.props = merged
	return nil
}

// Encode renders the properties as native "key=value" lines.
func (o *Object) Encode() string { return o.props.Encode() }

func (o *Object) ColourMap() *ColourMap { return o.colourMap }

// ColourBar returns the attached colour bar, or nil.
func (o *Object) ColourBar() *Object { return o.colourBar }

// Parent returns the object a colour bar belongs to, or nil.
func (o *Object) Parent() *Object { return o.parent }

// Opacity returns the opacity, -1 when disabled.
func (o *Object) Opacity() float64 { return o.opacity }

// Children implements [state.Parent].
func (o *Object) Children() []state.Object {
	if o.colourBar == nil {
		return nil
	}
	return []state.Object{o.colourBar}
}

// ParentObject implements [state.Child].
func (o *Object) ParentObject() state.Object {
	if o.parent == nil {
		return nil
	}
	return o.parent
}

func (o *Object) String() string {
	if name := o.Name(); name != "" {
		return string(o.kind) + "(" + name + ")"
	}
	return string(o.kind)
}
