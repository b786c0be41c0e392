package glucifer

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chronictectonic/underworld2/pkg/drawing"
	"github.com/chronictectonic/underworld2/pkg/engine"
	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/property"
	"github.com/chronictectonic/underworld2/pkg/state"
)

// Format selects the output of [Figure.Save].
type Format string

const (
	FormatImage Format = "image"
	FormatWebGL Format = "webgl"
)

// ParseFormat accepts "image" or "webgl" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatImage, FormatWebGL:
		return f, nil
	case "":
		return FormatImage, nil
	}
	return "", errors.New(errors.ErrCodeInvalidArgument, "unknown format %q (want image or webgl)", s)
}

// Ext returns the file extension written for f.
func (f Format) Ext() string {
	if f == FormatWebGL {
		return ".json"
	}
	return ".png"
}

// Figure is a named view of drawing objects plus the viewport properties
// passed to the engine.
type Figure struct {
	store    *Store
	ownStore bool
	name     string
	props    property.Props
	objects  []*drawing.Object
	script   []string
	registry *drawing.Registry
}

// FigureOption configures a [Figure].
type FigureOption func(*figureSettings)

type figureSettings struct {
	name       string
	figsize    []int
	bboxMin    []float64
	bboxMax    []float64
	facecolour string
	edgecolour string
	title      string
	axis       bool
	quality    float64
	props      property.Props
	registry   *drawing.Registry
}

// WithName names the figure. Unnamed figures are Figure_1, Figure_2, ...
// in creation order per store.
func WithName(name string) FigureOption { return func(s *figureSettings) { s.name = name } }

// WithFigSize sets the image resolution in pixels.
func WithFigSize(width, height int) FigureOption {
	return func(s *figureSettings) { s.figsize = []int{width, height} }
}

// WithBoundingBox restricts the view to the box from min to max. Two
// dimensional corners get a zero z coordinate.
func WithBoundingBox(lo, hi []float64) FigureOption {
	return func(s *figureSettings) { s.bboxMin, s.bboxMax = lo, hi }
}

// WithFaceColour sets the background colour.
func WithFaceColour(c string) FigureOption { return func(s *figureSettings) { s.facecolour = c } }

// WithEdgeColour sets the border colour. An empty colour removes the border.
func WithEdgeColour(c string) FigureOption { return func(s *figureSettings) { s.edgecolour = c } }

// WithTitle sets the figure title.
func WithTitle(t string) FigureOption { return func(s *figureSettings) { s.title = t } }

// WithAxis draws the axis.
func WithAxis(b bool) FigureOption { return func(s *figureSettings) { s.axis = b } }

// WithQuality sets the antialiasing oversampling factor.
func WithQuality(q float64) FigureOption { return func(s *figureSettings) { s.quality = q } }

// WithFigureProperties sets arbitrary viewport properties. They override the
// defaults but not the dedicated options.
func WithFigureProperties(p property.Props) FigureOption {
	return func(s *figureSettings) { s.props = property.Merge(s.props, p) }
}

// WithRegistry sets the registry used by [Figure.Add].
func WithRegistry(r *drawing.Registry) FigureOption {
	return func(s *figureSettings) { s.registry = r }
}

// NewFigure creates a figure in store. A nil store gets a private in-memory
// store that the figure closes with itself.
func NewFigure(ctx context.Context, store *Store, opts ...FigureOption) (*Figure, error) {
	set := figureSettings{
		facecolour: "white",
		edgecolour: "black",
		quality:    1,
		registry:   drawing.DefaultRegistry,
	}
	for _, opt := range opts {
		opt(&set)
	}

	props, err := figureProps(set)
	if err != nil {
		return nil, err
	}
	if set.name != "" {
		if err := errors.ValidateFigureName(set.name); err != nil {
			return nil, err
		}
	}

	own := false
	if store == nil {
		if store, err = NewStore(ctx, ""); err != nil {
			return nil, err
		}
		own = true
	}
	name := set.name
	if name == "" {
		name = store.nextFigureName()
	}
	return &Figure{
		store:    store,
		ownStore: own,
		name:     name,
		props:    props,
		registry: set.registry,
	}, nil
}

func figureProps(set figureSettings) (property.Props, error) {
	if set.quality < 0 {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "quality %v cannot be negative", set.quality)
	}
	border := 0
	if set.edgecolour != "" {
		border = 1
	}
	p := property.Props{
		"resolution":   property.List(640, 480),
		"title":        property.String(set.title),
		"axis":         property.Bool(set.axis),
		"axislength":   property.Number(0.2),
		"antialias":    property.Bool(true),
		"background":   property.String(set.facecolour),
		"margin":       property.Int(34),
		"border":       property.Int(border),
		"bordercolour": property.String(set.edgecolour),
		"rulers":       property.Bool(false),
		"zoomstep":     property.Int(0),
		"quality":      property.Number(set.quality),
	}
	p = property.Merge(p, set.props)

	if set.bboxMin != nil || set.bboxMax != nil {
		lo, hi, err := boundingBox(set.bboxMin, set.bboxMax)
		if err != nil {
			return nil, err
		}
		p.Set("min", property.List(lo...))
		p.Set("max", property.List(hi...))
	}
	if set.figsize != nil {
		w, h := set.figsize[0], set.figsize[1]
		if w <= 0 || h <= 0 {
			return nil, errors.New(errors.ErrCodeInvalidArgument, "figsize %dx%d must be positive", w, h)
		}
		p.Set("resolution", property.List(float64(w), float64(h)))
	}
	return p, nil
}

func boundingBox(lo, hi []float64) ([]float64, []float64, error) {
	if len(lo) != len(hi) || len(lo) < 2 || len(lo) > 3 {
		return nil, nil, errors.New(errors.ErrCodeInvalidArgument,
			"bounding box corners must both have 2 or 3 coordinates, got %d and %d", len(lo), len(hi))
	}
	lo, hi = slices.Clone(lo), slices.Clone(hi)
	if len(lo) == 2 {
		lo, hi = append(lo, 0), append(hi, 0)
	}
	return lo, hi, nil
}

// Name returns the figure name.
func (f *Figure) Name() string { return f.name }

// Store returns the store the figure writes to.
func (f *Figure) Store() *Store { return f.store }

// Properties returns a copy of the viewport properties.
func (f *Figure) Properties() property.Props { return f.props.Clone() }

// Property returns one viewport property.
func (f *Figure) Property(key string) (property.Value, bool) { return f.props.Get(key) }

// SetProperties merges p into the viewport properties; existing keys are
// replaced.
func (f *Figure) SetProperties(p property.Props) { f.props = property.Merge(f.props, p) }

// Resolution returns the image size in pixels.
func (f *Figure) Resolution() (width, height int) {
	v, _ := f.props.Get("resolution")
	if l, ok := v.AsList(); ok && len(l) >= 2 {
		return int(l[0]), int(l[1])
	}
	return 0, 0
}

// Objects returns the drawing objects shown by the figure.
func (f *Figure) Objects() []*drawing.Object { return slices.Clone(f.objects) }

// Append adds drawing objects to the figure.
func (f *Figure) Append(objs ...*drawing.Object) error {
	for _, o := range objs {
		if o == nil {
			return errors.New(errors.ErrCodeInvalidArgument, "cannot append a nil drawing object to %s", f.name)
		}
	}
	f.objects = append(f.objects, objs...)
	return nil
}

// ClearObjects removes every drawing object from the figure. A view-only
// figure without objects shows everything it saved.
func (f *Figure) ClearObjects() { f.objects = nil }

// Add creates a drawing object of the named kind through the figure's
// registry and appends it.
func (f *Figure) Add(kind string, args drawing.Args) (*drawing.Object, error) {
	o, err := f.registry.New(kind, args)
	if err != nil {
		return nil, err
	}
	f.objects = append(f.objects, o)
	return o, nil
}

// Script appends commands run by the engine before each export and returns
// the whole script, one command per line. Calling it without commands
// clears the script.
func (f *Figure) Script(cmds ...string) string {
	if len(cmds) == 0 {
		f.script = nil
		return ""
	}
	f.script = append(f.script, cmds...)
	return strings.Join(f.script, "\n")
}

// Commands returns the script commands.
func (f *Figure) Commands() []string { return slices.Clone(f.script) }

// Step returns the store timestep.
func (f *Figure) Step() int { return f.store.Step() }

// SetStep sets the store timestep.
func (f *Figure) SetStep(step int) { f.store.SetStep(step) }

// Generate writes the figure's state to its store.
func (f *Figure) Generate(ctx context.Context) (state.FigureState, error) {
	return f.store.render(ctx, f.name, f.objects, f.props)
}

// SaveOption configures [Figure.Save].
type SaveOption func(*saveSettings)

type saveSettings struct {
	format        Format
	width, height int
}

// WithSize overrides the figure resolution for one image.
func WithSize(width, height int) SaveOption {
	return func(s *saveSettings) { s.width, s.height = width, height }
}

// WithFormat selects image or WebGL output.
func WithFormat(f Format) SaveOption { return func(s *saveSettings) { s.format = f } }

// Save generates the figure and writes its image or WebGL scene to
// filename, appending the format extension when filename has none. It
// returns the written path. An empty filename only generates the figure.
//
// Engine and database failures are logged and produce "" with a nil error.
func (f *Figure) Save(ctx context.Context, filename string, opts ...SaveOption) (string, error) {
	set := saveSettings{format: FormatImage}
	for _, opt := range opts {
		opt(&set)
	}
	if _, err := ParseFormat(string(set.format)); err != nil {
		return "", err
	}
	if set.width < 0 || set.height < 0 {
		return "", errors.New(errors.ErrCodeInvalidArgument, "size %dx%d cannot be negative", set.width, set.height)
	}
	if filename == "" {
		_, err := f.Generate(ctx)
		return "", f.store.dropRuntime("generate "+f.name, err)
	}
	if err := errors.ValidateFilename(filename); err != nil {
		return "", err
	}

	data, err := f.export(ctx, set)
	if err != nil || data == nil {
		return "", err
	}
	if filepath.Ext(filename) == "" {
		filename += set.format.Ext()
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", f.store.dropRuntime("write "+filename, errors.Wrap(errors.ErrCodeEngineFailed, err, "write %s", filename))
	}
	return filename, nil
}

// Image generates the figure and returns it as PNG. Engine and database
// failures are logged and yield nil.
func (f *Figure) Image(ctx context.Context, opts ...SaveOption) ([]byte, error) {
	return f.export(ctx, collect(FormatImage, opts))
}

// WebGL generates the figure and returns its WebGL scene. Engine and
// database failures are logged and yield nil.
func (f *Figure) WebGL(ctx context.Context) ([]byte, error) {
	return f.export(ctx, saveSettings{format: FormatWebGL})
}

func collect(format Format, opts []SaveOption) saveSettings {
	set := saveSettings{format: format}
	for _, opt := range opts {
		opt(&set)
	}
	set.format = format
	return set
}

func (f *Figure) export(ctx context.Context, set saveSettings) ([]byte, error) {
	fs, err := f.Generate(ctx)
	if err != nil {
		return nil, f.store.dropRuntime("generate "+f.name, err)
	}
	if !f.store.IsRoot() {
		return nil, nil
	}

	var data []byte
	switch set.format {
	case FormatWebGL:
		data, err = f.store.exportWebGL(ctx, fs, engine.ExportRequest{
			Figure: fs.Figure, Step: f.store.Step(), Script: f.Commands(),
		})
	default:
		quality := f.props.GetNumber("quality", 0)
		data, err = f.store.exportImage(ctx, fs, engine.ImageRequest{
			Figure:  fs.Figure,
			Step:    f.store.Step(),
			Width:   set.width,
			Height:  set.height,
			Quality: int(quality),
			Script:  f.Commands(),
		})
	}
	if err != nil {
		return nil, f.store.dropRuntime("export "+f.name, err)
	}
	return data, nil
}

// Show saves the figure under its own name. There is no inline display
// outside a notebook, so this is the terminal fallback.
func (f *Figure) Show(ctx context.Context, format Format) (string, error) {
	return f.Save(ctx, f.name, WithFormat(format))
}

// SaveDatabase copies the store's database to filename, generating the
// figure first when regen is set.
func (f *Figure) SaveDatabase(ctx context.Context, filename string, regen bool) (string, error) {
	if regen {
		if _, err := f.Generate(ctx); err != nil {
			return "", err
		}
	}
	return f.store.Save(ctx, filename)
}

// OpenViewer launches the external viewer on the figure's database.
// Launch failures are logged and dropped.
func (f *Figure) OpenViewer(ctx context.Context, args ...string) error {
	if f.store.Path() == "" {
		if _, err := f.Generate(ctx); err != nil {
			return f.store.dropRuntime("generate "+f.name, err)
		}
	}
	_, err := f.store.OpenViewer(ctx, args...)
	return f.store.dropRuntime("open viewer", err)
}

// CloseViewer stops the external viewer.
func (f *Figure) CloseViewer(ctx context.Context) error { return f.store.CloseViewer(ctx) }

// SendCommand runs cmd on the external viewer, opening it if needed.
func (f *Figure) SendCommand(ctx context.Context, cmd string) ([]byte, error) {
	if err := errors.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	if f.store.Viewer() == nil {
		if err := f.OpenViewer(ctx); err != nil {
			return nil, err
		}
	}
	return f.store.SendCommand(ctx, cmd)
}

// Close stops the viewer, and the store too when the figure created it.
func (f *Figure) Close(ctx context.Context) error {
	if f.ownStore {
		return f.store.Close(ctx)
	}
	return f.store.CloseViewer(ctx)
}
