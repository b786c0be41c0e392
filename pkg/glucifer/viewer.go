package glucifer

import (
	"context"

	"github.com/chronictectonic/underworld2/pkg/drawing"
	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/gldb"
)

// Viewer reads the figures saved in a database so they can be shown again
// or exported at other timesteps.
//
//	saved, err := glucifer.NewViewer(ctx, "vis.gldb")
//	for _, step := range steps {
//	    saved.SetStep(step)
//	    for _, name := range saved.Names() {
//	        fig, _ := saved.Figure(name)
//	        fig.SetProperties(property.Props{"title": property.String(fmt.Sprint("Step ", step))})
//	        fig.Show(ctx, glucifer.FormatImage)
//	    }
//	}
type Viewer struct {
	store   *Store
	names   []string
	figures map[string]*Figure
	index   int
}

// NewViewer opens filename view-only and loads every saved figure with its
// visible objects. A missing database is FILE_NOT_FOUND.
func NewViewer(ctx context.Context, filename string, opts ...StoreOption) (*Viewer, error) {
	if err := errors.ValidateFilename(filename); err != nil {
		return nil, err
	}
	var probe storeSettings
	for _, opt := range opts {
		opt(&probe)
	}
	path := NormalizeFilename(filename)
	if probe.split {
		path = StepPath(path, 0)
	}
	if !gldb.Exists(path) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "no visualization database at %s", path)
	}

	store, err := NewStore(ctx, filename, append(opts, WithView(true))...)
	if err != nil {
		return nil, err
	}
	v := &Viewer{store: store, figures: map[string]*Figure{}}
	if err := v.load(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	return v, nil
}

func (v *Viewer) load(ctx context.Context) error {
	doc, err := v.store.Figures(ctx)
	if err != nil {
		return err
	}
	for _, fs := range doc {
		props, err := figureProps(figureSettings{
			facecolour: "white",
			edgecolour: "black",
			quality:    1,
			props:      fs.Properties,
		})
		if err != nil {
			return err
		}
		fig := &Figure{
			store:    v.store,
			name:     fs.Figure,
			props:    props,
			registry: drawing.DefaultRegistry,
		}
		for _, d := range fs.VisibleObjects() {
			fig.objects = append(fig.objects, drawing.FromDescriptor(d))
		}
		v.names = append(v.names, fs.Figure)
		v.figures[fs.Figure] = fig
	}
	return nil
}

// Store returns the underlying view-only store.
func (v *Viewer) Store() *Store { return v.store }

// Names returns the saved figure names in document order.
func (v *Viewer) Names() []string { return append([]string(nil), v.names...) }

// Len returns the number of saved figures.
func (v *Viewer) Len() int { return len(v.names) }

// Figure returns the saved figure called name.
func (v *Viewer) Figure(name string) (*Figure, error) {
	fig, ok := v.figures[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeFigureNotFound, "no saved figure %q", name)
	}
	return fig, nil
}

// Figures returns every saved figure in document order.
func (v *Viewer) Figures() []*Figure {
	out := make([]*Figure, len(v.names))
	for i, n := range v.names {
		out[i] = v.figures[n]
	}
	return out
}

// Next returns the next figure, wrapping around after the last one. It
// returns nil when nothing was saved.
func (v *Viewer) Next() *Figure {
	if len(v.names) == 0 {
		return nil
	}
	if v.index >= len(v.names) {
		v.index = 0
	}
	fig := v.figures[v.names[v.index]]
	v.index++
	return fig
}

// Steps returns the recorded timesteps.
func (v *Viewer) Steps(ctx context.Context) ([]int, error) { return v.store.Timesteps(ctx) }

// Step returns the current timestep.
func (v *Viewer) Step() int { return v.store.Step() }

// SetStep selects the timestep shown by every figure.
func (v *Viewer) SetStep(step int) { v.store.SetStep(step) }

// Close releases the store.
func (v *Viewer) Close(ctx context.Context) error { return v.store.Close(ctx) }
