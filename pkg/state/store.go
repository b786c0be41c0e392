package state

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/property"
)

// Mode is the operating mode of a [Store], fixed at construction.
type Mode int

const (
	// Live stores take objects from a running simulation; they are
	// authoritative and every render writes a fresh figure state.
	Live Mode = iota
	// ViewOnly stores reconcile persisted figure states against optional
	// local overrides.
	ViewOnly
)

func (m Mode) String() string {
	if m == ViewOnly {
		return "view-only"
	}
	return "live"
}

// Object is a drawing object as seen by the store.
type Object interface {
	// TypeTag is the native type name used for default names.
	TypeTag() string
	IsColourBar() bool
	// Name returns the explicit or assigned name, or "" if neither is set.
	Name() string
	SetName(name string)
	SetVisible(visible bool)
	// Properties returns a snapshot of the object's property mapping.
	Properties() property.Props
}

// Parent is implemented by objects that own companion objects, such as a
// colour bar, which are drawn whenever their owner is.
type Parent interface {
	Children() []Object
}

// Child is implemented by objects that declare an owner.
type Child interface {
	ParentObject() Object
}

// Backend persists the state document. Commit replaces the whole document.
type Backend interface {
	Load(ctx context.Context) (Document, error)
	Commit(ctx context.Context, doc Document) error
}

// Options configures a [Store].
type Options struct {
	Mode Mode
	// FallbackToLast substitutes the last stored figure when a requested
	// figure name is absent during reconciliation.
	FallbackToLast bool
	Logger         *log.Logger
}

// DefaultOptions returns live-mode options with fallback enabled.
func DefaultOptions() Options {
	return Options{Mode: Live, FallbackToLast: true}
}

// Store owns the ordered list of drawing objects accumulated across every
// figure sharing it, and their persisted state document.
type Store struct {
	backend        Backend
	mode           Mode
	fallbackToLast bool
	logger         *log.Logger
	objects        []Object
}

// NewStore creates a store over b. A nil backend is replaced by an empty
// [MemoryBackend].
func NewStore(b Backend, opts Options) *Store {
	if b == nil {
		b = NewMemoryBackend()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{
		backend:        b,
		mode:           opts.Mode,
		fallbackToLast: opts.FallbackToLast,
		logger:         logger,
	}
}

// Mode returns the store mode.
func (s *Store) Mode() Mode { return s.mode }

// Backend returns the persistence backend.
func (s *Store) Backend() Backend { return s.backend }

// Objects returns the accumulated objects in global order.
func (s *Store) Objects() []Object { return slices.Clone(s.objects) }

// Len returns the number of accumulated objects.
func (s *Store) Len() int { return len(s.objects) }

// Index returns the global position of o, or -1.
func (s *Store) Index(o Object) int { return slices.Index(s.objects, o) }

// Reset forgets every attached object. The persisted document is kept.
func (s *Store) Reset() { s.objects = nil }

// Attach appends objects not already known to the store and returns the
// number added.
func (s *Store) Attach(objs ...Object) int {
	n := 0
	for _, o := range objs {
		if o == nil || s.Index(o) >= 0 {
			continue
		}
		s.objects = append(s.objects, o)
		n++
	}
	return n
}

// Load returns the persisted document.
func (s *Store) Load(ctx context.Context) (Document, error) {
	doc, err := s.backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return doc, nil
}

// Render produces and persists the state of the named figure, generating it
// from active in live mode and reconciling it in view-only mode.
func (s *Store) Render(ctx context.Context, figure string, active []Object, props property.Props) (FigureState, error) {
	if s.mode == ViewOnly {
		return s.Reconcile(ctx, figure, active, props)
	}
	return s.Generate(ctx, figure, active, props)
}

// Generate builds the state of a figure from the active subset of objects,
// stores it under the figure's name and commits the document.
//
// Active objects and their children are attached to the global list. Every
// unnamed object receives a default name derived from its global index, so
// names already handed out never change as more objects arrive. Objects
// outside the active subset are kept but hidden.
func (s *Store) Generate(ctx context.Context, figure string, active []Object, props property.Props) (FigureState, error) {
	if s.mode != Live {
		return FigureState{}, errors.New(errors.ErrCodeInvalidArgument, "generate on %s store", s.mode)
	}
	if err := errors.ValidateFigureName(figure); err != nil {
		return FigureState{}, err
	}

	expanded := expand(active)
	activeSet := make(map[Object]bool, len(expanded))
	for _, o := range expanded {
		activeSet[o] = true
	}
	s.Attach(expanded...)

	s.assignNames()

	fs := FigureState{
		Figure:     figure,
		Properties: props.Clone(),
		Views:      []property.Props{props.Clone()},
		Objects:    make([]Descriptor, 0, len(s.objects)),
	}
	for _, o := range s.objects {
		visible := activeSet[o]
		if c, ok := o.(Child); ok && !visible {
			if p := c.ParentObject(); p != nil && activeSet[p] {
				visible = true
			}
		}
		o.SetVisible(visible)
		fs.Objects = append(fs.Objects, DescriptorOf(o))
	}

	doc, err := s.Load(ctx)
	if err != nil {
		return FigureState{}, err
	}
	doc.Put(fs)
	if err := s.backend.Commit(ctx, doc); err != nil {
		return FigureState{}, fmt.Errorf("commit state: %w", err)
	}
	s.logger.Debug("figure state generated", "figure", figure, "objects", len(fs.Objects), "visible", len(fs.VisibleObjects()))
	return fs, nil
}

// expand returns active followed by any children not already listed,
// preserving order and dropping duplicates.
func expand(active []Object) []Object {
	out := make([]Object, 0, len(active))
	seen := make(map[Object]bool, len(active))
	var visit func(o Object)
	visit = func(o Object) {
		if o == nil || seen[o] {
			return
		}
		seen[o] = true
		out = append(out, o)
		if p, ok := o.(Parent); ok {
			for _, c := range p.Children() {
				visit(c)
			}
		}
	}
	for _, o := range active {
		visit(o)
	}
	return out
}

// assignNames gives every unnamed object "ColourBar_<i>" or "<TypeTag>_<i>",
// where i is its global index. A default that collides with a name already in
// use gets a numeric suffix.
func (s *Store) assignNames() {
	taken := make(map[string]bool, len(s.objects))
	for _, o := range s.objects {
		if n := o.Name(); n != "" {
			taken[n] = true
		}
	}
	for i, o := range s.objects {
		if o.Name() != "" {
			continue
		}
		prefix := o.TypeTag()
		if o.IsColourBar() {
			prefix = "ColourBar"
		}
		name := fmt.Sprintf("%s_%d", prefix, i)
		for n := 1; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d_%d", prefix, i, n)
		}
		taken[name] = true
		o.SetName(name)
	}
}

// Reconcile updates a persisted figure state without a live simulation.
//
// The figure is located by name, falling back to the last stored figure when
// the store allows it. With overrides, every persisted object is hidden and
// those matched by name are merged with the override's properties and shown.
// Without overrides, every object is shown. Unnamed overrides first receive
// the same default names a live run would give them. props is merged into the
// figure properties and its first view. The result is stored under the
// requested figure name, so a fallback never overwrites the figure it was
// read from; stored descriptors are copied, never modified.
func (s *Store) Reconcile(ctx context.Context, figure string, overrides []Object, props property.Props) (FigureState, error) {
	if err := errors.ValidateFigureName(figure); err != nil {
		return FigureState{}, err
	}
	overrides = expand(overrides)
	s.Attach(overrides...)
	s.assignNames()

	doc, err := s.Load(ctx)
	if err != nil {
		return FigureState{}, err
	}
	found, exact, err := doc.Find(figure, s.fallbackToLast)
	if err != nil {
		return FigureState{}, err
	}
	if !exact {
		s.logger.Warn("figure not found, using last stored figure", "figure", figure, "using", found.Figure)
	}

	fs := found.Clone()
	if len(overrides) > 0 {
		for i := range fs.Objects {
			fs.Objects[i].Visible = false
		}
		for _, o := range overrides {
			od := DescriptorOf(o)
			for i := range fs.Objects {
				if fs.Objects[i].Name != od.Name {
					continue
				}
				fs.Objects[i].Props = property.Merge(fs.Objects[i].Props, od.Props)
				fs.Objects[i].Visible = true
			}
		}
	} else {
		for i := range fs.Objects {
			fs.Objects[i].Visible = true
		}
	}

	fs.Properties = property.Merge(fs.Properties, props)
	if len(fs.Views) == 0 {
		fs.Views = []property.Props{fs.Properties.Clone()}
	} else {
		fs.Views[0] = property.Merge(fs.Views[0], props)
	}

	fs.Figure = figure
	next := doc.Clone()
	next.Put(fs)
	if err := s.backend.Commit(ctx, next); err != nil {
		return FigureState{}, fmt.Errorf("commit state: %w", err)
	}
	s.logger.Debug("figure state reconciled", "figure", fs.Figure, "overrides", len(overrides), "visible", len(fs.VisibleObjects()))
	return fs, nil
}
