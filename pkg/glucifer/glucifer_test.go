package glucifer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/chronictectonic/underworld2/pkg/cache"
	"github.com/chronictectonic/underworld2/pkg/drawing"
	"github.com/chronictectonic/underworld2/pkg/engine"
	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/gldb"
	"github.com/chronictectonic/underworld2/pkg/property"
	"github.com/chronictectonic/underworld2/pkg/state"
)

type handle string

func (h handle) ID() string { return string(h) }

type fakeEngine struct {
	mu     sync.Mutex
	images []engine.ImageRequest
	webgl  []engine.ExportRequest
	fail   error
	closed bool
}

func (e *fakeEngine) Image(_ context.Context, req engine.ImageRequest) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.images = append(e.images, req)
	if e.fail != nil {
		return nil, e.fail
	}
	if !gldb.Exists(req.Database) {
		return nil, errors.New(errors.ErrCodeEngineFailed, "no database at %s", req.Database)
	}
	return []byte("png:" + req.Figure), nil
}

func (e *fakeEngine) WebGL(_ context.Context, req engine.ExportRequest) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.webgl = append(e.webgl, req)
	if e.fail != nil {
		return nil, e.fail
	}
	return []byte(`{"figure":"` + req.Figure + `"}`), nil
}

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}

func newTestStore(t *testing.T, filename string, opts ...StoreOption) *Store {
	t.Helper()
	base := []StoreOption{WithRank(0), WithTmpDir(t.TempDir())}
	s, err := NewStore(context.Background(), filename, append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func newTestFigure(t *testing.T, s *Store, opts ...FigureOption) *Figure {
	t.Helper()
	f, err := NewFigure(context.Background(), s, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func mustDrawing(t *testing.T, name string, props property.Props) *drawing.Object {
	t.Helper()
	o, err := drawing.NewDrawing(drawing.WithName(name), drawing.WithProperties(props))
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestNormalizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"run", "run.gldb"},
		{"run.gldb", "run.gldb"},
		{"RUN.GLDB", "RUN.GLDB"},
		{"run.db", "run.db"},
		{"run.txt", "run.txt.gldb"},
	}
	for _, tt := range tests {
		if got := NormalizeFilename(tt.in); got != tt.want {
			t.Errorf("NormalizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStepPath(t *testing.T) {
	tests := []struct {
		in   string
		step int
		want string
	}{
		{"run.gldb", 10, "run.00010.gldb"},
		{"out/run.db", 3, "out/run.00003.gldb"},
		{"run", 0, "run.00000.gldb"},
	}
	for _, tt := range tests {
		if got := StepPath(tt.in, tt.step); got != tt.want {
			t.Errorf("StepPath(%q, %d) = %q, want %q", tt.in, tt.step, got, tt.want)
		}
	}
}

func TestStoreModes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "vis")

	fresh := newTestStore(t, path, WithView(true))
	if fresh.ViewOnly() || fresh.Mode() != state.Live {
		t.Error("view flag without an existing file should be live")
	}
	if fresh.Filename() != path+".gldb" {
		t.Errorf("Filename = %s", fresh.Filename())
	}
	if !gldb.Exists(fresh.Path()) {
		t.Fatal("database file should be created")
	}
	_ = fresh.Close(ctx)

	if s := newTestStore(t, path, WithView(true)); !s.ViewOnly() || s.Mode() != state.ViewOnly {
		t.Error("view flag with an existing file should be view-only")
	}
	if s := newTestStore(t, path); s.ViewOnly() {
		t.Error("no view flag should be live")
	}
	if s := newTestStore(t, "", WithView(true), WithSplit(true)); s.ViewOnly() || s.Split() || s.Path() != "" {
		t.Error("in-memory stores are live and never split")
	}
	if s1, s2 := newTestStore(t, ""), newTestStore(t, ""); s1.ID() == s2.ID() {
		t.Error("store IDs should be unique")
	}
}

func TestFigureDefaults(t *testing.T) {
	s := newTestStore(t, "")
	f := newTestFigure(t, s)
	g := newTestFigure(t, s)
	if f.Name() != "Figure_1" || g.Name() != "Figure_2" {
		t.Errorf("names = %s, %s", f.Name(), g.Name())
	}

	p := f.Properties()
	checks := map[string]property.Value{
		"resolution":   property.List(640, 480),
		"title":        property.String(""),
		"axis":         property.Bool(false),
		"axislength":   property.Number(0.2),
		"antialias":    property.Bool(true),
		"background":   property.String("white"),
		"margin":       property.Int(34),
		"border":       property.Int(1),
		"bordercolour": property.String("black"),
		"rulers":       property.Bool(false),
		"zoomstep":     property.Int(0),
		"quality":      property.Number(1),
	}
	for k, want := range checks {
		if got, _ := p.Get(k); !got.Equal(want) {
			t.Errorf("%s = %v, want %v", k, got, want)
		}
	}
	if p.Has("min") || p.Has("max") {
		t.Error("no bounding box by default")
	}
}

func TestFigureOptions(t *testing.T) {
	s := newTestStore(t, "")
	f := newTestFigure(t, s,
		WithName("temperature"),
		WithFigSize(800, 600),
		WithBoundingBox([]float64{0, 0}, []float64{1, 2}),
		WithEdgeColour(""),
		WithTitle("T"),
		WithFigureProperties(property.Props{"Zoomstep": property.Int(3), "resolution": property.List(1, 1)}),
	)
	if w, h := f.Resolution(); w != 800 || h != 600 {
		t.Errorf("resolution = %dx%d, figsize should win", w, h)
	}
	p := f.Properties()
	if v, _ := p.Get("max"); !v.Equal(property.List(1, 2, 0)) {
		t.Errorf("max = %v, want padded to 3-D", v)
	}
	if v, _ := p.Get("border"); !v.Equal(property.Int(0)) {
		t.Errorf("border = %v, want 0 without edge colour", v)
	}
	if v, _ := p.Get("zoomstep"); !v.Equal(property.Int(3)) {
		t.Errorf("zoomstep = %v, keys should be lower-cased", v)
	}

	f.SetProperties(property.Props{"title": property.String("U"), "rulers": property.Bool(true)})
	if f.Properties().GetString("title", "") != "U" || !f.Properties().GetBool("rulers", false) {
		t.Error("SetProperties should merge")
	}
}

func TestFigureValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "")
	tests := []struct {
		name string
		opts []FigureOption
	}{
		{"negative quality", []FigureOption{WithQuality(-1)}},
		{"zero figsize", []FigureOption{WithFigSize(0, 480)}},
		{"mismatched box", []FigureOption{WithBoundingBox([]float64{0, 0}, []float64{1, 1, 1})}},
		{"1-D box", []FigureOption{WithBoundingBox([]float64{0}, []float64{1})}},
		{"bad name", []FigureOption{WithName("a/b")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFigure(ctx, s, tt.opts...); !errors.IsValidation(err) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}

	f := newTestFigure(t, s)
	if err := f.Append(nil); !errors.Is(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("Append(nil) = %v", err)
	}
	if _, err := f.Add("teapot", drawing.Args{}); !errors.Is(err, errors.ErrCodeUnknownKind) {
		t.Errorf("Add(teapot) = %v", err)
	}
	if _, err := f.Save(ctx, "out", WithSize(-1, 0)); !errors.Is(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("negative size = %v", err)
	}
	if _, err := f.Save(ctx, "out", WithFormat("gif")); !errors.Is(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("bad format = %v", err)
	}
	if _, err := f.SendCommand(ctx, ""); !errors.Is(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("empty command = %v", err)
	}
}

func TestFigureAdd(t *testing.T) {
	s := newTestStore(t, "")
	f := newTestFigure(t, s)
	o, err := f.Add("points", drawing.Args{Swarm: handle("swarm1")})
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Objects()) != 1 || f.Objects()[0] != o {
		t.Error("Add should append the new object")
	}
	if o.TypeTag() != drawing.TagSwarmViewer {
		t.Errorf("type tag = %s", o.TypeTag())
	}
}

func TestScript(t *testing.T) {
	f := newTestFigure(t, newTestStore(t, ""))
	f.Script("rotate x 30")
	if got := f.Script("zoom 2", "translate 0 0 1"); got != "rotate x 30\nzoom 2\ntranslate 0 0 1" {
		t.Errorf("Script = %q", got)
	}
	if got := f.Script(); got != "" || len(f.Commands()) != 0 {
		t.Errorf("Script() should clear, got %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"", FormatImage, true},
		{"Image", FormatImage, true},
		{"WebGL", FormatWebGL, true},
		{"svg", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestGenerateWritesState(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, filepath.Join(t.TempDir(), "vis"))
	f := newTestFigure(t, s, WithTitle("live"))
	surf, err := drawing.NewSurface(handle("T"), handle("mesh"), drawing.DefaultSurfaceParams(), drawing.WithColourBar())
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Append(surf); err != nil {
		t.Fatal(err)
	}

	fs, err := f.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, len(fs.Objects))
	for i, d := range fs.Objects {
		names[i] = d.Name
	}
	if want := []string{"ScalarField_0", "ColourBar_1"}; !reflect.DeepEqual(names, want) {
		t.Errorf("objects = %v, want %v", names, want)
	}
	if len(fs.Views) != 1 || !fs.Views[0].Equal(fs.Properties) {
		t.Error("views should duplicate properties")
	}

	doc, err := s.Figures(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(doc.Names(), []string{"Figure_1"}) {
		t.Errorf("persisted = %v", doc.Names())
	}
	steps, err := s.Timesteps(ctx)
	if err != nil || !reflect.DeepEqual(steps, []int{0}) {
		t.Errorf("timesteps = %v, %v", steps, err)
	}
}

func TestReconcileOverrides(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vis")

	live := newTestStore(t, path)
	fig1 := newTestFigure(t, live)
	fig2 := newTestFigure(t, live)
	_ = fig1.Append(mustDrawing(t, "A", nil))
	_ = fig2.Append(mustDrawing(t, "B", nil))
	if _, err := fig2.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := fig1.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	_ = live.Close(ctx)

	view := newTestStore(t, path, WithView(true))
	if !view.ViewOnly() {
		t.Fatal("store should be view-only")
	}
	fig := newTestFigure(t, view, WithName("Figure_1"))
	_ = fig.Append(drawing.FromDescriptor(state.Descriptor{Name: "B", Props: property.Props{"colour": property.String("red")}}))
	fs, err := fig.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := fs.Object("A")
	b, _ := fs.Object("B")
	if a.Visible || !b.Visible || b.Props.GetString("colour", "") != "red" {
		t.Errorf("A = %+v, B = %+v", a, b)
	}
}

func TestReconcileRerunScript(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vis")

	script := func(s *Store) (*Figure, *drawing.Object) {
		fig := newTestFigure(t, s)
		o, err := drawing.NewDrawing()
		if err != nil {
			t.Fatal(err)
		}
		if err := fig.Append(o); err != nil {
			t.Fatal(err)
		}
		return fig, o
	}

	live := newTestStore(t, path)
	fig, _ := script(live)
	if _, err := fig.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	_ = live.Close(ctx)

	view := newTestStore(t, path, WithView(true))
	fig, o := script(view)
	fs, err := fig.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if o.Name() != "DrawingObject_0" {
		t.Errorf("re-declared object name = %q, want DrawingObject_0", o.Name())
	}
	if d, ok := fs.Object("DrawingObject_0"); !ok || !d.Visible {
		t.Errorf("objects = %+v, want DrawingObject_0 visible", fs.Objects)
	}
}

func TestSaveExports(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	eng := &fakeEngine{}
	s := newTestStore(t, "", WithEngine(eng))
	f := newTestFigure(t, s, WithQuality(2))
	f.Script("rotate y 45")
	s.SetStep(7)

	path, err := f.Save(ctx, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "out.png") {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "png:Figure_1" {
		t.Errorf("file = %q, %v", data, err)
	}
	req := eng.images[0]
	if req.Step != 7 || req.Quality != 2 || !reflect.DeepEqual(req.Script, []string{"rotate y 45"}) {
		t.Errorf("request = %+v", req)
	}

	path, err = f.Save(ctx, filepath.Join(dir, "scene"), WithFormat(FormatWebGL))
	if err != nil || path != filepath.Join(dir, "scene.json") {
		t.Errorf("webgl path = %s, %v", path, err)
	}

	path, err = f.Save(ctx, filepath.Join(dir, "sized.png"), WithSize(100, 50))
	if err != nil || path != filepath.Join(dir, "sized.png") {
		t.Errorf("explicit extension path = %s, %v", path, err)
	}
	if last := eng.images[len(eng.images)-1]; last.Width != 100 || last.Height != 50 {
		t.Errorf("size = %dx%d", last.Width, last.Height)
	}

	if path, err := f.Save(ctx, ""); err != nil || path != "" {
		t.Errorf("empty filename = %q, %v", path, err)
	}
	if len(eng.images) != 2 {
		t.Errorf("engine calls = %d, empty filename should not export", len(eng.images))
	}
}

func TestExportCache(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	eng := &fakeEngine{}
	s := newTestStore(t, filepath.Join(t.TempDir(), "vis"), WithEngine(eng), WithCache(c, nil, cache.ImageTTL))
	f := newTestFigure(t, s)

	for range 2 {
		data, err := f.Image(ctx)
		if err != nil || string(data) != "png:Figure_1" {
			t.Fatalf("Image = %q, %v", data, err)
		}
	}
	if len(eng.images) != 1 {
		t.Errorf("engine calls = %d, want 1", len(eng.images))
	}

	f.SetProperties(property.Props{"title": property.String("changed")})
	if _, err := f.Image(ctx); err != nil {
		t.Fatal(err)
	}
	if len(eng.images) != 2 {
		t.Errorf("changed state should miss the cache")
	}
}

func TestRuntimeFailuresAreLogged(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := log.New(&buf)

	eng := &fakeEngine{fail: errors.New(errors.ErrCodeEngineFailed, "segfault")}
	s := newTestStore(t, "", WithEngine(eng), WithLogger(logger))
	f := newTestFigure(t, s)

	path, err := f.Save(ctx, filepath.Join(t.TempDir(), "out"))
	if err != nil || path != "" {
		t.Errorf("Save = %q, %v; want empty result", path, err)
	}
	if !strings.Contains(buf.String(), "segfault") {
		t.Errorf("log = %q, want the engine error", buf.String())
	}

	missing := newTestStore(t, "", WithBinPath(t.TempDir()), WithLogger(logger))
	data, err := newTestFigure(t, missing).Image(ctx)
	if err != nil || data != nil {
		t.Errorf("unavailable engine = %q, %v", data, err)
	}
	if _, err := missing.Engine(); !errors.Is(err, errors.ErrCodeEngineUnavailable) {
		t.Errorf("Engine() = %v", err)
	}

	resp, err := newTestFigure(t, missing).SendCommand(ctx, "rotate x 1")
	if err != nil || resp != nil {
		t.Errorf("SendCommand without viewer = %q, %v", resp, err)
	}
}

func TestEngineCreatedOnce(t *testing.T) {
	s := newTestStore(t, "")
	calls := 0
	eng := &fakeEngine{}
	s.settings.locate = func() (engine.Engine, error) {
		calls++
		return eng, nil
	}
	for range 3 {
		if _, err := s.Engine(); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Errorf("locate calls = %d, want 1", calls)
	}
	_ = s.Close(context.Background())
	if !eng.closed {
		t.Error("Close should close the engine")
	}
}

func TestNonRootRankSkipsWork(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vis")
	eng := &fakeEngine{}
	s, err := NewStore(ctx, path, WithRank(3), WithEngine(eng))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	f := newTestFigure(t, s)
	_ = f.Append(mustDrawing(t, "A", nil))
	fs, err := f.Generate(ctx)
	if err != nil || fs.Figure != "" {
		t.Errorf("Generate = %+v, %v", fs, err)
	}
	if out, err := f.Save(ctx, filepath.Join(t.TempDir(), "out")); err != nil || out != "" {
		t.Errorf("Save = %q, %v", out, err)
	}
	if saved, err := s.Save(ctx, filepath.Join(t.TempDir(), "copy")); err != nil || saved != "" {
		t.Errorf("Store.Save = %q, %v", saved, err)
	}
	if gldb.Exists(s.Path()) || len(eng.images) != 0 {
		t.Error("non-root rank should not touch the database or engine")
	}
}

func TestSplitStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "run")
	s := newTestStore(t, path, WithSplit(true))
	f := newTestFigure(t, s)

	for _, step := range []int{0, 5} {
		s.SetStep(step)
		if _, err := f.Generate(ctx); err != nil {
			t.Fatal(err)
		}
		if !gldb.Exists(StepPath(path+".gldb", step)) {
			t.Errorf("step %d database missing", step)
		}
	}
	if s.Path() != path+".00005.gldb" {
		t.Errorf("Path = %s", s.Path())
	}
}

func TestSaveDatabaseAndViewer(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newTestStore(t, "")
	first := newTestFigure(t, s, WithTitle("first"))
	second := newTestFigure(t, s, WithName("second"))
	_ = first.Append(mustDrawing(t, "A", nil))
	_ = second.Append(mustDrawing(t, "B", property.Props{"opacity": property.Number(0.5)}))
	if _, err := first.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	s.SetStep(10)
	saved, err := second.SaveDatabase(ctx, filepath.Join(dir, "copy"), true)
	if err != nil {
		t.Fatal(err)
	}
	if saved != filepath.Join(dir, "copy.gldb") {
		t.Errorf("saved = %s", saved)
	}

	v, err := NewViewer(ctx, saved, WithRank(0))
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close(ctx)

	if !reflect.DeepEqual(v.Names(), []string{"Figure_1", "second"}) {
		t.Errorf("Names = %v", v.Names())
	}
	fig, err := v.Figure("second")
	if err != nil {
		t.Fatal(err)
	}
	objs := fig.Objects()
	if len(objs) != 1 || objs[0].Name() != "B" {
		t.Fatalf("second objects = %v", objs)
	}
	if v, _ := objs[0].Property("opacity"); !v.Equal(property.Number(0.5)) {
		t.Errorf("opacity = %v", v)
	}
	first2, _ := v.Figure("Figure_1")
	if first2.Properties().GetString("title", "") != "first" {
		t.Error("saved properties should be restored")
	}
	if _, err := v.Figure("missing"); !errors.Is(err, errors.ErrCodeFigureNotFound) {
		t.Errorf("missing figure = %v", err)
	}

	order := []string{v.Next().Name(), v.Next().Name(), v.Next().Name()}
	if !reflect.DeepEqual(order, []string{"Figure_1", "second", "Figure_1"}) {
		t.Errorf("Next order = %v", order)
	}
	steps, err := v.Steps(ctx)
	if err != nil || !reflect.DeepEqual(steps, []int{0, 10}) {
		t.Errorf("Steps = %v, %v", steps, err)
	}
	v.SetStep(10)
	if v.Step() != 10 || fig.Step() != 10 {
		t.Error("SetStep should apply to every figure")
	}

	// Rendering a saved figure reconciles it in place.
	fs, err := fig.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if fs.Figure != "second" || len(fs.VisibleObjects()) != 1 {
		t.Errorf("reconciled = %+v", fs)
	}
}

func TestNewViewerMissingFile(t *testing.T) {
	_, err := NewViewer(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vis")
	doc := state.Document{{Figure: "pulled", Properties: property.Props{"title": property.String("remote")}}}

	s := newTestStore(t, path)
	if err := s.Replace(ctx, doc); err != nil {
		t.Fatal(err)
	}
	got, err := s.Figures(ctx)
	if err != nil || !reflect.DeepEqual(got.Names(), []string{"pulled"}) {
		t.Errorf("Figures = %v, %v", got.Names(), err)
	}

	view := newTestStore(t, path, WithView(true))
	if err := view.Replace(ctx, doc); !errors.Is(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("view-only Replace = %v", err)
	}
}
