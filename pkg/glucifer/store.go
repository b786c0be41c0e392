package glucifer

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/chronictectonic/underworld2/pkg/cache"
	"github.com/chronictectonic/underworld2/pkg/drawing"
	"github.com/chronictectonic/underworld2/pkg/engine"
	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/gldb"
	"github.com/chronictectonic/underworld2/pkg/observability"
	"github.com/chronictectonic/underworld2/pkg/property"
	"github.com/chronictectonic/underworld2/pkg/rank"
	"github.com/chronictectonic/underworld2/pkg/state"
	"github.com/chronictectonic/underworld2/pkg/viewer"
)

// NormalizeFilename appends the database extension unless name already ends
// in .gldb or .db. An empty name stays empty.
func NormalizeFilename(name string) string {
	if name == "" {
		return ""
	}
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, gldb.Extension) || strings.HasSuffix(lower, ".db") {
		return name
	}
	return name + gldb.Extension
}

// StepPath returns the per-timestep database used by split stores,
// e.g. "run.00010.gldb" for step 10 of "run.gldb".
func StepPath(filename string, step int) string {
	base := filename
	lower := strings.ToLower(base)
	switch {
	case strings.HasSuffix(lower, gldb.Extension):
		base = base[:len(base)-len(gldb.Extension)]
	case strings.HasSuffix(lower, ".db"):
		base = base[:len(base)-len(".db")]
	}
	return fmt.Sprintf("%s.%05d%s", base, step, gldb.Extension)
}

// Store collects the drawing objects of one or more figures into a
// visualization database, and owns the rendering engine and viewer process
// used to display it.
type Store struct {
	id       string
	filename string
	split    bool
	viewOnly bool
	step     int
	rank     int

	settings storeSettings
	logger   *log.Logger

	state   *state.Store
	dbs     map[string]*gldb.DB
	engine  engine.Engine
	proc    *viewer.Process
	figures int
}

// StoreOption configures a [Store].
type StoreOption func(*storeSettings)

type storeSettings struct {
	split          bool
	view           bool
	rank           int
	fallbackToLast bool
	binPath        string
	tmpDir         string
	viewer         viewer.Config
	cache          cache.Cache
	keyer          cache.Keyer
	cacheTTL       time.Duration
	logger         *log.Logger
	locate         func() (engine.Engine, error)
}

// WithSplit writes one database per timestep. Ignored without a filename.
func WithSplit(split bool) StoreOption { return func(s *storeSettings) { s.split = split } }

// WithView opens an existing database view-only, reconciling figures against
// the persisted state instead of regenerating it.
func WithView(view bool) StoreOption { return func(s *storeSettings) { s.view = view } }

// WithRank sets the process rank. Only rank 0 touches the database, engine
// and viewer.
func WithRank(r int) StoreOption { return func(s *storeSettings) { s.rank = r } }

// WithFallbackToLast controls whether reconciling an unknown figure name
// substitutes the last stored figure. Enabled by default.
func WithFallbackToLast(b bool) StoreOption {
	return func(s *storeSettings) { s.fallbackToLast = b }
}

// WithBinPath sets the directory holding the engine and viewer executable.
func WithBinPath(dir string) StoreOption { return func(s *storeSettings) { s.binPath = dir } }

// WithTmpDir sets where databases of unnamed stores are written for the
// engine and viewer.
func WithTmpDir(dir string) StoreOption { return func(s *storeSettings) { s.tmpDir = dir } }

// WithViewerConfig sets the port, quality and extra arguments of the viewer.
// Bin and Step are filled in by the store.
func WithViewerConfig(cfg viewer.Config) StoreOption {
	return func(s *storeSettings) { s.viewer = cfg }
}

// WithCache caches exported images and WebGL scenes.
func WithCache(c cache.Cache, keyer cache.Keyer, ttl time.Duration) StoreOption {
	return func(s *storeSettings) {
		s.cache = c
		if keyer != nil {
			s.keyer = keyer
		}
		s.cacheTTL = ttl
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) StoreOption { return func(s *storeSettings) { s.logger = l } }

// WithEngine uses e instead of locating the engine executable.
func WithEngine(e engine.Engine) StoreOption {
	return func(s *storeSettings) { s.locate = func() (engine.Engine, error) { return e, nil } }
}

// NewStore creates a store for filename. An empty filename keeps the
// database in memory and writes it to the temporary directory only when
// the engine or viewer needs a file.
func NewStore(ctx context.Context, filename string, opts ...StoreOption) (*Store, error) {
	set := storeSettings{
		rank:           rank.FromEnv(),
		fallbackToLast: true,
		tmpDir:         os.TempDir(),
		keyer:          cache.NewDefaultKeyer(),
		cacheTTL:       cache.ImageTTL,
	}
	for _, opt := range opts {
		opt(&set)
	}
	if set.logger == nil {
		set.logger = log.New(io.Discard)
	}
	if set.cache == nil {
		set.cache = cache.NewNullCache()
	}
	if set.locate == nil {
		bin := set.binPath
		set.locate = func() (engine.Engine, error) { return engine.Locate(bin) }
	}

	filename = NormalizeFilename(filename)
	if filename != "" {
		if err := errors.ValidateFilename(filename); err != nil {
			return nil, err
		}
	}

	s := &Store{
		id:       uuid.NewString(),
		filename: filename,
		split:    set.split && filename != "",
		rank:     set.rank,
		settings: set,
		logger:   set.logger,
		dbs:      map[string]*gldb.DB{},
	}
	s.viewOnly = set.view && filename != "" && gldb.Exists(s.Path())

	mode := state.Live
	if s.viewOnly {
		mode = state.ViewOnly
	}
	s.state = state.NewStore(stepBackend{s}, state.Options{
		Mode:           mode,
		FallbackToLast: set.fallbackToLast,
		Logger:         s.logger,
	})

	if s.IsRoot() {
		if _, err := s.database(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ID returns the unique identity of this store.
func (s *Store) ID() string { return s.id }

// Filename returns the normalised filename, empty for in-memory stores.
func (s *Store) Filename() string { return s.filename }

// Path returns the database file for the current step, empty for
// in-memory stores.
func (s *Store) Path() string {
	if s.split {
		return StepPath(s.filename, s.step)
	}
	return s.filename
}

// Split reports whether the store writes one database per timestep.
func (s *Store) Split() bool { return s.split }

// ViewOnly reports whether the store reconciles persisted figures.
func (s *Store) ViewOnly() bool { return s.viewOnly }

// Mode returns the state mode fixed at construction.
func (s *Store) Mode() state.Mode { return s.state.Mode() }

// Step returns the current timestep.
func (s *Store) Step() int { return s.step }

// SetStep selects the timestep written by live stores and shown by engines
// and viewers.
func (s *Store) SetStep(step int) { s.step = step }

// IsRoot reports whether this process coordinates state and rendering.
func (s *Store) IsRoot() bool { return rank.IsRoot(s.rank) }

// Objects returns every drawing object collected so far in global order.
func (s *Store) Objects() []state.Object { return s.state.Objects() }

// Empty forgets the collected drawing objects.
func (s *Store) Empty() { s.state.Reset() }

// nextFigureName hands out Figure_1, Figure_2, ... per store.
func (s *Store) nextFigureName() string {
	s.figures++
	return fmt.Sprintf("Figure_%d", s.figures)
}

// database returns the open database for the current step.
func (s *Store) database(ctx context.Context) (*gldb.DB, error) {
	path := s.Path()
	if db, ok := s.dbs[path]; ok {
		return db, nil
	}
	db, err := gldb.Open(ctx, path, gldb.Options{ViewOnly: s.viewOnly})
	if err != nil {
		return nil, err
	}
	s.dbs[path] = db
	return db, nil
}

// stepBackend follows the store's current database.
type stepBackend struct{ s *Store }

func (b stepBackend) Load(ctx context.Context) (state.Document, error) {
	db, err := b.s.database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Load(ctx)
}

func (b stepBackend) Commit(ctx context.Context, doc state.Document) error {
	db, err := b.s.database(ctx)
	if err != nil {
		return err
	}
	return db.Commit(ctx, doc)
}

// Figures returns the persisted state document. Non-root ranks get nil.
func (s *Store) Figures(ctx context.Context) (state.Document, error) {
	if !s.IsRoot() {
		return nil, nil
	}
	return s.state.Load(ctx)
}

// Timesteps returns the steps recorded in the current database.
func (s *Store) Timesteps(ctx context.Context) ([]int, error) {
	if !s.IsRoot() {
		return nil, nil
	}
	db, err := s.database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Timesteps(ctx)
}

// Replace overwrites the persisted state document of the current database
// with doc. View-only stores refuse; non-root ranks do nothing.
func (s *Store) Replace(ctx context.Context, doc state.Document) error {
	if !s.IsRoot() {
		return nil
	}
	if s.viewOnly {
		return errors.New(errors.ErrCodeInvalidArgument, "%s is open view-only", s.Path())
	}
	db, err := s.database(ctx)
	if err != nil {
		return err
	}
	return db.Commit(ctx, doc)
}

// Save copies the current database to filename and returns the normalised
// name. Non-root ranks return "".
func (s *Store) Save(ctx context.Context, filename string) (string, error) {
	if !s.IsRoot() {
		return "", nil
	}
	if err := errors.ValidateFilename(filename); err != nil {
		return "", err
	}
	filename = NormalizeFilename(filename)
	db, err := s.database(ctx)
	if err != nil {
		return "", err
	}
	if err := db.Backup(ctx, filename); err != nil {
		return "", err
	}
	return filename, nil
}

// render writes the state of one figure: generated from objects in live
// mode, reconciled against the persisted figure in view-only mode.
func (s *Store) render(ctx context.Context, figure string, objects []*drawing.Object, props property.Props) (state.FigureState, error) {
	if !s.IsRoot() {
		return state.FigureState{}, nil
	}
	active := make([]state.Object, len(objects))
	for i, o := range objects {
		active[i] = o
	}

	start := time.Now()
	fs, err := s.state.Render(ctx, figure, active, props)
	if err == nil && !s.viewOnly {
		err = s.recordStep(ctx)
	}
	observability.Render().OnGenerate(ctx, figure, s.state.Mode().String(), len(fs.Objects), time.Since(start), err)
	return fs, err
}

func (s *Store) recordStep(ctx context.Context) error {
	db, err := s.database(ctx)
	if err != nil {
		return err
	}
	return db.RecordStep(ctx, max(s.step, 0))
}

// file returns a database path the engine and viewer can open. In-memory
// stores are written to the temporary directory first.
func (s *Store) file(ctx context.Context) (string, error) {
	if path := s.Path(); path != "" {
		return path, nil
	}
	db, err := s.database(ctx)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.settings.tmpDir, "gluciferDB"+s.id+gldb.Extension)
	if err := db.Backup(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// Engine returns the store's rendering engine, creating it on first use.
func (s *Store) Engine() (engine.Engine, error) {
	if s.engine != nil {
		return s.engine, nil
	}
	e, err := s.settings.locate()
	if err != nil {
		return nil, err
	}
	s.engine = e
	return e, nil
}

// exportImage renders fs to PNG, consulting the export cache first.
func (s *Store) exportImage(ctx context.Context, fs state.FigureState, req engine.ImageRequest) ([]byte, error) {
	key, err := s.exportKey(fs, func(h string) string {
		return s.settings.keyer.ImageKey(h, cache.ImageKeyOpts{
			Step: req.Step, Width: req.Width, Height: req.Height, Quality: req.Quality, Script: req.Script,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.export(ctx, fs.Figure, cache.KeyTypeImage, key, func(ctx context.Context, e engine.Engine, db string) ([]byte, error) {
		req.Database = db
		return e.Image(ctx, req)
	})
}

// exportWebGL renders fs to a WebGL scene, consulting the export cache first.
func (s *Store) exportWebGL(ctx context.Context, fs state.FigureState, req engine.ExportRequest) ([]byte, error) {
	key, err := s.exportKey(fs, func(h string) string {
		return s.settings.keyer.WebGLKey(h, cache.WebGLKeyOpts{Step: req.Step, Script: req.Script})
	})
	if err != nil {
		return nil, err
	}
	return s.export(ctx, fs.Figure, cache.KeyTypeWebGL, key, func(ctx context.Context, e engine.Engine, db string) ([]byte, error) {
		req.Database = db
		return e.WebGL(ctx, req)
	})
}

func (s *Store) exportKey(fs state.FigureState, key func(stateHash string) string) (string, error) {
	data, err := state.Document{fs}.Encode()
	if err != nil {
		return "", err
	}
	return key(s.identity() + ":" + cache.Hash(data)), nil
}

// identity names the database in cache keys: its absolute path when on
// disk, the store ID otherwise.
func (s *Store) identity() string {
	if path := s.Path(); path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return s.id
}

func (s *Store) export(ctx context.Context, figure, format, key string, run func(context.Context, engine.Engine, string) ([]byte, error)) ([]byte, error) {
	start := time.Now()
	data, err := cache.Fetch(ctx, s.settings.cache, format, key, s.settings.cacheTTL, func(ctx context.Context) ([]byte, error) {
		e, err := s.Engine()
		if err != nil {
			return nil, err
		}
		db, err := s.file(ctx)
		if err != nil {
			return nil, err
		}
		return run(ctx, e, db)
	})
	observability.Render().OnExport(ctx, figure, format, len(data), time.Since(start), err)
	return data, err
}

// viewerConfig returns the launch configuration for this store's viewer.
func (s *Store) viewerConfig(args []string) viewer.Config {
	cfg := s.settings.viewer
	bin := engine.ExecutableName
	if s.settings.binPath != "" {
		bin = filepath.Join(s.settings.binPath, engine.ExecutableName)
	}
	if cfg.Bin == "" {
		cfg.Bin = bin
	}
	cfg.Step = s.step
	cfg.Args = append(append([]string(nil), cfg.Args...), args...)
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	return cfg
}

// OpenViewer launches the external viewer on this store's database, unless
// one is already running.
func (s *Store) OpenViewer(ctx context.Context, args ...string) (*viewer.Process, error) {
	if !s.IsRoot() {
		return nil, nil
	}
	if s.proc != nil && s.proc.Running() {
		return s.proc, nil
	}
	db, err := s.file(ctx)
	if err != nil {
		return nil, err
	}
	p, err := viewer.Launch(ctx, db, s.viewerConfig(args))
	if err != nil {
		return nil, err
	}
	s.proc = p
	return p, nil
}

// Viewer returns the running viewer process, or nil.
func (s *Store) Viewer() *viewer.Process {
	if s.proc != nil && s.proc.Running() {
		return s.proc
	}
	return nil
}

// CloseViewer stops the viewer process if one is running.
func (s *Store) CloseViewer(ctx context.Context) error {
	if s.proc == nil {
		return nil
	}
	err := s.proc.Close(ctx)
	s.proc = nil
	return err
}

// SendCommand runs cmd on the viewer, launching it first if needed.
// Viewer failures are logged and yield a nil response; only invalid
// commands are returned as errors.
func (s *Store) SendCommand(ctx context.Context, cmd string) ([]byte, error) {
	if err := errors.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	if !s.IsRoot() {
		return nil, nil
	}
	p, err := s.OpenViewer(ctx)
	if err != nil {
		return nil, s.dropRuntime("open viewer", err)
	}
	resp, err := p.Client().Send(ctx, cmd)
	if err != nil {
		return nil, s.dropRuntime("send command", err)
	}
	return resp, nil
}

// Close stops the viewer and releases the engine and databases.
func (s *Store) Close(ctx context.Context) error {
	var errs []error
	if err := s.CloseViewer(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.engine != nil {
		if err := s.engine.Close(); err != nil {
			errs = append(errs, err)
		}
		s.engine = nil
	}
	for path, db := range s.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(s.dbs, path)
	}
	return stderrors.Join(errs...)
}
