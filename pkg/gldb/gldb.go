// Package gldb stores figure state and recorded timesteps in a SQLite
// visualization database.
//
// The database holds one row per figure, in document order, and one row per
// recorded timestep. It implements [state.Backend]: every commit replaces all
// figure rows in a single transaction.
package gldb

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/state"
)

// Extension is appended to database names that do not already end in
// Extension or ".db".
const Extension = ".gldb"

const schema = `
CREATE TABLE IF NOT EXISTS figure (
	name  TEXT PRIMARY KEY,
	ord   INTEGER NOT NULL,
	state TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS timestep (
	id INTEGER PRIMARY KEY
);`

// Options configures [Open].
type Options struct {
	// ViewOnly databases refuse to record timesteps. Figure state can still
	// be committed.
	ViewOnly bool
}

// DB is an open visualization database.
type DB struct {
	db       *sql.DB
	mu       sync.Mutex
	path     string
	viewOnly bool
}

var _ state.Backend = (*DB)(nil)

// Exists reports whether a database file exists at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Open opens or creates the database at path. An empty path opens a private
// in-memory database.
func Open(ctx context.Context, path string, opts Options) (*DB, error) {
	dsn := path
	if path == "" {
		dsn = ":memory:"
	} else {
		if err := errors.ValidateFilename(path); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !stderrors.Is(err, fs.ErrExist) {
			return nil, errors.Wrap(errors.ErrCodeDatabase, err, "create database directory")
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "open %s", path)
	}
	// One connection keeps an in-memory database alive and serialises writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "create tables in %s", path)
	}
	return &DB{db: db, path: path, viewOnly: opts.ViewOnly}, nil
}

// Path returns the database file path, empty for in-memory databases.
func (d *DB) Path() string { return d.path }

// ViewOnly reports whether the database was opened view-only.
func (d *DB) ViewOnly() bool { return d.viewOnly }

// Close closes the database.
func (d *DB) Close() error { return d.db.Close() }

// Load reads every figure state in document order.
func (d *DB) Load(ctx context.Context) (state.Document, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name, state FROM figure ORDER BY ord`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "select figures")
	}
	defer func() { _ = rows.Close() }()

	doc := state.Document{}
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabase, err, "scan figure")
		}
		var fs state.FigureState
		if err := json.Unmarshal(payload, &fs); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStateMalformed, err, "decode figure %q", name)
		}
		if fs.Figure == "" {
			fs.Figure = name
		}
		doc = append(doc, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "read figures")
	}
	return doc, nil
}

// Commit replaces the stored document in one transaction.
func (d *DB) Commit(ctx context.Context, doc state.Document) (retErr error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "begin commit")
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM figure`); err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "clear figures")
	}
	for i, fs := range doc {
		payload, err := json.MarshalIndent(fs, "", "  ")
		if err != nil {
			return fmt.Errorf("encode figure %q: %w", fs.Figure, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO figure(name, ord, state) VALUES(?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET ord = excluded.ord, state = excluded.state`,
			fs.Figure, i, string(payload)); err != nil {
			return errors.Wrap(errors.ErrCodeDatabase, err, "store figure %q", fs.Figure)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "commit figures")
	}
	return nil
}

// RecordStep records a rendered timestep.
func (d *DB) RecordStep(ctx context.Context, step int) error {
	if d.viewOnly {
		return errors.New(errors.ErrCodeInvalidArgument, "cannot record timestep %d in view-only database %s", step, d.path)
	}
	if step < 0 {
		return errors.New(errors.ErrCodeInvalidArgument, "timestep must not be negative, got %d", step)
	}
	if _, err := d.db.ExecContext(ctx, `INSERT OR IGNORE INTO timestep(id) VALUES(?)`, step); err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "record timestep %d", step)
	}
	return nil
}

// Timesteps returns the recorded timesteps in ascending order.
func (d *DB) Timesteps(ctx context.Context) ([]int, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id FROM timestep ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "select timesteps")
	}
	defer func() { _ = rows.Close() }()
	var steps []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabase, err, "scan timestep")
		}
		steps = append(steps, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "read timesteps")
	}
	return steps, nil
}

// Backup writes a consistent copy of the database to dst, replacing any
// existing file.
func (d *DB) Backup(ctx context.Context, dst string) error {
	if err := errors.ValidateFilename(dst); err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(errors.ErrCodeDatabase, err, "replace %s", dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "create backup directory")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.db.ExecContext(ctx, `VACUUM INTO ?`, dst); err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "backup to %s", dst)
	}
	return nil
}
