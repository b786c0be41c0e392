// Package archive keeps copies of persisted figure state in MongoDB so that
// runs on different machines can share and revisualise them.
//
// Each archived run is one document keyed by name, holding the encoded
// state document and the list of figure names:
//
//	a, err := archive.Open(ctx, archive.Config{URI: "mongodb://localhost:27017"})
//	defer a.Close(ctx)
//	err = a.Push(ctx, "run42", doc)
//
// [Archive.Backend] adapts one archived run to state.Backend, so a
// state.Store can persist straight to the archive.
package archive

import (
	"context"
	"time"

	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/state"
)

// record is the stored form of one archived run.
type record struct {
	Name      string    `bson:"_id"`
	Figures   []string  `bson:"figures"`
	State     string    `bson:"state"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// collection is the subset of a MongoDB collection the archive uses.
type collection interface {
	put(ctx context.Context, rec record) error
	get(ctx context.Context, name string) (record, bool, error)
	names(ctx context.Context) ([]string, error)
	remove(ctx context.Context, name string) error
	close(ctx context.Context) error
}

// Archive stores state documents by run name.
type Archive struct {
	coll collection
	now  func() time.Time
}

// Entry summarises one archived run.
type Entry struct {
	Name      string
	Figures   []string
	UpdatedAt time.Time
}

func newArchive(c collection) *Archive {
	return &Archive{coll: c, now: time.Now}
}

// Push stores doc under name, replacing any previous copy.
func (a *Archive) Push(ctx context.Context, name string, doc state.Document) error {
	if err := errors.ValidateFigureName(name); err != nil {
		return err
	}
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	rec := record{Name: name, Figures: doc.Names(), State: string(data), UpdatedAt: a.now().UTC()}
	if err := a.coll.put(ctx, rec); err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "archive %q", name)
	}
	return nil
}

// Pull returns the document archived under name. A missing run is
// FILE_NOT_FOUND.
func (a *Archive) Pull(ctx context.Context, name string) (state.Document, error) {
	rec, ok, err := a.coll.get(ctx, name)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "read archive %q", name)
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeFileNotFound, "no archived run %q", name)
	}
	return state.Decode([]byte(rec.State))
}

// Stat returns the summary of an archived run without decoding its state.
func (a *Archive) Stat(ctx context.Context, name string) (Entry, error) {
	rec, ok, err := a.coll.get(ctx, name)
	if err != nil {
		return Entry{}, errors.Wrap(errors.ErrCodeDatabase, err, "read archive %q", name)
	}
	if !ok {
		return Entry{}, errors.New(errors.ErrCodeFileNotFound, "no archived run %q", name)
	}
	return Entry{Name: rec.Name, Figures: rec.Figures, UpdatedAt: rec.UpdatedAt}, nil
}

// List returns archived run names in ascending order.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	names, err := a.coll.names(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "list archive")
	}
	return names, nil
}

// Delete removes an archived run. Deleting a missing run is not an error.
func (a *Archive) Delete(ctx context.Context, name string) error {
	if err := a.coll.remove(ctx, name); err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "delete %q", name)
	}
	return nil
}

// Close disconnects from the server.
func (a *Archive) Close(ctx context.Context) error { return a.coll.close(ctx) }

// Backend returns a state.Backend persisting to the run called name.
// Loading a run that was never pushed yields an empty document.
func (a *Archive) Backend(name string) state.Backend {
	return &backend{archive: a, name: name}
}

type backend struct {
	archive *Archive
	name    string
}

func (b *backend) Load(ctx context.Context) (state.Document, error) {
	doc, err := b.archive.Pull(ctx, b.name)
	if errors.Is(err, errors.ErrCodeFileNotFound) {
		return state.Document{}, nil
	}
	return doc, err
}

func (b *backend) Commit(ctx context.Context, doc state.Document) error {
	return b.archive.Push(ctx, b.name, doc)
}
