package property

import (
	"maps"
	"slices"

	"github.com/chronictectonic/underworld2/pkg/errors"
)

// Schema is the closed set of property names a drawing-object variant (or a
// figure) accepts, with the kind each must hold.
type Schema struct {
	name string
	keys map[string]Kind
}

// NewSchema builds a schema from keys plus every key of the given parents.
// Keys declared directly override parent declarations.
func NewSchema(name string, keys map[string]Kind, parents ...*Schema) *Schema {
	s := &Schema{name: name, keys: make(map[string]Kind)}
	for _, p := range parents {
		if p != nil {
			maps.Copy(s.keys, p.keys)
		}
	}
	for k, kind := range keys {
		s.keys[Key(k)] = kind
	}
	return s
}

// Name returns the schema name used in error messages.
func (s *Schema) Name() string { return s.name }

// Kind returns the kind declared for key.
func (s *Schema) Kind(key string) (Kind, bool) {
	k, ok := s.keys[Key(key)]
	return k, ok
}

// Keys returns the declared property names in sorted order.
func (s *Schema) Keys() []string {
	return slices.Sorted(maps.Keys(s.keys))
}

// Validate checks that every entry of p is declared and holds the declared kind.
func (s *Schema) Validate(p Props) error {
	for _, k := range p.Keys() {
		want, ok := s.keys[k]
		if !ok {
			return errors.New(errors.ErrCodeInvalidProperty, "%s: unknown property %q", s.name, k)
		}
		if got := p[k].Kind(); got != want {
			return errors.New(errors.ErrCodeInvalidProperty, "%s: property %q must be %s, got %s", s.name, k, want, got)
		}
	}
	return nil
}

// Merge validates src and merges it into dst (last write wins).
// dst is left untouched when validation fails.
func (s *Schema) Merge(dst, src Props) (Props, error) {
	if err := s.Validate(src); err != nil {
		return dst, err
	}
	return Merge(dst, src), nil
}
