package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/property"
)

// Property names promoted out of a descriptor's mapping.
const (
	keyName    = "name"
	keyVisible = "visible"
)

// Descriptor is the persisted form of one drawing object: its property
// mapping plus a name unique within the figure and a visibility flag.
// It serialises as a single flat JSON object.
type Descriptor struct {
	Name    string
	Visible bool
	Props   property.Props
}

// DescriptorOf snapshots the current properties of o.
func DescriptorOf(o Object) Descriptor {
	p := o.Properties()
	d := Descriptor{Name: o.Name(), Visible: true, Props: p}
	if v, ok := p.Get(keyVisible); ok {
		if b, ok := v.AsBool(); ok {
			d.Visible = b
		}
	}
	p.Delete(keyName)
	p.Delete(keyVisible)
	return d
}

// Clone returns a deep copy of d.
func (d Descriptor) Clone() Descriptor {
	d.Props = d.Props.Clone()
	return d
}

// MarshalJSON flattens the name and visibility flag into the mapping.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	out := d.Props.Clone()
	out[keyName] = property.String(d.Name)
	out[keyVisible] = property.Bool(d.Visible)
	return json.Marshal(out)
}

// UnmarshalJSON extracts the name and visibility flag from a flat mapping.
// A missing visibility flag means visible.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var p property.Props
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	out := Descriptor{Visible: true, Props: p}
	if v, ok := p.Get(keyName); ok {
		s, ok := v.AsString()
		if !ok {
			return fmt.Errorf("object name must be a string, got %s", v.Kind())
		}
		out.Name = s
	}
	if v, ok := p.Get(keyVisible); ok {
		b, ok := v.AsBool()
		if !ok {
			return fmt.Errorf("object %q: visible must be a bool, got %s", out.Name, v.Kind())
		}
		out.Visible = b
	}
	p.Delete(keyName)
	p.Delete(keyVisible)
	*d = out
	return nil
}

// FigureState is the persisted visual state of one named figure.
type FigureState struct {
	Figure     string           `json:"figure"`
	Properties property.Props   `json:"properties"`
	Views      []property.Props `json:"views"`
	Objects    []Descriptor     `json:"objects"`
}

// Clone returns a deep copy of fs.
func (fs FigureState) Clone() FigureState {
	out := FigureState{
		Figure:     fs.Figure,
		Properties: fs.Properties.Clone(),
		Views:      make([]property.Props, len(fs.Views)),
		Objects:    make([]Descriptor, len(fs.Objects)),
	}
	for i, v := range fs.Views {
		out.Views[i] = v.Clone()
	}
	for i, o := range fs.Objects {
		out.Objects[i] = o.Clone()
	}
	return out
}

// Object returns the descriptor with the given name.
func (fs FigureState) Object(name string) (Descriptor, bool) {
	for _, o := range fs.Objects {
		if o.Name == name {
			return o, true
		}
	}
	return Descriptor{}, false
}

// VisibleObjects returns the visible descriptors in order.
func (fs FigureState) VisibleObjects() []Descriptor {
	var out []Descriptor
	for _, o := range fs.Objects {
		if o.Visible {
			out = append(out, o)
		}
	}
	return out
}

// Document is the ordered sequence of figure states persisted in a store.
type Document []FigureState

// Decode parses a full state document. Empty input is an empty document.
func Decode(data []byte) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, nil
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStateMalformed, err, "decode state document")
	}
	for i, fs := range doc {
		if fs.Figure == "" {
			return nil, errors.New(errors.ErrCodeStateMalformed, "state document entry %d has no figure name", i)
		}
	}
	return doc, nil
}

// Encode serialises the document with two-space indentation.
func (d Document) Encode() ([]byte, error) {
	if d == nil {
		d = Document{}
	}
	return json.MarshalIndent(d, "", "  ")
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for i, fs := range d {
		out[i] = fs.Clone()
	}
	return out
}

// Names returns the figure names in document order.
func (d Document) Names() []string {
	names := make([]string, len(d))
	for i, fs := range d {
		names[i] = fs.Figure
	}
	return names
}

// Index returns the position of the named figure, or -1.
func (d Document) Index(name string) int {
	return slices.IndexFunc(d, func(fs FigureState) bool { return fs.Figure == name })
}

// Put overwrites the entry with the same figure name or appends fs.
func (d *Document) Put(fs FigureState) {
	if i := d.Index(fs.Figure); i >= 0 {
		(*d)[i] = fs
		return
	}
	*d = append(*d, fs)
}

// Find locates the named figure. When it is absent and fallbackToLast is set,
// the last entry is returned instead and exact is false. An empty document,
// or a missing name without fallback, is a FIGURE_NOT_FOUND error.
func (d Document) Find(name string, fallbackToLast bool) (fs FigureState, exact bool, err error) {
	if i := d.Index(name); i >= 0 {
		return d[i], true, nil
	}
	if len(d) == 0 {
		return FigureState{}, false, errors.New(errors.ErrCodeFigureNotFound, "no figures stored")
	}
	if !fallbackToLast {
		return FigureState{}, false, errors.New(errors.ErrCodeFigureNotFound, "figure %q not found", name)
	}
	return d[len(d)-1], false, nil
}
