package drawing

import (
	"slices"
	"strings"

	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/property"
)

// DefaultColours is the colour list of [DefaultColourMap].
var DefaultColours = []string{"#288FD0", "#50B6B8", "#989878", "#C68838", "#FF7520"}

// ColourMap maps field values onto a list of colours.
type ColourMap struct {
	colours  []string
	min, max float64
	dynamic  bool
	logScale bool
	discrete bool
}

// ColourMapOption configures a [ColourMap].
type ColourMapOption func(*ColourMap)

// WithValueRange fixes the mapped value range. Without it the range follows
// the field values.
func WithValueRange(lo, hi float64) ColourMapOption {
	return func(c *ColourMap) { c.min, c.max, c.dynamic = lo, hi, false }
}

// WithLogScale maps values logarithmically.
func WithLogScale() ColourMapOption { return func(c *ColourMap) { c.logScale = true } }

// WithDiscrete draws discrete colour bands instead of a gradient.
func WithDiscrete() ColourMapOption { return func(c *ColourMap) { c.discrete = true } }

// NewColourMap validates and builds a colour map.
func NewColourMap(colours []string, opts ...ColourMapOption) (*ColourMap, error) {
	cs := make([]string, 0, len(colours))
	for _, c := range colours {
		if c = strings.TrimSpace(c); c != "" {
			cs = append(cs, c)
		}
	}
	if len(cs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "colour map needs at least one colour")
	}
	cm := &ColourMap{colours: cs, dynamic: true}
	for _, opt := range opts {
		opt(cm)
	}
	if !cm.dynamic && cm.min >= cm.max {
		return nil, errors.New(errors.ErrCodeInvalidArgument,
			"colour map value range minimum %g must be smaller than maximum %g", cm.min, cm.max)
	}
	return cm, nil
}

// ParseColours splits a space separated colour list.
func ParseColours(s string) []string { return strings.Fields(s) }

// DefaultColourMap returns a map over [DefaultColours] with a dynamic range.
func DefaultColourMap() *ColourMap {
	return &ColourMap{colours: slices.Clone(DefaultColours), dynamic: true}
}

func (c *ColourMap) Colours() []string { return slices.Clone(c.colours) }

// ValueRange returns the fixed range. It is meaningless when DynamicRange is true.
func (c *ColourMap) ValueRange() (lo, hi float64) { return c.min, c.max }

func (c *ColourMap) DynamicRange() bool { return c.dynamic }
func (c *ColourMap) LogScale() bool     { return c.logScale }
func (c *ColourMap) Discrete() bool     { return c.discrete }

// String returns the colours in the space separated form the engine reads.
func (c *ColourMap) String() string { return strings.Join(c.colours, " ") }

// Properties returns the colour map as engine properties.
func (c *ColourMap) Properties() property.Props {
	p := property.Props{
		"colours":      property.String(c.String()),
		"logscale":     property.Bool(c.logScale),
		"discrete":     property.Bool(c.discrete),
		"dynamicrange": property.Bool(c.dynamic),
	}
	if !c.dynamic {
		p["range"] = property.List(c.min, c.max)
	}
	return p
}
