package cache

import "time"

// Default lifetimes for cached exports.
const (
	ImageTTL = 24 * time.Hour
	WebGLTTL = 24 * time.Hour
)

// Key types reported to cache hooks.
const (
	KeyTypeImage = "image"
	KeyTypeWebGL = "webgl"
)

// ImageKeyOpts are the parameters that change a rendered image.
type ImageKeyOpts struct {
	Step    int      `json:"step"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Quality int      `json:"quality"`
	Script  []string `json:"script,omitempty"`
}

// WebGLKeyOpts are the parameters that change a WebGL export.
type WebGLKeyOpts struct {
	Step   int      `json:"step"`
	Script []string `json:"script,omitempty"`
}

// Keyer derives cache keys for exports of a figure state.
// stateHash is [Hash] of the encoded figure state.
type Keyer interface {
	ImageKey(stateHash string, opts ImageKeyOpts) string
	WebGLKey(stateHash string, opts WebGLKeyOpts) string
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) ImageKey(stateHash string, opts ImageKeyOpts) string {
	return hashKey(KeyTypeImage, stateHash, opts)
}

func (DefaultKeyer) WebGLKey(stateHash string, opts WebGLKeyOpts) string {
	return hashKey(KeyTypeWebGL, stateHash, opts)
}
