package property

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// Props maps lower-cased property names to values.
type Props map[string]Value

// Key normalises a property name. Property names are case-insensitive.
func Key(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// Set stores v under the normalised key k.
func (p Props) Set(k string, v Value) { p[Key(k)] = v }

// Get returns the value stored under k.
func (p Props) Get(k string) (Value, bool) {
	v, ok := p[Key(k)]
	return v, ok
}

// Has reports whether k is present.
func (p Props) Has(k string) bool {
	_, ok := p[Key(k)]
	return ok
}

// Delete removes k.
func (p Props) Delete(k string) { delete(p, Key(k)) }

// Clone returns a copy of p. A nil Props clones to an empty map.
func (p Props) Clone() Props {
	out := make(Props, len(p))
	maps.Copy(out, p)
	return out
}

// Keys returns the property names in sorted order.
func (p Props) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

// Equal reports whether p and o hold the same keys and values.
func (p Props) Equal(o Props) bool {
	return maps.EqualFunc(p, o, Value.Equal)
}

// GetString returns the string stored under k, or def.
func (p Props) GetString(k, def string) string {
	if v, ok := p.Get(k); ok {
		if s, ok := v.AsString(); ok {
			return s
		}
	}
	return def
}

// GetNumber returns the number stored under k, or def.
func (p Props) GetNumber(k string, def float64) float64 {
	if v, ok := p.Get(k); ok {
		if f, ok := v.AsNumber(); ok {
			return f
		}
	}
	return def
}

// GetBool returns the boolean stored under k, or def.
func (p Props) GetBool(k string, def bool) bool {
	if v, ok := p.Get(k); ok {
		if b, ok := v.AsBool(); ok {
			return b
		}
	}
	return def
}

// Encode renders p as sorted "key=value" lines, the form the native drawing
// objects accept.
func (p Props) Encode() string {
	var b strings.Builder
	for _, k := range p.Keys() {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p[k].String())
		b.WriteByte('\n')
	}
	return b.String()
}

// UnmarshalJSON decodes a JSON object and normalises its keys.
func (p *Props) UnmarshalJSON(data []byte) error {
	var raw map[string]Value
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Props, len(raw))
	for k, v := range raw {
		out[Key(k)] = v
	}
	*p = out
	return nil
}

// Merge copies every entry of src into dst, replacing values of existing keys
// (last write wins). A nil dst is allocated. The merged map is returned.
func Merge(dst, src Props) Props {
	if dst == nil {
		dst = make(Props, len(src))
	}
	for k, v := range src {
		dst[Key(k)] = v
	}
	return dst
}

// Defaults copies the entries of defaults whose keys are absent from dst.
// Values already present in dst are kept. A nil dst is allocated.
func Defaults(dst, defaults Props) Props {
	if dst == nil {
		dst = make(Props, len(defaults))
	}
	for k, v := range defaults {
		k = Key(k)
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
	return dst
}
