package querycase

import "maps"

// Options is the configuration shared by every node of one query tree.
// Attaching a child hands it the parent's *Options; Clone copies it once for
// the whole cloned tree.
type Options struct {
	m map[string]any
}

// NewOptions returns an empty option set.
func NewOptions() *Options {
	return &Options{m: make(map[string]any)}
}

// Get returns the option value and whether it is set.
func (o *Options) Get(key string) (any, bool) {
	v, ok := o.m[key]
	return v, ok
}

// Set stores an option value.
func (o *Options) Set(key string, v any) {
	o.m[key] = v
}

// Del removes an option and returns its old value.
func (o *Options) Del(key string) any {
	v := o.m[key]
	delete(o.m, key)
	return v
}

// Len returns the number of options set.
func (o *Options) Len() int {
	return len(o.m)
}

func (o *Options) clone() *Options {
	c := &Options{m: make(map[string]any, len(o.m))}
	for k, v := range o.m {
		c.m[k] = cloneValue(v)
	}
	return c
}

// cloneValue copies the container types options are built from; anything
// else is treated as immutable and shared.
func cloneValue(v any) any {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]string:
		return maps.Clone(val)
	case map[string]bool:
		return maps.Clone(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		return out
	case Cloner:
		return val.CloneOption()
	}
	return v
}

// Cloner lets option values with their own structure take part in Clone.
type Cloner interface {
	CloneOption() any
}

// OptionAs returns the option converted to T, or def when it is unset or of
// another type.
func OptionAs[T any](c *Case, key string, def T) T {
	v, ok := c.opts.Get(key)
	if !ok {
		return def
	}
	t, ok := v.(T)
	if !ok {
		return def
	}
	return t
}
