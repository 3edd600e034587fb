package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// params holds the free-form settings of an effect table. TOML integers decode as int64 and
// floats as float64.
type params map[string]any

// setter applies one named parameter if it is present.
type setter struct {
	key   string
	apply func(v any) error
}

// apply runs every setter and rejects keys no setter consumed.
func (p params) apply(setters ...setter) error {
	known := map[string]bool{}
	for _, s := range setters {
		known[s.key] = true
		v, ok := p[s.key]
		if !ok {
			continue
		}
		if err := s.apply(v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, s.key, err)
		}
	}
	for _, key := range slices.Sorted(maps.Keys(p)) {
		if !known[key] && !builderKeys[key] {
			return fmt.Errorf("%w: unknown parameter %q", ErrInvalidValue, key)
		}
	}
	return nil
}

// builderKeys are consumed by the effect constructors rather than by setters.
var builderKeys = map[string]bool{
	"blur":        true,
	"levels":      true,
	"radius":      true,
	"kernel_size": true,
	"bits":        true,
	"granularity": true,
	"mode":        true,
	"technique":   true,
}

func floatSetter(key string, fn func(float32)) setter {
	return setter{key: key, apply: func(v any) error {
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		fn(f)
		return nil
	}}
}

func boolSetter(key string, fn func(bool)) setter {
	return setter{key: key, apply: func(v any) error {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("want a boolean, got %T", v)
		}
		fn(b)
		return nil
	}}
}

func toFloat(v any) (float32, error) {
	switch n := v.(type) {
	case float64:
		return float32(n), nil
	case int64:
		return float32(n), nil
	}
	return 0, fmt.Errorf("want a number, got %T", v)
}

func (p params) float(key string, def float32) (float32, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err)
	}
	return f, nil
}

func (p params) integer(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: %s: want an integer, got %T", ErrInvalidValue, key, v)
	}
	return int(n), nil
}

// str returns the lower case string at key, or def when absent or not a string.
func (p params) str(key, def string) (string, bool) {
	s, ok := p[key].(string)
	if !ok {
		return def, false
	}
	return strings.ToLower(s), true
}
