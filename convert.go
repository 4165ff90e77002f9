package cascade

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Converter holds the bidirectional string conversion logic for one value
// type. Both functions must round-trip: FromString(ToString(v)) == v.
type Converter struct {
	ToString   func(v any) (string, error)
	FromString func(s string) (any, error)
}

// Converters is a thread-safe, append-only converter registry. Registration
// swaps a fresh copy of the map behind a lock so lookups never contend.
type Converters struct {
	mu sync.Mutex
	m  atomic.Value // map[reflect.Type]Converter
}

// NewConverters creates an empty registry, typically used for per-strategy
// overrides of the global registry.
func NewConverters() *Converters {
	c := &Converters{}
	c.m.Store(map[reflect.Type]Converter{})
	return c
}

// Register adds or replaces the converter for a type.
func (c *Converters) Register(t reflect.Type, conv Converter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.m.Load().(map[reflect.Type]Converter)
	next := make(map[reflect.Type]Converter, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[t] = conv
	c.m.Store(next)
}

// Lookup returns the converter registered for a type, if any. Automatic
// converters (TextMarshaler types, slices) are resolved by converterFor, not
// here.
func (c *Converters) Lookup(t reflect.Type) (Converter, bool) {
	conv, ok := c.m.Load().(map[reflect.Type]Converter)[t]
	return conv, ok
}

// globalConverters is the process-wide registry, seeded with built-in
// converters for the primitive types plus time.Duration and time.Time.
var globalConverters = NewConverters()

// RegisterConverter registers a converter in the global registry. Strategy
// override registries take precedence over global registrations.
func RegisterConverter(t reflect.Type, conv Converter) {
	globalConverters.Register(t, conv)
}

// converterFor resolves a converter for a type: strategy overrides first,
// then the global registry, then the automatic TextMarshaler and slice code
// paths.
func converterFor(t reflect.Type, overrides *Converters) (Converter, bool) {
	if overrides != nil {
		if conv, ok := overrides.Lookup(t); ok {
			return conv, true
		}
	}
	if conv, ok := globalConverters.Lookup(t); ok {
		return conv, true
	}
	if conv, ok := textConverter(t); ok {
		return conv, true
	}
	if conv, ok := sliceConverter(t, overrides); ok {
		return conv, true
	}
	return Converter{}, false
}

// convertible reports whether a type can be converted to and from a string,
// through the override registry, the global registry, or an automatic path.
func convertible(t reflect.Type, overrides *Converters) bool {
	_, ok := converterFor(t, overrides)
	return ok
}

var (
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// textConverter builds a converter for types implementing both
// encoding.TextMarshaler and encoding.TextUnmarshaler. Enumeration-style
// types get their string conversion this way without explicit registration.
func textConverter(t reflect.Type) (Converter, bool) {
	if !t.Implements(textMarshalerType) && !reflect.PointerTo(t).Implements(textMarshalerType) {
		return Converter{}, false
	}
	if !reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return Converter{}, false
	}

	return Converter{
		ToString: func(v any) (string, error) {
			m, ok := v.(encoding.TextMarshaler)
			if !ok {
				// Marshaler on pointer receiver only.
				p := reflect.New(t)
				p.Elem().Set(reflect.ValueOf(v))
				m = p.Interface().(encoding.TextMarshaler)
			}
			b, err := m.MarshalText()
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
		FromString: func(s string) (any, error) {
			p := reflect.New(t)
			if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
				return nil, err
			}
			return p.Elem().Interface(), nil
		},
	}, true
}

// sliceConverter builds a comma-joined converter for slices whose element
// type is itself convertible.
func sliceConverter(t reflect.Type, overrides *Converters) (Converter, bool) {
	if t.Kind() != reflect.Slice {
		return Converter{}, false
	}
	elemConv, ok := converterFor(t.Elem(), overrides)
	if !ok {
		return Converter{}, false
	}

	elem := t.Elem()
	return Converter{
		ToString: func(v any) (string, error) {
			rv := reflect.ValueOf(v)
			if rv.Type() != t {
				return "", fmt.Errorf("expected %s, got %T", t, v)
			}
			parts := make([]string, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				s, err := elemConv.ToString(rv.Index(i).Interface())
				if err != nil {
					return "", err
				}
				parts[i] = s
			}
			return strings.Join(parts, ","), nil
		},
		FromString: func(s string) (any, error) {
			if s == "" {
				return reflect.MakeSlice(t, 0, 0).Interface(), nil
			}
			parts := strings.Split(s, ",")
			rv := reflect.MakeSlice(t, len(parts), len(parts))
			for i, part := range parts {
				v, err := elemConv.FromString(strings.TrimSpace(part))
				if err != nil {
					return nil, err
				}
				rv.Index(i).Set(reflect.ValueOf(v).Convert(elem))
			}
			return rv.Interface(), nil
		},
	}, true
}

func init() {
	register := func(t reflect.Type, conv Converter) {
		globalConverters.Register(t, conv)
	}

	register(reflect.TypeOf(""), Converter{
		ToString:   func(v any) (string, error) { return v.(string), nil },
		FromString: func(s string) (any, error) { return s, nil },
	})
	register(reflect.TypeOf(false), Converter{
		ToString:   func(v any) (string, error) { return strconv.FormatBool(v.(bool)), nil },
		FromString: func(s string) (any, error) { return strconv.ParseBool(s) },
	})
	register(reflect.TypeOf(float32(0)), Converter{
		ToString: func(v any) (string, error) {
			return strconv.FormatFloat(float64(v.(float32)), 'f', -1, 32), nil
		},
		FromString: func(s string) (any, error) {
			f, err := strconv.ParseFloat(s, 32)
			return float32(f), err
		},
	})
	register(reflect.TypeOf(float64(0)), Converter{
		ToString: func(v any) (string, error) {
			return strconv.FormatFloat(v.(float64), 'f', -1, 64), nil
		},
		FromString: func(s string) (any, error) { return strconv.ParseFloat(s, 64) },
	})
	register(reflect.TypeOf(time.Duration(0)), Converter{
		ToString:   func(v any) (string, error) { return v.(time.Duration).String(), nil },
		FromString: func(s string) (any, error) { return time.ParseDuration(s) },
	})
	register(reflect.TypeOf(time.Time{}), Converter{
		ToString: func(v any) (string, error) {
			return v.(time.Time).Format(time.RFC3339Nano), nil
		},
		FromString: func(s string) (any, error) { return time.Parse(time.RFC3339Nano, s) },
	})

	registerInt[int](register)
	registerInt[int8](register)
	registerInt[int16](register)
	registerInt[int32](register)
	registerInt[int64](register)
	registerUint[uint](register)
	registerUint[uint8](register)
	registerUint[uint16](register)
	registerUint[uint32](register)
	registerUint[uint64](register)
}

func registerInt[T int | int8 | int16 | int32 | int64](register func(reflect.Type, Converter)) {
	var zero T
	t := reflect.TypeOf(zero)
	bits := t.Bits()
	register(t, Converter{
		ToString: func(v any) (string, error) {
			return strconv.FormatInt(int64(v.(T)), 10), nil
		},
		FromString: func(s string) (any, error) {
			i, err := strconv.ParseInt(s, 10, bits)
			return T(i), err
		},
	})
}

func registerUint[T uint | uint8 | uint16 | uint32 | uint64](register func(reflect.Type, Converter)) {
	var zero T
	t := reflect.TypeOf(zero)
	bits := t.Bits()
	register(t, Converter{
		ToString: func(v any) (string, error) {
			return strconv.FormatUint(uint64(v.(T)), 10), nil
		},
		FromString: func(s string) (any, error) {
			u, err := strconv.ParseUint(s, 10, bits)
			return T(u), err
		},
	})
}
