package cascade

import (
	"reflect"
	"time"
)

// entryFactories maps a runtime type to a constructor for a type-erased item
// cell of that type. Persistence strategies use this (through
// Node.LoadSetting) to materialize items for values they discover in backing
// storage, without reflective construction at load time.
var entryFactories = map[reflect.Type]func(n *Node, name string) *entry{}

func registerFactory(t reflect.Type) {
	entryFactories[t] = func(n *Node, name string) *entry {
		return newEntry(n, name, t)
	}
}

func init() {
	for _, t := range []reflect.Type{
		reflect.TypeOf(""),
		reflect.TypeOf(false),
		reflect.TypeOf(int(0)),
		reflect.TypeOf(int8(0)),
		reflect.TypeOf(int16(0)),
		reflect.TypeOf(int32(0)),
		reflect.TypeOf(int64(0)),
		reflect.TypeOf(uint(0)),
		reflect.TypeOf(uint8(0)),
		reflect.TypeOf(uint16(0)),
		reflect.TypeOf(uint32(0)),
		reflect.TypeOf(uint64(0)),
		reflect.TypeOf(float32(0)),
		reflect.TypeOf(float64(0)),
		reflect.TypeOf(time.Duration(0)),
		reflect.TypeOf(time.Time{}),
		reflect.TypeOf([]string(nil)),
		reflect.TypeOf([]int(nil)),
	} {
		registerFactory(t)
	}
}

// newEntryForType constructs an item cell for a runtime type token. Types
// outside the factory registry are still accepted when they are slices of
// convertible elements or carry their own text conversion, mirroring the
// converter registry's automatic paths.
func newEntryForType(n *Node, name string, t reflect.Type) (*entry, error) {
	if f, ok := entryFactories[t]; ok {
		return f(n, name), nil
	}
	if convertible(t, nil) {
		return newEntry(n, name, t), nil
	}
	return nil, configErr("create item", joinPath(n.path, name), ErrUnsupportedType)
}
