// Package reflect derives provider tokens from Go types and calls
// constructors and struct literals through reflection.
package reflect

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
)

var keys sync.Map

// TypeKey returns a token for T that is stable across calls and unique per
// type identity: named types are qualified by their full package path.
func TypeKey[T any]() string {
	return typeKeyFromReflect(reflect.TypeOf((*T)(nil)).Elem())
}

// TypeKeyNamed qualifies the type key of T with name, as in "*pkg.DB#primary".
func TypeKeyNamed[T any](name string) string {
	return TypeKey[T]() + "#" + name
}

// TypeName is the short, package-name-qualified form used in messages.
func TypeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

func typeKeyFromReflect(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if key, ok := keys.Load(t); ok {
		return key.(string)
	}

	var b strings.Builder
	writeKey(&b, t)
	key, _ := keys.LoadOrStore(t, b.String())
	return key.(string)
}

func writeKey(b *strings.Builder, t reflect.Type) {
	if t.Name() != "" {
		if pkg := t.PkgPath(); pkg != "" {
			b.WriteString(pkg)
			b.WriteByte('.')
		}
		b.WriteString(t.Name())
		return
	}

	switch t.Kind() {
	case reflect.Pointer:
		b.WriteByte('*')
		writeKey(b, t.Elem())
	case reflect.Slice:
		b.WriteString("[]")
		writeKey(b, t.Elem())
	case reflect.Array:
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(t.Len()))
		b.WriteByte(']')
		writeKey(b, t.Elem())
	case reflect.Map:
		b.WriteString("map[")
		writeKey(b, t.Key())
		b.WriteByte(']')
		writeKey(b, t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			b.WriteString("<-chan ")
		case reflect.SendDir:
			b.WriteString("chan<- ")
		default:
			b.WriteString("chan ")
		}
		writeKey(b, t.Elem())
	default:
		b.WriteString(t.String())
	}
}
