package stitch

import "github.com/danpasecinic/stitch/internal/reflect"

// Token identifies a provider. Any string works; TypeToken derives one from a
// Go type so typed helpers and constructors agree on keys.
type Token string

func (t Token) String() string {
	return string(t)
}

func TypeToken[T any]() Token {
	return Token(reflect.TypeKey[T]())
}

func NamedToken[T any](name string) Token {
	return Token(reflect.TypeKeyNamed[T](name))
}

// ModuleRefToken resolves to the *ModuleRef of the requesting module. Every
// module provides it implicitly.
const ModuleRefToken Token = "stitch.ModuleRef"
