package stitch

import (
	"context"

	"github.com/danpasecinic/stitch/internal/reflect"
)

const TagKey = "stitch"

// Struct registers a provider that builds T by filling its tagged fields:
//
//	type Handler struct {
//		Users *UserService `stitch:""`
//		Cache *Cache       `stitch:"cache.redis,optional"`
//		Audit *stitch.Lazy `stitch:"audit.log,lazy"`
//	}
//
// An empty token means the field's type token. Tagged fields become the
// provider's first dependencies, in field order.
func Struct[T any](token Token, opts ...ProviderOption) Provider {
	fields, err := reflect.StructFields[T](TagKey)

	deps := make([]Dependency, len(fields))
	for i, f := range fields {
		deps[i] = Dependency{Token: Token(f.Token), Optional: f.Optional, Lazy: f.Lazy}
	}

	opts = append([]ProviderOption{WithDependencies(deps...)}, opts...)
	p := newProvider(token, nil, opts)
	if err != nil {
		p.err = err
		return p
	}

	p.Build = func(_ context.Context, args []any) (any, error) {
		return reflect.FillStruct[T](fields, args)
	}
	return p
}

// ProvideStruct is Struct keyed by the type token of T.
func ProvideStruct[T any](opts ...ProviderOption) Provider {
	return Struct[T](TypeToken[T](), opts...)
}
