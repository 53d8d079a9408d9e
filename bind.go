package stitch

// Bind registers the type token of interface I as an alias of the provider
// registered under the type token of T.
func Bind[I, T any]() Provider {
	return Existing(TypeToken[I](), TypeToken[T]())
}

func BindNamed[I, T any](name string) Provider {
	return Existing(NamedToken[I](name), TypeToken[T]())
}
