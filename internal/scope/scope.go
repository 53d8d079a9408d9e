package scope

type Scope int

const (
	Singleton Scope = iota
	Request
	Transient
)

func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case Request:
		return "request"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

func (s Scope) Valid() bool {
	return s >= Singleton && s <= Transient
}

// Cached reports whether instances of the scope are stored somewhere after construction.
func (s Scope) Cached() bool {
	return s != Transient
}
