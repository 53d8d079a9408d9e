package reflect

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// Constructor is a Go function called with already resolved arguments.
// The function must return T or (T, error); an optional leading
// context.Context parameter receives the resolution context.
type Constructor struct {
	fn          reflect.Value
	params      []reflect.Type
	withContext bool
	withError   bool
}

func NewConstructor(fn any, arity int) (*Constructor, error) {
	if fn == nil {
		return nil, errors.New("constructor is nil")
	}

	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %s", t)
	}
	if t.IsVariadic() {
		return nil, errors.New("variadic constructors are not supported")
	}

	switch t.NumOut() {
	case 1:
	case 2:
		if !t.Out(1).Implements(errorType) {
			return nil, errors.New("second return value must implement error")
		}
	default:
		return nil, errors.New("constructor must return (T) or (T, error)")
	}

	params := make([]reflect.Type, t.NumIn())
	for i := range params {
		params[i] = t.In(i)
	}

	c := &Constructor{
		fn:        v,
		params:    params,
		withError: t.NumOut() == 2,
	}
	if len(params) > 0 && params[0] == contextType {
		c.withContext = true
		c.params = params[1:]
	}

	if len(c.params) != arity {
		return nil, fmt.Errorf("constructor takes %d dependencies, %d declared", len(c.params), arity)
	}

	return c, nil
}

// Call invokes the constructor. ctx is passed only when the constructor
// declares a leading context parameter.
func (c *Constructor) Call(ctx context.Context, args []any) (any, error) {
	in := make([]reflect.Value, 0, len(args)+1)
	if c.withContext {
		in = append(in, reflect.ValueOf(ctx))
	}

	for i, arg := range args {
		want := c.params[i]
		if arg == nil {
			in = append(in, reflect.Zero(want))
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(want) {
			return nil, fmt.Errorf("argument %d: cannot use %s as %s", i, v.Type(), want)
		}
		in = append(in, v)
	}

	out := c.fn.Call(in)
	if c.withError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}
