package reflect

import (
	"fmt"
	"reflect"
	"strings"
)

// StructField is a field marked for injection with a struct tag of the form
// `stitch:"token,optional,lazy"`. An empty token means the field's type key.
type StructField struct {
	Name     string
	Index    int
	Token    string
	Optional bool
	Lazy     bool
}

func StructFields[T any](tagKey string) ([]StructField, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct", t)
	}

	var fields []StructField
	for i := range t.NumField() {
		f := t.Field(i)
		tag, ok := f.Tag.Lookup(tagKey)
		if !ok || tag == "-" {
			continue
		}
		if !f.IsExported() {
			return nil, fmt.Errorf("field %s is tagged but unexported", f.Name)
		}

		parts := strings.Split(tag, ",")
		field := StructField{Name: f.Name, Index: i, Token: strings.TrimSpace(parts[0])}
		for _, opt := range parts[1:] {
			switch strings.TrimSpace(opt) {
			case "optional":
				field.Optional = true
			case "lazy":
				field.Lazy = true
			case "":
			default:
				return nil, fmt.Errorf("field %s: unknown tag option %q", f.Name, opt)
			}
		}
		if field.Token == "" {
			if field.Lazy {
				return nil, fmt.Errorf("field %s: lazy fields need an explicit token", f.Name)
			}
			field.Token = typeKeyFromReflect(f.Type)
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// FillStruct builds a T whose tagged fields take args in field order. Nil
// args leave the field at its zero value.
func FillStruct[T any](fields []StructField, args []any) (T, error) {
	var zero T

	t := reflect.TypeOf((*T)(nil)).Elem()
	isPtr := t.Kind() == reflect.Ptr
	if isPtr {
		t = t.Elem()
	}

	v := reflect.New(t)
	for i, field := range fields {
		if args[i] == nil {
			continue
		}
		fv := v.Elem().Field(field.Index)
		av := reflect.ValueOf(args[i])
		if !av.Type().AssignableTo(fv.Type()) {
			return zero, fmt.Errorf("cannot assign %s to field %s of type %s", av.Type(), field.Name, fv.Type())
		}
		fv.Set(av)
	}

	if isPtr {
		return v.Interface().(T), nil
	}
	return v.Elem().Interface().(T), nil
}
