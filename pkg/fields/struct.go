package fields

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// FromStruct builds a registry for a struct element type by reflecting
// over its exported fields once. Pointer fields register as nullable,
// time.Time registers as KindTime and []byte as KindBytes; fields of
// unsupported kinds are skipped. Column names follow the db tag, then
// the json tag, then the Go field name; a "-" tag skips the field.
//
// T may be a struct or a pointer to one. Access after construction is a
// single indexed reflect.Value.Field call per element.
func FromStruct[T any](opts ...Option[T]) (*Registry[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	deref := false
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
		deref = true
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("fields: element type %s is not a struct", t)
	}

	fs := make([]Field[T], 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		name, skip := columnName(sf)
		if skip {
			continue
		}
		kind, nullable, ok := kindOfType(sf.Type)
		if !ok {
			continue
		}
		idx := i
		ptrField := sf.Type.Kind() == reflect.Ptr
		fs = append(fs, Field[T]{
			Name:     name,
			Kind:     kind,
			Nullable: nullable,
			Get: func(v T) (interface{}, bool) {
				rv := reflect.ValueOf(v)
				if deref {
					if rv.IsNil() {
						return nil, false
					}
					rv = rv.Elem()
				}
				fv := rv.Field(idx)
				if ptrField {
					if fv.IsNil() {
						return nil, false
					}
					fv = fv.Elem()
				}
				return fv.Interface(), true
			},
		})
	}
	return NewRegistry(fs, opts...), nil
}

// columnName resolves the registered name: db tag, then json tag, then
// the field name. "-" in either tag skips the field.
func columnName(sf reflect.StructField) (string, bool) {
	if tag, ok := sf.Tag.Lookup("db"); ok {
		name := tagName(tag)
		if name == "-" {
			return "", true
		}
		if name != "" {
			return name, false
		}
	} else if tag, ok := sf.Tag.Lookup("json"); ok {
		name := tagName(tag)
		if name == "-" {
			return "", true
		}
		if name != "" {
			return name, false
		}
	}
	return sf.Name, false
}

// tagName extracts the name part of a tag value, before any comma.
func tagName(tag string) string {
	if idx := strings.Index(tag, ","); idx != -1 {
		return tag[:idx]
	}
	return tag
}

// kindOfType classifies a struct field type, unwrapping one pointer
// level as nullability.
func kindOfType(t reflect.Type) (Kind, bool, bool) {
	nullable := false
	if t.Kind() == reflect.Ptr {
		nullable = true
		t = t.Elem()
	}
	if t == timeType {
		return KindTime, nullable, true
	}
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return KindBytes, nullable, true
	}
	switch t.Kind() {
	case reflect.Bool:
		return KindBool, nullable, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt, nullable, true
	case reflect.Float32, reflect.Float64:
		return KindFloat, nullable, true
	case reflect.String:
		return KindString, nullable, true
	}
	return KindInvalid, false, false
}
