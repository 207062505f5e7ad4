package rpc

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Payload is the transformer envelope for one value on the wire. Meta.Values
// maps dotted paths to the rich type of the value found there, so clients can
// revive dates that JSON flattens into strings.
type Payload struct {
	JSON json.RawMessage `json:"json"`
	Meta *Meta           `json:"meta,omitempty"`
}

type Meta struct {
	Values map[string][]string `json:"values"`
}

const typeDate = "Date"

var timeType = reflect.TypeOf(time.Time{})

// Encode serializes v and annotates every time.Time it contains.
func Encode(v any) (Payload, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Payload{}, err
	}
	values := map[string][]string{}
	annotate(reflect.ValueOf(v), "", values)

	p := Payload{JSON: raw}
	if len(values) > 0 {
		p.Meta = &Meta{Values: values}
	}
	return p, nil
}

// Decode unmarshals the payload into out. Dates arrive as RFC 3339 strings,
// which time.Time already understands, so Meta needs no replay here.
func Decode(p Payload, out any) error {
	if len(p.JSON) == 0 || out == nil {
		return nil
	}
	return json.Unmarshal(p.JSON, out)
}

func annotate(v reflect.Value, path string, values map[string][]string) {
	if !v.IsValid() {
		return
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}

	if v.Type() == timeType {
		values[path] = []string{typeDate}
		return
	}

	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name, omitEmpty, skip := jsonName(field)
			if skip {
				continue
			}
			fv := v.Field(i)
			if omitEmpty && fv.IsZero() {
				continue
			}
			if field.Anonymous && name == "" {
				annotate(fv, path, values)
				continue
			}
			if name == "" {
				name = field.Name
			}
			annotate(fv, join(path, name), values)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			annotate(v.Index(i), join(path, strconv.Itoa(i)), values)
		}
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return
		}
		iter := v.MapRange()
		for iter.Next() {
			annotate(iter.Value(), join(path, iter.Key().String()), values)
		}
	}
}

func jsonName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	return name, strings.Contains(opts, "omitempty"), false
}

func join(path, segment string) string {
	if path == "" {
		return segment
	}
	return path + "." + segment
}
