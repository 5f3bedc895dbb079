package telemetry

import (
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ApplyTraceAttributes 把帶 `trace:"key"` tag 的欄位寫成 span attribute
func (t *Trace) ApplyTraceAttributes(span trace.Span, obj interface{}) {
	if span == nil || obj == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			span.RecordError(fmt.Errorf("apply trace attributes: %v", r))
		}
	}()
	span.SetAttributes(attributesOf(obj)...)
}

func attributesOf(obj interface{}) []attribute.KeyValue {
	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}

	typ := val.Type()
	var out []attribute.KeyValue
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("trace")
		if tag == "" {
			continue
		}
		key, omitEmpty := parseTraceTag(tag)
		fv := val.Field(i)
		if !fv.CanInterface() || (omitEmpty && fv.IsZero()) {
			continue
		}

		switch fv.Kind() {
		case reflect.Struct:
			out = append(out, attributesOf(fv.Interface())...)
		case reflect.Ptr:
			if !fv.IsNil() {
				out = append(out, attributesOf(fv.Interface())...)
			}
		case reflect.Map:
			if fv.Type().Key().Kind() != reflect.String {
				continue
			}
			iter := fv.MapRange()
			for iter.Next() {
				if kv, ok := scalarAttribute(key+"."+iter.Key().String(), reflect.ValueOf(iter.Value().Interface())); ok {
					out = append(out, kv)
				}
			}
		default:
			if kv, ok := scalarAttribute(key, fv); ok {
				out = append(out, kv)
			}
		}
	}
	return out
}

func scalarAttribute(key string, v reflect.Value) (attribute.KeyValue, bool) {
	switch v.Kind() {
	case reflect.String:
		return attribute.String(key, v.String()), true
	case reflect.Bool:
		return attribute.Bool(key, v.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return attribute.Int64(key, v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return attribute.Int64(key, int64(v.Uint())), true
	case reflect.Float32, reflect.Float64:
		return attribute.Float64(key, v.Float()), true
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() != reflect.String {
			return attribute.KeyValue{}, false
		}
		strs := make([]string, v.Len())
		for j := range strs {
			strs[j] = v.Index(j).String()
		}
		return attribute.StringSlice(key, strs), true
	}
	return attribute.KeyValue{}, false
}

// "quota.denied_scope,omitempty" -> ("quota.denied_scope", true)
func parseTraceTag(tag string) (string, bool) {
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			return tag[:i], tag[i+1:] == "omitempty"
		}
	}
	return tag, false
}
