package document

import (
	"fmt"
	"math"
	"reflect"
	"time"
)

// Converter handles native types unknown to FromNative, such as SDK
// reference or coordinate types. It reports false to decline.
type Converter func(v any) (Value, bool, error)

// FromNative converts a native Go value into a Value
func FromNative(v any, extra ...Converter) (Value, error) {
	for _, c := range extra {
		if out, ok, err := c(v); ok || err != nil {
			return out, err
		}
	}

	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return BoolValue(x), nil
	case int:
		return IntegerValue(int64(x)), nil
	case int8:
		return IntegerValue(int64(x)), nil
	case int16:
		return IntegerValue(int64(x)), nil
	case int32:
		return IntegerValue(int64(x)), nil
	case int64:
		return IntegerValue(x), nil
	case uint8:
		return IntegerValue(int64(x)), nil
	case uint16:
		return IntegerValue(int64(x)), nil
	case uint32:
		return IntegerValue(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, fmt.Errorf("integer %d overflows int64", x)
		}
		return IntegerValue(int64(x)), nil
	case float32:
		return DoubleValue(float64(x)), nil
	case float64:
		return DoubleValue(x), nil
	case string:
		return StringValue(x), nil
	case []byte:
		return BytesValue(x), nil
	case time.Time:
		return TimestampValue(x), nil
	case *time.Time:
		if x == nil {
			return Null(), nil
		}
		return TimestampValue(*x), nil
	case GeoPoint:
		return GeoPointValue(x.Latitude, x.Longitude), nil
	case []any:
		return nativeArray(x, extra)
	case map[string]any:
		return nativeMap(x, extra)
	}

	// Typed slices and maps, e.g. []string or map[string]int
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		values := make([]Value, rv.Len())
		for i := range values {
			e, err := FromNative(rv.Index(i).Interface(), extra...)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			values[i] = e
		}
		return Value{typ: TypeArray, arr: values}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		fields := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			e, err := FromNative(iter.Value().Interface(), extra...)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", iter.Key().String(), err)
			}
			fields[iter.Key().String()] = e
		}
		return Value{typ: TypeMap, m: fields}, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), nil
		}
		return FromNative(rv.Elem().Interface(), extra...)
	}

	return Value{}, fmt.Errorf("unsupported native type %T", v)
}

// FieldsFromNative converts a native document map into fields
func FieldsFromNative(data map[string]any, extra ...Converter) (map[string]Value, error) {
	fields := make(map[string]Value, len(data))
	for k, v := range data {
		fv, err := FromNative(v, extra...)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		fields[k] = fv
	}
	return fields, nil
}

func nativeArray(in []any, extra []Converter) (Value, error) {
	values := make([]Value, len(in))
	for i, e := range in {
		v, err := FromNative(e, extra...)
		if err != nil {
			return Value{}, fmt.Errorf("[%d]: %w", i, err)
		}
		values[i] = v
	}
	return Value{typ: TypeArray, arr: values}, nil
}

func nativeMap(in map[string]any, extra []Converter) (Value, error) {
	fields, err := FieldsFromNative(in, extra...)
	if err != nil {
		return Value{}, err
	}
	return Value{typ: TypeMap, m: fields}, nil
}
