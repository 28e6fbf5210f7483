// Package document holds the tagged-variant value type used for document
// fields, together with conversions from the listen protocol's JSON wire
// representation and from native Go values handed out by SDK clients.
package document

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"time"
)

// Type identifies the variant held by a Value
type Type uint8

const (
	TypeNull Type = iota
	TypeBoolean
	TypeInteger
	TypeDouble
	TypeTimestamp
	TypeString
	TypeBytes
	TypeReference
	TypeGeoPoint
	TypeArray
	TypeMap
)

var typeNames = [...]string{
	TypeNull:      "null",
	TypeBoolean:   "boolean",
	TypeInteger:   "integer",
	TypeDouble:    "double",
	TypeTimestamp: "timestamp",
	TypeString:    "string",
	TypeBytes:     "bytes",
	TypeReference: "reference",
	TypeGeoPoint:  "geopoint",
	TypeArray:     "array",
	TypeMap:       "map",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// GeoPoint is a latitude/longitude pair
type GeoPoint struct {
	Latitude  float64 `json:"latitude" msgpack:"lat"`
	Longitude float64 `json:"longitude" msgpack:"lng"`
}

// Value is an immutable document field value. The zero Value is null.
type Value struct {
	typ Type
	b   bool
	i   int64
	f   float64
	s   string // string and reference payloads
	t   time.Time
	raw []byte
	geo GeoPoint
	arr []Value
	m   map[string]Value
}

// Null returns the null value
func Null() Value { return Value{} }

// BoolValue wraps a boolean
func BoolValue(b bool) Value { return Value{typ: TypeBoolean, b: b} }

// IntegerValue wraps a 64-bit integer
func IntegerValue(i int64) Value { return Value{typ: TypeInteger, i: i} }

// DoubleValue wraps a float
func DoubleValue(f float64) Value { return Value{typ: TypeDouble, f: f} }

// TimestampValue wraps a point in time, normalized to UTC
func TimestampValue(t time.Time) Value { return Value{typ: TypeTimestamp, t: t.UTC()} }

// StringValue wraps a string
func StringValue(s string) Value { return Value{typ: TypeString, s: s} }

// BytesValue wraps a copy of b
func BytesValue(b []byte) Value {
	return Value{typ: TypeBytes, raw: append([]byte(nil), b...)}
}

// ReferenceValue wraps a document resource name
func ReferenceValue(name string) Value { return Value{typ: TypeReference, s: name} }

// GeoPointValue wraps a coordinate pair
func GeoPointValue(lat, lng float64) Value {
	return Value{typ: TypeGeoPoint, geo: GeoPoint{Latitude: lat, Longitude: lng}}
}

// ArrayValue wraps a copy of values
func ArrayValue(values ...Value) Value {
	return Value{typ: TypeArray, arr: append([]Value{}, values...)}
}

// MapValue wraps a copy of fields
func MapValue(fields map[string]Value) Value {
	m := make(map[string]Value, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return Value{typ: TypeMap, m: m}
}

// Type returns the variant tag
func (v Value) Type() Type { return v.typ }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.typ == TypeNull }

func (v Value) Bool() (bool, bool)           { return v.b, v.typ == TypeBoolean }
func (v Value) Integer() (int64, bool)       { return v.i, v.typ == TypeInteger }
func (v Value) Double() (float64, bool)      { return v.f, v.typ == TypeDouble }
func (v Value) Timestamp() (time.Time, bool) { return v.t, v.typ == TypeTimestamp }
func (v Value) Str() (string, bool)          { return v.s, v.typ == TypeString }
func (v Value) Reference() (string, bool)    { return v.s, v.typ == TypeReference }
func (v Value) GeoPoint() (GeoPoint, bool)   { return v.geo, v.typ == TypeGeoPoint }

// Bytes returns a copy of the byte payload
func (v Value) Bytes() ([]byte, bool) {
	if v.typ != TypeBytes {
		return nil, false
	}
	return append([]byte(nil), v.raw...), true
}

// Array returns a copy of the elements
func (v Value) Array() ([]Value, bool) {
	if v.typ != TypeArray {
		return nil, false
	}
	return append([]Value{}, v.arr...), true
}

// Map returns a copy of the nested fields
func (v Value) Map() (map[string]Value, bool) {
	if v.typ != TypeMap {
		return nil, false
	}
	m := make(map[string]Value, len(v.m))
	for k, f := range v.m {
		m[k] = f
	}
	return m, true
}

// Native converts v to plain Go values: nil, bool, int64, float64, time.Time,
// string, []byte, GeoPoint, []any and map[string]any. References become their
// resource name string.
func (v Value) Native() any {
	switch v.typ {
	case TypeBoolean:
		return v.b
	case TypeInteger:
		return v.i
	case TypeDouble:
		return v.f
	case TypeTimestamp:
		return v.t
	case TypeString, TypeReference:
		return v.s
	case TypeBytes:
		return append([]byte(nil), v.raw...)
	case TypeGeoPoint:
		return v.geo
	case TypeArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Native()
		}
		return out
	case TypeMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = e.Native()
		}
		return out
	default:
		return nil
	}
}

// Equal reports deep equality. NaN doubles compare equal to each other.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeNull:
		return true
	case TypeBoolean:
		return v.b == o.b
	case TypeInteger:
		return v.i == o.i
	case TypeDouble:
		if math.IsNaN(v.f) && math.IsNaN(o.f) {
			return true
		}
		return v.f == o.f
	case TypeTimestamp:
		return v.t.Equal(o.t)
	case TypeString, TypeReference:
		return v.s == o.s
	case TypeBytes:
		return bytes.Equal(v.raw, o.raw)
	case TypeGeoPoint:
		return v.geo == o.geo
	case TypeArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case TypeMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, e := range v.m {
			oe, ok := o.m[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) String() string {
	switch v.typ {
	case TypeNull:
		return "null"
	case TypeString:
		return fmt.Sprintf("%q", v.s)
	case TypeTimestamp:
		return v.t.Format(time.RFC3339Nano)
	case TypeArray:
		return fmt.Sprintf("%v", v.Native())
	case TypeMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteString(", ")
			}
			fmt.Fprintf(&buf, "%s: %s", k, v.m[k])
		}
		buf.WriteByte('}')
		return buf.String()
	default:
		return fmt.Sprintf("%v", v.Native())
	}
}
