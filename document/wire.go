package document

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// wireValue mirrors the tagged-union JSON shape of a REST document value.
// Exactly one member is set.
type wireValue struct {
	NullValue      json.RawMessage `json:"nullValue,omitempty"`
	BooleanValue   *bool           `json:"booleanValue,omitempty"`
	IntegerValue   json.RawMessage `json:"integerValue,omitempty"`
	DoubleValue    json.RawMessage `json:"doubleValue,omitempty"`
	TimestampValue *string         `json:"timestampValue,omitempty"`
	StringValue    *string         `json:"stringValue,omitempty"`
	BytesValue     *string         `json:"bytesValue,omitempty"`
	ReferenceValue *string         `json:"referenceValue,omitempty"`
	GeoPointValue  *GeoPoint       `json:"geoPointValue,omitempty"`
	ArrayValue     *wireArray      `json:"arrayValue,omitempty"`
	MapValue       *wireMap        `json:"mapValue,omitempty"`
}

type wireArray struct {
	Values []Value `json:"values,omitempty"`
}

type wireMap struct {
	Fields map[string]Value `json:"fields,omitempty"`
}

var jsonNull = json.RawMessage("null")

// MarshalJSON encodes v in the REST tagged-union representation.
// Integers are encoded as decimal strings, non-finite doubles as
// "NaN", "Infinity" and "-Infinity".
func (v Value) MarshalJSON() ([]byte, error) {
	var w wireValue
	switch v.typ {
	case TypeNull:
		w.NullValue = jsonNull
	case TypeBoolean:
		b := v.b
		w.BooleanValue = &b
	case TypeInteger:
		w.IntegerValue = json.RawMessage(strconv.Quote(strconv.FormatInt(v.i, 10)))
	case TypeDouble:
		switch {
		case math.IsNaN(v.f):
			w.DoubleValue = json.RawMessage(`"NaN"`)
		case math.IsInf(v.f, 1):
			w.DoubleValue = json.RawMessage(`"Infinity"`)
		case math.IsInf(v.f, -1):
			w.DoubleValue = json.RawMessage(`"-Infinity"`)
		default:
			w.DoubleValue = json.RawMessage(strconv.FormatFloat(v.f, 'g', -1, 64))
		}
	case TypeTimestamp:
		s := v.t.Format(time.RFC3339Nano)
		w.TimestampValue = &s
	case TypeString:
		s := v.s
		w.StringValue = &s
	case TypeBytes:
		s := base64.StdEncoding.EncodeToString(v.raw)
		w.BytesValue = &s
	case TypeReference:
		s := v.s
		w.ReferenceValue = &s
	case TypeGeoPoint:
		g := v.geo
		w.GeoPointValue = &g
	case TypeArray:
		w.ArrayValue = &wireArray{Values: v.arr}
	case TypeMap:
		w.MapValue = &wireMap{Fields: v.m}
	default:
		return nil, fmt.Errorf("unknown value type: %s", v.typ)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the REST tagged-union representation
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}

	switch {
	case w.NullValue != nil:
		*v = Null()
	case w.BooleanValue != nil:
		*v = BoolValue(*w.BooleanValue)
	case w.IntegerValue != nil:
		i, err := parseInteger(w.IntegerValue)
		if err != nil {
			return err
		}
		*v = IntegerValue(i)
	case w.DoubleValue != nil:
		f, err := parseDouble(w.DoubleValue)
		if err != nil {
			return err
		}
		*v = DoubleValue(f)
	case w.TimestampValue != nil:
		t, err := time.Parse(time.RFC3339Nano, *w.TimestampValue)
		if err != nil {
			return fmt.Errorf("decode timestampValue: %w", err)
		}
		*v = TimestampValue(t)
	case w.StringValue != nil:
		*v = StringValue(*w.StringValue)
	case w.BytesValue != nil:
		b, err := base64.StdEncoding.DecodeString(*w.BytesValue)
		if err != nil {
			return fmt.Errorf("decode bytesValue: %w", err)
		}
		*v = Value{typ: TypeBytes, raw: b}
	case w.ReferenceValue != nil:
		*v = ReferenceValue(*w.ReferenceValue)
	case w.GeoPointValue != nil:
		*v = GeoPointValue(w.GeoPointValue.Latitude, w.GeoPointValue.Longitude)
	case w.ArrayValue != nil:
		*v = Value{typ: TypeArray, arr: w.ArrayValue.Values}
		if v.arr == nil {
			v.arr = []Value{}
		}
	case w.MapValue != nil:
		*v = Value{typ: TypeMap, m: w.MapValue.Fields}
		if v.m == nil {
			v.m = map[string]Value{}
		}
	default:
		// A value with no recognized member decodes as null
		*v = Null()
	}
	return nil
}

func parseInteger(raw json.RawMessage) (int64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// Tolerate bare numbers
		s = string(raw)
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode integerValue %s: %w", raw, err)
	}
	return i, nil
}

func parseDouble(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("decode doubleValue %q: %w", s, err)
		}
		return f, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("decode doubleValue %s: %w", raw, err)
	}
	return f, nil
}

// WireDocument is a document resource as carried by listen frames
type WireDocument struct {
	Name       string           `json:"name"`
	Fields     map[string]Value `json:"fields,omitempty"`
	CreateTime string           `json:"createTime,omitempty"`
	UpdateTime string           `json:"updateTime,omitempty"`
}

// FromWire builds a Snapshot from a wire document. The resource name must
// contain a documents segment.
func FromWire(w WireDocument) (Snapshot, error) {
	path, err := RelativePath(w.Name)
	if err != nil {
		return Snapshot{}, err
	}

	s := NewSnapshot(path, w.Fields)
	if s.CreateTime, err = parseWireTime(w.CreateTime); err != nil {
		return Snapshot{}, fmt.Errorf("document %s createTime: %w", path, err)
	}
	if s.UpdateTime, err = parseWireTime(w.UpdateTime); err != nil {
		return Snapshot{}, fmt.Errorf("document %s updateTime: %w", path, err)
	}
	return s, nil
}

// ToWire encodes fields back into the wire document shape under the given
// resource name
func ToWire(name string, fields map[string]Value) WireDocument {
	return WireDocument{Name: name, Fields: copyFields(fields)}
}

func parseWireTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
