package amf0

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Encode returns the AMF0 representation of v.
func Encode(v interface{}) ([]byte, error) {
	return Append(make([]byte, 0, Size(v)), v)
}

// Append appends the AMF0 representation of v to b.
// Supported types are the ones returned by Decode, plus int and map[string]interface{}
// (encoded as an Object with its keys sorted).
func Append(b []byte, v interface{}) ([]byte, error) {
	switch v := v.(type) {
	case float64:
		return appendNumber(b, v), nil
	case int:
		return appendNumber(b, float64(v)), nil
	case bool:
		if v {
			return append(b, TypeBoolean, 1), nil
		}
		return append(b, TypeBoolean, 0), nil
	case string:
		if len(v) > math.MaxUint16 {
			return appendLongString(b, TypeLongString, v), nil
		}
		return appendShortString(append(b, TypeString), v), nil
	case LongString:
		return appendLongString(b, TypeLongString, string(v)), nil
	case XMLDocument:
		return appendLongString(b, TypeXMLDocument, string(v)), nil
	case nil:
		return append(b, TypeNull), nil
	case Undefined:
		return append(b, TypeUndefined), nil
	case Unsupported:
		return append(b, TypeUnsupported), nil
	case Reference:
		return binary.BigEndian.AppendUint16(append(b, TypeReference), uint16(v)), nil
	case Object:
		return appendProperties(append(b, TypeObject), v)
	case map[string]interface{}:
		return appendProperties(append(b, TypeObject), sortedObject(v))
	case ECMAArray:
		b = binary.BigEndian.AppendUint32(append(b, TypeECMAArray), v.Count)
		return appendProperties(b, v.Properties)
	case StrictArray:
		b = binary.BigEndian.AppendUint32(append(b, TypeStrictArray), uint32(len(v)))
		var err error
		for i, elem := range v {
			if b, err = Append(b, elem); err != nil {
				return nil, errors.Wrapf(err, "strict array element %d", i)
			}
		}
		return b, nil
	case Date:
		b = binary.BigEndian.AppendUint64(append(b, TypeDate), math.Float64bits(v.Millis))
		return binary.BigEndian.AppendUint16(b, uint16(v.TimeZone)), nil
	case TypedObject:
		if len(v.ClassName) > math.MaxUint16 {
			return nil, ErrStringTooLong
		}
		b = appendShortString(append(b, TypeTypedObject), v.ClassName)
		return appendProperties(b, v.Properties)
	default:
		return nil, errors.Errorf("amf0: cannot encode type %T", v)
	}
}

func appendNumber(b []byte, n float64) []byte {
	return binary.BigEndian.AppendUint64(append(b, TypeNumber), math.Float64bits(n))
}

// appendShortString writes the 16-bit length and bytes of s, without a type marker.
func appendShortString(b []byte, s string) []byte {
	b = binary.BigEndian.AppendUint16(b, uint16(len(s)))
	return append(b, s...)
}

func appendLongString(b []byte, marker byte, s string) []byte {
	b = binary.BigEndian.AppendUint32(append(b, marker), uint32(len(s)))
	return append(b, s...)
}

// appendProperties writes key/value pairs followed by the object end marker.
func appendProperties(b []byte, props Object) ([]byte, error) {
	var err error
	for _, p := range props {
		if len(p.Key) > math.MaxUint16 {
			return nil, ErrStringTooLong
		}
		b = appendShortString(b, p.Key)
		if b, err = Append(b, p.Value); err != nil {
			return nil, errors.Wrapf(err, "property %q", p.Key)
		}
	}
	return append(b, 0x00, 0x00, TypeObjectEnd), nil
}

func sortedObject(m map[string]interface{}) Object {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	obj := make(Object, 0, len(keys))
	for _, k := range keys {
		obj = append(obj, Property{Key: k, Value: m[k]})
	}
	return obj
}

// Size returns the number of bytes v occupies in its AMF0 representation,
// or 0 for types Append cannot encode.
// Eg: a value v of "test" will return 7 (3 bytes for the header, 4 bytes for the string)
func Size(v interface{}) uint64 {
	switch v := v.(type) {
	case float64, int:
		return 9
	case bool:
		return 2
	case string:
		if len(v) > math.MaxUint16 {
			return 5 + uint64(len(v))
		}
		return 3 + uint64(len(v))
	case LongString:
		return 5 + uint64(len(v))
	case XMLDocument:
		return 5 + uint64(len(v))
	case nil, Undefined, Unsupported:
		return 1
	case Reference:
		return 3
	case Object:
		return 1 + propertiesSize(v)
	case map[string]interface{}:
		return 1 + propertiesSize(sortedObject(v))
	case ECMAArray:
		return 5 + propertiesSize(v.Properties)
	case StrictArray:
		size := uint64(5)
		for _, elem := range v {
			size += Size(elem)
		}
		return size
	case Date:
		return 11
	case TypedObject:
		return 3 + uint64(len(v.ClassName)) + propertiesSize(v.Properties)
	default:
		return 0
	}
}

// propertiesSize counts the keys (without a type marker), the values and the 3-byte end marker.
func propertiesSize(props Object) uint64 {
	size := uint64(3)
	for _, p := range props {
		size += 2 + uint64(len(p.Key)) + Size(p.Value)
	}
	return size
}
