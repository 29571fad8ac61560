package amf0

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// ErrUnexpectedType is returned by the typed Decode helpers when the next value has a different kind.
var ErrUnexpectedType = errors.New("amf0: unexpected value type")

// Strings longer than this are read incrementally so a bogus length cannot force a huge allocation.
const maxPreallocatedString = 64 * 1024

// Decoder reads a sequence of AMF0 values from an input stream.
type Decoder struct {
	r       io.Reader
	scratch [8]byte
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode returns the original form of the single encoded value in b.
// Possible return types: float64, bool, string, LongString, nil, Undefined, Object, ECMAArray,
// StrictArray, Date, Reference, Unsupported, XMLDocument, TypedObject.
func Decode(b []byte) (interface{}, error) {
	return NewDecoder(bytes.NewReader(b)).Decode()
}

// Decode reads the next value. It returns io.EOF when the input ends exactly on a value
// boundary and io.ErrUnexpectedEOF when it ends inside a value.
func (d *Decoder) Decode() (interface{}, error) {
	marker, err := d.readMarker()
	if err != nil {
		return nil, err
	}
	return d.decodeValue(marker)
}

// DecodeString reads the next value and requires it to be a string (short or long).
func (d *Decoder) DecodeString() (string, error) {
	v, err := d.Decode()
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case LongString:
		return string(s), nil
	default:
		return "", errors.Wrapf(ErrUnexpectedType, "want string, got %T", v)
	}
}

// DecodeNumber reads the next value and requires it to be a number.
func (d *Decoder) DecodeNumber() (float64, error) {
	v, err := d.Decode()
	if err != nil {
		return 0, err
	}
	n, ok := v.(float64)
	if !ok {
		return 0, errors.Wrapf(ErrUnexpectedType, "want number, got %T", v)
	}
	return n, nil
}

func (d *Decoder) readMarker() (byte, error) {
	if _, err := io.ReadFull(d.r, d.scratch[:1]); err != nil {
		return 0, err
	}
	return d.scratch[0], nil
}

// readFull is io.ReadFull that never reports a clean io.EOF, since it is only used inside a value.
func (d *Decoder) readFull(p []byte) error {
	_, err := io.ReadFull(d.r, p)
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (d *Decoder) readUint16() (uint16, error) {
	if err := d.readFull(d.scratch[:2]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(d.scratch[:2]), nil
}

func (d *Decoder) readUint32() (uint32, error) {
	if err := d.readFull(d.scratch[:4]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(d.scratch[:4]), nil
}

func (d *Decoder) readFloat64() (float64, error) {
	if err := d.readFull(d.scratch[:8]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(d.scratch[:8])), nil
}

func (d *Decoder) readString(length uint32) (string, error) {
	if length <= maxPreallocatedString {
		b := make([]byte, length)
		if err := d.readFull(b); err != nil {
			return "", err
		}
		return string(b), nil
	}
	var sb bytes.Buffer
	n, err := io.CopyN(&sb, d.r, int64(length))
	if err != nil {
		if err == io.EOF && n < int64(length) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return sb.String(), nil
}

func (d *Decoder) readShortString() (string, error) {
	length, err := d.readUint16()
	if err != nil {
		return "", err
	}
	return d.readString(uint32(length))
}

func (d *Decoder) readLongString() (string, error) {
	length, err := d.readUint32()
	if err != nil {
		return "", err
	}
	return d.readString(length)
}

func (d *Decoder) decodeValue(marker byte) (interface{}, error) {
	switch marker {
	case TypeNumber:
		return d.readFloat64()
	case TypeBoolean:
		if err := d.readFull(d.scratch[:1]); err != nil {
			return nil, err
		}
		return d.scratch[0] != 0, nil
	case TypeString:
		return d.readShortString()
	case TypeLongString:
		s, err := d.readLongString()
		return LongString(s), err
	case TypeXMLDocument:
		s, err := d.readLongString()
		return XMLDocument(s), err
	case TypeObject:
		return d.readProperties()
	case TypeNull:
		return nil, nil
	case TypeUndefined:
		return Undefined{}, nil
	case TypeUnsupported:
		return Unsupported{}, nil
	case TypeReference:
		ref, err := d.readUint16()
		return Reference(ref), err
	case TypeECMAArray:
		count, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		props, err := d.readProperties()
		if err != nil {
			return nil, err
		}
		return ECMAArray{Count: count, Properties: props}, nil
	case TypeStrictArray:
		return d.readStrictArray()
	case TypeDate:
		millis, err := d.readFloat64()
		if err != nil {
			return nil, err
		}
		tz, err := d.readUint16()
		if err != nil {
			return nil, err
		}
		return Date{Millis: millis, TimeZone: int16(tz)}, nil
	case TypeTypedObject:
		className, err := d.readShortString()
		if err != nil {
			return nil, err
		}
		props, err := d.readProperties()
		if err != nil {
			return nil, err
		}
		return TypedObject{ClassName: className, Properties: props}, nil
	case TypeObjectEnd:
		return nil, ErrUnexpectedEnd
	default:
		return nil, errors.Wrapf(ErrUnsupportedType, "marker 0x%02x", marker)
	}
}

// readProperties reads key/value pairs up to and including the empty-key object end marker.
func (d *Decoder) readProperties() (Object, error) {
	props := Object{}
	for {
		key, err := d.readShortString()
		if err != nil {
			return nil, err
		}
		if err := d.readFull(d.scratch[:1]); err != nil {
			return nil, err
		}
		marker := d.scratch[0]
		if key == "" && marker == TypeObjectEnd {
			return props, nil
		}
		val, err := d.decodeValue(marker)
		if err != nil {
			return nil, errors.Wrapf(err, "property %q", key)
		}
		props = append(props, Property{Key: key, Value: val})
	}
}

func (d *Decoder) readStrictArray() (StrictArray, error) {
	count, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	// Every element is at least one byte, so cap the preallocation.
	arr := make(StrictArray, 0, minUint32(count, 1024))
	for i := uint32(0); i < count; i++ {
		v, err := d.Decode()
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		if err != nil {
			return nil, errors.Wrapf(err, "strict array element %d", i)
		}
		arr = append(arr, v)
	}
	return arr, nil
}

func minUint32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
