// Package amf0 encodes and decodes Action Message Format version 0 values.
//
// Decoding followed by encoding reproduces the original bytes: object properties
// keep their wire order, long strings stay long strings and numbers keep their
// exact IEEE-754 bit pattern.
package amf0

import "github.com/pkg/errors"

const (
	TypeNumber      byte = 0x00
	TypeBoolean     byte = 0x01
	TypeString      byte = 0x02
	TypeObject      byte = 0x03
	TypeMovieClip   byte = 0x04 // reserved, not supported
	TypeNull        byte = 0x05
	TypeUndefined   byte = 0x06
	TypeReference   byte = 0x07
	TypeECMAArray   byte = 0x08
	TypeObjectEnd   byte = 0x09
	TypeStrictArray byte = 0x0A
	TypeDate        byte = 0x0B
	TypeLongString  byte = 0x0C
	TypeUnsupported byte = 0x0D
	TypeRecordSet   byte = 0x0E // reserved, not supported
	TypeXMLDocument byte = 0x0F
	TypeTypedObject byte = 0x10
)

var (
	ErrUnsupportedType = errors.New("amf0: unsupported type marker")
	ErrUnexpectedEnd   = errors.New("amf0: object end marker outside of an object")
	ErrStringTooLong   = errors.New("amf0: string too long for a 16-bit length")
)

// Property is a single key/value entry of an Object, ECMAArray or TypedObject.
type Property struct {
	Key   string
	Value interface{}
}

// Object is an anonymous AMF0 object. Properties are kept in wire order.
type Object []Property

// Get returns the value stored under key and whether it was present.
func (o Object) Get(key string) (interface{}, bool) {
	for _, p := range o {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Set replaces the value of key in place, or appends a new property when key is absent.
func (o *Object) Set(key string, value interface{}) {
	for i := range *o {
		if (*o)[i].Key == key {
			(*o)[i].Value = value
			return
		}
	}
	*o = append(*o, Property{Key: key, Value: value})
}

// ECMAArray is an associative array. Count is the associative count as sent on the
// wire, which peers do not always keep in sync with the number of properties.
type ECMAArray struct {
	Count      uint32
	Properties Object
}

// StrictArray is an ordinal array.
type StrictArray []interface{}

// Date holds milliseconds since the Unix epoch and the (unused) timezone field.
type Date struct {
	Millis   float64
	TimeZone int16
}

// LongString is a string sent with the 32-bit length marker.
type LongString string

// XMLDocument is an XML document sent as a long UTF-8 string.
type XMLDocument string

// Reference points at a previously sent complex object by index.
type Reference uint16

// TypedObject is an object tagged with a class name.
type TypedObject struct {
	ClassName  string
	Properties Object
}

// Undefined is the AMF0 undefined value. Null decodes to a plain nil.
type Undefined struct{}

// Unsupported is the AMF0 unsupported marker value.
type Unsupported struct{}
