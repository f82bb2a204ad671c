package model

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformed is returned when a stored string is not a valid envelope
	ErrMalformed = errors.New("malformed envelope")
	// ErrAbsentUnsupported is returned when an absent value is written through a custom serializer
	ErrAbsentUnsupported = errors.New("serializer cannot encode an absent value")
)

// --------------------------------------------------------------------------
// Optional
// --------------------------------------------------------------------------

// Optional is a value that may be absent. The zero Optional is absent.
type Optional[T any] struct {
	Value   T
	Present bool
}

// Some returns a present Optional holding v
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Present: true}
}

// None returns an absent Optional
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Present
}

// OrElse returns the value if present, def otherwise
func (o Optional[T]) OrElse(def T) T {
	if o.Present {
		return o.Value
	}
	return def
}

func (o Optional[T]) String() string {
	if !o.Present {
		return "<absent>"
	}
	return fmt.Sprint(o.Value)
}

// --------------------------------------------------------------------------
// Codec
// --------------------------------------------------------------------------

// Codec converts field values to and from the string a store holds
type Codec[T any] interface {
	Encode(v Optional[T]) (string, error)
	Decode(s string) (Optional[T], error)
}

// envelope is the default codec: {"val":<json>} for present values, {} for absent ones
type envelope[T any] struct{}

// Envelope returns the default JSON envelope codec.
//
//	Some(5)       -> {"val":5}
//	Some("")      -> {"val":""}
//	None[int]()   -> {}
//
// Decoding {} yields an absent value, decoding {"val":null} a present zero value.
func Envelope[T any]() Codec[T] {
	return envelope[T]{}
}

func (envelope[T]) Encode(v Optional[T]) (string, error) {
	if !v.Present {
		return "{}", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(struct {
		Val T `json:"val"`
	}{Val: v.Value}); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func (envelope[T]) Decode(s string) (Optional[T], error) {
	var record map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &record); err != nil {
		return None[T](), fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	// "null" unmarshals into a nil map without error
	if record == nil {
		return None[T](), fmt.Errorf("%w: not an object", ErrMalformed)
	}

	raw, ok := record["val"]
	if !ok {
		return None[T](), nil
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return None[T](), fmt.Errorf("%w: val: %v", ErrMalformed, err)
	}
	return Some(v), nil
}

// --------------------------------------------------------------------------
// Overrides
// --------------------------------------------------------------------------

// overrideCodec replaces one or both directions of a base codec with plain functions.
// The functions work on the raw stored string, without an envelope.
type overrideCodec[T any] struct {
	base        Codec[T]
	serialize   func(T) (string, error)
	deserialize func(string) (T, error)
}

func (c overrideCodec[T]) Encode(v Optional[T]) (string, error) {
	if c.serialize == nil {
		return c.base.Encode(v)
	}
	if !v.Present {
		return "", ErrAbsentUnsupported
	}
	return c.serialize(v.Value)
}

func (c overrideCodec[T]) Decode(s string) (Optional[T], error) {
	if c.deserialize == nil {
		return c.base.Decode(s)
	}
	v, err := c.deserialize(s)
	if err != nil {
		return None[T](), err
	}
	return Some(v), nil
}

// GobSerializer returns a serializer storing values as base64 encoded gob,
// for types the JSON envelope cannot round-trip (e.g. maps with struct keys).
// Use it together with GobDeserializer.
func GobSerializer[T any]() func(T) (string, error) {
	return func(v T) (string, error) {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
			return "", fmt.Errorf("gob encode: %w", err)
		}
		return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
	}
}

// GobDeserializer returns the counterpart of GobSerializer
func GobDeserializer[T any]() func(string) (T, error) {
	return func(s string) (T, error) {
		var v T
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return v, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&v); err != nil {
			return v, fmt.Errorf("gob decode: %w", err)
		}
		return v, nil
	}
}
