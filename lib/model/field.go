package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is returned when a stored value cannot be decoded
	ErrDecode = errors.New("cannot decode stored value")
	// ErrEncode is returned when a value cannot be encoded for storing
	ErrEncode = errors.New("cannot encode value")
)

// --------------------------------------------------------------------------
// Field configuration
// --------------------------------------------------------------------------

// FieldSpec is the type independent view of a declared field
type FieldSpec interface {
	// Name is the name the field was declared with
	Name() string
	// Key is the key relative to the model path
	Key() string
	// Scope selects the store
	Scope() Scope
	// Cached reports whether reads and writes are remembered per model instance
	Cached() bool
	// Owner is the type the field was declared on
	Owner() *Type

	bind(m *Model) binding
}

// FieldConfig is the configuration of one field, shared by all model instances.
// It is immutable once Declare returns.
type FieldConfig[T any] struct {
	owner *Type
	name  string
	key   string
	def   Optional[T]
	scope Scope
	cache bool
	codec Codec[T]

	serialize   func(T) (string, error)
	deserialize func(string) (T, error)
}

// FieldOption configures a field at declaration
type FieldOption[T any] func(*FieldConfig[T])

// WithKey stores the field under key instead of its name
func WithKey[T any](key string) FieldOption[T] {
	return func(c *FieldConfig[T]) {
		c.key = key
	}
}

// WithDefault sets the value read while nothing is stored for the field
func WithDefault[T any](v T) FieldOption[T] {
	return func(c *FieldConfig[T]) {
		c.def = Some(v)
	}
}

// WithScope selects the store of the field (default Durable)
func WithScope[T any](scope Scope) FieldOption[T] {
	return func(c *FieldConfig[T]) {
		c.scope = scope
	}
}

// WithCache turns the per instance cache on or off (default on)
func WithCache[T any](enabled bool) FieldOption[T] {
	return func(c *FieldConfig[T]) {
		c.cache = enabled
	}
}

// WithCodec replaces the default envelope codec
func WithCodec[T any](codec Codec[T]) FieldOption[T] {
	return func(c *FieldConfig[T]) {
		c.codec = codec
	}
}

// WithSerializer writes values with fn instead of the codec. fn produces the raw stored string.
func WithSerializer[T any](fn func(T) (string, error)) FieldOption[T] {
	return func(c *FieldConfig[T]) {
		c.serialize = fn
	}
}

// WithDeserializer reads values with fn instead of the codec. fn receives the raw stored string.
func WithDeserializer[T any](fn func(string) (T, error)) FieldOption[T] {
	return func(c *FieldConfig[T]) {
		c.deserialize = fn
	}
}

// Declare declares a field of type T called name on t.
// Fields are declared in package level variables, before any model of t is created.
func Declare[T any](t *Type, name string, opts ...FieldOption[T]) *FieldConfig[T] {
	c := &FieldConfig[T]{
		owner: t,
		name:  name,
		key:   name,
		scope: Durable,
		cache: true,
		codec: Envelope[T](),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.serialize != nil || c.deserialize != nil {
		c.codec = overrideCodec[T]{base: c.codec, serialize: c.serialize, deserialize: c.deserialize}
	}

	t.declare(c)
	return c
}

func (c *FieldConfig[T]) Name() string { return c.name }
func (c *FieldConfig[T]) Key() string { return c.key }
func (c *FieldConfig[T]) Scope() Scope { return c.scope }
func (c *FieldConfig[T]) Cached() bool { return c.cache }
func (c *FieldConfig[T]) Owner() *Type { return c.owner }

// Codec returns the effective codec, including serializer overrides
func (c *FieldConfig[T]) Codec() Codec[T] {
	return c.codec
}

// Default returns the configured default value
func (c *FieldConfig[T]) Default() Optional[T] {
	return c.def
}

// In returns the binding of this field on m. Panics if m has no field of this name
// and type, which can only happen when m is not of the declaring type or a descendant.
func (c *FieldConfig[T]) In(m *Model) *Field[T] {
	f, err := FieldOf[T](m, c.name)
	if err != nil {
		panic(err.Error())
	}
	return f
}

func (c *FieldConfig[T]) bind(m *Model) binding {
	return &Field[T]{
		cfg:   c,
		model: m,
	}
}

// --------------------------------------------------------------------------
// Field binding
// --------------------------------------------------------------------------

// binding is the type independent view of a bound field
type binding interface {
	spec() FieldSpec
	reset()
}

// Field is a field bound to one model instance.
//
// Thread-safety: A Field is not safe for concurrent use, its cache slot is unguarded.
type Field[T any] struct {
	cfg   *FieldConfig[T]
	model *Model

	// cache slot
	cached bool
	value  Optional[T]
}

func (f *Field[T]) spec() FieldSpec { return f.cfg }

// reset drops the cache slot
func (f *Field[T]) reset() {
	f.cached = false
	f.value = None[T]()
}

// Name returns the declared field name
func (f *Field[T]) Name() string { return f.cfg.name }

// Key returns the key relative to the model path
func (f *Field[T]) Key() string { return f.cfg.key }

// Path returns the composed key the value is stored under
func (f *Field[T]) Path() string { return Subpath(f.model.path, f.cfg.key) }

// Scope returns the store the value lives in
func (f *Field[T]) Scope() Scope { return f.cfg.scope }

// Lookup reads the field:
//   - a filled cache slot is returned without touching the store
//   - a missing key yields the default (absent if none is configured)
//   - a stored value is decoded, {} decodes to absent and wins over the default
//
// With caching enabled the result is kept in the cache slot.
// Store errors are returned unchanged, decode errors wrap ErrDecode.
func (f *Field[T]) Lookup() (Optional[T], error) {
	if f.cfg.cache && f.cached {
		cacheHits.Inc()
		return f.value, nil
	}
	if f.cfg.cache {
		cacheMisses.Inc()
	}

	raw, found, err := f.model.Load(f.cfg.key, f.cfg.scope)
	if err != nil {
		return None[T](), err
	}

	v := f.cfg.def
	if found {
		if v, err = f.cfg.codec.Decode(raw); err != nil {
			decodeErrors.Inc()
			log.Debugf("decode %q failed: %v", f.Path(), err)
			return None[T](), fmt.Errorf("%w %q: %w", ErrDecode, f.Path(), err)
		}
	}

	if f.cfg.cache {
		f.cached = true
		f.value = v
	}
	return v, nil
}

// Get is Lookup without the presence flag, absent values read as the zero value
func (f *Field[T]) Get() (T, error) {
	v, err := f.Lookup()
	return v.Value, err
}

// Set stores v and, with caching enabled, fills the cache slot.
// The write is unconditional, even if v equals the cached value.
func (f *Field[T]) Set(v T) error {
	return f.write(Some(v))
}

// Unset stores an explicitly absent value ({} for the default codec).
// Reading the field afterwards yields absent, not the default.
func (f *Field[T]) Unset() error {
	return f.write(None[T]())
}

// Delete removes the stored value and drops the cache slot,
// so the next read yields the default again.
func (f *Field[T]) Delete() error {
	if err := f.model.Delete(f.cfg.key, f.cfg.scope); err != nil {
		return err
	}
	f.reset()
	return nil
}

func (f *Field[T]) write(v Optional[T]) error {
	raw, err := f.cfg.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrEncode, f.Path(), err)
	}
	if err := f.model.Store(f.cfg.key, raw, f.cfg.scope); err != nil {
		return err
	}
	if f.cfg.cache {
		f.cached = true
		f.value = v
	}
	return nil
}
