package model

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ValentinKolb/kvmodel/lib/db"
	"github.com/ValentinKolb/kvmodel/lib/db/engines/flat"
	"github.com/ValentinKolb/kvmodel/lib/logging"
	"github.com/ValentinKolb/kvmodel/lib/store"
	"github.com/ValentinKolb/kvmodel/lib/store/lstore"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger(logging.Model)

var (
	// ErrUnknownField is returned when a model has no field of the requested name
	ErrUnknownField = errors.New("unknown field")
	// ErrFieldType is returned when a field is accessed with the wrong value type
	ErrFieldType = errors.New("field type mismatch")
)

// --------------------------------------------------------------------------
// Scope
// --------------------------------------------------------------------------

// Scope selects one of the two stores of a Storage
type Scope int

const (
	// Durable values survive a restart
	Durable Scope = iota
	// Session values live as long as the session store
	Session
)

func (s Scope) String() string {
	switch s {
	case Durable:
		return "durable"
	case Session:
		return "session"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// ParseScope parses "durable" or "session"
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "durable", "local":
		return Durable, nil
	case "session":
		return Session, nil
	default:
		return Durable, fmt.Errorf("invalid scope %q, must be durable or session", s)
	}
}

// --------------------------------------------------------------------------
// Storage
// --------------------------------------------------------------------------

// Storage bundles the durable and the session store models read and write through
type Storage struct {
	durable store.IStore
	session store.IStore
}

// NewStorage creates a storage from two independent stores
func NewStorage(durable, session store.IStore) *Storage {
	return &Storage{durable: durable, session: session}
}

// NewMemoryStorage creates a storage with two in-memory stores
func NewMemoryStorage() *Storage {
	return NewStorage(
		lstore.NewLocalStore(func() db.KVDB { return flat.NewFlatDB(nil) }, lstore.WithName("durable")),
		lstore.NewLocalStore(func() db.KVDB { return flat.NewFlatDB(nil) }, lstore.WithName("session")),
	)
}

// For returns the store of scope
func (s *Storage) For(scope Scope) store.IStore {
	if scope == Session {
		return s.session
	}
	return s.durable
}

// Durable returns the durable store
func (s *Storage) Durable() store.IStore { return s.durable }

// Session returns the session store
func (s *Storage) Session() store.IStore { return s.session }

// Close closes both stores if they hold resources
func (s *Storage) Close() error {
	var errs []error
	for _, st := range []store.IStore{s.durable, s.session} {
		if c, ok := st.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Model
// --------------------------------------------------------------------------

// Model is a typed view of all keys below one path.
// Two models with the same path share their stored data, but not their caches.
//
// Thread-safety: A Model is not safe for concurrent use.
type Model struct {
	typ     *Type
	storage *Storage
	path    string

	fields map[string]binding
	order  []binding
}

// New creates a model of type t at path and binds all fields of t.
// t may be nil for a model without fields, which is still useful for
// ad-hoc keys and Clear.
func New(t *Type, s *Storage, path string) *Model {
	m := &Model{
		typ:     t,
		storage: s,
		path:    path,
	}

	var specs []FieldSpec
	if t != nil {
		specs = t.Fields()
	}
	m.fields = make(map[string]binding, len(specs))
	m.order = make([]binding, 0, len(specs))
	for _, spec := range specs {
		b := spec.bind(m)
		m.fields[spec.Name()] = b
		m.order = append(m.order, b)
	}

	return m
}

// Path returns the path the model was created with
func (m *Model) Path() string { return m.path }

// Type returns the type of the model
func (m *Model) Type() *Type { return m.typ }

// Storage returns the storage the model reads and writes through
func (m *Model) Storage() *Storage { return m.storage }

// Subpath composes path/segment
func (m *Model) Subpath(segment string) string {
	return Subpath(m.path, segment)
}

// SubpathAt composes path/segment/index
func (m *Model) SubpathAt(segment string, index int) string {
	return SubpathAt(m.path, segment, index)
}

// Child creates a model of type t at path/segment sharing the storage of m
func (m *Model) Child(t *Type, segment string) *Model {
	return New(t, m.storage, m.Subpath(segment))
}

// ChildAt creates a model of type t at path/segment/index sharing the storage of m
func (m *Model) ChildAt(t *Type, segment string, index int) *Model {
	return New(t, m.storage, m.SubpathAt(segment, index))
}

// Fields returns the specs of the bound fields in resolution order
func (m *Model) Fields() []FieldSpec {
	specs := make([]FieldSpec, len(m.order))
	for i, b := range m.order {
		specs[i] = b.spec()
	}
	return specs
}

// FieldOf returns the binding of the field called name on m
func FieldOf[T any](m *Model, name string) (*Field[T], error) {
	b, ok := m.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w %q on model %q", ErrUnknownField, name, m.path)
	}
	f, ok := b.(*Field[T])
	if !ok {
		var zero T
		return nil, fmt.Errorf("%w: field %q on model %q is not of type %T", ErrFieldType, name, m.path, zero)
	}
	return f, nil
}

// --------------------------------------------------------------------------
// Low level access
// --------------------------------------------------------------------------

// Store writes value at path/key in the store of scope
func (m *Model) Store(key, value string, scope Scope) error {
	return m.storage.For(scope).Set(m.Subpath(key), value)
}

// Load reads path/key from the store of scope. A missing key is not an error.
func (m *Model) Load(key string, scope Scope) (string, bool, error) {
	return m.storage.For(scope).Get(m.Subpath(key))
}

// Delete removes path/key from the store of scope. A missing key is not an error.
func (m *Model) Delete(key string, scope Scope) error {
	return m.storage.For(scope).Delete(m.Subpath(key))
}

// Clear removes every key below the model path from both stores
// and drops the cache slots of this model instance.
// Keys are collected before the first one is removed.
// Other instances, including children created earlier, keep their caches.
func (m *Model) Clear() error {
	for _, scope := range []Scope{Durable, Session} {
		st := m.storage.For(scope)

		keys, err := st.Keys()
		if err != nil {
			return err
		}

		matches := make([]string, 0)
		for _, key := range keys {
			if InSubtree(key, m.path) {
				matches = append(matches, key)
			}
		}

		for _, key := range matches {
			if err := st.Delete(key); err != nil {
				return err
			}
		}
		log.Debugf("clear %q: removed %d of %d %s keys", m.path, len(matches), len(keys), scope)
	}

	for _, b := range m.order {
		b.reset()
	}
	return nil
}
