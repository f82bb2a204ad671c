package lstore

import (
	"fmt"
	"io"

	"github.com/ValentinKolb/kvmodel/lib/db"
	"github.com/ValentinKolb/kvmodel/lib/logging"
	"github.com/ValentinKolb/kvmodel/lib/store"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger(logging.Store)

// operations counted per store
const (
	opGet    = "get"
	opSet    = "set"
	opDelete = "delete"
	opHas    = "has"
	opKeys   = "keys"
	opClear  = "clear"
	opSave   = "save"
	opLoad   = "load"
)

var allOps = []string{opGet, opSet, opDelete, opHas, opKeys, opClear, opSave, opLoad}

type opCounters struct {
	calls  *metrics.Counter
	errors *metrics.Counter
}

type storeImpl struct {
	name     string
	db       db.KVDB
	counters map[string]opCounters
}

// Option configures a local store
type Option func(*storeImpl)

// WithName sets the name the store logs and reports metrics under (default "local")
func WithName(name string) Option {
	return func(s *storeImpl) {
		s.name = name
	}
}

// NewLocalStore creates a new local store instance on top of the db created by factory.
// The store owns the db, Close releases it.
func NewLocalStore(factory store.DBFactory, opts ...Option) store.IStore {
	s := &storeImpl{
		name: "local",
		db:   factory(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.counters = make(map[string]opCounters, len(allOps))
	for _, op := range allOps {
		s.counters[op] = opCounters{
			calls:  metrics.GetOrCreateCounter(fmt.Sprintf(`kvmodel_store_ops_total{store=%q,op=%q}`, s.name, op)),
			errors: metrics.GetOrCreateCounter(fmt.Sprintf(`kvmodel_store_errors_total{store=%q,op=%q}`, s.name, op)),
		}
	}

	return s
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// begin counts the call and checks that the db supports feature
func (s *storeImpl) begin(op string, feature db.Feature) error {
	s.counters[op].calls.Inc()
	if !s.db.SupportsFeature(feature) {
		s.counters[op].errors.Inc()
		return store.NewError(store.RetCUnsupportedOperation, fmt.Sprintf("%s operation is not supported by %s", op, s.db.GetInfo().DbType))
	}
	return nil
}

// fail counts, logs and wraps a failed db call
func (s *storeImpl) fail(op, key string, err error) error {
	s.counters[op].errors.Inc()
	log.Warningf("[%s] %s %q failed: %v", s.name, op, key, err)
	return store.WrapError(op, err)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(key string) (string, bool, error) {
	if err := s.begin(opGet, db.FeatureGet); err != nil {
		return "", false, err
	}
	val, ok, err := s.db.Get(key)
	if err != nil {
		return "", false, s.fail(opGet, key, err)
	}
	log.Debugf("[%s] get %q (found=%t)", s.name, key, ok)
	return string(val), ok, nil
}

func (s *storeImpl) Set(key, value string) error {
	if err := s.begin(opSet, db.FeatureSet); err != nil {
		return err
	}
	if err := s.db.Set(key, []byte(value)); err != nil {
		return s.fail(opSet, key, err)
	}
	log.Debugf("[%s] set %q (%d bytes)", s.name, key, len(value))
	return nil
}

func (s *storeImpl) Delete(key string) error {
	if err := s.begin(opDelete, db.FeatureDelete); err != nil {
		return err
	}
	if err := s.db.Delete(key); err != nil {
		return s.fail(opDelete, key, err)
	}
	log.Debugf("[%s] delete %q", s.name, key)
	return nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	if err := s.begin(opHas, db.FeatureHas); err != nil {
		return false, err
	}
	ok, err := s.db.Has(key)
	if err != nil {
		return false, s.fail(opHas, key, err)
	}
	return ok, nil
}

func (s *storeImpl) Keys() ([]string, error) {
	if err := s.begin(opKeys, db.FeatureKeys); err != nil {
		return nil, err
	}
	keys, err := s.db.Keys()
	if err != nil {
		return nil, s.fail(opKeys, "*", err)
	}
	log.Debugf("[%s] keys (%d)", s.name, len(keys))
	return keys, nil
}

func (s *storeImpl) ClearAll() error {
	if err := s.begin(opClear, db.FeatureClear); err != nil {
		return err
	}
	if err := s.db.Clear(); err != nil {
		return s.fail(opClear, "*", err)
	}
	log.Infof("[%s] cleared", s.name)
	return nil
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return s.db.GetInfo(), nil
}

// --------------------------------------------------------------------------
// Snapshots and lifecycle (see store.Snapshotter)
// --------------------------------------------------------------------------

// Save writes a snapshot of the whole store to w
func (s *storeImpl) Save(w io.Writer) error {
	if err := s.begin(opSave, db.FeatureSave); err != nil {
		return err
	}
	if err := s.db.Save(w); err != nil {
		return s.fail(opSave, "*", err)
	}
	return nil
}

// Load replaces the content of the store with the snapshot read from r
func (s *storeImpl) Load(r io.Reader) error {
	if err := s.begin(opLoad, db.FeatureLoad); err != nil {
		return err
	}
	if err := s.db.Load(r); err != nil {
		return s.fail(opLoad, "*", err)
	}
	log.Infof("[%s] loaded snapshot", s.name)
	return nil
}

// Close releases the underlying db
func (s *storeImpl) Close() error {
	return s.db.Close()
}
