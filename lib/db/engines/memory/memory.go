package memory

import (
	"fmt"
	"sync/atomic"

	"github.com/ValentinKolb/sdb/lib/db"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var plog = logger.GetLogger("memory")

const (
	DefaultMaxValueSize = 64 * 1024 // Read capacity of Select without a caller buffer

	features = db.FeatureInsert |
		db.FeatureUpdate |
		db.FeatureSelect |
		db.FeatureDelete |
		db.FeatureExist |
		db.FeatureCustomBuffer
)

// memoryImpl keeps all values in a concurrent map
type memoryImpl struct {
	data     *xsync.MapOf[string, []byte]
	maxValue int
	closed   atomic.Bool
}

// DBOptions configures the memory engine during initialization
type DBOptions struct {
	MaxValueSize int // Read capacity of Select without a caller buffer (0 = default)
}

// DefaultOptions returns the default memory engine options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		MaxValueSize: DefaultMaxValueSize,
	}
}

// Metadata is the engine specific part of db.DatabaseInfo
type Metadata struct {
	Keys         int `json:"keys"`
	MaxValueSize int `json:"max_value_size"`
}

// NewMemoryDB creates a new in-memory engine with the specified options (optional)
func NewMemoryDB(opts *DBOptions) db.Engine {
	if opts == nil {
		opts = DefaultOptions()
	}
	m := &memoryImpl{
		data:     xsync.NewMapOf[string, []byte](),
		maxValue: opts.MaxValueSize,
	}
	if m.maxValue <= 0 {
		m.maxValue = DefaultMaxValueSize
	}
	return m
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

func (m *memoryImpl) Insert(key string, value []byte) (res db.WriteResult, err error) {
	defer func() { db.ObserveOp(db.ImplMemory, "insert", err) }()

	if err := m.check(key); err != nil {
		return db.WriteResult{}, err
	}
	if _, loaded := m.data.LoadOrStore(key, clone(value)); loaded {
		return db.WriteResult{}, fmt.Errorf("%w: %q", db.ErrKeyExists, key)
	}
	plog.Debugf("insert %s: %d bytes", key, len(value))
	return db.WriteResult{Requested: len(value), Written: len(value)}, nil
}

func (m *memoryImpl) Update(key string, value []byte) (res db.WriteResult, err error) {
	defer func() { db.ObserveOp(db.ImplMemory, "update", err) }()

	if err := m.check(key); err != nil {
		return db.WriteResult{}, err
	}

	var found bool
	m.data.Compute(key, func(old []byte, loaded bool) ([]byte, bool) {
		if !loaded {
			return nil, true // set delete to true because else the value will be created
		}
		found = true
		return clone(value), false
	})
	if !found {
		return db.WriteResult{}, fmt.Errorf("%w: %q", db.ErrNotFound, key)
	}
	plog.Debugf("update %s: %d bytes", key, len(value))
	return db.WriteResult{Requested: len(value), Written: len(value)}, nil
}

func (m *memoryImpl) Delete(key string) (err error) {
	defer func() { db.ObserveOp(db.ImplMemory, "delete", err) }()

	if err := m.check(key); err != nil {
		return err
	}
	if _, loaded := m.data.LoadAndDelete(key); !loaded {
		return fmt.Errorf("%w: %q", db.ErrNotFound, key)
	}
	return nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Select copies the value into buf (or a new slice of at most MaxValueSize
// bytes). Like a single read call it never returns more than the capacity.
func (m *memoryImpl) Select(key string, buf []byte) (res db.ReadResult, err error) {
	defer func() { db.ObserveOp(db.ImplMemory, "select", err) }()

	if err := m.check(key); err != nil {
		return db.ReadResult{}, err
	}
	value, ok := m.data.Load(key)
	if !ok {
		return db.ReadResult{}, fmt.Errorf("%w: %q", db.ErrNotFound, key)
	}

	dst := buf
	if len(dst) == 0 {
		dst = make([]byte, min(len(value), m.maxValue))
	}
	n := copy(dst, value)

	return db.ReadResult{
		Value:     dst[:n],
		Size:      n,
		Truncated: n < len(value),
	}, nil
}

func (m *memoryImpl) Exist(key string) (size int64, exists bool, err error) {
	defer func() { db.ObserveOp(db.ImplMemory, "exist", err) }()

	if err := m.check(key); err != nil {
		return 0, false, err
	}
	value, ok := m.data.Load(key)
	return int64(len(value)), ok, nil
}

// --------------------------------------------------------------------------
// Feature Support & Info
// --------------------------------------------------------------------------

func (m *memoryImpl) SupportsFeature(feature db.Feature) bool {
	return feature&features == feature
}

func (m *memoryImpl) GetInfo() db.DatabaseInfo {
	return db.DatabaseInfo{
		DbType:            db.ImplMemory,
		SupportedFeatures: features.Features(),
		Metadata: Metadata{
			Keys:         m.data.Size(),
			MaxValueSize: m.maxValue,
		},
	}
}

// CapacityExhausted is always false, the memory engine has no capacity limit
func (m *memoryImpl) CapacityExhausted() bool {
	return false
}

func (m *memoryImpl) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		m.data.Clear()
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (m *memoryImpl) check(key string) error {
	if m.closed.Load() {
		return db.ErrClosed
	}
	return db.ValidateKey(key)
}

// clone copies value to prevent memory corruption through the callers slice
func clone(value []byte) []byte {
	c := make([]byte, len(value))
	copy(c, value)
	return c
}
