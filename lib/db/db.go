package db

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplFileno Implementation = "fileno"
	ImplMemory Implementation = "memory"
)

// Feature represents engine features as bit flags
type Feature uint64

const (
	FeatureInsert         Feature = 1 << iota // Support for Insert operations
	FeatureUpdate                             // Support for Update operations
	FeatureSelect                             // Support for Select operations
	FeatureDelete                             // Support for Delete operations
	FeatureExist                              // Support for Exist operations
	FeatureCustomBuffer                       // Select can read into a caller supplied buffer
	FeatureDurable                            // Values survive a restart of the process
	FeatureCapacitySignal                     // The engine can detect storage exhaustion
)

func (f Feature) String() string {
	switch f {
	case FeatureInsert:
		return "Insert"
	case FeatureUpdate:
		return "Update"
	case FeatureSelect:
		return "Select"
	case FeatureDelete:
		return "Delete"
	case FeatureExist:
		return "Exist"
	case FeatureCustomBuffer:
		return "CustomBuffer"
	case FeatureDurable:
		return "Durable"
	case FeatureCapacitySignal:
		return "CapacitySignal"
	default:
		return "Unknown"
	}
}

// Features splits a feature mask into its single flags
func (f Feature) Features() []Feature {
	var out []Feature
	for bit := FeatureInsert; bit <= FeatureCapacitySignal; bit <<= 1 {
		if f&bit != 0 {
			out = append(out, bit)
		}
	}
	return out
}

type DatabaseInfo struct {
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	CapacityExhausted bool           `json:"capacity_exhausted"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Per-call results
// --------------------------------------------------------------------------

// WriteResult describes the outcome of a successful Insert or Update.
//
// A write can succeed and still report CapacityExhausted: some filesystems
// accept fewer bytes than requested without reporting an error, so the
// storage is considered exhausted whenever Written < Requested.
type WriteResult struct {
	Requested         int  `json:"requested"`
	Written           int  `json:"written"`
	CapacityExhausted bool `json:"capacity_exhausted"`
}

// Short reports whether fewer bytes were written than requested
func (r WriteResult) Short() bool {
	return r.Written < r.Requested
}

// ReadResult describes the outcome of a successful Select.
type ReadResult struct {
	// Value holds the bytes read. If the caller supplied a buffer, Value aliases it.
	Value []byte
	// Size is the number of bytes the single read call returned.
	Size int
	// Truncated is set when the stored value is larger than the read buffer.
	Truncated bool
	// CapacityExhausted is set when the read reported a capacity related error.
	CapacityExhausted bool
}

// --------------------------------------------------------------------------
// Engine Interface
// --------------------------------------------------------------------------

// Engine defines the interface of a single storage backend.
// Every key maps to exactly one value; values are written and read with
// a single bounded I/O call each. Implementations can vary in their feature
// support, which can be queried with SupportsFeature.
type Engine interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Insert creates the entry for key. It must fail with ErrKeyExists if the
	// key is already present and must never overwrite an existing value.
	// Capacity exhaustion is reported through the result, not the error.
	Insert(key string, value []byte) (res WriteResult, err error)

	// Update replaces the value of an existing key. It fails with ErrNotFound
	// if the key is not present. A shorter value shrinks the stored value.
	Update(key string, value []byte) (res WriteResult, err error)

	// Delete removes the entry for key. It fails with ErrNotFound if the key
	// is not present.
	Delete(key string) (err error)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Select reads the value of key with a single read call.
	// If buf is not empty it is used as the read buffer and its length is the
	// read capacity; otherwise the engine uses its own buffer.
	// A missing key is reported as ErrNotFound.
	Select(key string, buf []byte) (res ReadResult, err error)

	// Exist reports whether key is present and the size of its value.
	// An error is only returned for invalid keys or unexpected failures.
	Exist(key string) (size int64, exists bool, err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the engine supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the engine.
	GetInfo() (info DatabaseInfo)

	// CapacityExhausted reports whether any operation on this engine ever
	// detected (or suspected) insufficient storage. The flag is never cleared.
	CapacityExhausted() bool

	// Close closes the engine. Stored values are not touched.
	Close() (err error)
}
