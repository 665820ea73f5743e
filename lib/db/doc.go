// Package db provides a standardized interface for small key-value storage engines.
// It defines the Engine interface that allows for consistent interaction
// with different storage backends while abstracting implementation details.
//
// The package focuses on:
//   - A unified interface for key-value operations
//   - Feature discovery through capability flags
//   - Out-of-band reporting of short writes and exhausted storage
//
// Key Components:
//
//   - Engine Interface: The core interface that all implementations must satisfy.
//     It provides Insert (create only), Update (existing keys only), Select,
//     Delete and Exist, metadata retrieval (GetInfo) and the sticky
//     CapacityExhausted flag.
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     advertise through the SupportsFeature method.
//
//   - Implementation Identifiers: The Implementation type provides string constants
//     for the available backends ("fileno" and "memory").
//
//   - Results: WriteResult and ReadResult carry the byte counts of a single
//     operation together with the capacity signal. A write that stored fewer
//     bytes than requested is not an error; it is reported through
//     WriteResult.Short and WriteResult.CapacityExhausted.
//
//   - Keys: ValidateKey enforces the key rules shared by all engines (non-empty,
//     at most NameMax bytes, no path separators, no NUL, not "." or "..").
//
//   - Errors: Sentinel errors (ErrNotFound, ErrKeyExists, ...) are wrapped by the
//     engines and can be checked with errors.Is.
//
//   - Metrics: ObserveOp and friends record every operation in the process-wide
//     VictoriaMetrics set.
//
// Related Packages:
//
// The engines/fileno package stores every key in its own file inside a dataset
// directory. The engines/memory package keeps the keys in a concurrent map and is
// used when no persistence is needed. The engines package opens either of them by
// name.
//
// The testing package (github.com/ValentinKolb/sdb/lib/db/testing) provides
// standardized tests and benchmarks for implementations of the Engine interface.
//   - RunEngineTests: Runs a standardized test suite to validate implementations
//   - RunEngineBenchmarks: Provides performance benchmarks for comparing implementations
package db
