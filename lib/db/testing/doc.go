// Package testing provides standardised tests and benchmarks for
// storage engines that satisfy the db.Engine interface.
//
// The package contains:
//   - testing: A test suite for validating conformance to the Engine contract
//     (exclusive insert, update of existing keys only, not-found reporting,
//     key validation, caller buffers, concurrent exclusive inserts)
//   - benchmark: Performance tests for measuring throughput of common operations
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func(tb testing.TB) db.Engine {
//		return NewMyEngine(tb.TempDir())
//	}
//
//	// Running the standard test suite
//	dbtesting.RunEngineTests(t, "MyEngine", factory)
//
//	// Running performance benchmarks
//	dbtesting.RunEngineBenchmarks(b, "MyEngine", factory)
package testing
