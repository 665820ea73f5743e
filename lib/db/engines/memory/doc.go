// Package memory implements a volatile db.Engine on top of xsync.MapOf.
//
// It follows the same contract as the fileno engine (exclusive Insert, Update
// of existing keys only, single bounded read on Select) and is used where no
// durability is needed, e.g. for benchmarks of the calling layer and tests.
// Values are copied on write and on read.
package memory
