// Package fileno implements a db.Engine that stores every key in its own file.
//
// A dataset is a plain directory. The value of key K lives in the regular file
// <dataset>/K; the file contains the raw value bytes without any header,
// length prefix or checksum. Values are written and read with a single bounded
// I/O call each, so the engine is meant for small values.
//
// Key Components:
//
//   - Path builder: keys are validated with db.ValidateKey (no separators, no
//     "." or "..", at most db.NameMax bytes) and the resulting path must not be
//     longer than db.PathMax. Violations are returned as errors before the
//     filesystem is touched.
//
//   - Write path: Insert opens the file with O_CREATE|O_EXCL and therefore never
//     overwrites. Update opens an existing file with O_TRUNC. Both issue exactly
//     one write call.
//
//   - Read path: Select issues exactly one read call into either a caller
//     supplied buffer or a pooled buffer of DBOptions.MaxValueSize bytes. The
//     number of bytes read and whether the value was cut off are part of the
//     db.ReadResult.
//
//   - Exist / Delete: Exist checks read and write access of the key's file and
//     returns its size. Delete removes the file.
//
// Capacity Detection:
//
// Some filesystems accept fewer bytes than requested when they are close to
// full and do not report an error for it (a small ext2 image is enough to see
// this). A write is therefore considered to have hit the capacity limit if the
// error is ENOMEM, EFBIG, ENOSPC or EDQUOT, or if fewer bytes were written than
// requested, no matter what the error channel says. This is reported out of
// band: the write still succeeds, db.WriteResult.CapacityExhausted is set and
// the engine wide flag returned by CapacityExhausted() becomes true and stays
// true for the lifetime of the engine.
//
// Concurrency:
//
// The engine does not lock. Two concurrent Inserts of the same key are decided
// by the filesystem (exactly one exclusive create succeeds); concurrent Update,
// Select and Delete of the same key interleave as the OS allows. Select without
// a caller buffer is safe for concurrent use since every call gets its own
// pooled buffer.
package fileno
