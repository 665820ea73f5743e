// Package cmd implements the command-line interface of sdb. It opens one
// engine per invocation and runs a single operation against it.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value operations (insert, update, select, delete, exist)
//     and a throughput test (perf)
//   - util: Shared utilities for command-line processing, configuration and logging (internal use)
//
// Every flag can also be set with an environment variable SDB_<FLAG>
// (e.g. SDB_DATASET=/var/lib/sdb); .env and .env.local are loaded if present.
//
// See sdb -help for a list of all commands.
package cmd
