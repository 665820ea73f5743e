// Package engines selects a db.Engine implementation by its kind.
package engines

import (
	"fmt"

	"github.com/ValentinKolb/sdb/lib/db"
	"github.com/ValentinKolb/sdb/lib/db/engines/fileno"
	"github.com/ValentinKolb/sdb/lib/db/engines/memory"
)

// Options bundles the settings of all engines. Only the fields of the
// selected engine are used.
type Options struct {
	Dataset         string // fileno: dataset directory ("" = fileno.DefaultDataset)
	CreateIfMissing bool   // fileno: create the dataset directory
	MaxValueSize    int    // fileno, memory: read capacity of Select without a caller buffer
}

// Open creates the engine of the given kind on dataset (or the default
// dataset if empty). Unknown kinds fail with db.ErrUnknownEngine.
func Open(kind db.Implementation, dataset string) (db.Engine, error) {
	return OpenWithOptions(kind, Options{Dataset: dataset})
}

// OpenWithOptions is like Open but allows to set all engine options
func OpenWithOptions(kind db.Implementation, opts Options) (db.Engine, error) {
	switch kind {
	case db.ImplFileno:
		o := fileno.DefaultOptions()
		if opts.Dataset != "" {
			o.Dataset = opts.Dataset
		}
		if opts.MaxValueSize > 0 {
			o.MaxValueSize = opts.MaxValueSize
		}
		o.CreateIfMissing = opts.CreateIfMissing
		return fileno.NewFilenoDB(o)
	case db.ImplMemory:
		o := memory.DefaultOptions()
		if opts.MaxValueSize > 0 {
			o.MaxValueSize = opts.MaxValueSize
		}
		return memory.NewMemoryDB(o), nil
	default:
		return nil, fmt.Errorf("%w: %q (expected one of: %s, %s)", db.ErrUnknownEngine, kind, db.ImplFileno, db.ImplMemory)
	}
}
