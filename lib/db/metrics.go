package db

import (
	"errors"
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Operation metrics (shared by all engines)
// --------------------------------------------------------------------------

// ObserveOp counts a finished operation of an engine.
// The result label is one of ok, not_found, exists, invalid or error.
func ObserveOp(engine Implementation, op string, err error) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`sdb_ops_total{engine=%q,op=%q,result=%q}`, engine, op, resultLabel(err))).Inc()
}

// ObserveValueSize records the size of a value written or read by an engine
func ObserveValueSize(engine Implementation, op string, size int) {
	metrics.GetOrCreateHistogram(fmt.Sprintf(`sdb_value_bytes{engine=%q,op=%q}`, engine, op)).Update(float64(size))
}

// ObserveCapacityExhausted counts an operation that detected storage exhaustion
func ObserveCapacityExhausted(engine Implementation) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`sdb_capacity_exhausted_total{engine=%q}`, engine)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrKeyExists):
		return "exists"
	case errors.Is(err, ErrInvalidKey), errors.Is(err, ErrKeyTooLong), errors.Is(err, ErrPathTooLong):
		return "invalid"
	default:
		return "error"
	}
}
