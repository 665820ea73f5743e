package testing

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/sdb/lib/db"
)

// RunEngineBenchmarks runs all benchmarks for an engine implementation
func RunEngineBenchmarks(b *testing.B, name string, factory EngineFactory) {

	b.Run("Insert", func(b *testing.B) {
		benchmarkInsert(b, factory(b))
	})

	b.Run("InsertLargeValue", func(b *testing.B) {
		benchmarkInsertLargeValue(b, factory(b))
	})

	b.Run("Update", func(b *testing.B) {
		benchmarkUpdate(b, factory(b))
	})

	b.Run("Select", func(b *testing.B) {
		benchmarkSelect(b, factory(b), false)
	})

	b.Run("SelectCustomBuffer", func(b *testing.B) {
		benchmarkSelect(b, factory(b), true)
	})

	b.Run("Exist", func(b *testing.B) {
		benchmarkExist(b, factory(b))
	})

	b.Run("Delete", func(b *testing.B) {
		benchmarkDelete(b, factory(b))
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, factory(b))
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// prepare inserts numKeys small values and returns their keys
func prepare(b *testing.B, engine db.Engine, numKeys int) []string {
	keys := make([]string, numKeys)
	for i := range keys {
		keys[i] = fmt.Sprintf("test-key-%d", i)
		if _, err := engine.Insert(keys[i], []byte(fmt.Sprintf("test-value-%d", i))); err != nil {
			b.Fatalf("Insert: %v", err)
		}
	}
	return keys
}

// Benchmark for Insert operation
func benchmarkInsert(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		engine.Close()
	})

	requireFeature(b, engine, db.FeatureInsert)

	var counter atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := counter.Add(1)
			if _, err := engine.Insert(fmt.Sprintf("test-key-%d", i), []byte("test-value")); err != nil {
				b.Errorf("Insert: %v", err)
			}
		}
	})
}

// Benchmark for Insert operation with large values
func benchmarkInsertLargeValue(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		engine.Close()
	})

	requireFeature(b, engine, db.FeatureInsert)

	var counter atomic.Int64
	largeValue := make([]byte, 64*1024) // 64KB

	b.SetBytes(int64(len(largeValue)))
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := counter.Add(1)
			if _, err := engine.Insert(fmt.Sprintf("test-key-%d", i), largeValue); err != nil {
				b.Errorf("Insert: %v", err)
			}
		}
	})
}

// Benchmark for Update operation on existing keys
func benchmarkUpdate(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		engine.Close()
	})

	requireFeature(b, engine, db.FeatureInsert|db.FeatureUpdate)

	keys := prepare(b, engine, 1000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := rand.Intn(len(keys))
		for pb.Next() {
			_, _ = engine.Update(keys[counter%len(keys)], []byte("updated-value"))
			counter++
		}
	})
}

// Parallel benchmarking for Select operation
func benchmarkSelect(b *testing.B, engine db.Engine, customBuffer bool) {
	b.Cleanup(func() {
		engine.Close()
	})

	requireFeature(b, engine, db.FeatureInsert|db.FeatureSelect)
	if customBuffer {
		requireFeature(b, engine, db.FeatureCustomBuffer)
	}

	keys := prepare(b, engine, 1000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		var buf []byte
		if customBuffer {
			buf = make([]byte, 256)
		}
		counter := rand.Intn(len(keys))
		for pb.Next() {
			if _, err := engine.Select(keys[counter%len(keys)], buf); err != nil {
				b.Errorf("Select: %v", err)
			}
			counter++
		}
	})
}

// Parallel benchmarking for Exist operation
func benchmarkExist(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		engine.Close()
	})

	requireFeature(b, engine, db.FeatureInsert|db.FeatureExist)

	keys := prepare(b, engine, 1000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := rand.Intn(len(keys))
		for pb.Next() {
			_, _, _ = engine.Exist(keys[counter%len(keys)])
			counter++
		}
	})
}

// Parallel benchmarking for Delete operation
func benchmarkDelete(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		engine.Close()
	})

	requireFeature(b, engine, db.FeatureInsert|db.FeatureDelete)

	keys := prepare(b, engine, b.N)

	var counter atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := counter.Add(1) - 1
			if i < int64(len(keys)) {
				_ = engine.Delete(keys[i])
			}
		}
	})
}

// Benchmark for a mix of reads and writes
func benchmarkMixedUsage(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		engine.Close()
	})

	requireFeature(b, engine, db.FeatureInsert|db.FeatureUpdate|db.FeatureSelect|db.FeatureExist)

	keys := prepare(b, engine, 1000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			key := keys[r.Intn(len(keys))]
			switch op := r.Intn(10); {
			case op < 6:
				_, _ = engine.Select(key, nil)
			case op < 8:
				_, _, _ = engine.Exist(key)
			default:
				_, _ = engine.Update(key, []byte("mixed-value"))
			}
		}
	})
}
