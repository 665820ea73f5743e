package testing

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/sdb/lib/db"
)

// EngineFactory is a function that creates a new instance of an Engine implementation.
// The testing.TB can be used to obtain temporary directories and register cleanups.
type EngineFactory func(tb testing.TB) db.Engine

// RunEngineTests runs a comprehensive test suite for an Engine implementation.
func RunEngineTests(t *testing.T, name string, factory EngineFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Insert&Select", func(t *testing.T) {
			testInsertSelect(t, factory(t))
		})

		t.Run("InsertExisting", func(t *testing.T) {
			testInsertExisting(t, factory(t))
		})

		t.Run("Update", func(t *testing.T) {
			testUpdate(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("Exist", func(t *testing.T) {
			testExist(t, factory(t))
		})

		t.Run("InvalidKeys", func(t *testing.T) {
			testInvalidKeys(t, factory(t))
		})

		t.Run("CustomBuffer", func(t *testing.T) {
			testCustomBuffer(t, factory(t))
		})

		t.Run("ValueIsolation", func(t *testing.T) {
			testValueIsolation(t, factory(t))
		})

		t.Run("ConcurrentInsert", func(t *testing.T) {
			testConcurrentInsert(t, factory(t))
		})

		t.Run("ConcurrentSelect", func(t *testing.T) {
			testConcurrentSelect(t, factory(t))
		})

		t.Run("Closed", func(t *testing.T) {
			testClosed(t, factory(t))
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory(t))
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the engine supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, engine db.Engine, feature db.Feature) {
	if !engine.SupportsFeature(feature) {
		t.Skip()
	}
}

func mustInsert(t testing.TB, engine db.Engine, key string, value []byte) {
	t.Helper()
	res, err := engine.Insert(key, value)
	if err != nil {
		t.Fatalf("Insert(%q): %v", key, err)
	}
	if res.Written != len(value) || res.Requested != len(value) {
		t.Fatalf("Insert(%q) = %+v, want %d bytes written", key, res, len(value))
	}
}

func mustSelect(t testing.TB, engine db.Engine, key string) []byte {
	t.Helper()
	res, err := engine.Select(key, nil)
	if err != nil {
		t.Fatalf("Select(%q): %v", key, err)
	}
	if res.Size != len(res.Value) {
		t.Errorf("Select(%q) size = %d, len(value) = %d", key, res.Size, len(res.Value))
	}
	return res.Value
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testInsertSelect(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureInsert|db.FeatureSelect)

	values := map[string][]byte{
		"text":      []byte("test-value"),
		"binary":    {0x00, 0xff, 0x10, 0x00, 0x7f},
		"empty":     {},
		"large":     bytes.Repeat([]byte("x"), 16*1024),
		"dots.k-_~": []byte("key with punctuation"),
	}

	for key, value := range values {
		mustInsert(t, engine, key, value)
	}

	for key, want := range values {
		got := mustSelect(t, engine, key)
		if !bytes.Equal(got, want) {
			t.Errorf("Select(%q) = %q, want %q", key, got, want)
		}
	}

	_, err := engine.Select("nonexistent-key", nil)
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Select(nonexistent) err = %v, want ErrNotFound", err)
	}
}

func testInsertExisting(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureInsert|db.FeatureSelect)

	key := "existing-key"
	original := []byte("original-value")
	mustInsert(t, engine, key, original)

	_, err := engine.Insert(key, []byte("other"))
	if !errors.Is(err, db.ErrKeyExists) {
		t.Errorf("second Insert err = %v, want ErrKeyExists", err)
	}

	if got := mustSelect(t, engine, key); !bytes.Equal(got, original) {
		t.Errorf("value changed by failed Insert: got %q, want %q", got, original)
	}
}

func testUpdate(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureInsert|db.FeatureUpdate|db.FeatureSelect)

	_, err := engine.Update("missing-key", []byte("value"))
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Update(missing) err = %v, want ErrNotFound", err)
	}
	if _, ok, _ := engine.Exist("missing-key"); ok {
		t.Errorf("Update(missing) must not create the key")
	}

	key := "update-key"
	mustInsert(t, engine, key, []byte("a rather long initial value"))

	for _, next := range [][]byte{
		[]byte("short"),
		[]byte("a value that is longer than the previous one"),
		{},
		[]byte("final"),
	} {
		res, err := engine.Update(key, next)
		if err != nil {
			t.Fatalf("Update(%q): %v", next, err)
		}
		if res.Written != len(next) || res.CapacityExhausted {
			t.Errorf("Update(%q) = %+v", next, res)
		}
		if got := mustSelect(t, engine, key); !bytes.Equal(got, next) {
			t.Errorf("after Update: got %q, want %q", got, next)
		}
	}
}

func testDelete(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureInsert|db.FeatureDelete|db.FeatureSelect)

	key := "delete-key"
	mustInsert(t, engine, key, []byte("value"))

	if err := engine.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := engine.Select(key, nil); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Select after Delete err = %v, want ErrNotFound", err)
	}

	if err := engine.Delete(key); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}

	// a deleted key can be inserted again
	mustInsert(t, engine, key, []byte("again"))
	if got := mustSelect(t, engine, key); string(got) != "again" {
		t.Errorf("after re-insert got %q", got)
	}
}

func testExist(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureInsert|db.FeatureDelete|db.FeatureExist)

	key := "exist-key"
	value := []byte("exist-value")

	if size, ok, err := engine.Exist(key); err != nil || ok || size != 0 {
		t.Errorf("Exist(missing) = (%d, %v, %v), want (0, false, nil)", size, ok, err)
	}

	mustInsert(t, engine, key, value)
	if size, ok, err := engine.Exist(key); err != nil || !ok || size != int64(len(value)) {
		t.Errorf("Exist after Insert = (%d, %v, %v), want (%d, true, nil)", size, ok, err, len(value))
	}

	mustInsert(t, engine, "empty-key", nil)
	if size, ok, err := engine.Exist("empty-key"); err != nil || !ok || size != 0 {
		t.Errorf("Exist(empty value) = (%d, %v, %v), want (0, true, nil)", size, ok, err)
	}

	if err := engine.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if size, ok, err := engine.Exist(key); err != nil || ok || size != 0 {
		t.Errorf("Exist after Delete = (%d, %v, %v), want (0, false, nil)", size, ok, err)
	}
}

func testInvalidKeys(t *testing.T, engine db.Engine) {
	defer engine.Close()

	cases := []struct {
		key  string
		want error
	}{
		{"", db.ErrInvalidKey},
		{".", db.ErrInvalidKey},
		{"..", db.ErrInvalidKey},
		{"a/b", db.ErrInvalidKey},
		{"../escape", db.ErrInvalidKey},
		{"nul\x00byte", db.ErrInvalidKey},
		{strings.Repeat("k", db.NameMax+1), db.ErrKeyTooLong},
	}

	for _, c := range cases {
		if _, err := engine.Insert(c.key, []byte("x")); !errors.Is(err, c.want) {
			t.Errorf("Insert(%q) err = %v, want %v", c.key, err, c.want)
		}
		if _, err := engine.Update(c.key, []byte("x")); !errors.Is(err, c.want) {
			t.Errorf("Update(%q) err = %v, want %v", c.key, err, c.want)
		}
		if _, err := engine.Select(c.key, nil); !errors.Is(err, c.want) {
			t.Errorf("Select(%q) err = %v, want %v", c.key, err, c.want)
		}
		if err := engine.Delete(c.key); !errors.Is(err, c.want) {
			t.Errorf("Delete(%q) err = %v, want %v", c.key, err, c.want)
		}
		if _, ok, err := engine.Exist(c.key); !errors.Is(err, c.want) || ok {
			t.Errorf("Exist(%q) = (%v, %v), want (false, %v)", c.key, ok, err, c.want)
		}
	}

	// the longest allowed key works
	longest := strings.Repeat("k", db.NameMax)
	if _, err := engine.Insert(longest, []byte("x")); err != nil {
		t.Errorf("Insert(NameMax key): %v", err)
	}
}

func testCustomBuffer(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureInsert|db.FeatureSelect|db.FeatureCustomBuffer)

	key := "buffer-key"
	value := []byte("0123456789")
	mustInsert(t, engine, key, value)

	// larger buffer: whole value, aliasing the buffer
	large := make([]byte, 64)
	res, err := engine.Select(key, large)
	if err != nil {
		t.Fatalf("Select(large buffer): %v", err)
	}
	if !bytes.Equal(res.Value, value) || res.Size != len(value) || res.Truncated {
		t.Errorf("Select(large buffer) = %+v", res)
	}
	if &res.Value[0] != &large[0] {
		t.Errorf("Select should read into the supplied buffer")
	}

	// smaller buffer: cut off, reported as truncated
	small := make([]byte, 4)
	res, err = engine.Select(key, small)
	if err != nil {
		t.Fatalf("Select(small buffer): %v", err)
	}
	if string(res.Value) != "0123" || res.Size != 4 || !res.Truncated {
		t.Errorf("Select(small buffer) = %+v, want 4 truncated bytes", res)
	}

	// exact buffer: not truncated
	exact := make([]byte, len(value))
	res, err = engine.Select(key, exact)
	if err != nil {
		t.Fatalf("Select(exact buffer): %v", err)
	}
	if !bytes.Equal(res.Value, value) || res.Truncated {
		t.Errorf("Select(exact buffer) = %+v", res)
	}
}

func testValueIsolation(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureInsert|db.FeatureSelect)

	key := "isolation-key"
	value := []byte("isolated")
	mustInsert(t, engine, key, value)

	value[0] = 'X'
	got := mustSelect(t, engine, key)
	if string(got) != "isolated" {
		t.Errorf("stored value changed through the callers slice: %q", got)
	}

	got[0] = 'Y'
	if again := mustSelect(t, engine, key); string(again) != "isolated" {
		t.Errorf("Select should return a copy, got %q", again)
	}
}

func testConcurrentInsert(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureInsert|db.FeatureSelect)

	const workers = 16
	for round := 0; round < 10; round++ {
		key := fmt.Sprintf("race-key-%d", round)

		var (
			wg        sync.WaitGroup
			start     = make(chan struct{})
			succeeded atomic.Int32
			winner    atomic.Int32
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, err := engine.Insert(key, []byte(fmt.Sprintf("worker-%d", i)))
				switch {
				case err == nil:
					succeeded.Add(1)
					winner.Store(int32(i))
				case !errors.Is(err, db.ErrKeyExists):
					t.Errorf("Insert: unexpected error %v", err)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		if n := succeeded.Load(); n != 1 {
			t.Fatalf("round %d: %d concurrent Inserts succeeded, want exactly 1", round, n)
		}
		if got := mustSelect(t, engine, key); string(got) != fmt.Sprintf("worker-%d", winner.Load()) {
			t.Errorf("round %d: value %q is not the one of the winner", round, got)
		}
	}
}

func testConcurrentSelect(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureInsert|db.FeatureSelect)

	const numKeys = 32
	for i := 0; i < numKeys; i++ {
		mustInsert(t, engine, fmt.Sprintf("key-%d", i), []byte(fmt.Sprintf("value-%d", i)))
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for round := 0; round < 20; round++ {
				for i := 0; i < numKeys; i++ {
					res, err := engine.Select(fmt.Sprintf("key-%d", i), nil)
					if err != nil {
						t.Errorf("Select: %v", err)
						return
					}
					if want := fmt.Sprintf("value-%d", i); string(res.Value) != want {
						t.Errorf("Select(key-%d) = %q, want %q", i, res.Value, want)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func testClosed(t *testing.T, engine db.Engine) {
	mustInsert(t, engine, "key", []byte("value"))

	if err := engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if _, err := engine.Insert("other", []byte("v")); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Insert after Close err = %v, want ErrClosed", err)
	}
	if _, err := engine.Select("key", nil); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Select after Close err = %v, want ErrClosed", err)
	}
}

func testInfo(t *testing.T, engine db.Engine) {
	defer engine.Close()

	info := engine.GetInfo()
	if info.DbType == "" {
		t.Errorf("GetInfo: empty DbType")
	}
	for _, f := range info.SupportedFeatures {
		if !engine.SupportsFeature(f) {
			t.Errorf("feature %s listed but not supported", f)
		}
	}
	if info.CapacityExhausted != engine.CapacityExhausted() {
		t.Errorf("GetInfo capacity flag %v != CapacityExhausted() %v", info.CapacityExhausted, engine.CapacityExhausted())
	}
}

func testRealisticUsage(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureInsert|db.FeatureUpdate|db.FeatureSelect|db.FeatureDelete|db.FeatureExist)

	const numKeys = 200
	for i := 0; i < numKeys; i++ {
		mustInsert(t, engine, fmt.Sprintf("user-%d", i), []byte(fmt.Sprintf(`{"id":%d}`, i)))
	}

	// update every third, delete every fifth
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("user-%d", i)
		if i%3 == 0 {
			if _, err := engine.Update(key, []byte(fmt.Sprintf(`{"id":%d,"v":2}`, i))); err != nil {
				t.Fatalf("Update(%s): %v", key, err)
			}
		}
		if i%5 == 0 {
			if err := engine.Delete(key); err != nil {
				t.Fatalf("Delete(%s): %v", key, err)
			}
		}
	}

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("user-%d", i)
		_, ok, err := engine.Exist(key)
		if err != nil {
			t.Fatalf("Exist(%s): %v", key, err)
		}
		if i%5 == 0 {
			if ok {
				t.Errorf("%s should be deleted", key)
			}
			continue
		}
		want := fmt.Sprintf(`{"id":%d}`, i)
		if i%3 == 0 {
			want = fmt.Sprintf(`{"id":%d,"v":2}`, i)
		}
		if got := mustSelect(t, engine, key); string(got) != want {
			t.Errorf("Select(%s) = %s, want %s", key, got, want)
		}
	}

	if engine.CapacityExhausted() {
		t.Errorf("capacity flag set without exhaustion")
	}
}
