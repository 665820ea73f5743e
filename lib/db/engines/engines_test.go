package engines

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/sdb/lib/db"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	engine, err := Open(db.ImplFileno, dir)
	if err != nil {
		t.Fatalf("Open(fileno): %v", err)
	}
	if got := engine.GetInfo().DbType; got != db.ImplFileno {
		t.Errorf("DbType = %s, want fileno", got)
	}
	engine.Close()

	engine, err = Open(db.ImplMemory, "")
	if err != nil {
		t.Fatalf("Open(memory): %v", err)
	}
	if got := engine.GetInfo().DbType; got != db.ImplMemory {
		t.Errorf("DbType = %s, want memory", got)
	}
	engine.Close()
}

func TestOpenUnknownEngine(t *testing.T) {
	engine, err := Open("leveldb", t.TempDir())
	if !errors.Is(err, db.ErrUnknownEngine) || engine != nil {
		t.Errorf("Open(leveldb) = (%v, %v), want (nil, ErrUnknownEngine)", engine, err)
	}
}

func TestOpenUnwritableDataset(t *testing.T) {
	engine, err := Open(db.ImplFileno, filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, db.ErrDatasetNotWritable) || engine != nil {
		t.Errorf("Open(missing) = (%v, %v), want (nil, ErrDatasetNotWritable)", engine, err)
	}
}

func TestOpenWithOptions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "created")

	engine, err := OpenWithOptions(db.ImplFileno, Options{Dataset: dir, CreateIfMissing: true, MaxValueSize: 2})
	if err != nil {
		t.Fatalf("OpenWithOptions: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Insert("k", []byte("abc")); err != nil {
		t.Fatal(err)
	}
	res, err := engine.Select("k", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Value) != "ab" || !res.Truncated {
		t.Errorf("Select = %+v, want MaxValueSize to apply", res)
	}
}
