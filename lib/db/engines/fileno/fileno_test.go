package fileno

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"

	"github.com/ValentinKolb/sdb/lib/db"
	dbtesting "github.com/ValentinKolb/sdb/lib/db/testing"
	"github.com/spf13/afero"
)

func newTestDB(tb testing.TB) db.Engine {
	tb.Helper()
	engine, err := NewFilenoDB(&DBOptions{Dataset: tb.TempDir()})
	if err != nil {
		tb.Fatalf("NewFilenoDB: %v", err)
	}
	return engine
}

// newMemFsDB opens an engine on an in-memory filesystem, wrapped by wrap (optional)
func newMemFsDB(t *testing.T, wrap func(afero.Fs) afero.Fs) (db.Engine, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/data", 0o750); err != nil {
		t.Fatal(err)
	}
	if wrap != nil {
		fs = wrap(fs)
	}
	engine, err := NewFilenoDB(&DBOptions{Dataset: "/data", Fs: fs})
	if err != nil {
		t.Fatalf("NewFilenoDB: %v", err)
	}
	return engine, fs
}

func Test(t *testing.T) {
	dbtesting.RunEngineTests(t, "FilenoDB", newTestDB)
}

func Benchmark(b *testing.B) {
	dbtesting.RunEngineBenchmarks(b, "FilenoDB", newTestDB)
}

// --------------------------------------------------------------------------
// Fault injection
// --------------------------------------------------------------------------

// shortWriteFs hands out files that write at most limit bytes per call and
// then return err (which may be nil, like a filesystem that silently cuts writes)
type shortWriteFs struct {
	afero.Fs
	limit int
	err   error
}

func (s *shortWriteFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f, err := s.Fs.OpenFile(name, flag, perm)
	if err != nil || flag&(os.O_WRONLY|os.O_RDWR) == 0 {
		return f, err
	}
	return &shortWriteFile{File: f, limit: s.limit, err: s.err}, nil
}

type shortWriteFile struct {
	afero.File
	limit int
	err   error
}

func (f *shortWriteFile) Write(p []byte) (int, error) {
	if len(p) > f.limit {
		p = p[:f.limit]
	}
	n, err := f.File.Write(p)
	if err != nil {
		return n, err
	}
	return n, f.err
}

// failingFs fails every open and remove with err
type failingFs struct {
	afero.Fs
	err error
}

func (s *failingFs) OpenFile(name string, _ int, _ os.FileMode) (afero.File, error) {
	return nil, &os.PathError{Op: "open", Path: name, Err: s.err}
}

func (s *failingFs) Open(name string) (afero.File, error) {
	return nil, &os.PathError{Op: "open", Path: name, Err: s.err}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestBuildPath(t *testing.T) {
	sep := string(os.PathSeparator)

	cases := []struct {
		name    string
		dataset string
		key     string
		want    string
		wantErr error
	}{
		{"simple", "data", "key", "data" + sep + "key", nil},
		{"absolute", "/var/lib/sdb", "user-1", "/var/lib/sdb" + sep + "user-1", nil},
		{"name max", "d", strings.Repeat("a", db.NameMax), "d" + sep + strings.Repeat("a", db.NameMax), nil},
		{"key too long", "d", strings.Repeat("a", db.NameMax+1), "", db.ErrKeyTooLong},
		{"path too long", strings.Repeat("d", db.PathMax-3), "key", "", db.ErrPathTooLong},
		{"path max", strings.Repeat("d", db.PathMax-4), "key", strings.Repeat("d", db.PathMax-4) + sep + "key", nil},
		{"separator", "d", "a/b", "", db.ErrInvalidKey},
		{"parent", "d", "..", "", db.ErrInvalidKey},
		{"empty", "d", "", "", db.ErrInvalidKey},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := buildPath(c.dataset, c.key)
			if !errors.Is(err, c.wantErr) {
				t.Fatalf("buildPath err = %v, want %v", err, c.wantErr)
			}
			if got != c.want {
				t.Errorf("buildPath = %q, want %q", got, c.want)
			}
		})
	}
}

// TestOnDiskLayout verifies that a value is stored raw in <dataset>/<key>
func TestOnDiskLayout(t *testing.T) {
	dir := t.TempDir()
	engine, err := NewFilenoDB(&DBOptions{Dataset: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	value := []byte{'r', 'a', 'w', 0x00, 0xff}
	if _, err := engine.Insert("layout", value); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "layout"))
	if err != nil {
		t.Fatalf("value file missing: %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Errorf("file content = %v, want %v", got, value)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dataset contains %d entries, want 1", len(entries))
	}
}

// TestSilentShortWrite simulates a filesystem that accepts fewer bytes than
// requested without reporting an error. The write succeeds, but the capacity
// flag must be raised.
func TestSilentShortWrite(t *testing.T) {
	engine, _ := newMemFsDB(t, func(fs afero.Fs) afero.Fs {
		return &shortWriteFs{Fs: fs, limit: 4}
	})

	if engine.CapacityExhausted() {
		t.Fatal("fresh engine reports exhausted capacity")
	}

	res, err := engine.Insert("key", []byte("0123456789"))
	if err != nil {
		t.Fatalf("Insert returned %v, short writes must not fail the call", err)
	}
	if res.Requested != 10 || res.Written != 4 || !res.Short() || !res.CapacityExhausted {
		t.Errorf("Insert result = %+v, want 4 of 10 bytes and exhausted", res)
	}
	if !engine.CapacityExhausted() {
		t.Error("capacity flag not set after short write")
	}

	// the flag is sticky: a later complete write does not clear it
	res, err = engine.Insert("small", []byte("abc"))
	if err != nil || res.CapacityExhausted {
		t.Fatalf("Insert(small) = %+v, %v", res, err)
	}
	if !engine.CapacityExhausted() || !engine.GetInfo().CapacityExhausted {
		t.Error("capacity flag was cleared")
	}

	// update follows the same policy
	res, err = engine.Update("small", []byte("abcdefgh"))
	if err != nil || !res.CapacityExhausted || res.Written != 4 {
		t.Errorf("Update = %+v, %v", res, err)
	}
}

// TestShortWriteWithError covers a partial write that reports ENOSPC
func TestShortWriteWithError(t *testing.T) {
	engine, _ := newMemFsDB(t, func(fs afero.Fs) afero.Fs {
		return &shortWriteFs{Fs: fs, limit: 2, err: syscall.ENOSPC}
	})

	res, err := engine.Insert("key", []byte("value"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !res.CapacityExhausted || res.Written != 2 {
		t.Errorf("Insert result = %+v", res)
	}
	if !engine.CapacityExhausted() {
		t.Error("capacity flag not set")
	}
}

// TestFailedWrite covers writes that store nothing at all
func TestFailedWrite(t *testing.T) {
	cases := []struct {
		name          string
		err           error
		wantFail      bool
		wantExhausted bool
	}{
		{"no space", syscall.ENOSPC, true, true},
		{"file too big", syscall.EFBIG, true, true},
		{"io error", syscall.EIO, true, false},
		{"silent zero write", io.ErrUnexpectedEOF, false, true},
		{"short write", io.ErrShortWrite, false, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			engine, fs := newMemFsDB(t, func(fs afero.Fs) afero.Fs {
				return &shortWriteFs{Fs: fs, limit: 0, err: c.err}
			})

			res, err := engine.Insert("key", []byte("value"))
			if c.wantFail {
				if !errors.Is(err, c.err) {
					t.Fatalf("Insert err = %v, want %v", err, c.err)
				}
				// no empty key may be left behind
				if ok, _ := afero.Exists(fs, "/data/key"); ok {
					t.Error("failed Insert left the file behind")
				}
				if _, ok, _ := engine.Exist("key"); ok {
					t.Error("Exist = true after failed Insert")
				}
			} else {
				if err != nil {
					t.Fatalf("Insert: %v", err)
				}
				if !res.CapacityExhausted || res.Written != 0 || res.Requested != 5 {
					t.Errorf("Insert result = %+v", res)
				}
			}
			if got := engine.CapacityExhausted(); got != c.wantExhausted {
				t.Errorf("CapacityExhausted = %v, want %v", got, c.wantExhausted)
			}
		})
	}
}

// TestOpenFailure checks that only ENOMEM raises the capacity flag on open
func TestOpenFailure(t *testing.T) {
	for _, c := range []struct {
		err           error
		wantExhausted bool
	}{
		{syscall.ENOMEM, true},
		{syscall.EACCES, false},
	} {
		engine, _ := newMemFsDB(t, func(fs afero.Fs) afero.Fs {
			return &failingFs{Fs: fs, err: c.err}
		})

		if _, err := engine.Insert("key", []byte("v")); !errors.Is(err, c.err) {
			t.Errorf("Insert err = %v, want %v", err, c.err)
		}
		if _, err := engine.Select("key", nil); !errors.Is(err, c.err) {
			t.Errorf("Select err = %v, want %v", err, c.err)
		}
		if got := engine.CapacityExhausted(); got != c.wantExhausted {
			t.Errorf("%v: CapacityExhausted = %v, want %v", c.err, got, c.wantExhausted)
		}
	}
}

func TestSelectDefaultBufferTruncates(t *testing.T) {
	engine, err := NewFilenoDB(&DBOptions{Dataset: t.TempDir(), MaxValueSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	if _, err := engine.Insert("big", []byte("0123456789abcdef")); err != nil {
		t.Fatal(err)
	}
	res, err := engine.Select("big", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Value) != "01234567" || res.Size != 8 || !res.Truncated {
		t.Errorf("Select = %+v, want 8 truncated bytes", res)
	}

	if _, err := engine.Insert("fits", []byte("01234567")); err != nil {
		t.Fatal(err)
	}
	res, err = engine.Select("fits", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Truncated || res.Size != 8 {
		t.Errorf("Select(exact size) = %+v, want not truncated", res)
	}
}

func TestPathTooLong(t *testing.T) {
	fs := afero.NewMemMapFs()
	dataset := "/" + strings.Repeat("d", db.PathMax-10)
	if err := fs.MkdirAll(dataset, 0o750); err != nil {
		t.Fatal(err)
	}
	engine, err := NewFilenoDB(&DBOptions{Dataset: dataset, Fs: fs})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := engine.Insert("short", []byte("v")); err != nil {
		t.Errorf("Insert(short): %v", err)
	}
	if _, err := engine.Insert("a-key-that-does-not-fit", []byte("v")); !errors.Is(err, db.ErrPathTooLong) {
		t.Errorf("Insert(long) err = %v, want ErrPathTooLong", err)
	}
	if _, _, err := engine.Exist("a-key-that-does-not-fit"); !errors.Is(err, db.ErrPathTooLong) {
		t.Errorf("Exist(long) err = %v, want ErrPathTooLong", err)
	}
}

func TestExistRequiresReadWriteAccess(t *testing.T) {
	engine, fs := newMemFsDB(t, nil)

	if _, err := engine.Insert("key", []byte("value")); err != nil {
		t.Fatal(err)
	}
	if err := fs.Chmod("/data/key", 0o400); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := engine.Exist("key"); err != nil || ok {
		t.Errorf("Exist(read-only) = (%v, %v), want (false, nil)", ok, err)
	}

	if err := fs.Mkdir("/data/dir", 0o750); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := engine.Exist("dir"); ok {
		t.Error("Exist reports a directory as a value")
	}
}

func TestNewFilenoDB(t *testing.T) {
	t.Run("MissingDataset", func(t *testing.T) {
		_, err := NewFilenoDB(&DBOptions{Dataset: filepath.Join(t.TempDir(), "missing")})
		if !errors.Is(err, db.ErrDatasetNotWritable) {
			t.Errorf("err = %v, want ErrDatasetNotWritable", err)
		}
	})

	t.Run("DatasetIsFile", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := NewFilenoDB(&DBOptions{Dataset: file})
		if !errors.Is(err, db.ErrDatasetNotWritable) {
			t.Errorf("err = %v, want ErrDatasetNotWritable", err)
		}
	})

	t.Run("CreateIfMissing", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "new", "nested")
		engine, err := NewFilenoDB(&DBOptions{Dataset: dir, CreateIfMissing: true})
		if err != nil {
			t.Fatalf("NewFilenoDB: %v", err)
		}
		defer engine.Close()
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("dataset was not created: %v", err)
		}
	})

	t.Run("ReadOnlyDataset", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		if err := fs.MkdirAll("/ro", 0o550); err != nil {
			t.Fatal(err)
		}
		_, err := NewFilenoDB(&DBOptions{Dataset: "/ro", Fs: fs})
		if !errors.Is(err, db.ErrDatasetNotWritable) {
			t.Errorf("err = %v, want ErrDatasetNotWritable", err)
		}
	})

	t.Run("DefaultDataset", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		engine, err := NewFilenoDB(&DBOptions{Fs: fs, CreateIfMissing: true})
		if err != nil {
			t.Fatalf("NewFilenoDB: %v", err)
		}
		meta := engine.GetInfo().Metadata.(Metadata)
		if meta.Dataset != DefaultDataset || meta.MaxValueSize != DefaultMaxValueSize {
			t.Errorf("metadata = %+v", meta)
		}
		if ok, _ := afero.DirExists(fs, DefaultDataset); !ok {
			t.Error("default dataset was not created")
		}
	})
}

func TestInfo(t *testing.T) {
	engine := newTestDB(t)
	defer engine.Close()

	info := engine.GetInfo()
	if info.DbType != db.ImplFileno {
		t.Errorf("DbType = %s", info.DbType)
	}
	if !engine.SupportsFeature(db.FeatureDurable | db.FeatureCapacitySignal | db.FeatureCustomBuffer) {
		t.Error("missing features")
	}
	if len(info.SupportedFeatures) != 8 {
		t.Errorf("SupportedFeatures = %v", info.SupportedFeatures)
	}

	meta := info.Metadata.(Metadata)
	if runtime.GOOS == "linux" && (meta.TotalBytes == 0 || meta.AvailBytes > meta.TotalBytes) {
		t.Errorf("space = %d of %d bytes", meta.AvailBytes, meta.TotalBytes)
	}
}
