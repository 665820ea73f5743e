package fileno

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/sdb/lib/db"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/afero"
)

var plog = logger.GetLogger("fileno")

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	DefaultDataset      = "sdb_storage"      // Dataset used when none is configured
	DefaultMaxValueSize = 64 * 1024          // Size of the engine owned read buffer
	DefaultFileMode     = os.FileMode(0o666) // Permissions of new value files (before umask)
)

const (
	features = db.FeatureInsert |
		db.FeatureUpdate |
		db.FeatureSelect |
		db.FeatureDelete |
		db.FeatureExist |
		db.FeatureCustomBuffer |
		db.FeatureDurable |
		db.FeatureCapacitySignal
)

// --------------------------------------------------------------------------
// Core fileno engine structure
// --------------------------------------------------------------------------

// filenoImpl stores every key in its own file directly inside the dataset directory
type filenoImpl struct {
	dataset  string
	fs       afero.Fs
	fileMode os.FileMode
	maxValue int
	scratch  sync.Pool // *[]byte of maxValue bytes, used by Select without a caller buffer

	capacityExhausted atomic.Bool // sticky, never cleared
	closed            atomic.Bool
}

// DBOptions configures the fileno engine during initialization
type DBOptions struct {
	Dataset         string      // Directory that holds the value files ("" = DefaultDataset)
	CreateIfMissing bool        // Create the dataset directory if it does not exist
	MaxValueSize    int         // Read capacity of Select without a caller buffer (0 = default)
	FileMode        os.FileMode // Permissions of new value files (0 = default)
	Fs              afero.Fs    // Filesystem to operate on (nil = the OS filesystem)
}

// DefaultOptions returns the default fileno options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		Dataset:      DefaultDataset,
		MaxValueSize: DefaultMaxValueSize,
		FileMode:     DefaultFileMode,
		Fs:           afero.NewOsFs(),
	}
}

// Metadata is the engine specific part of db.DatabaseInfo
type Metadata struct {
	Dataset      string `json:"dataset"`
	MaxValueSize int    `json:"max_value_size"`
	AvailBytes   uint64 `json:"avail_bytes"`
	TotalBytes   uint64 `json:"total_bytes"`
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewFilenoDB opens the dataset described by opts (optional).
//
// The dataset must be an existing, writable directory (unless CreateIfMissing
// is set, in which case it is created first). Otherwise an error wrapping
// db.ErrDatasetNotWritable is returned.
func NewFilenoDB(opts *DBOptions) (db.Engine, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	f := &filenoImpl{
		dataset:  opts.Dataset,
		fs:       opts.Fs,
		fileMode: opts.FileMode,
		maxValue: opts.MaxValueSize,
	}
	if f.dataset == "" {
		f.dataset = DefaultDataset
	}
	f.dataset = filepath.Clean(f.dataset)
	if f.fs == nil {
		f.fs = afero.NewOsFs()
	}
	if f.fileMode == 0 {
		f.fileMode = DefaultFileMode
	}
	if f.maxValue <= 0 {
		f.maxValue = DefaultMaxValueSize
	}
	f.scratch.New = func() any {
		buf := make([]byte, f.maxValue)
		return &buf
	}

	if opts.CreateIfMissing {
		if err := f.fs.MkdirAll(f.dataset, 0o750); err != nil {
			return nil, fmt.Errorf("%w: create %q: %w", db.ErrDatasetNotWritable, f.dataset, err)
		}
	}

	info, err := f.fs.Stat(f.dataset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", db.ErrDatasetNotWritable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a directory", db.ErrDatasetNotWritable, f.dataset)
	}
	if !accessible(f.fs, f.dataset, accessWrite) {
		return nil, fmt.Errorf("%w: %q", db.ErrDatasetNotWritable, f.dataset)
	}

	plog.Infof("opened dataset %s (max value size %d)", f.dataset, f.maxValue)
	return f, nil
}

// --------------------------------------------------------------------------
// Core Engine Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Insert creates the file for key and writes value into it.
// It never overwrites: if the file already exists the call fails with
// db.ErrKeyExists and the stored value is left untouched. If the write fails
// without storing a single byte the new file is removed again.
func (f *filenoImpl) Insert(key string, value []byte) (res db.WriteResult, err error) {
	defer func() { db.ObserveOp(db.ImplFileno, "insert", err) }()
	return f.write(key, value, os.O_WRONLY|os.O_CREATE|os.O_EXCL)
}

// Update truncates the existing file for key and writes value into it.
// If the file does not exist the call fails with db.ErrNotFound. A failed
// write leaves the key with an empty value since the file is truncated on open.
func (f *filenoImpl) Update(key string, value []byte) (res db.WriteResult, err error) {
	defer func() { db.ObserveOp(db.ImplFileno, "update", err) }()
	return f.write(key, value, os.O_WRONLY|os.O_TRUNC)
}

// write is the shared implementation of Insert and Update.
//
// Exactly one write call is issued. Filesystems close to full may accept
// fewer bytes than requested without reporting an error, so the storage is
// treated as exhausted if the error is a capacity error OR fewer bytes were
// written. Exhaustion is reported in the result and the sticky flag; the
// call itself only fails if nothing could be written because of a real error.
func (f *filenoImpl) write(key string, value []byte, flag int) (db.WriteResult, error) {
	if f.closed.Load() {
		return db.WriteResult{}, db.ErrClosed
	}

	path, err := buildPath(f.dataset, key)
	if err != nil {
		return db.WriteResult{}, err
	}

	file, err := f.fs.OpenFile(path, flag, f.fileMode)
	plog.Debugf("open %s (flag %#x): err=%v", path, flag, err)
	if err != nil {
		if isNoMem(err) {
			f.markExhausted()
		}
		return db.WriteResult{}, openError(key, err)
	}

	n, werr := file.Write(value)
	plog.Debugf("write %s: requested=%d written=%d err=%v", path, len(value), n, werr)

	// the os package reports a write(2) that returned 0 without an errno as
	// io.ErrUnexpectedEOF (io.ErrShortWrite for wrappers); both are silent short writes
	if errors.Is(werr, io.ErrUnexpectedEOF) || errors.Is(werr, io.ErrShortWrite) {
		werr = nil
	}

	// nothing written and an error -> hard failure
	if werr != nil && n == 0 {
		if isCapacityErr(werr) {
			f.markExhausted()
		}
		f.closeFile(file)
		if flag&os.O_EXCL != 0 {
			// the file was created by this call, don't leave an empty key behind
			if rerr := f.fs.Remove(path); rerr != nil {
				plog.Warningf("remove %s after failed insert: %v", path, rerr)
			}
		}
		return db.WriteResult{}, fmt.Errorf("write %q: %w", key, werr)
	}
	f.closeFile(file)

	res := db.WriteResult{
		Requested: len(value),
		Written:   n,
	}
	if isCapacityErr(werr) || res.Short() {
		res.CapacityExhausted = true
		f.markExhausted()
	}
	db.ObserveValueSize(db.ImplFileno, "write", n)

	return res, nil
}

// Delete removes the file for key
func (f *filenoImpl) Delete(key string) (err error) {
	defer func() { db.ObserveOp(db.ImplFileno, "delete", err) }()

	if f.closed.Load() {
		return db.ErrClosed
	}

	path, err := buildPath(f.dataset, key)
	if err != nil {
		return err
	}

	if err := f.fs.Remove(path); err != nil {
		return openError(key, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Core Engine Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Select reads the value of key with a single read call.
//
// If buf is empty a pooled buffer of MaxValueSize bytes is used and the value
// is copied out of it, otherwise the value is read into buf and the returned
// Value aliases buf. Values larger than the buffer are cut off; this is
// reported with ReadResult.Truncated.
func (f *filenoImpl) Select(key string, buf []byte) (res db.ReadResult, err error) {
	defer func() { db.ObserveOp(db.ImplFileno, "select", err) }()

	if f.closed.Load() {
		return db.ReadResult{}, db.ErrClosed
	}

	path, err := buildPath(f.dataset, key)
	if err != nil {
		return db.ReadResult{}, err
	}

	file, err := f.fs.Open(path)
	if err != nil {
		if isNoMem(err) {
			f.markExhausted()
		}
		return db.ReadResult{}, openError(key, err)
	}
	defer f.closeFile(file)

	dst := buf
	if len(dst) == 0 {
		bp := f.scratch.Get().(*[]byte)
		defer f.scratch.Put(bp)
		dst = *bp
	}

	n, rerr := file.Read(dst)
	plog.Debugf("read %s: capacity=%d read=%d err=%v", path, len(dst), n, rerr)
	if errors.Is(rerr, io.EOF) {
		rerr = nil
	}
	if rerr != nil && isCapacityErr(rerr) {
		res.CapacityExhausted = true
		f.markExhausted()
	}
	if rerr != nil && n == 0 {
		return db.ReadResult{}, fmt.Errorf("read %q: %w", key, rerr)
	}

	res.Size = n
	if n == len(dst) {
		if info, err := file.Stat(); err == nil && info.Size() > int64(n) {
			res.Truncated = true
		}
	}
	if len(buf) == 0 {
		res.Value = make([]byte, n)
		copy(res.Value, dst[:n])
	} else {
		res.Value = buf[:n]
	}
	db.ObserveValueSize(db.ImplFileno, "read", n)

	return res, nil
}

// Exist reports whether the file for key exists and is readable and writable.
// The returned size is the size of that file, so an empty value still exists.
func (f *filenoImpl) Exist(key string) (size int64, exists bool, err error) {
	defer func() { db.ObserveOp(db.ImplFileno, "exist", err) }()

	if f.closed.Load() {
		return 0, false, db.ErrClosed
	}

	path, err := buildPath(f.dataset, key)
	if err != nil {
		return 0, false, err
	}

	if !accessible(f.fs, path, accessRead|accessWrite) {
		return 0, false, nil
	}

	info, err := f.fs.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, fmt.Errorf("stat %q: %w", key, err)
	}
	if !info.Mode().IsRegular() {
		return 0, false, nil
	}

	return info.Size(), true, nil
}

// --------------------------------------------------------------------------
// Feature Support & Info
// --------------------------------------------------------------------------

func (f *filenoImpl) SupportsFeature(feature db.Feature) bool {
	return feature&features == feature
}

func (f *filenoImpl) GetInfo() db.DatabaseInfo {
	meta := Metadata{
		Dataset:      f.dataset,
		MaxValueSize: f.maxValue,
	}
	if _, isOs := f.fs.(*afero.OsFs); isOs {
		if free, size, ok := datasetSpace(f.dataset); ok {
			meta.AvailBytes, meta.TotalBytes = free, size
		}
	}

	return db.DatabaseInfo{
		DbType:            db.ImplFileno,
		SupportedFeatures: features.Features(),
		CapacityExhausted: f.capacityExhausted.Load(),
		Metadata:          meta,
	}
}

func (f *filenoImpl) CapacityExhausted() bool {
	return f.capacityExhausted.Load()
}

// Close marks the engine as closed. The dataset and its files are kept.
func (f *filenoImpl) Close() error {
	f.closed.Store(true)
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// markExhausted sets the sticky capacity flag
func (f *filenoImpl) markExhausted() {
	db.ObserveCapacityExhausted(db.ImplFileno)
	if f.capacityExhausted.CompareAndSwap(false, true) {
		plog.Warningf("storage capacity exhausted on dataset %s", f.dataset)
	}
}

func (f *filenoImpl) closeFile(file afero.File) {
	if err := file.Close(); err != nil {
		if isCapacityErr(err) {
			f.markExhausted()
		}
		plog.Warningf("close %s: %v", file.Name(), err)
	}
}

// openError maps the error of an open or remove call to the engine errors
func openError(key string, err error) error {
	switch {
	case errors.Is(err, os.ErrExist):
		return fmt.Errorf("%w: %q: %w", db.ErrKeyExists, key, err)
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %q: %w", db.ErrNotFound, key, err)
	default:
		return fmt.Errorf("%q: %w", key, err)
	}
}

// permAccessible checks the owner permission bits of path against mode
func permAccessible(fs afero.Fs, path string, mode uint32) bool {
	info, err := fs.Stat(path)
	if err != nil {
		return false
	}
	perm := info.Mode().Perm()
	if mode&accessRead != 0 && perm&0o400 == 0 {
		return false
	}
	if mode&accessWrite != 0 && perm&0o200 == 0 {
		return false
	}
	return true
}
