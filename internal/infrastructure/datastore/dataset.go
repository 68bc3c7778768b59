package datastore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File layout constants.
const (
	// dirPermissions is the permission mode for the data directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for dataset files.
	filePermissions = 0600

	// fileExtension is appended to the dataset name to form the file name.
	fileExtension = ".json"
)

// Logger defines the logging interface used by a Dataset.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Dataset owns one persisted JSON document of type D.
//
// D must round-trip through encoding/json without loss; the on-disk file is
// the JSON encoding of D and Load reproduces exactly what was last saved.
//
// All public methods are thread-safe.
type Dataset[D any] struct {
	name     string
	path     string
	defaults func() D
	validate func(doc *D) error

	mu     sync.Mutex // Held across every read-modify-write of doc
	doc    D
	loaded bool

	logger Logger
}

// New creates a dataset stored at dir/name.json.
// The defaults function supplies the document written on first run.
// Nothing is read from disk until Load is called.
func New[D any](dir, name string, defaults func() D) *Dataset[D] {
	return &Dataset[D]{
		name:     name,
		path:     filepath.Join(dir, name+fileExtension),
		defaults: defaults,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the dataset.
func (d *Dataset[D]) SetLogger(logger Logger) {
	d.logger = logger
}

// SetValidator installs a check Load runs on a document read from disk.
// A failing check makes Load return ErrCorrupt and leaves the file alone.
func (d *Dataset[D]) SetValidator(fn func(doc *D) error) {
	d.validate = fn
}

// Name returns the logical dataset name.
func (d *Dataset[D]) Name() string {
	return d.name
}

// Path returns the filesystem path of the dataset file.
func (d *Dataset[D]) Path() string {
	return d.path
}

// Load reads the document from disk.
//
// If the file does not exist, the document is initialised from the defaults
// function and persisted immediately. A file that exists but cannot be
// decoded, or that fails the validator, is reported as ErrCorrupt and is
// never overwritten.
//
// Returns:
//   - bool: true if the file already existed, false on first run
//   - error: ErrCorrupt, or a wrapped I/O error
func (d *Dataset[D]) Load() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := d.defaults()
		if err := d.write(doc); err != nil {
			return false, err
		}
		d.doc = doc
		d.loaded = true
		d.logger.Info("dataset initialised with defaults", "dataset", d.name, "path", d.path)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading dataset %s: %w", d.name, err)
	}

	var doc D
	if err := json.Unmarshal(data, &doc); err != nil {
		return true, fmt.Errorf("%w: %s: %w", ErrCorrupt, d.path, err)
	}
	if d.validate != nil {
		if err := d.validate(&doc); err != nil {
			return true, fmt.Errorf("%w: %s: %w", ErrCorrupt, d.path, err)
		}
	}

	d.doc = doc
	d.loaded = true
	d.logger.Debug("dataset loaded", "dataset", d.name, "bytes", len(data))
	return true, nil
}

// View runs fn with the current document while holding the dataset lock.
//
// fn must treat the document as read-only and must not retain references to
// it (or to any slice or map inside it) after returning.
func (d *Dataset[D]) View(fn func(doc *D) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		return ErrNotLoaded
	}
	return fn(&d.doc)
}

// Update applies fn to a copy of the document and persists the result.
//
// The lock is held for the whole call, so the checks fn performs cannot be
// invalidated by a concurrent Update. If fn returns an error nothing is
// written and that error is returned unchanged. The in-memory document is
// only replaced once the new version is durably on disk.
func (d *Dataset[D]) Update(fn func(doc *D) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		return ErrNotLoaded
	}

	next, err := clone(d.doc)
	if err != nil {
		return fmt.Errorf("copying dataset %s: %w", d.name, err)
	}

	if err := fn(&next); err != nil {
		return err
	}

	if err := d.write(next); err != nil {
		return err
	}
	d.doc = next
	return nil
}

// Save writes the current in-memory document to disk.
func (d *Dataset[D]) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		return ErrNotLoaded
	}
	return d.write(d.doc)
}

// IncrementCounter increments the counter selected by field, persists the
// document and returns the new counter value.
//
// Example:
//
//	next, err := ds.IncrementCounter(func(doc *socketDoc) *int { return &doc.CurrentSocketID })
func (d *Dataset[D]) IncrementCounter(field func(doc *D) *int) (int, error) {
	var value int
	err := d.Update(func(doc *D) error {
		value = Increment(field(doc))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// Increment bumps *counter and returns its new value.
// It is meant to be called from inside an Update callback.
func Increment(counter *int) int {
	*counter++
	return *counter
}

// write encodes doc and atomically replaces the dataset file.
// The caller must hold d.mu.
func (d *Dataset[D]) write(doc D) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dataset %s: %w", d.name, err)
	}
	if err := writeFileAtomic(d.path, data); err != nil {
		d.logger.Error("dataset write failed", "dataset", d.name, "path", d.path, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, d.name, err)
	}
	d.logger.Debug("dataset saved", "dataset", d.name, "bytes", len(data))
	return nil
}

// writeFileAtomic writes data to a temp file next to path, syncs it and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Remove the temp file on any failure before the rename.
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup on error path
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // Already failing
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck,gosec // Already failing
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, filePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	committed = true

	// Persist the rename itself. Not every platform supports syncing a
	// directory, so failures here are ignored.
	if dirFile, err := os.Open(dir); err == nil {
		_ = dirFile.Sync()  //nolint:errcheck // See above
		_ = dirFile.Close() //nolint:errcheck // Read-only handle
	}
	return nil
}

// clone returns a deep copy of doc via a JSON round trip.
func clone[D any](doc D) (D, error) {
	var out D
	data, err := json.Marshal(doc)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}
