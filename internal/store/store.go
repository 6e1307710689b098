package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/snappy"

	"github.com/gridcast/gridcast/internal/timeseries"
)

// ErrNotFound is returned when an object key does not exist
var ErrNotFound = errors.New("object not found")

// Store is a partition store over a local directory tree. Keys are
// slash-separated object names relative to the bucket root; writes are
// atomic through a temp file and rename.
type Store struct {
	root string
}

// New creates a store rooted at dataDir/bucket
func New(dataDir, bucket string) (*Store, error) {
	root := filepath.Join(dataDir, bucket)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the absolute bucket root directory
func (s *Store) Root() string {
	return s.root
}

func (s *Store) abs(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Exists reports whether the object key exists
func (s *Store) Exists(key string) (bool, error) {
	_, err := os.Stat(s.abs(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", key, err)
}

// ReadRaw reads an object as bytes
func (s *Store) ReadRaw(key string) ([]byte, error) {
	data, err := os.ReadFile(s.abs(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// WriteRaw writes bytes to an object key atomically
func (s *Store) WriteRaw(key string, data []byte) error {
	target := s.abs(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create partition dir for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", key, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to publish %s: %w", key, err)
	}
	return nil
}

// ReadJSON reads a plain JSON object into v
func (s *Store) ReadJSON(key string, v interface{}) error {
	data, err := s.ReadRaw(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// WriteJSON writes v as plain indented JSON
func (s *Store) WriteJSON(key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.WriteRaw(key, data)
}

// ReadFrame reads a snappy-compressed frame object
func (s *Store) ReadFrame(key string) (*timeseries.Frame, error) {
	compressed, err := s.ReadRaw(key)
	if err != nil {
		return nil, err
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", key, err)
	}

	var frame timeseries.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", key, err)
	}
	return &frame, nil
}

// WriteFrame writes a frame as snappy-compressed JSON
func (s *Store) WriteFrame(key string, frame *timeseries.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode frame %s: %w", key, err)
	}
	return s.WriteRaw(key, snappy.Encode(nil, data))
}

// Delete removes an object. Deleting a missing object is not an error.
func (s *Store) Delete(key string) error {
	if err := os.Remove(s.abs(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// List returns the object keys directly under a partition directory,
// sorted lexicographically. A missing directory yields an empty list.
func (s *Store) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(s.abs(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		keys = append(keys, dir+"/"+e.Name())
	}
	sort.Strings(keys)
	return keys, nil
}

// ListWithSuffix returns keys under dir whose names end with suffix
func (s *Store) ListWithSuffix(dir, suffix string) ([]string, error) {
	keys, err := s.List(dir)
	if err != nil {
		return nil, err
	}

	out := keys[:0]
	for _, k := range keys {
		if strings.HasSuffix(k, suffix) {
			out = append(out, k)
		}
	}
	return out, nil
}

// ListSubdirs returns the names of directories directly under dir,
// sorted. A missing directory yields an empty list.
func (s *Store) ListSubdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(s.abs(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Copy duplicates an object to another key
func (s *Store) Copy(srcKey, dstKey string) error {
	data, err := s.ReadRaw(srcKey)
	if err != nil {
		return err
	}
	return s.WriteRaw(dstKey, data)
}
