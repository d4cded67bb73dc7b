// Package fsutil holds file helpers shared by the cache, the artifact
// writer and the manifest rewrite.
package fsutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic copies r into path via a sibling temp file and a rename, so
// readers never observe a partial file. It returns the bytes written.
func WriteAtomic(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	tmp, f, err := createTempFile(dir, filepath.Base(path))
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return n, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return n, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return n, err
	}
	return n, os.Rename(tmp, path)
}

// WriteFileAtomic is WriteAtomic for an in-memory payload.
func WriteFileAtomic(path string, data []byte) error {
	_, err := WriteAtomic(path, bytes.NewReader(data))
	return err
}

// NonEmpty reports whether path exists as a regular file with content.
func NonEmpty(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular() && fi.Size() > 0
}

func createTempFile(dir, base string) (string, *os.File, error) {
	// Prefix keeps temp files next to their target and easy to spot.
	f, err := os.CreateTemp(dir, ".tmp-"+base+"-")
	if err != nil {
		return "", nil, err
	}
	return f.Name(), f, nil
}
