// Package fileutil provides durable file primitives used when moving content
// into the library.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyToTemp streams src into a new temporary file inside dir, verifying size
// and SHA256, and fsyncs it. The caller owns the returned path.
func CopyToTemp(src, dir string) (string, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.CreateTemp(dir, ".vidshelf-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := out.Name()
	fail := func(err error) (string, error) {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		return fail(fmt.Errorf("copy data: %w", err))
	}
	if written != srcInfo.Size() {
		return fail(fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written))
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		return fail(fmt.Errorf("copy hash mismatch: file corrupted during copy"))
	}
	if err := out.Chmod(srcInfo.Mode().Perm()); err != nil {
		return fail(fmt.Errorf("chmod temp file: %w", err))
	}
	if err := out.Sync(); err != nil {
		return fail(fmt.Errorf("sync temp file: %w", err))
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmpPath, nil
}

// WriteTemp writes data to a new synced temporary file inside dir. The caller
// owns the returned path.
func WriteTemp(dir string, data []byte, perm os.FileMode) (string, error) {
	out, err := os.CreateTemp(dir, ".vidshelf-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := out.Name()
	fail := func(err error) (string, error) {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}

	if _, err := out.Write(data); err != nil {
		return fail(fmt.Errorf("write temp file: %w", err))
	}
	if err := out.Chmod(perm); err != nil {
		return fail(fmt.Errorf("chmod temp file: %w", err))
	}
	if err := out.Sync(); err != nil {
		return fail(fmt.Errorf("sync temp file: %w", err))
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmpPath, nil
}

// WriteFileAtomic writes data to path through a synced temporary file in the
// same directory followed by a rename, so readers see either the old content
// or the new content in full.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpPath, err := WriteTemp(filepath.Dir(path), data, perm)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
