// Package archive compresses notification attachments in memory for
// transport. Nothing is written to disk; each call produces an independent
// archive.
package archive

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Gzip reads the file at p and returns its gzip-compressed bytes.
func Gzip(p string) ([]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", p, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Name = filepath.Base(p)
	if _, err := io.Copy(zw, f); err != nil {
		return nil, fmt.Errorf("compressing %q: %w", p, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing gzip for %q: %w", p, err)
	}
	return buf.Bytes(), nil
}

// ZipPath archives the file or directory at p into an in-memory zip. A file
// becomes a single-entry archive named after the file; a directory becomes
// an archive rooted at the directory's own name, preserving its internal
// structure.
func ZipPath(p string) ([]byte, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", p, err)
	}
	if info.IsDir() {
		return zipDir(p)
	}
	return zipFile(p)
}

func zipFile(p string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if err := addFile(zw, p, filepath.Base(p)); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing zip for %q: %w", p, err)
	}
	return buf.Bytes(), nil
}

func zipDir(dir string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	root := filepath.Base(filepath.Clean(dir))

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		return addFile(zw, p, path.Join(root, filepath.ToSlash(rel)))
	})
	if err != nil {
		return nil, fmt.Errorf("archiving %q: %w", dir, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing zip for %q: %w", dir, err)
	}
	return buf.Bytes(), nil
}

// addFile copies one file into the archive under the given entry name.
func addFile(zw *zip.Writer, p, name string) error {
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("opening %q: %w", p, err)
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("creating zip entry %q: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("writing zip entry %q: %w", name, err)
	}
	return nil
}
