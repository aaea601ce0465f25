package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrCorruptArchive distinguishes an unreadable package from per-file
// problems; callers mark the owning request failed when they see it.
var ErrCorruptArchive = errors.New("archive: corrupt or unreadable package")

// FileFunc receives one extracted file. Returning an error stops the walk
// and is propagated by ExtractZip.
type FileFunc func(name string, content []byte) error

// ExtractZip walks the files inside a zip package one at a time, staging
// each entry through a scoped temp directory that is removed on both success
// and failure. The whole archive is never expanded at once.
func ExtractZip(data []byte, fn FileFunc) (err error) {
	reader, zerr := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if zerr != nil {
		return fmt.Errorf("%w: %v", ErrCorruptArchive, zerr)
	}

	tmpDir, terr := os.MkdirTemp("", "cfdi-pkg-*")
	if terr != nil {
		return fmt.Errorf("archive: create temp dir: %w", terr)
	}
	defer os.RemoveAll(tmpDir)

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		content, rerr := stageEntry(tmpDir, entry)
		if rerr != nil {
			return fmt.Errorf("%w: entry %s: %v", ErrCorruptArchive, entry.Name, rerr)
		}

		if err := fn(entry.Name, content); err != nil {
			return err
		}
	}

	return nil
}

// stageEntry copies one archive entry into the temp dir and reads it back,
// keeping at most one decompressed file alive at a time.
func stageEntry(tmpDir string, entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	staged := filepath.Join(tmpDir, filepath.Base(entry.Name))
	out, err := os.Create(staged)
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, err
	}

	return os.ReadFile(staged)
}
