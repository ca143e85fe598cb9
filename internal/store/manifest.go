package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
)

// WriteManifest writes m to path as indented JSON, atomically.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// ReadManifest reads the manifest at path. A missing file returns an
// ERR_201 error.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cerrors.IOError(fmt.Sprintf("manifest not found: %s", path), err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, cerrors.New(cerrors.ErrCodeCorruptIndex,
			fmt.Sprintf("manifest %s is not valid JSON", path), err)
	}
	return &m, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cerrors.New(cerrors.ErrCodePermissionDenied,
			fmt.Sprintf("cannot create directory %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return cerrors.New(cerrors.ErrCodePermissionDenied,
			fmt.Sprintf("cannot write in %s", dir), err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Chmod(filePerm)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return cerrors.New(cerrors.ErrCodePermissionDenied,
			fmt.Sprintf("cannot replace %s", path), err)
	}
	return nil
}
