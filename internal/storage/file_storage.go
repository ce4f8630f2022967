// internal/storage/file_storage.go
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ErrInvalidPath = errors.New("path escapes storage directory")

// FileStorage writes files below BaseDir with one lock per file.
type FileStorage struct {
	BaseDir string

	fileLocks sync.Map // path -> *sync.RWMutex
}

// NewFileStorage creates baseDir if needed.
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{BaseDir: baseDir}, nil
}

func (fs *FileStorage) getFileLock(fullPath string) *sync.RWMutex {
	value, _ := fs.fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

// resolve joins dirPath and filename under BaseDir and rejects traversal.
func (fs *FileStorage) resolve(dirPath, filename string) (string, string, error) {
	base := filepath.Clean(fs.BaseDir)
	fullDirPath := filepath.Join(base, dirPath)
	fullPath := filepath.Join(fullDirPath, filename)

	rel, err := filepath.Rel(base, fullPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidPath, filepath.Join(dirPath, filename))
	}
	return fullDirPath, fullPath, nil
}

// SaveTextFile writes content atomically via a temporary file and returns
// the full path.
func (fs *FileStorage) SaveTextFile(dirPath, filename string, content []byte) (string, error) {
	fullDirPath, fullPath, err := fs.resolve(dirPath, filename)
	if err != nil {
		return "", err
	}

	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(fullDirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		// the rename error is the one worth reporting
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return fullPath, nil
}

// SaveJSONFile writes data as indented JSON.
func (fs *FileStorage) SaveJSONFile(dirPath, filename string, data interface{}) (string, error) {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	return fs.SaveTextFile(dirPath, filename, content)
}

// ListFiles returns the regular files directly under dirPath. A missing
// directory yields an empty list.
func (fs *FileStorage) ListFiles(dirPath string) ([]string, error) {
	fullPath := filepath.Join(fs.BaseDir, dirPath)
	entries, err := os.ReadDir(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && !strings.HasSuffix(entry.Name(), ".tmp") {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}
