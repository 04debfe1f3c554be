package cache

import (
	"os"
	"path/filepath"

	"github.com/knowledgehub-ai/ocr-core/internal/shared/utils"
)

// FileStore persists one JSON file per cache key under a base directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed cache store rooted at dir.
// The directory is created if it does not exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Get reads the entry for key. Any read failure other than a plain miss is
// logged and reported as a miss.
func (s *FileStore) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			utils.LogWarn("failed to read cache entry", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return nil, false
	}
	return data, true
}

// Put writes the entry for key. Concurrent writers for the same key are
// harmless: entries for a key are equivalent by construction, so
// last-write-wins. Write errors are logged and swallowed.
func (s *FileStore) Put(key string, data []byte) {
	if err := os.WriteFile(s.path(key), data, 0644); err != nil {
		utils.LogWarn("failed to write cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
