package credentials

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

var _ Storage = (*FileStorage)(nil)

// FileStorage persists values as one plain-text file per key under a data
// folder. It is the process-local analogue of the browser's local storage:
// no encryption, cleared by deleting the key.
type FileStorage struct {
	dir string
}

// NewFileStorage creates the data folder if needed and returns a storage
// rooted at it.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, errors.New("[NewFileStorage] dir is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileStorage] os.MkdirAll")
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) Read(key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "[FileStorage.Read] os.ReadFile")
	}
	return string(data), true, nil
}

func (f *FileStorage) Write(key, value string) error {
	if err := os.WriteFile(f.path(key), []byte(value), 0o600); err != nil {
		return errors.Wrap(err, "[FileStorage.Write] os.WriteFile")
	}
	return nil
}

func (f *FileStorage) Delete(key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStorage.Delete] os.Remove")
	}
	return nil
}

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.dir, key)
}
