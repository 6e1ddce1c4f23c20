package storagefake

import (
	"sync"

	"github.com/kadrohq/kadro-go/credentials"
)

var _ credentials.Storage = (*FakeStorage)(nil)

// FakeStorage is an in-memory credentials.Storage for tests. The error
// fields, when set, are returned by the corresponding method so callers can
// exercise storage-failure paths.
type FakeStorage struct {
	ReadErr   error
	WriteErr  error
	DeleteErr error

	lock   sync.RWMutex
	values map[string]string
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		values: make(map[string]string),
	}
}

func (f *FakeStorage) Read(key string) (string, bool, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.ReadErr != nil {
		return "", false, f.ReadErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *FakeStorage) Write(key, value string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.values[key] = value
	return nil
}

func (f *FakeStorage) Delete(key string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	delete(f.values, key)
	return nil
}

// Value returns the stored value for key, for assertions.
func (f *FakeStorage) Value(key string) (string, bool) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	v, ok := f.values[key]
	return v, ok
}
