// Package storage is the client's on-device key/value store: a JSON file
// mapping string keys to string values, rewritten on every change.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// DefaultFile is used when no path is configured.
const DefaultFile = "storage.json"

type LocalStorage struct {
	Items map[string]string `json:"items"`
	mu    sync.Mutex
	path  string
}

// New returns an empty store backed by path. Call Load to read existing data.
func New(path string) *LocalStorage {
	if path == "" {
		path = DefaultFile
	}
	return &LocalStorage{Items: make(map[string]string), path: path}
}

// Load reads the backing file. A missing file yields an empty store.
func (ls *LocalStorage) Load() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	f, err := os.Open(ls.path)
	if err != nil {
		if os.IsNotExist(err) {
			ls.Items = make(map[string]string)
			return nil
		}
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(ls); err != nil {
		return fmt.Errorf("decode %s: %w", ls.path, err)
	}
	if ls.Items == nil {
		ls.Items = make(map[string]string)
	}
	return nil
}

// Save writes the whole store to the backing file.
func (ls *LocalStorage) Save() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.save()
}

func (ls *LocalStorage) save() error {
	f, err := os.Create(ls.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(ls)
}

// GetItem returns the value stored under key.
func (ls *LocalStorage) GetItem(key string) (string, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	v, ok := ls.Items[key]
	return v, ok
}

// SetItem stores value under key and persists the store.
func (ls *LocalStorage) SetItem(key, value string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.Items[key] = value
	return ls.save()
}

// RemoveItem deletes key and persists the store.
func (ls *LocalStorage) RemoveItem(key string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	delete(ls.Items, key)
	return ls.save()
}
