// Package secrets reads named values from a structured secrets file.
package secrets

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

var (
	// ErrUnavailable means the store itself could not be read.
	ErrUnavailable = errors.New("secrets store unavailable")
	// ErrNotFound means the store was read but has no string value for the key.
	ErrNotFound = errors.New("secret not found")
)

// FileStore is a flat TOML document of KEY = "value" pairs, in the same shape
// as a .streamlit/secrets.toml file.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Lookup reads the file on every call so edits are visible without a restart.
func (s *FileStore) Lookup(key string) (string, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var doc map[string]interface{}
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	v, ok := doc[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrNotFound, key)
	}
	return str, nil
}
