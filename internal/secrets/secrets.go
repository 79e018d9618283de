// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files, with
// an environment-variable fallback. Each file in the directory holds one
// secret: the filename is the key name and the trimmed contents are the value.
//
// Supported key files: groq-api-key, openai-api-key, anthropic-api-key.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store is a loaded set of secrets.
type Store struct {
	values map[string]string
	getenv func(string) string
}

// Load reads all files in dir. A missing directory is not an error; Load
// returns an empty store. Unreadable files produce a warning on warn but do
// not abort.
func Load(dir string, warn io.Writer) (*Store, error) {
	if warn == nil {
		warn = io.Discard
	}
	s := &Store{values: make(map[string]string), getenv: os.Getenv}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(warn, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			s.values[name] = value
		}
	}

	return s, nil
}

// FromMap builds a store from fixed values and an env lookup. Tests use it
// to avoid touching the filesystem and process environment.
func FromMap(values map[string]string, getenv func(string) string) *Store {
	if values == nil {
		values = map[string]string{}
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	return &Store{values: values, getenv: getenv}
}

// Keys returns the names of the loaded secret files.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// Resolve returns the secret stored under key, falling back to the
// environment variable envVar. It returns "" when neither is set.
func (s *Store) Resolve(key, envVar string) string {
	if v, ok := s.values[key]; ok {
		return v
	}
	if envVar == "" {
		return ""
	}
	return strings.TrimSpace(s.getenv(envVar))
}
