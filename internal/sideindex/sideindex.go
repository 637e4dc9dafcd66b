// Package sideindex keeps the JSON file that maps "<country>(<location>)" to
// room names and the files uploaded for each room.
//
// The database is authoritative. The index is rewritten in full on every
// mutation and only after the corresponding transaction committed; a lost or
// corrupt file degrades the file listings but never the catalog.
package sideindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Data is the decoded index: case key -> room name -> ordered filenames.
type Data map[string]map[string][]string

// Index guards one side-index file. Writers in other processes are not
// coordinated; the last rename wins.
type Index struct {
	path string
	mu   sync.Mutex
}

// New returns an Index stored at path.
func New(path string) *Index {
	return &Index{path: path}
}

// Path returns the file backing the index.
func (ix *Index) Path() string { return ix.path }

// Load reads the whole index. A missing file yields an empty index. A file that
// cannot be decoded also yields an empty index together with the decode error.
func (ix *Index) Load() (Data, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.load()
}

// Files returns the filenames recorded for a room, or nil.
func (ix *Index) Files(caseKey, room string) []string {
	data, _ := ix.Load()
	return slices.Clone(data[caseKey][room])
}

// Rooms returns the room names recorded under caseKey.
func (ix *Index) Rooms(caseKey string) []string {
	data, _ := ix.Load()
	rooms := make([]string, 0, len(data[caseKey]))
	for name := range data[caseKey] {
		rooms = append(rooms, name)
	}
	slices.Sort(rooms)
	return rooms
}

// Touch makes sure caseKey, and room when it is not empty, exist in the index.
func (ix *Index) Touch(caseKey, room string) error {
	return ix.update(func(data Data) {
		ensure(data, caseKey, room)
	})
}

// Append records filename under (caseKey, room). A name already listed is not repeated.
func (ix *Index) Append(caseKey, room, filename string) error {
	return ix.update(func(data Data) {
		ensure(data, caseKey, room)
		if room == "" {
			return
		}
		if !slices.Contains(data[caseKey][room], filename) {
			data[caseKey][room] = append(data[caseKey][room], filename)
		}
	})
}

// Reset replaces the index with an empty one.
func (ix *Index) Reset() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.save(Data{})
}

func ensure(data Data, caseKey, room string) {
	if data[caseKey] == nil {
		data[caseKey] = map[string][]string{}
	}
	if room != "" && data[caseKey][room] == nil {
		data[caseKey][room] = []string{}
	}
}

func (ix *Index) update(fn func(Data)) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	// A corrupt file is replaced rather than blocking every later upload.
	data, _ := ix.load()
	fn(data)
	return ix.save(data)
}

func (ix *Index) load() (Data, error) {
	raw, err := os.ReadFile(ix.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Data{}, nil
		}
		return Data{}, fmt.Errorf("failed to read side-index %s: %w", ix.path, err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return Data{}, fmt.Errorf("failed to decode side-index %s: %w", ix.path, err)
	}
	if data == nil {
		data = Data{}
	}
	return data, nil
}

func (ix *Index) save(data Data) error {
	dir := filepath.Dir(ix.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode side-index: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".uploaded_items-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp side-index: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write side-index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write side-index: %w", err)
	}
	if err := os.Rename(tmp.Name(), ix.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace side-index %s: %w", ix.path, err)
	}
	return nil
}
