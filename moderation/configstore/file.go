package configstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// MemStore which writes the whole document to a JSON file after every change.
type FileStore struct {
	*MemStore
	Path string
}

// Opens (or creates, on first write) a JSON settings file. A missing file is an empty configuration.
func NewFileStore(p string) (*FileStore, error) {
	doc, err := LoadFileJSON(p)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if doc == nil {
		doc = NewDocument()
	}
	fstore := &FileStore{
		MemStore: &MemStore{doc: doc},
		Path:     p,
	}
	fstore.MemStore.onChange = fstore.save
	return fstore, nil
}

func LoadFileJSON(p string) (*Document, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("parsing settings file %s: %w", p, err)
	}
	doc.init()
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings file %s: %w", p, err)
	}
	return doc, nil
}

// writes to a temporary file in the same directory, then renames over the target
func (s *FileStore) save(doc *Document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("saving settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
