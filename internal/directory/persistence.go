package directory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotPersisted is returned by Load when no registry has been saved
// yet. The store treats it as an empty registry, not an error.
var ErrNotPersisted = errors.New("no persisted directory")

// Persistence is the durable mirror of the registry. Implementations
// must make Save atomic with respect to concurrent Load calls from
// other contexts.
type Persistence interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Delete() error
}

// FilePersistence keeps the serialized registry in a single JSON file,
// written via temp-file-then-rename so readers never observe a partial
// write.
type FilePersistence struct {
	path string
}

func NewFilePersistence(path string) (*FilePersistence, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory state dir: %w", err)
	}
	return &FilePersistence{path: path}, nil
}

func (p *FilePersistence) Load() ([]byte, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotPersisted
	}
	if err != nil {
		return nil, fmt.Errorf("read directory state: %w", err)
	}
	return data, nil
}

func (p *FilePersistence) Save(data []byte) error {
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write directory state: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("replace directory state: %w", err)
	}
	return nil
}

func (p *FilePersistence) Delete() error {
	err := os.Remove(p.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove directory state: %w", err)
	}
	return nil
}
