package diskstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/hashlink/core/chain"
	"github.com/hashlink/core/hash"
)

// DiskStore persists each block as its own file named <index>.<hash>
// inside a directory, with per-chain metadata in <name>.meta.json.
// Directory listings carry no order, a chain loaded from here relies on
// the engines reordering.
type DiskStore struct {
	dir string
}

// New opens a disk store, creating the directory if needed
func New(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir}, nil
}

func (d *DiskStore) blockFiles() []string {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		log.Error(err)
		return nil
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".meta.json") {
			continue
		}
		if parts := strings.SplitN(e.Name(), ".", 2); len(parts) == 2 {
			if _, err := strconv.ParseUint(parts[0], 10, 64); err == nil {
				names = append(names, e.Name())
			}
		}
	}
	return names
}

func (d *DiskStore) read(name string) (*chain.Block, error) {
	raw, err := os.ReadFile(filepath.Join(d.dir, name))
	if err != nil {
		return nil, err
	}
	return chain.DecodeBlock(raw)
}

// FindByHash returns the block with the given hash
func (d *DiskStore) FindByHash(_ context.Context, h hash.Digest) (*chain.Block, error) {
	want := h.String()
	for _, name := range d.blockFiles() {
		if strings.HasSuffix(name, "."+want) {
			return d.read(name)
		}
	}
	return nil, chain.ErrHashNotFound
}

// FindByIndex returns the block persisted at the given position
func (d *DiskStore) FindByIndex(_ context.Context, index uint64) (*chain.Block, error) {
	prefix := strconv.FormatUint(index, 10) + "."
	for _, name := range d.blockFiles() {
		if strings.HasPrefix(name, prefix) {
			return d.read(name)
		}
	}
	return nil, chain.ErrIndexNotFound
}

// FindByPrevious returns the block linking to the given hash
func (d *DiskStore) FindByPrevious(_ context.Context, h hash.Digest) (*chain.Block, error) {
	for _, name := range d.blockFiles() {
		b, err := d.read(name)
		if err != nil {
			log.WithField("file", name).Warn(err)
			continue
		}
		if b.Previous.Equal(h) {
			return b, nil
		}
	}
	return nil, chain.ErrHashNotFound
}

// Persist writes the block to <position>.<hash> and returns the file
// name as its id
func (d *DiskStore) Persist(_ context.Context, b *chain.Block, position uint64) (string, error) {
	enc, err := b.Serialize()
	if err != nil {
		return "", err
	}
	name := strconv.FormatUint(position, 10) + "." + b.Digest.String()
	if err := os.WriteFile(filepath.Join(d.dir, name), enc, 0600); err != nil {
		return "", err
	}
	return name, nil
}

// Delete removes the block file with the given hash
func (d *DiskStore) Delete(_ context.Context, h hash.Digest) (string, error) {
	want := h.String()
	for _, name := range d.blockFiles() {
		if strings.HasSuffix(name, "."+want) {
			return name, os.Remove(filepath.Join(d.dir, name))
		}
	}
	return "", chain.ErrHashNotFound
}

func (d *DiskStore) metaPath(name string) string {
	return filepath.Join(d.dir, name+".meta.json")
}

// LoadMetadata restores the chain metadata saved under name
func (d *DiskStore) LoadMetadata(_ context.Context, name string) (chain.Metadata, error) {
	raw, err := os.ReadFile(d.metaPath(name))
	if os.IsNotExist(err) {
		return chain.Metadata{}, chain.ErrChainNotFound
	} else if err != nil {
		return chain.Metadata{}, err
	}
	m := chain.Metadata{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return chain.Metadata{}, err
	}
	return m, nil
}

// SaveMetadata persists the chain metadata under its name
func (d *DiskStore) SaveMetadata(_ context.Context, m chain.Metadata) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(d.metaPath(m.Name), raw, 0600)
}

// Close does nothing, files are closed after every operation
func (d *DiskStore) Close() error {
	return nil
}
