package grpcnode

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"xdao.co/keysig/keysig"
	"xdao.co/keysig/ledger"
)

// Directory maps key trees to the entities that use them.
type Directory interface {
	Lookup(ctx context.Context, key *ledger.Key) ([]*ledger.EntityID, error)
}

// MemoryDirectory is a Directory keyed by the exact wire encoding of a key
// tree. Signatures never take part in the match.
type MemoryDirectory struct {
	mu      sync.RWMutex
	entries map[string][]*ledger.EntityID
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{entries: map[string][]*ledger.EntityID{}}
}

// Add associates entities with key, after any already associated.
func (d *MemoryDirectory) Add(key *ledger.Key, entities ...*ledger.EntityID) error {
	k, err := key.Marshal()
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[string(k)] = append(d.entries[string(k)], entities...)
	return nil
}

// AddKey is Add for a SignedKey tree and its entity values.
func (d *MemoryDirectory) AddKey(sk *keysig.SignedKey, entities ...keysig.EntityID) error {
	key, err := sk.KeyProto()
	if err != nil {
		return err
	}
	out := make([]*ledger.EntityID, len(entities))
	for i, e := range entities {
		out[i] = e.Proto()
	}
	return d.Add(key, out...)
}

func (d *MemoryDirectory) Lookup(ctx context.Context, key *ledger.Key) ([]*ledger.EntityID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k, err := key.Marshal()
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*ledger.EntityID(nil), d.entries[string(k)]...), nil
}

func (d *MemoryDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// DirectoryEntry is one record of a directory file.
type DirectoryEntry struct {
	Key      *keysig.SignedKey `json:"key"`
	Entities []string          `json:"entities"`
}

// LoadDirectory reads a JSON array of DirectoryEntry records. Keys are
// key/signature documents and entities use keysig.EntityID's String form.
func LoadDirectory(path string) (*MemoryDirectory, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []DirectoryEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("directory %s: %w", path, err)
	}
	d := NewMemoryDirectory()
	for i, e := range entries {
		if e.Key == nil {
			return nil, fmt.Errorf("directory %s: entry %d has no key", path, i)
		}
		ids := make([]keysig.EntityID, len(e.Entities))
		for j, s := range e.Entities {
			id, err := keysig.ParseEntityID(s)
			if err != nil {
				return nil, fmt.Errorf("directory %s: entry %d: %w", path, i, err)
			}
			ids[j] = id
		}
		if err := d.AddKey(e.Key, ids...); err != nil {
			return nil, fmt.Errorf("directory %s: entry %d: %w", path, i, err)
		}
	}
	return d, nil
}
