package storage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ipfs/go-cid"

	"xdao.co/keysig/cidutil"
)

// NamedCAS is a backend with a name for reporting.
type NamedCAS struct {
	Name string
	CAS  CAS
}

// ReplicatingCAS writes every document to all backends and reads from the
// first that has it. A backend returning a different CID fails the write
// with ErrCIDMismatch.
type ReplicatingCAS struct {
	Backends []NamedCAS
}

var _ CAS = ReplicatingCAS{}

// PutAll writes data to every backend and returns the CID each one reported.
func (r ReplicatingCAS) PutAll(data []byte) (cid.Cid, map[string]cid.Cid, error) {
	want, err := cidutil.Sum(data)
	if err != nil {
		return cid.Undef, nil, err
	}
	if len(r.Backends) == 0 {
		return cid.Undef, nil, ErrNoBackends
	}

	out := make(map[string]cid.Cid, len(r.Backends))
	for _, b := range r.Backends {
		if b.CAS == nil {
			return cid.Undef, nil, fmt.Errorf("storage: nil CAS for backend %q", b.Name)
		}
		got, err := b.CAS.Put(data)
		if err != nil {
			return cid.Undef, out, fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
		out[b.Name] = got
		if !got.Equals(want) {
			return cid.Undef, out, ErrCIDMismatch
		}
	}
	return want, out, nil
}

func (r ReplicatingCAS) Put(data []byte) (cid.Cid, error) {
	id, _, err := r.PutAll(data)
	return id, err
}

func (r ReplicatingCAS) Get(id cid.Cid) ([]byte, error) {
	for _, b := range r.Backends {
		if b.CAS == nil {
			continue
		}
		out, err := b.CAS.Get(id)
		if IsNotFound(err) {
			continue
		}
		return out, err
	}
	return nil, ErrNotFound
}

func (r ReplicatingCAS) Has(id cid.Cid) bool {
	for _, b := range r.Backends {
		if b.CAS != nil && b.CAS.Has(id) {
			return true
		}
	}
	return false
}

// List returns the union of every listable backend, sorted by string form.
func (r ReplicatingCAS) List() ([]cid.Cid, error) {
	seen := make(map[cid.Cid]struct{})
	listed := false
	for _, b := range r.Backends {
		ids, err := List(b.CAS)
		if errors.Is(err, ErrNotListable) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
		listed = true
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	if !listed {
		return nil, ErrNotListable
	}
	out := make([]cid.Cid, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
