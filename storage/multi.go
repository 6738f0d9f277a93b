package storage

import (
	"github.com/ipfs/go-cid"
)

// MultiCAS writes to Primary and reads from Primary, then each mirror in order.
//
// Mirrors are typically read-only copies of another operator's key store.
// With Hydrate set, a document found only on a mirror is copied into Primary.
type MultiCAS struct {
	Primary CAS
	Mirrors []CAS
	Hydrate bool
}

var _ CAS = MultiCAS{}

func (m MultiCAS) Put(data []byte) (cid.Cid, error) {
	if m.Primary == nil {
		return cid.Undef, ErrNoBackends
	}
	return m.Primary.Put(data)
}

func (m MultiCAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	if m.Primary != nil {
		b, err := m.Primary.Get(id)
		if err == nil {
			return b, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	for _, mirror := range m.Mirrors {
		b, err := mirror.Get(id)
		if IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if m.Hydrate && m.Primary != nil {
			if _, err := m.Primary.Put(b); err != nil {
				return nil, err
			}
		}
		return b, nil
	}
	return nil, ErrNotFound
}

func (m MultiCAS) Has(id cid.Cid) bool {
	if m.Primary != nil && m.Primary.Has(id) {
		return true
	}
	for _, mirror := range m.Mirrors {
		if mirror.Has(id) {
			return true
		}
	}
	return false
}

// List enumerates Primary only.
func (m MultiCAS) List() ([]cid.Cid, error) {
	if m.Primary == nil {
		return nil, ErrNoBackends
	}
	return List(m.Primary)
}
