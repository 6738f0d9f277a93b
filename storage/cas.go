// Package storage persists key/signature documents by content identifier.
package storage

import "github.com/ipfs/go-cid"

// CAS stores immutable byte objects under the CID of their contents
// (cidutil.Sum).
//
// Put is idempotent and returns the CID of the bytes written. Get returns
// ErrNotFound for an absent CID and ErrCIDMismatch when the stored bytes no
// longer hash to it. Undefined CIDs are never present.
type CAS interface {
	Put(data []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

// Lister is implemented by backends that can enumerate what they hold.
type Lister interface {
	List() ([]cid.Cid, error)
}

// List enumerates cas when it implements Lister.
func List(cas CAS) ([]cid.Cid, error) {
	l, ok := cas.(Lister)
	if !ok {
		return nil, ErrNotListable
	}
	return l.List()
}
