// Package keystore persists SignedKey trees as key/signature documents in a
// storage.CAS. A document's CID changes whenever a signature, identifier or
// description changes; Fingerprint identifies the key tree alone.
package keystore

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/keysig/keysig"
	"xdao.co/keysig/cidutil"
	"xdao.co/keysig/storage"
)

type Store struct {
	CAS storage.CAS
}

func New(cas storage.CAS) *Store {
	return &Store{CAS: cas}
}

// Put stores the document form of sk and returns its CID.
func (s *Store) Put(sk *keysig.SignedKey) (cid.Cid, error) {
	if s == nil || s.CAS == nil {
		return cid.Undef, storage.ErrNoBackends
	}
	doc, err := sk.DocumentJSON()
	if err != nil {
		return cid.Undef, err
	}
	return s.CAS.Put(doc)
}

// Get loads and parses the document stored under id.
func (s *Store) Get(id cid.Cid) (*keysig.SignedKey, error) {
	if s == nil || s.CAS == nil {
		return nil, storage.ErrNoBackends
	}
	doc, err := s.CAS.Get(id)
	if err != nil {
		return nil, err
	}
	sk, err := keysig.ParseDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("keystore: %s: %w", id, err)
	}
	return sk, nil
}

// GetString is Get for a CID in string form.
func (s *Store) GetString(id string) (*keysig.SignedKey, error) {
	c, err := cidutil.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidCID, err)
	}
	return s.Get(c)
}

// Fingerprint returns the CID of the wire-encoded key tree. Signatures,
// identifiers and descriptions do not affect it, so every signing state of
// the same key tree shares one fingerprint.
func Fingerprint(sk *keysig.SignedKey) (cid.Cid, error) {
	b, err := sk.MarshalKey()
	if err != nil {
		return cid.Undef, err
	}
	return cidutil.Sum(b)
}
