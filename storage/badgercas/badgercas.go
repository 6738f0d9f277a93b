// Package badgercas stores key documents in a BadgerDB keyed by CID.
package badgercas

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/ipfs/go-cid"
	"github.com/rs/zerolog"

	"xdao.co/keysig/cidutil"
	"xdao.co/keysig/storage"
	"xdao.co/keysig/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "badger",
		Description: "BadgerDB key-value store",
		Open: func(dir string) (storage.CAS, func() error, error) {
			cas, err := New(Options{Dir: dir})
			if err != nil {
				return nil, nil, err
			}
			return cas, cas.Close, nil
		},
	})
}

var prefix = []byte("doc/")

type Options struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir      string
	InMemory bool
	Logger   *zerolog.Logger
}

// CAS is a storage.CAS backed by BadgerDB.
type CAS struct {
	db *badger.DB
}

var _ storage.CAS = (*CAS)(nil)

func New(opts Options) (*CAS, error) {
	if opts.Dir == "" && !opts.InMemory {
		return nil, errors.New("badgercas: directory is required")
	}
	bopts := badger.DefaultOptions(opts.Dir).
		WithSyncWrites(true).
		WithVerifyValueChecksum(true).
		WithLogger(badgerLogger{opts.Logger})
	if opts.InMemory {
		bopts = bopts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badgercas: open: %w", err)
	}
	return &CAS{db: db}, nil
}

func (c *CAS) Close() error {
	return c.db.Close()
}

func key(id cid.Cid) []byte {
	return append(append([]byte{}, prefix...), id.Bytes()...)
}

// Put stores data unless an identical object is already present. Concurrent
// writers of the same object are retried on transaction conflict.
func (c *CAS) Put(data []byte) (cid.Cid, error) {
	id, err := cidutil.Sum(data)
	if err != nil {
		return cid.Undef, err
	}
	for {
		err = c.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key(id))
			switch {
			case err == nil:
				return item.Value(func(val []byte) error {
					if !bytes.Equal(val, data) {
						return storage.ErrImmutable
					}
					return nil
				})
			case errors.Is(err, badger.ErrKeyNotFound):
				return txn.Set(key(id), data)
			default:
				return err
			}
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return cid.Undef, err
	}
	return id, nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := cidutil.Verify(id, out); err != nil {
		return nil, storage.ErrCIDMismatch
	}
	return out, nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key(id))
		return err
	})
	return err == nil
}

// List returns the CIDs of every stored object in key order.
func (c *CAS) List() ([]cid.Cid, error) {
	var out []cid.Cid
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id, err := cid.Cast(bytes.TrimPrefix(it.Item().Key(), prefix))
			if err != nil {
				return err
			}
			out = append(out, id)
		}
		return nil
	})
	return out, err
}

// badgerLogger forwards badger's own messages to zerolog, demoting its
// chatty info output to debug.
type badgerLogger struct{ l *zerolog.Logger }

func (b badgerLogger) log() *zerolog.Logger {
	if b.l == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return b.l
}

func (b badgerLogger) Errorf(f string, v ...interface{})   { b.log().Error().Msgf(f, v...) }
func (b badgerLogger) Warningf(f string, v ...interface{}) { b.log().Warn().Msgf(f, v...) }
func (b badgerLogger) Infof(f string, v ...interface{})    { b.log().Debug().Msgf(f, v...) }
func (b badgerLogger) Debugf(f string, v ...interface{})   { b.log().Trace().Msgf(f, v...) }
