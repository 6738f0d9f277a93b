// Package testkit holds the conformance suite every storage.CAS backend must pass.
package testkit

import (
	"bytes"
	"sync"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"xdao.co/keysig/cidutil"
	"xdao.co/keysig/storage"
)

// NewCAS constructs a fresh, empty CAS for one subtest.
type NewCAS func(t *testing.T) storage.CAS

func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		want := []byte(`{"description":"","type":"ED25519","key":"AAAA"}`)

		id, err := cas.Put(want)
		require.NoError(t, err)
		wantID, err := cidutil.Sum(want)
		require.NoError(t, err)
		require.True(t, wantID.Equals(id), "got %s want %s", id, wantID)

		got, err := cas.Get(id)
		require.NoError(t, err)
		require.Equal(t, want, got)
		require.NoError(t, cidutil.Verify(id, got))
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("same bytes")

		id1, err := cas.Put(b)
		require.NoError(t, err)
		id2, err := cas.Put(b)
		require.NoError(t, err)
		require.True(t, id1.Equals(id2))
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("missing")
		id, err := cidutil.Sum(b)
		require.NoError(t, err)

		require.False(t, cas.Has(id))
		_, err = cas.Get(id)
		require.True(t, storage.IsNotFound(err), "got %v", err)

		_, err = cas.Put(b)
		require.NoError(t, err)
		require.True(t, cas.Has(id))
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		cas := newCAS(t)
		var undef cid.Cid
		require.False(t, cas.Has(undef))
		_, err := cas.Get(undef)
		require.Error(t, err)
	})

	t.Run("LargeObject", func(t *testing.T) {
		cas := newCAS(t)
		big := bytes.Repeat([]byte("threshold"), 64*1024)
		id, err := cas.Put(big)
		require.NoError(t, err)
		got, err := cas.Get(id)
		require.NoError(t, err)
		require.Equal(t, big, got)
	})

	t.Run("ConcurrentPut", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("written by many signers")
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := cas.Put(b)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
	})
}
