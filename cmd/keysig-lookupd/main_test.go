package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xdao.co/keysig/keysig"
	"xdao.co/keysig/config"
	"xdao.co/keysig/grpcnode"
	"xdao.co/keysig/internal/logging"
)

func writeDirectory(t *testing.T, entries []grpcnode.DirectoryEntry) string {
	t.Helper()
	b, err := json.Marshal(entries)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "directory.json")
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestServe(t *testing.T) {
	key := keysig.NewThreshold(1,
		keysig.NewEd25519(bytes.Repeat([]byte{1}, 32), nil),
		keysig.NewEd25519(bytes.Repeat([]byte{2}, 32), nil),
	)
	path := writeDirectory(t, []grpcnode.DirectoryEntry{
		{Key: key, Entities: []string{"ACCOUNT:0.0.1001", "FILE:0.0.150"}},
	})

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, config.LookupdConfig{Directory: path}, lis, logging.NewTestLogger(t))
	}()

	client, err := grpcnode.Dial(lis.Addr().String(), grpcnode.DialOptions{})
	require.NoError(t, err)
	defer client.Close()
	client.Timeout = 5 * time.Second

	// The directory matches on key structure, not on identifiers.
	lookupKey := keysig.NewThreshold(1,
		keysig.NewEd25519(bytes.Repeat([]byte{1}, 32), nil),
		keysig.NewEd25519(bytes.Repeat([]byte{2}, 32), nil),
	)
	ok, err := lookupKey.GetEntitiesAnswerOnly(context.Background(), client, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []keysig.EntityID{
		{Kind: keysig.EntityAccount, Num: 1001},
		{Kind: keysig.EntityFile, Num: 150},
	}, lookupKey.Entities)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServe_RequiresDirectory(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	err = serve(context.Background(), config.LookupdConfig{}, lis, logging.NewTestLogger(t))
	require.Error(t, err)
}

func TestRun_BadDirectory(t *testing.T) {
	var errOut bytes.Buffer
	code := run(context.Background(), []string{
		"--listen", "127.0.0.1:0",
		"--directory", filepath.Join(t.TempDir(), "missing.json"),
	}, &errOut)
	require.Equal(t, 1, code)
	require.Contains(t, errOut.String(), "load directory")
}
