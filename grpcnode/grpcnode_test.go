package grpcnode

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/keysig/keysig"
	"xdao.co/keysig/internal/logging"
	"xdao.co/keysig/ledger"
)

func startServer(t *testing.T, srv *Server) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer()
	RegisterCryptoLookupServer(gs, srv)

	go func() {
		_ = gs.Serve(lis)
	}()
	t.Cleanup(gs.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	client, err := Dial("bufnet", DialOptions{Extra: []grpc.DialOption{grpc.WithContextDialer(dialer)}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	client.Timeout = 2 * time.Second
	return client
}

func adminKey() *keysig.SignedKey {
	return keysig.NewThreshold(2,
		keysig.NewEd25519([]byte("alice-public-key-0123456789abcde"), nil),
		keysig.NewEd25519([]byte("bob-public-key-0123456789abcdefg"), nil),
		keysig.NewContract(keysig.ContractID{ContractNum: 1001}),
	)
}

func TestGetEntities_OverGRPC(t *testing.T) {
	log := logging.NewTestLogger(t)
	dir := NewMemoryDirectory()
	contract := keysig.EntityID{Kind: keysig.EntityContract, Num: 1001}
	account := keysig.EntityID{Kind: keysig.EntityAccount, Num: 3}
	require.NoError(t, dir.AddKey(adminKey(), contract, account))

	client := startServer(t, &Server{Directory: dir, Cost: 10, Logger: &log})

	// Signatures and identifiers do not affect the lookup.
	sk := adminKey()
	sk.SetSignatureForKey([]byte("alice-public-key-0123456789abcde"), []byte("sig"), true)

	ok, err := sk.GetEntitiesStateProof(context.Background(), client, []byte("payment"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, keysig.StatusOK, sk.Precheck)
	require.Equal(t, uint64(10), sk.Cost)
	require.Equal(t, []keysig.EntityID{contract, account}, sk.Entities)

	key, err := sk.KeyProto()
	require.NoError(t, err)
	want, err := StateProof(key, []*ledger.EntityID{contract.Proto(), account.Proto()})
	require.NoError(t, err)
	require.Equal(t, want, sk.StateProof)
	require.Len(t, sk.StateProof, 48)
}

func TestGetEntities_CostAndFee(t *testing.T) {
	client := startServer(t, &Server{Directory: NewMemoryDirectory(), Cost: 10})
	sk := adminKey()

	ok, err := sk.GetEntitiesCostAnswer(context.Background(), client)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(10), sk.Cost)
	require.Empty(t, sk.Entities)

	sk.Cost = 0
	ok, err = sk.GetEntitiesAnswerOnly(context.Background(), client, nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, keysig.StatusInsufficientFee, sk.Precheck)
	require.Zero(t, sk.Cost)
}

type blockingDirectory struct {
	entered chan struct{}
	release chan struct{}
}

func (d *blockingDirectory) Lookup(ctx context.Context, key *ledger.Key) ([]*ledger.EntityID, error) {
	d.entered <- struct{}{}
	select {
	case <-d.release:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestGetEntities_Busy(t *testing.T) {
	dir := &blockingDirectory{entered: make(chan struct{}, 1), release: make(chan struct{})}
	client := startServer(t, &Server{Directory: dir, MaxInFlight: 1})

	done := make(chan error, 1)
	go func() {
		_, err := adminKey().GetEntitiesAnswerOnly(context.Background(), client, nil)
		done <- err
	}()
	<-dir.entered

	sk := adminKey()
	sk.Entities = []keysig.EntityID{{Kind: keysig.EntityFile, Num: 7}}
	ok, err := sk.GetEntitiesAnswerOnly(context.Background(), client, nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, keysig.StatusBusy, sk.Precheck)
	require.Equal(t, []keysig.EntityID{{Kind: keysig.EntityFile, Num: 7}}, sk.Entities)

	close(dir.release)
	require.NoError(t, <-done)
}

func TestGetEntities_Deadline(t *testing.T) {
	dir := &blockingDirectory{entered: make(chan struct{}, 1), release: make(chan struct{})}
	client := startServer(t, &Server{Directory: dir})
	defer close(dir.release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := adminKey().GetEntitiesAnswerOnly(ctx, client, nil)
	require.True(t, keysig.IsKind(err, keysig.KindInterrupted), "%v", err)
}

func TestServer_MissingDirectory(t *testing.T) {
	client := startServer(t, &Server{})
	_, err := client.GetByKey(context.Background(), &ledger.Query{GetByKey: &ledger.GetByKeyQuery{
		Key: &ledger.Key{Case: ledger.KeyCaseEd25519, Raw: []byte("k")},
	}})
	require.ErrorIs(t, err, ErrNoDirectory)
}

func TestServer_NoKey(t *testing.T) {
	client := startServer(t, &Server{Directory: NewMemoryDirectory()})
	resp, err := client.GetByKey(context.Background(), &ledger.Query{GetByKey: &ledger.GetByKeyQuery{
		Header: &ledger.QueryHeader{ResponseType: ledger.AnswerOnly},
	}})
	require.NoError(t, err)
	require.Equal(t, ledger.PrecheckInvalidTransaction, resp.GetByKey.Header.Precheck)
}

func TestLoadDirectory(t *testing.T) {
	doc, err := adminKey().DocumentJSON()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "directory.json")
	content := `[{"key":` + string(doc) + `,"entities":["CONTRACT:0.0.1001","ACCOUNT:0.0.3"]}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	dir, err := LoadDirectory(path)
	require.NoError(t, err)
	require.Equal(t, 1, dir.Len())

	key, err := adminKey().KeyProto()
	require.NoError(t, err)
	got, err := dir.Lookup(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, ledger.EntityCaseContract, got[0].Case)

	require.NoError(t, os.WriteFile(path, []byte(`[{"entities":["ACCOUNT:0.0.3"]}]`), 0o600))
	_, err = LoadDirectory(path)
	require.Error(t, err)
}
