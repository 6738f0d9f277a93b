package main

import (
	"bytes"
	"encoding/hex"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"xdao.co/keysig/keysig"
	"xdao.co/keysig/grpcnode"
)

type cli struct {
	t     *testing.T
	flags []string
}

// newCLI isolates the store and seed directories of every invocation.
func newCLI(t *testing.T, extra ...string) *cli {
	dir := t.TempDir()
	return &cli{t: t, flags: append([]string{
		"--store-dir", filepath.Join(dir, "store"),
		"--seeds-dir", filepath.Join(dir, "seeds"),
		"--log-level", "error",
	}, extra...)}
}

func (c *cli) run(args ...string) (int, string, string) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	code := run(append(args, c.flags...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func (c *cli) ok(args ...string) string {
	c.t.Helper()
	code, out, errOut := c.run(args...)
	require.Equal(c.t, 0, code, "keysig %s: %s", strings.Join(args, " "), errOut)
	return out
}

func writeFile(t *testing.T, name string, b []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func writeDoc(t *testing.T, sk *keysig.SignedKey) string {
	t.Helper()
	b, err := sk.DocumentJSON()
	require.NoError(t, err)
	return writeFile(t, "key.json", b)
}

func parseDoc(t *testing.T, s string) *keysig.SignedKey {
	t.Helper()
	sk, err := keysig.ParseDocument([]byte(s))
	require.NoError(t, err)
	return sk
}

func TestRun_Usage(t *testing.T) {
	c := newCLI(t)
	code, _, _ := c.run()
	require.Equal(t, 2, code)

	code, _, errOut := c.run("frobnicate")
	require.Equal(t, 2, code)
	require.Contains(t, errOut, "unknown command")

	code, _, _ = c.run("sign", "--no-such-flag", "x")
	require.Equal(t, 2, code)

	code, _, _ = c.run("lookup", "a", "b")
	require.Equal(t, 2, code)
}

func TestSeedsSignVerify(t *testing.T) {
	c := newCLI(t)
	alicePub := strings.TrimSpace(c.ok("seeds", "init", "--name", "alice", "--seed-hex", strings.Repeat("01", 32)))
	require.True(t, strings.HasPrefix(alicePub, "ed25519:"))
	c.ok("seeds", "init", "--name", "bob", "--seed-hex", strings.Repeat("02", 32))
	c.ok("seeds", "derive", "--from", "bob", "--role", "treasury")

	require.Equal(t, alicePub+"\n", c.ok("seeds", "export", "--name", "alice"))
	require.Equal(t, "alice\nbob\n  - treasury\n", c.ok("seeds", "list"))

	alice := parseDoc(t, c.ok("seeds", "leaf", "--name", "alice", "--description", "alice"))
	bob := parseDoc(t, c.ok("seeds", "leaf", "--name", "bob", "--role", "treasury"))
	tree := writeDoc(t, keysig.NewThreshold(2, alice, bob))
	msg := writeFile(t, "msg", []byte("transfer 10 to 0.0.1001"))

	code, _, _ := c.run("verify", tree, "--message", msg)
	require.Equal(t, 1, code)

	once := writeFile(t, "once.json", []byte(c.ok("sign", tree, "--signer", "alice", "--message", msg)))
	code, _, _ = c.run("verify", once, "--message", msg)
	require.Equal(t, 1, code)

	twice := writeFile(t, "twice.json", []byte(c.ok("sign", once, "--signer", "bob", "--role", "treasury", "--message", msg)))
	require.Equal(t, "OK\n", c.ok("verify", twice, "--message", msg))

	other := writeFile(t, "other", []byte("transfer 99 to 0.0.1001"))
	code, _, _ = c.run("verify", twice, "--message", other)
	require.Equal(t, 1, code)

	// carol holds no leaf in the tree.
	c.ok("seeds", "init", "--name", "carol")
	code, _, errOut := c.run("sign", tree, "--signer", "carol", "--message", msg)
	require.Equal(t, 1, code)
	require.Contains(t, errOut, errNoMatch.Error())
}

func TestSignByKeyAndUUID(t *testing.T) {
	c := newCLI(t)
	pub := bytes.Repeat([]byte{7}, 32)
	leaf := keysig.NewEd25519(pub, nil).WithDescription("ops")
	leaf.UUID = "leaf-1"
	doc := writeDoc(t, keysig.NewList(leaf))

	require.Equal(t, "leaf-1\tops\n", c.ok("uuids", doc, "--public-key", "ed25519:BwcHBwcHBwcHBwcHBwcHBwcHBwcHBwcHBwcHBwcHBwc="))

	signed := parseDoc(t, c.ok("sign", doc, "--public-key", "BwcHBwcHBwcHBwcHBwcHBwcHBwcHBwcHBwcHBwcHBwc=", "--signature", "AQID"))
	require.Equal(t, []byte{1, 2, 3}, signed.Keys()[0].Signature())

	byUUID := parseDoc(t, c.ok("sign", doc, "--uuid", "leaf-1", "--signature", "BAU="))
	require.Equal(t, []byte{4, 5}, byUUID.Keys()[0].Signature())

	code, _, _ := c.run("sign", doc, "--uuid", "leaf-1")
	require.Equal(t, 2, code)
	code, _, _ = c.run("sign", doc, "--uuid", "leaf-1", "--public-key", "AAAA", "--signature", "AA==")
	require.Equal(t, 2, code)
}

func TestSign_JSONLogsCarryModuleOnce(t *testing.T) {
	t.Cleanup(func() { keysig.SetLogger(zerolog.Nop()) })
	c := newCLI(t, "--log-level", "trace", "--log-format", "json")
	doc := writeDoc(t, keysig.NewEd25519(bytes.Repeat([]byte{7}, 32), nil))

	code, _, errOut := c.run("sign", doc, "--public-key", "BwcHBwcHBwcHBwcHBwcHBwcHBwcHBwcHBwcHBwcHBwc=", "--signature", "AQID")
	require.Equal(t, 0, code, errOut)

	var seen bool
	for _, line := range strings.Split(strings.TrimSpace(errOut), "\n") {
		if !strings.Contains(line, "set signature for key") {
			continue
		}
		seen = true
		require.Equal(t, 1, strings.Count(line, `"module":`), line)
		require.Contains(t, line, `"module":"keysig"`)
	}
	require.True(t, seen, "no matcher trace in %q", errOut)
}

func TestRetryDelay(t *testing.T) {
	require.Equal(t, 250*time.Millisecond, retryDelay(250*time.Millisecond, 0))
	require.Equal(t, time.Second, retryDelay(250*time.Millisecond, 2))
	require.Equal(t, maxBackoff, retryDelay(250*time.Millisecond, 200))
	require.Equal(t, maxBackoff, retryDelay(time.Hour, 0))
	require.Zero(t, retryDelay(0, 5))
}

func TestDocWire(t *testing.T) {
	c := newCLI(t)
	tree := keysig.NewThreshold(1,
		keysig.NewEd25519(bytes.Repeat([]byte{1}, 32), []byte("sig")),
		keysig.NewContract(keysig.ContractID{ContractNum: 1001}),
	)
	doc := writeDoc(t, tree)
	dir := t.TempDir()
	keyOut, sigOut := filepath.Join(dir, "key.hex"), filepath.Join(dir, "sig.hex")

	fp := c.ok("doc", "to-wire", doc, "--key-out", keyOut, "--sig-out", sigOut, "--hex")
	require.Equal(t, fp, c.ok("doc", "fingerprint", doc))

	keyHex, err := os.ReadFile(keyOut)
	require.NoError(t, err)
	_, err = hex.DecodeString(strings.TrimSpace(string(keyHex)))
	require.NoError(t, err)

	got := parseDoc(t, c.ok("doc", "from-wire", "--key", keyOut, "--sig", sigOut, "--hex"))
	require.Equal(t, keysig.TypeThreshold, got.Type())
	require.Equal(t, uint32(1), got.Threshold())
	require.Equal(t, []byte("sig"), got.Keys()[0].Signature())

	code, _, _ := c.run("doc", "from-wire")
	require.Equal(t, 2, code)
}

func TestStore(t *testing.T) {
	for _, backend := range []string{"localfs", "badger", "replicated"} {
		t.Run(backend, func(t *testing.T) {
			c := newCLI(t, "--store-backend", backend)
			sk := keysig.NewEd25519(bytes.Repeat([]byte{9}, 32), nil).WithDescription("cold wallet")
			id := strings.TrimSpace(c.ok("store", "put", writeDoc(t, sk)))

			got := parseDoc(t, c.ok("store", "get", id))
			require.True(t, sk.Equal(got))

			require.Equal(t, id+"\n", c.ok("store", "ls"))
			require.Equal(t, id+"\tED25519\tcold wallet\n", c.ok("store", "ls", "--long"))

			code, _, _ := c.run("store", "get", "not-a-cid")
			require.Equal(t, 1, code)
		})
	}
}

func TestLookup(t *testing.T) {
	sk := keysig.NewEd25519(bytes.Repeat([]byte{5}, 32), nil)
	dir := grpcnode.NewMemoryDirectory()
	require.NoError(t, dir.AddKey(sk, keysig.EntityID{Kind: keysig.EntityAccount, Num: 1001}))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	gs := grpc.NewServer()
	grpcnode.RegisterCryptoLookupServer(gs, &grpcnode.Server{Directory: dir, Cost: 3})
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	c := newCLI(t, "--node", lis.Addr().String())
	doc := writeDoc(t, sk)

	out := c.ok("lookup", doc, "--mode", "proof", "--payment-hex", "00ff")
	require.Contains(t, out, "status\tOK\n")
	require.Contains(t, out, "cost\t3\n")
	require.Contains(t, out, "proof\t")
	require.Contains(t, out, "entity\tACCOUNT:0.0.1001\n")

	out = c.ok("lookup", doc, "--mode", "cost")
	require.Equal(t, "status\tOK\ncost\t3\n", out)

	code, out, _ := c.run("lookup", doc)
	require.Equal(t, 1, code)
	require.Equal(t, "status\tINSUFFICIENT_FEE\n", out)

	code, _, _ = c.run("lookup", doc, "--mode", "sideways")
	require.Equal(t, 2, code)
}

func TestStoreExportImport(t *testing.T) {
	src := newCLI(t)
	a := strings.TrimSpace(src.ok("store", "put", writeDoc(t, keysig.NewEd25519(bytes.Repeat([]byte{1}, 32), nil))))
	b := strings.TrimSpace(src.ok("store", "put", writeDoc(t, keysig.NewEd25519(bytes.Repeat([]byte{2}, 32), nil))))

	out := filepath.Join(t.TempDir(), "ceremony.tar")
	src.ok("store", "export", "--out", out)

	dst := newCLI(t, "--store-backend", "badger")
	imported := strings.Fields(dst.ok("store", "import", out))
	require.ElementsMatch(t, []string{a, b}, imported)

	code, _, _ := dst.run("store", "export", "not-a-cid", "--out", out)
	require.Equal(t, 2, code)
}
