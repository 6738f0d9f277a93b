// Package ipfs publishes key documents as raw blocks through the local Kubo
// CLI, so participants in a signing ceremony can fetch each other's trees
// by CID. It runs "ipfs --offline" against a local repo and never needs a
// daemon.
package ipfs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/keysig/cidutil"
	"xdao.co/keysig/storage"
	"xdao.co/keysig/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "ipfs",
		Description: "raw blocks in a local Kubo repo (dir is IPFS_PATH, empty for the default)",
		Open: func(dir string) (storage.CAS, func() error, error) {
			cas, err := New(Options{Repo: dir})
			return cas, nil, err
		},
	})
}

type Options struct {
	// Bin is the ipfs executable; "ipfs" on PATH when empty.
	Bin string
	// Repo sets IPFS_PATH for every call when non-empty.
	Repo string
	// Args are placed before the subcommand, after "--offline".
	Args []string
	// Env replaces the inherited environment when non-nil.
	Env []string
}

type CAS struct {
	bin  string
	args []string
	env  []string
}

func New(opts Options) (*CAS, error) {
	bin := opts.Bin
	if bin == "" {
		bin = "ipfs"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("ipfs: %w", err)
	}
	env := opts.Env
	if opts.Repo != "" {
		if env == nil {
			env = os.Environ()
		}
		env = append(env, "IPFS_PATH="+opts.Repo)
	}
	args := append([]string{}, opts.Args...)
	args = append(args, "--offline")
	return &CAS{bin: path, args: args, env: env}, nil
}

// Put stores data as a CIDv1 raw sha2-256 block, the same CID cidutil.Sum gives.
func (c *CAS) Put(data []byte) (cid.Cid, error) {
	want, err := cidutil.Sum(data)
	if err != nil {
		return cid.Undef, err
	}
	out, err := c.run(data, "block", "put", "--quiet",
		"--cid-codec=raw", "--mhtype=sha2-256", "--mhlen=32")
	if err != nil {
		return cid.Undef, err
	}
	got, err := cid.Decode(strings.TrimSpace(string(out)))
	if err != nil {
		return cid.Undef, fmt.Errorf("ipfs: block put printed %q: %w", out, err)
	}
	if !got.Equals(want) {
		return cid.Undef, storage.ErrCIDMismatch
	}
	return want, nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	out, err := c.run(nil, "block", "get", id.String())
	if err != nil {
		if notFound(err) {
			return nil, storage.ErrNotFound
		}
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
	_, err := c.run(nil, "block", "stat", id.String())
	return err == nil
}

func (c *CAS) run(stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.Command(c.bin, append(append([]string{}, c.args...), args...)...)
	cmd.Env = c.env
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if msg := strings.TrimSpace(string(ee.Stderr)); msg != "" {
			return nil, fmt.Errorf("ipfs %s: %s", args[0]+" "+args[1], msg)
		}
	}
	return nil, fmt.Errorf("ipfs %s: %w", args[0]+" "+args[1], err)
}

// notFound matches Kubo's offline miss, "block was not found locally (offline)".
func notFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found")
}
