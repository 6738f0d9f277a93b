// Package bundle moves key/signature documents between stores as a single
// tar file, for example when a partially signed tree is passed from one
// ceremony participant to the next.
//
// A bundle holds docs/<cid>.json for each document and, optionally, a
// manifest.json summarizing them. Export output is byte-for-byte
// reproducible for the same set of documents.
package bundle

import (
	"archive/tar"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/keysig/keysig"
	"xdao.co/keysig/cidutil"
	"xdao.co/keysig/storage"
	"xdao.co/keysig/storage/keystore"
)

const (
	ManifestVersion = 1

	manifestName = "manifest.json"
	docsDir      = "docs/"
	docSuffix    = ".json"
)

var epoch = time.Unix(0, 0).UTC()

var ErrUnexpectedEntry = errors.New("bundle: unexpected entry")

// Manifest describes the documents in a bundle. It is informational; Import
// trusts only the documents themselves.
type Manifest struct {
	Version   int             `json:"version"`
	Documents []ManifestEntry `json:"documents"`
}

type ManifestEntry struct {
	CID         string `json:"cid"`
	Fingerprint string `json:"fingerprint"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	// Name is an optional operator label such as "treasury".
	Name string `json:"name,omitempty"`
}

type ExportOptions struct {
	Manifest bool
	// Names labels documents in the manifest.
	Names map[cid.Cid]string
}

// Export writes the documents ids from cas to w. Every document is checked
// against its CID and must parse as a key/signature document.
func Export(w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) error {
	if cas == nil {
		return storage.ErrNoBackends
	}

	byName := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		byName[id.String()] = id
	}
	order := make([]string, 0, len(byName))
	for s := range byName {
		order = append(order, s)
	}
	sort.Strings(order)

	tw := tar.NewWriter(w)
	manifest := Manifest{Version: ManifestVersion}
	for _, s := range order {
		id := byName[s]
		doc, err := cas.Get(id)
		if err != nil {
			return errors.Join(fmt.Errorf("bundle: %s: %w", s, err), tw.Close())
		}
		if err := cidutil.Verify(id, doc); err != nil {
			return errors.Join(storage.ErrCIDMismatch, tw.Close())
		}
		sk, err := keysig.ParseDocument(doc)
		if err != nil {
			return errors.Join(fmt.Errorf("bundle: %s: %w", s, err), tw.Close())
		}
		fp, err := keystore.Fingerprint(sk)
		if err != nil {
			return errors.Join(fmt.Errorf("bundle: %s: %w", s, err), tw.Close())
		}
		if err := writeEntry(tw, docsDir+s+docSuffix, doc); err != nil {
			return errors.Join(err, tw.Close())
		}
		manifest.Documents = append(manifest.Documents, ManifestEntry{
			CID:         s,
			Fingerprint: fp.String(),
			Type:        sk.Type().String(),
			Description: sk.Description,
			Name:        opts.Names[id],
		})
	}

	if opts.Manifest {
		b, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return errors.Join(err, tw.Close())
		}
		if err := writeEntry(tw, manifestName, append(b, '\n')); err != nil {
			return errors.Join(err, tw.Close())
		}
	}
	return tw.Close()
}

type ImportOptions struct {
	// SkipUnknown ignores entries other than documents and the manifest
	// instead of failing with ErrUnexpectedEntry.
	SkipUnknown bool
}

// Import stores every document in r into cas and returns their CIDs in
// bundle order. A document whose bytes do not match its name fails with
// storage.ErrCIDMismatch; one that is not a valid key document fails with
// the keysig error.
func Import(r io.Reader, cas storage.CAS, opts ImportOptions) ([]cid.Cid, error) {
	if cas == nil {
		return nil, storage.ErrNoBackends
	}
	tr := tar.NewReader(r)
	seen := make(map[string]bool)
	var out []cid.Cid
	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}

		name, ok := cleanName(h.Name)
		switch {
		case !ok:
			return out, fmt.Errorf("%w: bad path %q", ErrUnexpectedEntry, h.Name)
		case h.Typeflag == tar.TypeReg && name == manifestName:
			continue
		case h.Typeflag != tar.TypeReg || !strings.HasPrefix(name, docsDir) || !strings.HasSuffix(name, docSuffix):
			if opts.SkipUnknown {
				continue
			}
			return out, fmt.Errorf("%w: %s", ErrUnexpectedEntry, name)
		}

		s := strings.TrimSuffix(strings.TrimPrefix(name, docsDir), docSuffix)
		id, err := cidutil.Parse(s)
		if err != nil {
			return out, fmt.Errorf("%w: %s: %v", storage.ErrInvalidCID, name, err)
		}
		if seen[s] {
			return out, fmt.Errorf("bundle: duplicate document %s", s)
		}
		seen[s] = true

		doc, err := io.ReadAll(tr)
		if err != nil {
			return out, err
		}
		if err := cidutil.Verify(id, doc); err != nil {
			return out, storage.ErrCIDMismatch
		}
		if _, err := keysig.ParseDocument(doc); err != nil {
			return out, fmt.Errorf("bundle: %s: %w", s, err)
		}
		if _, err := cas.Put(doc); err != nil {
			return out, err
		}
		out = append(out, id)
	}
}

// ReadManifest returns the manifest of a bundle, or nil if it has none.
func ReadManifest(r io.Reader) (*Manifest, error) {
	tr := tar.NewReader(r)
	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if name, ok := cleanName(h.Name); !ok || name != manifestName {
			continue
		}
		var m Manifest
		if err := json.NewDecoder(tr).Decode(&m); err != nil {
			return nil, fmt.Errorf("bundle: manifest: %w", err)
		}
		return &m, nil
	}
}

func writeEntry(tw *tar.Writer, name string, content []byte) error {
	if err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch,
		Typeflag: tar.TypeReg,
	}); err != nil {
		return err
	}
	_, err := tw.Write(content)
	return err
}

// cleanName normalizes a tar path and rejects absolute or escaping ones.
func cleanName(name string) (string, bool) {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", false
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}
