package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"

	"xdao.co/keysig/keysig"
)

// SeedStore keeps Ed25519 seeds for ceremony participants on the local
// filesystem: <dir>/<name>/root.key and <dir>/<name>/roles/<role>.key, each
// a hex-encoded seed readable only by the owner.
type SeedStore struct {
	Directory string
}

type SeedEntry struct {
	Name  string
	Roles []string
}

func DefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".xdao", "keysig", "seeds"), nil
}

func OpenSeedStore(directory string) (*SeedStore, error) {
	if directory == "" {
		var err error
		directory, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &SeedStore{Directory: directory}, nil
}

func (ss *SeedStore) rootPath(name string) string {
	return filepath.Join(ss.Directory, name, "root.key")
}

func (ss *SeedStore) rolePath(name, role string) string {
	return filepath.Join(ss.Directory, name, "roles", role+".key")
}

func checkName(kind, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	for _, char := range s {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", char, kind)
	}
	return nil
}

func CheckKeyName(name string) error { return checkName("name", name) }

func CheckRole(role string) error { return checkName("role", role) }

func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimPrefix(strings.TrimSpace(seedHex), "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

func saveSeed(path string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func loadSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(data))
}

// InitRoot stores seed as name's root seed and returns the matching public
// key in FormatPublicKey form.
func (ss *SeedStore) InitRoot(name string, seed []byte, overwrite bool) (string, error) {
	if err := CheckKeyName(name); err != nil {
		return "", err
	}
	if err := saveSeed(ss.rootPath(name), seed, overwrite); err != nil {
		return "", err
	}
	return formatSeed(seed)
}

// DeriveRole derives and stores the seed for role under name's root.
func (ss *SeedStore) DeriveRole(name, role string, overwrite bool) (string, error) {
	if err := CheckKeyName(name); err != nil {
		return "", err
	}
	root, err := loadSeed(ss.rootPath(name))
	if err != nil {
		return "", err
	}
	seed, err := DeriveRoleSeed(root, role)
	if err != nil {
		return "", err
	}
	if err := saveSeed(ss.rolePath(name, role), seed, overwrite); err != nil {
		return "", err
	}
	return formatSeed(seed)
}

// Signer loads the signer for name, or for one of its roles when role is set.
func (ss *SeedStore) Signer(name, role string) (*Ed25519Signer, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, err
	}
	path := ss.rootPath(name)
	if role != "" {
		if err := CheckRole(role); err != nil {
			return nil, err
		}
		path = ss.rolePath(name, role)
	}
	seed, err := loadSeed(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no seed for %s/%s: %w", name, role, err)
		}
		return nil, err
	}
	return NewEd25519Signer(seed)
}

// List returns every stored name with its derived roles, sorted.
func (ss *SeedStore) List() ([]SeedEntry, error) {
	entries, err := os.ReadDir(ss.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var result []SeedEntry
	for _, name := range names {
		roleEntries, _ := os.ReadDir(filepath.Join(ss.Directory, name, "roles"))
		var roles []string
		for _, e := range roleEntries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".key") {
				roles = append(roles, strings.TrimSuffix(e.Name(), ".key"))
			}
		}
		sort.Strings(roles)
		result = append(result, SeedEntry{Name: name, Roles: roles})
	}
	return result, nil
}

func formatSeed(seed []byte) (string, error) {
	s, err := NewEd25519Signer(seed)
	if err != nil {
		return "", err
	}
	return FormatPublicKey(keysig.TypeED25519, s.PublicKey()), nil
}
