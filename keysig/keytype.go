package keysig

import (
	"fmt"
	"strings"
)

// KeyType selects the variant of a SignedKey node.
type KeyType uint8

const (
	TypeNotSet KeyType = iota
	TypeED25519
	TypeRSA3072
	TypeECDSA384
	TypeContract
	TypeKeyList
	TypeThreshold
)

// KeyTypeByName parses a canonical tag such as "ED25519" or "KEYLIST".
func KeyTypeByName(s string) (KeyType, bool) {
	switch strings.ToUpper(s) {
	case "NOTSET":
		return TypeNotSet, true
	case "ED25519":
		return TypeED25519, true
	case "RSA3072":
		return TypeRSA3072, true
	case "ECDSA384":
		return TypeECDSA384, true
	case "CONTRACT":
		return TypeContract, true
	case "KEYLIST":
		return TypeKeyList, true
	case "THRESHOLD":
		return TypeThreshold, true
	default:
		return TypeNotSet, false
	}
}

// String returns the canonical tag shared by the wire and document forms.
func (t KeyType) String() string {
	switch t {
	case TypeNotSet:
		return "NOTSET"
	case TypeED25519:
		return "ED25519"
	case TypeRSA3072:
		return "RSA3072"
	case TypeECDSA384:
		return "ECDSA384"
	case TypeContract:
		return "CONTRACT"
	case TypeKeyList:
		return "KEYLIST"
	case TypeThreshold:
		return "THRESHOLD"
	default:
		return fmt.Sprintf("KeyType:%d", uint8(t))
	}
}

// IsRaw reports whether t is a public-key leaf.
func (t KeyType) IsRaw() bool {
	return t == TypeED25519 || t == TypeRSA3072 || t == TypeECDSA384
}

// IsComposite reports whether t holds child keys.
func (t KeyType) IsComposite() bool {
	return t == TypeKeyList || t == TypeThreshold
}

func (t KeyType) MarshalText() ([]byte, error) {
	if t > TypeThreshold {
		return nil, fmt.Errorf("invalid key type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *KeyType) UnmarshalText(b []byte) error {
	v, ok := KeyTypeByName(string(b))
	if !ok {
		return fmt.Errorf("invalid key type: %q", b)
	}
	*t = v
	return nil
}

// unhandled is the exhaustiveness check at every switch over KeyType.
func unhandled(t KeyType) string {
	return fmt.Sprintf("keysig: unhandled key type %s", t)
}
