package keys

import (
	"encoding/base64"
	"fmt"
	"strings"

	"xdao.co/keysig/keysig"
)

// FormatPublicKey renders a public key as "<type>:<base64>", e.g. "ed25519:AAAA...".
func FormatPublicKey(typ keysig.KeyType, publicKey []byte) string {
	return strings.ToLower(typ.String()) + ":" + base64.StdEncoding.EncodeToString(publicKey)
}

// ParsePublicKey accepts the FormatPublicKey form or bare base64. A bare
// key reports TypeNotSet.
func ParsePublicKey(s string) (keysig.KeyType, []byte, error) {
	s = strings.TrimSpace(s)
	typ := keysig.TypeNotSet
	if prefix, rest, ok := strings.Cut(s, ":"); ok {
		t, known := keysig.KeyTypeByName(prefix)
		if !known || !t.IsRaw() {
			return keysig.TypeNotSet, nil, fmt.Errorf("unknown key type %q", prefix)
		}
		typ, s = t, rest
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return keysig.TypeNotSet, nil, err
	}
	return typ, b, nil
}
