package keysig

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDocument_KeyListExample(t *testing.T) {
	tree := NewList(NewEd25519(pub(1), nil), NewEd25519(pub(2), []byte("s")))

	b, err := tree.DocumentJSON()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Equal(t, "KEYLIST", raw["type"])
	keys, ok := raw["keys"].([]any)
	require.True(t, ok)
	require.Len(t, keys, 2)
	for _, k := range keys {
		require.Equal(t, "ED25519", k.(map[string]any)["type"])
	}

	got, err := ParseDocument(b)
	require.NoError(t, err)
	require.True(t, tree.Equal(got), "document form keeps identifiers")
}

func TestDocument_RoundTripAllVariants(t *testing.T) {
	tree := sampleTree().WithDescription("root")
	b, err := tree.DocumentIndent()
	require.NoError(t, err)

	got, err := ParseDocument(b)
	require.NoError(t, err)
	require.True(t, tree.Equal(got))

	var viaUnmarshal SignedKey
	require.NoError(t, json.Unmarshal(b, &viaUnmarshal))
	require.True(t, tree.Equal(&viaUnmarshal))
}

func TestDocument_LeafFields(t *testing.T) {
	leaf := NewEd25519(pub(1), []byte("sig")).WithDescription("payer")
	b, err := leaf.DocumentJSON()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Equal(t, "payer", raw["description"])
	require.Equal(t, leaf.UUID, raw["uuid"])
	require.Equal(t, "ED25519", raw["signatureType"])
	require.Equal(t, base64.StdEncoding.EncodeToString(pub(1)), raw["key"])
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("sig")), raw["signature"])

	unsigned, err := NewEd25519(pub(1), nil).DocumentJSON()
	require.NoError(t, err)
	require.NotContains(t, string(unsigned), `"signature":`)
}

func TestDocument_ThresholdShape(t *testing.T) {
	tree := NewThreshold(1, NewECDSA384(pub(1), nil))
	b, err := tree.DocumentJSON()
	require.NoError(t, err)

	var raw struct {
		Key struct {
			Threshold uint32            `json:"threshold"`
			Keys      []json.RawMessage `json:"keys"`
		} `json:"key"`
	}
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Equal(t, uint32(1), raw.Key.Threshold)
	require.Len(t, raw.Key.Keys, 1)
}

func TestDocument_Defaults(t *testing.T) {
	doc := `{"type":"ED25519","key":"` + base64.StdEncoding.EncodeToString(pub(1)) + `"}`
	sk, err := ParseDocument([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, "", sk.Description)
	require.NotEmpty(t, sk.UUID)
	require.False(t, sk.Signed())
}

func TestDocument_Errors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		kind Kind
	}{
		{"null", `null`, KindMissingKeyData},
		{"no type", `{"key":"AAAA"}`, KindMissingKeyType},
		{"unknown type", `{"type":"SECP256K1","key":"AAAA"}`, KindUnsupportedKeyVariant},
		{"no key", `{"type":"ED25519"}`, KindMissingKeyData},
		{"no keys", `{"type":"KEYLIST"}`, KindMissingKeyData},
		{"no threshold key", `{"type":"THRESHOLD"}`, KindMissingKeyData},
		{"no contract", `{"type":"CONTRACT"}`, KindMissingKeyData},
		{"bad base64", `{"type":"ED25519","key":"***"}`, KindMalformed},
		{"bad signature", `{"type":"ED25519","key":"AAAA","signature":"***"}`, KindMalformed},
		{"not json", `{"type":`, KindMalformed},
		{"nested missing type", `{"type":"KEYLIST","keys":[{"key":"AAAA"}]}`, KindMissingKeyType},
		{"nested null", `{"type":"KEYLIST","keys":[null]}`, KindMissingKeyData},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tc.doc))
			require.Error(t, err)
			require.Equal(t, tc.kind, KindOf(err), err.Error())
		})
	}
}

func TestDocument_NilChildRejected(t *testing.T) {
	_, err := NewList(nil).DocumentJSON()
	require.True(t, IsKind(err, KindInvalidKeyState))
}

func TestDocument_UnsetNode(t *testing.T) {
	b, err := NewUnset().DocumentJSON()
	require.NoError(t, err)

	sk, err := ParseDocument(b)
	require.NoError(t, err)
	require.Equal(t, TypeNotSet, sk.Type())
}
