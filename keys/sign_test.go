package keys

import (
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/keysig/keysig"
)

type deterministicReader struct{ b byte }

func (r *deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
		r.b++
	}
	return len(p), nil
}

func seed(b byte) []byte {
	s := make([]byte, 32)
	for i := range s {
		s[i] = b + byte(i)
	}
	return s
}

func TestEd25519Signer_Verifies(t *testing.T) {
	s, err := NewEd25519Signer(seed(1))
	require.NoError(t, err)
	require.Len(t, s.PublicKey(), 32)

	msg := []byte("transaction body")
	sig, err := s.Sign(msg)
	require.NoError(t, err)

	ok, err := Verify(keysig.TypeED25519, s.PublicKey(), msg, sig)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Verify(keysig.TypeED25519, s.PublicKey(), []byte("other"), sig)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = NewEd25519Signer([]byte("short"))
	require.Error(t, err)
}

func TestECDSA384Signer_Verifies(t *testing.T) {
	s, err := GenerateECDSA384Signer(&deterministicReader{})
	require.NoError(t, err)
	require.Len(t, s.PublicKey(), 97)

	msg := []byte("transaction body")
	sig, err := s.Sign(msg)
	require.NoError(t, err)

	ok, err := Verify(keysig.TypeECDSA384, s.PublicKey(), msg, sig)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = Verify(keysig.TypeECDSA384, []byte("junk"), msg, sig)
	require.Error(t, err)

	offCurve := append([]byte{0x04}, make([]byte, 96)...)
	_, err = Verify(keysig.TypeECDSA384, offCurve, msg, sig)
	require.Error(t, err)

	pub, err := parseP384(s.PublicKey())
	require.NoError(t, err)
	require.True(t, pub.Equal(&s.priv.PublicKey))
}

func TestRSA3072Signer_Verifies(t *testing.T) {
	if testing.Short() {
		t.Skip("RSA key generation is slow")
	}
	s, err := GenerateRSA3072Signer(nil)
	require.NoError(t, err)

	msg := []byte("transaction body")
	sig, err := s.Sign(msg)
	require.NoError(t, err)
	require.Len(t, sig, 384)

	ok, err := Verify(keysig.TypeRSA3072, s.PublicKey(), msg, sig)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerify_UnsupportedType(t *testing.T) {
	_, err := Verify(keysig.TypeContract, nil, nil, nil)
	require.ErrorIs(t, err, errUnverifiable)
}

func TestDigestFor(t *testing.T) {
	for alg, n := range map[string]int{"sha256": 32, "sha384": 48, "sha3-256": 32, "sha3-384": 48} {
		d, err := digestFor(alg, []byte("m"))
		require.NoError(t, err)
		require.Len(t, d, n, alg)
	}
	_, err := digestFor("md5", nil)
	require.Error(t, err)
}

func TestFormatParsePublicKey(t *testing.T) {
	s, err := NewEd25519Signer(seed(3))
	require.NoError(t, err)
	str := FormatPublicKey(keysig.TypeED25519, s.PublicKey())
	require.Contains(t, str, "ed25519:")

	typ, pub, err := ParsePublicKey(str)
	require.NoError(t, err)
	require.Equal(t, keysig.TypeED25519, typ)
	require.Equal(t, s.PublicKey(), pub)

	typ, _, err = ParsePublicKey("AAAA")
	require.NoError(t, err)
	require.Equal(t, keysig.TypeNotSet, typ)

	_, _, err = ParsePublicKey("keylist:AAAA")
	require.Error(t, err)
}
