package keys

import (
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/keysig/keysig"
)

func TestSignTree_ThresholdSatisfied(t *testing.T) {
	alice, err := NewEd25519Signer(seed(1))
	require.NoError(t, err)
	bob, err := GenerateECDSA384Signer(&deterministicReader{b: 7})
	require.NoError(t, err)
	carol, err := NewEd25519Signer(seed(9))
	require.NoError(t, err)

	tree := keysig.NewThreshold(2,
		keysig.NewEd25519(alice.PublicKey(), nil),
		keysig.NewECDSA384(bob.PublicKey(), nil),
		keysig.NewEd25519(carol.PublicKey(), nil),
	)
	msg := []byte("body")

	n, err := SignTree(tree, msg, alice)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	ok, err := Satisfied(tree, msg)
	require.NoError(t, err)
	require.False(t, ok)

	n, err = SignTree(tree, msg, bob)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	ok, err = Satisfied(tree, msg)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Satisfied(tree, []byte("different body"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSignTree_ListNeedsAll(t *testing.T) {
	alice, err := NewEd25519Signer(seed(1))
	require.NoError(t, err)
	bob, err := NewEd25519Signer(seed(2))
	require.NoError(t, err)
	outsider, err := NewEd25519Signer(seed(3))
	require.NoError(t, err)

	tree := keysig.NewList(keysig.NewEd25519(alice.PublicKey(), nil), keysig.NewEd25519(bob.PublicKey(), nil))
	msg := []byte("body")

	n, err := SignTree(tree, msg, alice, outsider)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	ok, err := Satisfied(tree, msg)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = SignTree(tree, msg, bob)
	require.NoError(t, err)
	ok, err = Satisfied(tree, msg)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestResign(t *testing.T) {
	alice, err := NewEd25519Signer(seed(1))
	require.NoError(t, err)
	tree := keysig.NewList(keysig.NewEd25519(alice.PublicKey(), nil))

	n, err := Resign(tree, []byte("v1"), alice)
	require.NoError(t, err)
	require.Zero(t, n, "unsigned leaves are not resigned")

	_, err = SignTree(tree, []byte("v1"), alice)
	require.NoError(t, err)
	n, err = Resign(tree, []byte("v2"), alice)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ok, err := Satisfied(tree, []byte("v2"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSatisfied_ContractAndUnset(t *testing.T) {
	ok, err := Satisfied(keysig.NewThreshold(0, keysig.NewContract(keysig.ContractID{ContractNum: 1})), nil)
	require.NoError(t, err)
	require.True(t, ok, "0-of-N is trivially satisfied")

	ok, err = Satisfied(keysig.NewContract(keysig.ContractID{}), nil)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = Satisfied(keysig.NewUnset(), nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSatisfied_ThresholdToleratesUnverifiableChild(t *testing.T) {
	alice, err := NewEd25519Signer(seed(1))
	require.NoError(t, err)
	msg := []byte("body")
	sig, err := alice.Sign(msg)
	require.NoError(t, err)

	broken := keysig.NewEd25519([]byte("short"), []byte("sig"))
	good := keysig.NewEd25519(alice.PublicKey(), sig)

	ok, err := Satisfied(keysig.NewThreshold(1, broken, good), msg)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Satisfied(keysig.NewThreshold(2, broken, good), msg)
	require.Error(t, err)
	require.False(t, ok)

	ok, err = Satisfied(keysig.NewList(broken, good), msg)
	require.Error(t, err)
	require.False(t, ok)
}
