package keysig

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_RejectsCompositeTypes(t *testing.T) {
	for _, typ := range []KeyType{TypeNotSet, TypeContract, TypeKeyList, TypeThreshold} {
		_, err := New(typ, pub(1), nil)
		require.True(t, IsKind(err, KindInvalidArgument), typ.String())
	}

	sk, err := New(TypeECDSA384, pub(1), []byte("s"))
	require.NoError(t, err)
	require.Equal(t, TypeECDSA384, sk.Type())
	require.True(t, sk.Signed())
}

func TestNew_CopiesInputs(t *testing.T) {
	key := pub(1)
	sk := NewEd25519(key, nil)
	key[0] = 0xFF
	require.Equal(t, pub(1), sk.PublicKey())
}

func TestUUIDs_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewEd25519(pub(1), nil).UUID
		require.NotEmpty(t, id)
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestContractLeaf(t *testing.T) {
	id := ContractID{ShardNum: 0, RealmNum: 2, ContractNum: 77}
	sk := NewContract(id)

	got, ok := sk.ContractID()
	require.True(t, ok)
	require.Equal(t, id, got)
	require.Equal(t, "0.2.77", got.String())
	require.NotNil(t, sk.ContractSignature())
	require.Empty(t, sk.ContractSignature())
	require.False(t, sk.Signed())

	_, ok = NewEd25519(pub(1), nil).ContractID()
	require.False(t, ok)
}

func TestKeys_ReturnsCopy(t *testing.T) {
	root := NewList(NewEd25519(pub(1), nil), NewEd25519(pub(2), nil))
	keys := root.Keys()
	keys[0] = nil
	require.NotNil(t, root.Keys()[0])
}

func TestCloneEqual(t *testing.T) {
	root := NewThreshold(1,
		NewEd25519(pub(1), []byte("s")).WithDescription("one"),
		NewList(NewContract(ContractID{ContractNum: 9}), NewRSA3072(pub(2), nil)),
	)
	root.Cost = 12

	c := root.Clone()
	require.True(t, root.Equal(c))
	require.Zero(t, c.Cost)

	c.Keys()[0].SetSignatureForUUID(c.Keys()[0].UUID, []byte("t"))
	require.False(t, root.Equal(c))
	require.Equal(t, []byte("s"), root.Keys()[0].Signature())
}

func TestKeyType_Text(t *testing.T) {
	for _, typ := range []KeyType{TypeNotSet, TypeED25519, TypeRSA3072, TypeECDSA384, TypeContract, TypeKeyList, TypeThreshold} {
		b, err := typ.MarshalText()
		require.NoError(t, err)

		var got KeyType
		require.NoError(t, got.UnmarshalText(b))
		require.Equal(t, typ, got)
	}

	_, ok := KeyTypeByName("ed25519")
	require.True(t, ok)
	_, ok = KeyTypeByName("SECP256K1")
	require.False(t, ok)
}

func TestError_Format(t *testing.T) {
	cause := errors.New("boom")
	err := wrapError(KindTransport, "GetEntities", "query node", cause)
	require.Equal(t, "keysig: GetEntities: query node: boom", err.Error())
	require.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("outer: %w", err)
	require.True(t, IsKind(wrapped, KindTransport))
	require.Equal(t, KindTransport, KindOf(wrapped))
	require.Equal(t, Kind(""), KindOf(cause))
}

func TestStatus(t *testing.T) {
	require.Equal(t, StatusBusy, StatusFromPrecheck(6))
	require.True(t, StatusBusy.Retryable())
	require.False(t, StatusOK.Retryable())
	require.Equal(t, StatusUnknown, StatusFromPrecheck(99))
	require.Equal(t, "INSUFFICIENT_FEE", StatusFromPrecheck(3).String())
}

func TestParseEntityID(t *testing.T) {
	e, err := ParseEntityID("contract:0.1.1001")
	require.NoError(t, err)
	require.Equal(t, EntityID{Kind: EntityContract, Realm: 1, Num: 1001}, e)
	require.Equal(t, "CONTRACT:0.1.1001", e.String())

	for _, bad := range []string{"0.0.1", "TOKEN:0.0.1", "ACCOUNT:0.1", "ACCOUNT:0.x.1"} {
		_, err := ParseEntityID(bad)
		require.True(t, IsKind(err, KindInvalidArgument), bad)
	}
}
