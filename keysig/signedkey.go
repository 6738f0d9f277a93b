package keysig

import (
	"bytes"

	"github.com/google/uuid"
)

// SignedKey is one node of a key tree together with its signature state.
//
// Raw-key leaves hold a public key and an optional signature. Contract leaves
// hold a ContractID; their signature is always empty. Key lists and threshold
// groups hold child nodes, each carrying its own signature, so the signature
// tree cannot drift from the key tree.
//
// The zero value is an unset node.
type SignedKey struct {
	// UUID identifies the node for SetSignatureForUUID. It is generated at
	// construction and may be overwritten by the caller or by decoding.
	UUID string
	// Description is a free-form label.
	Description string

	typ       KeyType
	publicKey []byte
	signature []byte
	contract  ContractID
	threshold uint32
	keys      []*SignedKey

	// Populated by a successful lookup; see GetEntities.
	Precheck   Status
	Cost       uint64
	StateProof []byte
	Entities   []EntityID
}

// KeyUUID pairs a leaf identifier with its description.
type KeyUUID struct {
	UUID        string
	Description string
}

func newUUID() string {
	return uuid.NewString()
}

// New returns a raw-key leaf. typ must be ED25519, RSA3072 or ECDSA384.
// A nil or empty signature leaves the slot unsigned.
func New(typ KeyType, publicKey, signature []byte) (*SignedKey, error) {
	if !typ.IsRaw() {
		return nil, newError(KindInvalidArgument, "New", "key type "+typ.String()+" is not a public-key type")
	}
	return &SignedKey{
		UUID:      newUUID(),
		typ:       typ,
		publicKey: cloneBytes(publicKey),
		signature: cloneBytes(signature),
	}, nil
}

func newRaw(typ KeyType, publicKey, signature []byte) *SignedKey {
	sk, _ := New(typ, publicKey, signature)
	return sk
}

// NewEd25519 returns an ED25519 leaf.
func NewEd25519(publicKey, signature []byte) *SignedKey {
	return newRaw(TypeED25519, publicKey, signature)
}

// NewRSA3072 returns an RSA3072 leaf.
func NewRSA3072(publicKey, signature []byte) *SignedKey {
	return newRaw(TypeRSA3072, publicKey, signature)
}

// NewECDSA384 returns an ECDSA384 leaf.
func NewECDSA384(publicKey, signature []byte) *SignedKey {
	return newRaw(TypeECDSA384, publicKey, signature)
}

// NewContract returns a contract-reference leaf. Contracts cannot sign.
func NewContract(id ContractID) *SignedKey {
	return &SignedKey{UUID: newUUID(), typ: TypeContract, contract: id}
}

// NewList returns a key list over keys. Children must not be nil.
func NewList(keys ...*SignedKey) *SignedKey {
	return &SignedKey{UUID: newUUID(), typ: TypeKeyList, keys: append([]*SignedKey{}, keys...)}
}

// NewThreshold returns an M-of-N group over keys. All N children are kept
// regardless of how many end up signed.
func NewThreshold(threshold uint32, keys ...*SignedKey) *SignedKey {
	return &SignedKey{UUID: newUUID(), typ: TypeThreshold, threshold: threshold, keys: append([]*SignedKey{}, keys...)}
}

// NewUnset returns an unset node with a fresh identifier.
func NewUnset() *SignedKey {
	return &SignedKey{UUID: newUUID()}
}

// WithDescription sets the description and returns sk.
func (sk *SignedKey) WithDescription(description string) *SignedKey {
	sk.Description = description
	return sk
}

func (sk *SignedKey) Type() KeyType { return sk.typ }

// PublicKey returns the public key of a raw-key leaf, or nil.
func (sk *SignedKey) PublicKey() []byte { return sk.publicKey }

// Signature returns the signature of a raw-key leaf, or nil when unsigned.
// Contract leaves and composites always return nil.
func (sk *SignedKey) Signature() []byte { return sk.signature }

// Signed reports whether a raw-key leaf holds a signature.
func (sk *SignedKey) Signed() bool { return len(sk.signature) > 0 }

// ContractID returns the contract of a contract-reference leaf.
func (sk *SignedKey) ContractID() (ContractID, bool) {
	return sk.contract, sk.typ == TypeContract
}

// ContractSignature is the signature a contract leaf contributes: always empty.
func (sk *SignedKey) ContractSignature() []byte { return []byte{} }

// Threshold returns the minimum number of signing children of a threshold group.
func (sk *SignedKey) Threshold() uint32 { return sk.threshold }

// Keys returns the children of a key list or threshold group.
// The slice is a copy; the children are shared.
func (sk *SignedKey) Keys() []*SignedKey {
	if sk.keys == nil {
		return nil
	}
	return append([]*SignedKey{}, sk.keys...)
}

// Clone returns a deep copy of the tree, identifiers included.
// Lookup results are not copied.
func (sk *SignedKey) Clone() *SignedKey {
	if sk == nil {
		return nil
	}
	out := &SignedKey{
		UUID:        sk.UUID,
		Description: sk.Description,
		typ:         sk.typ,
		publicKey:   cloneBytes(sk.publicKey),
		signature:   cloneBytes(sk.signature),
		contract:    sk.contract,
		threshold:   sk.threshold,
	}
	if sk.keys != nil {
		out.keys = make([]*SignedKey, len(sk.keys))
		for i, k := range sk.keys {
			out.keys[i] = k.Clone()
		}
	}
	return out
}

// Equal reports whether two trees have the same identifiers, descriptions,
// variants, keys, signatures and shape. Lookup results are ignored.
func (sk *SignedKey) Equal(other *SignedKey) bool {
	if sk == nil || other == nil {
		return sk == other
	}
	if sk.UUID != other.UUID || sk.Description != other.Description || sk.typ != other.typ {
		return false
	}
	switch sk.typ {
	case TypeNotSet:
		return true
	case TypeED25519, TypeRSA3072, TypeECDSA384:
		return bytes.Equal(sk.publicKey, other.publicKey) && bytes.Equal(sk.signature, other.signature)
	case TypeContract:
		return sk.contract == other.contract
	case TypeKeyList, TypeThreshold:
		if sk.threshold != other.threshold || len(sk.keys) != len(other.keys) {
			return false
		}
		for i := range sk.keys {
			if !sk.keys[i].Equal(other.keys[i]) {
				return false
			}
		}
		return true
	default:
		panic(unhandled(sk.typ))
	}
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte{}, b...)
}
