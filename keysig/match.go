package keysig

import (
	"bytes"
	"fmt"
)

// SetSignatureForKey writes signature into every unsigned raw-key leaf whose
// public key equals publicKey, visiting the tree depth first with children in
// order. Leaves that already hold a signature are never overwritten.
//
// With stopAtFirst, only the first such leaf in the whole tree is written.
// It reports whether any leaf was written. An empty signature writes nothing.
func (sk *SignedKey) SetSignatureForKey(publicKey, signature []byte, stopAtFirst bool) bool {
	hit := sk.setForKey(publicKey, signature, stopAtFirst)
	logger.Trace().Hex("key", publicKey).Bool("stopAtFirst", stopAtFirst).Bool("hit", hit).Msg("set signature for key")
	return hit
}

func (sk *SignedKey) setForKey(publicKey, signature []byte, stopAtFirst bool) bool {
	if sk == nil || len(signature) == 0 {
		return false
	}
	switch sk.typ {
	case TypeED25519, TypeRSA3072, TypeECDSA384:
		if len(sk.signature) != 0 || !bytes.Equal(sk.publicKey, publicKey) {
			return false
		}
		sk.signature = cloneBytes(signature)
		return true
	case TypeKeyList, TypeThreshold:
		hit := false
		for _, k := range sk.keys {
			if k.setForKey(publicKey, signature, stopAtFirst) {
				if stopAtFirst {
					return true
				}
				hit = true
			}
		}
		return hit
	case TypeContract, TypeNotSet:
		return false
	default:
		panic(unhandled(sk.typ))
	}
}

// SetSignatureForKeys applies SetSignatureForKey to each pair of publicKeys
// and signatures in order. It reports whether any call wrote a leaf.
func (sk *SignedKey) SetSignatureForKeys(publicKeys, signatures [][]byte, stopAtFirst bool) (bool, error) {
	if len(publicKeys) != len(signatures) {
		return false, lengthMismatch("SetSignatureForKeys", len(publicKeys), len(signatures))
	}
	hit := false
	for i := range publicKeys {
		if sk.SetSignatureForKey(publicKeys[i], signatures[i], stopAtFirst) {
			hit = true
		}
	}
	return hit, nil
}

// SetSignatureForUUID overwrites the signature of the raw-key leaf whose UUID
// is id, whether or not it was already signed. Identifiers are unique, so the
// walk stops at the first match. It reports whether the leaf was found.
func (sk *SignedKey) SetSignatureForUUID(id string, signature []byte) bool {
	hit := sk.setForUUID(id, signature)
	logger.Trace().Str("uuid", id).Bool("hit", hit).Msg("set signature for uuid")
	return hit
}

func (sk *SignedKey) setForUUID(id string, signature []byte) bool {
	if sk == nil {
		return false
	}
	switch sk.typ {
	case TypeED25519, TypeRSA3072, TypeECDSA384:
		if sk.UUID != id {
			return false
		}
		sk.signature = cloneBytes(signature)
		return true
	case TypeKeyList, TypeThreshold:
		for _, k := range sk.keys {
			if k.setForUUID(id, signature) {
				return true
			}
		}
		return false
	case TypeContract, TypeNotSet:
		return false
	default:
		panic(unhandled(sk.typ))
	}
}

// SetSignatureForUUIDs applies SetSignatureForUUID to each pair of ids and
// signatures in order. It reports whether any leaf was found.
func (sk *SignedKey) SetSignatureForUUIDs(ids []string, signatures [][]byte) (bool, error) {
	if len(ids) != len(signatures) {
		return false, lengthMismatch("SetSignatureForUUIDs", len(ids), len(signatures))
	}
	hit := false
	for i := range ids {
		if sk.SetSignatureForUUID(ids[i], signatures[i]) {
			hit = true
		}
	}
	return hit, nil
}

// UpdateSignatureForKey replaces the signature of every already-signed
// raw-key leaf whose public key equals publicKey. Unsigned leaves are left
// alone, and contract leaves never match. It reports whether any leaf changed.
func (sk *SignedKey) UpdateSignatureForKey(publicKey, signature []byte) bool {
	hit := sk.updateForKey(publicKey, signature)
	logger.Trace().Hex("key", publicKey).Bool("hit", hit).Msg("update signature for key")
	return hit
}

func (sk *SignedKey) updateForKey(publicKey, signature []byte) bool {
	if sk == nil {
		return false
	}
	switch sk.typ {
	case TypeED25519, TypeRSA3072, TypeECDSA384:
		if len(sk.signature) == 0 || !bytes.Equal(sk.publicKey, publicKey) {
			return false
		}
		sk.signature = cloneBytes(signature)
		return true
	case TypeKeyList, TypeThreshold:
		hit := false
		for _, k := range sk.keys {
			if k.updateForKey(publicKey, signature) {
				hit = true
			}
		}
		return hit
	case TypeContract, TypeNotSet:
		return false
	default:
		panic(unhandled(sk.typ))
	}
}

// UpdateSignatureForKeys applies UpdateSignatureForKey to each pair of
// publicKeys and signatures in order. It reports whether any leaf changed.
func (sk *SignedKey) UpdateSignatureForKeys(publicKeys, signatures [][]byte) (bool, error) {
	if len(publicKeys) != len(signatures) {
		return false, lengthMismatch("UpdateSignatureForKeys", len(publicKeys), len(signatures))
	}
	hit := false
	for i := range publicKeys {
		if sk.UpdateSignatureForKey(publicKeys[i], signatures[i]) {
			hit = true
		}
	}
	return hit, nil
}

// AppendKeyUUIDs appends the identifier and description of every raw-key leaf
// whose public key equals publicKey, depth first, and returns the extended slice.
// Calling it over several trees with the same dst accumulates the results.
func (sk *SignedKey) AppendKeyUUIDs(dst []KeyUUID, publicKey []byte) []KeyUUID {
	if sk == nil {
		return dst
	}
	switch sk.typ {
	case TypeED25519, TypeRSA3072, TypeECDSA384:
		if bytes.Equal(sk.publicKey, publicKey) {
			dst = append(dst, KeyUUID{UUID: sk.UUID, Description: sk.Description})
		}
		return dst
	case TypeKeyList, TypeThreshold:
		for _, k := range sk.keys {
			dst = k.AppendKeyUUIDs(dst, publicKey)
		}
		return dst
	case TypeContract, TypeNotSet:
		return dst
	default:
		panic(unhandled(sk.typ))
	}
}

func lengthMismatch(op string, keys, signatures int) error {
	return newError(KindInvalidArgument, op, fmt.Sprintf("%d keys but %d signatures", keys, signatures))
}
