package keys

import (
	"fmt"

	"xdao.co/keysig/keysig"
)

// SignTree signs message with each signer and writes the signature into every
// unsigned leaf of tree whose public key matches the signer's. Existing
// signatures are kept. It returns the number of signers that matched a leaf.
func SignTree(tree *keysig.SignedKey, message []byte, signers ...Signer) (int, error) {
	matched := 0
	for _, s := range signers {
		sig, err := s.Sign(message)
		if err != nil {
			return matched, fmt.Errorf("keys: sign with %s key: %w", s.Type(), err)
		}
		if tree.SetSignatureForKey(s.PublicKey(), sig, false) {
			matched++
		}
	}
	return matched, nil
}

// Resign replaces the signatures already present for each signer's public
// key, for example after the message changed. Unsigned leaves stay unsigned.
func Resign(tree *keysig.SignedKey, message []byte, signers ...Signer) (int, error) {
	matched := 0
	for _, s := range signers {
		sig, err := s.Sign(message)
		if err != nil {
			return matched, fmt.Errorf("keys: sign with %s key: %w", s.Type(), err)
		}
		if tree.UpdateSignatureForKey(s.PublicKey(), sig) {
			matched++
		}
	}
	return matched, nil
}

// Satisfied reports whether the signatures in tree authorize message: a raw
// leaf needs a valid signature, a key list needs every child, and a
// threshold group needs at least M children. Contract leaves are never
// satisfied offline, and neither is an unset node. A child of a threshold
// group that cannot be verified counts as unsatisfied; its error is returned
// only when the group falls short of M.
func Satisfied(tree *keysig.SignedKey, message []byte) (bool, error) {
	if tree == nil {
		return false, nil
	}
	switch t := tree.Type(); {
	case t.IsRaw():
		if !tree.Signed() {
			return false, nil
		}
		return Verify(t, tree.PublicKey(), message, tree.Signature())
	case t == keysig.TypeKeyList:
		for _, k := range tree.Keys() {
			ok, err := Satisfied(k, message)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case t == keysig.TypeThreshold:
		var n uint32
		var firstErr error
		for _, k := range tree.Keys() {
			ok, err := Satisfied(k, message)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if ok {
				n++
			}
		}
		if n >= tree.Threshold() {
			return true, nil
		}
		return false, firstErr
	default:
		return false, nil
	}
}
