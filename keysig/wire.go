package keysig

import (
	"fmt"

	"xdao.co/keysig/ledger"
)

// KeyProto converts the key tree to its wire form, ignoring signatures.
// An unset node anywhere in the tree fails with KindInvalidKeyState.
func (sk *SignedKey) KeyProto() (*ledger.Key, error) {
	return sk.keyProto("key")
}

func (sk *SignedKey) keyProto(path string) (*ledger.Key, error) {
	if sk == nil {
		return nil, newError(KindInvalidKeyState, "KeyProto", path+" is nil")
	}
	switch sk.typ {
	case TypeNotSet:
		return nil, newError(KindInvalidKeyState, "KeyProto", path+": key type not set")
	case TypeED25519:
		return &ledger.Key{Case: ledger.KeyCaseEd25519, Raw: sk.publicKey}, nil
	case TypeRSA3072:
		return &ledger.Key{Case: ledger.KeyCaseRSA3072, Raw: sk.publicKey}, nil
	case TypeECDSA384:
		return &ledger.Key{Case: ledger.KeyCaseECDSA384, Raw: sk.publicKey}, nil
	case TypeContract:
		return &ledger.Key{Case: ledger.KeyCaseContractID, ContractID: sk.contract.proto()}, nil
	case TypeKeyList, TypeThreshold:
		list := &ledger.KeyList{Keys: make([]*ledger.Key, len(sk.keys))}
		for i, k := range sk.keys {
			child, err := k.keyProto(fmt.Sprintf("%s.keys[%d]", path, i))
			if err != nil {
				return nil, err
			}
			list.Keys[i] = child
		}
		if sk.typ == TypeKeyList {
			return &ledger.Key{Case: ledger.KeyCaseList, List: list}, nil
		}
		return &ledger.Key{Case: ledger.KeyCaseThreshold, Threshold: &ledger.ThresholdKey{Threshold: sk.threshold, Keys: list}}, nil
	default:
		panic(unhandled(sk.typ))
	}
}

// SignatureProto converts the signature tree to its wire form. Unsigned
// leaves become empty Signature messages, contract leaves an empty contract
// signature. An unset node fails with KindInvalidKeyState.
func (sk *SignedKey) SignatureProto() (*ledger.Signature, error) {
	return sk.signatureProto("signature")
}

func (sk *SignedKey) signatureProto(path string) (*ledger.Signature, error) {
	if sk == nil {
		return nil, newError(KindInvalidKeyState, "SignatureProto", path+" is nil")
	}
	switch sk.typ {
	case TypeNotSet:
		return nil, newError(KindInvalidKeyState, "SignatureProto", path+": key type not set")
	case TypeED25519:
		return rawSignature(ledger.SignatureCaseEd25519, sk.signature), nil
	case TypeRSA3072:
		return rawSignature(ledger.SignatureCaseRSA3072, sk.signature), nil
	case TypeECDSA384:
		return rawSignature(ledger.SignatureCaseECDSA384, sk.signature), nil
	case TypeContract:
		return &ledger.Signature{Case: ledger.SignatureCaseContract, Raw: sk.ContractSignature()}, nil
	case TypeKeyList, TypeThreshold:
		list := &ledger.SignatureList{Sigs: make([]*ledger.Signature, len(sk.keys))}
		for i, k := range sk.keys {
			child, err := k.signatureProto(fmt.Sprintf("%s.sigs[%d]", path, i))
			if err != nil {
				return nil, err
			}
			list.Sigs[i] = child
		}
		if sk.typ == TypeKeyList {
			return &ledger.Signature{Case: ledger.SignatureCaseList, List: list}, nil
		}
		return &ledger.Signature{Case: ledger.SignatureCaseThreshold, Threshold: &ledger.ThresholdSignature{Sigs: list}}, nil
	default:
		panic(unhandled(sk.typ))
	}
}

func rawSignature(c ledger.SignatureCase, sig []byte) *ledger.Signature {
	if len(sig) == 0 {
		return &ledger.Signature{}
	}
	return &ledger.Signature{Case: c, Raw: sig}
}

// MarshalKey returns the wire encoding of the key tree.
func (sk *SignedKey) MarshalKey() ([]byte, error) {
	k, err := sk.KeyProto()
	if err != nil {
		return nil, err
	}
	b, err := k.Marshal()
	if err != nil {
		return nil, wrapError(KindMalformed, "MarshalKey", "encode", err)
	}
	logger.Trace().Str("type", sk.typ.String()).Int("bytes", len(b)).Msg("marshal key")
	return b, nil
}

// MarshalSignature returns the wire encoding of the signature tree.
func (sk *SignedKey) MarshalSignature() ([]byte, error) {
	s, err := sk.SignatureProto()
	if err != nil {
		return nil, err
	}
	b, err := s.Marshal()
	if err != nil {
		return nil, wrapError(KindMalformed, "MarshalSignature", "encode", err)
	}
	return b, nil
}

// FromProto builds a SignedKey from a wire key and its signature. The two
// trees must have the same shape; a mismatch fails with KindShapeMismatch.
// A nil sig yields an unsigned tree. Every node gets a fresh UUID.
func FromProto(key *ledger.Key, sig *ledger.Signature) (*SignedKey, error) {
	return fromProto(key, sig, "key")
}

// UnmarshalWire decodes a wire key and, when sig is non-empty, its signature.
func UnmarshalWire(key, sig []byte) (*SignedKey, error) {
	var k ledger.Key
	if err := k.Unmarshal(key); err != nil {
		return nil, wrapError(KindMalformed, "UnmarshalWire", "key", err)
	}
	var s *ledger.Signature
	if len(sig) > 0 {
		s = new(ledger.Signature)
		if err := s.Unmarshal(sig); err != nil {
			return nil, wrapError(KindMalformed, "UnmarshalWire", "signature", err)
		}
	}
	sk, err := FromProto(&k, s)
	if err != nil {
		return nil, err
	}
	logger.Trace().Str("type", sk.typ.String()).Msg("unmarshal wire")
	return sk, nil
}

func fromProto(key *ledger.Key, sig *ledger.Signature, path string) (*SignedKey, error) {
	if key == nil {
		return nil, newError(KindMissingKeyData, "FromProto", path+" is nil")
	}
	switch key.Case {
	case ledger.KeyCaseNotSet:
		return nil, newError(KindMissingKeyData, "FromProto", path+": key not set")
	case ledger.KeyCaseUnknown:
		return nil, newError(KindUnsupportedKeyVariant, "FromProto", fmt.Sprintf("%s: unsupported key field %d", path, key.UnknownField))
	case ledger.KeyCaseEd25519:
		return rawFromProto(TypeED25519, ledger.SignatureCaseEd25519, key.Raw, sig, path)
	case ledger.KeyCaseRSA3072:
		return rawFromProto(TypeRSA3072, ledger.SignatureCaseRSA3072, key.Raw, sig, path)
	case ledger.KeyCaseECDSA384:
		return rawFromProto(TypeECDSA384, ledger.SignatureCaseECDSA384, key.Raw, sig, path)
	case ledger.KeyCaseContractID:
		if key.ContractID == nil {
			return nil, newError(KindMissingKeyData, "FromProto", path+": contract id not set")
		}
		if sig != nil && sig.Case != ledger.SignatureCaseNotSet && sig.Case != ledger.SignatureCaseContract {
			return nil, shapeMismatch(path, "CONTRACT", sig.Case)
		}
		c := key.ContractID
		return NewContract(ContractID{ShardNum: c.ShardNum, RealmNum: c.RealmNum, ContractNum: c.ContractNum}), nil
	case ledger.KeyCaseList:
		var keys []*ledger.Key
		if key.List != nil {
			keys = key.List.Keys
		}
		var sigs []*ledger.Signature
		if sig != nil {
			if sig.Case != ledger.SignatureCaseList {
				return nil, shapeMismatch(path, "KEYLIST", sig.Case)
			}
			if sig.List != nil {
				sigs = sig.List.Sigs
			}
		}
		children, err := childrenFromProto(keys, sigs, sig != nil, path)
		if err != nil {
			return nil, err
		}
		return NewList(children...), nil
	case ledger.KeyCaseThreshold:
		var threshold uint32
		var keys []*ledger.Key
		if t := key.Threshold; t != nil {
			threshold = t.Threshold
			if t.Keys != nil {
				keys = t.Keys.Keys
			}
		}
		var sigs []*ledger.Signature
		if sig != nil {
			if sig.Case != ledger.SignatureCaseThreshold {
				return nil, shapeMismatch(path, "THRESHOLD", sig.Case)
			}
			if sig.Threshold != nil && sig.Threshold.Sigs != nil {
				sigs = sig.Threshold.Sigs.Sigs
			}
		}
		children, err := childrenFromProto(keys, sigs, sig != nil, path)
		if err != nil {
			return nil, err
		}
		return NewThreshold(threshold, children...), nil
	default:
		return nil, newError(KindUnsupportedKeyVariant, "FromProto", path+": unsupported key case "+key.Case.String())
	}
}

func rawFromProto(typ KeyType, want ledger.SignatureCase, publicKey []byte, sig *ledger.Signature, path string) (*SignedKey, error) {
	var signature []byte
	if sig != nil {
		switch sig.Case {
		case ledger.SignatureCaseNotSet:
		case want:
			signature = sig.Raw
		default:
			return nil, shapeMismatch(path, typ.String(), sig.Case)
		}
	}
	return New(typ, publicKey, signature)
}

func childrenFromProto(keys []*ledger.Key, sigs []*ledger.Signature, signed bool, path string) ([]*SignedKey, error) {
	if signed && len(keys) != len(sigs) {
		return nil, newError(KindShapeMismatch, "FromProto", fmt.Sprintf("%s: %d keys but %d signatures", path, len(keys), len(sigs)))
	}
	children := make([]*SignedKey, len(keys))
	for i, k := range keys {
		var s *ledger.Signature
		if signed {
			s = sigs[i]
			if s == nil {
				s = &ledger.Signature{}
			}
		}
		child, err := fromProto(k, s, fmt.Sprintf("%s.keys[%d]", path, i))
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	return children, nil
}

func shapeMismatch(path, keyType string, got ledger.SignatureCase) error {
	return newError(KindShapeMismatch, "FromProto", fmt.Sprintf("%s: %s key paired with %s signature", path, keyType, got))
}
