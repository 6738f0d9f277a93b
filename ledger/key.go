package ledger

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// KeyCase names the populated member of the Key oneof.
type KeyCase int

const (
	KeyCaseNotSet KeyCase = iota
	KeyCaseContractID
	KeyCaseEd25519
	KeyCaseRSA3072
	KeyCaseECDSA384
	KeyCaseThreshold
	KeyCaseList
	// KeyCaseUnknown marks a Key whose only populated field is not part of
	// this schema. Key.UnknownField holds its number.
	KeyCaseUnknown
)

func (c KeyCase) String() string {
	switch c {
	case KeyCaseNotSet:
		return "KEY_NOT_SET"
	case KeyCaseContractID:
		return "CONTRACTID"
	case KeyCaseEd25519:
		return "ED25519"
	case KeyCaseRSA3072:
		return "RSA_3072"
	case KeyCaseECDSA384:
		return "ECDSA_384"
	case KeyCaseThreshold:
		return "THRESHOLDKEY"
	case KeyCaseList:
		return "KEYLIST"
	case KeyCaseUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("KeyCase:%d", int(c))
	}
}

const (
	keyContractID protowire.Number = 1
	keyEd25519    protowire.Number = 2
	keyRSA3072    protowire.Number = 3
	keyECDSA384   protowire.Number = 4
	keyThreshold  protowire.Number = 5
	keyList       protowire.Number = 6

	thresholdKeyThreshold protowire.Number = 1
	thresholdKeyKeys      protowire.Number = 2

	keyListKeys protowire.Number = 1
)

// Key is a primitive key, a contract reference, or a composite of keys.
// Exactly one of Raw, ContractID, Threshold and List is meaningful, selected by Case.
type Key struct {
	Case         KeyCase
	Raw          []byte
	ContractID   *ContractID
	Threshold    *ThresholdKey
	List         *KeyList
	UnknownField protowire.Number
}

// ThresholdKey requires Threshold of the keys in Keys to sign.
type ThresholdKey struct {
	Threshold uint32
	Keys      *KeyList
}

// KeyList is an ordered list of keys that must all sign.
type KeyList struct {
	Keys []*Key
}

func (k *Key) Marshal() ([]byte, error) { return k.appendTo(nil) }

func (k *Key) Unmarshal(b []byte) error { return k.unmarshal(b, 0) }

func (k *Key) appendTo(b []byte) ([]byte, error) {
	if k == nil {
		return b, nil
	}
	switch k.Case {
	case KeyCaseNotSet:
		return b, nil
	case KeyCaseContractID:
		return appendBytesField(b, keyContractID, k.ContractID.marshal()), nil
	case KeyCaseEd25519:
		return appendBytesField(b, keyEd25519, k.Raw), nil
	case KeyCaseRSA3072:
		return appendBytesField(b, keyRSA3072, k.Raw), nil
	case KeyCaseECDSA384:
		return appendBytesField(b, keyECDSA384, k.Raw), nil
	case KeyCaseThreshold:
		inner, err := k.Threshold.appendTo(nil)
		if err != nil {
			return nil, err
		}
		return appendBytesField(b, keyThreshold, inner), nil
	case KeyCaseList:
		inner, err := k.List.appendTo(nil)
		if err != nil {
			return nil, err
		}
		return appendBytesField(b, keyList, inner), nil
	default:
		return nil, fmt.Errorf("ledger: cannot encode key case %s", k.Case)
	}
}

func (k *Key) unmarshal(b []byte, depth int) error {
	if depth > MaxDepth {
		return errDepth
	}
	*k = Key{}
	return forEachField(b, func(f field) error {
		switch f.num {
		case keyContractID:
			if err := f.wantBytes(); err != nil {
				return err
			}
			id := new(ContractID)
			if err := id.unmarshal(f.bytes); err != nil {
				return err
			}
			*k = Key{Case: KeyCaseContractID, ContractID: id}
		case keyEd25519, keyRSA3072, keyECDSA384:
			if err := f.wantBytes(); err != nil {
				return err
			}
			c := KeyCaseEd25519
			switch f.num {
			case keyRSA3072:
				c = KeyCaseRSA3072
			case keyECDSA384:
				c = KeyCaseECDSA384
			}
			*k = Key{Case: c, Raw: cloneBytes(f.bytes)}
		case keyThreshold:
			if err := f.wantBytes(); err != nil {
				return err
			}
			t := new(ThresholdKey)
			if err := t.unmarshal(f.bytes, depth+1); err != nil {
				return err
			}
			*k = Key{Case: KeyCaseThreshold, Threshold: t}
		case keyList:
			if err := f.wantBytes(); err != nil {
				return err
			}
			l := new(KeyList)
			if err := l.unmarshal(f.bytes, depth+1); err != nil {
				return err
			}
			*k = Key{Case: KeyCaseList, List: l}
		default:
			if k.Case == KeyCaseNotSet {
				k.Case = KeyCaseUnknown
				k.UnknownField = f.num
			}
		}
		return nil
	})
}

func (t *ThresholdKey) appendTo(b []byte) ([]byte, error) {
	if t == nil {
		return b, nil
	}
	b = appendVarintField(b, thresholdKeyThreshold, uint64(t.Threshold))
	if t.Keys != nil {
		inner, err := t.Keys.appendTo(nil)
		if err != nil {
			return nil, err
		}
		b = appendBytesField(b, thresholdKeyKeys, inner)
	}
	return b, nil
}

func (t *ThresholdKey) unmarshal(b []byte, depth int) error {
	if depth > MaxDepth {
		return errDepth
	}
	*t = ThresholdKey{}
	return forEachField(b, func(f field) error {
		switch f.num {
		case thresholdKeyThreshold:
			if err := f.wantVarint(); err != nil {
				return err
			}
			t.Threshold = uint32(f.varint)
		case thresholdKeyKeys:
			if err := f.wantBytes(); err != nil {
				return err
			}
			l := new(KeyList)
			if err := l.unmarshal(f.bytes, depth+1); err != nil {
				return err
			}
			t.Keys = l
		}
		return nil
	})
}

func (l *KeyList) appendTo(b []byte) ([]byte, error) {
	if l == nil {
		return b, nil
	}
	for _, k := range l.Keys {
		inner, err := k.appendTo(nil)
		if err != nil {
			return nil, err
		}
		b = appendBytesField(b, keyListKeys, inner)
	}
	return b, nil
}

func (l *KeyList) unmarshal(b []byte, depth int) error {
	if depth > MaxDepth {
		return errDepth
	}
	*l = KeyList{}
	return forEachField(b, func(f field) error {
		if f.num != keyListKeys {
			return nil
		}
		if err := f.wantBytes(); err != nil {
			return err
		}
		k := new(Key)
		if err := k.unmarshal(f.bytes, depth+1); err != nil {
			return err
		}
		l.Keys = append(l.Keys, k)
		return nil
	})
}
