package keysig

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Document field names used in error messages.
const (
	docType      = "type"
	docKey       = "key"
	docKeys      = "keys"
	docSignature = "signature"
)

type documentOut struct {
	Description   string          `json:"description"`
	UUID          string          `json:"uuid"`
	Type          string          `json:"type"`
	SignatureType string          `json:"signatureType"`
	Signature     string          `json:"signature,omitempty"`
	Key           json.RawMessage `json:"key,omitempty"`
	Keys          *[]*SignedKey   `json:"keys,omitempty"`
}

type documentIn struct {
	Description *string            `json:"description"`
	UUID        *string            `json:"uuid"`
	Type        *string            `json:"type"`
	Signature   *string            `json:"signature"`
	Key         json.RawMessage    `json:"key"`
	Keys        *[]json.RawMessage `json:"keys"`
}

// thresholdDocument is the "key" value of a THRESHOLD node.
type thresholdDocument struct {
	Threshold uint32            `json:"threshold"`
	Keys      []json.RawMessage `json:"keys"`
}

// MarshalJSON encodes sk as a key/signature document:
//
//	{"description":"","uuid":"…","type":"ED25519","signatureType":"ED25519","signature":"<base64>","key":"<base64>"}
//
// CONTRACT nodes carry a ContractID object under "key", KEYLIST nodes an array
// of child documents under "keys", and THRESHOLD nodes an object
// {"threshold":M,"keys":[…]} under "key". "signature" is omitted when unsigned.
func (sk *SignedKey) MarshalJSON() ([]byte, error) {
	doc := documentOut{
		Description:   sk.Description,
		UUID:          sk.UUID,
		Type:          sk.typ.String(),
		SignatureType: sk.typ.String(),
	}
	switch sk.typ {
	case TypeNotSet:
	case TypeED25519, TypeRSA3072, TypeECDSA384:
		key, err := json.Marshal(base64.StdEncoding.EncodeToString(sk.publicKey))
		if err != nil {
			return nil, err
		}
		doc.Key = key
		if len(sk.signature) > 0 {
			doc.Signature = base64.StdEncoding.EncodeToString(sk.signature)
		}
	case TypeContract:
		key, err := json.Marshal(sk.contract)
		if err != nil {
			return nil, err
		}
		doc.Key = key
	case TypeKeyList:
		if err := sk.checkChildren("MarshalJSON"); err != nil {
			return nil, err
		}
		keys := append([]*SignedKey{}, sk.keys...)
		doc.Keys = &keys
	case TypeThreshold:
		if err := sk.checkChildren("MarshalJSON"); err != nil {
			return nil, err
		}
		t := thresholdDocument{Threshold: sk.threshold, Keys: make([]json.RawMessage, len(sk.keys))}
		for i, k := range sk.keys {
			b, err := k.MarshalJSON()
			if err != nil {
				return nil, err
			}
			t.Keys[i] = b
		}
		key, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		doc.Key = key
	default:
		panic(unhandled(sk.typ))
	}
	return json.Marshal(doc)
}

func (sk *SignedKey) checkChildren(op string) error {
	for i, k := range sk.keys {
		if k == nil {
			return newError(KindInvalidKeyState, op, fmt.Sprintf("keys[%d] is nil", i))
		}
	}
	return nil
}

// UnmarshalJSON replaces sk with the tree described by a key/signature document.
//
// A missing "description" decodes as empty and a missing "uuid" as a fresh
// identifier. A missing "type" fails with KindMissingKeyType and an unknown
// one with KindUnsupportedKeyVariant. "signatureType" is ignored.
func (sk *SignedKey) UnmarshalJSON(b []byte) error {
	out, err := parseDocument(b, "document")
	if err != nil {
		return err
	}
	*sk = *out
	return nil
}

// ParseDocument decodes a key/signature document.
func ParseDocument(b []byte) (*SignedKey, error) {
	sk, err := parseDocument(b, "document")
	if err != nil {
		return nil, err
	}
	logger.Trace().Str("type", sk.typ.String()).Str("uuid", sk.UUID).Msg("parse document")
	return sk, nil
}

// DocumentJSON encodes sk as a key/signature document.
func (sk *SignedKey) DocumentJSON() ([]byte, error) {
	return json.Marshal(sk)
}

// DocumentIndent is DocumentJSON with indentation, for display.
func (sk *SignedKey) DocumentIndent() ([]byte, error) {
	b, err := sk.DocumentJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func parseDocument(b []byte, path string) (*SignedKey, error) {
	const op = "ParseDocument"
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil, newError(KindMissingKeyData, op, path+" is null")
	}
	var doc documentIn
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, wrapError(KindMalformed, op, path, err)
	}
	if doc.Type == nil {
		return nil, newError(KindMissingKeyType, op, path+": missing "+docType)
	}
	typ, ok := KeyTypeByName(*doc.Type)
	if !ok {
		return nil, newError(KindUnsupportedKeyVariant, op, fmt.Sprintf("%s: unsupported %s %q", path, docType, *doc.Type))
	}

	sk := &SignedKey{typ: typ}
	if doc.Description != nil {
		sk.Description = *doc.Description
	}
	if doc.UUID != nil {
		sk.UUID = *doc.UUID
	} else {
		sk.UUID = newUUID()
	}

	switch typ {
	case TypeNotSet:
	case TypeED25519, TypeRSA3072, TypeECDSA384:
		key, err := decodeBase64Field(doc.Key, path, docKey)
		if err != nil {
			return nil, err
		}
		sk.publicKey = cloneBytes(key)
		if doc.Signature != nil {
			sig, err := base64.StdEncoding.DecodeString(*doc.Signature)
			if err != nil {
				return nil, wrapError(KindMalformed, op, path+": "+docSignature, err)
			}
			sk.signature = cloneBytes(sig)
		}
	case TypeContract:
		if isAbsent(doc.Key) {
			return nil, newError(KindMissingKeyData, op, path+": missing "+docKey)
		}
		if err := json.Unmarshal(doc.Key, &sk.contract); err != nil {
			return nil, wrapError(KindMalformed, op, path+": "+docKey, err)
		}
	case TypeKeyList:
		if doc.Keys == nil {
			return nil, newError(KindMissingKeyData, op, path+": missing "+docKeys)
		}
		children, err := parseChildren(*doc.Keys, path)
		if err != nil {
			return nil, err
		}
		sk.keys = children
	case TypeThreshold:
		if isAbsent(doc.Key) {
			return nil, newError(KindMissingKeyData, op, path+": missing "+docKey)
		}
		var t thresholdDocument
		if err := json.Unmarshal(doc.Key, &t); err != nil {
			return nil, wrapError(KindMalformed, op, path+": "+docKey, err)
		}
		children, err := parseChildren(t.Keys, path)
		if err != nil {
			return nil, err
		}
		sk.threshold = t.Threshold
		sk.keys = children
	default:
		panic(unhandled(typ))
	}
	return sk, nil
}

func parseChildren(raw []json.RawMessage, path string) ([]*SignedKey, error) {
	children := make([]*SignedKey, len(raw))
	for i, r := range raw {
		child, err := parseDocument(r, fmt.Sprintf("%s.keys[%d]", path, i))
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	return children, nil
}

func decodeBase64Field(raw json.RawMessage, path, name string) ([]byte, error) {
	const op = "ParseDocument"
	if isAbsent(raw) {
		return nil, newError(KindMissingKeyData, op, path+": missing "+name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, wrapError(KindMalformed, op, path+": "+name, err)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, wrapError(KindMalformed, op, path+": "+name, err)
	}
	return b, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
