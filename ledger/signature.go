package ledger

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// SignatureCase names the populated member of the Signature oneof.
type SignatureCase int

const (
	SignatureCaseNotSet SignatureCase = iota
	SignatureCaseContract
	SignatureCaseEd25519
	SignatureCaseRSA3072
	SignatureCaseECDSA384
	SignatureCaseThreshold
	SignatureCaseList
	SignatureCaseUnknown
)

func (c SignatureCase) String() string {
	switch c {
	case SignatureCaseNotSet:
		return "SIGNATURE_NOT_SET"
	case SignatureCaseContract:
		return "CONTRACT"
	case SignatureCaseEd25519:
		return "ED25519"
	case SignatureCaseRSA3072:
		return "RSA_3072"
	case SignatureCaseECDSA384:
		return "ECDSA_384"
	case SignatureCaseThreshold:
		return "THRESHOLDSIGNATURE"
	case SignatureCaseList:
		return "SIGNATURELIST"
	case SignatureCaseUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("SignatureCase:%d", int(c))
	}
}

const (
	sigContract  protowire.Number = 1
	sigEd25519   protowire.Number = 2
	sigRSA3072   protowire.Number = 3
	sigECDSA384  protowire.Number = 4
	sigThreshold protowire.Number = 5
	sigList      protowire.Number = 6

	thresholdSignatureSigs protowire.Number = 2
	signatureListSigs      protowire.Number = 2
)

// Signature mirrors Key: a primitive signature, the (always empty) contract
// signature, or a composite matching a ThresholdKey or KeyList.
type Signature struct {
	Case         SignatureCase
	Raw          []byte
	Threshold    *ThresholdSignature
	List         *SignatureList
	UnknownField protowire.Number
}

// ThresholdSignature holds one signature slot per key of a ThresholdKey.
type ThresholdSignature struct {
	Sigs *SignatureList
}

// SignatureList holds one signature slot per key of a KeyList.
type SignatureList struct {
	Sigs []*Signature
}

func (s *Signature) Marshal() ([]byte, error) { return s.appendTo(nil) }

func (s *Signature) Unmarshal(b []byte) error { return s.unmarshal(b, 0) }

func (s *Signature) appendTo(b []byte) ([]byte, error) {
	if s == nil {
		return b, nil
	}
	switch s.Case {
	case SignatureCaseNotSet:
		return b, nil
	case SignatureCaseContract:
		return appendBytesField(b, sigContract, s.Raw), nil
	case SignatureCaseEd25519:
		return appendBytesField(b, sigEd25519, s.Raw), nil
	case SignatureCaseRSA3072:
		return appendBytesField(b, sigRSA3072, s.Raw), nil
	case SignatureCaseECDSA384:
		return appendBytesField(b, sigECDSA384, s.Raw), nil
	case SignatureCaseThreshold:
		var inner []byte
		if s.Threshold != nil && s.Threshold.Sigs != nil {
			list, err := s.Threshold.Sigs.appendTo(nil)
			if err != nil {
				return nil, err
			}
			inner = appendBytesField(inner, thresholdSignatureSigs, list)
		}
		return appendBytesField(b, sigThreshold, inner), nil
	case SignatureCaseList:
		inner, err := s.List.appendTo(nil)
		if err != nil {
			return nil, err
		}
		return appendBytesField(b, sigList, inner), nil
	default:
		return nil, fmt.Errorf("ledger: cannot encode signature case %s", s.Case)
	}
}

func (s *Signature) unmarshal(b []byte, depth int) error {
	if depth > MaxDepth {
		return errDepth
	}
	*s = Signature{}
	return forEachField(b, func(f field) error {
		switch f.num {
		case sigContract, sigEd25519, sigRSA3072, sigECDSA384:
			if err := f.wantBytes(); err != nil {
				return err
			}
			c := SignatureCaseContract
			switch f.num {
			case sigEd25519:
				c = SignatureCaseEd25519
			case sigRSA3072:
				c = SignatureCaseRSA3072
			case sigECDSA384:
				c = SignatureCaseECDSA384
			}
			*s = Signature{Case: c, Raw: cloneBytes(f.bytes)}
		case sigThreshold:
			if err := f.wantBytes(); err != nil {
				return err
			}
			t := new(ThresholdSignature)
			if err := t.unmarshal(f.bytes, depth+1); err != nil {
				return err
			}
			*s = Signature{Case: SignatureCaseThreshold, Threshold: t}
		case sigList:
			if err := f.wantBytes(); err != nil {
				return err
			}
			l := new(SignatureList)
			if err := l.unmarshal(f.bytes, depth+1); err != nil {
				return err
			}
			*s = Signature{Case: SignatureCaseList, List: l}
		default:
			if s.Case == SignatureCaseNotSet {
				s.Case = SignatureCaseUnknown
				s.UnknownField = f.num
			}
		}
		return nil
	})
}

func (t *ThresholdSignature) unmarshal(b []byte, depth int) error {
	if depth > MaxDepth {
		return errDepth
	}
	*t = ThresholdSignature{}
	return forEachField(b, func(f field) error {
		if f.num != thresholdSignatureSigs {
			return nil
		}
		if err := f.wantBytes(); err != nil {
			return err
		}
		l := new(SignatureList)
		if err := l.unmarshal(f.bytes, depth+1); err != nil {
			return err
		}
		t.Sigs = l
		return nil
	})
}

func (l *SignatureList) appendTo(b []byte) ([]byte, error) {
	if l == nil {
		return b, nil
	}
	for _, s := range l.Sigs {
		inner, err := s.appendTo(nil)
		if err != nil {
			return nil, err
		}
		b = appendBytesField(b, signatureListSigs, inner)
	}
	return b, nil
}

func (l *SignatureList) unmarshal(b []byte, depth int) error {
	if depth > MaxDepth {
		return errDepth
	}
	*l = SignatureList{}
	return forEachField(b, func(f field) error {
		if f.num != signatureListSigs {
			return nil
		}
		if err := f.wantBytes(); err != nil {
			return err
		}
		s := new(Signature)
		if err := s.unmarshal(f.bytes, depth+1); err != nil {
			return err
		}
		l.Sigs = append(l.Sigs, s)
		return nil
	})
}
