package keys

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/cloudflare/circl/sign/ed25519"
	"golang.org/x/crypto/sha3"

	"xdao.co/keysig/keysig"
)

// Signer produces the signature a raw-key leaf of Type with PublicKey expects.
type Signer interface {
	Type() keysig.KeyType
	PublicKey() []byte
	Sign(message []byte) ([]byte, error)
}

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha384":
		s := sha512.Sum384(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	case "sha3-384":
		s := sha3.Sum384(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}

// Ed25519Signer signs the message itself, without pre-hashing.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

func NewEd25519Signer(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Ed25519Signer{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *Ed25519Signer) Type() keysig.KeyType { return keysig.TypeED25519 }

func (s *Ed25519Signer) PublicKey() []byte {
	return []byte(s.priv.Public().(ed25519.PublicKey))
}

func (s *Ed25519Signer) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, message), nil
}

// ECDSA384Signer signs sha3-384(message) on P-384 and returns an ASN.1
// signature. Its public key is the uncompressed curve point.
type ECDSA384Signer struct {
	priv *ecdsa.PrivateKey
	rand io.Reader
}

func GenerateECDSA384Signer(r io.Reader) (*ECDSA384Signer, error) {
	if r == nil {
		r = rand.Reader
	}
	priv, err := ecdsa.GenerateKey(elliptic.P384(), r)
	if err != nil {
		return nil, err
	}
	return &ECDSA384Signer{priv: priv, rand: r}, nil
}

func (s *ECDSA384Signer) Type() keysig.KeyType { return keysig.TypeECDSA384 }

func (s *ECDSA384Signer) PublicKey() []byte {
	pub, err := s.priv.PublicKey.ECDH()
	if err != nil {
		return nil
	}
	return pub.Bytes()
}

func (s *ECDSA384Signer) Sign(message []byte) ([]byte, error) {
	digest, err := digestFor("sha3-384", message)
	if err != nil {
		return nil, err
	}
	return ecdsa.SignASN1(s.rand, s.priv, digest)
}

// RSA3072Signer signs sha384(message) with PKCS #1 v1.5. Its public key is
// the PKCS #1 DER encoding.
type RSA3072Signer struct {
	priv *rsa.PrivateKey
}

func GenerateRSA3072Signer(r io.Reader) (*RSA3072Signer, error) {
	if r == nil {
		r = rand.Reader
	}
	priv, err := rsa.GenerateKey(r, 3072)
	if err != nil {
		return nil, err
	}
	return &RSA3072Signer{priv: priv}, nil
}

func (s *RSA3072Signer) Type() keysig.KeyType { return keysig.TypeRSA3072 }

func (s *RSA3072Signer) PublicKey() []byte {
	return x509.MarshalPKCS1PublicKey(&s.priv.PublicKey)
}

func (s *RSA3072Signer) Sign(message []byte) ([]byte, error) {
	digest, err := digestFor("sha384", message)
	if err != nil {
		return nil, err
	}
	return rsa.SignPKCS1v15(nil, s.priv, crypto.SHA384, digest)
}

// parseP384 accepts an uncompressed P-384 point, 0x04 || X || Y.
func parseP384(b []byte) (*ecdsa.PublicKey, error) {
	point, err := ecdh.P384().NewPublicKey(b)
	if err != nil {
		return nil, fmt.Errorf("invalid P-384 public key: %w", err)
	}
	raw := point.Bytes()
	size := (len(raw) - 1) / 2
	return &ecdsa.PublicKey{
		Curve: elliptic.P384(),
		X:     new(big.Int).SetBytes(raw[1 : 1+size]),
		Y:     new(big.Int).SetBytes(raw[1+size:]),
	}, nil
}

var errUnverifiable = errors.New("keys: key type cannot be verified")

// Verify checks signature against a raw public key of type typ, using the
// same conventions as the signers above.
func Verify(typ keysig.KeyType, publicKey, message, signature []byte) (bool, error) {
	switch typ {
	case keysig.TypeED25519:
		if len(publicKey) != ed25519.PublicKeySize {
			return false, fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(publicKey))
		}
		return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature), nil
	case keysig.TypeECDSA384:
		pub, err := parseP384(publicKey)
		if err != nil {
			return false, err
		}
		digest, err := digestFor("sha3-384", message)
		if err != nil {
			return false, err
		}
		return ecdsa.VerifyASN1(pub, digest, signature), nil
	case keysig.TypeRSA3072:
		pub, err := x509.ParsePKCS1PublicKey(publicKey)
		if err != nil {
			return false, err
		}
		digest, err := digestFor("sha384", message)
		if err != nil {
			return false, err
		}
		return rsa.VerifyPKCS1v15(pub, crypto.SHA384, digest, signature) == nil, nil
	default:
		return false, fmt.Errorf("%w: %s", errUnverifiable, typ)
	}
}
