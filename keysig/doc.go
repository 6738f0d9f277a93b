// Package keysig manages ledger keys together with their signatures.
//
// A SignedKey is a tree: leaves are raw public keys (ED25519, RSA3072,
// ECDSA384) or contract references, and inner nodes are key lists or M-of-N
// threshold groups. Each leaf carries its own signature slot, so the signature
// tree always has the same shape as the key tree.
//
// Signatures are assigned in place by four matching operations:
//
//   - SetSignatureForKey writes into empty slots whose public key matches.
//   - SetSignatureForUUID overwrites the slot of the leaf with a given identifier.
//   - UpdateSignatureForKey overwrites only slots that are already signed.
//   - AppendKeyUUIDs lists the identifiers of every leaf holding a public key.
//
// Trees are converted to and from the ledger wire form (see package ledger)
// and to and from a JSON document form used for local storage and interchange.
//
// A SignedKey is not safe for concurrent mutation; callers serialize access.
package keysig
