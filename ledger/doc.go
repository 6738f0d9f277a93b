// Package ledger implements the subset of the ledger node wire schema used by
// key/signature handling and the find-by-key lookup.
//
// Messages are encoded and decoded by hand with protowire so the module does not
// need a protoc toolchain. Field numbers are fixed by the external schema and
// must not change.
//
// Decoding follows protobuf rules: unknown fields are skipped, and when several
// members of a oneof are present the last one on the wire wins. A Key or
// Signature that carries only unknown fields reports the first unknown field
// number through its Case so callers can reject future variants explicitly.
package ledger
