// Package keys holds signing-ceremony helpers: signers for the three raw key
// types, deterministic role keys derived from a root seed, a small seed store,
// and functions that sign a keysig tree and check whether it is satisfied.
//
// Signers sign the message bytes handed to them; what those bytes are (a
// transaction body, a document digest) is the caller's business.
package keys
