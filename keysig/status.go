package keysig

import "xdao.co/keysig/ledger"

// Status is the precheck outcome of the last lookup made through a SignedKey.
// A non-OK status is a normal result, not an error.
type Status uint8

const (
	StatusNotSet Status = iota
	StatusOK
	StatusDuplicate
	StatusInsufficientBalance
	StatusInsufficientFee
	StatusInvalidAccount
	StatusInvalidTransaction
	StatusBusy
	StatusNotSupported
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusNotSet:
		return "NOTSET"
	case StatusOK:
		return "OK"
	case StatusDuplicate:
		return "DUPLICATE"
	case StatusInsufficientBalance:
		return "INSUFFICIENT_BALANCE"
	case StatusInsufficientFee:
		return "INSUFFICIENT_FEE"
	case StatusInvalidAccount:
		return "INVALID_ACCOUNT"
	case StatusInvalidTransaction:
		return "INVALID_TRANSACTION"
	case StatusBusy:
		return "BUSY"
	case StatusNotSupported:
		return "NOT_SUPPORTED"
	default:
		return "UNKNOWN"
	}
}

// Retryable reports whether the node asked the caller to try again later.
func (s Status) Retryable() bool { return s == StatusBusy }

// StatusFromPrecheck maps a node precheck code to a Status. Codes outside the
// known set map to StatusUnknown.
func StatusFromPrecheck(c ledger.PrecheckCode) Status {
	switch c {
	case ledger.PrecheckOK:
		return StatusOK
	case ledger.PrecheckDuplicate:
		return StatusDuplicate
	case ledger.PrecheckInsufficientBalance:
		return StatusInsufficientBalance
	case ledger.PrecheckInsufficientFee:
		return StatusInsufficientFee
	case ledger.PrecheckInvalidAccount:
		return StatusInvalidAccount
	case ledger.PrecheckInvalidTransaction:
		return StatusInvalidTransaction
	case ledger.PrecheckBusy:
		return StatusBusy
	case ledger.PrecheckNotSupported:
		return StatusNotSupported
	default:
		return StatusUnknown
	}
}
