package ledger

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ResponseType selects how much a node returns for a query.
type ResponseType int32

const (
	AnswerOnly           ResponseType = 0
	AnswerStateProof     ResponseType = 1
	CostAnswer           ResponseType = 2
	CostAnswerStateProof ResponseType = 3
)

func (t ResponseType) String() string {
	switch t {
	case AnswerOnly:
		return "ANSWER_ONLY"
	case AnswerStateProof:
		return "ANSWER_STATE_PROOF"
	case CostAnswer:
		return "COST_ANSWER"
	case CostAnswerStateProof:
		return "COST_ANSWER_STATE_PROOF"
	default:
		return fmt.Sprintf("ResponseType:%d", int32(t))
	}
}

// WantsStateProof reports whether a state proof is requested.
func (t ResponseType) WantsStateProof() bool {
	return t == AnswerStateProof || t == CostAnswerStateProof
}

// PrecheckCode is the node's synchronous verdict on a query or transaction.
// Values outside the named set are preserved as-is.
type PrecheckCode int32

const (
	PrecheckOK                  PrecheckCode = 0
	PrecheckInvalidTransaction  PrecheckCode = 1
	PrecheckInvalidAccount      PrecheckCode = 2
	PrecheckInsufficientFee     PrecheckCode = 3
	PrecheckInsufficientBalance PrecheckCode = 4
	PrecheckDuplicate           PrecheckCode = 5
	PrecheckBusy                PrecheckCode = 6
	PrecheckNotSupported        PrecheckCode = 7
)

func (c PrecheckCode) String() string {
	switch c {
	case PrecheckOK:
		return "OK"
	case PrecheckInvalidTransaction:
		return "INVALID_TRANSACTION"
	case PrecheckInvalidAccount:
		return "INVALID_ACCOUNT"
	case PrecheckInsufficientFee:
		return "INSUFFICIENT_FEE"
	case PrecheckInsufficientBalance:
		return "INSUFFICIENT_BALANCE"
	case PrecheckDuplicate:
		return "DUPLICATE"
	case PrecheckBusy:
		return "BUSY"
	case PrecheckNotSupported:
		return "NOT_SUPPORTED"
	default:
		return fmt.Sprintf("PrecheckCode:%d", int32(c))
	}
}

const (
	queryHeaderPayment      protowire.Number = 1
	queryHeaderResponseType protowire.Number = 2

	responseHeaderPrecheck     protowire.Number = 1
	responseHeaderResponseType protowire.Number = 2
	responseHeaderCost         protowire.Number = 3
	responseHeaderStateProof   protowire.Number = 4

	getByKeyQueryHeader protowire.Number = 1
	getByKeyQueryKey    protowire.Number = 2

	getByKeyResponseHeader   protowire.Number = 1
	getByKeyResponseEntities protowire.Number = 2

	queryGetByKey    protowire.Number = 1
	responseGetByKey protowire.Number = 1
)

// QueryHeader accompanies every query. Payment is an already-encoded payment
// transaction; it is carried opaquely and omitted when nil.
type QueryHeader struct {
	Payment      []byte
	ResponseType ResponseType
}

// ResponseHeader accompanies every query response.
type ResponseHeader struct {
	Precheck     PrecheckCode
	ResponseType ResponseType
	Cost         uint64
	StateProof   []byte
}

// GetByKeyQuery asks for every entity associated with Key.
type GetByKeyQuery struct {
	Header *QueryHeader
	Key    *Key
}

// GetByKeyResponse lists the entities associated with the queried key.
type GetByKeyResponse struct {
	Header   *ResponseHeader
	Entities []*EntityID
}

// Query is the envelope sent to a node.
type Query struct {
	GetByKey *GetByKeyQuery
}

// Response is the envelope returned by a node.
type Response struct {
	GetByKey *GetByKeyResponse
}

func (h *QueryHeader) marshal() []byte {
	if h == nil {
		return nil
	}
	var b []byte
	if h.Payment != nil {
		b = appendBytesField(b, queryHeaderPayment, h.Payment)
	}
	return appendVarintField(b, queryHeaderResponseType, uint64(h.ResponseType))
}

func (h *QueryHeader) unmarshal(b []byte) error {
	*h = QueryHeader{}
	return forEachField(b, func(f field) error {
		switch f.num {
		case queryHeaderPayment:
			if err := f.wantBytes(); err != nil {
				return err
			}
			h.Payment = cloneBytes(f.bytes)
		case queryHeaderResponseType:
			if err := f.wantVarint(); err != nil {
				return err
			}
			h.ResponseType = ResponseType(int32(f.varint))
		}
		return nil
	})
}

func (h *ResponseHeader) marshal() []byte {
	if h == nil {
		return nil
	}
	var b []byte
	b = appendVarintField(b, responseHeaderPrecheck, uint64(h.Precheck))
	b = appendVarintField(b, responseHeaderResponseType, uint64(h.ResponseType))
	b = appendVarintField(b, responseHeaderCost, h.Cost)
	if len(h.StateProof) > 0 {
		b = appendBytesField(b, responseHeaderStateProof, h.StateProof)
	}
	return b
}

func (h *ResponseHeader) unmarshal(b []byte) error {
	*h = ResponseHeader{}
	return forEachField(b, func(f field) error {
		switch f.num {
		case responseHeaderPrecheck:
			if err := f.wantVarint(); err != nil {
				return err
			}
			h.Precheck = PrecheckCode(int32(f.varint))
		case responseHeaderResponseType:
			if err := f.wantVarint(); err != nil {
				return err
			}
			h.ResponseType = ResponseType(int32(f.varint))
		case responseHeaderCost:
			if err := f.wantVarint(); err != nil {
				return err
			}
			h.Cost = f.varint
		case responseHeaderStateProof:
			if err := f.wantBytes(); err != nil {
				return err
			}
			h.StateProof = cloneBytes(f.bytes)
		}
		return nil
	})
}

func (q *GetByKeyQuery) appendTo(b []byte) ([]byte, error) {
	if q == nil {
		return b, nil
	}
	if q.Header != nil {
		b = appendBytesField(b, getByKeyQueryHeader, q.Header.marshal())
	}
	if q.Key != nil {
		key, err := q.Key.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendBytesField(b, getByKeyQueryKey, key)
	}
	return b, nil
}

func (q *GetByKeyQuery) unmarshal(b []byte) error {
	*q = GetByKeyQuery{}
	return forEachField(b, func(f field) error {
		switch f.num {
		case getByKeyQueryHeader:
			if err := f.wantBytes(); err != nil {
				return err
			}
			h := new(QueryHeader)
			if err := h.unmarshal(f.bytes); err != nil {
				return err
			}
			q.Header = h
		case getByKeyQueryKey:
			if err := f.wantBytes(); err != nil {
				return err
			}
			k := new(Key)
			if err := k.Unmarshal(f.bytes); err != nil {
				return err
			}
			q.Key = k
		}
		return nil
	})
}

func (r *GetByKeyResponse) marshal() []byte {
	if r == nil {
		return nil
	}
	var b []byte
	if r.Header != nil {
		b = appendBytesField(b, getByKeyResponseHeader, r.Header.marshal())
	}
	for _, e := range r.Entities {
		b = appendBytesField(b, getByKeyResponseEntities, e.marshal())
	}
	return b
}

func (r *GetByKeyResponse) unmarshal(b []byte) error {
	*r = GetByKeyResponse{}
	return forEachField(b, func(f field) error {
		switch f.num {
		case getByKeyResponseHeader:
			if err := f.wantBytes(); err != nil {
				return err
			}
			h := new(ResponseHeader)
			if err := h.unmarshal(f.bytes); err != nil {
				return err
			}
			r.Header = h
		case getByKeyResponseEntities:
			if err := f.wantBytes(); err != nil {
				return err
			}
			e := new(EntityID)
			if err := e.unmarshal(f.bytes); err != nil {
				return err
			}
			r.Entities = append(r.Entities, e)
		}
		return nil
	})
}

func (q *Query) Marshal() ([]byte, error) {
	if q == nil || q.GetByKey == nil {
		return nil, nil
	}
	inner, err := q.GetByKey.appendTo(nil)
	if err != nil {
		return nil, err
	}
	return appendBytesField(nil, queryGetByKey, inner), nil
}

func (q *Query) Unmarshal(b []byte) error {
	*q = Query{}
	return forEachField(b, func(f field) error {
		if f.num != queryGetByKey {
			return nil
		}
		if err := f.wantBytes(); err != nil {
			return err
		}
		g := new(GetByKeyQuery)
		if err := g.unmarshal(f.bytes); err != nil {
			return err
		}
		q.GetByKey = g
		return nil
	})
}

func (r *Response) Marshal() ([]byte, error) {
	if r == nil || r.GetByKey == nil {
		return nil, nil
	}
	return appendBytesField(nil, responseGetByKey, r.GetByKey.marshal()), nil
}

func (r *Response) Unmarshal(b []byte) error {
	*r = Response{}
	return forEachField(b, func(f field) error {
		if f.num != responseGetByKey {
			return nil
		}
		if err := f.wantBytes(); err != nil {
			return err
		}
		g := new(GetByKeyResponse)
		if err := g.unmarshal(f.bytes); err != nil {
			return err
		}
		r.GetByKey = g
		return nil
	})
}
