package keysig

import (
	"context"
	"errors"

	"xdao.co/keysig/ledger"
)

// Node answers find-by-key queries. grpcnode.Client is the usual implementation.
// A Node must return ctx.Err() (or wrap it) when the wait is abandoned.
type Node interface {
	GetByKey(ctx context.Context, q *ledger.Query) (*ledger.Response, error)
}

// LookupQuery builds the find-by-key query for the key tree. Signatures play
// no part in it. payment is an encoded payment transaction and may be nil.
func (sk *SignedKey) LookupQuery(payment []byte, responseType ledger.ResponseType) (*ledger.Query, error) {
	key, err := sk.KeyProto()
	if err != nil {
		return nil, err
	}
	return &ledger.Query{GetByKey: &ledger.GetByKeyQuery{
		Header: &ledger.QueryHeader{Payment: payment, ResponseType: responseType},
		Key:    key,
	}}, nil
}

// GetEntities asks node for the entities associated with the key tree.
//
// sk.Precheck always receives the node's verdict. Only when it is OK are
// Cost, Entities and, for state-proof response types, StateProof replaced;
// otherwise they keep their previous values and GetEntities returns false.
// A cancelled or timed-out wait fails with KindInterrupted and any other
// transport failure with KindTransport. Nothing is retried.
func (sk *SignedKey) GetEntities(ctx context.Context, node Node, payment []byte, responseType ledger.ResponseType) (bool, error) {
	const op = "GetEntities"
	if node == nil {
		return false, newError(KindInvalidArgument, op, "nil node")
	}
	q, err := sk.LookupQuery(payment, responseType)
	if err != nil {
		return false, err
	}
	resp, err := node.GetByKey(ctx, q)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, wrapError(KindInterrupted, op, "wait for node interrupted", err)
		}
		return false, wrapError(KindTransport, op, "query node", err)
	}
	return sk.ApplyLookupResponse(resp, responseType)
}

// GetEntitiesAnswerOnly requests entities without a state proof.
func (sk *SignedKey) GetEntitiesAnswerOnly(ctx context.Context, node Node, payment []byte) (bool, error) {
	return sk.GetEntities(ctx, node, payment, ledger.AnswerOnly)
}

// GetEntitiesStateProof requests entities with a state proof.
func (sk *SignedKey) GetEntitiesStateProof(ctx context.Context, node Node, payment []byte) (bool, error) {
	return sk.GetEntities(ctx, node, payment, ledger.AnswerStateProof)
}

// GetEntitiesCostAnswer asks what an answer-only lookup would cost. No payment is attached.
func (sk *SignedKey) GetEntitiesCostAnswer(ctx context.Context, node Node) (bool, error) {
	return sk.GetEntities(ctx, node, nil, ledger.CostAnswer)
}

// GetEntitiesCostAnswerStateProof asks what a state-proof lookup would cost. No payment is attached.
func (sk *SignedKey) GetEntitiesCostAnswerStateProof(ctx context.Context, node Node) (bool, error) {
	return sk.GetEntities(ctx, node, nil, ledger.CostAnswerStateProof)
}

// ApplyLookupResponse records a find-by-key response on sk. It is the decode
// step shared by every GetEntities variant; see GetEntities for the rules.
func (sk *SignedKey) ApplyLookupResponse(resp *ledger.Response, responseType ledger.ResponseType) (bool, error) {
	const op = "ApplyLookupResponse"
	if resp == nil || resp.GetByKey == nil {
		return false, newError(KindMalformed, op, "response has no find-by-key answer")
	}
	h := resp.GetByKey.Header
	if h == nil {
		return false, newError(KindMalformed, op, "response has no header")
	}

	sk.Precheck = StatusFromPrecheck(h.Precheck)
	logger.Debug().
		Str("precheck", sk.Precheck.String()).
		Str("responseType", responseType.String()).
		Uint64("cost", h.Cost).
		Int("entities", len(resp.GetByKey.Entities)).
		Msg("find by key")
	if sk.Precheck != StatusOK {
		return false, nil
	}

	sk.Cost = h.Cost
	if responseType.WantsStateProof() {
		sk.StateProof = append([]byte{}, h.StateProof...)
	}
	entities := make([]EntityID, 0, len(resp.GetByKey.Entities))
	for _, e := range resp.GetByKey.Entities {
		entities = append(entities, entityFromProto(e))
	}
	sk.Entities = entities
	return true, nil
}
