package grpcnode

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/sha3"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/keysig/ledger"
)

// Server answers find-by-key queries from a Directory.
//
// Answer queries must carry a payment when Cost is non-zero, otherwise the
// precheck is INSUFFICIENT_FEE. Cost queries are always free and return only
// the header. When MaxInFlight is non-zero, queries beyond it are refused
// with BUSY.
type Server struct {
	UnimplementedCryptoLookupServer
	Directory Directory

	Cost        uint64
	MaxInFlight int
	Logger      *zerolog.Logger

	once  sync.Once
	slots chan struct{}
}

func (s *Server) GetByKey(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Directory == nil {
		return nil, status.Error(codes.FailedPrecondition, ErrNoDirectory.Error())
	}
	var q ledger.Query
	if err := q.Unmarshal(in.GetValue()); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := s.answer(ctx, q.GetByKey)
	if err != nil {
		return nil, err
	}
	b, err := resp.Marshal()
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) answer(ctx context.Context, q *ledger.GetByKeyQuery) (*ledger.Response, error) {
	log := s.log()
	if q == nil {
		return precheck(ledger.PrecheckNotSupported, ledger.AnswerOnly), nil
	}
	rt := ledger.AnswerOnly
	var payment []byte
	if q.Header != nil {
		rt = q.Header.ResponseType
		payment = q.Header.Payment
	}
	if q.Key == nil || q.Key.Case == ledger.KeyCaseNotSet || q.Key.Case == ledger.KeyCaseUnknown {
		log.Debug().Str("responseType", rt.String()).Msg("query without a usable key")
		return precheck(ledger.PrecheckInvalidTransaction, rt), nil
	}

	if !s.acquire() {
		log.Info().Str("responseType", rt.String()).Msg("busy")
		return precheck(ledger.PrecheckBusy, rt), nil
	}
	defer s.release()

	switch rt {
	case ledger.CostAnswer, ledger.CostAnswerStateProof:
		return &ledger.Response{GetByKey: &ledger.GetByKeyResponse{
			Header: &ledger.ResponseHeader{Precheck: ledger.PrecheckOK, ResponseType: rt, Cost: s.Cost},
		}}, nil
	case ledger.AnswerOnly, ledger.AnswerStateProof:
	default:
		return precheck(ledger.PrecheckNotSupported, rt), nil
	}

	if s.Cost > 0 && len(payment) == 0 {
		return precheck(ledger.PrecheckInsufficientFee, rt), nil
	}

	entities, err := s.Directory.Lookup(ctx, q.Key)
	if err != nil {
		if ctx.Err() != nil {
			return nil, status.FromContextError(ctx.Err()).Err()
		}
		log.Error().Err(err).Msg("directory lookup failed")
		return nil, status.Error(codes.Internal, err.Error())
	}

	header := &ledger.ResponseHeader{Precheck: ledger.PrecheckOK, ResponseType: rt, Cost: s.Cost}
	if rt.WantsStateProof() {
		proof, err := StateProof(q.Key, entities)
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		header.StateProof = proof
	}
	log.Debug().
		Str("responseType", rt.String()).
		Int("entities", len(entities)).
		Msg("find by key")
	return &ledger.Response{GetByKey: &ledger.GetByKeyResponse{Header: header, Entities: entities}}, nil
}

// StateProof is the proof this server attaches to state-proof answers: a
// SHA3-384 digest over the encoded key followed by the encoded answer.
func StateProof(key *ledger.Key, entities []*ledger.EntityID) ([]byte, error) {
	k, err := key.Marshal()
	if err != nil {
		return nil, err
	}
	a, err := (&ledger.Response{GetByKey: &ledger.GetByKeyResponse{Entities: entities}}).Marshal()
	if err != nil {
		return nil, err
	}
	h := sha3.New384()
	h.Write(k)
	h.Write(a)
	return h.Sum(nil), nil
}

func precheck(code ledger.PrecheckCode, rt ledger.ResponseType) *ledger.Response {
	return &ledger.Response{GetByKey: &ledger.GetByKeyResponse{
		Header: &ledger.ResponseHeader{Precheck: code, ResponseType: rt},
	}}
}

func (s *Server) acquire() bool {
	if s.MaxInFlight <= 0 {
		return true
	}
	s.once.Do(func() { s.slots = make(chan struct{}, s.MaxInFlight) })
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Server) release() {
	if s.MaxInFlight > 0 {
		<-s.slots
	}
}

func (s *Server) log() *zerolog.Logger {
	if s.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return s.Logger
}
