package keysig

import (
	"fmt"
	"strconv"
	"strings"

	"xdao.co/keysig/ledger"
)

// ContractID identifies the contract behind a contract-reference key.
type ContractID struct {
	ShardNum    int64 `json:"shardNum"`
	RealmNum    int64 `json:"realmNum"`
	ContractNum int64 `json:"contractNum"`
}

func (c ContractID) String() string {
	return fmt.Sprintf("%d.%d.%d", c.ShardNum, c.RealmNum, c.ContractNum)
}

func (c ContractID) proto() *ledger.ContractID {
	return &ledger.ContractID{ShardNum: c.ShardNum, RealmNum: c.RealmNum, ContractNum: c.ContractNum}
}

// EntityKind names the kind of ledger entity an EntityID refers to.
type EntityKind uint8

const (
	EntityUnknown EntityKind = iota
	EntityAccount
	EntityContract
	EntityFile
	EntityClaim
)

func (k EntityKind) String() string {
	switch k {
	case EntityAccount:
		return "ACCOUNT"
	case EntityContract:
		return "CONTRACT"
	case EntityFile:
		return "FILE"
	case EntityClaim:
		return "CLAIM"
	default:
		return "UNKNOWN"
	}
}

// EntityID references a ledger entity returned by a lookup.
// For claims, Shard/Realm/Num name the owning account and ClaimHash the claim.
type EntityID struct {
	Kind      EntityKind
	Shard     int64
	Realm     int64
	Num       int64
	ClaimHash []byte
}

func (e EntityID) String() string {
	return fmt.Sprintf("%s:%d.%d.%d", e.Kind, e.Shard, e.Realm, e.Num)
}

// ParseEntityID parses the String form, e.g. "ACCOUNT:0.0.1001".
// A claim hash cannot be expressed in that form.
func ParseEntityID(s string) (EntityID, error) {
	kind, num, ok := strings.Cut(s, ":")
	if !ok {
		return EntityID{}, newError(KindInvalidArgument, "ParseEntityID", fmt.Sprintf("%q has no kind", s))
	}
	var e EntityID
	switch strings.ToUpper(kind) {
	case "ACCOUNT":
		e.Kind = EntityAccount
	case "CONTRACT":
		e.Kind = EntityContract
	case "FILE":
		e.Kind = EntityFile
	case "CLAIM":
		e.Kind = EntityClaim
	default:
		return EntityID{}, newError(KindInvalidArgument, "ParseEntityID", fmt.Sprintf("unknown entity kind %q", kind))
	}
	parts := strings.Split(num, ".")
	if len(parts) != 3 {
		return EntityID{}, newError(KindInvalidArgument, "ParseEntityID", fmt.Sprintf("%q is not shard.realm.num", num))
	}
	dst := []*int64{&e.Shard, &e.Realm, &e.Num}
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return EntityID{}, wrapError(KindInvalidArgument, "ParseEntityID", s, err)
		}
		*dst[i] = v
	}
	return e, nil
}

func entityFromProto(p *ledger.EntityID) EntityID {
	if p == nil {
		return EntityID{}
	}
	switch p.Case {
	case ledger.EntityCaseAccount:
		if a := p.AccountID; a != nil {
			return EntityID{Kind: EntityAccount, Shard: a.ShardNum, Realm: a.RealmNum, Num: a.AccountNum}
		}
		return EntityID{Kind: EntityAccount}
	case ledger.EntityCaseContract:
		if c := p.ContractID; c != nil {
			return EntityID{Kind: EntityContract, Shard: c.ShardNum, Realm: c.RealmNum, Num: c.ContractNum}
		}
		return EntityID{Kind: EntityContract}
	case ledger.EntityCaseFile:
		if f := p.FileID; f != nil {
			return EntityID{Kind: EntityFile, Shard: f.ShardNum, Realm: f.RealmNum, Num: f.FileNum}
		}
		return EntityID{Kind: EntityFile}
	case ledger.EntityCaseClaim:
		out := EntityID{Kind: EntityClaim}
		if c := p.Claim; c != nil {
			if a := c.AccountID; a != nil {
				out.Shard, out.Realm, out.Num = a.ShardNum, a.RealmNum, a.AccountNum
			}
			out.ClaimHash = cloneBytes(c.Hash)
		}
		return out
	default:
		return EntityID{}
	}
}

// Proto converts e to its wire form. EntityUnknown yields an empty EntityID.
func (e EntityID) Proto() *ledger.EntityID {
	switch e.Kind {
	case EntityAccount:
		return &ledger.EntityID{Case: ledger.EntityCaseAccount, AccountID: &ledger.AccountID{ShardNum: e.Shard, RealmNum: e.Realm, AccountNum: e.Num}}
	case EntityContract:
		return &ledger.EntityID{Case: ledger.EntityCaseContract, ContractID: &ledger.ContractID{ShardNum: e.Shard, RealmNum: e.Realm, ContractNum: e.Num}}
	case EntityFile:
		return &ledger.EntityID{Case: ledger.EntityCaseFile, FileID: &ledger.FileID{ShardNum: e.Shard, RealmNum: e.Realm, FileNum: e.Num}}
	case EntityClaim:
		return &ledger.EntityID{Case: ledger.EntityCaseClaim, Claim: &ledger.Claim{
			AccountID: &ledger.AccountID{ShardNum: e.Shard, RealmNum: e.Realm, AccountNum: e.Num},
			Hash:      cloneBytes(e.ClaimHash),
		}}
	default:
		return &ledger.EntityID{}
	}
}
