package ledger

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	entityShardNum protowire.Number = 1
	entityRealmNum protowire.Number = 2
	entityNum      protowire.Number = 3

	entityAccountID  protowire.Number = 1
	entityClaim      protowire.Number = 2
	entityFileID     protowire.Number = 3
	entityContractID protowire.Number = 4

	claimAccountID protowire.Number = 1
	claimHash      protowire.Number = 2
)

// ContractID identifies a smart contract instance.
type ContractID struct {
	ShardNum    int64
	RealmNum    int64
	ContractNum int64
}

// AccountID identifies a crypto account.
type AccountID struct {
	ShardNum   int64
	RealmNum   int64
	AccountNum int64
}

// FileID identifies a file.
type FileID struct {
	ShardNum int64
	RealmNum int64
	FileNum  int64
}

// Claim is a hash attached to an account.
type Claim struct {
	AccountID *AccountID
	Hash      []byte
}

// EntityCase names the populated member of the EntityID oneof.
type EntityCase int

const (
	EntityCaseNotSet EntityCase = iota
	EntityCaseAccount
	EntityCaseClaim
	EntityCaseFile
	EntityCaseContract
)

// EntityID is one entity returned by a find-by-key lookup.
type EntityID struct {
	Case       EntityCase
	AccountID  *AccountID
	Claim      *Claim
	FileID     *FileID
	ContractID *ContractID
}

func appendEntityNum(b []byte, shard, realm, num int64) []byte {
	b = appendVarintField(b, entityShardNum, uint64(shard))
	b = appendVarintField(b, entityRealmNum, uint64(realm))
	return appendVarintField(b, entityNum, uint64(num))
}

func consumeEntityNum(b []byte) (shard, realm, num int64, err error) {
	err = forEachField(b, func(f field) error {
		var dst *int64
		switch f.num {
		case entityShardNum:
			dst = &shard
		case entityRealmNum:
			dst = &realm
		case entityNum:
			dst = &num
		default:
			return nil
		}
		if err := f.wantVarint(); err != nil {
			return err
		}
		*dst = int64(f.varint)
		return nil
	})
	return shard, realm, num, err
}

func (c *ContractID) marshal() []byte {
	if c == nil {
		return nil
	}
	return appendEntityNum(nil, c.ShardNum, c.RealmNum, c.ContractNum)
}

func (c *ContractID) unmarshal(b []byte) (err error) {
	c.ShardNum, c.RealmNum, c.ContractNum, err = consumeEntityNum(b)
	return err
}

func (c ContractID) String() string {
	return fmt.Sprintf("%d.%d.%d", c.ShardNum, c.RealmNum, c.ContractNum)
}

func (a *AccountID) marshal() []byte {
	if a == nil {
		return nil
	}
	return appendEntityNum(nil, a.ShardNum, a.RealmNum, a.AccountNum)
}

func (a *AccountID) unmarshal(b []byte) (err error) {
	a.ShardNum, a.RealmNum, a.AccountNum, err = consumeEntityNum(b)
	return err
}

func (f *FileID) marshal() []byte {
	if f == nil {
		return nil
	}
	return appendEntityNum(nil, f.ShardNum, f.RealmNum, f.FileNum)
}

func (f *FileID) unmarshal(b []byte) (err error) {
	f.ShardNum, f.RealmNum, f.FileNum, err = consumeEntityNum(b)
	return err
}

func (c *Claim) marshal() []byte {
	if c == nil {
		return nil
	}
	var b []byte
	if c.AccountID != nil {
		b = appendBytesField(b, claimAccountID, c.AccountID.marshal())
	}
	if len(c.Hash) > 0 {
		b = appendBytesField(b, claimHash, c.Hash)
	}
	return b
}

func (c *Claim) unmarshal(b []byte) error {
	*c = Claim{}
	return forEachField(b, func(f field) error {
		switch f.num {
		case claimAccountID:
			if err := f.wantBytes(); err != nil {
				return err
			}
			a := new(AccountID)
			if err := a.unmarshal(f.bytes); err != nil {
				return err
			}
			c.AccountID = a
		case claimHash:
			if err := f.wantBytes(); err != nil {
				return err
			}
			c.Hash = cloneBytes(f.bytes)
		}
		return nil
	})
}

func (e *EntityID) marshal() []byte {
	if e == nil {
		return nil
	}
	switch e.Case {
	case EntityCaseAccount:
		return appendBytesField(nil, entityAccountID, e.AccountID.marshal())
	case EntityCaseClaim:
		return appendBytesField(nil, entityClaim, e.Claim.marshal())
	case EntityCaseFile:
		return appendBytesField(nil, entityFileID, e.FileID.marshal())
	case EntityCaseContract:
		return appendBytesField(nil, entityContractID, e.ContractID.marshal())
	default:
		return nil
	}
}

func (e *EntityID) unmarshal(b []byte) error {
	*e = EntityID{}
	return forEachField(b, func(f field) error {
		switch f.num {
		case entityAccountID:
			if err := f.wantBytes(); err != nil {
				return err
			}
			a := new(AccountID)
			if err := a.unmarshal(f.bytes); err != nil {
				return err
			}
			*e = EntityID{Case: EntityCaseAccount, AccountID: a}
		case entityClaim:
			if err := f.wantBytes(); err != nil {
				return err
			}
			c := new(Claim)
			if err := c.unmarshal(f.bytes); err != nil {
				return err
			}
			*e = EntityID{Case: EntityCaseClaim, Claim: c}
		case entityFileID:
			if err := f.wantBytes(); err != nil {
				return err
			}
			fid := new(FileID)
			if err := fid.unmarshal(f.bytes); err != nil {
				return err
			}
			*e = EntityID{Case: EntityCaseFile, FileID: fid}
		case entityContractID:
			if err := f.wantBytes(); err != nil {
				return err
			}
			c := new(ContractID)
			if err := c.unmarshal(f.bytes); err != nil {
				return err
			}
			*e = EntityID{Case: EntityCaseContract, ContractID: c}
		}
		return nil
	})
}
