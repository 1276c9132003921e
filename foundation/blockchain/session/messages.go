package session

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
)

// Request types sent to the node.
const (
	ReqGetBlocksCount    = "getBlocksCount"
	ReqRegisterAddresses = "registerAddresses"
	ReqGetPendingBlocks  = "getPendingBlocks"
	ReqGetChain          = "getChain"
	ReqProcessBlock      = "processBlock"
)

// Message types received from the node.
const (
	MsgBlocksCount     = "BlocksCount"
	MsgBalanceUpdate   = "balanceUpdate"
	MsgBalance         = "Balance"
	MsgPendingBlocks   = "PendingBlocks"
	MsgChain           = "Chain"
	MsgProcessResponse = "processResponse"
)

// StatusSuccess is the process response status for an accepted block.
const StatusSuccess = "success"

// =============================================================================

// GetBlocksCount asks the node for the number of blocks in the ledger.
type GetBlocksCount struct {
	RequestType string `json:"requestType"`
}

// RegisterAddresses subscribes the wallet accounts to balance updates.
type RegisterAddresses struct {
	RequestType string       `json:"requestType"`
	Addresses   []account.ID `json:"addresses"`
}

// GetPendingBlocks asks for the sends waiting to be received by the
// accounts.
type GetPendingBlocks struct {
	RequestType string       `json:"requestType"`
	Addresses   []account.ID `json:"addresses"`
}

// GetChain asks for the newest count blocks of the account chain.
type GetChain struct {
	RequestType string     `json:"requestType"`
	Address     account.ID `json:"address"`
	Count       string     `json:"count"`
}

// ProcessBlock submits a block to the node. The block travels as a JSON
// encoded string.
type ProcessBlock struct {
	RequestType string `json:"requestType"`
	Block       string `json:"block"`
}

// =============================================================================

// envelope is decoded first to pick the handler for a message.
type envelope struct {
	Type string `json:"type"`
}

// BlocksCount reports the number of blocks in the ledger.
type BlocksCount struct {
	Type  string      `json:"type"`
	Count json.Number `json:"count" validate:"required,numeric"`
}

// BalanceUpdate reports the balance the node holds for an account.
type BalanceUpdate struct {
	Type    string      `json:"type"`
	Balance json.Number `json:"balance" validate:"required,raw"`
	Address account.ID  `json:"address" validate:"required,account"`
}

// PendingBlocks lists the sends waiting to be received, keyed by the
// receiving account and then by the send block hash.
type PendingBlocks struct {
	Type   string                                 `json:"type"`
	Blocks map[account.ID]map[string]PendingEntry `json:"blocks"`
}

// PendingEntry describes one send waiting to be received.
type PendingEntry struct {
	Source account.ID  `json:"source"`
	Amount json.Number `json:"amount"`
}

// PendingBlock is a flattened pending entry ready for validation.
type PendingBlock struct {
	Account account.ID  `json:"account" validate:"required,account"`
	Hash    string      `json:"hash" validate:"required,blockhash"`
	Origin  account.ID  `json:"source" validate:"omitempty,account"`
	Amount  json.Number `json:"amount" validate:"required,raw"`
}

// Entries flattens the pending blocks, ordered by account and hash.
func (pb PendingBlocks) Entries() []PendingBlock {
	var entries []PendingBlock
	for acc, blocks := range pb.Blocks {
		for hash, e := range blocks {
			entries = append(entries, PendingBlock{
				Account: acc,
				Hash:    hash,
				Origin:  e.Source,
				Amount:  e.Amount,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Account != entries[j].Account {
			return entries[i].Account < entries[j].Account
		}
		return entries[i].Hash < entries[j].Hash
	})

	return entries
}

// Chain carries part of an account chain, newest block first. The order of
// the blocks object is preserved while decoding.
type Chain struct {
	Type    string
	Entries []ChainEntry
}

// ChainEntry is a block of the chain with the amount it moved.
type ChainEntry struct {
	Hash   string
	Block  block.Block
	Amount uint256.Int
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (c *Chain) UnmarshalJSON(data []byte) error {
	var aux struct {
		Type   string          `json:"type"`
		Blocks json.RawMessage `json:"blocks"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	entries, err := decodeChainBlocks(aux.Blocks)
	if err != nil {
		return err
	}

	c.Type = aux.Type
	c.Entries = entries

	return nil
}

// Oldest returns the blocks oldest first with their amounts attached.
func (c Chain) Oldest() []block.Block {
	blocks := make([]block.Block, len(c.Entries))
	for i, e := range c.Entries {
		blk := e.Block
		blk.Amount = e.Amount
		blocks[len(c.Entries)-1-i] = blk
	}

	return blocks
}

// ProcessResponse reports the outcome of a processBlock request.
type ProcessResponse struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Hash   string `json:"hash" validate:"required,blockhash"`
}

// Succeeded reports whether the node accepted the block.
func (pr ProcessResponse) Succeeded() bool {
	return strings.EqualFold(pr.Status, StatusSuccess)
}

// =============================================================================

// decodeChainBlocks walks the blocks object token by token so the order
// the node sent them in is kept.
func decodeChainBlocks(data json.RawMessage) ([]ChainEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte("false")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.Newf("chain blocks: expected object, got %v", tok)
	}

	var entries []ChainEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		hash, _ := tok.(string)

		var raw struct {
			Contents json.RawMessage `json:"contents"`
			Amount   json.Number     `json:"amount"`
		}
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.Wrapf(err, "chain block %s", hash)
		}

		blk, err := decodeContents(raw.Contents)
		if err != nil {
			return nil, errors.Wrapf(err, "chain block %s", hash)
		}

		if !strings.EqualFold(blk.Hash(), hash) {
			return nil, errors.Newf("chain block %s: contents hash to %s", hash, blk.Hash())
		}

		e := ChainEntry{
			Hash:  strings.ToUpper(hash),
			Block: blk,
		}

		if raw.Amount != "" {
			if err := e.Amount.SetFromDecimal(raw.Amount.String()); err != nil {
				return nil, errors.Wrapf(err, "chain block %s: amount", hash)
			}
		}

		entries = append(entries, e)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return entries, nil
}

// decodeContents accepts the block either as an object or as a JSON string
// holding the object.
func decodeContents(raw json.RawMessage) (block.Block, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = json.RawMessage(s)
	}

	return block.Decode(raw)
}
