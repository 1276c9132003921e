package walletgrp

import (
	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/wallet"
)

type accountInfo struct {
	Account          account.ID `json:"account"`
	PublicKey        string     `json:"publicKey"`
	Balance          string     `json:"balance"`
	PendingBalance   string     `json:"pendingBalance"`
	LastBlock        string     `json:"lastBlock,omitempty"`
	LastPendingBlock string     `json:"lastPendingBlock,omitempty"`
	BlockCount       int        `json:"blockCount"`
	Representative   account.ID `json:"representative,omitempty"`
	Label            string     `json:"label,omitempty"`
}

func toAccountInfo(info wallet.AccountInfo) accountInfo {
	return accountInfo{
		Account:          info.Account,
		PublicKey:        info.PublicKey,
		Balance:          info.Balance.Dec(),
		PendingBalance:   info.PendingBalance.Dec(),
		LastBlock:        info.LastBlock,
		LastPendingBlock: info.LastPendingBlock,
		BlockCount:       info.BlockCount,
		Representative:   info.Representative,
		Label:            info.Label,
	}
}

type accountsInfo struct {
	Balance        string        `json:"balance"`
	PendingBalance string        `json:"pendingBalance"`
	Accounts       []accountInfo `json:"accounts"`
}

type blockInfo struct {
	Hash  string      `json:"hash"`
	Block block.Block `json:"block"`
}

func toBlockInfos(blocks []block.Block) []blockInfo {
	infos := make([]blockInfo, len(blocks))
	for i, blk := range blocks {
		infos[i] = blockInfo{
			Hash:  blk.Hash(),
			Block: blk,
		}
	}
	return infos
}

// =============================================================================

type newAccount struct {
	PrivateKey string `json:"privateKey" validate:"omitempty,hexadecimal,len=64"`
}

type newLabel struct {
	Label string `json:"label" validate:"max=64"`
}

type newSend struct {
	From   account.ID `json:"from" validate:"required,account"`
	To     account.ID `json:"to" validate:"required,account"`
	Amount string     `json:"amount" validate:"required,raw"`
}

type newChange struct {
	Account        account.ID `json:"account" validate:"required,account"`
	Representative account.ID `json:"representative" validate:"required,account"`
}

type newWork struct {
	Hash string `json:"hash" validate:"required,blockhash"`
	Work string `json:"work" validate:"required,hexadecimal,len=16"`
}

type workResult struct {
	Hash      string `json:"hash"`
	Confirmed bool   `json:"confirmed"`
}
