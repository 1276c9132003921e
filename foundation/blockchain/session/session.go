// Package session maintains the conversation with the node over a websocket
// connection and feeds what the node reports into the wallet.
package session

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/wallet"
	"github.com/ardanlabs/raiwallet/foundation/validate"
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
)

// ChainCount is the number of blocks requested when fetching a chain.
const ChainCount = 100

// ErrNotConnected is returned when a request is made with no connection.
var ErrNotConnected = errors.New("not connected to the node")

// Conn represents the connection to the node. A *websocket.Conn satisfies
// this interface.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}

// EventHandler defines a function that is called when events occur in the
// processing of the session.
type EventHandler func(v string, args ...any)

// handler processes one inbound message.
type handler func(ctx context.Context, data []byte) error

// Session dispatches node messages to the wallet and sends the wallet
// requests to the node.
type Session struct {
	wallet      *wallet.Wallet
	evHandler   EventHandler
	handlers    map[string]handler
	ready       chan struct{}
	readyOnce   sync.Once
	blocksCount atomic.Uint64

	mu        sync.Mutex
	conn      Conn
	chainReqs []account.ID
}

// New constructs a session for the wallet.
func New(w *wallet.Wallet, evHandler EventHandler) *Session {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	s := Session{
		wallet:    w,
		evHandler: ev,
		ready:     make(chan struct{}),
	}

	s.handlers = map[string]handler{
		MsgBlocksCount:     s.blocksCountHandler,
		MsgBalanceUpdate:   s.balanceHandler,
		MsgBalance:         s.balanceHandler,
		MsgPendingBlocks:   s.pendingBlocksHandler,
		MsgChain:           s.chainHandler,
		MsgProcessResponse: s.processResponseHandler,
	}

	return &s
}

// SignalReady marks the wallet as loaded. Messages that need the wallet
// wait for this signal.
func (s *Session) SignalReady() {
	s.readyOnce.Do(func() {
		close(s.ready)
	})
}

// WaitReady blocks until SignalReady is called or the context is done.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BlocksCount returns the last ledger block count reported by the node.
func (s *Session) BlocksCount() uint64 {
	return s.blocksCount.Load()
}

// Connected reports whether the session has a live connection.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn != nil
}

// =============================================================================

// Run attaches the connection, greets the node and dispatches messages
// until the connection fails or the context is cancelled. The connection
// is closed when Run returns.
func (s *Session) Run(ctx context.Context, conn Conn) error {
	s.mu.Lock()
	s.conn = conn
	s.chainReqs = nil
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
	}()

	// Closing the connection unblocks the read below.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := s.WaitReady(ctx); err != nil {
		return err
	}

	if err := s.Greet(); err != nil {
		return errors.Wrap(err, "greet")
	}

	for {
		var msg json.RawMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "read")
		}

		if err := s.Dispatch(ctx, msg); err != nil {
			if wallet.IsConsistencyError(err) {
				s.evHandler("session: Run: dispatch: CONSISTENCY ERROR: %s", err)
				continue
			}
			s.evHandler("session: Run: dispatch: ERROR: %s", err)
		}
	}
}

// Greet registers the accounts with the node and asks for the state the
// wallet needs to catch up.
func (s *Session) Greet() error {
	accounts := s.accounts()

	if err := s.RegisterAddresses(accounts); err != nil {
		return err
	}

	if err := s.RequestBlocksCount(); err != nil {
		return err
	}

	for _, acc := range accounts {
		if err := s.RequestChain(acc, ChainCount); err != nil {
			return err
		}
	}

	return s.RequestPendingBlocks(accounts)
}

// Dispatch routes a raw message to the handler for its type. Messages of
// an unknown type are ignored.
func (s *Session) Dispatch(ctx context.Context, data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errors.Wrap(err, "envelope")
	}

	h, exists := s.handlers[env.Type]
	if !exists {
		s.evHandler("session: Dispatch: ignoring message: type[%s]", env.Type)
		return nil
	}

	if err := s.WaitReady(ctx); err != nil {
		return err
	}

	if err := h(ctx, data); err != nil {
		return errors.Wrapf(err, "type[%s]", env.Type)
	}

	return nil
}

// =============================================================================

// RequestBlocksCount asks the node for the ledger block count.
func (s *Session) RequestBlocksCount() error {
	return s.send(GetBlocksCount{RequestType: ReqGetBlocksCount})
}

// RegisterAddresses subscribes the accounts to balance updates.
func (s *Session) RegisterAddresses(accounts []account.ID) error {
	return s.send(RegisterAddresses{RequestType: ReqRegisterAddresses, Addresses: accounts})
}

// RequestPendingBlocks asks for the sends waiting on the accounts.
func (s *Session) RequestPendingBlocks(accounts []account.ID) error {
	return s.send(GetPendingBlocks{RequestType: ReqGetPendingBlocks, Addresses: accounts})
}

// RequestChain asks for the newest count blocks of the account. Replies
// are matched to requests in the order the requests were made.
func (s *Session) RequestChain(acc account.ID, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := GetChain{
		RequestType: ReqGetChain,
		Address:     acc,
		Count:       strconv.Itoa(count),
	}

	if err := s.write(msg); err != nil {
		return err
	}

	s.chainReqs = append(s.chainReqs, acc)
	return nil
}

// ProcessBlock submits the block to the node.
func (s *Session) ProcessBlock(blk block.Block) error {
	data, err := blk.NodeJSON()
	if err != nil {
		return err
	}

	return s.send(ProcessBlock{RequestType: ReqProcessBlock, Block: string(data)})
}

// send writes the message under the connection lock.
func (s *Session) send(msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(msg)
}

// write performs the write. The caller holds the lock.
func (s *Session) write(msg any) error {
	if s.conn == nil {
		return ErrNotConnected
	}

	return s.conn.WriteJSON(msg)
}

// accounts returns the wallet accounts.
func (s *Session) accounts() []account.ID {
	infos := s.wallet.Accounts()

	accounts := make([]account.ID, len(infos))
	for i, info := range infos {
		accounts[i] = info.Account
	}

	return accounts
}

// nextChainRequest pops the account of the oldest outstanding chain request.
func (s *Session) nextChainRequest() (account.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.chainReqs) == 0 {
		return "", false
	}

	acc := s.chainReqs[0]
	s.chainReqs = s.chainReqs[1:]

	return acc, true
}

// =============================================================================

func (s *Session) blocksCountHandler(ctx context.Context, data []byte) error {
	var msg BlocksCount
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}

	if err := validate.Check(msg); err != nil {
		return err
	}

	count, err := strconv.ParseUint(msg.Count.String(), 10, 64)
	if err != nil {
		return err
	}

	s.blocksCount.Store(count)
	s.evHandler("session: blocksCount: count[%d]", count)

	return nil
}

func (s *Session) balanceHandler(ctx context.Context, data []byte) error {
	var msg BalanceUpdate
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}

	if err := validate.Check(msg); err != nil {
		return err
	}

	balance, err := uint256.FromDecimal(msg.Balance.String())
	if err != nil {
		return err
	}

	info, err := s.wallet.Account(msg.Address)
	if err != nil {
		return err
	}

	s.evHandler("session: balance: account[%s] balance[%s]", info.Account, balance.Dec())

	// An account without blocks learns its history from the node.
	if info.BlockCount == 0 {
		if err := s.wallet.SetAccountBalance(info.Account, balance); err != nil {
			return err
		}
		if err := s.RequestChain(info.Account, ChainCount); err != nil {
			return err
		}
	}

	return s.RequestPendingBlocks([]account.ID{info.Account})
}

func (s *Session) pendingBlocksHandler(ctx context.Context, data []byte) error {
	var msg PendingBlocks
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}

	for _, pb := range msg.Entries() {
		if err := validate.Check(pb); err != nil {
			s.evHandler("session: pendingBlocks: skipping: hash[%s]: ERROR: %s", pb.Hash, err)
			continue
		}

		amount, err := uint256.FromDecimal(pb.Amount.String())
		if err != nil {
			s.evHandler("session: pendingBlocks: skipping: hash[%s]: ERROR: %s", pb.Hash, err)
			continue
		}

		if _, _, err := s.wallet.AddPendingReceiveBlock(pb.Hash, pb.Account, pb.Origin, amount); err != nil {
			s.evHandler("session: pendingBlocks: receive: hash[%s]: ERROR: %s", pb.Hash, err)
		}
	}

	return nil
}

func (s *Session) chainHandler(ctx context.Context, data []byte) error {
	var msg Chain
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}

	acc, ok := s.nextChainRequest()
	if !ok {
		return errors.New("chain received without a request")
	}

	blocks := msg.Oldest()
	s.evHandler("session: chain: account[%s] blocks[%d]", acc, len(blocks))

	if len(blocks) == 0 {
		return nil
	}

	return s.wallet.ImportChain(acc, blocks)
}

func (s *Session) processResponseHandler(ctx context.Context, data []byte) error {
	var msg ProcessResponse
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}

	if err := validate.Check(msg); err != nil {
		return err
	}

	if !msg.Succeeded() {
		s.evHandler("session: processResponse: rejected: hash[%s] status[%s]", msg.Hash, msg.Status)
		return nil
	}

	if _, removed := s.wallet.RemoveReadyBlock(msg.Hash); removed {
		s.evHandler("session: processResponse: processed: hash[%s]", msg.Hash)
	}

	return nil
}
