// Package wallet is the core API for the local wallet. It owns the keys,
// builds and signs blocks, tracks the blocks waiting on proof of work,
// maintains the confirmed chain and balances of every account, and packs
// the whole secret state into an encrypted blob.
package wallet

import (
	"crypto/subtle"
	"strings"
	"sync"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/keyring"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/workpool"
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
)

// DefaultIterations is the number of key derivation rounds used to protect
// the packed wallet.
const DefaultIterations = 5000

// DefaultRepresentative is assigned to new accounts when no representative
// is configured.
const DefaultRepresentative account.ID = "xrb_3pczxuorp48td8645bs3m6c3xotxd3idskrenmi65rbrga5zmkemzhwkaznh"

// minIterations is the lowest iteration count accepted.
const minIterations = 2

// =============================================================================

// EventHandler defines a function that is called when events occur in the
// processing of the wallet.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to construct a wallet.
type Config struct {
	Passphrase     string
	Iterations     int
	MinimumReceive *uint256.Int
	Representative account.ID
	WorkThreshold  uint64
	AutoWork       bool
	EvHandler      EventHandler
}

// entry holds a key and the ledger state of its account.
type entry struct {
	key              keyring.Key
	balance          uint256.Int
	lastBlock        string
	lastPendingBlock string
	chain            []block.Block
	representative   account.ID
	label            string
}

// Wallet manages the keys and ledger state of a set of accounts. Every
// exported method takes the wallet lock, every account scoped method takes
// the account explicitly.
type Wallet struct {
	mu             sync.Mutex
	evHandler      EventHandler
	passphrase     []byte
	iterations     int
	representative account.ID
	minimumReceive uint256.Int
	autoWork       bool

	seed         []byte
	lastKeyIndex int
	keys         []*entry
	pending      []block.Block
	ready        []block.Block
	errored      []block.Block
	recent       []RecentTx
	pool         *workpool.Pool
	checksum     []byte
	version      uint64
}

// New constructs an empty wallet protected by the configured passphrase.
func New(cfg Config) (*Wallet, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	iterations := cfg.Iterations
	if iterations == 0 {
		iterations = DefaultIterations
	}
	if iterations < minIterations {
		return nil, errors.Wrapf(ErrInvalidIterations, "got %d", iterations)
	}

	rep := cfg.Representative
	if rep == "" {
		rep = DefaultRepresentative
	}
	if _, err := rep.PublicKey(); err != nil {
		return nil, errors.Wrap(err, "representative")
	}

	w := Wallet{
		evHandler:      ev,
		passphrase:     []byte(cfg.Passphrase),
		iterations:     iterations,
		representative: rep.Canonical(),
		autoWork:       cfg.AutoWork,
		lastKeyIndex:   -1,
		pool:           workpool.New(cfg.WorkThreshold),
	}

	w.minimumReceive.SetOne()
	if cfg.MinimumReceive != nil {
		w.minimumReceive.Set(cfg.MinimumReceive)
	}

	return &w, nil
}

// =============================================================================

// CreateWallet sets the seed and derives the first account. A random seed
// is generated when no seed is provided. The seed is returned as hex.
func (w *Wallet) CreateWallet(seedHex string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.seed != nil || len(w.keys) > 0 {
		return "", ErrSeedExists
	}

	switch seedHex {
	case "":
		seed, err := keyring.NewSeed()
		if err != nil {
			return "", err
		}
		w.seed = seed

	default:
		seed, err := keyring.ParseSeed(seedHex)
		if err != nil {
			return "", err
		}
		w.seed = seed
	}

	acc, err := w.newKeyFromSeed()
	if err != nil {
		w.seed = nil
		return "", err
	}

	w.evHandler("wallet: CreateWallet: created: account[%s]", acc)

	return keyring.SeedHex(w.seed), nil
}

// SetSeed replaces the wallet seed with the hex encoded seed.
func (w *Wallet) SetSeed(seedHex string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	seed, err := keyring.ParseSeed(seedHex)
	if err != nil {
		return err
	}

	w.seed = seed
	w.version++

	return nil
}

// SetRandomSeed generates a new seed. An existing seed is only replaced when
// overwrite is true.
func (w *Wallet) SetRandomSeed(overwrite bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.seed != nil && !overwrite {
		return ErrSeedExists
	}

	seed, err := keyring.NewSeed()
	if err != nil {
		return err
	}

	w.seed = seed
	w.version++

	return nil
}

// Seed returns the hex encoded seed when the passphrase matches.
func (w *Wallet) Seed(passphrase string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.checkPassphrase(passphrase) {
		return "", ErrIncorrectPassword
	}

	if w.seed == nil {
		return "", ErrSeedNotSet
	}

	return keyring.SeedHex(w.seed), nil
}

// NewKeyFromSeed derives the next key from the seed and adds its account to
// the wallet.
func (w *Wallet) NewKeyFromSeed() (account.ID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.newKeyFromSeed()
}

// newKeyFromSeed performs the derivation without taking the lock.
func (w *Wallet) newKeyFromSeed() (account.ID, error) {
	if w.seed == nil {
		return "", ErrSeedNotSet
	}

	key, err := keyring.Derive(w.seed, uint32(w.lastKeyIndex+1))
	if err != nil {
		return "", err
	}

	w.lastKeyIndex++
	w.addKey(key)

	w.evHandler("wallet: NewKeyFromSeed: derived: index[%d] account[%s]", w.lastKeyIndex, key.Account)

	return key.Account, nil
}

// ImportKey adds the account for the hex encoded private key to the wallet.
// Importing the same key twice is not rejected.
func (w *Wallet) ImportKey(privateKeyHex string) (account.ID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key, err := keyring.FromHex(privateKeyHex)
	if err != nil {
		return "", err
	}

	w.addKey(key)

	w.evHandler("wallet: ImportKey: imported: account[%s]", key.Account)

	return key.Account, nil
}

// addKey appends an entry with an empty ledger state.
func (w *Wallet) addKey(key keyring.Key) {
	w.keys = append(w.keys, &entry{key: key})
	w.version++
}

// =============================================================================

// ChangePassphrase replaces the passphrase used to pack the wallet.
func (w *Wallet) ChangePassphrase(oldPass string, newPass string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.checkPassphrase(oldPass) {
		return ErrIncorrectPassword
	}

	w.passphrase = []byte(newPass)
	w.version++

	w.evHandler("wallet: ChangePassphrase: passphrase changed")

	return nil
}

// SetIterations sets the number of key derivation rounds used by Pack.
func (w *Wallet) SetIterations(n int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if n < minIterations {
		return errors.Wrapf(ErrInvalidIterations, "got %d", n)
	}

	w.iterations = n
	w.version++

	return nil
}

// Iterations returns the number of key derivation rounds used by Pack.
func (w *Wallet) Iterations() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.iterations
}

// SetMinimumReceive sets the amount below which incoming funds are ignored.
func (w *Wallet) SetMinimumReceive(amount *uint256.Int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.minimumReceive.Set(amount)
	w.version++
}

// MinimumReceive returns the amount below which incoming funds are ignored.
func (w *Wallet) MinimumReceive() *uint256.Int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.minimumReceive.Clone()
}

// SetAutoWork sets whether work is generated as soon as a target appears.
func (w *Wallet) SetAutoWork(autoWork bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.autoWork = autoWork
	w.version++
}

// AutoWork reports whether work is generated as soon as a target appears.
func (w *Wallet) AutoWork() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.autoWork
}

// Version returns a counter that changes every time the wallet state
// changes.
func (w *Wallet) Version() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.version
}

// checkPassphrase compares the passphrase in constant time.
func (w *Wallet) checkPassphrase(passphrase string) bool {
	return subtle.ConstantTimeCompare(w.passphrase, []byte(passphrase)) == 1
}

// =============================================================================

// AccountInfo is a snapshot of an account and its ledger state.
type AccountInfo struct {
	Account          account.ID
	PublicKey        string
	Balance          *uint256.Int
	PendingBalance   *uint256.Int
	LastBlock        string
	LastPendingBlock string
	BlockCount       int
	Representative   account.ID
	Label            string
}

// Accounts returns a snapshot of every account in the order they were added.
func (w *Wallet) Accounts() []AccountInfo {
	w.mu.Lock()
	defer w.mu.Unlock()

	infos := make([]AccountInfo, len(w.keys))
	for i, e := range w.keys {
		infos[i] = w.info(e)
	}

	return infos
}

// Account returns a snapshot of the specified account.
func (w *Wallet) Account(acc account.ID) (AccountInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return AccountInfo{}, err
	}

	return w.info(e), nil
}

// info builds the snapshot for the entry.
func (w *Wallet) info(e *entry) AccountInfo {
	return AccountInfo{
		Account:          e.key.Account,
		PublicKey:        e.key.PublicHex(),
		Balance:          e.balance.Clone(),
		PendingBalance:   w.pendingBalance(e.key.Account),
		LastBlock:        e.lastBlock,
		LastPendingBlock: e.lastPendingBlock,
		BlockCount:       len(e.chain),
		Representative:   e.representative,
		Label:            e.label,
	}
}

// SetLabel attaches a label to the account.
func (w *Wallet) SetLabel(acc account.ID, label string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return err
	}

	e.label = label
	w.version++

	return nil
}

// Representative returns the representative of the account. Accounts
// without an open block report the representative their open block will use.
func (w *Wallet) Representative(acc account.ID) (account.ID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return "", err
	}

	if e.representative == "" {
		return w.representative, nil
	}

	return e.representative, nil
}

// entry locates the entry for the account.
func (w *Wallet) entry(acc account.ID) (*entry, error) {
	acc = acc.Canonical()
	for _, e := range w.keys {
		if e.key.Account == acc {
			return e, nil
		}
	}

	return nil, errors.Wrapf(ErrAccountNotFound, "account[%s]", acc)
}

// =============================================================================

// recentSize is the number of confirmed blocks kept in the recent cache.
const recentSize = 50

// RecentTx describes a block recently added to a chain.
type RecentTx struct {
	Hash    string     `json:"hash"`
	Account account.ID `json:"account"`
	Type    block.Type `json:"type"`
	Amount  string     `json:"amount"`
	Peer    account.ID `json:"peer,omitempty"`
}

// Recent returns the recently confirmed blocks, newest first.
func (w *Wallet) Recent() []RecentTx {
	w.mu.Lock()
	defer w.mu.Unlock()

	txs := make([]RecentTx, len(w.recent))
	for i, tx := range w.recent {
		txs[len(w.recent)-1-i] = tx
	}

	return txs
}

// addRecent records the confirmed block in the recent cache.
func (w *Wallet) addRecent(blk block.Block) {
	tx := RecentTx{
		Hash:    blk.Hash(),
		Account: blk.Account,
		Type:    blk.Type,
		Amount:  blk.Amount.Dec(),
	}

	switch blk.Type {
	case block.TypeSend:
		tx.Peer = blk.Destination
	case block.TypeOpen, block.TypeReceive:
		tx.Peer = blk.Origin
	}

	w.recent = append(w.recent, tx)
	if len(w.recent) > recentSize {
		w.recent = append([]RecentTx(nil), w.recent[len(w.recent)-recentSize:]...)
	}
}

// sameHash compares two hex hashes ignoring case.
func sameHash(a string, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
