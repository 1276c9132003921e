package wallet

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/cipher"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/keyring"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/signature"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/workpool"
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
)

// Layout of the packed blob: checksum, salt, then the ciphertext. The salt
// doubles as the cipher IV.
const (
	checksumSize = signature.HashSize
	saltSize     = cipher.BlockSize
)

// packedKey is the persisted form of an account.
type packedKey struct {
	Priv           string        `json:"priv"`
	Pub            string        `json:"pub"`
	Account        account.ID    `json:"account"`
	Balance        string        `json:"balance"`
	PendingBalance string        `json:"pendingBalance"`
	LastBlock      string        `json:"lastBlock"`
	Chain          []block.Block `json:"chain"`
	Representative account.ID    `json:"representative"`
	Label          string        `json:"label"`
}

// packed is the persisted form of the wallet before encryption.
type packed struct {
	Keys           []packedKey      `json:"keys"`
	ReadyBlocks    []block.Block    `json:"readyBlocks"`
	Seed           string           `json:"seed"`
	Last           int              `json:"last"`
	Recent         []RecentTx       `json:"recent"`
	RemoteWork     []workpool.Entry `json:"remoteWork"`
	AutoWork       bool             `json:"autoWork"`
	MinimumReceive string           `json:"minimumReceive"`
}

// =============================================================================

// Pack serializes the wallet, checksums it, and encrypts it under a key
// derived from the passphrase and a random salt. The result is the hex
// encoding of checksum, salt and ciphertext.
func (w *Wallet) Pack() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := packed{
		Keys:           make([]packedKey, len(w.keys)),
		ReadyBlocks:    append([]block.Block{}, w.ready...),
		Last:           w.lastKeyIndex,
		Recent:         append([]RecentTx{}, w.recent...),
		RemoteWork:     append([]workpool.Entry{}, w.pool.Entries()...),
		AutoWork:       w.autoWork,
		MinimumReceive: w.minimumReceive.Dec(),
	}

	if w.seed != nil {
		p.Seed = keyring.SeedHex(w.seed)
	}

	for i, e := range w.keys {
		p.Keys[i] = packedKey{
			Priv:           e.key.PrivateHex(),
			Pub:            e.key.PublicHex(),
			Account:        e.key.Account,
			Balance:        e.balance.Dec(),
			PendingBalance: w.pendingBalance(e.key.Account).Dec(),
			LastBlock:      e.lastBlock,
			Chain:          append([]block.Block{}, e.chain...),
			Representative: e.representative,
			Label:          e.label,
		}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "marshal")
	}

	checksum := signature.Hash256(data)

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "salt")
	}

	key := cipher.DeriveKey(w.passphrase, salt, w.iterations)

	encrypted, err := cipher.Encrypt(data, key, salt, cipher.ISO10126)
	if err != nil {
		return "", errors.Wrap(err, "encrypt")
	}

	w.checksum = checksum

	blob := make([]byte, 0, checksumSize+saltSize+len(encrypted))
	blob = append(blob, checksum...)
	blob = append(blob, salt...)
	blob = append(blob, encrypted...)

	return hex.EncodeToString(blob), nil
}

// Load replaces the wallet state with the contents of the blob. Nothing
// changes when the blob can't be decrypted, fails its checksum, or holds
// invalid data. The work pool starts empty apart from the next work target
// of every account.
func (w *Wallet) Load(blob string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	raw, err := hex.DecodeString(strings.TrimSpace(blob))
	if err != nil {
		return errors.Wrapf(ErrMalformedBlob, "hex: %s", err)
	}

	if len(raw) < checksumSize+saltSize+cipher.BlockSize {
		return errors.Wrapf(ErrMalformedBlob, "blob is %d bytes", len(raw))
	}

	checksum := raw[:checksumSize]
	salt := raw[checksumSize : checksumSize+saltSize]
	payload := raw[checksumSize+saltSize:]

	if len(payload)%cipher.BlockSize != 0 {
		return errors.Wrapf(ErrMalformedBlob, "ciphertext is %d bytes", len(payload))
	}

	key := cipher.DeriveKey(w.passphrase, salt, w.iterations)

	data, err := cipher.Decrypt(payload, key, salt, cipher.ISO10126)
	if err != nil {
		return errors.Wrapf(ErrWalletCorrupted, "decrypt: %s", err)
	}

	if subtle.ConstantTimeCompare(signature.Hash256(data), checksum) != 1 {
		return ErrWalletCorrupted
	}

	var p packed
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.Wrapf(ErrMalformedBlob, "unmarshal: %s", err)
	}

	st, err := unpack(p)
	if err != nil {
		return errors.Wrapf(ErrMalformedBlob, "%s", err)
	}

	w.seed = st.seed
	w.lastKeyIndex = p.Last
	w.keys = st.keys
	w.ready = st.ready
	w.recent = p.Recent
	w.autoWork = p.AutoWork
	w.minimumReceive = st.minimumReceive
	w.pending = nil
	w.errored = nil
	w.checksum = append([]byte(nil), checksum...)

	w.pool.Reset()
	for _, e := range w.keys {
		if e.lastPendingBlock != "" {
			w.pool.Add(e.lastPendingBlock, e.key.Account, true)
		}
	}

	w.recalculate()

	w.evHandler("wallet: Load: loaded: accounts[%d] ready[%d]", len(w.keys), len(w.ready))

	return nil
}

// Checksum returns the checksum of the last packed or loaded state.
func (w *Wallet) Checksum() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return strings.ToUpper(hex.EncodeToString(w.checksum))
}

// =============================================================================

// unpacked holds the rebuilt state until it is swapped into the wallet.
type unpacked struct {
	seed           []byte
	keys           []*entry
	ready          []block.Block
	minimumReceive uint256.Int
}

// unpack rebuilds and validates the state held by the packed wallet.
func unpack(p packed) (unpacked, error) {
	var st unpacked

	if p.Seed != "" {
		seed, err := keyring.ParseSeed(p.Seed)
		if err != nil {
			return unpacked{}, err
		}
		st.seed = seed
	}

	st.minimumReceive.SetOne()
	if p.MinimumReceive != "" {
		if err := st.minimumReceive.SetFromDecimal(p.MinimumReceive); err != nil {
			return unpacked{}, errors.Wrap(err, "minimum receive")
		}
	}

	for i, pk := range p.Keys {
		e, err := unpackKey(pk)
		if err != nil {
			return unpacked{}, errors.Wrapf(err, "key %d", i)
		}
		st.keys = append(st.keys, e)
	}

	st.ready = p.ReadyBlocks

	return st, nil
}

// unpackKey rebuilds an account and checks the stored public key, account
// and chain linkage agree with the private key.
func unpackKey(pk packedKey) (*entry, error) {
	key, err := keyring.FromHex(pk.Priv)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(key.PublicHex(), pk.Pub) || key.Account != pk.Account.Canonical() {
		return nil, errors.Newf("key mismatch for account %s", pk.Account)
	}

	e := entry{
		key:            key,
		chain:          pk.Chain,
		representative: pk.Representative,
		label:          pk.Label,
	}

	for i := range e.chain {
		blk := &e.chain[i]
		blk.Account = key.Account

		switch {
		case i == 0 && blk.Type != block.TypeOpen:
			return nil, errors.Newf("chain for %s does not start with an open block", key.Account)
		case i > 0 && !sameHash(blk.Previous, e.chain[i-1].Hash()):
			return nil, errors.Newf("chain for %s is broken at block %d", key.Account, i)
		}
	}

	if len(e.chain) > 0 {
		e.lastBlock = e.chain[len(e.chain)-1].Hash()
	}
	e.lastPendingBlock = e.lastBlock

	// Only an account without blocks relies on the stored balance.
	if len(e.chain) == 0 && pk.Balance != "" {
		if err := e.balance.SetFromDecimal(pk.Balance); err != nil {
			return nil, errors.Wrapf(err, "balance for %s", key.Account)
		}
	}

	if e.representative == "" {
		e.representative = chainRepresentative(e.chain)
	}

	return &e, nil
}
