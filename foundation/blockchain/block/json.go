package block

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
)

// blockJSON is the shape of a block on the wire and at rest. The node form
// only carries the fields that feed the hash plus work and signature. The
// persisted form adds the bookkeeping fields.
type blockJSON struct {
	Type           string `json:"type"`
	Previous       string `json:"previous,omitempty"`
	Source         string `json:"source,omitempty"`
	Destination    string `json:"destination,omitempty"`
	Balance        string `json:"balance,omitempty"`
	Representative string `json:"representative,omitempty"`
	Account        string `json:"account,omitempty"`
	Work           string `json:"work"`
	Signature      string `json:"signature"`
	Amount         string `json:"amount,omitempty"`
	Origin         string `json:"origin,omitempty"`
	Immutable      bool   `json:"immutable,omitempty"`
}

// NodeJSON returns the block in the form the node accepts for processing.
func (b Block) NodeJSON() ([]byte, error) {
	bj := blockJSON{
		Type:      string(b.Type),
		Work:      b.Work,
		Signature: b.Signature,
	}

	switch b.Type {
	case TypeOpen:
		bj.Source = b.Source
		bj.Representative = string(b.Representative)
		bj.Account = string(b.Account)
	case TypeReceive:
		bj.Previous = b.Previous
		bj.Source = b.Source
	case TypeSend:
		bj.Previous = b.Previous
		bj.Destination = string(b.Destination)
		bj.Balance = strings.ToUpper(hex.EncodeToString(b.balanceBytes()))
	case TypeChange:
		bj.Previous = b.Previous
		bj.Representative = string(b.Representative)
	default:
		return nil, errors.Wrapf(ErrInvalidType, "%q", b.Type)
	}

	return json.Marshal(bj)
}

// MarshalJSON implements the json.Marshaler interface and produces the
// persisted form of the block.
func (b Block) MarshalJSON() ([]byte, error) {
	bj := blockJSON{
		Type:           string(b.Type),
		Previous:       b.Previous,
		Source:         b.Source,
		Destination:    string(b.Destination),
		Representative: string(b.Representative),
		Account:        string(b.Account),
		Work:           b.Work,
		Signature:      b.Signature,
		Amount:         b.Amount.Dec(),
		Origin:         string(b.Origin),
		Immutable:      b.Immutable,
	}

	if b.Type == TypeSend {
		bj.Balance = strings.ToUpper(hex.EncodeToString(b.balanceBytes()))
	}

	return json.Marshal(bj)
}

// UnmarshalJSON implements the json.Unmarshaler interface. Both the node and
// the persisted forms are accepted.
func (b *Block) UnmarshalJSON(data []byte) error {
	var bj blockJSON
	if err := json.Unmarshal(data, &bj); err != nil {
		return err
	}

	nb := Block{
		Type:           Type(bj.Type),
		Previous:       strings.ToUpper(bj.Previous),
		Source:         strings.ToUpper(bj.Source),
		Destination:    account.ID(bj.Destination),
		Representative: account.ID(bj.Representative),
		Account:        account.ID(bj.Account),
		Work:           strings.ToLower(bj.Work),
		Signature:      strings.ToUpper(bj.Signature),
		Origin:         account.ID(bj.Origin),
		Immutable:      bj.Immutable,
	}

	if bj.Balance != "" {
		if err := setHex(&nb.Balance, bj.Balance); err != nil {
			return err
		}
	}

	if bj.Amount != "" {
		if err := nb.Amount.SetFromDecimal(bj.Amount); err != nil {
			return errors.Wrapf(ErrInvalidField, "amount: %s", err)
		}
	}

	// Blocks from the node don't carry the account unless they are open
	// blocks. The caller attaches the account after decoding.
	if err := nb.Validate(); err != nil {
		return err
	}

	*b = nb
	return nil
}

// Decode parses a block in either the node or the persisted form.
func Decode(data []byte) (Block, error) {
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return Block{}, err
	}

	return b, nil
}

// =============================================================================

// setHex decodes a 128 bit big endian hex value.
func setHex(z *uint256.Int, s string) error {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != balanceSize {
		return errors.Wrapf(ErrInvalidField, "balance: %q", s)
	}

	z.SetBytes(raw)
	return nil
}
