package sim

import (
	"encoding/json"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
)

// AccountState is the serialized local state of one account.
type AccountState struct {
	Balance int64 `json:"balance"`
}

// Transfer is the payload of one token transfer message.
type Transfer struct {
	Amount int64 `json:"amount"`
}

// EncodeTransfer serializes a transfer payload.
func EncodeTransfer(amount int64) []byte {
	b, _ := json.Marshal(Transfer{Amount: amount})
	return b
}

// DecodeTransfer parses a transfer payload.
func DecodeTransfer(payload []byte) (Transfer, error) {
	var t Transfer
	if err := json.Unmarshal(payload, &t); err != nil {
		return Transfer{}, domain.ErrFrameInvalid.WithDetails("malformed transfer payload").WithCause(err)
	}
	return t, nil
}

// DecodeAccountState parses a captured account state.
func DecodeAccountState(state []byte) (AccountState, error) {
	var s AccountState
	if err := json.Unmarshal(state, &s); err != nil {
		return AccountState{}, domain.ErrInvalidArgument.WithDetails("malformed account state").WithCause(err)
	}
	return s, nil
}

// Account is the application hosted on each node. It is only ever
// touched from the owning node's event loop, via HandleMessage,
// CaptureState and Apply closures, so it carries no locking.
type Account struct {
	balance int64
	log     logger.Logger
}

// NewAccount creates an account with the given starting balance.
func NewAccount(initial int64) *Account {
	return &Account{balance: initial, log: logger.Default()}
}

// Balance returns the current balance.
func (a *Account) Balance() int64 { return a.balance }

// Withdraw deducts amount if covered; reports whether it did.
func (a *Account) Withdraw(amount int64) bool {
	if amount <= 0 || amount > a.balance {
		return false
	}
	a.balance -= amount
	return true
}

// CaptureState serializes the balance for a snapshot contribution.
func (a *Account) CaptureState() []byte {
	b, _ := json.Marshal(AccountState{Balance: a.balance})
	return b
}

// HandleMessage deposits an incoming transfer.
func (a *Account) HandleMessage(channel domain.ChannelID, payload []byte) {
	t, err := DecodeTransfer(payload)
	if err != nil {
		a.log.Warn("dropping malformed transfer", "channel_id", string(channel), "error", err)
		return
	}
	a.balance += t.Amount
}
