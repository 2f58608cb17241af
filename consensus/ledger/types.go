package ledger

import (
	"errors"

	"comicdao/comicdao"
)

var (
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrOverflow      = errors.New("mint would overflow the total supply")
	ErrNotWired      = errors.New("ledger has not been wired to a minter")
	ErrAlreadyWired  = errors.New("ledger is already wired")
	ErrUnauthorized  = errors.New("caller is not the minter")
)

// Checkpoint is a balance as it was after the Seq'th mint, written at Height.
type Checkpoint struct {
	Height  int64              `json:"height"`
	Seq     int64              `json:"seq"`
	Balance comicdao.VotePower `json:"balance"`
}

type holding struct {
	Balance     comicdao.VotePower `json:"balance"`
	Checkpoints []Checkpoint       `json:"checkpoints"`
}

// persisted is the on-disk layout of the ledger
type persisted struct {
	Seq      int64                        `json:"seq"`
	Accounts map[comicdao.Account]holding `json:"accounts"`
	Supply   []Checkpoint                 `json:"supply"`
}
