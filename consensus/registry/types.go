package registry

import (
	"errors"

	"comicdao/comicdao"
	"comicdao/consensus/governor"
	"comicdao/consensus/ledger"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrNotFound        = errors.New("proposal not found")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNotWired        = errors.New("registry has not been wired")
	ErrAlreadyWired    = errors.New("registry is already wired")

	ErrInvalidAmount     = ledger.ErrInvalidAmount
	ErrDuplicateProposal = governor.ErrDuplicateProposal
	ErrNotSucceeded      = governor.ErrNotSucceeded
	ErrAlreadyExecuted   = governor.ErrAlreadyExecuted
)

// Minter is the part of the token ledger the registry issues tokens through.
type Minter interface {
	Mint(minter, account comicdao.Account, amount comicdao.VotePower) error
}

// Engine is the part of the governance engine the registry drives.
type Engine interface {
	Propose(id governor.ProposalID) (governor.Proposal, error)
	State(id governor.ProposalID) (governor.State, error)
	MarkExecuted(id governor.ProposalID) error
}

// Record is the registry's view of a proposal. Voting state lives in the governor.
type Record struct {
	ID         governor.ProposalID `json:"id"`
	Category   Category            `json:"category"`
	Payload    Payload             `json:"payload"`
	Proposer   comicdao.Account    `json:"proposer"`
	Created    int64               `json:"created"`
	Executed   bool                `json:"executed"`
	ExecutedAt int64               `json:"executed_at"`
	Executor   comicdao.Account    `json:"executor,omitempty"`
}

type persisted struct {
	Records      map[governor.ProposalID]Record          `json:"records"`
	Canonical    map[Category][]Payload                  `json:"canonical"`
	Treasury     comicdao.VotePower                      `json:"treasury"`
	Contributors map[comicdao.Account]comicdao.VotePower `json:"contributors"`
}
