package conductor

import (
	"errors"

	"comicdao/comicdao"
	"comicdao/consensus/governor"
	"comicdao/consensus/sequence"
)

const (
	KindContribute      int64 = 650100
	KindCreateProposal  int64 = 650200
	KindExecuteProposal int64 = 650202
	KindCastVote        int64 = 650300
)

var (
	ErrNotWired       = errors.New("conductor has not been wired")
	ErrAlreadyWired   = errors.New("conductor is already wired")
	ErrBadSignature   = errors.New("invalid event signature")
	ErrBadSequence    = sequence.ErrBadSequence
	ErrReplay         = errors.New("event has already been seen")
	ErrUnknownKind    = errors.New("unknown event kind")
	ErrInvalidContent = errors.New("invalid event content")
)

func init() {
	if err := comicdao.RegisterMind([]int64{KindContribute, KindCreateProposal, KindExecuteProposal}, "registry"); err != nil {
		comicdao.LogCLI(err.Error(), 0)
	}
	if err := comicdao.RegisterMind([]int64{KindCastVote}, "governor"); err != nil {
		comicdao.LogCLI(err.Error(), 0)
	}
}

// Kind650100 contributes Amount and mints the same number of governance tokens to the signer.
type Kind650100 struct {
	Amount int64 `json:"amount"`
}

// Kind650200 creates a proposal. Category is a name ("writer") or a number.
type Kind650200 struct {
	Category any    `json:"category"`
	Payload  string `json:"payload"`
}

// Kind650202 executes a succeeded proposal.
type Kind650202 struct {
	Category any    `json:"category"`
	Payload  string `json:"payload"`
}

// Kind650300 casts the signer's vote on Proposal.
type Kind650300 struct {
	Proposal governor.ProposalID `json:"proposal"`
	Support  governor.Support    `json:"support"`
}
