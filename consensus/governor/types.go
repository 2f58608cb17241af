package governor

import (
	"errors"
	"fmt"

	"comicdao/comicdao"
)

var (
	ErrUnknownProposal   = errors.New("unknown proposal")
	ErrDuplicateProposal = errors.New("proposal already exists")
	ErrVotingClosed      = errors.New("voting is not open")
	ErrAlreadyVoted      = errors.New("account has already voted")
	ErrInvalidSupport    = errors.New("invalid vote type")
	ErrNotSucceeded      = errors.New("proposal has not succeeded")
	ErrAlreadyExecuted   = errors.New("proposal has already been executed")
	ErrNotWired          = errors.New("governor has not been wired to a token ledger")
	ErrAlreadyWired      = errors.New("governor is already wired")
)

type ProposalID = comicdao.S256Hash

// State values are stable, they are part of the wire format.
type State int

const (
	Pending   State = 0
	Active    State = 1
	Defeated  State = 3
	Succeeded State = 4
	Executed  State = 7
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Active:
		return "Active"
	case Defeated:
		return "Defeated"
	case Succeeded:
		return "Succeeded"
	case Executed:
		return "Executed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Support int

const (
	Against Support = 0
	For     Support = 1
	Abstain Support = 2
)

func (s Support) Valid() bool {
	return s == Against || s == For || s == Abstain
}

func (s Support) String() string {
	switch s {
	case Against:
		return "Against"
	case For:
		return "For"
	case Abstain:
		return "Abstain"
	}
	return fmt.Sprintf("Support(%d)", int(s))
}

type Tally struct {
	For     comicdao.VotePower `json:"for"`
	Against comicdao.VotePower `json:"against"`
	Abstain comicdao.VotePower `json:"abstain"`
}

// Total is every vote cast, which is what quorum is measured against.
func (t Tally) Total() comicdao.VotePower {
	return t.For + t.Against + t.Abstain
}

type Receipt struct {
	Support Support            `json:"support"`
	Weight  comicdao.VotePower `json:"weight"`
}

type Proposal struct {
	ID         ProposalID                   `json:"id"`
	Created    int64                        `json:"created"`
	Snapshot   comicdao.Mark                `json:"snapshot"` // voting power is resolved here, never moves
	Start      int64                        `json:"start"`    // first height at which votes are accepted
	Deadline   int64                        `json:"deadline"` // last height at which votes are accepted
	Tally      Tally                        `json:"tally"`
	Voters     map[comicdao.Account]Receipt `json:"voters"`
	Executed   bool                         `json:"executed"`
	ExecutedAt int64                        `json:"executed_at"`
}

func (p Proposal) copy() Proposal {
	voters := make(map[comicdao.Account]Receipt, len(p.Voters))
	for account, r := range p.Voters {
		voters[account] = r
	}
	p.Voters = voters
	return p
}

// VotingConfig is fixed for the lifetime of a Governor.
type VotingConfig struct {
	Delay          int64              `json:"voting_delay"`  // ticks between creation and the window opening
	Period         int64              `json:"voting_period"` // ticks the window stays open
	QuorumPermille int64              `json:"quorum_permille"`
	QuorumMinimum  comicdao.VotePower `json:"quorum_minimum"`
}

func (c VotingConfig) Validate() error {
	if c.Delay < 0 {
		return fmt.Errorf("voting delay %d is negative", c.Delay)
	}
	if c.Period < 1 {
		return fmt.Errorf("voting period must be at least one tick, got %d", c.Period)
	}
	if c.QuorumPermille < 0 || c.QuorumPermille > 1000 {
		return fmt.Errorf("quorum permille %d out of range", c.QuorumPermille)
	}
	if c.QuorumMinimum < 0 {
		return fmt.Errorf("quorum minimum %d is negative", c.QuorumMinimum)
	}
	return nil
}

// Votes is what the governor needs from the token ledger.
type Votes interface {
	Mark() comicdao.Mark
	VotingPowerAt(account comicdao.Account, height int64) comicdao.VotePower
	VotingPowerAtMark(account comicdao.Account, mark comicdao.Mark) comicdao.VotePower
	TotalSupplyAtMark(mark comicdao.Mark) comicdao.VotePower
}

type Turnout struct {
	Voters       int                `json:"voters"`
	Cast         comicdao.VotePower `json:"cast"`
	Supply       comicdao.VotePower `json:"supply"`
	Permille     int64              `json:"permille"`
	MedianWeight float64            `json:"median_weight"`
	MeanWeight   float64            `json:"mean_weight"`
}
