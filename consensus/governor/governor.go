/*
Package governor is the GovernanceEngine. It owns the voting state machine of every proposal:
the voting power snapshot, vote accumulation, quorum and majority evaluation and the
Pending -> Active -> Succeeded/Defeated -> Executed lifecycle.

State is computed from the current height and the tally whenever it is asked for. The only state
that is stored is execution, which is written once by MarkExecuted.
*/
package governor

import (
	"fmt"
	"os"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/montanaflynn/stats"
	"github.com/sasha-s/go-deadlock"

	"comicdao/comicdao"
	"comicdao/database"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Governor struct {
	config    VotingConfig
	clock     comicdao.Clock
	tokens    Votes
	mutex     *deadlock.RWMutex
	proposals map[ProposalID]*Proposal
}

func New(config VotingConfig, clock comicdao.Clock) (*Governor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Governor{
		config:    config,
		clock:     clock,
		mutex:     &deadlock.RWMutex{},
		proposals: make(map[ProposalID]*Proposal),
	}, nil
}

// Wire links the governor to the token ledger it reads voting power from. It can be called once.
func (g *Governor) Wire(tokens Votes) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if g.tokens != nil {
		return ErrAlreadyWired
	}
	if tokens == nil {
		return ErrNotWired
	}
	g.tokens = tokens
	return nil
}

func (g *Governor) VotingDelay() int64 {
	return g.config.Delay
}

func (g *Governor) VotingPeriod() int64 {
	return g.config.Period
}

func (g *Governor) QuorumPermille() int64 {
	return g.config.QuorumPermille
}

func (g *Governor) Config() VotingConfig {
	return g.config
}

// Quorum returns the number of votes needed at height.
func (g *Governor) Quorum(height int64) (comicdao.VotePower, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	if g.tokens == nil {
		return 0, ErrNotWired
	}
	return g.quorumAt(comicdao.AtHeight(height)), nil
}

func (g *Governor) quorumAt(mark comicdao.Mark) comicdao.VotePower {
	q := comicdao.FractionOf(g.tokens.TotalSupplyAtMark(mark), g.config.QuorumPermille)
	if q < g.config.QuorumMinimum {
		return g.config.QuorumMinimum
	}
	return q
}

// GetVotes is the voting power of account at height, straight from the ledger.
func (g *Governor) GetVotes(account comicdao.Account, height int64) (comicdao.VotePower, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	if g.tokens == nil {
		return 0, ErrNotWired
	}
	return g.tokens.VotingPowerAt(account, height), nil
}

// Propose opens a voting window for id. The voting power snapshot is taken now and never moves.
func (g *Governor) Propose(id ProposalID) (Proposal, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if g.tokens == nil {
		return Proposal{}, ErrNotWired
	}
	if _, exists := g.proposals[id]; exists {
		return Proposal{}, fmt.Errorf("%w: %s", ErrDuplicateProposal, id)
	}
	snapshot := g.tokens.Mark()
	p := &Proposal{
		ID:       id,
		Created:  snapshot.Height,
		Snapshot: snapshot,
		Start:    snapshot.Height + g.config.Delay,
		Deadline: snapshot.Height + g.config.Delay + g.config.Period,
		Voters:   make(map[comicdao.Account]Receipt),
	}
	g.proposals[id] = p
	comicdao.LogMind(comicdao.MindLog{MindName: "governor", Comment: "opened voting window", Message: *p})
	return p.copy(), nil
}

// CastVote records the vote of voter. The weight is the voter's balance at the proposal's snapshot;
// a zero weight vote is recorded but changes nothing in the tally.
func (g *Governor) CastVote(voter comicdao.Account, id ProposalID, support Support) (comicdao.VotePower, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if g.tokens == nil {
		return 0, ErrNotWired
	}
	p, ok := g.proposals[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownProposal, id)
	}
	if !support.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSupport, support)
	}
	if s := g.state(p); s != Active {
		return 0, fmt.Errorf("%w: proposal is %s", ErrVotingClosed, s)
	}
	if _, voted := p.Voters[voter]; voted {
		return 0, ErrAlreadyVoted
	}
	weight := g.tokens.VotingPowerAtMark(voter, p.Snapshot)
	switch support {
	case For:
		p.Tally.For += weight
	case Against:
		p.Tally.Against += weight
	case Abstain:
		p.Tally.Abstain += weight
	}
	p.Voters[voter] = Receipt{Support: support, Weight: weight}
	return weight, nil
}

// State computes the lifecycle state of id at the current height.
func (g *Governor) State(id ProposalID) (State, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	if g.tokens == nil {
		return Pending, ErrNotWired
	}
	p, ok := g.proposals[id]
	if !ok {
		return Pending, fmt.Errorf("%w: %s", ErrUnknownProposal, id)
	}
	return g.state(p), nil
}

func (g *Governor) state(p *Proposal) State {
	if p.Executed {
		return Executed
	}
	now := g.clock.Height()
	if now < p.Start {
		return Pending
	}
	if now <= p.Deadline {
		return Active
	}
	if p.Tally.For > p.Tally.Against && p.Tally.Total() >= g.quorumAt(p.Snapshot) {
		return Succeeded
	}
	return Defeated
}

// MarkExecuted moves a Succeeded proposal to Executed. It is the only way into Executed.
func (g *Governor) MarkExecuted(id ProposalID) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if g.tokens == nil {
		return ErrNotWired
	}
	p, ok := g.proposals[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProposal, id)
	}
	switch s := g.state(p); s {
	case Succeeded:
	case Executed:
		return ErrAlreadyExecuted
	default:
		return fmt.Errorf("%w: proposal is %s", ErrNotSucceeded, s)
	}
	p.Executed = true
	p.ExecutedAt = g.clock.Height()
	return nil
}

func (g *Governor) Proposal(id ProposalID) (Proposal, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	p, ok := g.proposals[id]
	if !ok {
		return Proposal{}, false
	}
	return p.copy(), true
}

func (g *Governor) ProposalVotes(id ProposalID) (Tally, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	p, ok := g.proposals[id]
	if !ok {
		return Tally{}, fmt.Errorf("%w: %s", ErrUnknownProposal, id)
	}
	return p.Tally, nil
}

// HasVoted returns the receipt of account on id, if any.
func (g *Governor) HasVoted(id ProposalID, account comicdao.Account) (Receipt, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	p, ok := g.proposals[id]
	if !ok {
		return Receipt{}, false
	}
	r, ok := p.Voters[account]
	return r, ok
}

// Turnout summarises participation in id against the supply at its snapshot.
func (g *Governor) Turnout(id ProposalID) (Turnout, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	if g.tokens == nil {
		return Turnout{}, ErrNotWired
	}
	p, ok := g.proposals[id]
	if !ok {
		return Turnout{}, fmt.Errorf("%w: %s", ErrUnknownProposal, id)
	}
	t := Turnout{
		Voters: len(p.Voters),
		Cast:   p.Tally.Total(),
		Supply: g.tokens.TotalSupplyAtMark(p.Snapshot),
	}
	t.Permille = comicdao.Permille(t.Cast, t.Supply)
	if len(p.Voters) == 0 {
		return t, nil
	}
	var weights stats.Float64Data
	for _, r := range p.Voters {
		weights = append(weights, float64(r.Weight))
	}
	var err error
	if t.MedianWeight, err = stats.Median(weights); err != nil {
		return t, err
	}
	if t.MeanWeight, err = stats.Mean(weights); err != nil {
		return t, err
	}
	return t, nil
}

// HashSeq returns a deterministic hash of every proposal and vote. Sequence is the number of votes.
func (g *Governor) HashSeq() (hs comicdao.HashSeq) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	hs.Mind = "governor"
	var ids []ProposalID
	for id := range g.proposals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var toHash []any
	for _, id := range ids {
		p := g.proposals[id]
		toHash = append(toHash, id, p.Created, p.Snapshot.Height, p.Snapshot.Seq, p.Start, p.Deadline,
			p.Tally.For, p.Tally.Against, p.Tally.Abstain, p.Executed, p.ExecutedAt)
		var voters []comicdao.Account
		for account := range p.Voters {
			voters = append(voters, account)
		}
		sort.Strings(voters)
		for _, account := range voters {
			r := p.Voters[account]
			toHash = append(toHash, account, int64(r.Support), r.Weight)
			hs.Sequence++
		}
	}
	for _, d := range toHash {
		if err := hs.AppendData(d); err != nil {
			comicdao.LogCLI(err.Error(), 1)
		}
	}
	hs.S256()
	hs.CreatedAt = g.clock.Height()
	return
}

func (g *Governor) Save() (comicdao.HashSeq, error) {
	hs := g.HashSeq()
	g.mutex.RLock()
	b, err := json.MarshalIndent(g.proposals, "", " ")
	g.mutex.RUnlock()
	if err != nil {
		return hs, err
	}
	if err := database.Write("governor", hs.Hash, b); err != nil {
		return hs, err
	}
	return hs, database.Write("governor", "current", b)
}

// Restore loads proposals from f and closes it. The voting config always comes from the current config.
func (g *Governor) Restore(f *os.File) error {
	defer f.Close()
	proposals := make(map[ProposalID]*Proposal)
	if err := json.NewDecoder(f).Decode(&proposals); err != nil {
		if err.Error() == "EOF" {
			return nil
		}
		return fmt.Errorf("restoring governor: %w", err)
	}
	for _, p := range proposals {
		if p.Voters == nil {
			p.Voters = make(map[comicdao.Account]Receipt)
		}
	}
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.proposals = proposals
	return nil
}
