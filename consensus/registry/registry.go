/*
Package registry is the ProposalRegistry. It is the organisation's front door: contributions are turned
into governance tokens here, proposals are created and identified here and approved proposals are
committed to the canonical per-category lists exactly once.
*/
package registry

import (
	"fmt"
	"math"
	"os"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/sasha-s/go-deadlock"

	"comicdao/comicdao"
	"comicdao/consensus/governor"
	"comicdao/database"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Registry struct {
	clock        comicdao.Clock
	mutex        *deadlock.RWMutex
	tokens       Minter
	engine       Engine
	records      map[governor.ProposalID]*Record
	canonical    map[Category][]Payload
	treasury     comicdao.VotePower
	contributors map[comicdao.Account]comicdao.VotePower
}

func New(clock comicdao.Clock) *Registry {
	return &Registry{
		clock:        clock,
		mutex:        &deadlock.RWMutex{},
		records:      make(map[governor.ProposalID]*Record),
		canonical:    make(map[Category][]Payload),
		contributors: make(map[comicdao.Account]comicdao.VotePower),
	}
}

// Account is the identity the registry mints with. Nobody holds a key for it.
func Account() comicdao.Account {
	return comicdao.Sha256("comicdao/registry")
}

func (r *Registry) Account() comicdao.Account {
	return Account()
}

// Wire links the registry to the token ledger and the governance engine. It can be called once.
func (r *Registry) Wire(tokens Minter, engine Engine) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.tokens != nil || r.engine != nil {
		return ErrAlreadyWired
	}
	if tokens == nil || engine == nil {
		return ErrNotWired
	}
	r.tokens = tokens
	r.engine = engine
	return nil
}

func (r *Registry) wired() bool {
	return r.tokens != nil && r.engine != nil
}

// Contribute issues amount governance tokens to contributor, one token per unit contributed.
func (r *Registry) Contribute(contributor comicdao.Account, amount comicdao.VotePower) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if !r.wired() {
		return ErrNotWired
	}
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if amount > math.MaxInt64-r.treasury {
		return fmt.Errorf("%w: treasury would overflow", ErrInvalidAmount)
	}
	if err := r.tokens.Mint(Account(), contributor, amount); err != nil {
		return err
	}
	r.treasury += amount
	r.contributors[contributor] += amount
	comicdao.LogCLI(fmt.Sprintf("%s contributed %d", contributor, amount), 4)
	return nil
}

// GetProposalID computes the id of (category, payload) without touching any state.
func GetProposalID(category Category, payload string) (governor.ProposalID, error) {
	p, err := ParsePayload(category, payload)
	if err != nil {
		return "", err
	}
	return ProposalID(category, p), nil
}

func (r *Registry) GetProposalID(category Category, payload string) (governor.ProposalID, error) {
	return GetProposalID(category, payload)
}

// CreateProposal registers a proposal and asks the engine to open its voting window.
func (r *Registry) CreateProposal(proposer comicdao.Account, category Category, payload string) (governor.ProposalID, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if !r.wired() {
		return "", ErrNotWired
	}
	p, err := ParsePayload(category, payload)
	if err != nil {
		return "", err
	}
	id := ProposalID(category, p)
	if _, exists := r.records[id]; exists {
		return id, fmt.Errorf("%w: %s %s", ErrDuplicateProposal, category, FormatPayload(category, p))
	}
	proposal, err := r.engine.Propose(id)
	if err != nil {
		return id, err
	}
	r.records[id] = &Record{
		ID:       id,
		Category: category,
		Payload:  p,
		Proposer: proposer,
		Created:  proposal.Created,
	}
	comicdao.LogCLI(fmt.Sprintf("new %s proposal %s: %s", category, id, FormatPayload(category, p)), 4)
	return id, nil
}

// ExecuteProposal commits an approved proposal to its canonical list. Either the payload is appended
// and the proposal is marked Executed, or nothing changes.
func (r *Registry) ExecuteProposal(executor comicdao.Account, category Category, payload string) (governor.ProposalID, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if !r.wired() {
		return "", ErrNotWired
	}
	p, err := ParsePayload(category, payload)
	if err != nil {
		return "", err
	}
	id := ProposalID(category, p)
	record, ok := r.records[id]
	if !ok {
		return id, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	state, err := r.engine.State(id)
	if err != nil {
		return id, err
	}
	switch state {
	case governor.Succeeded:
	case governor.Executed:
		return id, ErrAlreadyExecuted
	default:
		return id, fmt.Errorf("%w: proposal is %s", ErrNotSucceeded, state)
	}
	if record.Executed {
		comicdao.LogCLI("registry and governor disagree on execution of "+id, 1)
		return id, ErrAlreadyExecuted
	}
	if err := r.engine.MarkExecuted(id); err != nil {
		return id, err
	}
	r.canonical[category] = append(r.canonical[category], p)
	record.Executed = true
	record.ExecutedAt = r.clock.Height()
	record.Executor = executor
	comicdao.LogCLI(fmt.Sprintf("executed %s proposal %s: %s", category, id, FormatPayload(category, p)), 3)
	return id, nil
}

// Canonical returns the i'th entry of a category's canonical list in its human form.
func (r *Registry) Canonical(category Category, i int64) (string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if !category.Valid() {
		return "", fmt.Errorf("%w: %d", ErrUnknownCategory, category)
	}
	list := r.canonical[category]
	if i < 0 || i >= int64(len(list)) {
		return "", fmt.Errorf("%w: %s has %d entries, requested %d", ErrIndexOutOfRange, category, len(list), i)
	}
	return FormatPayload(category, list[i]), nil
}

func (r *Registry) CanonicalLen(category Category) int64 {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return int64(len(r.canonical[category]))
}

func (r *Registry) Writers(i int64) (string, error) {
	return r.Canonical(Writer, i)
}

func (r *Registry) Artists(i int64) (string, error) {
	return r.Canonical(Artist, i)
}

func (r *Registry) Concepts(i int64) (string, error) {
	return r.Canonical(Concept, i)
}

// Root is the merkle root over every canonical list, in category order. It is empty if nothing has been executed.
func (r *Registry) Root() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	var leaves [][]byte
	for _, c := range AllCategories() {
		for _, p := range r.canonical[c] {
			leaf := append([]byte{byte(c)}, p...)
			leaves = append(leaves, leaf)
		}
	}
	root := comicdao.Merkle(leaves)
	if len(root) == 0 {
		return ""
	}
	return fmt.Sprintf("%x", root[0])
}

func (r *Registry) Record(id governor.ProposalID) (Record, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	record, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return *record, true
}

// Proposals returns every record ordered by creation height, then id.
func (r *Registry) Proposals() []Record {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	var records []Record
	for _, record := range r.records {
		records = append(records, *record)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Created != records[j].Created {
			return records[i].Created < records[j].Created
		}
		return records[i].ID < records[j].ID
	})
	return records
}

// Treasury is the total ever contributed.
func (r *Registry) Treasury() comicdao.VotePower {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.treasury
}

func (r *Registry) Contributed(account comicdao.Account) comicdao.VotePower {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.contributors[account]
}

// HashSeq returns a deterministic hash of the registry. Sequence is the number of executed proposals.
func (r *Registry) HashSeq() (hs comicdao.HashSeq) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	hs.Mind = "registry"
	var ids []governor.ProposalID
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var toHash []any
	for _, id := range ids {
		record := r.records[id]
		toHash = append(toHash, id, []byte(record.Payload), record.Proposer, record.Created, record.Executed, record.ExecutedAt, record.Executor)
	}
	for _, c := range AllCategories() {
		for _, p := range r.canonical[c] {
			toHash = append(toHash, []byte{byte(c)}, []byte(p))
			hs.Sequence++
		}
	}
	toHash = append(toHash, r.treasury)
	var accounts []comicdao.Account
	for account := range r.contributors {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	for _, account := range accounts {
		toHash = append(toHash, account, r.contributors[account])
	}
	for _, d := range toHash {
		if err := hs.AppendData(d); err != nil {
			comicdao.LogCLI(err.Error(), 1)
		}
	}
	hs.S256()
	hs.CreatedAt = r.clock.Height()
	return
}

func (r *Registry) Save() (comicdao.HashSeq, error) {
	hs := r.HashSeq()
	r.mutex.RLock()
	p := persisted{
		Records:      make(map[governor.ProposalID]Record),
		Canonical:    r.canonical,
		Treasury:     r.treasury,
		Contributors: r.contributors,
	}
	for id, record := range r.records {
		p.Records[id] = *record
	}
	b, err := json.MarshalIndent(p, "", " ")
	r.mutex.RUnlock()
	if err != nil {
		return hs, err
	}
	if err := database.Write("registry", hs.Hash, b); err != nil {
		return hs, err
	}
	return hs, database.Write("registry", "current", b)
}

// Restore loads the registry from f and closes it. Wiring is not persisted.
func (r *Registry) Restore(f *os.File) error {
	defer f.Close()
	var p persisted
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		if err.Error() == "EOF" {
			return nil
		}
		return fmt.Errorf("restoring registry: %w", err)
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.records = make(map[governor.ProposalID]*Record, len(p.Records))
	for id, record := range p.Records {
		record := record
		r.records[id] = &record
	}
	r.canonical = p.Canonical
	if r.canonical == nil {
		r.canonical = make(map[Category][]Payload)
	}
	r.contributors = p.Contributors
	if r.contributors == nil {
		r.contributors = make(map[comicdao.Account]comicdao.VotePower)
	}
	r.treasury = p.Treasury
	return nil
}
