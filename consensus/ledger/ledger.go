/*
Package ledger is the TokenLedger. It tracks the governance token balance of every Account and keeps
an append-only checkpoint history so that voting power can be resolved as of any past moment.
*/
package ledger

import (
	"fmt"
	"math"
	"os"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/sasha-s/go-deadlock"

	"comicdao/comicdao"
	"comicdao/database"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Ledger struct {
	clock    comicdao.Clock
	mutex    *deadlock.RWMutex
	minter   comicdao.Account
	wired    bool
	seq      int64
	accounts map[comicdao.Account]*holding
	supply   []Checkpoint
}

func New(clock comicdao.Clock) *Ledger {
	return &Ledger{
		clock:    clock,
		mutex:    &deadlock.RWMutex{},
		accounts: make(map[comicdao.Account]*holding),
	}
}

// Wire sets the only Account allowed to mint. It can be called once.
func (l *Ledger) Wire(minter comicdao.Account) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.wired {
		return ErrAlreadyWired
	}
	if len(minter) == 0 {
		return fmt.Errorf("empty minter: %w", ErrUnauthorized)
	}
	l.minter = minter
	l.wired = true
	return nil
}

// Mint issues amount tokens to account and checkpoints the new balance and total supply at the current height.
func (l *Ledger) Mint(minter, account comicdao.Account, amount comicdao.VotePower) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if !l.wired {
		return ErrNotWired
	}
	if minter != l.minter {
		return ErrUnauthorized
	}
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	total := latest(l.supply)
	if amount > math.MaxInt64-total {
		return ErrOverflow
	}
	h, ok := l.accounts[account]
	if !ok {
		h = &holding{}
		l.accounts[account] = h
	}
	height := l.clock.Height()
	l.seq++
	h.Balance += amount
	h.Checkpoints = append(h.Checkpoints, Checkpoint{Height: height, Seq: l.seq, Balance: h.Balance})
	l.supply = append(l.supply, Checkpoint{Height: height, Seq: l.seq, Balance: total + amount})
	return nil
}

// BalanceOf returns the current balance, 0 for unknown accounts.
func (l *Ledger) BalanceOf(account comicdao.Account) comicdao.VotePower {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	if h, ok := l.accounts[account]; ok {
		return h.Balance
	}
	return 0
}

func (l *Ledger) TotalSupply() comicdao.VotePower {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return latest(l.supply)
}

// Mark returns the current position in the ledger's history.
func (l *Ledger) Mark() comicdao.Mark {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return comicdao.Mark{Height: l.clock.Height(), Seq: l.seq}
}

// VotingPowerAt returns the balance of account from the latest checkpoint at or before height.
func (l *Ledger) VotingPowerAt(account comicdao.Account, height int64) comicdao.VotePower {
	return l.VotingPowerAtMark(account, comicdao.AtHeight(height))
}

func (l *Ledger) VotingPowerAtMark(account comicdao.Account, mark comicdao.Mark) comicdao.VotePower {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	h, ok := l.accounts[account]
	if !ok {
		return 0
	}
	return at(h.Checkpoints, mark)
}

// TotalSupplyAt returns the total supply from the latest checkpoint at or before height.
func (l *Ledger) TotalSupplyAt(height int64) comicdao.VotePower {
	return l.TotalSupplyAtMark(comicdao.AtHeight(height))
}

func (l *Ledger) TotalSupplyAtMark(mark comicdao.Mark) comicdao.VotePower {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return at(l.supply, mark)
}

// Checkpoints returns a copy of the checkpoint history for account
func (l *Ledger) Checkpoints(account comicdao.Account) []Checkpoint {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	h, ok := l.accounts[account]
	if !ok {
		return nil
	}
	c := make([]Checkpoint, len(h.Checkpoints))
	copy(c, h.Checkpoints)
	return c
}

// Holders returns every account with a non-zero balance and its balance.
func (l *Ledger) Holders() map[comicdao.Account]comicdao.VotePower {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	m := make(map[comicdao.Account]comicdao.VotePower)
	for account, h := range l.accounts {
		if h.Balance > 0 {
			m[account] = h.Balance
		}
	}
	return m
}

// HashSeq returns a deterministic hash of the ledger. Sequence is the number of mints so far.
func (l *Ledger) HashSeq() (hs comicdao.HashSeq) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	hs.Mind = "ledger"
	var sortedAccounts []comicdao.Account
	for account := range l.accounts {
		sortedAccounts = append(sortedAccounts, account)
	}
	sort.Strings(sortedAccounts)
	var toHash []any
	for _, account := range sortedAccounts {
		h := l.accounts[account]
		toHash = append(toHash, account, h.Balance)
		for _, cp := range h.Checkpoints {
			toHash = append(toHash, cp.Height, cp.Seq, cp.Balance)
		}
	}
	for _, d := range toHash {
		if err := hs.AppendData(d); err != nil {
			comicdao.LogCLI(err.Error(), 1)
		}
	}
	hs.S256()
	hs.Sequence = l.seq
	hs.CreatedAt = l.clock.Height()
	return
}

// Save writes the ledger to disk as "current" and under its hash.
func (l *Ledger) Save() (comicdao.HashSeq, error) {
	hs := l.HashSeq()
	l.mutex.RLock()
	p := persisted{Seq: l.seq, Supply: l.supply, Accounts: make(map[comicdao.Account]holding)}
	for account, h := range l.accounts {
		p.Accounts[account] = *h
	}
	b, err := json.MarshalIndent(p, "", " ")
	l.mutex.RUnlock()
	if err != nil {
		return hs, err
	}
	if err := database.Write("ledger", hs.Hash, b); err != nil {
		return hs, err
	}
	return hs, database.Write("ledger", "current", b)
}

// Restore loads the ledger from f and closes it. Wiring is not persisted.
func (l *Ledger) Restore(f *os.File) error {
	defer f.Close()
	var p persisted
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		if err.Error() == "EOF" {
			return nil
		}
		return fmt.Errorf("restoring ledger: %w", err)
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.seq = p.Seq
	l.supply = p.Supply
	l.accounts = make(map[comicdao.Account]*holding)
	for account, h := range p.Accounts {
		h := h
		l.accounts[account] = &h
	}
	return nil
}
