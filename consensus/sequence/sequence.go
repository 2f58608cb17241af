/*
Package sequence tracks the last accepted transaction sequence number of every Account. An event is only
valid if its sequence is exactly one more than the signer's current sequence, which orders each
signer's transactions and stops them being replayed.
*/
package sequence

import (
	"errors"
	"fmt"
	"os"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/sasha-s/go-deadlock"

	"comicdao/comicdao"
	"comicdao/database"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrBadSequence = errors.New("invalid sequence number")

type Sequence struct {
	Account  comicdao.Account `json:"account"`
	Sequence int64            `json:"sequence"`
}

type Sequences struct {
	data  map[comicdao.Account]Sequence
	mutex *deadlock.Mutex
}

func New() *Sequences {
	return &Sequences{
		data:  make(map[comicdao.Account]Sequence),
		mutex: &deadlock.Mutex{},
	}
}

// Current SHOULD be used when producing an event locally (the next event uses Current+1).
func (s *Sequences) Current(account comicdao.Account) int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.data[account].Sequence
}

// Check returns nil if next is the sequence the account must use for its next event.
func (s *Sequences) Check(account comicdao.Account, next int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.check(account, next)
}

func (s *Sequences) check(account comicdao.Account, next int64) error {
	if current := s.data[account].Sequence; next != current+1 {
		return fmt.Errorf("%w: got %d, current sequence for %s is %d", ErrBadSequence, next, account, current)
	}
	return nil
}

// Advance moves the account's sequence to next. It fails without changing anything if next is not Current+1.
func (s *Sequences) Advance(account comicdao.Account, next int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.check(account, next); err != nil {
		return err
	}
	s.data[account] = Sequence{Account: account, Sequence: next}
	return nil
}

func (s *Sequences) All() (all []Sequence) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, sequence := range s.data {
		all = append(all, sequence)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Account < all[j].Account
	})
	return
}

// HashSeq hashes every account's sequence. The Sequence of the result is the sum of all sequences,
// i.e. the number of events this instance has accepted.
func (s *Sequences) HashSeq() (hs comicdao.HashSeq) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	hs.Mind = "sequence"
	var accounts []comicdao.Account
	for account := range s.data {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	var toHash []any
	for _, account := range accounts {
		seq := s.data[account]
		hs.Sequence = hs.Sequence + seq.Sequence
		toHash = append(toHash, seq.Account, seq.Sequence)
	}
	for _, d := range toHash {
		if err := hs.AppendData(d); err != nil {
			comicdao.LogCLI(err.Error(), 1)
		}
	}
	hs.S256()
	return
}

func (s *Sequences) Save() (comicdao.HashSeq, error) {
	hs := s.HashSeq()
	s.mutex.Lock()
	b, err := json.MarshalIndent(s.data, "", " ")
	s.mutex.Unlock()
	if err != nil {
		return hs, err
	}
	if err := database.Write("sequence", hs.Hash, b); err != nil {
		return hs, err
	}
	return hs, database.Write("sequence", "current", b)
}

func (s *Sequences) Restore(f *os.File) error {
	defer f.Close()
	data := make(map[comicdao.Account]Sequence)
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		if err.Error() == "EOF" {
			return nil
		}
		return fmt.Errorf("restoring sequences: %w", err)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.data = data
	return nil
}
