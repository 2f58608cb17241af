package comicdao

import (
	"fmt"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Clock is the monotonic tick source. Nothing in the engine can advance it.
type Clock interface {
	Height() int64
}

// Chain is the local tick source: a strictly increasing list of block headers.
type Chain struct {
	mutex *deadlock.Mutex
	tip   BlockHeader
}

// NewChain starts a chain at the given height (usually the configured ignitionHeight).
func NewChain(ignition int64) *Chain {
	c := &Chain{mutex: &deadlock.Mutex{}}
	c.tip = BlockHeader{
		Height: ignition,
		Hash:   Sha256(fmt.Sprintf("ignition%d", ignition)),
	}
	return c
}

func (c *Chain) Height() int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.tip.Height
}

func (c *Chain) Tip() BlockHeader {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.tip
}

// Mine appends one block and returns the new tip.
func (c *Chain) Mine(t time.Time) BlockHeader {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	next := BlockHeader{
		Height: c.tip.Height + 1,
		Time:   t.Unix(),
	}
	next.Hash = Sha256(fmt.Sprint(c.tip.Hash, next.Height, next.Time))
	c.tip = next
	return next
}

// Restore moves the tip to a previously persisted header. It refuses to go backwards.
func (c *Chain) Restore(bh BlockHeader) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if bh.Height < c.tip.Height {
		return fmt.Errorf("cannot restore height %d below current tip %d", bh.Height, c.tip.Height)
	}
	c.tip = bh
	return nil
}
