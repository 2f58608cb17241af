/*
Package conductor is the single sequential operation log. Every state change enters through HandleMessage
as a signed event (or through Mine as a tick) and is applied under one lock, in arrival order, so every
instance that sees the same events in the same order reaches the same state.
*/
package conductor

import (
	"fmt"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/viper"

	"comicdao/comicdao"
	"comicdao/consensus/governor"
	"comicdao/consensus/ledger"
	"comicdao/consensus/messagepack"
	"comicdao/consensus/registry"
	"comicdao/consensus/sequence"
)

type Conductor struct {
	handlerMutex *deadlock.Mutex
	chain        *comicdao.Chain
	ledger       *ledger.Ledger
	governor     *governor.Governor
	registry     *registry.Registry
	sequences    *sequence.Sequences
	packer       *messagepack.Packer
	bloom        func(message interface{}) bool
	ignition     int64
	wired        bool
}

// New builds every component on top of chain. Nothing can be used until Wire is called.
func New(chain *comicdao.Chain, config governor.VotingConfig, bloomCapacity uint) (*Conductor, error) {
	g, err := governor.New(config, chain)
	if err != nil {
		return nil, err
	}
	return &Conductor{
		handlerMutex: &deadlock.Mutex{},
		chain:        chain,
		ledger:       ledger.New(chain),
		governor:     g,
		registry:     registry.New(chain),
		sequences:    sequence.New(),
		packer:       messagepack.New(chain.Height()),
		bloom:        comicdao.MakeNewInverseBloomFilter(bloomCapacity),
		ignition:     chain.Height(),
	}, nil
}

// NewFromConfig reads the voting config, ignitionHeight and bloomCapacity from conf.
func NewFromConfig(conf *viper.Viper) (*Conductor, error) {
	config, err := governor.ConfigFromViper(conf)
	if err != nil {
		return nil, err
	}
	capacity := conf.GetUint("bloomCapacity")
	if capacity == 0 {
		capacity = 10000
	}
	return New(comicdao.NewChain(conf.GetInt64("ignitionHeight")), config, capacity)
}

// Wire performs the two phase deployment: the ledger only accepts mints from the registry, the
// governor reads voting power from the ledger and the registry drives both.
func (c *Conductor) Wire() error {
	c.handlerMutex.Lock()
	defer c.handlerMutex.Unlock()
	if c.wired {
		return ErrAlreadyWired
	}
	if err := c.ledger.Wire(c.registry.Account()); err != nil {
		return fmt.Errorf("wiring ledger: %w", err)
	}
	if err := c.governor.Wire(c.ledger); err != nil {
		return fmt.Errorf("wiring governor: %w", err)
	}
	if err := c.registry.Wire(c.ledger, c.governor); err != nil {
		return fmt.Errorf("wiring registry: %w", err)
	}
	c.wired = true
	comicdao.LogCLI("Conductor: ledger, governor and registry are wired", 4)
	return nil
}

// HandleMessage is the entry point for all events. It returns the state hash of the component that
// changed, or an error if the event was rejected. A rejected event changes nothing.
func (c *Conductor) HandleMessage(e comicdao.Event) (h comicdao.HashSeq, err error) {
	c.handlerMutex.Lock()
	defer c.handlerMutex.Unlock()
	if !c.wired {
		return h, ErrNotWired
	}
	if ok, err := e.CheckSignature(); !ok {
		if err != nil {
			return h, fmt.Errorf("%w: %s", ErrBadSignature, err)
		}
		return h, ErrBadSignature
	}
	if err := c.sequences.Check(e.PubKey, e.Sequence()); err != nil {
		comicdao.LogCLI(fmt.Sprintf("event %s: %s", e.ID, err), 3)
		return h, err
	}
	if !c.bloom(e.ID) {
		return h, fmt.Errorf("%w: %s", ErrReplay, e.ID)
	}
	e.WitnessedAt = c.chain.Height()
	h, err = c.handleEvent(e)
	if err != nil {
		comicdao.LogCLI(fmt.Sprintf("event %s rejected: %s", e.ID, err), 4)
		return h, err
	}
	if err := c.sequences.Advance(e.PubKey, e.Sequence()); err != nil {
		comicdao.LogCLI(err.Error(), 1)
	}
	c.packer.Pack(e)
	h.EventID = e.ID
	return h, nil
}

// Mine advances the clock by one tick. It waits for any event being handled so that no operation
// observes the height change part way through.
func (c *Conductor) Mine(t time.Time) comicdao.BlockHeader {
	c.handlerMutex.Lock()
	defer c.handlerMutex.Unlock()
	bh := c.chain.Mine(t)
	if n, err := c.packer.Seal(bh.Height); err != nil {
		comicdao.LogCLI(err.Error(), 1)
	} else if n > 0 {
		comicdao.LogCLI(fmt.Sprintf("sealed %d events at height %d", n, bh.Height-1), 4)
	}
	return bh
}

func (c *Conductor) Chain() *comicdao.Chain {
	return c.chain
}

func (c *Conductor) Ledger() *ledger.Ledger {
	return c.ledger
}

func (c *Conductor) Governor() *governor.Governor {
	return c.governor
}

func (c *Conductor) Registry() *registry.Registry {
	return c.registry
}

func (c *Conductor) Sequences() *sequence.Sequences {
	return c.sequences
}

func (c *Conductor) MessagePacks() *messagepack.Packer {
	return c.packer
}
