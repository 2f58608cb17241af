package conductor

import (
	"fmt"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"comicdao/comicdao"
	"comicdao/database"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type restorer interface {
	Restore(f *os.File) error
}

// Start restores every component from disk, refills the replay filter from the operation log and
// returns once the Conductor is accepting events. State is written back to disk when terminate is closed.
func (c *Conductor) Start(terminate chan struct{}, wg *sync.WaitGroup) error {
	comicdao.LogCLI("Starting the Conductor", 4)
	if err := c.restore(); err != nil {
		return err
	}
	if err := c.Wire(); err != nil && err != ErrAlreadyWired {
		return err
	}
	//populate the bloom filter with all the events that we've seen so far so that we drop them if we see them again
	for _, id := range c.packer.EventIDs(c.ignition) {
		c.bloom(id)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		comicdao.LogCLI("Conductor: I'm now accepting Events", 4)
		<-terminate
		comicdao.LogCLI("Conductor: I received terminate signal, shutting down", 4)
		if _, err := c.Save(); err != nil {
			comicdao.LogCLI(err.Error(), 1)
		}
		comicdao.LogCLI("Conductor: shutdown complete", 4)
	}()
	return nil
}

func (c *Conductor) restore() error {
	c.handlerMutex.Lock()
	defer c.handlerMutex.Unlock()
	if f, ok := database.Open("chain", "current"); ok {
		var tip comicdao.BlockHeader
		err := json.NewDecoder(f).Decode(&tip)
		f.Close()
		if err != nil && err.Error() != "EOF" {
			return fmt.Errorf("restoring chain: %w", err)
		}
		if err == nil {
			if err := c.chain.Restore(tip); err != nil {
				return err
			}
		}
	}
	for mind, r := range map[string]restorer{
		"ledger":      c.ledger,
		"governor":    c.governor,
		"registry":    c.registry,
		"sequence":    c.sequences,
		"messagepack": c.packer,
	} {
		if f, ok := database.Open(mind, "current"); ok {
			if err := r.Restore(f); err != nil {
				return err
			}
			comicdao.LogCLI(fmt.Sprintf("restored %s", mind), 4)
		}
	}
	return nil
}

// Save writes the state of every component to disk and returns their hashes, keyed by component.
func (c *Conductor) Save() (map[string]comicdao.HashSeq, error) {
	c.handlerMutex.Lock()
	defer c.handlerMutex.Unlock()
	hashes := make(map[string]comicdao.HashSeq)
	b, err := json.Marshal(c.chain.Tip())
	if err != nil {
		return nil, err
	}
	if err := database.Write("chain", "current", b); err != nil {
		return nil, err
	}
	for _, s := range []interface {
		Save() (comicdao.HashSeq, error)
	}{c.ledger, c.governor, c.registry, c.sequences} {
		hs, err := s.Save()
		if err != nil {
			return nil, err
		}
		hashes[hs.Mind] = hs
	}
	return hashes, c.packer.Save()
}

// Hashes returns the current state hash of every component without writing anything.
func (c *Conductor) Hashes() map[string]comicdao.HashSeq {
	c.handlerMutex.Lock()
	defer c.handlerMutex.Unlock()
	hashes := make(map[string]comicdao.HashSeq)
	for _, hs := range []comicdao.HashSeq{c.ledger.HashSeq(), c.governor.HashSeq(), c.registry.HashSeq(), c.sequences.HashSeq()} {
		hashes[hs.Mind] = hs
	}
	return hashes
}
