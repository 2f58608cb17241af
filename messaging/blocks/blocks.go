/*
Package blocks is the tick source. A Producer mines a block on a fixed interval (or when asked to with
InsertBlock) and tells subscribers about every new tip.
*/
package blocks

import (
	"fmt"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/viper"

	"comicdao/comicdao"
)

// Miner appends a block to the chain. The Conductor is the only Miner outside of tests.
type Miner interface {
	Mine(t time.Time) comicdao.BlockHeader
}

type Producer struct {
	miner       Miner
	interval    time.Duration
	auto        bool
	mutex       *deadlock.Mutex
	subscribers []chan comicdao.BlockHeader
}

func New(miner Miner, interval time.Duration, auto bool) *Producer {
	return &Producer{
		miner:    miner,
		interval: interval,
		auto:     auto && interval > 0,
		mutex:    &deadlock.Mutex{},
	}
}

// NewFromConfig reads blockInterval and autoMine.
func NewFromConfig(miner Miner, conf *viper.Viper) *Producer {
	return New(miner, conf.GetDuration("blockInterval"), conf.GetBool("autoMine"))
}

// InsertBlock mines one block now.
func (p *Producer) InsertBlock(t time.Time) comicdao.BlockHeader {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	bh := p.miner.Mine(t)
	comicdao.LogCLI(fmt.Sprintf("new block at height %d", bh.Height), 4)
	comicdao.LogCLI(spew.Sdump(bh), 5)
	for _, s := range p.subscribers {
		select {
		case s <- bh:
		default:
			comicdao.LogCLI("block subscriber is not keeping up, dropping block", 3)
		}
	}
	return bh
}

// SubscribeToBlocks returns a channel that receives every new block header. Slow subscribers miss blocks.
func (p *Producer) SubscribeToBlocks() chan comicdao.BlockHeader {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	c := make(chan comicdao.BlockHeader, 10)
	p.subscribers = append(p.subscribers, c)
	return c
}

// Start mines on the configured interval until terminate is closed. It does nothing if auto mining is off.
func (p *Producer) Start(terminate chan struct{}, wg *sync.WaitGroup) {
	if !p.auto {
		comicdao.LogCLI("auto mining is disabled, blocks are only produced on request", 4)
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-terminate:
				comicdao.LogCLI("block producer has shut down", 4)
				return
			case t := <-ticker.C:
				p.InsertBlock(t)
			}
		}
	}()
}
