/*
Package messagepack archives the ID of every event that changed state, grouped by the height at which it
was applied. Together with the persisted component state this is the operation log: it is used to
refill the replay filter on restart and to answer "what happened at height h".
*/
package messagepack

import (
	"fmt"
	"os"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/sasha-s/go-deadlock"

	"comicdao/comicdao"
	"comicdao/database"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type MessagePack struct {
	Height   int64    `json:"height"`
	Messages []string `json:"messages"`
}

type Packer struct {
	mutex   *deadlock.Mutex
	current MessagePack
	sealed  map[int64]MessagePack // sealed packs not yet written to disk
}

// New starts packing at height.
func New(height int64) *Packer {
	return &Packer{
		mutex:   &deadlock.Mutex{},
		current: MessagePack{Height: height},
		sealed:  make(map[int64]MessagePack),
	}
}

// Pack appends an accepted event to the pack for the current height.
func (p *Packer) Pack(e comicdao.Event) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.current.Messages = append(p.current.Messages, e.ID)
}

// Seal closes the pack for the current height and starts one for next, which must be the following height.
func (p *Packer) Seal(next int64) (int64, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if next != p.current.Height+1 {
		return 0, fmt.Errorf("cannot seal height %d and start %d", p.current.Height, next)
	}
	sealed := p.current
	p.sealed[sealed.Height] = sealed
	p.current = MessagePack{Height: next}
	return int64(len(sealed.Messages)), nil
}

func (p *Packer) Height() int64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.current.Height
}

// Get returns the pack for height, from memory or from disk.
func (p *Packer) Get(height int64) (MessagePack, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.get(height)
}

func (p *Packer) get(height int64) (MessagePack, bool) {
	if height == p.current.Height {
		return copyPack(p.current), true
	}
	if mp, ok := p.sealed[height]; ok {
		return copyPack(mp), true
	}
	file, ok := database.Open("messagepack", fmt.Sprintf("%d", height))
	if !ok {
		return MessagePack{}, false
	}
	defer file.Close()
	var mp MessagePack
	if err := json.NewDecoder(file).Decode(&mp); err != nil {
		comicdao.LogCLI(err.Error(), 1)
		return MessagePack{}, false
	}
	return mp, true
}

// EventIDs returns every archived event ID from start up to and including the current height, in order.
func (p *Packer) EventIDs(start int64) (ids []string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for h := start; h <= p.current.Height; h++ {
		if mp, ok := p.get(h); ok {
			ids = append(ids, mp.Messages...)
		}
	}
	return
}

// Save writes every sealed pack under its height and the open pack as "current".
func (p *Packer) Save() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	var heights []int64
	for h := range p.sealed {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })
	for _, h := range heights {
		b, err := json.Marshal(p.sealed[h])
		if err != nil {
			return err
		}
		if err := database.Write("messagepack", fmt.Sprintf("%d", h), b); err != nil {
			return err
		}
		delete(p.sealed, h)
	}
	b, err := json.Marshal(p.current)
	if err != nil {
		return err
	}
	return database.Write("messagepack", "current", b)
}

// Restore loads the open pack from f and closes it.
func (p *Packer) Restore(f *os.File) error {
	defer f.Close()
	var mp MessagePack
	if err := json.NewDecoder(f).Decode(&mp); err != nil {
		if err.Error() == "EOF" {
			return nil
		}
		return fmt.Errorf("restoring messagepack: %w", err)
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.current = mp
	return nil
}

func copyPack(mp MessagePack) MessagePack {
	m := make([]string, len(mp.Messages))
	copy(m, mp.Messages)
	mp.Messages = m
	return mp
}
