package blocks

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"comicdao/comicdao"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestInsertBlock(t *testing.T) {
	chain := comicdao.NewChain(0)
	p := New(chain, 0, false)
	sub := p.SubscribeToBlocks()

	bh := p.InsertBlock(time.Unix(100, 0))
	assert.Equal(t, int64(1), bh.Height)
	assert.Equal(t, int64(100), bh.Time)
	assert.Equal(t, bh, <-sub)
	assert.Equal(t, int64(1), chain.Height())
}

func TestAutoMine(t *testing.T) {
	chain := comicdao.NewChain(0)
	p := New(chain, time.Millisecond, true)
	sub := p.SubscribeToBlocks()
	terminate := make(chan struct{})
	wg := &sync.WaitGroup{}
	p.Start(terminate, wg)

	for want := int64(1); want <= 3; want++ {
		select {
		case bh := <-sub:
			assert.Equal(t, want, bh.Height)
		case <-time.After(5 * time.Second):
			require.FailNow(t, "no block produced")
		}
	}
	close(terminate)
	wg.Wait()
}

func TestManualOnly(t *testing.T) {
	chain := comicdao.NewChain(7)
	p := New(chain, time.Millisecond, false)
	terminate := make(chan struct{})
	wg := &sync.WaitGroup{}
	p.Start(terminate, wg)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int64(7), chain.Height())
	close(terminate)
	wg.Wait()
}
