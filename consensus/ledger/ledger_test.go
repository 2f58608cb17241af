package ledger

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comicdao/comicdao"
	"comicdao/database"
)

const (
	minter = "minter"
	alice  = "alice"
	bob    = "bob"
)

func newWiredLedger(t *testing.T) (*Ledger, *comicdao.Chain) {
	chain := comicdao.NewChain(0)
	l := New(chain)
	require.NoError(t, l.Wire(minter))
	return l, chain
}

func TestMintIsOneToOne(t *testing.T) {
	l, _ := newWiredLedger(t)
	for _, amount := range []int64{1, 100, 10000, 5000} {
		before := l.BalanceOf(alice)
		require.NoError(t, l.Mint(minter, alice, amount))
		assert.Equal(t, before+amount, l.BalanceOf(alice))
	}
	assert.Equal(t, int64(15101), l.TotalSupply())
}

func TestMintRejections(t *testing.T) {
	chain := comicdao.NewChain(0)
	l := New(chain)
	assert.ErrorIs(t, l.Mint(minter, alice, 10), ErrNotWired)

	require.NoError(t, l.Wire(minter))
	assert.ErrorIs(t, l.Wire(bob), ErrAlreadyWired)

	assert.ErrorIs(t, l.Mint(bob, alice, 10), ErrUnauthorized)
	assert.ErrorIs(t, l.Mint(minter, alice, 0), ErrInvalidAmount)
	assert.ErrorIs(t, l.Mint(minter, alice, -5), ErrInvalidAmount)

	require.NoError(t, l.Mint(minter, alice, 1<<62))
	assert.ErrorIs(t, l.Mint(minter, bob, 1<<62), ErrOverflow)

	// rejected mints leave no trace
	assert.Equal(t, int64(0), l.BalanceOf(bob))
	assert.Nil(t, l.Checkpoints(bob))
	assert.Len(t, l.Checkpoints(alice), 1)
}

func TestVotingPowerAt(t *testing.T) {
	l, chain := newWiredLedger(t)
	require.NoError(t, l.Mint(minter, alice, 100)) // height 0
	chain.Mine(timeAt(1))
	chain.Mine(timeAt(2))
	require.NoError(t, l.Mint(minter, alice, 50)) // height 2
	require.NoError(t, l.Mint(minter, bob, 7))    // height 2
	chain.Mine(timeAt(3))
	chain.Mine(timeAt(4))
	require.NoError(t, l.Mint(minter, alice, 1)) // height 4

	tests := []struct {
		height int64
		alice  int64
		bob    int64
		supply int64
	}{
		{-1, 0, 0, 0},
		{0, 100, 0, 100},
		{1, 100, 0, 100},
		{2, 150, 7, 157},
		{3, 150, 7, 157},
		{4, 151, 7, 158},
		{1000, 151, 7, 158},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.alice, l.VotingPowerAt(alice, tt.height), "alice at %d", tt.height)
		assert.Equal(t, tt.bob, l.VotingPowerAt(bob, tt.height), "bob at %d", tt.height)
		assert.Equal(t, tt.supply, l.TotalSupplyAt(tt.height), "supply at %d", tt.height)
	}
	assert.Equal(t, int64(0), l.VotingPowerAt("nobody", 4))
}

func TestMarkFreezesSameHeightMints(t *testing.T) {
	l, _ := newWiredLedger(t)
	require.NoError(t, l.Mint(minter, alice, 100))
	mark := l.Mark()
	require.NoError(t, l.Mint(minter, alice, 900))
	require.NoError(t, l.Mint(minter, bob, 5))

	assert.Equal(t, int64(100), l.VotingPowerAtMark(alice, mark))
	assert.Equal(t, int64(0), l.VotingPowerAtMark(bob, mark))
	assert.Equal(t, int64(100), l.TotalSupplyAtMark(mark))
	// a height query sees every mint at that height
	assert.Equal(t, int64(1000), l.VotingPowerAt(alice, 0))
}

func TestCheckpointsStrictlyIncrease(t *testing.T) {
	l, chain := newWiredLedger(t)
	for i := 0; i < 20; i++ {
		require.NoError(t, l.Mint(minter, alice, int64(i+1)))
		if i%3 == 0 {
			chain.Mine(timeAt(int64(i)))
		}
	}
	cps := l.Checkpoints(alice)
	require.Len(t, cps, 20)
	for i := 1; i < len(cps); i++ {
		prev, cur := cps[i-1], cps[i]
		assert.True(t, cur.Height > prev.Height || (cur.Height == prev.Height && cur.Seq > prev.Seq))
		assert.Greater(t, cur.Balance, prev.Balance)
	}
	// the returned slice is a copy
	cps[0].Balance = 999999
	assert.Equal(t, int64(1), l.Checkpoints(alice)[0].Balance)
}

func TestSaveRestore(t *testing.T) {
	conf := viper.New()
	conf.Set("rootDir", t.TempDir()+"/")
	conf.Set("flatFileDir", "data/")
	conf.Set("logLevel", 2)
	comicdao.SetConfig(conf)

	l, chain := newWiredLedger(t)
	require.NoError(t, l.Mint(minter, alice, 10))
	chain.Mine(timeAt(1))
	require.NoError(t, l.Mint(minter, bob, 20))
	hs, err := l.Save()
	require.NoError(t, err)
	assert.Equal(t, int64(2), hs.Sequence)

	f, ok := database.Open("ledger", "current")
	require.True(t, ok)
	restored := New(chain)
	require.NoError(t, restored.Restore(f))
	assert.Equal(t, hs.Hash, restored.HashSeq().Hash)
	assert.Equal(t, int64(10), restored.VotingPowerAt(alice, 0))
	assert.Equal(t, int64(30), restored.TotalSupply())

	_, ok = database.Open("ledger", hs.Hash)
	assert.True(t, ok, "snapshot is stored under its hash")
}

func TestHashIsDeterministic(t *testing.T) {
	a, _ := newWiredLedger(t)
	b, _ := newWiredLedger(t)
	require.NoError(t, a.Mint(minter, alice, 1))
	require.NoError(t, a.Mint(minter, bob, 2))
	require.NoError(t, b.Mint(minter, alice, 1))
	require.NoError(t, b.Mint(minter, bob, 2))
	assert.Equal(t, a.HashSeq().Hash, b.HashSeq().Hash)

	require.NoError(t, b.Mint(minter, bob, 1))
	assert.NotEqual(t, a.HashSeq().Hash, b.HashSeq().Hash)
}
