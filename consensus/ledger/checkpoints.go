package ledger

import (
	"sort"

	"comicdao/comicdao"
)

// at returns the balance from the latest checkpoint visible from mark, or 0 if there is none.
// Checkpoints are strictly increasing in (Height, Seq) so visibility is monotone and can be binary searched.
func at(cps []Checkpoint, mark comicdao.Mark) comicdao.VotePower {
	i := sort.Search(len(cps), func(i int) bool {
		return !mark.Covers(cps[i].Height, cps[i].Seq)
	})
	if i == 0 {
		return 0
	}
	return cps[i-1].Balance
}

func latest(cps []Checkpoint) comicdao.VotePower {
	if len(cps) == 0 {
		return 0
	}
	return cps[len(cps)-1].Balance
}
