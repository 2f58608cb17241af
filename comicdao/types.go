package comicdao

import (
	"bytes"
	"math"
)

// Account is the hex encoded x-only public key that signs events
type Account = string

type S256Hash = string
type VotePower = int64

type MindLog struct {
	MindName string
	Comment  string
	Message  interface{}
}

type BlockHeader struct {
	Hash   string `json:"hash"`
	Time   int64  `json:"time"`
	Height int64  `json:"height"`
}

// Mark is a position in the ledger's history. Seq is the ledger's global mint sequence, so two
// checkpoints written at the same Height are still totally ordered.
type Mark struct {
	Height int64 `json:"height"`
	Seq    int64 `json:"seq"`
}

// AtHeight returns a Mark covering everything written at or before height.
func AtHeight(height int64) Mark {
	return Mark{Height: height, Seq: math.MaxInt64}
}

// Covers returns true if a checkpoint written at (height, seq) is visible from this Mark.
func (m Mark) Covers(height, seq int64) bool {
	if height < m.Height {
		return true
	}
	return height == m.Height && seq <= m.Seq
}

type HashSeq struct {
	Hash      S256Hash
	Sequence  int64
	Mind      string
	Data      bytes.Buffer
	CreatedAt int64
	EventID   S256Hash //optional
}
