package comicdao

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	boom "github.com/tylertreat/BoomFilters"
)

func Sha256(data interface{}) S256Hash {
	var b []byte
	switch d := data.(type) {
	case string:
		b = []byte(d)
	case []byte:
		b = d
	default:
		LogCLI("attempted to hash non-string or non-[]byte", 1)
	}
	h := sha256.New()
	h.Write(b)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// GetPubKey derives the Account for a hex encoded private key.
func GetPubKey(privateKey string) (Account, error) {
	keyb, err := hex.DecodeString(privateKey)
	if err != nil {
		return "", fmt.Errorf("error decoding key from hex: %w", err)
	}
	_, pubkey := btcec.PrivKeyFromBytes(keyb)
	return hex.EncodeToString(schnorr.SerializePubKey(pubkey)), nil
}

// MakeNewInverseBloomFilter returns a func that returns true the first time it sees a message.
// An inverse bloom filter can forget (false negatives) but never reports a new message as seen.
func MakeNewInverseBloomFilter(capacity uint) func(message interface{}) bool {
	ibf := boom.NewInverseBloomFilter(capacity)
	return func(message interface{}) bool {
		b := []byte(fmt.Sprint(message))
		return !ibf.TestAndAdd(b)
	}
}

// AppendData adds the provided data to a buffer that lives as long as the HashSeq.
// Call HashSeq.S256 to hash the buffer and write the hash to HashSeq.Hash
func (h *HashSeq) AppendData(data interface{}) error {
	var errors []error
	switch d := data.(type) {
	case string:
		_, err := h.Data.WriteString(d)
		errors = append(errors, err)
	case int64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(d))
		_, err := h.Data.Write(b)
		errors = append(errors, err)
	case []byte:
		_, err := h.Data.Write(d)
		errors = append(errors, err)
	case []string:
		for _, s := range d {
			_, err := h.Data.WriteString(s)
			errors = append(errors, err)
		}
	case bool:
		if d {
			err := h.Data.WriteByte(1)
			errors = append(errors, err)
		}
		if !d {
			err := h.Data.WriteByte(0)
			errors = append(errors, err)
		}
	default:
		return fmt.Errorf("cannot hash %T", data)
	}
	for _, err := range errors {
		if err != nil {
			return err
		}
	}
	return nil
}

// S256 calculates the sha256 hash of the HashSeq and stores it as the HashSeq.Hash
// It resets the HashSeq.Data buffer.
func (h *HashSeq) S256() {
	h.Hash = fmt.Sprintf("%x", sha256.Sum256(h.Data.Bytes()))
	h.Data = bytes.Buffer{}
}

// Merkle reduces the leaves pairwise until one root remains. An odd leaf is carried up unchanged.
func Merkle(current [][]byte) (next [][]byte) {
	if len(current) == 0 {
		return nil
	}
	if len(current) == 1 {
		return current
	}
	for i := 0; i < len(current); i += 2 {
		if i+2 > len(current) {
			next = append(next, current[i])
		} else {
			buf := bytes.Buffer{}
			buf.Write(current[i])
			buf.Write(current[i+1])
			sum := sha256.Sum256(buf.Bytes())
			next = append(next, sum[:])
		}
	}
	return Merkle(next)
}
