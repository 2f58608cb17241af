package registry

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/sha3"

	"comicdao/comicdao"
	"comicdao/consensus/governor"
)

// Category selects which canonical list an executed proposal is appended to.
type Category uint8

const (
	Writer  Category = 0
	Artist  Category = 1
	Concept Category = 2
)

type payloadKind int

const (
	addressKind payloadKind = iota
	bytes32Kind
)

type categoryInfo struct {
	name string
	kind payloadKind
}

// New categories are added here, nothing else needs to change.
var categories = map[Category]categoryInfo{
	Writer:  {name: "writer", kind: addressKind},
	Artist:  {name: "artist", kind: addressKind},
	Concept: {name: "concept", kind: bytes32Kind},
}

func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

func (c Category) String() string {
	if info, ok := categories[c]; ok {
		return info.name
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// AllCategories returns every known category in ascending order.
func AllCategories() (c []Category) {
	for i := 0; i < 256; i++ {
		if Category(i).Valid() {
			c = append(c, Category(i))
		}
	}
	return
}

// ParseCategory accepts either the category's name (any case) or its number.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, info := range categories {
		if info.name == s {
			return c, nil
		}
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil && Category(n).Valid() {
		return Category(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Payload is the canonical byte form of a proposal's subject. It is a 20 byte address for Writer and
// Artist and a 32 byte word for Concept.
type Payload []byte

func (p Payload) MarshalText() ([]byte, error) {
	return []byte("0x" + hex.EncodeToString(p)), nil
}

func (p *Payload) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(strings.TrimPrefix(string(text), "0x"))
	if err != nil {
		return err
	}
	*p = b
	return nil
}

// ParsePayload converts the human form of a payload into its canonical bytes.
func ParsePayload(c Category, s string) (Payload, error) {
	info, ok := categories[c]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, c)
	}
	switch info.kind {
	case addressKind:
		return AddressPayload(s)
	default:
		return Bytes32Payload(s)
	}
}

// FormatPayload is the inverse of ParsePayload. Addresses are rendered with an EIP-55 checksum.
func FormatPayload(c Category, p Payload) string {
	if info, ok := categories[c]; ok && info.kind == addressKind {
		return ChecksumAddress(p)
	}
	return DecodeBytes32(p)
}

// AddressPayload parses a 20 byte hex address. The 0x prefix is optional and case is ignored.
func AddressPayload(s string) (Payload, error) {
	s = strings.TrimSpace(s)
	h := s
	if len(h) >= 2 && strings.EqualFold(h[:2], "0x") {
		h = h[2:]
	}
	if len(h) != 40 {
		return nil, fmt.Errorf("%w: address %q must be 20 bytes", ErrInvalidPayload, s)
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("%w: address %q: %s", ErrInvalidPayload, s, err)
	}
	return b, nil
}

// Bytes32Payload takes either 0x followed by 64 hex characters, or up to 31 bytes of UTF-8 text which
// is right padded with zero bytes.
func Bytes32Payload(s string) (Payload, error) {
	if strings.HasPrefix(s, "0x") && len(s) == 66 {
		b, err := hex.DecodeString(s[2:])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %s", ErrInvalidPayload, s, err)
		}
		return b, nil
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidPayload)
	}
	if len(s) > 31 {
		return nil, fmt.Errorf("%w: text %q is longer than 31 bytes", ErrInvalidPayload, s)
	}
	if !utf8.ValidString(s) || strings.ContainsRune(s, 0) {
		return nil, fmt.Errorf("%w: text %q is not valid UTF-8", ErrInvalidPayload, s)
	}
	b := make([]byte, 32)
	copy(b, s)
	return b, nil
}

// DecodeBytes32 returns the text held in a 32 byte word, or its hex form if it does not hold text.
// Text is whatever Bytes32Payload accepts: 1 to 31 bytes of UTF-8 with no NUL, then zero padding.
func DecodeBytes32(p Payload) string {
	text := bytes.TrimRight(p, "\x00")
	if len(p) == 32 && len(text) > 0 && len(text) < 32 && utf8.Valid(text) && bytes.IndexByte(text, 0) < 0 {
		return string(text)
	}
	return "0x" + hex.EncodeToString(p)
}

// ChecksumAddress renders a 20 byte address in EIP-55 mixed case.
func ChecksumAddress(p Payload) string {
	lower := hex.EncodeToString(p)
	k := sha3.NewLegacyKeccak256()
	k.Write([]byte(lower))
	hash := hex.EncodeToString(k.Sum(nil))
	out := []byte(lower)
	for i, c := range out {
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			out[i] = c - 32
		}
	}
	return "0x" + string(out)
}

// ProposalID is a pure function of category and canonical payload.
func ProposalID(c Category, p Payload) governor.ProposalID {
	b := make([]byte, 0, len(p)+1)
	b = append(b, byte(c))
	b = append(b, p...)
	return comicdao.Sha256(b)
}
