package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumAddress(t *testing.T) {
	for _, want := range []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
		writer,
	} {
		p, err := AddressPayload(strings.ToLower(want))
		require.NoError(t, err)
		assert.Len(t, p, 20)
		assert.Equal(t, want, ChecksumAddress(p))
		assert.Equal(t, want, FormatPayload(Writer, p))
	}
}

func TestBytes32(t *testing.T) {
	p, err := ParsePayload(Concept, "ipfs_uri")
	require.NoError(t, err)
	require.Len(t, p, 32)
	assert.Equal(t, []byte("ipfs_uri"), []byte(p[:8]))
	assert.Equal(t, make([]byte, 24), []byte(p[8:]))
	assert.Equal(t, "ipfs_uri", DecodeBytes32(p))

	max := strings.Repeat("x", 31)
	p, err = ParsePayload(Concept, max)
	require.NoError(t, err)
	assert.Equal(t, max, FormatPayload(Concept, p))

	word := "0x" + strings.Repeat("ff", 32)
	p, err = ParsePayload(Concept, word)
	require.NoError(t, err)
	assert.Equal(t, word, FormatPayload(Concept, p))

	for _, bad := range []string{"", strings.Repeat("x", 32), "a\x00b"} {
		_, err := ParsePayload(Concept, bad)
		assert.ErrorIs(t, err, ErrInvalidPayload, bad)
	}
}

func TestBytes32TextRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"plain", "ipfs_uri"},
		{"newline", "line\nbreak"},
		{"tab", "tab\there"},
		{"no-break space", "caf\u00e9\u00a0x"},
		{"emoji", "\U0001F4DA comic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePayload(Concept, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.text, FormatPayload(Concept, p))
		})
	}
}

func TestAddressPrefix(t *testing.T) {
	bare := strings.TrimPrefix(writer, "0x")
	for _, ok := range []string{writer, "0X" + bare, bare} {
		_, err := AddressPayload(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"0x0X" + bare, "0X0x" + bare, "0x0x" + bare} {
		_, err := AddressPayload(bad)
		assert.ErrorIs(t, err, ErrInvalidPayload, bad)
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"writer", Writer},
		{"Artist", Artist},
		{"CONCEPT", Concept},
		{"0", Writer},
		{"2", Concept},
	}
	for _, tt := range tests {
		c, err := ParseCategory(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, c)
	}
	for _, bad := range []string{"editor", "3", "-1", ""} {
		_, err := ParseCategory(bad)
		assert.ErrorIs(t, err, ErrUnknownCategory, bad)
	}
	assert.Equal(t, []Category{Writer, Artist, Concept}, AllCategories())
}

func TestPayloadText(t *testing.T) {
	p, err := AddressPayload(writer)
	require.NoError(t, err)
	b, err := p.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(writer), string(b))
	var back Payload
	require.NoError(t, back.UnmarshalText(b))
	assert.Equal(t, p, back)
}
