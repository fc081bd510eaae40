package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAggregationBits(t *testing.T) {
	bits, err := parseAggregationBits("0x8001")
	require.NoError(t, err)
	require.Equal(t, []byte{0x80, 0x01}, bits)

	_, err = parseAggregationBits("0x")
	assert.Error(t, err)
	_, err = parseAggregationBits("0xzz")
	assert.Error(t, err)
}

func TestBitlistLen(t *testing.T) {
	// 0x8001: bit 7 set, delimiter at bit 8.
	assert.Equal(t, 8, bitlistLen([]byte{0x80, 0x01}))
	// 0x07: bits 0,1 set, delimiter at bit 2.
	assert.Equal(t, 2, bitlistLen([]byte{0x07}))
	// 0x11: bit 0 set, delimiter at bit 4.
	assert.Equal(t, 4, bitlistLen([]byte{0x11}))
	// Delimiter alone encodes an empty list.
	assert.Equal(t, 0, bitlistLen([]byte{0x01}))
	assert.Equal(t, 0, bitlistLen([]byte{0x00}))
}

func TestBitSet(t *testing.T) {
	// 0x05 = 0b00000101: bits 0 and 2 of the first byte.
	bits := []byte{0x05, 0x80}
	assert.True(t, bitSet(bits, 0))
	assert.False(t, bitSet(bits, 1))
	assert.True(t, bitSet(bits, 2))
	assert.True(t, bitSet(bits, 15))
	assert.False(t, bitSet(bits, 16))
	assert.False(t, bitSet(bits, 1000))
}

func TestWithdrawalAddress(t *testing.T) {
	eth1 := "0x010000000000000000000000abcdefabcdefabcdefabcdefabcdefabcdefabcd"
	assert.Equal(t, "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd", withdrawalAddress(eth1))

	compounding := "0x020000000000000000000000abcdefabcdefabcdefabcdefabcdefabcdefabcd"
	assert.Equal(t, "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd", withdrawalAddress(compounding))

	bls := "0x00aabbccddeeff00112233445566778899aabbccddeeff001122334455667788"
	assert.Equal(t, "", withdrawalAddress(bls))
	assert.Equal(t, "", withdrawalAddress("0x01short"))
}
