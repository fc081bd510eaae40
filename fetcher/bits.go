package fetcher

import (
	"encoding/hex"
	"math/bits"
	"strings"

	"github.com/pkg/errors"
)

// parseAggregationBits decodes the 0x-prefixed hex form of an aggregation
// bitlist into its raw bytes. Bit i of the list is bit i%8 of byte i/8
// (little-endian within each byte). The bitlist's length-delimiter bit is
// not stripped here; callers check it against the committee size with
// bitlistLen and read only positions below the size.
func parseAggregationBits(s string) ([]byte, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed aggregation bits %q", s)
	}
	if len(raw) == 0 {
		return nil, errors.Errorf("empty aggregation bits %q", s)
	}
	return raw, nil
}

// bitlistLen returns the list length encoded by the delimiter, the highest
// set bit. A well-formed aggregation bitlist carries its delimiter at
// exactly the committee size; a delimiter below the size would read as a
// phantom seat.
func bitlistLen(raw []byte) int {
	for i := len(raw) - 1; i >= 0; i-- {
		if raw[i] != 0 {
			return i*8 + bits.Len8(raw[i]) - 1
		}
	}
	return 0
}

// bitSet reports whether bit i is set.
func bitSet(raw []byte, i int) bool {
	if i/8 >= len(raw) {
		return false
	}
	return raw[i/8]&(1<<(uint(i)%8)) != 0
}
