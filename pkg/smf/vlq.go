package smf

import (
	"fmt"

	"github.com/luizfeldmann/midisched/internal/midierr"
)

// maxVLQBytes is the SMF limit: 4 bytes, 7 bits each, 28 bits total.
const maxVLQBytes = 4

// DecodeVLQ reads a big-endian, 7-bit-per-byte variable-length quantity
// from data, returning the decoded value and the number of bytes consumed.
// It stops at the first byte with the high bit clear. Grounded on the
// teacher's readVarLen scan (pkg/vm/audio/midi.go), generalized to report
// truncation and the 28-bit overflow as errors instead of silently
// stopping at 4 bytes (§4.1.1).
func DecodeVLQ(data []byte) (value uint32, consumed int, err error) {
	for i := 0; i < len(data); i++ {
		b := data[i]
		value = (value << 7) | uint32(b&0x7F)
		consumed++
		if b&0x80 == 0 {
			return value, consumed, nil
		}
		if consumed == maxVLQBytes {
			return 0, 0, fmt.Errorf("%w: value exceeds 28 bits", midierr.ErrMalformedVLQ)
		}
	}
	return 0, 0, fmt.Errorf("%w: truncated before terminating byte: %w", midierr.ErrMalformedVLQ, midierr.ErrTruncated)
}

// EncodeVLQ writes the minimal-length big-endian VLQ encoding of v. v must
// fit in 28 bits; callers that built v from DecodeVLQ or a bounded counter
// always satisfy this.
func EncodeVLQ(v uint32) []byte {
	if v == 0 {
		return []byte{0x00}
	}

	var buf [maxVLQBytes]byte
	n := 0
	for v > 0 {
		buf[n] = byte(v & 0x7F)
		v >>= 7
		n++
	}

	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b := buf[n-1-i]
		if i != n-1 {
			b |= 0x80
		}
		out[i] = b
	}
	return out
}
