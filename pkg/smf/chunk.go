package smf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/luizfeldmann/midisched/internal/midierr"
)

const (
	tagMThd = "MThd"
	tagMTrk = "MTrk"
)

// chunk is one 4-byte-tag/4-byte-length/payload unit of the SMF container
// (§4.1.2).
type chunk struct {
	tag     string
	payload []byte
}

// readChunk reads one chunk from r. A clean EOF before any bytes are read
// is reported as io.EOF so callers can stop the chunk loop; any other EOF
// (mid-header or mid-payload) is ErrTruncated.
func readChunk(r io.Reader) (chunk, error) {
	var head [8]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return chunk{}, io.EOF
		}
		return chunk{}, fmt.Errorf("%w: reading chunk header: %w", midierr.ErrTruncated, err)
	}

	length := binary.BigEndian.Uint32(head[4:8])
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return chunk{}, fmt.Errorf("%w: reading chunk payload: %w", midierr.ErrTruncated, err)
		}
	}

	return chunk{tag: string(head[0:4]), payload: payload}, nil
}

// writeChunk writes the 4-byte tag, 4-byte big-endian length, and payload.
func writeChunk(w io.Writer, tag string, payload []byte) error {
	if len(tag) != 4 {
		return fmt.Errorf("chunk tag must be 4 bytes, got %q", tag)
	}
	if _, err := io.WriteString(w, tag); err != nil {
		return fmt.Errorf("%w: %w", midierr.ErrIO, err)
	}
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(payload)))
	if _, err := w.Write(length[:]); err != nil {
		return fmt.Errorf("%w: %w", midierr.ErrIO, err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("%w: %w", midierr.ErrIO, err)
	}
	return nil
}
