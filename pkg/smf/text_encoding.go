package smf

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// DecodeText decodes a text-like meta-event's raw payload using enc. Pass
// nil to interpret raw as UTF-8/ASCII unchanged. Real-world SMF files —
// especially Japanese karaoke/song-data files — often carry Lyric,
// SequenceName, or Text payloads in Shift_JIS rather than UTF-8; callers
// that know or detect this pass golang.org/x/text/encoding/japanese.ShiftJIS.
// Grounded on the teacher's cmd/son-et/main.go Shift_JIS transform.Reader
// use for #include'd source files.
func DecodeText(raw []byte, enc encoding.Encoding) (string, error) {
	if enc == nil {
		return string(raw), nil
	}

	reader := transform.NewReader(bytes.NewReader(raw), enc.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("smf: decoding text payload: %w", err)
	}
	return string(decoded), nil
}
