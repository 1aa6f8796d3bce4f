package smf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/luizfeldmann/midisched/internal/midierr"
)

// Encode serializes f as a complete Standard MIDI File byte stream (§4.1.4).
// decode(encode(f)) is guaranteed structurally equal to f (§4.1.5, Property
// P2); encode(decode(bytes)) need not reproduce the original bytes, since
// running-status compression on write is not required.
func Encode(f *File) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", midierr.ErrBadHeader, err)
	}

	var buf bytes.Buffer

	header := make([]byte, 6)
	binary.BigEndian.PutUint16(header[0:2], uint16(f.Format))
	binary.BigEndian.PutUint16(header[2:4], uint16(len(f.Tracks)))
	binary.BigEndian.PutUint16(header[4:6], f.PPQ)
	if err := writeChunk(&buf, tagMThd, header); err != nil {
		return nil, err
	}

	for i := range f.Tracks {
		body := encodeTrack(&f.Tracks[i])
		if err := writeChunk(&buf, tagMTrk, body); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// encodeTrack serializes one track's events, appending an EndOfTrackEvent
// if the track doesn't already end with one (§3). It never mutates t.
func encodeTrack(t *Track) []byte {
	events := t.Events
	if !t.EndsWithEndOfTrack() {
		events = append(append([]Event(nil), t.Events...), Event{Body: EndOfTrackEvent{}})
	}

	var buf bytes.Buffer
	for _, ev := range events {
		buf.Write(EncodeVLQ(ev.DeltaTime))
		encodeEventBody(&buf, ev.Body)
	}
	return buf.Bytes()
}

func encodeEventBody(buf *bytes.Buffer, body EventBody) {
	switch b := body.(type) {
	case TextEvent:
		encodeMeta(buf, byte(b.Kind), b.Data)
	case SysExEvent:
		buf.WriteByte(0xF0)
		buf.Write(EncodeVLQ(uint32(len(b.Data))))
		buf.Write(b.Data)
	case SequenceNumberEvent:
		payload := make([]byte, 2)
		binary.BigEndian.PutUint16(payload, b.Number)
		encodeMeta(buf, 0x00, payload)
	case ChannelPrefixEvent:
		encodeMeta(buf, 0x20, []byte{b.Channel})
	case MidiPortEvent:
		encodeMeta(buf, 0x21, []byte{b.Port})
	case SetTempoEvent:
		payload := []byte{
			byte(b.MicrosecondsPerQuarter >> 16),
			byte(b.MicrosecondsPerQuarter >> 8),
			byte(b.MicrosecondsPerQuarter),
		}
		encodeMeta(buf, 0x51, payload)
	case SMPTEOffsetEvent:
		encodeMeta(buf, 0x54, []byte{b.Hour, b.Minute, b.Second, b.Frame, b.FractionalFrame})
	case TimeSignatureEvent:
		encodeMeta(buf, 0x58, []byte{b.Numerator, b.DenominatorPow2, b.ClocksPerMetronomeTick, b.ThirtySecondsPerQuarter})
	case KeySignatureEvent:
		encodeMeta(buf, 0x59, []byte{byte(b.SharpsFlats), b.Minor})
	case EndOfTrackEvent:
		encodeMeta(buf, 0x2F, nil)
	case NoteOffEvent:
		buf.WriteByte(0x80 | b.Channel&0x0F)
		buf.WriteByte(b.Key & 0x7F)
		buf.WriteByte(b.Velocity & 0x7F)
	case NoteOnEvent:
		buf.WriteByte(0x90 | b.Channel&0x0F)
		buf.WriteByte(b.Key & 0x7F)
		buf.WriteByte(b.Velocity & 0x7F)
	case PolyphonicKeyPressureEvent:
		buf.WriteByte(0xA0 | b.Channel&0x0F)
		buf.WriteByte(b.Key & 0x7F)
		buf.WriteByte(b.Pressure & 0x7F)
	case ControlChangeEvent:
		buf.WriteByte(0xB0 | b.Channel&0x0F)
		buf.WriteByte(b.Control & 0x7F)
		buf.WriteByte(b.Value & 0x7F)
	case ProgramChangeEvent:
		buf.WriteByte(0xC0 | b.Channel&0x0F)
		buf.WriteByte(b.Program & 0x7F)
	case ChannelPressureEvent:
		buf.WriteByte(0xD0 | b.Channel&0x0F)
		buf.WriteByte(b.Pressure & 0x7F)
	case PitchWheelChangeEvent:
		buf.WriteByte(0xE0 | b.Channel&0x0F)
		buf.WriteByte(byte(b.Wheel & 0x7F))      // LSB first (§4.1.4)
		buf.WriteByte(byte((b.Wheel >> 7) & 0x7F)) // then MSB
	default:
		panic(fmt.Sprintf("smf: unhandled event body type %T", body))
	}
}

// encodeMeta writes a 0xFF <type> <VLQ length> <payload> meta-event frame.
func encodeMeta(buf *bytes.Buffer, metaType byte, payload []byte) {
	buf.WriteByte(0xFF)
	buf.WriteByte(metaType)
	buf.Write(EncodeVLQ(uint32(len(payload))))
	buf.Write(payload)
}

// Save encodes f and writes it to path (§6.2 save).
func Save(path string, f *File) error {
	data, err := Encode(f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", midierr.ErrIO, err)
	}
	return nil
}
