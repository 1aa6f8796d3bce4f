package smf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/luizfeldmann/midisched/internal/logging"
	"github.com/luizfeldmann/midisched/internal/midierr"
)

// Decode reads a complete Standard MIDI File from r (§4.1.2).
//
// Header-level problems (a missing/duplicate/malformed MThd, truncation
// between chunks) abort the whole load. A problem inside a single MTrk
// chunk is logged and that track is dropped, but already-decoded tracks
// are preserved (§7's best-effort loading policy).
func Decode(r io.Reader) (*File, error) {
	first, err := readChunk(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", midierr.ErrBadHeader)
		}
		return nil, err
	}
	if first.tag != tagMThd {
		return nil, fmt.Errorf("%w: expected MThd, got %q", midierr.ErrBadHeader, first.tag)
	}
	if len(first.payload) != 6 {
		return nil, fmt.Errorf("%w: MThd payload must be 6 bytes, got %d", midierr.ErrBadHeader, len(first.payload))
	}

	format := Format(binary.BigEndian.Uint16(first.payload[0:2]))
	ntrks := binary.BigEndian.Uint16(first.payload[2:4])
	division := binary.BigEndian.Uint16(first.payload[4:6])

	if division&0x8000 != 0 {
		return nil, fmt.Errorf("%w: SMPTE division is out of scope", midierr.ErrBadHeader)
	}
	if division == 0 {
		return nil, fmt.Errorf("%w: ppq must be nonzero", midierr.ErrBadHeader)
	}
	if format == FormatSingleTrack && ntrks != 1 {
		return nil, fmt.Errorf("%w: format 0 requires ntrks == 1, got %d", midierr.ErrBadHeader, ntrks)
	}

	f := &File{Format: format, PPQ: division}

	for trackIdx := 0; ; trackIdx++ {
		c, err := readChunk(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		switch c.tag {
		case tagMThd:
			return nil, fmt.Errorf("%w: duplicate MThd", midierr.ErrBadHeader)
		case tagMTrk:
			track, err := decodeTrack(trackIdx, c.payload)
			if err != nil {
				logging.Logger().Warn("dropping track after decode error",
					"track", trackIdx, "error", err)
				continue
			}
			f.Tracks = append(f.Tracks, *track)
		default:
			// Forward compatibility: skip unknown chunk tags silently (§4.1.2).
		}
	}

	return f, nil
}

// decodeTrack decodes one MTrk payload into a Track, running the
// delta-time/running-status state machine of §4.1.3.
func decodeTrack(trackIdx int, data []byte) (*Track, error) {
	track := &Track{}
	pos := 0
	var runningStatus byte

	for pos < len(data) {
		delta, n, err := DecodeVLQ(data[pos:])
		if err != nil {
			return nil, fmt.Errorf("track %d: delta time: %w", trackIdx, err)
		}
		pos += n

		if pos >= len(data) {
			return nil, fmt.Errorf("track %d: %w: missing status byte after delta time", trackIdx, midierr.ErrTruncated)
		}
		b := data[pos]

		var body EventBody
		switch {
		case b == 0xFF:
			pos++
			if pos >= len(data) {
				return nil, fmt.Errorf("track %d: %w: missing meta type", trackIdx, midierr.ErrTruncated)
			}
			metaType := data[pos]
			pos++

			length, n, err := DecodeVLQ(data[pos:])
			if err != nil {
				return nil, fmt.Errorf("track %d: meta length: %w", trackIdx, err)
			}
			pos += n
			if pos+int(length) > len(data) {
				return nil, fmt.Errorf("track %d: %w: meta payload", trackIdx, midierr.ErrTruncated)
			}
			payload := data[pos : pos+int(length)]
			pos += int(length)
			runningStatus = 0

			body = decodeMeta(trackIdx, metaType, payload)

		case b == 0xF0 || b == 0xF7:
			pos++
			length, n, err := DecodeVLQ(data[pos:])
			if err != nil {
				return nil, fmt.Errorf("track %d: sysex length: %w", trackIdx, err)
			}
			pos += n
			if pos+int(length) > len(data) {
				return nil, fmt.Errorf("track %d: %w: sysex payload", trackIdx, midierr.ErrTruncated)
			}
			payload := data[pos : pos+int(length)]
			pos += int(length)
			runningStatus = 0

			body = SysExEvent{Data: append([]byte(nil), payload...)}

		case b >= 0x80:
			pos++
			runningStatus = b
			body, err = decodeChannelEvent(b, data, &pos)
			if err != nil {
				return nil, fmt.Errorf("track %d: %w", trackIdx, err)
			}

		default:
			if runningStatus == 0 {
				return nil, fmt.Errorf("track %d: %w: byte 0x%02x with no running status", trackIdx, midierr.ErrUnknownEventType, b)
			}
			body, err = decodeChannelEvent(runningStatus, data, &pos)
			if err != nil {
				return nil, fmt.Errorf("track %d: %w", trackIdx, err)
			}
		}

		if body != nil {
			track.Events = append(track.Events, Event{DeltaTime: delta, Body: body})
			if _, isEOT := body.(EndOfTrackEvent); isEOT {
				return track, nil
			}
		}
	}

	return track, nil
}

// decodeChannelEvent reads the operand bytes for a channel-voice event
// whose status byte is `status`, advancing *pos past them.
func decodeChannelEvent(status byte, data []byte, pos *int) (EventBody, error) {
	high := status & 0xF0
	channel := status & 0x0F

	operandCount := 2
	switch high {
	case 0x80, 0x90, 0xA0, 0xB0, 0xE0:
		operandCount = 2
	case 0xC0, 0xD0:
		operandCount = 1
	default:
		return nil, fmt.Errorf("%w: status byte 0x%02x", midierr.ErrUnknownEventType, status)
	}

	if *pos+operandCount > len(data) {
		return nil, fmt.Errorf("%w: channel event operands", midierr.ErrTruncated)
	}
	op := data[*pos : *pos+operandCount]
	*pos += operandCount

	switch high {
	case 0x80:
		return NoteOffEvent{Channel: channel, Key: op[0] & 0x7F, Velocity: op[1] & 0x7F}, nil
	case 0x90:
		return NoteOnEvent{Channel: channel, Key: op[0] & 0x7F, Velocity: op[1] & 0x7F}, nil
	case 0xA0:
		return PolyphonicKeyPressureEvent{Channel: channel, Key: op[0] & 0x7F, Pressure: op[1] & 0x7F}, nil
	case 0xB0:
		return ControlChangeEvent{Channel: channel, Control: op[0] & 0x7F, Value: op[1] & 0x7F}, nil
	case 0xC0:
		return ProgramChangeEvent{Channel: channel, Program: op[0] & 0x7F}, nil
	case 0xD0:
		return ChannelPressureEvent{Channel: channel, Pressure: op[0] & 0x7F}, nil
	case 0xE0:
		wheel := uint16(op[0]&0x7F) | uint16(op[1]&0x7F)<<7
		return PitchWheelChangeEvent{Channel: channel, Wheel: wheel}, nil
	}
	panic("unreachable")
}

// decodeMeta decodes a meta-event payload given its type byte. It returns
// nil when the event should be dropped (a fatal length mismatch on
// SequenceNumber/SetTempo, or an unrecognized meta type), logging the
// reason either way (§4.1.3, §7).
func decodeMeta(trackIdx int, metaType byte, payload []byte) EventBody {
	log := logging.Logger()

	switch {
	case metaType == 0x00: // SequenceNumber
		if len(payload) != 2 {
			log.Warn("sequence number length mismatch, dropping event",
				"track", trackIdx, "expected", 2, "got", len(payload))
			return nil
		}
		return SequenceNumberEvent{Number: binary.BigEndian.Uint16(payload)}

	case metaType >= 0x01 && metaType <= 0x08:
		data := payload
		if len(data) > MaxTextLen {
			log.Warn("text-like meta event exceeds 255-byte cap, truncating",
				"track", trackIdx, "type", metaType, "len", len(data))
			data = data[:MaxTextLen]
		}
		return TextEvent{Kind: TextKind(metaType), Data: append([]byte(nil), data...)}

	case metaType == 0x7F: // SysEx escape
		data := payload
		if len(data) > MaxTextLen {
			log.Warn("text-like meta event exceeds 255-byte cap, truncating",
				"track", trackIdx, "type", metaType, "len", len(data))
			data = data[:MaxTextLen]
		}
		return TextEvent{Kind: KindSysExEscape, Data: append([]byte(nil), data...)}

	case metaType == 0x20: // ChannelPrefix
		if len(payload) != 1 {
			log.Warn("channel prefix length mismatch", "track", trackIdx, "expected", 1, "got", len(payload))
			if len(payload) == 0 {
				return nil
			}
		}
		channel := payload[0]
		if channel > 15 {
			log.Warn("channel prefix out of range", "track", trackIdx, "channel", channel)
		}
		return ChannelPrefixEvent{Channel: channel}

	case metaType == 0x21: // MidiPort
		if len(payload) != 1 {
			log.Warn("midi port length mismatch", "track", trackIdx, "expected", 1, "got", len(payload))
			if len(payload) == 0 {
				return nil
			}
		}
		return MidiPortEvent{Port: payload[0]}

	case metaType == 0x2F: // EndOfTrack
		if len(payload) != 0 {
			log.Warn("end of track has nonzero length, ignoring payload", "track", trackIdx, "got", len(payload))
		}
		return EndOfTrackEvent{}

	case metaType == 0x51: // SetTempo
		if len(payload) != 3 {
			log.Warn("set tempo length mismatch, dropping event",
				"track", trackIdx, "expected", 3, "got", len(payload))
			return nil
		}
		tempo := uint32(payload[0])<<16 | uint32(payload[1])<<8 | uint32(payload[2])
		return SetTempoEvent{MicrosecondsPerQuarter: tempo}

	case metaType == 0x54: // SMPTEOffset
		if len(payload) != 5 {
			log.Warn("smpte offset length mismatch", "track", trackIdx, "expected", 5, "got", len(payload))
			if len(payload) < 5 {
				return nil
			}
		}
		return SMPTEOffsetEvent{
			Hour: payload[0], Minute: payload[1], Second: payload[2],
			Frame: payload[3], FractionalFrame: payload[4],
		}

	case metaType == 0x58: // TimeSignature
		if len(payload) != 4 {
			log.Warn("time signature length mismatch", "track", trackIdx, "expected", 4, "got", len(payload))
			if len(payload) < 4 {
				return nil
			}
		}
		return TimeSignatureEvent{
			Numerator: payload[0], DenominatorPow2: payload[1],
			ClocksPerMetronomeTick: payload[2], ThirtySecondsPerQuarter: payload[3],
		}

	case metaType == 0x59: // KeySignature
		if len(payload) != 2 {
			log.Warn("key signature length mismatch", "track", trackIdx, "expected", 2, "got", len(payload))
			if len(payload) < 2 {
				return nil
			}
		}
		mi := payload[1]
		if mi > 1 {
			log.Warn("key signature mode out of range", "track", trackIdx, "mi", mi)
		}
		return KeySignatureEvent{SharpsFlats: int8(payload[0]), Minor: mi}

	default:
		log.Debug("unrecognized meta event type, skipping", "track", trackIdx, "type", fmt.Sprintf("0x%02X", metaType))
		return nil
	}
}

// Open decodes a Standard MIDI File from path (§6.2 open).
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", midierr.ErrIO, err)
	}
	return Decode(bytes.NewReader(data))
}

// Close releases a File. File and its Tracks/Events/payloads are ordinary
// garbage-collected Go values with no external resources, so Close is a
// documented no-op kept for API parity with §6.2's close(File) and the
// single-release-point lifecycle described in §3.
func Close(f *File) { _ = f }
