// Package smf implements a Standard MIDI File (format 0/1/2) codec: the
// variable-length quantity and chunk layer, the stateful running-status
// track decoder, the inverse encoder, and the in-memory event model they
// both share.
package smf

// TextKind distinguishes the text-like meta/sysex event variants, which
// all share the same byte-string payload shape (§3 of the spec).
type TextKind byte

const (
	KindText           TextKind = 0x01
	KindCopyright      TextKind = 0x02
	KindSequenceName   TextKind = 0x03
	KindInstrumentName TextKind = 0x04
	KindLyric          TextKind = 0x05
	KindMarker         TextKind = 0x06
	KindCuePoint       TextKind = 0x07
	KindProgramName    TextKind = 0x08
	KindSysExEscape    TextKind = 0x7F
)

// MaxTextLen is the source's deliberate 255-byte cap on text-like payloads
// (the length itself is written as a VLQ on the wire). See DESIGN.md Q3.
const MaxTextLen = 255

// EventBody is the tagged union of every event payload this package knows
// how to decode and encode. The unexported marker method makes the variant
// set closed: only types in this file implement EventBody.
type EventBody interface {
	isEventBody()
}

// TextEvent covers Text, Copyright, SequenceName, InstrumentName, Lyric,
// Marker, CuePoint, ProgramName, and the 0x7F SysEx escape meta-event.
// Data is capped at MaxTextLen bytes.
type TextEvent struct {
	Kind TextKind
	Data []byte
}

// SysExEvent is the 0xF0 SysEx-start framing. It is emitted as 0xF0, a VLQ
// length and the data, not as a 0xFF meta-event (§4.1.4).
type SysExEvent struct {
	Data []byte
}

// SequenceNumberEvent is the 0x00 meta-event, a big-endian u16 on the wire.
type SequenceNumberEvent struct {
	Number uint16
}

// ChannelPrefixEvent is the 0x20 meta-event.
type ChannelPrefixEvent struct {
	Channel uint8
}

// MidiPortEvent is the 0x21 meta-event.
type MidiPortEvent struct {
	Port uint8
}

// SetTempoEvent is the 0x51 meta-event: microseconds per quarter note,
// encoded as 3 bytes (u24) on the wire.
type SetTempoEvent struct {
	MicrosecondsPerQuarter uint32
}

// SMPTEOffsetEvent is the 0x54 meta-event.
type SMPTEOffsetEvent struct {
	Hour, Minute, Second, Frame, FractionalFrame uint8
}

// TimeSignatureEvent is the 0x58 meta-event.
type TimeSignatureEvent struct {
	Numerator              uint8
	DenominatorPow2        uint8 // denominator is 2^DenominatorPow2
	ClocksPerMetronomeTick uint8
	ThirtySecondsPerQuarter uint8
}

// KeySignatureEvent is the 0x59 meta-event. SharpsFlats counts flats when
// negative, sharps when positive, in [-7, 7]. Minor is 0 for major, 1 for
// minor; other values are accepted but logged as a warning (§3).
type KeySignatureEvent struct {
	SharpsFlats int8
	Minor       uint8
}

// EndOfTrackEvent is the 0x2F meta-event; it carries no payload.
type EndOfTrackEvent struct{}

// NoteOffEvent is a channel-voice NoteOff (status nibble 0x80).
type NoteOffEvent struct {
	Channel, Key, Velocity uint8
}

// NoteOnEvent is a channel-voice NoteOn (status nibble 0x90). A NoteOn with
// Velocity == 0 is semantically a NoteOff; TimeMap and Player both honour
// this (§3, §4.2, §4.3, Property P6).
type NoteOnEvent struct {
	Channel, Key, Velocity uint8
}

// IsNoteOff reports whether this NoteOn is the velocity-0 NoteOff alias.
func (e NoteOnEvent) IsNoteOff() bool { return e.Velocity == 0 }

// PolyphonicKeyPressureEvent is status nibble 0xA0.
type PolyphonicKeyPressureEvent struct {
	Channel, Key, Pressure uint8
}

// ControlChangeEvent is status nibble 0xB0.
type ControlChangeEvent struct {
	Channel, Control, Value uint8
}

// ProgramChangeEvent is status nibble 0xC0.
type ProgramChangeEvent struct {
	Channel, Program uint8
}

// ChannelPressureEvent is status nibble 0xD0.
type ChannelPressureEvent struct {
	Channel, Pressure uint8
}

// PitchWheelChangeEvent is status nibble 0xE0. Wheel is the 14-bit value
// reconstructed from the wire's LSB-first 7-bit byte pair.
type PitchWheelChangeEvent struct {
	Channel uint8
	Wheel   uint16
}

func (TextEvent) isEventBody()                  {}
func (SysExEvent) isEventBody()                 {}
func (SequenceNumberEvent) isEventBody()        {}
func (ChannelPrefixEvent) isEventBody()         {}
func (MidiPortEvent) isEventBody()              {}
func (SetTempoEvent) isEventBody()              {}
func (SMPTEOffsetEvent) isEventBody()           {}
func (TimeSignatureEvent) isEventBody()         {}
func (KeySignatureEvent) isEventBody()          {}
func (EndOfTrackEvent) isEventBody()            {}
func (NoteOffEvent) isEventBody()               {}
func (NoteOnEvent) isEventBody()                {}
func (PolyphonicKeyPressureEvent) isEventBody() {}
func (ControlChangeEvent) isEventBody()         {}
func (ProgramChangeEvent) isEventBody()         {}
func (ChannelPressureEvent) isEventBody()       {}
func (PitchWheelChangeEvent) isEventBody()      {}

// Event is a single decoded MIDI event: a delta time in ticks relative to
// the previous event on the same track, plus its payload.
type Event struct {
	DeltaTime uint32
	Body      EventBody
}

// IsNoteOff reports whether this event terminates a sounding note, either
// because it is a NoteOff or a velocity-0 NoteOn (§3, Property P6).
func (e Event) IsNoteOff() bool {
	switch b := e.Body.(type) {
	case NoteOffEvent:
		return true
	case NoteOnEvent:
		return b.IsNoteOff()
	}
	return false
}

// NoteChannelKey extracts (channel, key) for NoteOn/NoteOff events; ok is
// false for any other event type.
func (e Event) NoteChannelKey() (channel, key uint8, ok bool) {
	switch b := e.Body.(type) {
	case NoteOnEvent:
		return b.Channel, b.Key, true
	case NoteOffEvent:
		return b.Channel, b.Key, true
	}
	return 0, 0, false
}
