// Package transpose implements key-signature-aware pitch transposition
// (§4.4): given a file's first KeySignature event and a target entry from
// the 30-row circle-of-fifths table, every NoteOn/NoteOff key shifts by the
// same semitone delta (0 to 11, upward) and every KeySignature event is
// rewritten.
package transpose

import (
	"fmt"

	"github.com/luizfeldmann/midisched/internal/midierr"
	"github.com/luizfeldmann/midisched/pkg/smf"
)

// GetKeySignature returns the first KeySignature meta-event in file order,
// scanning tracks and then events within each track (§6.2 get_key_signature).
func GetKeySignature(f *smf.File) (smf.KeySignatureEvent, bool) {
	for _, t := range f.Tracks {
		for _, ev := range t.Events {
			if ks, ok := ev.Body.(smf.KeySignatureEvent); ok {
				return ks, true
			}
		}
	}
	return smf.KeySignatureEvent{}, false
}

// IsSharp reports whether key's pitch class belongs to the sharp set
// {1,3,6,8,10} (§6.2 is_sharp) rather than being a natural or conventionally
// spelled as a flat.
func IsSharp(key uint8) bool {
	switch key % 12 {
	case 1, 3, 6, 8, 10:
		return true
	default:
		return false
	}
}

// Transpose rewrites f in place to target's key signature (§4.4):
//
//  1. The source key (the file's first KeySignature) and target must share
//     Minor; a major/minor crossing is rejected.
//  2. delta is target.SemitoneDelta - source.SemitoneDelta, taken mod 12 in
//     [0, 11].
//  3. Every NoteOn/NoteOff key in every track shifts by delta, saturating at
//     the MIDI range's edges rather than wrapping (§9 Q1): a transposition
//     that pushes a key past 127 or below 0 clamps to 127 or 0, since
//     wrapping would silently relocate a note by an octave or more rather
//     than leave it at the instrument's audible limit.
//  4. Every KeySignature event in f, not only the source one, is
//     overwritten with target.
//
// Transpose returns the applied delta in [0, 11]. If f has no KeySignature
// event, it is treated as C major (sf=0, mi=0) per the common SMF
// convention that an absent KeySignature means no key has been asserted yet.
func Transpose(f *smf.File, target KeyEntry) (int, error) {
	source, ok := GetKeySignature(f)
	if !ok {
		source = smf.KeySignatureEvent{SharpsFlats: 0, Minor: 0}
	}

	if source.Minor != target.Minor {
		return 0, fmt.Errorf("transpose: source mi=%d, target mi=%d: %w", source.Minor, target.Minor, midierr.ErrInvariantViolation)
	}

	sourceEntry, ok := Lookup(source.SharpsFlats, source.Minor)
	if !ok {
		return 0, fmt.Errorf("transpose: source key signature sf=%d mi=%d not in table", source.SharpsFlats, source.Minor)
	}

	delta := mod12(int(target.SemitoneDelta) - int(sourceEntry.SemitoneDelta))

	for t := range f.Tracks {
		events := f.Tracks[t].Events
		for i := range events {
			switch b := events[i].Body.(type) {
			case smf.NoteOnEvent:
				b.Key = shiftKey(b.Key, delta)
				events[i].Body = b
			case smf.NoteOffEvent:
				b.Key = shiftKey(b.Key, delta)
				events[i].Body = b
			case smf.KeySignatureEvent:
				events[i].Body = smf.KeySignatureEvent{SharpsFlats: target.SharpsFlats, Minor: target.Minor}
			}
		}
	}

	return delta, nil
}

// shiftKey adds delta semitones to key, saturating at [0, 127].
func shiftKey(key uint8, delta int) uint8 {
	shifted := int(key) + delta
	if shifted < 0 {
		return 0
	}
	if shifted > 127 {
		return 127
	}
	return uint8(shifted)
}
