// Package timemap reconstructs absolute-time note-on/note-off pairings
// across a multi-track Standard MIDI File while the tick-to-microsecond
// ratio changes via tempo events (§4.2).
package timemap

import (
	"math"

	"github.com/luizfeldmann/midisched/internal/sched"
	"github.com/luizfeldmann/midisched/pkg/smf"
)

// UnclosedEndUs is the sentinel end time for a note whose NoteOff was
// never observed (§3's "end_us = UINT_MAX").
const UnclosedEndUs = math.MaxUint64

// AbsoluteNote is one reconstructed note interval. Track/OnEvent/OffEvent
// are weak references into the File passed to MapAbsoluteTime: they must
// not be used after that File is discarded (§3).
type AbsoluteNote struct {
	Track    int
	OnEvent  smf.Event
	OffEvent *smf.Event // nil until closed
	StartUs  uint64
	EndUs    uint64 // UnclosedEndUs if never closed
}

// MapAbsoluteTime schedules every track of f through the shared
// tempo-aware merge-walk (§4.3) without a sink or sleeping, and returns every
// NoteOn paired with its NoteOff (or velocity-0 NoteOn alias, §3/P6).
//
// Pairing policy: a NoteOn opens a new entry with EndUs = UnclosedEndUs. A
// NoteOff (or velocity-0 NoteOn) closes the most-recently-opened unclosed
// entry on the same (track, channel, key) — scanned most-recent-first
// (§4.2). An entry that is never closed stays open; that is an allowed
// outcome, not an error (Property P5).
func MapAbsoluteTime(f *smf.File) ([]AbsoluteNote, error) {
	var notes []AbsoluteNote

	fire := func(ev smf.Event, track int, clockTicks, clockUs uint64) (abort bool) {
		channel, key, ok := ev.NoteChannelKey()
		if !ok {
			return false
		}

		if ev.IsNoteOff() {
			closeNote(notes, track, channel, key, ev, clockUs)
			return false
		}

		notes = append(notes, AbsoluteNote{
			Track:   track,
			OnEvent: ev,
			StartUs: clockUs,
			EndUs:   UnclosedEndUs,
		})
		return false
	}

	if err := sched.Walk(f, 0, nil, fire); err != nil {
		return nil, err
	}
	return notes, nil
}

// closeNote scans notes from most-recent to oldest for the first unclosed
// entry matching (track, channel, key) and closes it in place.
func closeNote(notes []AbsoluteNote, track int, channel, key uint8, off smf.Event, endUs uint64) {
	for i := len(notes) - 1; i >= 0; i-- {
		n := &notes[i]
		if n.Track != track || n.EndUs != UnclosedEndUs {
			continue
		}
		onChannel, onKey, ok := n.OnEvent.NoteChannelKey()
		if !ok || onChannel != channel || onKey != key {
			continue
		}
		offCopy := off
		n.OffEvent = &offCopy
		n.EndUs = endUs
		return
	}
}
