// Package player implements the tempo-aware, multi-track playback
// scheduler (§4.3): a merge-walk over tracks in tick order that applies
// tempo changes to a live clock and dispatches note/program events to an
// external synth.Sink via a user callback that may filter or abort.
package player

import (
	"fmt"

	"github.com/luizfeldmann/midisched/internal/logging"
	"github.com/luizfeldmann/midisched/internal/sched"
	"github.com/luizfeldmann/midisched/pkg/smf"
	"github.com/luizfeldmann/midisched/pkg/synth"
)

// Action is what a Callback tells the Player to do with one event (§4.3).
type Action int

const (
	// ActionPlay dispatches the event's side effect (note on/off, program
	// change) if it has one.
	ActionPlay Action = iota
	// ActionIgnore suppresses the side effect but lets the scheduler
	// continue. SetTempo is applied either way (§4.3 step 3).
	ActionIgnore
	// ActionAbort stops the scheduler immediately, before this event's
	// tempo update (if any) or side effect is applied.
	ActionAbort
)

// Callback is invoked once per event in scheduled (tick, track) order.
type Callback func(ev smf.Event, track int, clockTicks, clockUs uint64) Action

// Player drives a synth.Sink from a File's tracks. It owns the Sink
// exclusively for the duration of Play (§5).
type Player struct {
	Sink  synth.Sink
	Clock synth.Clock
}

// New builds a Player. A nil clock defaults to synth.RealtimeClock.
func New(sink synth.Sink, clock synth.Clock) *Player {
	if clock == nil {
		clock = synth.RealtimeClock{}
	}
	return &Player{Sink: sink, Clock: clock}
}

// Play schedules f's tracks (§6.2 play). Events before startUs are
// fast-forwarded without sleeping or producing note side effects; program
// changes are dispatched whatever their time. SetTempo is always applied regardless of the callback's
// result, so the clock stays consistent across the whole walk even while
// fast-forwarding (§4.3).
func (p *Player) Play(f *smf.File, startUs uint64, cb Callback) error {
	if err := p.Sink.Open(); err != nil {
		return fmt.Errorf("player: opening sink: %w", err)
	}
	defer func() {
		if err := p.Sink.Close(); err != nil {
			logging.Logger().Warn("closing synth sink", "error", err)
		}
	}()

	fire := func(ev smf.Event, track int, clockTicks, clockUs uint64) (abort bool) {
		action := cb(ev, track, clockTicks, clockUs)
		if action == ActionAbort {
			return true
		}
		if action == ActionPlay {
			p.dispatch(ev, clockUs, startUs)
		}
		return false
	}

	return sched.Walk(f, startUs, p.Clock, fire)
}

// dispatch emits the event's side effect to the sink. Errors from the
// sink are logged, not propagated: a missed note is preferable to a hung
// scheduler (§7).
func (p *Player) dispatch(ev smf.Event, clockUs, startUs uint64) {
	switch b := ev.Body.(type) {
	case smf.NoteOnEvent:
		if clockUs < startUs {
			return
		}
		if err := p.Sink.Note(b.Channel, b.Key, b.Velocity, !b.IsNoteOff()); err != nil {
			logging.Logger().Warn("synth sink note-on dispatch failed", "error", err)
		}
	case smf.NoteOffEvent:
		if clockUs < startUs {
			return
		}
		if err := p.Sink.Note(b.Channel, b.Key, b.Velocity, false); err != nil {
			logging.Logger().Warn("synth sink note-off dispatch failed", "error", err)
		}
	case smf.ProgramChangeEvent:
		if err := p.Sink.ProgramChange(b.Channel, b.Program); err != nil {
			logging.Logger().Warn("synth sink program-change dispatch failed", "error", err)
		}
	}
}
