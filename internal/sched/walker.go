// Package sched holds the tempo-aware multi-track merge-walk shared by
// pkg/timemap and pkg/player (§4.2, §4.3, and the design note in §9 about
// the source's locally-scoped function pointers in map_absolute_time:
// here that becomes one generic walker driven by a Fire closure).
package sched

import (
	"fmt"

	"github.com/luizfeldmann/midisched/pkg/smf"
)

// DefaultTickMicros is the tick duration before any SetTempo event is
// seen: 2602us per tick, i.e. about 1.25 s per quarter note (roughly
// 48 BPM) at 480 PPQ, or roughly 120 BPM at 192 PPQ (§4.3).
const DefaultTickMicros = 2602

// Fire is invoked once per event in scheduled (tick, track-index) order.
// clockTicks/clockUs are the walker's clock at the moment this event
// fires, i.e. after advancing by the shared wait but before this event's
// own tempo update (if it is a SetTempo) takes effect. Dispatching the
// event's side effect (Play vs. Ignore, in the caller's own vocabulary) is
// entirely the caller's concern; Fire reports back to Walk only whether
// to abort, since that is the one outcome the shared walk loop must act
// on itself (it stops before applying this event's tempo update, §4.3).
type Fire func(ev smf.Event, track int, clockTicks uint64, clockUs uint64) (abort bool)

// Sleeper is the tick clock capability (§6.3's sleep_microseconds). Walk
// calls it once per scheduling step with the step's duration in
// microseconds. A nil Sleeper means "do not sleep" (used by the time map,
// which only needs the clock values, not real-time playback).
type Sleeper interface {
	SleepMicroseconds(us uint64) error
}

// Walk runs the scheduling loop of §4.3 over every track of f, starting
// sleeps only once clockUs reaches startUs (fast-forwarding before that).
// It returns early, with no error, if Fire ever returns true (abort).
func Walk(f *smf.File, startUs uint64, sleep Sleeper, fire Fire) error {
	ntracks := len(f.Tracks)
	if ntracks == 0 {
		return nil
	}
	if f.PPQ == 0 {
		return fmt.Errorf("sched: ppq must be nonzero")
	}

	waitTicks := make([]uint64, ntracks)
	nextIndex := make([]int, ntracks)
	finished := make([]bool, ntracks)
	finishedCount := 0

	for t := 0; t < ntracks; t++ {
		if len(f.Tracks[t].Events) == 0 {
			finished[t] = true
			finishedCount++
			continue
		}
		waitTicks[t] = uint64(f.Tracks[t].Events[0].DeltaTime)
	}

	// The clock is tracked as an anchor (segmentTicks, segmentUs) plus the
	// tempo in effect since that anchor, so clock_us for any tick is
	// computed with a single multiply-then-divide from the anchor rather
	// than accumulated tick-by-tick: repeatedly rounding d*tickUs and
	// summing would drift away from the exact value Property P4 requires
	// (e.g. tempo 500000 / ppq 480 is not an integer number of us/tick).
	tempoUs := uint64(0) // 0 means "use DefaultTickMicros directly", see clockUsAt
	var segmentTicks, segmentUs uint64
	var clockTicks, clockUs uint64

	clockUsAt := func(ticks uint64) uint64 {
		if tempoUs == 0 {
			return segmentUs + (ticks-segmentTicks)*DefaultTickMicros
		}
		return segmentUs + (ticks-segmentTicks)*tempoUs/uint64(f.PPQ)
	}

	for finishedCount < ntracks {
		d, ok := minWait(waitTicks, finished)
		if !ok {
			break
		}

		prevUs := clockUs
		clockTicks += d
		clockUs = clockUsAt(clockTicks)

		if sleep != nil && clockUs >= startUs {
			if err := sleep.SleepMicroseconds(clockUs - prevUs); err != nil {
				return fmt.Errorf("sched: sleep: %w", err)
			}
		}

		for t := 0; t < ntracks; t++ {
			if finished[t] {
				continue
			}
			waitTicks[t] -= d
			if waitTicks[t] != 0 {
				continue
			}

			ev := f.Tracks[t].Events[nextIndex[t]]
			if fire(ev, t, clockTicks, clockUs) {
				return nil
			}
			if tempo, isTempo := ev.Body.(smf.SetTempoEvent); isTempo {
				segmentTicks, segmentUs = clockTicks, clockUs
				tempoUs = uint64(tempo.MicrosecondsPerQuarter)
			}

			nextIndex[t]++
			if nextIndex[t] >= len(f.Tracks[t].Events) {
				finished[t] = true
				finishedCount++
			} else {
				waitTicks[t] = uint64(f.Tracks[t].Events[nextIndex[t]].DeltaTime)
			}
		}
	}

	return nil
}

// minWait returns the minimum wait among unfinished tracks, and whether
// any unfinished track remains (ties broken by track index by the caller,
// which always scans tracks 0..n-1 in order when firing).
func minWait(waitTicks []uint64, finished []bool) (uint64, bool) {
	best := uint64(0)
	found := false
	for t, f := range finished {
		if f {
			continue
		}
		if !found || waitTicks[t] < best {
			best = waitTicks[t]
			found = true
		}
	}
	return best, found
}
