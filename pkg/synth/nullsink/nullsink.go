// Package nullsink provides a Sink that records calls without producing
// audio, for tests and for callers that want to drive the Player purely
// for its side-effect-free bookkeeping (e.g. dry-running a file before
// committing to real playback).
package nullsink

import "github.com/luizfeldmann/midisched/pkg/synth"

// Note is one recorded Sink.Note call.
type Note struct {
	Channel, Key, Velocity uint8
	On                     bool
}

// ProgramChange is one recorded Sink.ProgramChange call.
type ProgramChange struct {
	Channel, Program uint8
}

// Sink is a synth.Sink that records every call instead of making sound.
type Sink struct {
	Notes          []Note
	ProgramChanges []ProgramChange
	opened         bool
}

var _ synth.Sink = (*Sink)(nil)

func New() *Sink { return &Sink{} }

func (s *Sink) Open() error  { s.opened = true; return nil }
func (s *Sink) Close() error { s.opened = false; return nil }
func (s *Sink) Reset() error {
	s.Notes = nil
	s.ProgramChanges = nil
	return nil
}

func (s *Sink) ProgramChange(channel, program uint8) error {
	s.ProgramChanges = append(s.ProgramChanges, ProgramChange{Channel: channel, Program: program})
	return nil
}

func (s *Sink) Note(channel, key, velocity uint8, on bool) error {
	s.Notes = append(s.Notes, Note{Channel: channel, Key: key, Velocity: velocity, On: on})
	return nil
}
