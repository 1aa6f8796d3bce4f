// Package meltysink implements synth.Sink on top of
// github.com/sinshu/go-meltysynth/meltysynth's software synthesizer,
// rendered to a speaker through github.com/hajimehoshi/ebiten/v2/audio.
// This is the one concrete "platform synth backend" the spec's design
// notes (§9) ask to be pickable at construction time; it is grounded
// directly on the teacher's pkg/vm/audio.MIDIPlayer/MIDIStream pair,
// generalized from "play this MIDI file" to "drive this synth.Sink from
// whatever Player is scheduling".
package meltysink

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/luizfeldmann/midisched/pkg/synth"
)

// SampleRate is the audio sample rate used for synthesis and output.
const SampleRate = 44100

const (
	statusNoteOff       = 0x80
	statusNoteOn        = 0x90
	statusProgramChange = 0xC0
)

// Sink renders MIDI note/program-change messages through a meltysynth
// Synthesizer and plays the result via an ebiten audio.Player.
type Sink struct {
	synth  *meltysynth.Synthesizer
	ctx    *audio.Context
	player *audio.Player
	stream *renderStream
	mu     sync.Mutex
}

var _ synth.Sink = (*Sink)(nil)

// New loads the SoundFont at soundFontPath and builds a Sink. audioCtx may
// be nil, in which case a fresh ebiten audio.Context is created (ebiten
// only allows one process-wide context, so callers that already have one
// should pass it in).
func New(soundFontPath string, audioCtx *audio.Context) (*Sink, error) {
	data, err := os.ReadFile(soundFontPath)
	if err != nil {
		return nil, fmt.Errorf("meltysink: reading soundfont: %w", err)
	}

	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("meltysink: parsing soundfont: %w", err)
	}

	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	synthesizer, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, fmt.Errorf("meltysink: creating synthesizer: %w", err)
	}

	if audioCtx == nil {
		audioCtx = audio.NewContext(SampleRate)
	}

	return &Sink{synth: synthesizer, ctx: audioCtx}, nil
}

// Open starts the audio output stream.
func (s *Sink) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stream = &renderStream{synth: s.synth}
	player, err := s.ctx.NewPlayer(s.stream)
	if err != nil {
		return fmt.Errorf("meltysink: creating audio player: %w", err)
	}
	s.player = player
	s.player.Play()
	return nil
}

// Close stops the audio output stream.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		s.stream.stop()
	}
	if s.player != nil {
		if err := s.player.Close(); err != nil {
			return fmt.Errorf("meltysink: closing player: %w", err)
		}
		s.player = nil
	}
	return nil
}

// Reset silences all voices, grounded on meltysynth.Synthesizer's Reset.
func (s *Sink) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synth.Reset()
	return nil
}

// ProgramChange forwards a program change to the synthesizer.
func (s *Sink) ProgramChange(channel, program uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synth.ProcessMidiMessage(int32(channel), statusProgramChange, int32(program), 0)
	return nil
}

// Note forwards a note on/off to the synthesizer. NoteOn with velocity 0
// is dispatched as NoteOff by the caller (Player), per §4.3 step 5.
func (s *Sink) Note(channel, key, velocity uint8, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := int32(statusNoteOff)
	if on {
		status = statusNoteOn
	}
	s.synth.ProcessMidiMessage(int32(channel), status, int32(key), int32(velocity))
	return nil
}

// renderStream adapts meltysynth.Synthesizer.Render to io.Reader for
// ebiten/v2/audio, grounded on the teacher's MIDIStream.Read.
type renderStream struct {
	synth   *meltysynth.Synthesizer
	stopped bool
	mu      sync.Mutex
}

func (r *renderStream) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
}

func (r *renderStream) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	samples := len(p) / 4 // 16-bit stereo = 4 bytes per sample
	if samples == 0 {
		return 0, nil
	}

	left := make([]float32, samples)
	right := make([]float32, samples)
	r.synth.Render(left, right)

	for i := 0; i < samples; i++ {
		l := int16(clamp(left[i]) * 32767)
		rr := int16(clamp(right[i]) * 32767)
		binary.LittleEndian.PutUint16(p[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(rr))
	}

	return len(p), nil
}

func clamp(v float32) float32 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
