package smf

import "fmt"

// Format identifies the SMF track arrangement (§3, §9 Q4).
type Format uint16

const (
	// FormatSingleTrack requires exactly one track.
	FormatSingleTrack Format = 0
	// FormatMultiTrackSync is the common multi-track, single-tempo-map format.
	FormatMultiTrackSync Format = 1
	// FormatMultiTrackAsync holds sequentially independent track patterns;
	// playback semantics (concatenation vs. parallel) are left to the
	// caller (§9 Q4). See player.ConcatenateTracks for an opt-in helper.
	FormatMultiTrackAsync Format = 2
)

// File is the decoded in-memory representation of a Standard MIDI File.
// Tracks and their events are owned by the File; AbsoluteNote entries
// produced from it are weak references and must not outlive it (§3).
type File struct {
	Format Format
	PPQ    uint16
	Tracks []Track
}

// Validate checks the format-0/ntrks invariant and the nonzero-PPQ
// invariant from §3. SMPTE division is out of scope (§1), so any PPQ with
// the high bit set on the wire is rejected earlier, during decode.
func (f *File) Validate() error {
	if f.Format == FormatSingleTrack && len(f.Tracks) != 1 {
		return fmt.Errorf("format 0 requires exactly one track, got %d", len(f.Tracks))
	}
	if f.PPQ == 0 {
		return fmt.Errorf("ppq must be nonzero")
	}
	return nil
}
