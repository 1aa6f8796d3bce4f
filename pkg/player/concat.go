package player

import "github.com/luizfeldmann/midisched/pkg/smf"

// ConcatenateTracks merges a format-2 file's sequentially independent
// tracks into the single track of a format-0 file, for callers that want
// concatenation semantics instead of the scheduler's default "parallel
// tracks" treatment of format 2 (§9 Q4 leaves this choice to the caller;
// the scheduler itself never concatenates). f is not modified.
func ConcatenateTracks(f *smf.File) *smf.File {
	var merged []smf.Event
	for _, t := range f.Tracks {
		merged = append(merged, t.Events...)
	}

	out := &smf.Track{Events: merged}
	out.EnsureEndOfTrack()

	return &smf.File{
		Format: smf.FormatSingleTrack,
		PPQ:    f.PPQ,
		Tracks: []smf.Track{*out},
	}
}
