// Command midiplay is a thin CLI front end over pkg/smf, pkg/transpose,
// and pkg/player: open a file, print a summary, optionally transpose and
// save it, optionally play it through a SoundFont-backed synth sink.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/text/encoding"

	"github.com/luizfeldmann/midisched/internal/logging"
	"github.com/luizfeldmann/midisched/pkg/cli"
	"github.com/luizfeldmann/midisched/pkg/player"
	"github.com/luizfeldmann/midisched/pkg/smf"
	"github.com/luizfeldmann/midisched/pkg/synth"
	"github.com/luizfeldmann/midisched/pkg/synth/meltysink"
	"github.com/luizfeldmann/midisched/pkg/synth/nullsink"
	"github.com/luizfeldmann/midisched/pkg/transpose"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "midiplay:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	if config.ShowHelp || config.MIDIPath == "" {
		cli.PrintHelp()
		return nil
	}
	if err := logging.Init(config.LogLevel); err != nil {
		return err
	}

	f, err := smf.Open(config.MIDIPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", config.MIDIPath, err)
	}
	defer smf.Close(f)

	printSummary(config.MIDIPath, f, config.TextEncoding)

	if config.TargetKeySet {
		target, ok := transpose.Lookup(int8(config.TargetKeySF), minorFlag(config.TargetMinor))
		if !ok {
			return fmt.Errorf("no key signature with sf=%d mi=%d in the transposition table", config.TargetKeySF, minorFlag(config.TargetMinor))
		}
		delta, err := transpose.Transpose(f, target)
		if err != nil {
			return fmt.Errorf("transposing: %w", err)
		}
		logging.Logger().Info("transposed", "delta_semitones", delta, "target", target.Label)
	}

	if config.OutputPath != "" {
		if err := smf.Save(config.OutputPath, f); err != nil {
			return fmt.Errorf("saving %s: %w", config.OutputPath, err)
		}
		return nil
	}

	return playFile(f, config)
}

func minorFlag(minor bool) uint8 {
	if minor {
		return 1
	}
	return 0
}

func printSummary(path string, f *smf.File, textEncoding encoding.Encoding) {
	logger := logging.Logger()
	logger.Info("loaded file", "path", path, "format", f.Format, "ppq", f.PPQ, "ntracks", len(f.Tracks))

	if ks, ok := transpose.GetKeySignature(f); ok {
		logger.Info("key signature", "sharps_flats", ks.SharpsFlats, "minor", ks.Minor == 1)
	}

	for i, t := range f.Tracks {
		for _, ev := range t.Events {
			if tempo, ok := ev.Body.(smf.SetTempoEvent); ok {
				logger.Info("tempo", "track", i, "us_per_quarter", tempo.MicrosecondsPerQuarter)
				break
			}
		}
	}

	printTextEvents(logger, f, textEncoding)
}

// printTextEvents logs every Lyric/SequenceName/Text/... meta-event's
// payload, decoded with textEncoding (nil means raw/UTF-8).
func printTextEvents(logger *slog.Logger, f *smf.File, textEncoding encoding.Encoding) {
	for i, t := range f.Tracks {
		for _, ev := range t.Events {
			text, ok := ev.Body.(smf.TextEvent)
			if !ok || text.Kind == smf.KindSysExEscape {
				continue
			}

			decoded, err := smf.DecodeText(text.Data, textEncoding)
			if err != nil {
				logger.Warn("decoding text meta-event", "track", i, "kind", text.Kind, "error", err)
				continue
			}
			logger.Info("text meta-event", "track", i, "kind", text.Kind, "text", decoded)
		}
	}
}

func playFile(f *smf.File, config *cli.Config) error {
	var sink synth.Sink
	if config.SoundFont != "" {
		s, err := meltysink.New(config.SoundFont, nil)
		if err != nil {
			return fmt.Errorf("initializing synth: %w", err)
		}
		sink = s
	} else {
		logging.Logger().Warn("no --soundfont given; playing silently")
		sink = nullsink.New()
	}

	p := player.New(sink, synth.RealtimeClock{})
	return p.Play(f, config.StartUs, func(ev smf.Event, track int, clockTicks, clockUs uint64) player.Action {
		return player.ActionPlay
	})
}
