// Package cli parses command-line arguments for the midiplay front end
// (SPEC_FULL.md §4.5/§10), the same flag-plus-environment-fallback shape
// the teacher uses for its own interpreter's arguments.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
)

// Config holds the parsed command-line configuration.
type Config struct {
	MIDIPath     string // path to the .mid file to open
	SoundFont    string // path to a SoundFont (.sf2); empty disables audio
	OutputPath   string // if set, transpose result is saved here instead of playing
	TargetKeySF  int    // target key signature sharps/flats, only meaningful if TargetKeySet
	TargetKeySet bool
	TargetMinor  bool
	StartUs      uint64            // playback start offset in microseconds
	TextEncoding encoding.Encoding // charset for Lyric/SequenceName/Text payloads; nil means raw/UTF-8
	LogLevel     string            // debug, info, warn, error
	ShowHelp     bool
}

// ParseArgs parses args (typically os.Args[1:]) into a Config. Command-line
// flags take priority; MIDIPLAY_LOG_LEVEL and MIDIPLAY_SOUNDFONT are
// consulted as fallbacks when the corresponding flag is left at its
// default (§4.5).
func ParseArgs(args []string) (*Config, error) {
	fs := flag.NewFlagSet("midiplay", flag.ContinueOnError)

	config := &Config{}
	var startMs int
	var transposeTo string
	var textEncoding string

	fs.StringVar(&config.SoundFont, "soundfont", "", "path to a SoundFont (.sf2) file")
	fs.StringVar(&config.SoundFont, "s", "", "path to a SoundFont (.sf2) file (short form)")
	fs.StringVar(&config.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&config.LogLevel, "l", "info", "log level (short form)")
	fs.IntVar(&startMs, "start", 0, "playback start offset, in milliseconds")
	fs.StringVar(&transposeTo, "transpose", "", "target key, e.g. \"2,major\" for sf=2 (D major)")
	fs.StringVar(&config.OutputPath, "output", "", "save the (possibly transposed) file here instead of playing it")
	fs.StringVar(&config.OutputPath, "o", "", "save the (possibly transposed) file here instead of playing it (short form)")
	fs.StringVar(&textEncoding, "text-encoding", "utf8", "charset for Lyric/SequenceName/Text payloads: utf8 or shiftjis")
	fs.BoolVar(&config.ShowHelp, "help", false, "show this help")
	fs.BoolVar(&config.ShowHelp, "h", false, "show this help (short form)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if config.SoundFont == "" {
		config.SoundFont = os.Getenv("MIDIPLAY_SOUNDFONT")
	}
	if config.LogLevel == "info" {
		if env := os.Getenv("MIDIPLAY_LOG_LEVEL"); env != "" {
			config.LogLevel = strings.ToLower(env)
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	if startMs < 0 {
		return nil, fmt.Errorf("start offset must be non-negative, got %d", startMs)
	}
	config.StartUs = uint64(startMs) * 1000

	if transposeTo != "" {
		sf, minor, err := parseTargetKey(transposeTo)
		if err != nil {
			return nil, err
		}
		config.TargetKeySF = sf
		config.TargetMinor = minor
		config.TargetKeySet = true
	}

	enc, err := parseTextEncoding(textEncoding)
	if err != nil {
		return nil, err
	}
	config.TextEncoding = enc

	if fs.NArg() > 0 {
		config.MIDIPath = fs.Arg(0)
	}

	return config, nil
}

// parseTextEncoding resolves the --text-encoding flag to an
// encoding.Encoding for pkg/smf.DecodeText; "utf8" resolves to nil, which
// DecodeText treats as "interpret raw bytes unchanged".
func parseTextEncoding(s string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf8", "utf-8":
		return nil, nil
	case "shiftjis", "shift_jis", "sjis":
		return japanese.ShiftJIS, nil
	default:
		return nil, fmt.Errorf("invalid --text-encoding %q, want \"utf8\" or \"shiftjis\"", s)
	}
}

// parseTargetKey parses "<sf>,major" or "<sf>,minor", e.g. "2,major".
func parseTargetKey(s string) (sf int, minor bool, err error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, false, fmt.Errorf("invalid --transpose value %q, want \"<sf>,major\" or \"<sf>,minor\"", s)
	}

	sf, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, false, fmt.Errorf("invalid --transpose sharps/flats %q: %w", parts[0], err)
	}

	switch strings.ToLower(strings.TrimSpace(parts[1])) {
	case "major":
		minor = false
	case "minor":
		minor = true
	default:
		return 0, false, fmt.Errorf("invalid --transpose mode %q, want \"major\" or \"minor\"", parts[1])
	}

	return sf, minor, nil
}

// PrintHelp writes usage information to stdout.
func PrintHelp() {
	fmt.Fprint(os.Stdout, `midiplay - Standard MIDI File player and transposer

Usage:
  midiplay [options] <file.mid>

Options:
  -s, --soundfont <path>    SoundFont (.sf2) to synthesize with; omit to run silent
  -l, --log-level <level>   log level: debug, info, warn, error (default: info)
      --start <ms>          playback start offset in milliseconds
      --transpose <sf,mode> transpose to a target key, e.g. "2,major" for D major
      --text-encoding <cs>  charset for Lyric/SequenceName/Text payloads: utf8 or shiftjis (default: utf8)
  -o, --output <path>       save the (possibly transposed) file instead of playing
  -h, --help                show this help

Environment Variables:
  MIDIPLAY_SOUNDFONT        default SoundFont path
  MIDIPLAY_LOG_LEVEL        default log level
`)
}
