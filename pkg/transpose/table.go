package transpose

// KeyEntry is one row of the transposition table (§4.4): a key signature's
// sharps/flats count, its mode, the semitone offset of its tonic from C,
// and a human-readable label.
type KeyEntry struct {
	SharpsFlats   int8
	Minor         uint8
	SemitoneDelta int8
	Label         string
}

// Table holds the 30 key signatures (15 major, 15 minor) spec.md §4.4
// requires the transposition table to cover: every sf in [-7, 7] crossed
// with major/minor. SemitoneDelta is the tonic's pitch class (C=0), running
// around the circle of fifths (seven semitones per step of sf).
var Table = buildTable()

func buildTable() []KeyEntry {
	major := []string{
		"Cb", "Gb", "Db", "Ab", "Eb", "Bb", "F",
		"C",
		"G", "D", "A", "E", "B", "F#", "C#",
	}
	minor := []string{
		"Ab", "Eb", "Bb", "F", "C", "G", "D",
		"A",
		"E", "B", "F#", "C#", "G#", "D#", "A#",
	}

	table := make([]KeyEntry, 0, 30)
	for i, sf := 0, int8(-7); sf <= 7; i, sf = i+1, sf+1 {
		majorDelta := mod12(7 * int(sf))
		table = append(table, KeyEntry{
			SharpsFlats:   sf,
			Minor:         0,
			SemitoneDelta: int8(majorDelta),
			Label:         major[i] + " major",
		})
		table = append(table, KeyEntry{
			SharpsFlats:   sf,
			Minor:         1,
			SemitoneDelta: int8(mod12(majorDelta + 9)),
			Label:         minor[i] + " minor",
		})
	}
	return table
}

func mod12(n int) int {
	n %= 12
	if n < 0 {
		n += 12
	}
	return n
}

// Lookup finds the table entry for (sf, mi), if any.
func Lookup(sf int8, mi uint8) (KeyEntry, bool) {
	for _, e := range Table {
		if e.SharpsFlats == sf && e.Minor == mi {
			return e, true
		}
	}
	return KeyEntry{}, false
}
