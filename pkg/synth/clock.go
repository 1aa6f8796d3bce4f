package synth

import "time"

// RealtimeClock sleeps for real using time.Sleep, grounded on the
// teacher's design note (§9) that the cross-platform high-resolution
// sleep is an injectable capability rather than a hand-rolled busy-wait.
type RealtimeClock struct{}

func (RealtimeClock) SleepMicroseconds(us uint64) error {
	time.Sleep(time.Duration(us) * time.Microsecond)
	return nil
}

// FakeClock accumulates requested durations without blocking, for tests
// that need to assert on the scheduler's clock (Property P4) without
// paying real wall-clock cost.
type FakeClock struct {
	Elapsed time.Duration
}

func (c *FakeClock) SleepMicroseconds(us uint64) error {
	c.Elapsed += time.Duration(us) * time.Microsecond
	return nil
}
