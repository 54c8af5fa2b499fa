package viewer

import "time"

const frameWindow = 20

// frameStats keeps a rolling window of recent frame times and emits the
// average at most once per second.
type frameStats struct {
	samples  [frameWindow]float64 // milliseconds
	count    int
	next     int
	lastEmit time.Time
}

func (s *frameStats) add(millis float64) {
	s.samples[s.next] = millis
	s.next = (s.next + 1) % frameWindow
	if s.count < frameWindow {
		s.count++
	}
}

func (s *frameStats) average() float64 {
	if s.count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < s.count; i++ {
		sum += s.samples[i]
	}
	return sum / float64(s.count)
}

// tick records one frame time and reports whether an emit is due.
func (s *frameStats) tick(millis float64, now time.Time) (float64, bool) {
	s.add(millis)
	if now.Sub(s.lastEmit) < time.Second {
		return 0, false
	}
	s.lastEmit = now
	return s.average(), true
}
