package session

import (
	"math"
	"sort"
)

const (
	rollingWindowS  = 30.0
	weightedWindowS = 25.0
)

// Stream is an ordered, time-indexed sequence of samples.
type Stream struct {
	Samples            []Sample `json:"samples"`
	Channels           Channels `json:"channels"`
	RecordingIntervalS float64  `json:"recording_interval_s"`

	// HasDerived is false when the derived fields are absent or were
	// dropped while merging.
	HasDerived bool `json:"has_derived"`

	// Synthetic marks a stream built from a union of intervals. Boundaries
	// lists the sample indexes that follow an excluded gap; derived fields
	// around them are copied from the source and only approximate.
	Synthetic  bool  `json:"synthetic"`
	Boundaries []int `json:"boundaries,omitempty"`
}

// Len returns the number of samples; a nil stream has none.
func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Samples)
}

// Empty reports whether the stream carries no samples.
func (s *Stream) Empty() bool {
	return s.Len() == 0
}

// Step returns the recording interval, defaulting to one second.
func (s *Stream) Step() float64 {
	if s == nil || !isFinite(s.RecordingIntervalS) || s.RecordingIntervalS <= 0 {
		return 1
	}
	return s.RecordingIntervalS
}

// DurationS is the recorded time covered by the samples.
func (s *Stream) DurationS() float64 {
	return float64(s.Len()) * s.Step()
}

// TimeIndex returns the index of the first sample at or after secs, clamped
// to the last sample. It is non-decreasing in secs.
func (s *Stream) TimeIndex(secs float64) int {
	n := s.Len()
	if n == 0 {
		return 0
	}
	i := sort.Search(n, func(i int) bool {
		return s.Samples[i].ElapsedS >= secs
	})
	if i >= n {
		return n - 1
	}
	return i
}

// Range returns the samples with startS <= elapsed <= stopS. Degenerate
// ranges yield an empty stream. Samples are shared with the receiver and must
// not be modified.
func (s *Stream) Range(startS, stopS float64) *Stream {
	out := &Stream{}
	if s == nil {
		return out
	}
	out.Channels = s.Channels
	out.RecordingIntervalS = s.RecordingIntervalS
	out.HasDerived = s.HasDerived
	if !(stopS > startS) || len(s.Samples) == 0 {
		return out
	}
	lo := sort.Search(len(s.Samples), func(i int) bool {
		return s.Samples[i].ElapsedS >= startS
	})
	hi := sort.Search(len(s.Samples), func(i int) bool {
		return s.Samples[i].ElapsedS > stopS
	})
	if lo < hi {
		out.Samples = s.Samples[lo:hi:hi]
	}
	return out
}

// DeriveFields fills the full-context derived statistics of every sample.
func (s *Stream) DeriveFields() {
	if s.Empty() {
		return
	}
	step := s.Step()
	window := int(math.Round(rollingWindowS / step))
	if window < 1 {
		window = 1
	}
	alpha := step / weightedWindowS
	if alpha > 1 {
		alpha = 1
	}

	sum := 0.0
	weighted := 0.0
	for i := range s.Samples {
		p := s.Samples[i].PowerW
		sum += p
		if i >= window {
			sum -= s.Samples[i-window].PowerW
		}
		count := window
		if i+1 < window {
			count = i + 1
		}
		weighted += (p - weighted) * alpha

		d := &s.Samples[i].Derived
		d.RollingPowerW = sum / float64(count)
		d.WeightedPowerW = weighted
		d.AltitudePowerW = altitudeAdjusted(p, s.Samples[i].AltitudeM)
	}
	s.HasDerived = true
}

// altitudeAdjusted scales power to its sea-level equivalent using the
// non-acclimatised Bassett curve.
func altitudeAdjusted(powerW, altitudeM float64) float64 {
	if powerW <= 0 {
		return 0
	}
	km := altitudeM / 1000.0
	if km <= 0 {
		return powerW
	}
	pct := 0.178*km*km*km - 1.43*km*km - 4.07*km + 100
	if pct <= 0 {
		return powerW
	}
	return powerW / (pct / 100.0)
}

// estimateStep returns the median positive gap between samples.
func estimateStep(samples []Sample) float64 {
	gaps := make([]float64, 0, len(samples))
	for i := 1; i < len(samples) && len(gaps) < 600; i++ {
		d := samples[i].ElapsedS - samples[i-1].ElapsedS
		if d > 0 && isFinite(d) {
			gaps = append(gaps, d)
		}
	}
	if len(gaps) == 0 {
		return 1
	}
	sort.Float64s(gaps)
	return gaps[len(gaps)/2]
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
