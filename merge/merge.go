// Package merge builds one synthetic stream from the union of several
// intervals of a session.
package merge

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/lucasjlepore/fit-intervals/session"
)

// DerivedPolicy controls the full-context derived fields of a merged stream.
type DerivedPolicy int

const (
	// DerivedCopy keeps the source's derived values. They are approximate
	// next to a gap.
	DerivedCopy DerivedPolicy = iota
	// DerivedExclude zeroes them and marks the stream as having none.
	DerivedExclude
)

func (p DerivedPolicy) String() string {
	if p == DerivedExclude {
		return "exclude"
	}
	return "copy"
}

// ParseDerivedPolicy accepts "copy" or "exclude"; empty means copy.
func ParseDerivedPolicy(s string) (DerivedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "copy":
		return DerivedCopy, nil
	case "exclude":
		return DerivedExclude, nil
	default:
		return DerivedCopy, fmt.Errorf("unsupported derived field policy %q", s)
	}
}

type Options struct {
	Derived DerivedPolicy
}

// Span is a closed time range in source seconds.
type Span struct {
	StartS float64
	StopS  float64
}

// Stats describes one Build call.
type Stats struct {
	Intervals  int
	Degenerate int
	Spans      []Span
	Included   int
	Excluded   int
	Boundaries int
}

// Normalize sorts the usable intervals and coalesces overlapping or touching
// ones. Degenerate and malformed intervals are dropped and counted.
func Normalize(intervals []session.Interval) ([]Span, int) {
	spans := make([]Span, 0, len(intervals))
	dropped := 0
	for _, iv := range intervals {
		if iv.Degenerate() || math.IsNaN(iv.StartS) {
			dropped++
			continue
		}
		spans = append(spans, Span{StartS: iv.StartS, StopS: iv.StopS})
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].StartS == spans[j].StartS {
			return spans[i].StopS < spans[j].StopS
		}
		return spans[i].StartS < spans[j].StartS
	})

	out := spans[:0]
	for _, sp := range spans {
		if n := len(out); n > 0 && sp.StartS <= out[n-1].StopS {
			if sp.StopS > out[n-1].StopS {
				out[n-1].StopS = sp.StopS
			}
			continue
		}
		out = append(out, sp)
	}
	return out, dropped
}

// Build returns a stream holding every source sample that lies in at least
// one interval, each exactly once and in source order. Elapsed time and
// distance are rebased so the stream starts at zero and an excluded gap
// advances them by one source step instead of the gap length.
func Build(src *session.Stream, intervals []session.Interval, opts Options) (*session.Stream, Stats) {
	spans, dropped := Normalize(intervals)
	stats := Stats{
		Intervals:  len(intervals),
		Degenerate: dropped,
		Spans:      spans,
	}

	out := &session.Stream{Synthetic: true}
	if src == nil {
		return out, stats
	}
	out.Channels = src.Channels
	out.RecordingIntervalS = src.RecordingIntervalS
	out.HasDerived = src.HasDerived && opts.Derived == DerivedCopy
	if len(spans) == 0 {
		return out, stats
	}

	var (
		timeOff float64
		distOff float64
		gap     bool
		k       int
	)
	for _, p := range src.Samples {
		for k < len(spans) && spans[k].StopS < p.ElapsedS {
			k++
		}
		if k < len(spans) && p.ElapsedS >= spans[k].StartS {
			if len(out.Samples) == 0 {
				timeOff, distOff = p.ElapsedS, p.DistanceM
			} else if gap {
				out.Boundaries = append(out.Boundaries, len(out.Samples))
			}
			gap = false

			q := p
			q.ElapsedS -= timeOff
			q.DistanceM -= distOff
			if opts.Derived == DerivedExclude {
				q.Derived = session.Derived{}
			}
			out.Samples = append(out.Samples, q)
			stats.Included++
			continue
		}

		stats.Excluded++
		if n := len(out.Samples); n > 0 {
			// The next included sample lands one source step after the
			// last one appended.
			last := out.Samples[n-1]
			timeOff = p.ElapsedS - last.ElapsedS
			distOff = p.DistanceM - last.DistanceM
			gap = true
		}
	}
	stats.Boundaries = len(out.Boundaries)
	return out, stats
}
