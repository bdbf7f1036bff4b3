package metric

import (
	"math"

	"github.com/lucasjlepore/fit-intervals/session"
)

func column(stream *session.Stream, field func(session.Sample) float64) []float64 {
	out := make([]float64, len(stream.Samples))
	for i, s := range stream.Samples {
		out[i] = field(s)
	}
	return out
}

func positive(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 && isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	count := 0
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		total += v
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func maxValue(values []float64) float64 {
	max := 0.0
	found := false
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		if !found || v > max {
			max = v
			found = true
		}
	}
	if !found {
		return 0
	}
	return max
}

// normalizedPower is the fourth-power mean of the 30 s rolling power.
func normalizedPower(rolling []float64) float64 {
	if len(rolling) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range rolling {
		total += math.Pow(r, 4)
	}
	return math.Pow(total/float64(len(rolling)), 0.25)
}

// bestRollingPower returns the best mean over a window of n samples, or
// false when the stream is shorter than the window.
func bestRollingPower(power []float64, n int) (float64, bool) {
	if n <= 0 || len(power) < n {
		return 0, false
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += power[i]
	}
	best := sum / float64(n)
	for i := n; i < len(power); i++ {
		sum += power[i] - power[i-n]
		if current := sum / float64(n); current > best {
			best = current
		}
	}
	return best, true
}

// powerHRDecoupling compares the power:HR ratio of the second half of the
// samples against the first half, in percent.
func powerHRDecoupling(power, hr []float64) (float64, bool) {
	n := len(power)
	if n == 0 || n != len(hr) || n < 20 {
		return 0, false
	}
	mid := n / 2

	p1, h1 := average(power[:mid]), average(hr[:mid])
	p2, h2 := average(power[mid:]), average(hr[mid:])
	if p1 == 0 || p2 == 0 || h1 == 0 || h2 == 0 {
		return 0, false
	}
	firstRatio := p1 / h1
	secondRatio := p2 / h2
	return ((secondRatio / firstRatio) - 1.0) * 100.0, true
}

// elevationGain sums climbs larger than the noise threshold.
func elevationGain(altitude []float64, threshold float64) float64 {
	if len(altitude) == 0 {
		return 0
	}
	gain := 0.0
	ref := altitude[0]
	for _, a := range altitude[1:] {
		switch {
		case a-ref >= threshold:
			gain += a - ref
			ref = a
		case a < ref:
			ref = a
		}
	}
	return gain
}
