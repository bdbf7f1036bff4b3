// Package metric defines the named statistics that summarise a stream and
// the pipeline that computes and formats them.
package metric

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lucasjlepore/fit-intervals/session"
)

var (
	// ErrUnknownMetric is returned for a symbol with no registered definition.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrIrrelevantMetric is returned when a session lacks the channels a
	// metric needs.
	ErrIrrelevantMetric = errors.New("metric not relevant for session")
	// ErrEmptyStream marks a computation over a stream with no samples.
	ErrEmptyStream = errors.New("stream has no samples")
)

// Symbol is the stable identifier of a metric, e.g. "power_avg".
type Symbol string

// ParseSymbols splits a comma separated list, dropping blanks.
func ParseSymbols(list string) []Symbol {
	parts := strings.Split(list, ",")
	out := make([]Symbol, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, Symbol(p))
		}
	}
	return out
}

// UnitSystem selects metric or imperial display units.
type UnitSystem int

const (
	Metric UnitSystem = iota
	Imperial
)

func (u UnitSystem) String() string {
	if u == Imperial {
		return "imperial"
	}
	return "metric"
}

func ParseUnitSystem(s string) (UnitSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "metric":
		return Metric, nil
	case "imperial":
		return Imperial, nil
	default:
		return Metric, fmt.Errorf("unsupported unit system %q", s)
	}
}

// Value is the raw outcome of a metric computation, in metric units.
type Value struct {
	Number float64
	Text   string
	NoData bool
	// Approximate is set when the value relies on derived fields copied
	// across a merge boundary.
	Approximate bool
}

func Number(v float64) Value { return Value{Number: v} }

func Text(s string) Value { return Value{Text: s} }

func NoData() Value { return Value{NoData: true} }

// Conversion maps a metric value to imperial as v*Factor + Offset. A zero
// Factor is the identity.
type Conversion struct {
	Factor float64
	Offset float64
}

func (c Conversion) apply(v float64) float64 {
	if c.Factor == 0 {
		return v + c.Offset
	}
	return v*c.Factor + c.Offset
}

// ComputeFunc derives a value from a stream. It must not modify the stream.
type ComputeFunc func(stream *session.Stream, zones Zones) (Value, error)

// Definition describes one metric.
type Definition struct {
	Symbol       Symbol
	Name         string
	MetricUnit   string
	ImperialUnit string
	Imperial     Conversion
	Precision    int
	// Duration values are seconds rendered as h:mm:ss.
	Duration bool
	// Requires lists the channels the session must carry.
	Requires session.Channels
	// RequiresDerived metrics read full-context derived fields.
	RequiresDerived bool
	Compute         ComputeFunc
}

// Units returns the unit label for the given system.
func (d Definition) Units(u UnitSystem) string {
	if u == Imperial && d.ImperialUnit != "" {
		return d.ImperialUnit
	}
	return d.MetricUnit
}

// Convert maps a metric-unit value into the given system.
func (d Definition) Convert(v float64, u UnitSystem) float64 {
	if u != Imperial {
		return v
	}
	return d.Imperial.apply(v)
}

// Result is one formatted metric ready for display.
type Result struct {
	Symbol      Symbol `json:"symbol" yaml:"symbol"`
	Name        string `json:"name" yaml:"name"`
	Value       string `json:"value" yaml:"value"`
	Unit        string `json:"unit,omitempty" yaml:"unit,omitempty"`
	Approximate bool   `json:"approximate,omitempty" yaml:"approximate,omitempty"`
}

// DisplayUnit is the unit label shown next to the value. Unitless metrics
// and durations, which already read as a clock, show none.
func (r Result) DisplayUnit() string {
	if r.Unit == "seconds" {
		return ""
	}
	return r.Unit
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
