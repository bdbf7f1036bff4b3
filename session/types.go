package session

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// idNamespace scopes the name-based UUIDs of sessions and their intervals.
var idNamespace = uuid.MustParse("3b8f2c1e-6d4a-5f90-8e27-1c5a9d0b7e43")

// childID derives a stable interval ID within a session.
func childID(sessionID, name string) string {
	return uuid.NewSHA1(idNamespace, []byte(sessionID+"/"+name)).String()
}

var (
	// ErrMalformedInterval marks an interval whose stop precedes its start.
	ErrMalformedInterval = errors.New("interval stop is before start")
	// ErrUnknownSession is returned when a session ID is not loaded.
	ErrUnknownSession = errors.New("unknown session")
	// ErrUnknownInterval is returned when an interval ID does not belong to the session.
	ErrUnknownInterval = errors.New("unknown interval")
	// ErrNoRecords is returned when a FIT activity has no usable record samples.
	ErrNoRecords = errors.New("no record samples found")
)

// Channels is a bitset of the sensor channels present in a stream.
type Channels uint32

const (
	ChannelPower Channels = 1 << iota
	ChannelHeartRate
	ChannelCadence
	ChannelSpeed
	ChannelDistance
	ChannelAltitude
	ChannelPosition
	ChannelTemperature
	ChannelGrade
)

var channelNames = []struct {
	ch   Channels
	name string
}{
	{ChannelPower, "power"},
	{ChannelHeartRate, "heart_rate"},
	{ChannelCadence, "cadence"},
	{ChannelSpeed, "speed"},
	{ChannelDistance, "distance"},
	{ChannelAltitude, "altitude"},
	{ChannelPosition, "position"},
	{ChannelTemperature, "temperature"},
	{ChannelGrade, "grade"},
}

// Has reports whether every channel in want is present.
func (c Channels) Has(want Channels) bool {
	return c&want == want
}

func (c Channels) String() string {
	if c == 0 {
		return "none"
	}
	names := make([]string, 0, len(channelNames))
	for _, n := range channelNames {
		if c.Has(n.ch) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// Derived holds per-sample statistics computed with full-session context.
// They cannot be rederived from a sub-range alone.
type Derived struct {
	RollingPowerW  float64 `json:"rolling_power_w"`
	WeightedPowerW float64 `json:"weighted_power_w"`
	AltitudePowerW float64 `json:"altitude_power_w"`
}

// Sample is one timestamped observation. Absent channel values are zero;
// presence is tracked per stream in Channels.
type Sample struct {
	SourceIndex  int     `json:"source_index"`
	ElapsedS     float64 `json:"elapsed_s"`
	DistanceM    float64 `json:"distance_m"`
	PowerW       float64 `json:"power_w"`
	HeartRateBPM float64 `json:"hr_bpm"`
	CadenceRPM   float64 `json:"cadence_rpm"`
	SpeedMPS     float64 `json:"speed_mps"`
	AltitudeM    float64 `json:"altitude_m"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	TemperatureC float64 `json:"temperature_c"`
	GradePct     float64 `json:"grade_pct"`
	Derived      Derived `json:"derived"`
}

// Interval is a named [StartS, StopS] range over a session's elapsed time.
type Interval struct {
	ID        string  `json:"id"`
	SessionID string  `json:"session_id"`
	Name      string  `json:"name"`
	StartS    float64 `json:"start_s"`
	StopS     float64 `json:"stop_s"`
}

// Degenerate reports whether the interval covers no time. Malformed
// intervals (stop before start) are degenerate too.
func (i Interval) Degenerate() bool {
	return !(i.StopS > i.StartS)
}

// Contains reports whether t lies within the closed interval.
func (i Interval) Contains(t float64) bool {
	return !i.Degenerate() && t >= i.StartS && t <= i.StopS
}

// Validate returns ErrMalformedInterval when stop precedes start.
func (i Interval) Validate() error {
	if math.IsNaN(i.StartS) || math.IsNaN(i.StopS) || i.StopS < i.StartS {
		return fmt.Errorf("%w: %q [%g, %g]", ErrMalformedInterval, i.Name, i.StartS, i.StopS)
	}
	return nil
}

// Span identifies the time range of the interval, used in cache keys so that
// edits to an interval never hit stale results.
func (i Interval) Span() string {
	return fmt.Sprintf("%.3f-%.3f", i.StartS, i.StopS)
}

// Session is one recorded activity.
type Session struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Sport     string     `json:"sport,omitempty"`
	StartTime time.Time  `json:"start_time"`
	Stream    *Stream    `json:"-"`
	Intervals []Interval `json:"intervals"`
}

// Channels returns the sensor channels recorded in the session.
func (s *Session) Channels() Channels {
	if s == nil || s.Stream == nil {
		return 0
	}
	return s.Stream.Channels
}

// Interval looks up an interval by ID.
func (s *Session) Interval(id string) (Interval, bool) {
	if s == nil {
		return Interval{}, false
	}
	for _, iv := range s.Intervals {
		if iv.ID == id {
			return iv, true
		}
	}
	return Interval{}, false
}
