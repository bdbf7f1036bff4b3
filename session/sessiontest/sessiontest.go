// Package sessiontest builds synthetic sessions for tests.
package sessiontest

import (
	"fmt"
	"time"

	"github.com/lucasjlepore/fit-intervals/session"
)

// Steady returns n samples recorded at 1 Hz with elapsed time 0..n-1 s,
// constant power and heart rate, and 8 m/s speed.
func Steady(n int, powerW, hrBPM float64) *session.Stream {
	stream := &session.Stream{
		Channels: session.ChannelPower | session.ChannelHeartRate |
			session.ChannelSpeed | session.ChannelDistance | session.ChannelCadence,
		RecordingIntervalS: 1,
		Samples:            make([]session.Sample, n),
	}
	for i := range stream.Samples {
		stream.Samples[i] = session.Sample{
			SourceIndex:  i,
			ElapsedS:     float64(i),
			DistanceM:    float64(i) * 8,
			PowerW:       powerW,
			HeartRateBPM: hrBPM,
			CadenceRPM:   90,
			SpeedMPS:     8,
		}
	}
	stream.DeriveFields()
	return stream
}

// Ramp is like Steady but power rises by one watt per sample from startW.
func Ramp(n int, startW float64) *session.Stream {
	stream := Steady(n, 0, 140)
	for i := range stream.Samples {
		stream.Samples[i].PowerW = startW + float64(i)
	}
	stream.DeriveFields()
	return stream
}

// Session wraps a stream with intervals given as alternating start and stop
// seconds. Interval IDs are "iv1", "iv2", ...
func Session(id string, stream *session.Stream, bounds ...float64) *session.Session {
	s := &session.Session{
		ID:        id,
		Name:      id,
		StartTime: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Stream:    stream,
	}
	for i := 0; i+1 < len(bounds); i += 2 {
		n := i/2 + 1
		s.Intervals = append(s.Intervals, session.Interval{
			ID:        fmt.Sprintf("iv%d", n),
			SessionID: id,
			Name:      fmt.Sprintf("Interval %d", n),
			StartS:    bounds[i],
			StopS:     bounds[i+1],
		})
	}
	return s
}
