package session

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tormoder/fit"
)

// LoadFile decodes a FIT activity from disk.
func LoadFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FIT file: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Decode(f, name)
}

// Decode reads a FIT activity and builds a session with one interval per lap.
// The session ID is derived from the file content, so decoding the same file
// again yields the same session and lap IDs.
func Decode(r io.Reader, name string) (*Session, error) {
	h := sha256.New()
	tee := io.TeeReader(r, h)
	decoded, err := fit.Decode(tee)
	if err != nil {
		return nil, fmt.Errorf("decode FIT file: %w", err)
	}
	if _, err := io.Copy(io.Discard, tee); err != nil {
		return nil, fmt.Errorf("read FIT file: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity FIT expected: %w", err)
	}
	return fromActivity(activity, name, h.Sum(nil))
}

// FromActivity converts a decoded activity into a session. The session ID
// is derived from the record samples.
func FromActivity(activity *fit.ActivityFile, name string) (*Session, error) {
	return fromActivity(activity, name, nil)
}

func fromActivity(activity *fit.ActivityFile, name string, digest []byte) (*Session, error) {
	if activity == nil {
		return nil, ErrNoRecords
	}
	stream, start := buildStream(activity.Records)
	if stream.Empty() {
		return nil, ErrNoRecords
	}
	stream.DeriveFields()
	if digest == nil {
		digest = streamDigest(start, stream)
	}

	s := &Session{
		ID:        uuid.NewSHA1(idNamespace, digest).String(),
		Name:      name,
		StartTime: start,
		Stream:    stream,
	}
	if len(activity.Sessions) > 0 && activity.Sessions[0] != nil {
		s.Sport = strings.ToLower(activity.Sessions[0].Sport.String())
	}
	s.Intervals = lapIntervals(s.ID, activity.Laps, start)
	return s, nil
}

func buildStream(records []*fit.RecordMsg) (*Stream, time.Time) {
	type row struct {
		ts time.Time
		r  *fit.RecordMsg
	}

	rows := make([]row, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		ts := validTimeOrZero(rec.Timestamp)
		if ts.IsZero() {
			continue
		}
		rows = append(rows, row{ts: ts, r: rec})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ts.Before(rows[j].ts)
	})

	stream := &Stream{}
	if len(rows) == 0 {
		return stream, time.Time{}
	}
	start := rows[0].ts

	var (
		lastDistance float64
		lastElapsed  float64
	)
	stream.Samples = make([]Sample, 0, len(rows))
	for i, entry := range rows {
		rec := entry.r
		sample := Sample{
			SourceIndex: i,
			ElapsedS:    entry.ts.Sub(start).Seconds(),
		}

		if v, ok := extractPower(rec); ok {
			sample.PowerW = v
			stream.Channels |= ChannelPower
		}
		if v, ok := extractHeartRate(rec); ok {
			sample.HeartRateBPM = v
			stream.Channels |= ChannelHeartRate
		}
		if v, ok := extractCadence(rec); ok {
			sample.CadenceRPM = v
			stream.Channels |= ChannelCadence
		}
		speed, hasSpeed := extractSpeed(rec)
		if hasSpeed {
			sample.SpeedMPS = speed
			stream.Channels |= ChannelSpeed
		}
		if v, ok := extractAltitude(rec); ok {
			sample.AltitudeM = v
			stream.Channels |= ChannelAltitude
		}
		if !rec.PositionLat.Invalid() && !rec.PositionLong.Invalid() {
			sample.Lat = rec.PositionLat.Degrees()
			sample.Lon = rec.PositionLong.Degrees()
			stream.Channels |= ChannelPosition
		}
		if rec.Temperature != math.MaxInt8 {
			sample.TemperatureC = float64(rec.Temperature)
			stream.Channels |= ChannelTemperature
		}
		if g := rec.GetGradeScaled(); isFinite(g) {
			sample.GradePct = g
			stream.Channels |= ChannelGrade
		}

		// Distance is cumulative; gaps carry the last value forward and a
		// speed-only recording integrates speed instead.
		distance := rec.GetDistanceScaled()
		switch {
		case isFinite(distance) && distance >= lastDistance:
			lastDistance = distance
			stream.Channels |= ChannelDistance
		case hasSpeed && i > 0 && !stream.Channels.Has(ChannelDistance):
			lastDistance += speed * (sample.ElapsedS - lastElapsed)
		}
		sample.DistanceM = lastDistance
		lastElapsed = sample.ElapsedS

		stream.Samples = append(stream.Samples, sample)
	}
	if !stream.Channels.Has(ChannelDistance) && stream.Channels.Has(ChannelSpeed) {
		stream.Channels |= ChannelDistance
	}
	stream.RecordingIntervalS = estimateStep(stream.Samples)
	return stream, start
}

func lapIntervals(sessionID string, laps []*fit.LapMsg, start time.Time) []Interval {
	out := make([]Interval, 0, len(laps))
	cursor := start
	for i, lap := range laps {
		if lap == nil {
			continue
		}
		lapStart := validTimeOrZero(lap.StartTime)
		if lapStart.IsZero() {
			lapStart = cursor
		}
		lapEnd := validTimeOrZero(lap.Timestamp)
		if lapEnd.IsZero() {
			if d := safePositive(lap.GetTotalElapsedTimeScaled()); d > 0 {
				lapEnd = lapStart.Add(time.Duration(d * float64(time.Second)))
			} else {
				continue
			}
		}
		cursor = lapEnd

		startS := math.Max(0, lapStart.Sub(start).Seconds())
		out = append(out, Interval{
			ID:        childID(sessionID, fmt.Sprintf("lap/%d", i+1)),
			SessionID: sessionID,
			Name:      fmt.Sprintf("Lap %d", i+1),
			StartS:    startS,
			StopS:     lapEnd.Sub(start).Seconds(),
		})
	}
	return out
}

func streamDigest(start time.Time, stream *Stream) []byte {
	h := sha256.New()
	fmt.Fprintf(h, "%d", start.UnixNano())
	for _, p := range stream.Samples {
		fmt.Fprintf(h, "|%g,%g,%g,%g,%g", p.ElapsedS, p.DistanceM, p.PowerW, p.HeartRateBPM, p.CadenceRPM)
	}
	return h.Sum(nil)
}

func extractPower(rec *fit.RecordMsg) (float64, bool) {
	if rec.Power == math.MaxUint16 {
		return 0, false
	}
	return float64(rec.Power), true
}

func extractHeartRate(rec *fit.RecordMsg) (float64, bool) {
	if rec.HeartRate == math.MaxUint8 {
		return 0, false
	}
	return float64(rec.HeartRate), true
}

func extractCadence(rec *fit.RecordMsg) (float64, bool) {
	cad256 := safePositive(rec.GetCadence256Scaled())
	if cad256 > 0 {
		return cad256, true
	}
	if rec.Cadence == math.MaxUint8 {
		return 0, false
	}
	return float64(rec.Cadence), true
}

func extractSpeed(rec *fit.RecordMsg) (float64, bool) {
	speed := rec.GetEnhancedSpeedScaled()
	if isFinite(speed) && speed >= 0 {
		return speed, true
	}
	speed = rec.GetSpeedScaled()
	if isFinite(speed) && speed >= 0 {
		return speed, true
	}
	return 0, false
}

func extractAltitude(rec *fit.RecordMsg) (float64, bool) {
	alt := rec.GetEnhancedAltitudeScaled()
	if isFinite(alt) {
		return alt, true
	}
	alt = rec.GetAltitudeScaled()
	if isFinite(alt) {
		return alt, true
	}
	return 0, false
}

func validTimeOrZero(t time.Time) time.Time {
	if t.IsZero() || fit.IsBaseTime(t) {
		return time.Time{}
	}
	return t
}

func safePositive(v float64) float64 {
	if !isFinite(v) || v <= 0 {
		return 0
	}
	return v
}
