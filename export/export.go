// Package export writes streams, raw or synthetic, as CSV or Parquet.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lucasjlepore/fit-intervals/session"
)

// Columns is the header shared by both formats.
var Columns = []string{
	"elapsed_s", "distance_m", "power_w", "hr_bpm", "cadence_rpm", "speed_mps", "altitude_m",
	"lat", "lon", "temperature_c", "grade_pct",
	"rolling_power_w", "weighted_power_w", "altitude_power_w",
	"source_index", "boundary",
}

// row is a sample with absent channels set to NaN.
type row struct {
	ElapsedS       float64
	DistanceM      float64
	PowerW         float64
	HRBPM          float64
	CadenceRPM     float64
	SpeedMPS       float64
	AltitudeM      float64
	Lat            float64
	Lon            float64
	TemperatureC   float64
	GradePct       float64
	RollingPowerW  float64
	WeightedPowerW float64
	AltitudePowerW float64
	SourceIndex    int64
	Boundary       bool
}

func rows(stream *session.Stream) []row {
	if stream.Empty() {
		return nil
	}
	boundary := make(map[int]bool, len(stream.Boundaries))
	for _, b := range stream.Boundaries {
		boundary[b] = true
	}
	ch := stream.Channels
	out := make([]row, len(stream.Samples))
	for i, s := range stream.Samples {
		out[i] = row{
			ElapsedS:       s.ElapsedS,
			DistanceM:      present(ch, session.ChannelDistance, s.DistanceM),
			PowerW:         present(ch, session.ChannelPower, s.PowerW),
			HRBPM:          present(ch, session.ChannelHeartRate, s.HeartRateBPM),
			CadenceRPM:     present(ch, session.ChannelCadence, s.CadenceRPM),
			SpeedMPS:       present(ch, session.ChannelSpeed, s.SpeedMPS),
			AltitudeM:      present(ch, session.ChannelAltitude, s.AltitudeM),
			Lat:            present(ch, session.ChannelPosition, s.Lat),
			Lon:            present(ch, session.ChannelPosition, s.Lon),
			TemperatureC:   present(ch, session.ChannelTemperature, s.TemperatureC),
			GradePct:       present(ch, session.ChannelGrade, s.GradePct),
			RollingPowerW:  derived(stream, s.Derived.RollingPowerW),
			WeightedPowerW: derived(stream, s.Derived.WeightedPowerW),
			AltitudePowerW: derived(stream, s.Derived.AltitudePowerW),
			SourceIndex:    int64(s.SourceIndex),
			Boundary:       boundary[i],
		}
	}
	return out
}

func present(ch, want session.Channels, v float64) float64 {
	if !ch.Has(want) {
		return math.NaN()
	}
	return v
}

func derived(stream *session.Stream, v float64) float64 {
	if !stream.HasDerived || !stream.Channels.Has(session.ChannelPower) {
		return math.NaN()
	}
	return v
}

// WriteCSV writes the stream with a header row. Absent values are empty.
func WriteCSV(w io.Writer, stream *session.Stream) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows(stream) {
		record := []string{
			formatFloat(r.ElapsedS),
			formatFloat(r.DistanceM),
			formatFloat(r.PowerW),
			formatFloat(r.HRBPM),
			formatFloat(r.CadenceRPM),
			formatFloat(r.SpeedMPS),
			formatFloat(r.AltitudeM),
			formatFloat(r.Lat),
			formatFloat(r.Lon),
			formatFloat(r.TemperatureC),
			formatFloat(r.GradePct),
			formatFloat(r.RollingPowerW),
			formatFloat(r.WeightedPowerW),
			formatFloat(r.AltitudePowerW),
			strconv.FormatInt(r.SourceIndex, 10),
			strconv.FormatBool(r.Boundary),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile picks the format from the extension: .csv or .parquet.
func WriteFile(path string, stream *session.Stream) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := WriteCSV(f, stream); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		return f.Close()
	case ".parquet":
		return WriteParquetFile(path, stream)
	default:
		return fmt.Errorf("unsupported export format %q (want .csv or .parquet)", filepath.Ext(path))
	}
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
