package metric

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasjlepore/fit-intervals/session"
)

// DefaultSymbols is the display list used when none is configured.
const DefaultSymbols = "duration,distance,work,power_avg,power_np,power_max,hr_avg,hr_max,cadence_avg,speed_avg,elevation_gain"

const (
	kmToMiles  = 0.621371
	mToFeet    = 3.28084
	best20mS   = 20 * 60
	climbNoise = 1.0
)

// Default returns a registry holding the bundled metrics.
func Default() (*Registry, error) {
	return NewRegistry(Builtins()...)
}

// MustDefault is Default for init paths.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// Builtins returns the bundled metric definitions.
func Builtins() []Definition {
	return []Definition{
		{
			Symbol:     "duration",
			Name:       "Duration",
			MetricUnit: "seconds",
			Duration:   true,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				return Number(s.DurationS()), nil
			},
		},
		{
			Symbol:       "distance",
			Name:         "Distance",
			MetricUnit:   "km",
			ImperialUnit: "mi",
			Imperial:     Conversion{Factor: kmToMiles},
			Precision:    2,
			Requires:     session.ChannelDistance,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				first, last := s.Samples[0], s.Samples[len(s.Samples)-1]
				return Number((last.DistanceM - first.DistanceM) / 1000.0), nil
			},
		},
		{
			Symbol:     "work",
			Name:       "Work",
			MetricUnit: "kJ",
			Requires:   session.ChannelPower,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				joules := 0.0
				for _, p := range s.Samples {
					joules += p.PowerW * s.Step()
				}
				return Number(joules / 1000.0), nil
			},
		},
		{
			Symbol:     "power_avg",
			Name:       "Average Power",
			MetricUnit: "watts",
			Requires:   session.ChannelPower,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				return Number(average(column(s, powerOf))), nil
			},
		},
		{
			Symbol:     "power_max",
			Name:       "Max Power",
			MetricUnit: "watts",
			Requires:   session.ChannelPower,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				return Number(maxValue(column(s, powerOf))), nil
			},
		},
		{
			Symbol:          "power_np",
			Name:            "Normalized Power",
			MetricUnit:      "watts",
			Requires:        session.ChannelPower,
			RequiresDerived: true,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				return Number(normalizedPower(column(s, rollingPowerOf))), nil
			},
		},
		{
			Symbol:          "power_xp",
			Name:            "xPower",
			MetricUnit:      "watts",
			Requires:        session.ChannelPower,
			RequiresDerived: true,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				return Number(normalizedPower(column(s, weightedPowerOf))), nil
			},
		},
		{
			Symbol:          "power_altitude_avg",
			Name:            "Altitude Power",
			MetricUnit:      "watts",
			Requires:        session.ChannelPower | session.ChannelAltitude,
			RequiresDerived: true,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				return Number(average(column(s, altitudePowerOf))), nil
			},
		},
		{
			Symbol:     "power_best20m",
			Name:       "Best 20 min Power",
			MetricUnit: "watts",
			Requires:   session.ChannelPower,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				n := int(math.Round(best20mS / s.Step()))
				best, ok := bestRollingPower(column(s, powerOf), n)
				if !ok {
					return NoData(), nil
				}
				return Number(best), nil
			},
		},
		{
			Symbol:          "power_vi",
			Name:            "Variability Index",
			Precision:       2,
			Requires:        session.ChannelPower,
			RequiresDerived: true,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				avg := average(column(s, powerOf))
				if avg <= 0 {
					return NoData(), nil
				}
				return Number(normalizedPower(column(s, rollingPowerOf)) / avg), nil
			},
		},
		{
			Symbol:          "intensity_factor",
			Name:            "Intensity Factor",
			Precision:       2,
			Requires:        session.ChannelPower,
			RequiresDerived: true,
			Compute: func(s *session.Stream, z Zones) (Value, error) {
				if z.FTPWatts <= 0 {
					return NoData(), nil
				}
				return Number(normalizedPower(column(s, rollingPowerOf)) / z.FTPWatts), nil
			},
		},
		{
			Symbol:          "training_stress",
			Name:            "Training Stress",
			Requires:        session.ChannelPower,
			RequiresDerived: true,
			Compute: func(s *session.Stream, z Zones) (Value, error) {
				if z.FTPWatts <= 0 {
					return NoData(), nil
				}
				intensity := normalizedPower(column(s, rollingPowerOf)) / z.FTPWatts
				hours := s.DurationS() / 3600.0
				return Number(hours * intensity * intensity * 100.0), nil
			},
		},
		{
			Symbol:   "power_zone_distribution",
			Name:     "Power Zones",
			Requires: session.ChannelPower,
			Compute: func(s *session.Stream, z Zones) (Value, error) {
				if z.FTPWatts <= 0 {
					return NoData(), nil
				}
				return zoneText(column(s, powerOf), z.FTPWatts, z.WithDefaults().Power), nil
			},
		},
		{
			Symbol:     "hr_avg",
			Name:       "Average Heart Rate",
			MetricUnit: "bpm",
			Requires:   session.ChannelHeartRate,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				values := positive(column(s, heartRateOf))
				if len(values) == 0 {
					return NoData(), nil
				}
				return Number(average(values)), nil
			},
		},
		{
			Symbol:     "hr_max",
			Name:       "Max Heart Rate",
			MetricUnit: "bpm",
			Requires:   session.ChannelHeartRate,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				return Number(maxValue(column(s, heartRateOf))), nil
			},
		},
		{
			Symbol:   "hr_zone_distribution",
			Name:     "Heart Rate Zones",
			Requires: session.ChannelHeartRate,
			Compute: func(s *session.Stream, z Zones) (Value, error) {
				if z.MaxHR <= 0 {
					return NoData(), nil
				}
				return zoneText(positive(column(s, heartRateOf)), z.MaxHR, z.WithDefaults().HeartRate), nil
			},
		},
		{
			Symbol:     "power_hr_decoupling",
			Name:       "Aerobic Decoupling",
			MetricUnit: "%",
			Precision:  1,
			Requires:   session.ChannelPower | session.ChannelHeartRate,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				var power, hr []float64
				for _, p := range s.Samples {
					if p.HeartRateBPM > 0 {
						power = append(power, p.PowerW)
						hr = append(hr, p.HeartRateBPM)
					}
				}
				d, ok := powerHRDecoupling(power, hr)
				if !ok {
					return NoData(), nil
				}
				return Number(d), nil
			},
		},
		{
			Symbol:     "cadence_avg",
			Name:       "Average Cadence",
			MetricUnit: "rpm",
			Requires:   session.ChannelCadence,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				values := positive(column(s, cadenceOf))
				if len(values) == 0 {
					return NoData(), nil
				}
				return Number(average(values)), nil
			},
		},
		{
			Symbol:     "cadence_max",
			Name:       "Max Cadence",
			MetricUnit: "rpm",
			Requires:   session.ChannelCadence,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				return Number(maxValue(column(s, cadenceOf))), nil
			},
		},
		{
			Symbol:       "speed_avg",
			Name:         "Average Speed",
			MetricUnit:   "km/h",
			ImperialUnit: "mph",
			Imperial:     Conversion{Factor: kmToMiles},
			Precision:    1,
			Requires:     session.ChannelSpeed,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				return Number(average(column(s, speedOf)) * 3.6), nil
			},
		},
		{
			Symbol:       "speed_max",
			Name:         "Max Speed",
			MetricUnit:   "km/h",
			ImperialUnit: "mph",
			Imperial:     Conversion{Factor: kmToMiles},
			Precision:    1,
			Requires:     session.ChannelSpeed,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				return Number(maxValue(column(s, speedOf)) * 3.6), nil
			},
		},
		{
			Symbol:       "elevation_gain",
			Name:         "Elevation Gain",
			MetricUnit:   "m",
			ImperialUnit: "ft",
			Imperial:     Conversion{Factor: mToFeet},
			Requires:     session.ChannelAltitude,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				return Number(elevationGain(column(s, altitudeOf), climbNoise)), nil
			},
		},
		{
			Symbol:       "temperature_avg",
			Name:         "Average Temperature",
			MetricUnit:   "°C",
			ImperialUnit: "°F",
			Imperial:     Conversion{Factor: 1.8, Offset: 32},
			Precision:    1,
			Requires:     session.ChannelTemperature,
			Compute: func(s *session.Stream, _ Zones) (Value, error) {
				return Number(average(column(s, temperatureOf))), nil
			},
		},
	}
}

func powerOf(s session.Sample) float64         { return s.PowerW }
func heartRateOf(s session.Sample) float64     { return s.HeartRateBPM }
func cadenceOf(s session.Sample) float64       { return s.CadenceRPM }
func speedOf(s session.Sample) float64         { return s.SpeedMPS }
func altitudeOf(s session.Sample) float64      { return s.AltitudeM }
func temperatureOf(s session.Sample) float64   { return s.TemperatureC }
func rollingPowerOf(s session.Sample) float64  { return s.Derived.RollingPowerW }
func weightedPowerOf(s session.Sample) float64 { return s.Derived.WeightedPowerW }
func altitudePowerOf(s session.Sample) float64 { return s.Derived.AltitudePowerW }

// zoneText renders the share of samples per zone, skipping empty zones.
func zoneText(values []float64, threshold float64, zones []Zone) Value {
	counts, total := distribution(values, threshold, zones)
	if total == 0 {
		return NoData()
	}
	parts := make([]string, 0, len(zones))
	for i, z := range zones {
		if counts[i] == 0 {
			continue
		}
		label := z.Name
		if f := strings.Fields(z.Name); len(f) > 0 {
			label = f[0]
		}
		pct := float64(counts[i]) / float64(total) * 100.0
		parts = append(parts, fmt.Sprintf("%s %.0f%%", label, pct))
	}
	return Text(strings.Join(parts, ", "))
}
