package metric

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Zone bounds are fractions of FTP (power) or max heart rate, [Low, High).
type Zone struct {
	Name string  `yaml:"name" json:"name"`
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

// Zones carries the athlete thresholds used by zone and intensity metrics.
type Zones struct {
	FTPWatts  float64 `yaml:"ftp_w" json:"ftp_w"`
	Power     []Zone  `yaml:"power" json:"power"`
	MaxHR     float64 `yaml:"max_hr" json:"max_hr"`
	HeartRate []Zone  `yaml:"heart_rate" json:"heart_rate"`
}

// DefaultZones returns the seven-zone power model and the standard
// six-zone heart rate model, with no thresholds set.
func DefaultZones() Zones {
	return Zones{
		Power: []Zone{
			{Name: "Z1 Active Recovery", Low: 0, High: 0.55},
			{Name: "Z2 Endurance", Low: 0.55, High: 0.75},
			{Name: "Z3 Tempo", Low: 0.75, High: 0.90},
			{Name: "Z4 Threshold", Low: 0.90, High: 1.05},
			{Name: "Z5 VO2", Low: 1.05, High: 1.20},
			{Name: "Z6 Anaerobic", Low: 1.20, High: 1.50},
			{Name: "Z7 Neuromuscular", Low: 1.50, High: 10},
		},
		HeartRate: []Zone{
			{Name: "Z0 Rest", Low: 0, High: 0.50},
			{Name: "Z1 Recovery", Low: 0.50, High: 0.60},
			{Name: "Z2 Aerobic", Low: 0.60, High: 0.70},
			{Name: "Z3 Tempo", Low: 0.70, High: 0.80},
			{Name: "Z4 Threshold", Low: 0.80, High: 0.90},
			{Name: "Z5 Maximum", Low: 0.90, High: 1.01},
		},
	}
}

// WithDefaults fills missing zone tables from DefaultZones.
func (z Zones) WithDefaults() Zones {
	d := DefaultZones()
	if len(z.Power) == 0 {
		z.Power = d.Power
	}
	if len(z.HeartRate) == 0 {
		z.HeartRate = d.HeartRate
	}
	return z
}

// Fingerprint identifies the thresholds and zone tables. Results computed
// under different zones carry different fingerprints.
func (z Zones) Fingerprint() string {
	z = z.WithDefaults()
	h := sha256.New()
	fmt.Fprintf(h, "ftp=%g;max_hr=%g", z.FTPWatts, z.MaxHR)
	for _, zone := range z.Power {
		fmt.Fprintf(h, ";p:%s:%g:%g", zone.Name, zone.Low, zone.High)
	}
	for _, zone := range z.HeartRate {
		fmt.Fprintf(h, ";hr:%s:%g:%g", zone.Name, zone.Low, zone.High)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// distribution counts samples per zone; values below every zone are ignored.
func distribution(values []float64, threshold float64, zones []Zone) ([]int, int) {
	counts := make([]int, len(zones))
	total := 0
	for _, v := range values {
		if v < 0 || !isFinite(v) {
			continue
		}
		ratio := v / threshold
		for i, z := range zones {
			if ratio >= z.Low && ratio < z.High {
				counts[i]++
				total++
				break
			}
		}
	}
	return counts, total
}
