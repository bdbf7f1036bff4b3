package fitintervals

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"
	"go.uber.org/zap/zaptest"

	"github.com/lucasjlepore/fit-intervals/config"
	"github.com/lucasjlepore/fit-intervals/session"
	"github.com/lucasjlepore/fit-intervals/store"
	"github.com/lucasjlepore/fit-intervals/summary"
)

func writeTestFIT(t *testing.T) string {
	t.Helper()

	header := fit.NewHeader(fit.V20, true)
	file, err := fit.NewFile(fit.FileTypeActivity, header)
	require.NoError(t, err)
	activity, err := file.Activity()
	require.NoError(t, err)

	start := time.Date(2026, 2, 26, 7, 30, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		record := fit.NewRecordMsg()
		record.Timestamp = start.Add(time.Duration(i) * time.Second)
		record.HeartRate = 140
		record.Cadence = 90
		record.Power = 200
		if i >= 60 {
			record.Power = 260
		}
		activity.Records = append(activity.Records, record)
	}
	for _, bounds := range [][2]int{{0, 60}, {60, 119}} {
		lap := fit.NewLapMsg()
		lap.StartTime = start.Add(time.Duration(bounds[0]) * time.Second)
		lap.Timestamp = start.Add(time.Duration(bounds[1]) * time.Second)
		activity.Laps = append(activity.Laps, lap)
	}

	var buf bytes.Buffer
	require.NoError(t, fit.Encode(&buf, file, binary.LittleEndian))
	path := filepath.Join(t.TempDir(), "ride.fit")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func newTestEngine(t *testing.T, cachePath string) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.IntervalMetrics = "duration,power_avg,hr_avg,speed_avg"
	cfg.CachePath = cachePath
	e, err := NewEngine(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func metricValues(g summary.Group) map[string]string {
	out := make(map[string]string, len(g.Metrics))
	for _, m := range g.Metrics {
		out[string(m.Symbol)] = m.Value
	}
	return out
}

func TestEngineLapSelection(t *testing.T) {
	e := newTestEngine(t, filepath.Join(t.TempDir(), "cache.db"))
	sess, err := e.LoadFile(writeTestFIT(t))
	require.NoError(t, err)
	assert.Equal(t, "ride", sess.Name)

	v := e.Assembler.Current()
	assert.Equal(t, summary.NoSelection, v.State)
	assert.Equal(t, sess.ID, v.SessionID)

	require.NoError(t, e.SelectLapsAndRanges(sess.ID, []int{2}, nil))
	v = e.Assembler.Current()
	require.Equal(t, summary.SingleInterval, v.State)
	require.Len(t, v.Groups, 1)
	assert.Equal(t, "Lap 2", v.Groups[0].Label)
	vals := metricValues(v.Groups[0])
	assert.Equal(t, "1:00", vals["duration"])
	assert.Equal(t, "260", vals["power_avg"])
	assert.Equal(t, "140", vals["hr_avg"])
	assert.NotContains(t, vals, "speed_avg", "speed is not recorded")

	require.NoError(t, e.SelectLapsAndRanges(sess.ID, []int{1, 2}, nil))
	v = e.Assembler.Current()
	require.Equal(t, summary.MultiInterval, v.State)
	require.Len(t, v.Groups, 1)
	vals = metricValues(v.Groups[0])
	assert.Equal(t, "2:00", vals["duration"])
	assert.Equal(t, "230", vals["power_avg"])
}

func TestEngineCacheSurvivesRestart(t *testing.T) {
	fitPath := writeTestFIT(t)
	cachePath := filepath.Join(t.TempDir(), "cache.db")

	cfg := config.Default()
	cfg.IntervalMetrics = "duration,power_avg,hr_avg"
	cfg.CachePath = cachePath

	run := func(cfg config.Config) (summary.View, *session.Session, summary.Settings) {
		t.Helper()
		e, err := NewEngine(cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		sess, err := e.LoadFile(fitPath)
		require.NoError(t, err)
		require.NoError(t, e.SelectLapsAndRanges(sess.ID, []int{2}, nil))
		v := e.Assembler.Current()
		settings := e.Config.Settings()
		require.NoError(t, e.Close())
		return v, sess, settings
	}
	rows := func() int {
		t.Helper()
		c, err := store.Open(cachePath, nil)
		require.NoError(t, err)
		defer c.Close()
		n, err := c.Len()
		require.NoError(t, err)
		return n
	}

	first, firstSess, settings := run(cfg)
	require.Equal(t, summary.SingleInterval, first.State)
	assert.Equal(t, "260", metricValues(first.Groups[0])["power_avg"])
	assert.Equal(t, 3, rows())

	second, secondSess, _ := run(cfg)
	assert.Equal(t, firstSess.ID, secondSess.ID)
	assert.Equal(t, firstSess.Intervals[1].ID, secondSess.Intervals[1].ID)
	assert.Equal(t, first.Groups, second.Groups)
	assert.Equal(t, 3, rows())

	// Overwrite one cached row; the next run must serve it as is.
	lap := firstSess.Intervals[1]
	key := summary.CacheKey{
		IntervalID: lap.ID,
		Span:       lap.Span(),
		Symbol:     "power_avg",
		Units:      settings.Units,
		Language:   settings.Language.String(),
		Zones:      settings.Zones.Fingerprint(),
	}
	c, err := store.Open(cachePath, nil)
	require.NoError(t, err)
	res, ok, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	res.Value = "999"
	require.NoError(t, c.Put(key, res))
	require.NoError(t, c.Close())

	third, _, _ := run(cfg)
	assert.Equal(t, "999", metricValues(third.Groups[0])["power_avg"])
	assert.Equal(t, 3, rows())

	cfg.Zones.FTPWatts = 250
	fourth, _, _ := run(cfg)
	assert.Equal(t, "260", metricValues(fourth.Groups[0])["power_avg"])
	assert.Equal(t, 6, rows())
}

func TestEngineRangeSelection(t *testing.T) {
	e := newTestEngine(t, "")
	sess, err := e.LoadFile(writeTestFIT(t))
	require.NoError(t, err)

	require.NoError(t, e.SelectLapsAndRanges(sess.ID, nil, []string{"10-19"}))
	v := e.Assembler.Current()
	require.Equal(t, summary.SingleInterval, v.State)
	assert.Equal(t, "Interval 3", v.Groups[0].Label)
	assert.Equal(t, "0:10", metricValues(v.Groups[0])["duration"])

	stream, stats, err := e.SelectionStream(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stream.Len())
	assert.Equal(t, 10, stats.Included)
	assert.True(t, stream.Synthetic)
}

func TestEngineSelectionErrors(t *testing.T) {
	e := newTestEngine(t, "")
	sess, err := e.LoadFile(writeTestFIT(t))
	require.NoError(t, err)

	err = e.SelectLapsAndRanges(sess.ID, []int{3}, nil)
	require.ErrorIs(t, err, session.ErrUnknownInterval)

	err = e.SelectLapsAndRanges(sess.ID, nil, []string{"50-20"})
	require.ErrorIs(t, err, session.ErrMalformedInterval)

	err = e.SelectLapsAndRanges("missing", []int{1}, nil)
	require.ErrorIs(t, err, session.ErrUnknownSession)

	_, _, err = e.SelectionStream("missing")
	require.ErrorIs(t, err, session.ErrUnknownSession)

	_, err = e.LoadFile(filepath.Join(t.TempDir(), "nope.fit"))
	require.Error(t, err)
}

func TestParseLaps(t *testing.T) {
	laps, err := ParseLaps("2, 3,,5")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 5}, laps)

	laps, err = ParseLaps("")
	require.NoError(t, err)
	assert.Empty(t, laps)

	_, err = ParseLaps("0")
	require.Error(t, err)
	_, err = ParseLaps("x")
	require.Error(t, err)
}

func TestParseRange(t *testing.T) {
	start, stop, err := ParseRange("100-200")
	require.NoError(t, err)
	assert.Equal(t, 100.0, start)
	assert.Equal(t, 200.0, stop)

	start, stop, err = ParseRange(" 12.5 - 40 ")
	require.NoError(t, err)
	assert.Equal(t, 12.5, start)
	assert.Equal(t, 40.0, stop)

	for _, bad := range []string{"100", "a-200", "100-b"} {
		_, _, err := ParseRange(bad)
		assert.Error(t, err, bad)
	}
}
