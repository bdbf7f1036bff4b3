package session_test

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"

	"github.com/lucasjlepore/fit-intervals/session"
)

func TestDecodeBuildsStreamAndLaps(t *testing.T) {
	data := buildTestFIT(t)

	s, err := session.Decode(bytes.NewReader(data), "ride")
	require.NoError(t, err)

	assert.Equal(t, "ride", s.Name)
	assert.NotEmpty(t, s.ID)
	require.Equal(t, 120, s.Stream.Len())
	assert.Equal(t, 1.0, s.Stream.RecordingIntervalS)
	assert.True(t, s.Channels().Has(session.ChannelPower|session.ChannelHeartRate|session.ChannelCadence))
	assert.False(t, s.Channels().Has(session.ChannelPosition))
	assert.True(t, s.Stream.HasDerived)

	first := s.Stream.Samples[0]
	assert.Equal(t, 0.0, first.ElapsedS)
	assert.Equal(t, 200.0, first.PowerW)
	assert.Equal(t, 140.0, first.HeartRateBPM)
	last := s.Stream.Samples[119]
	assert.Equal(t, 119.0, last.ElapsedS)
	assert.Equal(t, 260.0, last.PowerW)

	require.Len(t, s.Intervals, 2)
	assert.Equal(t, "Lap 1", s.Intervals[0].Name)
	assert.Equal(t, 0.0, s.Intervals[0].StartS)
	assert.Equal(t, 60.0, s.Intervals[0].StopS)
	assert.Equal(t, 60.0, s.Intervals[1].StartS)
	assert.Equal(t, 119.0, s.Intervals[1].StopS)
	assert.Equal(t, s.ID, s.Intervals[1].SessionID)
}

func TestDecodeDerivesStableIDs(t *testing.T) {
	data := buildTestFIT(t)

	first, err := session.Decode(bytes.NewReader(data), "ride")
	require.NoError(t, err)
	second, err := session.Decode(bytes.NewReader(data), "ride")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	require.Len(t, second.Intervals, 2)
	assert.Equal(t, first.Intervals[0].ID, second.Intervals[0].ID)
	assert.Equal(t, first.Intervals[1].ID, second.Intervals[1].ID)
	assert.NotEqual(t, first.Intervals[0].ID, first.Intervals[1].ID)

	decoded, err := fit.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	activity, err := decoded.Activity()
	require.NoError(t, err)
	a, err := session.FromActivity(activity, "ride")
	require.NoError(t, err)
	b, err := session.FromActivity(activity, "ride")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	activity.Records[10].Power = 999
	changed, err := session.FromActivity(activity, "ride")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, changed.ID)
}

func TestDecodeRejectsActivityWithoutRecords(t *testing.T) {
	header := fit.NewHeader(fit.V20, true)
	file, err := fit.NewFile(fit.FileTypeActivity, header)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, fit.Encode(&buf, file, binary.LittleEndian))

	_, err = session.Decode(&buf, "empty")
	require.ErrorIs(t, err, session.ErrNoRecords)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := session.Decode(bytes.NewReader([]byte("not a fit file")), "bad")
	require.Error(t, err)
}

func buildTestFIT(t *testing.T) []byte {
	t.Helper()

	header := fit.NewHeader(fit.V20, true)
	file, err := fit.NewFile(fit.FileTypeActivity, header)
	require.NoError(t, err)

	activity, err := file.Activity()
	require.NoError(t, err)

	start := time.Date(2026, 2, 26, 23, 0, 0, 0, time.UTC)
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
	return buf.Bytes()
}
