package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasjlepore/fit-intervals/session"
	"github.com/lucasjlepore/fit-intervals/session/sessiontest"
)

func TestTimeIndexIsMonotoneAndClamped(t *testing.T) {
	stream := sessiontest.Steady(10, 200, 140)

	assert.Equal(t, 0, stream.TimeIndex(-5))
	assert.Equal(t, 3, stream.TimeIndex(3))
	assert.Equal(t, 4, stream.TimeIndex(3.2))
	assert.Equal(t, 9, stream.TimeIndex(100))

	prev := -1
	for secs := -1.0; secs < 12; secs += 0.25 {
		idx := stream.TimeIndex(secs)
		require.GreaterOrEqual(t, idx, prev, "TimeIndex(%v)", secs)
		prev = idx
	}

	var empty *session.Stream
	assert.Equal(t, 0, empty.TimeIndex(4))
}

func TestRangeIsInclusive(t *testing.T) {
	stream := sessiontest.Steady(301, 200, 140)

	rng := stream.Range(100, 200)
	require.Equal(t, 101, rng.Len())
	assert.Equal(t, 100.0, rng.Samples[0].ElapsedS)
	assert.Equal(t, 200.0, rng.Samples[rng.Len()-1].ElapsedS)
	assert.Equal(t, stream.Channels, rng.Channels)
	assert.True(t, rng.HasDerived)
	assert.False(t, rng.Synthetic)
}

func TestRangeDegenerateIsEmpty(t *testing.T) {
	stream := sessiontest.Steady(301, 200, 140)

	assert.True(t, stream.Range(250, 250).Empty())
	assert.True(t, stream.Range(260, 250).Empty())
	assert.True(t, stream.Range(400, 500).Empty())
}

func TestDurationUsesRecordingInterval(t *testing.T) {
	stream := sessiontest.Steady(60, 200, 140)
	stream.RecordingIntervalS = 2
	assert.Equal(t, 120.0, stream.DurationS())

	stream.RecordingIntervalS = 0
	assert.Equal(t, 60.0, stream.DurationS())
}

func TestDeriveFieldsRollingWindow(t *testing.T) {
	stream := sessiontest.Steady(90, 0, 140)
	for i := 30; i < 90; i++ {
		stream.Samples[i].PowerW = 300
	}
	stream.DeriveFields()

	assert.InDelta(t, 0, stream.Samples[29].Derived.RollingPowerW, 1e-9)
	assert.InDelta(t, 10, stream.Samples[30].Derived.RollingPowerW, 1e-9)
	assert.InDelta(t, 300, stream.Samples[59].Derived.RollingPowerW, 1e-9)
	assert.Greater(t, stream.Samples[89].Derived.WeightedPowerW, 250.0)
	assert.Equal(t, 300.0, stream.Samples[89].Derived.AltitudePowerW)
}

func TestIntervalValidate(t *testing.T) {
	require.NoError(t, session.Interval{StartS: 10, StopS: 10}.Validate())
	require.ErrorIs(t, session.Interval{StartS: 10, StopS: 5}.Validate(), session.ErrMalformedInterval)

	iv := session.Interval{StartS: 10, StopS: 20}
	assert.False(t, iv.Degenerate())
	assert.True(t, iv.Contains(10))
	assert.True(t, iv.Contains(20))
	assert.False(t, iv.Contains(20.5))
	assert.True(t, session.Interval{StartS: 5, StopS: 5}.Degenerate())
}

func TestChannelsString(t *testing.T) {
	ch := session.ChannelPower | session.ChannelHeartRate
	assert.Equal(t, "power|heart_rate", ch.String())
	assert.True(t, ch.Has(session.ChannelPower))
	assert.False(t, ch.Has(session.ChannelPower|session.ChannelSpeed))
	assert.Equal(t, "none", session.Channels(0).String())
}
