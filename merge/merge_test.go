package merge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasjlepore/fit-intervals/merge"
	"github.com/lucasjlepore/fit-intervals/session"
	"github.com/lucasjlepore/fit-intervals/session/sessiontest"
)

func interval(id string, start, stop float64) session.Interval {
	return session.Interval{ID: id, Name: id, StartS: start, StopS: stop}
}

func TestBuildOverlappingIntervalsDeduplicates(t *testing.T) {
	src := sessiontest.Steady(1000, 250, 150)

	out, stats := merge.Build(src, []session.Interval{
		interval("A", 100, 200),
		interval("B", 150, 300),
	}, merge.Options{})

	require.Equal(t, 201, out.Len())
	assert.Equal(t, 0.0, out.Samples[0].ElapsedS)
	assert.Equal(t, 200.0, out.Samples[200].ElapsedS)
	assert.Equal(t, 0.0, out.Samples[0].DistanceM)
	assert.Equal(t, 1600.0, out.Samples[200].DistanceM)
	assert.Equal(t, 100, out.Samples[0].SourceIndex)
	assert.Equal(t, 300, out.Samples[200].SourceIndex)
	assert.True(t, out.Synthetic)
	assert.Empty(t, out.Boundaries)

	assert.Equal(t, 201, stats.Included)
	assert.Equal(t, 799, stats.Excluded)
	assert.Equal(t, []merge.Span{{StartS: 100, StopS: 300}}, stats.Spans)
}

func TestBuildIsOrderIndependent(t *testing.T) {
	src := sessiontest.Steady(1000, 250, 150)
	a := interval("A", 100, 200)
	b := interval("B", 150, 300)
	c := interval("C", 500, 520)

	first, _ := merge.Build(src, []session.Interval{a, b, c}, merge.Options{})
	second, _ := merge.Build(src, []session.Interval{c, b, a, b}, merge.Options{})
	assert.Equal(t, first.Samples, second.Samples)
	assert.Equal(t, first.Boundaries, second.Boundaries)
}

func TestBuildDisjointEqualsConcatenation(t *testing.T) {
	src := sessiontest.Ramp(300, 100)

	out, _ := merge.Build(src, []session.Interval{
		interval("B", 200, 240),
		interval("A", 20, 60),
	}, merge.Options{})

	var want []int
	for _, rng := range []*session.Stream{src.Range(20, 60), src.Range(200, 240)} {
		for _, s := range rng.Samples {
			want = append(want, s.SourceIndex)
		}
	}
	got := make([]int, out.Len())
	for i, s := range out.Samples {
		got[i] = s.SourceIndex
		if i > 0 {
			assert.Greater(t, s.SourceIndex, out.Samples[i-1].SourceIndex)
			assert.Greater(t, s.ElapsedS, out.Samples[i-1].ElapsedS)
		}
		assert.Equal(t, src.Samples[s.SourceIndex].PowerW, s.PowerW)
	}
	assert.Equal(t, want, got)
}

func TestBuildIsIdempotent(t *testing.T) {
	src := sessiontest.Steady(500, 250, 150)
	a := interval("A", 100, 200)

	once, _ := merge.Build(src, []session.Interval{a}, merge.Options{})
	twice, _ := merge.Build(src, []session.Interval{a, a, a}, merge.Options{})
	assert.Equal(t, once.Samples, twice.Samples)
	assert.Equal(t, once.Boundaries, twice.Boundaries)
}

func TestBuildDegenerateSelectionIsEmpty(t *testing.T) {
	src := sessiontest.Steady(1000, 250, 150)

	out, stats := merge.Build(src, []session.Interval{interval("C", 400, 400)}, merge.Options{})
	assert.True(t, out.Empty())
	assert.Equal(t, 1, stats.Degenerate)

	out, _ = merge.Build(src, nil, merge.Options{})
	assert.True(t, out.Empty())
}

func TestBuildMalformedIntervalContributesNothing(t *testing.T) {
	src := sessiontest.Steady(100, 250, 150)

	out, stats := merge.Build(src, []session.Interval{
		interval("bad", 50, 10),
		interval("ok", 10, 19),
	}, merge.Options{})
	assert.Equal(t, 10, out.Len())
	assert.Equal(t, 1, stats.Degenerate)
}

func TestBuildGapAdvancesOneStep(t *testing.T) {
	src := sessiontest.Steady(100, 250, 150)

	out, stats := merge.Build(src, []session.Interval{
		interval("A", 10, 19),
		interval("B", 50, 59),
	}, merge.Options{})

	require.Equal(t, 20, out.Len())
	assert.Equal(t, []int{10}, out.Boundaries)
	assert.Equal(t, 1, stats.Boundaries)
	for i, s := range out.Samples {
		assert.Equal(t, float64(i), s.ElapsedS, "sample %d", i)
		assert.Equal(t, float64(i)*8, s.DistanceM, "sample %d", i)
	}
	assert.Equal(t, 50, out.Samples[10].SourceIndex)
}

func TestBuildTouchingIntervalsHaveNoBoundary(t *testing.T) {
	src := sessiontest.Steady(100, 250, 150)

	out, stats := merge.Build(src, []session.Interval{
		interval("A", 10, 20),
		interval("B", 20, 30),
	}, merge.Options{})
	assert.Equal(t, 21, out.Len())
	assert.Empty(t, out.Boundaries)
	assert.Len(t, stats.Spans, 1)
}

func TestBuildDerivedPolicy(t *testing.T) {
	src := sessiontest.Steady(100, 250, 150)
	ivs := []session.Interval{interval("A", 40, 60)}

	copied, _ := merge.Build(src, ivs, merge.Options{Derived: merge.DerivedCopy})
	require.True(t, copied.HasDerived)
	assert.Equal(t, src.Samples[40].Derived, copied.Samples[0].Derived)

	excluded, _ := merge.Build(src, ivs, merge.Options{Derived: merge.DerivedExclude})
	require.False(t, excluded.HasDerived)
	assert.Equal(t, session.Derived{}, excluded.Samples[0].Derived)
	assert.Equal(t, 250.0, excluded.Samples[0].PowerW)
}

func TestBuildLeavesSourceUntouched(t *testing.T) {
	src := sessiontest.Steady(100, 250, 150)
	before := append([]session.Sample(nil), src.Samples...)

	merge.Build(src, []session.Interval{interval("A", 10, 19), interval("B", 50, 59)}, merge.Options{Derived: merge.DerivedExclude})
	assert.Equal(t, before, src.Samples)
}

func TestParseDerivedPolicy(t *testing.T) {
	p, err := merge.ParseDerivedPolicy("")
	require.NoError(t, err)
	assert.Equal(t, merge.DerivedCopy, p)

	p, err = merge.ParseDerivedPolicy("Exclude")
	require.NoError(t, err)
	assert.Equal(t, merge.DerivedExclude, p)
	assert.Equal(t, "exclude", p.String())

	_, err = merge.ParseDerivedPolicy("recompute")
	require.Error(t, err)
}
