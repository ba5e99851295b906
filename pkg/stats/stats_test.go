package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	values := []float64{101.2, 100.5, 102.1, 99.8, 101.5}

	tests := []struct {
		name     string
		stat     Stat
		values   []float64
		expected float64
	}{
		{
			name:     "mean",
			stat:     StatMean,
			values:   values,
			expected: 101.02,
		},
		{
			name:     "median interpolates to middle value",
			stat:     StatMedian,
			values:   values,
			expected: 101.2,
		},
		{
			name:     "min",
			stat:     StatMin,
			values:   values,
			expected: 99.8,
		},
		{
			name:     "max",
			stat:     StatMax,
			values:   values,
			expected: 102.1,
		},
		{
			name:     "last value is positional not sorted",
			stat:     StatLastValue,
			values:   values,
			expected: 101.5,
		},
		{
			name:     "p50 equals median",
			stat:     StatP50,
			values:   values,
			expected: 101.2,
		},
		{
			name: "p90 linear interpolation",
			// sorted: 1, 2, 3, 4, 5; rank = 0.9*4 = 3.6.
			stat:     StatP90,
			values:   []float64{5, 3, 1, 4, 2},
			expected: 4.6,
		},
		{
			name: "p99 linear interpolation",
			// rank = 0.99*4 = 3.96.
			stat:     StatP99,
			values:   []float64{5, 3, 1, 4, 2},
			expected: 4.96,
		},
		{
			name:     "single point percentile",
			stat:     StatP99,
			values:   []float64{42},
			expected: 42,
		},
		{
			name: "stddev population",
			// mean = 2, variance = 2/3.
			stat:     StatStddev,
			values:   []float64{1, 2, 3},
			expected: 0.816496580927726,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.stat, tt.values)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestComputeEmptySeries(t *testing.T) {
	for stat := range allStats {
		_, err := Compute(stat, nil)
		assert.ErrorIs(t, err, ErrInsufficientData, "stat %s", stat)
	}
}

func TestComputeDeterministic(t *testing.T) {
	values := []float64{3.1, 2.7, 9.4, 1.1}

	first, err := Compute(StatMean, values)
	require.NoError(t, err)

	second, err := Compute(StatMean, values)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// Input order must be preserved for positional stats.
	assert.Equal(t, []float64{3.1, 2.7, 9.4, 1.1}, values)
}

func TestParse(t *testing.T) {
	s, err := Parse("P90")
	require.NoError(t, err)
	assert.Equal(t, StatP90, s)

	_, err = Parse("P42")
	assert.ErrorIs(t, err, ErrUnknownStat)
}
