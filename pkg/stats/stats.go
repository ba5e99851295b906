package stats

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Stat identifies a summary statistic computed over a metric time series.
type Stat string

const (
	StatMean      Stat = "MEAN"
	StatMedian    Stat = "MEDIAN"
	StatMin       Stat = "MIN"
	StatMax       Stat = "MAX"
	StatP50       Stat = "P50"
	StatP90       Stat = "P90"
	StatP95       Stat = "P95"
	StatP99       Stat = "P99"
	StatStddev    Stat = "STDDEV"
	StatLastValue Stat = "LAST_VALUE"
)

// ErrInsufficientData is returned when a statistic is requested on an
// empty series. Callers report this as a per-metric gap rather than
// aborting the whole analysis.
var ErrInsufficientData = errors.New("insufficient data")

// ErrUnknownStat is returned for statistics outside the supported set.
var ErrUnknownStat = errors.New("unknown statistic")

// allStats is the closed set of supported statistics.
var allStats = map[Stat]struct{}{
	StatMean:      {},
	StatMedian:    {},
	StatMin:       {},
	StatMax:       {},
	StatP50:       {},
	StatP90:       {},
	StatP95:       {},
	StatP99:       {},
	StatStddev:    {},
	StatLastValue: {},
}

// Valid reports whether s is a supported statistic.
func (s Stat) Valid() bool {
	_, ok := allStats[s]

	return ok
}

// Parse converts a statistic name into a Stat.
func Parse(name string) (Stat, error) {
	s := Stat(name)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStat, name)
	}

	return s, nil
}

// Compute reduces values to a single scalar according to stat.
// Returns ErrInsufficientData if values is empty.
func Compute(stat Stat, values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("computing %s: %w", stat, ErrInsufficientData)
	}

	switch stat {
	case StatMean:
		return mean(values), nil
	case StatMedian, StatP50:
		return percentile(values, 50), nil
	case StatP90:
		return percentile(values, 90), nil
	case StatP95:
		return percentile(values, 95), nil
	case StatP99:
		return percentile(values, 99), nil
	case StatMin:
		return slices.Min(values), nil
	case StatMax:
		return slices.Max(values), nil
	case StatStddev:
		return stddev(values), nil
	case StatLastValue:
		return values[len(values)-1], nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStat, stat)
	}
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// stddev computes the population standard deviation.
func stddev(values []float64) float64 {
	m := mean(values)

	var sum float64

	for _, v := range values {
		d := v - m
		sum += d * d
	}

	return math.Sqrt(sum / float64(len(values)))
}

// percentile computes the p-th percentile using linear interpolation
// between closest ranks: rank = p/100 * (n-1), interpolating between the
// two neighboring order statistics.
func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	slices.Sort(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))

	if lo == hi {
		return sorted[lo]
	}

	frac := rank - float64(lo)

	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
