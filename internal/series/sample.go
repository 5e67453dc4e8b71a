package series

import (
	"sort"
	"time"
)

// Sample is one timestamped sensor record as fetched from the data source.
// Weights are balance readouts in grams; DO is dissolved oxygen in mg/L.
// Samples are immutable once read.
type Sample struct {
	Timestamp        time.Time
	DO               float64
	PH               float64
	Temperature      float64
	ReactorWeight    float64
	FeedBottleWeight float64
	Speed            float64
	Torque           float64
}

// Series is a sequence of samples ordered ascending by timestamp.
type Series []Sample

// Normalize returns a copy of s sorted ascending by timestamp with
// duplicate timestamps removed (the first sample at a timestamp wins).
// Unsorted or duplicated input is a data-quality nuisance, not a caller
// bug, so it is repaired rather than rejected.
func (s Series) Normalize() Series {
	if len(s) == 0 {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	dedup := out[:1]
	for _, smp := range out[1:] {
		if smp.Timestamp.Equal(dedup[len(dedup)-1].Timestamp) {
			continue
		}
		dedup = append(dedup, smp)
	}
	return dedup
}

// Window returns the samples with timestamp in [from, to], inclusive on
// both ends. s must already be sorted ascending; the result shares the
// backing array with s.
func (s Series) Window(from, to time.Time) Series {
	lo := sort.Search(len(s), func(i int) bool {
		return !s[i].Timestamp.Before(from)
	})
	hi := sort.Search(len(s), func(i int) bool {
		return s[i].Timestamp.After(to)
	})
	if lo >= hi {
		return nil
	}
	return s[lo:hi]
}

// MedianInterval returns the median gap between consecutive samples.
// The median is robust to the occasional acquisition gap that would
// skew a mean. Returns false for fewer than two samples.
func (s Series) MedianInterval() (time.Duration, bool) {
	if len(s) < 2 {
		return 0, false
	}
	gaps := make([]time.Duration, 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		gaps = append(gaps, s[i].Timestamp.Sub(s[i-1].Timestamp))
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })

	mid := len(gaps) / 2
	if len(gaps)%2 == 1 {
		return gaps[mid], true
	}
	return (gaps[mid-1] + gaps[mid]) / 2, true
}

// LastAtOrBefore returns the latest sample whose timestamp is at or
// before t. s must be sorted ascending.
func (s Series) LastAtOrBefore(t time.Time) (Sample, bool) {
	idx := sort.Search(len(s), func(i int) bool {
		return s[i].Timestamp.After(t)
	})
	if idx == 0 {
		return Sample{}, false
	}
	return s[idx-1], true
}

// Last returns the most recent sample in s.
func (s Series) Last() (Sample, bool) {
	if len(s) == 0 {
		return Sample{}, false
	}
	return s[len(s)-1], true
}
