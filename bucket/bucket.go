package bucket

import "math"

// Span is the interval an event occupies, in seconds.
type Span struct {
	Start float64
	End   float64
}

// Index buckets event indices by whole second. Start[i] holds the events
// whose start falls in second i, Playing[i] the events sounding at any point
// during second i. Indices inside a bucket are ascending because events are
// added in order.
type Index struct {
	Start   [][]int
	Playing [][]int
}

func second(t float64) int {
	if t <= 0 || math.IsNaN(t) {
		return 0
	}
	return int(math.Floor(t))
}

func put(lookup [][]int, b int, i int) [][]int {
	for len(lookup) <= b {
		lookup = append(lookup, nil)
	}
	lookup[b] = append(lookup[b], i)
	return lookup
}

func Build(spans []Span) Index {
	var idx Index
	for i, s := range spans {
		first := second(s.Start)
		last := second(math.Max(s.Start, s.End))
		idx.Start = put(idx.Start, first, i)
		for b := first; b <= last; b++ {
			idx.Playing = put(idx.Playing, b, i)
		}
	}
	return idx
}

// Touched returns the smallest and largest event index found in any bucket
// overlapping [t0, t1]. Since events are globally sorted, every event of
// interest lies between lo and hi.
func Touched(lookup [][]int, t0, t1 float64) (lo, hi int, ok bool) {
	if t1 < t0 || t1 < 0 {
		return 0, 0, false
	}
	first := second(t0)
	last := second(t1)
	if last >= len(lookup) {
		last = len(lookup) - 1
	}
	lo, hi = math.MaxInt, -1
	for b := first; b <= last; b++ {
		bucket := lookup[b]
		if len(bucket) == 0 {
			continue
		}
		if bucket[0] < lo {
			lo = bucket[0]
		}
		if bucket[len(bucket)-1] > hi {
			hi = bucket[len(bucket)-1]
		}
	}
	if hi < 0 {
		return 0, 0, false
	}
	return lo, hi, true
}
