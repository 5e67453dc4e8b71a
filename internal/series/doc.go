// Package series defines the in-memory sensor sample model and the
// time-series operations shared by every analysis component: sorting,
// timestamp deduplication, time-range windowing, and median sampling
// interval estimation.
package series
