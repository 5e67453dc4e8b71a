// Package stability maintains a rolling estimate of the DO saturation
// baseline. A sample counts as stable when the standard deviation of
// the DO signal over its trailing window stays under a configured
// threshold; the saturation estimate is the median DO across all stable
// samples, which keeps a transient spike at a window edge from dragging
// the baseline. A window with no stable stretch leaves the previous
// estimate untouched — drop-rate transients never leak into it.
package stability
