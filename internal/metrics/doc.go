// Package metrics derives DO response metrics for a feed event from a
// sensor series: the post-event drop rate via ordinary least squares,
// the recovery time back to a fraction of the pre-event baseline, the
// oxygen uptake rate (OUR) and its biomass-normalized form (sOUR).
//
// A regression the data cannot support is flagged, never faked: too few
// points sets InsufficientData, a fit under the configured r² minimum
// suppresses OUR/sOUR while still reporting the raw slope and r² so a
// caller can see why the derived metrics are absent.
package metrics
