// Package cycle runs the per-reactor analysis loop: fetch samples,
// update the saturation baseline, detect feed events, compute response
// metrics, and publish the resulting snapshot.
package cycle
