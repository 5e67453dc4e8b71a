// Package detect finds discrete feed events in paired balance channels.
//
// A feed event is a simultaneous step on both weight signals: the
// reactor gains mass while the feed bottle loses it. The detector
// filters balance jitter with a noise floor, requires both steps to
// clear a weight threshold, rejects any sign combination other than
// reactor-up/bottle-down (sampling withdrawals look like the mirror
// image), and debounces so one physical dosing pulse cannot emit
// overlapping events while the balance settles.
//
// Detection state (the timestamp of the last accepted event) is threaded
// explicitly through Detect rather than held in the Detector, so the
// caller's single-writer requirement is visible at the type level.
package detect
