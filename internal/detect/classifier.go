package detect

// ClassifyFeedType returns the most frequent feed type among the given
// recent events (the caller supplies the past 24 hours of history).
// Exact frequency ties resolve to the type of the most recent event
// among the tied types; with no history at all the answer is control.
//
// This is a simple majority heuristic over the operator's recent dosing
// pattern, nothing more.
func ClassifyFeedType(recent []Event) FeedType {
	if len(recent) == 0 {
		return FeedControl
	}

	counts := make(map[FeedType]int)
	for _, ev := range recent {
		counts[ev.FeedType]++
	}

	best := 0
	for _, n := range counts {
		if n > best {
			best = n
		}
	}

	// Walk newest-first so the first type holding the top count is the
	// most recently used one — that resolves ties.
	var newestFirst FeedType
	for i := len(recent) - 1; i >= 0; i-- {
		if counts[recent[i].FeedType] == best {
			newestFirst = recent[i].FeedType
			break
		}
	}
	return newestFirst
}
