package detect

import (
	"testing"
	"time"
)

func evAt(n int, ft FeedType) Event {
	return Event{Timestamp: t0.Add(time.Duration(n) * time.Minute), FeedType: ft}
}

func TestClassifyFeedType(t *testing.T) {
	tests := []struct {
		name   string
		recent []Event
		want   FeedType
	}{
		{
			name:   "no history defaults to control",
			recent: nil,
			want:   FeedControl,
		},
		{
			name:   "clear majority",
			recent: []Event{evAt(0, FeedControl), evAt(1, FeedExperimental), evAt(2, FeedExperimental)},
			want:   FeedExperimental,
		},
		{
			name:   "single event",
			recent: []Event{evAt(0, FeedExperimental)},
			want:   FeedExperimental,
		},
		{
			name: "tie resolves to the most recent tied type",
			recent: []Event{
				evAt(0, FeedExperimental),
				evAt(1, FeedControl),
				evAt(2, FeedExperimental),
				evAt(3, FeedControl),
			},
			want: FeedControl,
		},
		{
			name: "majority beats recency",
			recent: []Event{
				evAt(0, FeedControl),
				evAt(1, FeedControl),
				evAt(2, FeedExperimental),
			},
			want: FeedControl,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyFeedType(tc.recent); got != tc.want {
				t.Errorf("ClassifyFeedType = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestKnownFeedType(t *testing.T) {
	for _, ft := range []FeedType{FeedControl, FeedExperimental, FeedAutoDetected} {
		if !KnownFeedType(ft) {
			t.Errorf("KnownFeedType(%q) = false, want true", ft)
		}
	}
	if KnownFeedType("bolus") {
		t.Error(`KnownFeedType("bolus") = true, want false`)
	}
}
