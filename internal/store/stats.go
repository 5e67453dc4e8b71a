package store

import (
	"context"
	"time"

	"github.com/reactorwatch/reactorwatch/internal/detect"
)

// Stats summarizes a reactor's feeding history.
type Stats struct {
	EventCount          int                         `json:"event_count"`
	TotalVolumeByType   map[detect.FeedType]float64 `json:"total_volume_by_type"`
	MeanIntervalSeconds float64                     `json:"mean_interval_seconds"`
	FirstEvent          *time.Time                  `json:"first_event,omitempty"`
	LastEvent           *time.Time                  `json:"last_event,omitempty"`
}

// Statistics computes feeding statistics over the reactor's whole history.
func (s *Store) Statistics(ctx context.Context, reactorID string) (Stats, error) {
	events, err := s.Query(ctx, reactorID, time.Time{}, time.Time{}, "")
	if err != nil {
		return Stats{}, err
	}

	st := Stats{
		EventCount:        len(events),
		TotalVolumeByType: make(map[detect.FeedType]float64),
	}
	if len(events) == 0 {
		return st, nil
	}

	for _, ev := range events {
		st.TotalVolumeByType[ev.FeedType] += ev.VolumeLiters
	}
	first, last := events[0].Timestamp, events[len(events)-1].Timestamp
	st.FirstEvent, st.LastEvent = &first, &last
	if len(events) > 1 {
		st.MeanIntervalSeconds = last.Sub(first).Seconds() / float64(len(events)-1)
	}
	return st, nil
}
