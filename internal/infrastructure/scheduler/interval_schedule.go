package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule runs a job every Interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every creates an IntervalSchedule.
func Every(interval time.Duration) IntervalSchedule {
	return IntervalSchedule{Interval: interval}
}

// Next returns t plus the interval.
func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns the schedule in "@every 5m0s" form.
func (s IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}
