package queue

import (
	"fmt"
	"time"
)

// Schedule computes the next run time for a periodic job.
type Schedule interface {
	// Next returns the next run time strictly after the given time.
	Next(after time.Time) time.Time
	// String describes the schedule for logging.
	String() string
}

// intervalSchedule runs at a fixed period.
type intervalSchedule struct {
	every time.Duration
}

// Every returns a Schedule firing at the given fixed interval.
// Intervals below one second are raised to one second to protect the
// scheduler's check loop.
func Every(d time.Duration) Schedule {
	if d < time.Second {
		d = time.Second
	}
	return intervalSchedule{every: d}
}

func (s intervalSchedule) Next(after time.Time) time.Time {
	return after.Add(s.every)
}

func (s intervalSchedule) String() string {
	return fmt.Sprintf("every %s", s.every)
}

// dailySchedule runs once a day at a fixed UTC time.
type dailySchedule struct {
	hour, minute int
}

// DailyAt returns a Schedule firing daily at the given UTC hour and minute.
func DailyAt(hour, minute int) Schedule {
	if hour < 0 || hour > 23 {
		hour = 0
	}
	if minute < 0 || minute > 59 {
		minute = 0
	}
	return dailySchedule{hour: hour, minute: minute}
}

func (s dailySchedule) Next(after time.Time) time.Time {
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), s.hour, s.minute, 0, 0, time.UTC)
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s dailySchedule) String() string {
	return fmt.Sprintf("daily at %02d:%02d UTC", s.hour, s.minute)
}
