package delivery

import "time"

// maxAttempt is the last attempt that gets executed. A failure at this
// attempt parks the delivery in the dead letter queue instead of
// scheduling another retry, for six attempts total (0 through 5).
const maxAttempt = 5

var retrySchedule = []time.Duration{
	0,
	time.Minute,
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
	2 * time.Hour,
}

// RetryDelay returns how long to wait before running the given attempt.
// Attempt 0 is immediate; later attempts back off on a fixed schedule
// capped at six hours.
func RetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	if attempt < len(retrySchedule) {
		return retrySchedule[attempt]
	}
	return 6 * time.Hour
}
