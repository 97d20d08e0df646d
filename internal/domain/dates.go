package domain

import "time"

// Date truncates t to a calendar date at midnight UTC. Due dates and
// effective dates carry no time component; every comparison between them
// must go through this normalization.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days after d, normalized to midnight UTC.
func AddDays(d time.Time, n int) time.Time {
	return Date(d).AddDate(0, 0, n)
}
