package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Berlin")
	if err != nil {
		panic(err)
	}
}

// force timezone to be Berlin because the portal renders dates in
// local school time with no zone marker, while our servers may end up
// anywhere, which will cause disturbances when manipulating dates
// based on <time.Time>.Year()/Month()/Day()/Hour()/...
func Now() time.Time {
	return time.Now().In(Location)
}

func StartOfDay(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}

// returns the next occurrence of hour:minute after `now`,
// possibly on the following day
func NextClockTime(now time.Time, hour, minute int) time.Time {
	now = now.In(Location)
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, Location)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
