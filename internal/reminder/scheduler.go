// Package reminder turns a submitted medication entry into the reminder the
// notification capability should schedule.
package reminder

import (
	"time"

	"github.com/gmsas95/medreminder/internal/civil"
)

// NextTrigger returns the next instant at which a reminder for tod fires: today
// at tod if that is still ahead of now, otherwise tomorrow at tod. The day is
// advanced on the calendar, not by 24h, so the wall-clock time survives
// daylight-saving changes.
func NextTrigger(now time.Time, tod civil.TimeOfDay) time.Time {
	y, m, d := now.Date()
	candidate := time.Date(y, m, d, tod.Hour, tod.Minute, tod.Second, 0, now.Location())
	if !candidate.After(now) {
		candidate = time.Date(y, m, d+1, tod.Hour, tod.Minute, tod.Second, 0, now.Location())
	}
	return candidate
}

// FollowingTrigger returns the fire time one calendar day after prev, at the
// same wall-clock time.
func FollowingTrigger(prev time.Time) time.Time {
	y, m, d := prev.Date()
	h, mi, s := prev.Clock()
	return time.Date(y, m, d+1, h, mi, s, 0, prev.Location())
}
