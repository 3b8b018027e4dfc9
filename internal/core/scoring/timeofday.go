package scoring

import "time"

// TimeOfDay is one of the four diurnal buckets query-side weighting can
// filter on. The zero value means "no filter applied".
type TimeOfDay string

// Recognized TimeOfDay values. These are the only values InvalidInput
// validation at the HTTP boundary accepts.
const (
	Night   TimeOfDay = "night"
	Morning TimeOfDay = "morning"
	Day     TimeOfDay = "day"
	Evening TimeOfDay = "evening"
)

// Valid reports whether t is one of the four recognized buckets.
func (t TimeOfDay) Valid() bool {
	switch t {
	case Night, Morning, Day, Evening:
		return true
	default:
		return false
	}
}

// BucketOf derives the diurnal bucket for a local-time hour:
// night is h<6 or h>=23, morning 6<=h<10, day 10<=h<18, evening 18<=h<23.
func BucketOf(h int) TimeOfDay {
	switch {
	case h < 6 || h >= 23:
		return Night
	case h < 10:
		return Morning
	case h < 18:
		return Day
	default:
		return Evening
	}
}

// BucketOfTime derives the diurnal bucket from a wall-clock time.
func BucketOfTime(t time.Time) TimeOfDay {
	return BucketOf(t.Hour())
}
