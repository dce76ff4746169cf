package core

import "time"

const (
	// OverlapTolerance is the largest overlap two entries of one owner may share.
	OverlapTolerance = 2 * time.Minute
	// FutureSkew is how far past "now" an entry may end.
	FutureSkew = 5 * time.Minute
)

// Interval is a span of time with End strictly after Start once validated.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Occupied is an interval already booked by a stored entry.
type Occupied struct {
	ID string
	Interval
}

// Validate checks the ordering invariant.
func (iv Interval) Validate() error {
	if !iv.End.After(iv.Start) {
		return Errorf(KindInvalidRange, "End time must be after start time")
	}
	return nil
}

// Overlap returns the length of the intersection of a and b, or zero.
func Overlap(a, b Interval) time.Duration {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// OverlapMinutes is Overlap floored to whole minutes.
func OverlapMinutes(a, b Interval) int64 {
	return int64(Overlap(a, b) / time.Minute)
}

// FindCollision returns the first existing interval, other than excludeID,
// whose overlap with candidate exceeds tolerance.
//
// The comparison uses the exact overlap, so with a two minute tolerance an
// overlap of 2m is admitted and 2m1s is not. Minute-aligned inputs give the
// same outcome as comparing floored minutes.
func FindCollision(candidate Interval, existing []Occupied, tolerance time.Duration, excludeID string) (Occupied, bool) {
	for _, o := range existing {
		if excludeID != "" && o.ID == excludeID {
			continue
		}
		if Overlap(candidate, o.Interval) > tolerance {
			return o, true
		}
	}
	return Occupied{}, false
}

// IsAdmissible reports whether candidate may be committed next to existing.
func IsAdmissible(candidate Interval, existing []Occupied, tolerance time.Duration, excludeID string) bool {
	_, collides := FindCollision(candidate, existing, tolerance, excludeID)
	return !collides
}

// OverlapError describes a rejected candidate.
func OverlapError(tolerance time.Duration) error {
	return Errorf(KindOverlap, "Time entry overlaps with existing entry. Maximum %d minutes overlap allowed.", int64(tolerance/time.Minute))
}

// DurationMinutes is floor((end - start) / 1m).
func DurationMinutes(start, end time.Time) int64 {
	return int64(end.Sub(start) / time.Minute)
}
