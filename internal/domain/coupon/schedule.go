package coupon

import "time"

// Date and time-of-day window predicates. All comparisons are date-only: a
// coupon starts at 00:00 of ValidFrom and expires at 00:00 of ValidUntil,
// so the ValidUntil day itself is not redeemable. The time-of-day window is
// half-open [from, until), compared lexicographically on HH:MM:SS strings;
// an until value of "24:00:00" covers the rest of the day.

// dateOf truncates an instant to its calendar date in the same location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// timeOfDay formats an instant as a comparable HH:MM:SS string.
func timeOfDay(t time.Time) string {
	return t.Format("15:04:05")
}

// Started reports whether the coupon's start date has been reached.
func (c *Coupon) Started(now time.Time) bool {
	return !dateOf(c.ValidFrom).After(dateOf(now))
}

// Expired reports whether the coupon's end date has passed. Open-ended
// coupons (nil ValidUntil) never expire.
func (c *Coupon) Expired(now time.Time) bool {
	if c.ValidUntil == nil {
		return false
	}
	return !dateOf(*c.ValidUntil).After(dateOf(now))
}

// WithinTimeWindow reports whether the current time of day falls inside the
// coupon's [ValidFromTime, ValidUntilTime) window.
func (c *Coupon) WithinTimeWindow(now time.Time) bool {
	cur := timeOfDay(now)
	return cur >= c.ValidFromTime && cur < c.ValidUntilTime
}

// RecurrenceActive reports whether today's weekday is part of the coupon's
// weekly schedule. Plain coupons are active every day.
func (c *Coupon) RecurrenceActive(now time.Time) bool {
	if c.Recurrence == nil {
		return true
	}
	return c.Recurrence.Contains(now.Weekday())
}

// ScheduleActive combines every calendar predicate: started, not expired,
// inside the time-of-day window, and on an active weekday.
func (c *Coupon) ScheduleActive(now time.Time) bool {
	return c.Started(now) && !c.Expired(now) &&
		c.WithinTimeWindow(now) && c.RecurrenceActive(now)
}

// Overlaps reports whether two coupons' validity windows intersect on every
// active dimension: date range, time-of-day, and weekly schedule.
//
// A weekly coupon never overlaps a plain coupon regardless of evaluation
// order: the schedules are considered disjoint dimensions. Two weekly coupons
// overlap only when their weekday sets intersect.
func (c *Coupon) Overlaps(other *Coupon) bool {
	if !dateRangesOverlap(c, other) {
		return false
	}
	if !timeRangesOverlap(c, other) {
		return false
	}
	if (c.Recurrence == nil) != (other.Recurrence == nil) {
		return false
	}
	if c.Recurrence != nil {
		return c.Recurrence.Intersects(other.Recurrence)
	}
	return true
}

// dateRangesOverlap treats a nil ValidUntil as unbounded. Ranges are disjoint
// only when one ends on or before the day the other starts: end dates are
// exclusive, so [day1,day3] and [day3,day6] do not overlap.
func dateRangesOverlap(a, b *Coupon) bool {
	if b.ValidUntil != nil && !dateOf(a.ValidFrom).Before(dateOf(*b.ValidUntil)) {
		return false
	}
	if a.ValidUntil != nil && !dateOf(*a.ValidUntil).After(dateOf(b.ValidFrom)) {
		return false
	}
	return true
}

// timeRangesOverlap applies the same half-open semantics to the time-of-day
// windows, using lexicographic HH:MM:SS comparison.
func timeRangesOverlap(a, b *Coupon) bool {
	if a.ValidFromTime >= b.ValidUntilTime {
		return false
	}
	if a.ValidUntilTime <= b.ValidFromTime {
		return false
	}
	return true
}
