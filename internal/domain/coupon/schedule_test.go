package coupon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// 2025-06-15 is a Sunday.
var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func datePtr(t time.Time) *time.Time { return &t }

func day(offset int) time.Time {
	return fixedNow.AddDate(0, 0, offset)
}

func TestCoupon_Started(t *testing.T) {
	tests := []struct {
		name      string
		validFrom time.Time
		want      bool
	}{
		{"starts yesterday", day(-1), true},
		{"starts today", day(0), true},
		{"starts today at later clock time", day(0).Add(10 * time.Hour), true},
		{"starts tomorrow", day(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Coupon{ValidFrom: tt.validFrom}
			assert.Equal(t, tt.want, c.Started(fixedNow))
		})
	}
}

func TestCoupon_Expired(t *testing.T) {
	tests := []struct {
		name       string
		validUntil *time.Time
		want       bool
	}{
		{"open-ended never expires", nil, false},
		{"ends tomorrow", datePtr(day(1)), false},
		{"ends today is already expired", datePtr(day(0)), true},
		{"ended yesterday", datePtr(day(-1)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Coupon{ValidFrom: day(-10), ValidUntil: tt.validUntil}
			assert.Equal(t, tt.want, c.Expired(fixedNow))
		})
	}
}

func TestCoupon_WithinTimeWindow(t *testing.T) {
	tests := []struct {
		name  string
		from  string
		until string
		at    time.Time
		want  bool
	}{
		{"full day covers noon", DayStart, DayEnd, fixedNow, true},
		{"full day covers midnight", DayStart, DayEnd, day(0), true},
		{"full day covers last second", DayStart, DayEnd, day(0).Add(24*time.Hour - time.Second), true},
		{"inside window", "09:00:00", "17:00:00", fixedNow, true},
		{"at lower bound is inside", "12:00:00", "17:00:00", fixedNow, true},
		{"at upper bound is outside", "09:00:00", "12:00:00", fixedNow, false},
		{"before window", "13:00:00", "17:00:00", fixedNow, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Coupon{ValidFromTime: tt.from, ValidUntilTime: tt.until}
			assert.Equal(t, tt.want, c.WithinTimeWindow(tt.at))
		})
	}
}

func TestCoupon_RecurrenceActive(t *testing.T) {
	weekend := &Recurrence{Days: []int{0, 6}}

	tests := []struct {
		name string
		rec  *Recurrence
		at   time.Time
		want bool
	}{
		{"plain coupon active any day", nil, fixedNow, true},
		{"weekend coupon on sunday", weekend, fixedNow, true},
		{"weekend coupon on saturday", weekend, day(-1), true},
		{"weekend coupon on monday", weekend, day(1), false},
		{"weekend coupon on friday", weekend, day(5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Coupon{Recurrence: tt.rec}
			assert.Equal(t, tt.want, c.RecurrenceActive(tt.at))
		})
	}
}

func TestCoupon_ScheduleActive(t *testing.T) {
	base := Coupon{
		ValidFrom:      day(-7),
		ValidUntil:     datePtr(day(7)),
		ValidFromTime:  DayStart,
		ValidUntilTime: DayEnd,
	}

	tests := []struct {
		name   string
		modify func(c *Coupon)
		want   bool
	}{
		{"all predicates pass", func(*Coupon) {}, true},
		{"not started", func(c *Coupon) { c.ValidFrom = day(1) }, false},
		{"expired", func(c *Coupon) { c.ValidUntil = datePtr(day(0)) }, false},
		{"outside time window", func(c *Coupon) {
			c.ValidFromTime, c.ValidUntilTime = "13:00:00", "14:00:00"
		}, false},
		{"wrong weekday", func(c *Coupon) {
			c.Recurrence = &Recurrence{Days: []int{1, 2}}
		}, false},
		{"matching weekday", func(c *Coupon) {
			c.Recurrence = &Recurrence{Days: []int{0}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.modify(&c)
			assert.Equal(t, tt.want, c.ScheduleActive(fixedNow))
		})
	}
}

func TestCoupon_Overlaps(t *testing.T) {
	allDay := func(from, until time.Time, rec *Recurrence) *Coupon {
		return &Coupon{
			ValidFrom:      from,
			ValidUntil:     datePtr(until),
			ValidFromTime:  DayStart,
			ValidUntilTime: DayEnd,
			Recurrence:     rec,
		}
	}

	tests := []struct {
		name string
		a, b *Coupon
		want bool
	}{
		{
			name: "identical windows overlap",
			a:    allDay(day(0), day(10), nil),
			b:    allDay(day(0), day(10), nil),
			want: true,
		},
		{
			name: "adjacent date ranges do not overlap",
			a:    allDay(day(0), day(3), nil),
			b:    allDay(day(3), day(6), nil),
			want: false,
		},
		{
			name: "overlapping date ranges overlap",
			a:    allDay(day(0), day(4), nil),
			b:    allDay(day(3), day(6), nil),
			want: true,
		},
		{
			name: "open-ended range overlaps any later range",
			a:    &Coupon{ValidFrom: day(0), ValidFromTime: DayStart, ValidUntilTime: DayEnd},
			b:    allDay(day(100), day(110), nil),
			want: true,
		},
		{
			name: "same dates but disjoint time windows",
			a: &Coupon{
				ValidFrom: day(0), ValidUntil: datePtr(day(10)),
				ValidFromTime: "09:00:00", ValidUntilTime: "12:00:00",
			},
			b: &Coupon{
				ValidFrom: day(0), ValidUntil: datePtr(day(10)),
				ValidFromTime: "12:00:00", ValidUntilTime: "17:00:00",
			},
			want: false,
		},
		{
			name: "same dates with intersecting time windows",
			a: &Coupon{
				ValidFrom: day(0), ValidUntil: datePtr(day(10)),
				ValidFromTime: "09:00:00", ValidUntilTime: "13:00:00",
			},
			b: &Coupon{
				ValidFrom: day(0), ValidUntil: datePtr(day(10)),
				ValidFromTime: "12:00:00", ValidUntilTime: "17:00:00",
			},
			want: true,
		},
		{
			name: "weekly never conflicts with plain",
			a:    allDay(day(0), day(10), &Recurrence{Days: []int{1}}),
			b:    allDay(day(0), day(10), nil),
			want: false,
		},
		{
			name: "plain never conflicts with weekly",
			a:    allDay(day(0), day(10), nil),
			b:    allDay(day(0), day(10), &Recurrence{Days: []int{1}}),
			want: false,
		},
		{
			name: "weekly schedules with disjoint weekdays",
			a:    allDay(day(0), day(10), &Recurrence{Days: []int{1, 2}}),
			b:    allDay(day(0), day(10), &Recurrence{Days: []int{3, 4}}),
			want: false,
		},
		{
			name: "weekly schedules sharing a weekday",
			a:    allDay(day(0), day(10), &Recurrence{Days: []int{1, 3}}),
			b:    allDay(day(0), day(10), &Recurrence{Days: []int{3, 4}}),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a), "overlap must be symmetric")
		})
	}
}
