package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCoupon() *Coupon {
	return &Coupon{
		ID:             "c1",
		Code:           "SAVE10",
		Kind:           KindPercentage,
		Amount:         10,
		ValidFrom:      day(0),
		ValidFromTime:  DayStart,
		ValidUntilTime: DayEnd,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(c *Coupon)
		wantField string
		wantKind  string
	}{
		{"missing code", func(c *Coupon) { c.Code = "" }, "code", ViolationRequired},
		{"unknown kind", func(c *Coupon) { c.Kind = "bogus" }, "kind", ViolationInvalid},
		{"percentage above 100", func(c *Coupon) { c.Amount = 101 }, "amount", ViolationOutOfRange},
		{"negative amount", func(c *Coupon) { c.Amount = -1 }, "amount", ViolationOutOfRange},
		{"zero amount", func(c *Coupon) { c.Amount = 0 }, "amount", ViolationInvalid},
		{"negative global limit", func(c *Coupon) { c.LimitGlobal = -1 }, "redemption_limit_global", ViolationOutOfRange},
		{"negative user limit", func(c *Coupon) { c.LimitUser = -2 }, "redemption_limit_user", ViolationOutOfRange},
		{"missing valid_from", func(c *Coupon) { c.ValidFrom = time.Time{} }, "valid_from", ViolationRequired},
		{"valid_until in the past", func(c *Coupon) { c.ValidUntil = datePtr(day(-1)) }, "valid_until", ViolationAlreadyExpired},
		{"valid_until before valid_from", func(c *Coupon) {
			c.ValidFrom = day(5)
			c.ValidUntil = datePtr(day(2))
		}, "valid_until", ViolationEndsBeforeFrom},
		{"malformed from time", func(c *Coupon) { c.ValidFromTime = "9am" }, "valid_from_time", ViolationInvalid},
		{"malformed until time", func(c *Coupon) { c.ValidUntilTime = "25:00:00" }, "valid_until_time", ViolationInvalid},
		{"until time before from time", func(c *Coupon) {
			c.ValidFromTime, c.ValidUntilTime = "17:00:00", "09:00:00"
		}, "valid_until_time", ViolationEndsBeforeFrom},
		{"empty recurrence", func(c *Coupon) { c.Recurrence = &Recurrence{} }, "recurrence", ViolationInvalid},
		{"recurrence day out of range", func(c *Coupon) {
			c.Recurrence = &Recurrence{Days: []int{0, 7}}
		}, "recurrence", ViolationInvalid},
		{"duplicate recurrence day", func(c *Coupon) {
			c.Recurrence = &Recurrence{Days: []int{1, 1}}
		}, "recurrence", ViolationInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCoupon()
			tt.modify(c)

			vs := Validate(c, fixedNow)
			require.NotEmpty(t, vs)
			assert.Contains(t, vs, Violation{Field: tt.wantField, Kind: tt.wantKind})
		})
	}
}

func TestValidate_CleanCoupon(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Coupon)
	}{
		{"minimal plain coupon", func(*Coupon) {}},
		{"open-ended coupon", func(c *Coupon) { c.ValidUntil = nil }},
		{"bounded window", func(c *Coupon) { c.ValidUntil = datePtr(day(30)) }},
		{"valid_until today is still creatable", func(c *Coupon) { c.ValidUntil = datePtr(day(0)) }},
		{"fixed amount kind", func(c *Coupon) { c.Kind, c.Amount = KindAmount, 500 }},
		{"sentinel end-of-day time", func(c *Coupon) { c.ValidUntilTime = DayEnd }},
		{"weekly coupon", func(c *Coupon) { c.Recurrence = &Recurrence{Days: []int{0, 3, 6}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCoupon()
			tt.modify(c)
			assert.Empty(t, Validate(c, fixedNow))
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	c := validCoupon()
	c.Code = ""
	c.Amount = -5

	first := Validate(c, fixedNow)
	second := Validate(c, fixedNow)
	assert.Equal(t, first, second)
}

func TestViolations_Has(t *testing.T) {
	vs := Violations{
		{Field: "code", Kind: ViolationRequired},
		{Field: "amount", Kind: ViolationOutOfRange},
	}
	assert.True(t, vs.Has("code"))
	assert.True(t, vs.Has("amount"))
	assert.False(t, vs.Has("valid_from"))
}

func TestConflictDetector_HasConflict(t *testing.T) {
	window := func(from, until time.Time) Coupon {
		return Coupon{
			ID:             "peer",
			Code:           "SAVE10",
			Kind:           KindPercentage,
			Amount:         10,
			ValidFrom:      from,
			ValidUntil:     datePtr(until),
			ValidFromTime:  DayStart,
			ValidUntilTime: DayEnd,
		}
	}

	tests := []struct {
		name      string
		peers     []Coupon
		candidate func() *Coupon
		want      bool
	}{
		{
			name:      "no peers",
			peers:     nil,
			candidate: validCoupon,
			want:      false,
		},
		{
			name:  "overlapping active peer",
			peers: []Coupon{window(day(-5), day(5))},
			candidate: func() *Coupon {
				c := validCoupon()
				c.ValidUntil = datePtr(day(10))
				return c
			},
			want: true,
		},
		{
			name: "adjacent windows do not conflict",
			peers: []Coupon{
				window(day(1), day(3)),
			},
			candidate: func() *Coupon {
				c := validCoupon()
				c.ValidFrom = day(3)
				c.ValidUntil = datePtr(day(6))
				return c
			},
			want: false,
		},
		{
			name: "depleted peer is ignored",
			peers: func() []Coupon {
				p := window(day(-5), day(5))
				p.LimitGlobal, p.RedemptionCount = 3, 3
				return []Coupon{p}
			}(),
			candidate: validCoupon,
			want:      false,
		},
		{
			name:      "expired peer is ignored",
			peers:     []Coupon{window(day(-10), day(-2))},
			candidate: validCoupon,
			want:      false,
		},
		{
			name:  "weekly candidate against plain peer",
			peers: []Coupon{window(day(-5), day(5))},
			candidate: func() *Coupon {
				c := validCoupon()
				c.ValidUntil = datePtr(day(10))
				c.Recurrence = &Recurrence{Days: []int{2}}
				return c
			},
			want: false,
		},
		{
			name: "weekly candidate against weekly peer sharing a day",
			peers: func() []Coupon {
				p := window(day(-5), day(5))
				p.Recurrence = &Recurrence{Days: []int{2, 4}}
				return []Coupon{p}
			}(),
			candidate: func() *Coupon {
				c := validCoupon()
				c.ValidUntil = datePtr(day(10))
				c.Recurrence = &Recurrence{Days: []int{4}}
				return c
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewConflictDetector(&mockRepo{peers: tt.peers}).
				WithClock(func() time.Time { return fixedNow })

			got, err := d.HasConflict(context.Background(), tt.candidate())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
