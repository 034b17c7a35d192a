package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Kind enumerates the supported discount strategies.
type Kind string

const (
	// KindPercentage discounts a percentage (0-100) of the input amount.
	KindPercentage Kind = "percentage"
	// KindAmount discounts a fixed monetary amount.
	KindAmount Kind = "amount"
)

// Time-of-day window bounds. DayEnd is a sentinel meaning "end of day": it
// sorts after every real HH:MM:SS value, so plain string comparison treats
// the window as covering the whole day.
const (
	DayStart = "00:00:00"
	DayEnd   = "24:00:00"
)

var (
	// ErrNotFound is returned when no coupon exists for a code.
	ErrNotFound = errors.New("coupon not found")
	// ErrLimitExceeded is returned when the atomic redemption commit loses the
	// last capacity slot to a concurrent redemption.
	ErrLimitExceeded = errors.New("coupon redemption limit exceeded")
)

// Recurrence restricts a coupon to specific weekdays.
// Days uses time.Weekday numbering: 0 = Sunday through 6 = Saturday.
type Recurrence struct {
	Days []int
}

// Contains reports whether the given weekday is part of the schedule.
func (r *Recurrence) Contains(day time.Weekday) bool {
	for _, d := range r.Days {
		if d == int(day) {
			return true
		}
	}
	return false
}

// Intersects reports whether two weekly schedules share at least one weekday.
func (r *Recurrence) Intersects(other *Recurrence) bool {
	for _, d := range r.Days {
		if other.Contains(time.Weekday(d)) {
			return true
		}
	}
	return false
}

// Coupon is a promotional code with a validity window, a discount rule, and
// usage caps. A nil Recurrence means the plain variant; a non-nil Recurrence
// makes it the weekly variant, redeemable only on the listed weekdays.
type Coupon struct {
	ID          string
	Code        string
	Description string
	Kind        Kind
	// Amount is the discount value: percent for KindPercentage, monetary
	// units for KindAmount. Stored as an integer; arithmetic is decimal.
	Amount int

	// ValidFrom and ValidUntil bound the validity window at date granularity.
	// A nil ValidUntil means open-ended.
	ValidFrom  time.Time
	ValidUntil *time.Time
	// ValidFromTime and ValidUntilTime narrow each valid day to a half-open
	// [from, until) time-of-day window, formatted HH:MM:SS.
	ValidFromTime  string
	ValidUntilTime string

	// LimitGlobal caps total redemptions; 0 means unlimited.
	LimitGlobal int
	// LimitUser caps redemptions per user; 0 means unlimited.
	LimitUser int
	// RedemptionCount is mutated only by the atomic redemption commit.
	RedemptionCount int

	Recurrence *Recurrence

	// Attachments maps opaque keys to external references. References may
	// dangle; resolution yields absent rather than an error.
	Attachments map[string]Ref

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Depleted reports whether the coupon has exhausted its global limit.
// Depleted coupons are excluded from code-uniqueness conflicts, so a code may
// be reused once its predecessor runs out.
func (c *Coupon) Depleted() bool {
	return c.LimitGlobal > 0 && c.RedemptionCount >= c.LimitGlobal
}

// HasGlobalCapacity reports whether at least one global redemption slot
// remains. This read is advisory; the commit re-checks atomically.
func (c *Coupon) HasGlobalCapacity() bool {
	return !c.Depleted()
}

// Redemption records one successful use of a coupon. Rows are append-only.
type Redemption struct {
	ID        string
	CouponID  string
	UserID    string
	OrderID   string
	CreatedAt time.Time
}

// Repository is the durable store contract for the redemption path and the
// conflict detector. Implementations must make Redeem atomic per coupon.
type Repository interface {
	// FindByCode looks up a coupon by code, case-insensitively.
	// Returns ErrNotFound when no such coupon exists.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// ListByCode returns every coupon sharing the case-folded code,
	// excluding the record with excludeID (empty to exclude nothing).
	ListByCode(ctx context.Context, code, excludeID string) ([]Coupon, error)
	// CountUserRedemptions counts persisted redemptions of a coupon by one user.
	CountUserRedemptions(ctx context.Context, couponID, userID string) (int, error)
	// Redeem commits a redemption: increments the coupon's counter and
	// inserts the redemption row in one transaction, re-validating global and
	// per-user capacity at commit time. Returns ErrLimitExceeded when a
	// concurrent redemption consumed the last slot.
	Redeem(ctx context.Context, r *Redemption) error
}

// GenerateCode produces a unique opaque 8-character coupon code.
// It is the default generator; callers needing deterministic codes inject
// their own through Normalize.
func GenerateCode() string {
	id := uuid.New()
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))[:8]
}

// Normalize fills creation defaults in place: a generated code, a start date
// of today, a full-day time window, and an empty attachment map.
func Normalize(c *Coupon, generate func() string, now time.Time) {
	if generate == nil {
		generate = GenerateCode
	}
	c.Code = strings.TrimSpace(c.Code)
	if c.Code == "" {
		c.Code = generate()
	}
	if c.ValidFrom.IsZero() {
		c.ValidFrom = dateOf(now)
	}
	if c.ValidFromTime == "" {
		c.ValidFromTime = DayStart
	}
	if c.ValidUntilTime == "" {
		c.ValidUntilTime = DayEnd
	}
	if c.Attachments == nil {
		c.Attachments = map[string]Ref{}
	}
}
