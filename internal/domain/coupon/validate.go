package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Violation kinds surfaced by Validate. They carry field identity so the
// administrative form can render errors next to the offending input.
const (
	ViolationRequired       = "required"
	ViolationInvalid        = "invalid"
	ViolationOutOfRange     = "out_of_range"
	ViolationAlreadyExpired = "already_expired"
	ViolationEndsBeforeFrom = "ends_before_start"
	ViolationNotUnique      = "not_unique"
)

// Violation is a single field-scoped validation failure.
type Violation struct {
	Field string `json:"field"`
	Kind  string `json:"kind"`
}

// Violations is the ordered list of failures for one coupon. Validation is
// pure: calling it twice on the same unmodified coupon yields identical lists.
type Violations []Violation

// Has reports whether any violation references the given field.
func (vs Violations) Has(field string) bool {
	for _, v := range vs {
		if v.Field == field {
			return true
		}
	}
	return false
}

// Validate checks every invariant that does not require storage access:
// required fields, kind enum, numeric ranges, date and time ordering, and
// recurrence day validity. Code uniqueness is checked separately by the
// ConflictDetector.
func Validate(c *Coupon, now time.Time) Violations {
	var vs Violations

	if c.Code == "" {
		vs = append(vs, Violation{Field: "code", Kind: ViolationRequired})
	}

	switch c.Kind {
	case KindPercentage:
		if c.Amount < 0 || c.Amount > 100 {
			vs = append(vs, Violation{Field: "amount", Kind: ViolationOutOfRange})
		}
	case KindAmount:
		if c.Amount < 0 {
			vs = append(vs, Violation{Field: "amount", Kind: ViolationOutOfRange})
		}
	default:
		vs = append(vs, Violation{Field: "kind", Kind: ViolationInvalid})
	}
	if c.Amount == 0 {
		vs = append(vs, Violation{Field: "amount", Kind: ViolationInvalid})
	}

	if c.LimitGlobal < 0 {
		vs = append(vs, Violation{Field: "redemption_limit_global", Kind: ViolationOutOfRange})
	}
	if c.LimitUser < 0 {
		vs = append(vs, Violation{Field: "redemption_limit_user", Kind: ViolationOutOfRange})
	}

	if c.ValidFrom.IsZero() {
		vs = append(vs, Violation{Field: "valid_from", Kind: ViolationRequired})
	}
	if c.ValidUntil != nil {
		if dateOf(*c.ValidUntil).Before(dateOf(now)) {
			vs = append(vs, Violation{Field: "valid_until", Kind: ViolationAlreadyExpired})
		}
		if !c.ValidFrom.IsZero() && dateOf(*c.ValidUntil).Before(dateOf(c.ValidFrom)) {
			vs = append(vs, Violation{Field: "valid_until", Kind: ViolationEndsBeforeFrom})
		}
	}

	if !validTimeOfDay(c.ValidFromTime, false) {
		vs = append(vs, Violation{Field: "valid_from_time", Kind: ViolationInvalid})
	}
	if !validTimeOfDay(c.ValidUntilTime, true) {
		vs = append(vs, Violation{Field: "valid_until_time", Kind: ViolationInvalid})
	} else if c.ValidFromTime >= c.ValidUntilTime {
		vs = append(vs, Violation{Field: "valid_until_time", Kind: ViolationEndsBeforeFrom})
	}

	if c.Recurrence != nil {
		if !validRecurrence(c.Recurrence) {
			vs = append(vs, Violation{Field: "recurrence", Kind: ViolationInvalid})
		}
	}

	return vs
}

// validTimeOfDay accepts HH:MM:SS strings; the end bound additionally accepts
// the "24:00:00" end-of-day sentinel.
func validTimeOfDay(s string, endBound bool) bool {
	if endBound && s == DayEnd {
		return true
	}
	_, err := time.Parse("15:04:05", s)
	return err == nil
}

// validRecurrence requires a non-empty weekday set within 0-6 and without
// duplicates.
func validRecurrence(r *Recurrence) bool {
	if len(r.Days) == 0 {
		return false
	}
	seen := make(map[int]struct{}, len(r.Days))
	for _, d := range r.Days {
		if d < 0 || d > 6 {
			return false
		}
		if _, dup := seen[d]; dup {
			return false
		}
		seen[d] = struct{}{}
	}
	return true
}

// ConflictDetector rejects a new or edited coupon whose code collides in time
// with another active coupon of the same code. It runs only on the
// administrative create/update path, never during redemption.
type ConflictDetector struct {
	repo Repository
	now  func() time.Time
}

// NewConflictDetector creates a ConflictDetector backed by the given Repository.
func NewConflictDetector(repo Repository) *ConflictDetector {
	return &ConflictDetector{repo: repo, now: time.Now}
}

// WithClock replaces the detector's time source. Intended for tests.
func (d *ConflictDetector) WithClock(now func() time.Time) *ConflictDetector {
	d.now = now
	return d
}

// HasConflict fetches every persisted coupon sharing the candidate's
// case-folded code (excluding the candidate itself when it is being edited),
// drops peers that are depleted or already past their date window, and tests
// the survivors for window overlap.
func (d *ConflictDetector) HasConflict(ctx context.Context, candidate *Coupon) (bool, error) {
	peers, err := d.repo.ListByCode(ctx, candidate.Code, candidate.ID)
	if err != nil {
		return false, errors.Wrap(err, "list coupons by code")
	}

	now := d.now()
	for i := range peers {
		peer := &peers[i]
		if peer.Depleted() || peer.Expired(now) {
			continue
		}
		if candidate.Overlaps(peer) {
			return true, nil
		}
	}
	return false, nil
}
