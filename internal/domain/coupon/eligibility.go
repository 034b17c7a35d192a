package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Evaluator decides whether a coupon is currently redeemable by a given user.
// Every check is a pure function of {coupon, userID, now} except the per-user
// capacity check, which counts persisted redemptions through the repository.
// The evaluation is advisory: only the commit-time check inside
// Repository.Redeem is authoritative under concurrency.
type Evaluator struct {
	repo Repository
	now  func() time.Time
}

// NewEvaluator creates an Evaluator backed by the given Repository.
func NewEvaluator(repo Repository) *Evaluator {
	return &Evaluator{repo: repo, now: time.Now}
}

// WithClock replaces the evaluator's time source. Intended for tests.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// Redeemable reports whether the coupon can be redeemed right now, optionally
// by the given user. An empty userID means an anonymous redemption attempt:
// it fails whenever the coupon carries a nonzero per-user limit, because such
// a coupon cannot be consumed without attribution.
func (e *Evaluator) Redeemable(ctx context.Context, c *Coupon, userID string) (bool, error) {
	if !c.ScheduleActive(e.now()) {
		return false, nil
	}
	if !c.HasGlobalCapacity() {
		return false, nil
	}
	return e.UserCapacity(ctx, c, userID)
}

// UserCapacity checks the per-user cap in isolation. It holds trivially for
// coupons without a user limit.
func (e *Evaluator) UserCapacity(ctx context.Context, c *Coupon, userID string) (bool, error) {
	if c.LimitUser == 0 {
		return true, nil
	}
	if userID == "" {
		return false, nil
	}
	n, err := e.repo.CountUserRedemptions(ctx, c.ID, userID)
	if err != nil {
		return false, errors.Wrap(err, "count user redemptions")
	}
	return n < c.LimitUser, nil
}
