// Package redeem orchestrates the coupon redemption flow: lookup, eligibility
// evaluation, discount calculation, and the atomic commit.
package redeem

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

// Status is the terminal outcome of a redemption attempt. A non-redeemable
// coupon is an expected, common outcome reported as a status, never an error.
type Status string

const (
	// StatusFound means the coupon was applied and the redemption committed.
	StatusFound Status = "found"
	// StatusNotFound means no coupon matched the code, or the matching coupon
	// is outside its date, time-of-day, or weekday window.
	StatusNotFound Status = "not_found"
	// StatusLimitExceeded means a matching, in-window coupon has no capacity
	// left: global limit reached, per-user limit reached, an anonymous attempt
	// against a per-user-limited coupon, or a concurrent redemption winning
	// the last slot at commit time.
	StatusLimitExceeded Status = "limit_exceeded"
)

// Request carries one redemption attempt.
type Request struct {
	Code    string
	Amount  decimal.Decimal
	UserID  string
	OrderID string
}

// Result is the outcome of a redemption attempt. The monetary figures are
// meaningful only when Status is StatusFound.
type Result struct {
	Status   Status
	Amount   decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Config holds the coordinator's injectable strategy points: the discount
// post-resolver chain, the clock, and an optional meter for the redemption
// counter.
type Config struct {
	Resolvers []coupon.Resolver
	Clock     func() time.Time
	Meter     metric.Meter
}

// Service is the single public redemption entry point. The eligibility read
// it performs is optimistic; the storage commit re-validates capacity
// atomically, so two concurrent attempts on a coupon's last slot resolve to
// exactly one StatusFound and one StatusLimitExceeded.
type Service struct {
	repo coupon.Repository
	eval *coupon.Evaluator
	calc *coupon.Calculator
	now  func() time.Time

	redemptions metric.Int64Counter
}

// NewService creates the redemption coordinator.
func NewService(repo coupon.Repository, cfg Config) (*Service, error) {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	meter := cfg.Meter
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("redeem")
	}
	counter, err := meter.Int64Counter("coupon.redemptions",
		metric.WithDescription("Coupon redemption attempts by terminal status"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create redemptions counter")
	}

	return &Service{
		repo:        repo,
		eval:        coupon.NewEvaluator(repo).WithClock(now),
		calc:        coupon.NewCalculator(cfg.Resolvers...),
		now:         now,
		redemptions: counter,
	}, nil
}

// Redeem looks up the coupon by case-folded code, checks eligibility,
// computes the discount, and atomically commits the redemption. Storage
// failures are returned as errors so callers can always distinguish "no such
// valid coupon" from a system malfunction.
func (s *Service) Redeem(ctx context.Context, req Request) (*Result, error) {
	res, err := s.redeem(ctx, req)
	if err == nil {
		s.redemptions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", string(res.Status)),
		))
	}
	return res, err
}

func (s *Service) redeem(ctx context.Context, req Request) (*Result, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return &Result{Status: StatusNotFound}, nil
	}

	c, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return &Result{Status: StatusNotFound}, nil
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !c.ScheduleActive(s.now()) {
		return &Result{Status: StatusNotFound}, nil
	}
	if !c.HasGlobalCapacity() {
		return &Result{Status: StatusLimitExceeded}, nil
	}
	ok, err := s.eval.UserCapacity(ctx, c, req.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Result{Status: StatusLimitExceeded}, nil
	}

	figures := s.calc.Apply(c, coupon.Options{
		Amount:  req.Amount,
		UserID:  req.UserID,
		OrderID: req.OrderID,
	})

	err = s.repo.Redeem(ctx, &coupon.Redemption{
		ID:       uuid.New().String(),
		CouponID: c.ID,
		UserID:   req.UserID,
		OrderID:  req.OrderID,
	})
	if err != nil {
		// The advisory read passed but a concurrent redemption consumed the
		// last slot before our commit.
		if errors.Is(err, coupon.ErrLimitExceeded) {
			return &Result{Status: StatusLimitExceeded}, nil
		}
		return nil, errors.Wrap(err, "commit redemption")
	}

	return &Result{
		Status:   StatusFound,
		Amount:   figures.Amount,
		Discount: figures.Discount,
		Total:    figures.Total,
	}, nil
}
