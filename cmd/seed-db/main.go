package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
	"github.com/xenking/coupon-engine/internal/repository"
)

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return seedCoupons(ctx, repository.NewCouponRepository(pool))
}

func seedCoupons(ctx context.Context, repo *repository.CouponRepository) error {
	now := time.Now()
	until := now.AddDate(1, 0, 0)

	coupons := []coupon.Coupon{
		{
			Code:        "SAVE10",
			Description: "10% off any purchase",
			Kind:        coupon.KindPercentage,
			Amount:      10,
			ValidFrom:   now,
			ValidUntil:  &until,
			LimitGlobal: 0,
		},
		{
			Code:        "FIVEOFF",
			Description: "$5 off, once per customer",
			Kind:        coupon.KindAmount,
			Amount:      5,
			ValidFrom:   now,
			LimitGlobal: 0,
			LimitUser:   1,
		},
		{
			Code:        "WEEKEND25",
			Description: "25% off on weekends",
			Kind:        coupon.KindPercentage,
			Amount:      25,
			ValidFrom:   now,
			ValidUntil:  &until,
			LimitGlobal: 1000,
			Recurrence:  &coupon.Recurrence{Days: []int{0, 6}},
		},
		{
			Code:           "HAPPYHOUR",
			Description:    "15% off between 16:00 and 19:00",
			Kind:           coupon.KindPercentage,
			Amount:         15,
			ValidFrom:      now,
			ValidFromTime:  "16:00:00",
			ValidUntilTime: "19:00:00",
		},
	}

	for i := range coupons {
		c := &coupons[i]

		existing, err := repo.FindByCode(ctx, c.Code)
		if err != nil && !errors.Is(err, coupon.ErrNotFound) {
			return errors.Wrapf(err, "look up coupon %s", c.Code)
		}
		if existing != nil {
			slog.Info("coupon already present, skipping", slog.String("code", c.Code))
			continue
		}

		c.ID = uuid.NewString()
		coupon.Normalize(c, coupon.GenerateCode, now)

		if err := repo.Create(ctx, c); err != nil {
			return errors.Wrapf(err, "create coupon %s", c.Code)
		}

		slog.Info("created coupon", slog.String("code", c.Code), slog.String("description", c.Description))
	}

	return nil
}
