package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

const couponColumns = `id, code, description, kind, amount,
	valid_from, valid_until, valid_from_time, valid_until_time,
	redemption_limit_global, redemption_limit_user, redemption_count,
	recurrence_days, attachments, created_at, updated_at`

const (
	// Several coupons may share a code across non-overlapping windows. The
	// redemption path wants the one covering today, preferring undepleted
	// rows so a reused code resolves to its live successor.
	findByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE LOWER(code) = LOWER($1)
		ORDER BY (redemption_limit_global > 0 AND redemption_count >= redemption_limit_global),
			(valid_from <= CURRENT_DATE AND (valid_until IS NULL OR valid_until > CURRENT_DATE)) DESC,
			created_at DESC
		LIMIT 1`

	listByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE LOWER(code) = LOWER($1) AND id <> $2`

	countUserRedemptionsSQL = `SELECT COUNT(*) FROM coupon_redemptions
		WHERE coupon_id = $1 AND user_id = $2`

	// The conditional increment takes the coupon row lock, so every commit
	// against one coupon serializes here. Zero rows affected means the last
	// global slot was already consumed.
	incrementCountSQL = `UPDATE coupons
		SET redemption_count = redemption_count + 1, updated_at = now()
		WHERE id = $1
			AND (redemption_limit_global = 0 OR redemption_count < redemption_limit_global)
		RETURNING redemption_limit_user`

	insertRedemptionSQL = `INSERT INTO coupon_redemptions (id, coupon_id, user_id, order_id)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))`

	insertCouponSQL = `INSERT INTO coupons (id, code, description, kind, amount,
		valid_from, valid_until, valid_from_time, valid_until_time,
		redemption_limit_global, redemption_limit_user, recurrence_days, attachments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	updateCouponSQL = `UPDATE coupons SET code = $2, description = $3, kind = $4,
		amount = $5, valid_from = $6, valid_until = $7, valid_from_time = $8,
		valid_until_time = $9, redemption_limit_global = $10,
		redemption_limit_user = $11, recurrence_days = $12, attachments = $13,
		updated_at = now()
		WHERE id = $1`

	getCouponSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL, plus
// the CRUD operations consumed by the administrative boundary.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive).
// Returns coupon.ErrNotFound when no coupon carries the code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// ListByCode returns every coupon sharing the case-folded code, excluding the
// record with excludeID.
func (r *CouponRepository) ListByCode(ctx context.Context, code, excludeID string) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listByCodeSQL, code, excludeID)
	if err != nil {
		return nil, fmt.Errorf("listing coupons by code %q: %w", code, err)
	}

	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("listing coupons by code %q: %w", code, err)
	}
	return coupons, nil
}

// CountUserRedemptions counts persisted redemptions of a coupon by one user.
func (r *CouponRepository) CountUserRedemptions(ctx context.Context, couponID, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, countUserRedemptionsSQL, couponID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting redemptions for coupon %q: %w", couponID, err)
	}
	return n, nil
}

// Redeem commits a redemption atomically: the conditional counter increment
// and the redemption insert run in one transaction, and capacity is
// re-validated at commit time. The increment locks the coupon row, so the
// per-user recount that follows cannot race another redemption of the same
// coupon. Returns coupon.ErrLimitExceeded when any capacity check fails.
func (r *CouponRepository) Redeem(ctx context.Context, red *coupon.Redemption) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning redemption tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var limitUser int
	err = tx.QueryRow(ctx, incrementCountSQL, red.CouponID).Scan(&limitUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.ErrLimitExceeded
		}
		return fmt.Errorf("incrementing count for coupon %q: %w", red.CouponID, err)
	}

	if limitUser > 0 {
		if red.UserID == "" {
			return coupon.ErrLimitExceeded
		}
		var used int
		err = tx.QueryRow(ctx, countUserRedemptionsSQL, red.CouponID, red.UserID).Scan(&used)
		if err != nil {
			return fmt.Errorf("recounting user redemptions for coupon %q: %w", red.CouponID, err)
		}
		if used >= limitUser {
			return coupon.ErrLimitExceeded
		}
	}

	_, err = tx.Exec(ctx, insertRedemptionSQL, red.ID, red.CouponID, red.UserID, red.OrderID)
	if err != nil {
		return fmt.Errorf("inserting redemption %q: %w", red.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing redemption %q: %w", red.ID, err)
	}
	return nil
}

// Create persists a new coupon.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	days, attachments, err := encodeCoupon(c)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, insertCouponSQL,
		c.ID, c.Code, c.Description, string(c.Kind), c.Amount,
		c.ValidFrom, c.ValidUntil, c.ValidFromTime, c.ValidUntilTime,
		c.LimitGlobal, c.LimitUser, days, attachments,
	)
	if err != nil {
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Update persists edits to an existing coupon. The redemption counter is
// deliberately not touched: only Redeem mutates it.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	days, attachments, err := encodeCoupon(c)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		c.ID, c.Code, c.Description, string(c.Kind), c.Amount,
		c.ValidFrom, c.ValidUntil, c.ValidFromTime, c.ValidUntilTime,
		c.LimitGlobal, c.LimitUser, days, attachments,
	)
	if err != nil {
		return fmt.Errorf("updating coupon %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// GetByID returns a coupon by its surrogate id.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}
	return &c, nil
}

// List returns coupons ordered newest first.
func (r *CouponRepository) List(ctx context.Context, limit, offset int) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}

	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return coupons, nil
}

// Delete removes a coupon and, through the FK cascade, its redemptions.
func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func encodeCoupon(c *coupon.Coupon) ([]int32, []byte, error) {
	var days []int32
	if c.Recurrence != nil {
		days = make([]int32, len(c.Recurrence.Days))
		for i, d := range c.Recurrence.Days {
			days[i] = int32(d)
		}
	}

	attachments := c.Attachments
	if attachments == nil {
		attachments = map[string]coupon.Ref{}
	}
	raw, err := json.Marshal(attachments)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling attachments for coupon %q: %w", c.Code, err)
	}
	return days, raw, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c           coupon.Coupon
		kind        string
		validUntil  *time.Time
		days        []int32
		attachments []byte
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &kind, &c.Amount,
		&c.ValidFrom, &validUntil, &c.ValidFromTime, &c.ValidUntilTime,
		&c.LimitGlobal, &c.LimitUser, &c.RedemptionCount,
		&days, &attachments, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return coupon.Coupon{}, err
	}

	c.Kind = coupon.Kind(kind)
	c.ValidUntil = validUntil
	if days != nil {
		rec := &coupon.Recurrence{Days: make([]int, len(days))}
		for i, d := range days {
			rec.Days[i] = int(d)
		}
		c.Recurrence = rec
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &c.Attachments); err != nil {
			return coupon.Coupon{}, fmt.Errorf("unmarshaling attachments for coupon %q: %w", c.ID, err)
		}
	}
	return c, nil
}
