// Package handler is the HTTP/JSON boundary over the coupon engine: the
// public redemption endpoint and the administrative CRUD surface.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
	"github.com/xenking/coupon-engine/internal/domain/redeem"
)

// AdminStore is the persistence surface consumed by the administrative
// endpoints.
type AdminStore interface {
	Create(ctx context.Context, c *coupon.Coupon) error
	Update(ctx context.Context, c *coupon.Coupon) error
	GetByID(ctx context.Context, id string) (*coupon.Coupon, error)
	List(ctx context.Context, limit, offset int) ([]coupon.Coupon, error)
	Delete(ctx context.Context, id string) error
}

// Config holds the handler's injectable strategy points.
type Config struct {
	// GenerateCode supplies codes for coupons created without one.
	// Defaults to coupon.GenerateCode.
	GenerateCode func() string
	// Clock supplies the current time for validation. Defaults to time.Now.
	Clock func() time.Time
}

// Handler serves the API, delegating business logic to the redemption
// coordinator and the coupon domain.
type Handler struct {
	redeemer    *redeem.Service
	store       AdminStore
	detector    *coupon.ConflictDetector
	attachments coupon.AttachmentResolver
	generate    func() string
	now         func() time.Time
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	redeemer *redeem.Service,
	store AdminStore,
	detector *coupon.ConflictDetector,
	attachments coupon.AttachmentResolver,
) *Handler {
	generate := cfg.GenerateCode
	if generate == nil {
		generate = coupon.GenerateCode
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Handler{
		redeemer:    redeemer,
		store:       store,
		detector:    detector,
		attachments: attachments,
		generate:    generate,
		now:         now,
	}
}

// Routes returns the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/coupons/redeem", h.redeemCoupon)
	r.Route("/admin/coupons", func(r chi.Router) {
		r.Get("/", h.listCoupons)
		r.Post("/", h.createCoupon)
		r.Get("/{couponID}", h.getCoupon)
		r.Put("/{couponID}", h.updateCoupon)
		r.Delete("/{couponID}", h.deleteCoupon)
	})
	return r
}

// errorResponse is the uniform error body for non-validation failures.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// violationsResponse carries field-scoped validation failures so the admin
// form can render errors next to the offending inputs.
type violationsResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Errors  coupon.Violations `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

func writeViolations(w http.ResponseWriter, vs coupon.Violations) {
	writeJSON(w, http.StatusUnprocessableEntity, violationsResponse{
		Code:    http.StatusUnprocessableEntity,
		Message: "validation failed",
		Errors:  vs,
	})
}
