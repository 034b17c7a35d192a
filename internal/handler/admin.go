package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

const dateLayout = "2006-01-02"

// couponRequest is the administrative create/update payload. Dates use
// YYYY-MM-DD; times use HH:MM:SS with "24:00:00" meaning end of day.
type couponRequest struct {
	Code           string            `json:"code"`
	Description    string            `json:"description"`
	Kind           string            `json:"kind"`
	Amount         int               `json:"amount"`
	ValidFrom      string            `json:"validFrom"`
	ValidUntil     string            `json:"validUntil"`
	ValidFromTime  string            `json:"validFromTime"`
	ValidUntilTime string            `json:"validUntilTime"`
	LimitGlobal    int               `json:"redemptionLimitGlobal"`
	LimitUser      int               `json:"redemptionLimitUser"`
	RecurrenceDays []int             `json:"recurrenceDays"`
	Attachments    map[string]string `json:"attachments"`
}

type couponResponse struct {
	ID              string         `json:"id"`
	Code            string         `json:"code"`
	Description     string         `json:"description,omitempty"`
	Kind            string         `json:"kind"`
	Amount          int            `json:"amount"`
	ValidFrom       string         `json:"validFrom"`
	ValidUntil      string         `json:"validUntil,omitempty"`
	ValidFromTime   string         `json:"validFromTime"`
	ValidUntilTime  string         `json:"validUntilTime"`
	LimitGlobal     int            `json:"redemptionLimitGlobal"`
	LimitUser       int            `json:"redemptionLimitUser"`
	RedemptionCount int            `json:"redemptionCount"`
	RecurrenceDays  []int          `json:"recurrenceDays,omitempty"`
	Attachments     map[string]any `json:"attachments,omitempty"`
}

// toDomain converts the payload to a domain coupon, returning field
// violations for unparseable dates.
func (req *couponRequest) toDomain(id string) (*coupon.Coupon, coupon.Violations) {
	var vs coupon.Violations

	c := &coupon.Coupon{
		ID:             id,
		Code:           req.Code,
		Description:    req.Description,
		Kind:           coupon.Kind(req.Kind),
		Amount:         req.Amount,
		ValidFromTime:  req.ValidFromTime,
		ValidUntilTime: req.ValidUntilTime,
		LimitGlobal:    req.LimitGlobal,
		LimitUser:      req.LimitUser,
	}

	if req.ValidFrom != "" {
		from, err := time.Parse(dateLayout, req.ValidFrom)
		if err != nil {
			vs = append(vs, coupon.Violation{Field: "valid_from", Kind: coupon.ViolationInvalid})
		} else {
			c.ValidFrom = from
		}
	}
	if req.ValidUntil != "" {
		until, err := time.Parse(dateLayout, req.ValidUntil)
		if err != nil {
			vs = append(vs, coupon.Violation{Field: "valid_until", Kind: coupon.ViolationInvalid})
		} else {
			c.ValidUntil = &until
		}
	}
	if req.RecurrenceDays != nil {
		c.Recurrence = &coupon.Recurrence{Days: req.RecurrenceDays}
	}
	if len(req.Attachments) > 0 {
		c.Attachments = make(map[string]coupon.Ref, len(req.Attachments))
		for k, v := range req.Attachments {
			c.Attachments[k] = coupon.Ref(v)
		}
	}
	return c, vs
}

// validate runs field validation and the code-uniqueness conflict check,
// mirroring what the administrative form needs to render.
func (h *Handler) validate(r *http.Request, c *coupon.Coupon) (coupon.Violations, error) {
	vs := coupon.Validate(c, h.now())

	// Conflict detection is skipped when the code itself is invalid.
	if !vs.Has("code") {
		conflict, err := h.detector.HasConflict(r.Context(), c)
		if err != nil {
			return nil, err
		}
		if conflict {
			vs = append(vs, coupon.Violation{Field: "code", Kind: coupon.ViolationNotUnique})
		}
	}
	return vs, nil
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, vs := req.toDomain(uuid.New().String())
	if len(vs) > 0 {
		writeViolations(w, vs)
		return
	}

	coupon.Normalize(c, h.generate, h.now())

	vs, err := h.validate(r, c)
	if err != nil {
		h.serverError(w, r, "validate coupon", err)
		return
	}
	if len(vs) > 0 {
		writeViolations(w, vs)
		return
	}

	if err := h.store.Create(r.Context(), c); err != nil {
		h.serverError(w, r, "create coupon", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toResponse(r, c))
}

func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "couponID")

	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, http.StatusNotFound, "coupon not found")
			return
		}
		h.serverError(w, r, "get coupon", err)
		return
	}

	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, vs := req.toDomain(id)
	if len(vs) > 0 {
		writeViolations(w, vs)
		return
	}
	c.RedemptionCount = existing.RedemptionCount

	coupon.Normalize(c, h.generate, h.now())

	vs, err = h.validate(r, c)
	if err != nil {
		h.serverError(w, r, "validate coupon", err)
		return
	}
	if len(vs) > 0 {
		writeViolations(w, vs)
		return
	}

	if err := h.store.Update(r.Context(), c); err != nil {
		h.serverError(w, r, "update coupon", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(r, c))
}

func (h *Handler) getCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetByID(r.Context(), chi.URLParam(r, "couponID"))
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, http.StatusNotFound, "coupon not found")
			return
		}
		h.serverError(w, r, "get coupon", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(r, c))
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	coupons, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		h.serverError(w, r, "list coupons", err)
		return
	}

	out := make([]couponResponse, len(coupons))
	for i := range coupons {
		out[i] = *h.toResponse(r, &coupons[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	err := h.store.Delete(r.Context(), chi.URLParam(r, "couponID"))
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, http.StatusNotFound, "coupon not found")
			return
		}
		h.serverError(w, r, "delete coupon", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// toResponse builds the admin representation. Attachment references are
// resolved lazily; dangling references are dropped rather than surfaced as
// errors.
func (h *Handler) toResponse(r *http.Request, c *coupon.Coupon) *couponResponse {
	resp := &couponResponse{
		ID:              c.ID,
		Code:            c.Code,
		Description:     c.Description,
		Kind:            string(c.Kind),
		Amount:          c.Amount,
		ValidFrom:       c.ValidFrom.Format(dateLayout),
		ValidFromTime:   c.ValidFromTime,
		ValidUntilTime:  c.ValidUntilTime,
		LimitGlobal:     c.LimitGlobal,
		LimitUser:       c.LimitUser,
		RedemptionCount: c.RedemptionCount,
	}
	if c.ValidUntil != nil {
		resp.ValidUntil = c.ValidUntil.Format(dateLayout)
	}
	if c.Recurrence != nil {
		resp.RecurrenceDays = c.Recurrence.Days
	}

	if h.attachments != nil {
		resolved, err := coupon.ResolveAttachments(r.Context(), h.attachments, c)
		if err != nil {
			zctx.From(r.Context()).Warn("resolve attachments",
				zap.String("coupon_id", c.ID), zap.Error(err))
		} else {
			resp.Attachments = resolved
		}
	}
	return resp
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	zctx.From(r.Context()).Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
