package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/coupon-engine/internal/domain/redeem"
)

// redeemRequest is the public redemption payload. Amount accepts both JSON
// numbers and numeric strings; a missing amount is treated as zero.
type redeemRequest struct {
	Code    string      `json:"code"`
	Amount  json.Number `json:"amount"`
	UserID  string      `json:"userId"`
	OrderID string      `json:"orderId"`
}

// redeemCoupon handles POST /coupons/redeem. Every terminal status is a 200
// response; only malformed input and storage failures produce error codes.
func (h *Handler) redeemCoupon(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount := decimal.Zero
	if req.Amount != "" {
		var err error
		amount, err = decimal.NewFromString(req.Amount.String())
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount")
			return
		}
	}

	result, err := h.redeemer.Redeem(r.Context(), redeem.Request{
		Code:    req.Code,
		Amount:  amount,
		UserID:  req.UserID,
		OrderID: req.OrderID,
	})
	if err != nil {
		zctx.From(r.Context()).Error("redeem failed",
			zap.String("code", req.Code), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(encodeRedeemResult(result))
}

// encodeRedeemResult serializes the result with the decimal fields as
// numeric JSON, avoiding the float round-trip.
func encodeRedeemResult(res *redeem.Result) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	e.Str(string(res.Status))
	if res.Status == redeem.StatusFound {
		e.FieldStart("amount")
		e.Num(jx.Num(res.Amount.String()))
		e.FieldStart("discount")
		e.Num(jx.Num(res.Discount.String()))
		e.FieldStart("total")
		e.Num(jx.Num(res.Total.String()))
	}
	e.ObjEnd()
	return e.Bytes()
}
