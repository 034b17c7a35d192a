//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func uniqueCode(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, time.Now().UnixNano()%1_000_000)
}

func createCoupon(t *testing.T, payload map[string]any) couponResponse {
	t.Helper()

	resp := doJSON(t, http.MethodPost, "/api/admin/coupons", payload)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create coupon: expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[couponResponse](t, resp)
}

func TestAdmin_CreateAndGet(t *testing.T) {
	code := uniqueCode("CREATE")
	created := createCoupon(t, map[string]any{
		"code":       code,
		"kind":       "percentage",
		"amount":     15,
		"validFrom":  time.Now().Format("2006-01-02"),
		"validUntil": time.Now().AddDate(0, 1, 0).Format("2006-01-02"),
	})

	if created.Code != code {
		t.Fatalf("expected code %s, got %s", code, created.Code)
	}
	if created.ValidFromTime != "00:00:00" || created.ValidUntilTime != "24:00:00" {
		t.Fatalf("expected full-day defaults, got %s-%s", created.ValidFromTime, created.ValidUntilTime)
	}

	resp := doGet(t, "/api/admin/coupons/"+created.ID)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decodeJSON[couponResponse](t, resp)
	if got.ID != created.ID || got.Code != code {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestAdmin_CreateWithoutCodeGeneratesOne(t *testing.T) {
	created := createCoupon(t, map[string]any{
		"kind":   "amount",
		"amount": 7,
	})

	if len(created.Code) != 8 {
		t.Fatalf("expected generated 8-character code, got %q", created.Code)
	}
}

func TestAdmin_ValidationErrors(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/api/admin/coupons", map[string]any{
		"code":   uniqueCode("BAD"),
		"kind":   "percentage",
		"amount": 150,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	body := decodeJSON[violationsResponse](t, resp)
	if len(body.Errors) == 0 {
		t.Fatal("expected field violations")
	}
	if body.Errors[0].Field != "amount" || body.Errors[0].Kind != "out_of_range" {
		t.Fatalf("unexpected violation: %+v", body.Errors[0])
	}
}

func TestAdmin_DuplicateCodeRejected(t *testing.T) {
	code := uniqueCode("DUP")
	createCoupon(t, map[string]any{
		"code":   code,
		"kind":   "percentage",
		"amount": 10,
	})

	resp := doJSON(t, http.MethodPost, "/api/admin/coupons", map[string]any{
		"code":   code,
		"kind":   "percentage",
		"amount": 20,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	body := decodeJSON[violationsResponse](t, resp)
	found := false
	for _, v := range body.Errors {
		if v.Field == "code" && v.Kind == "not_unique" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected code/not_unique violation, got %+v", body.Errors)
	}
}

func TestAdmin_DisjointWindowsShareCode(t *testing.T) {
	code := uniqueCode("SEQ")
	createCoupon(t, map[string]any{
		"code":       code,
		"kind":       "percentage",
		"amount":     10,
		"validFrom":  time.Now().Format("2006-01-02"),
		"validUntil": time.Now().AddDate(0, 0, 10).Format("2006-01-02"),
	})

	// Starts exactly where the first ends; end dates are exclusive.
	createCoupon(t, map[string]any{
		"code":       code,
		"kind":       "percentage",
		"amount":     20,
		"validFrom":  time.Now().AddDate(0, 0, 10).Format("2006-01-02"),
		"validUntil": time.Now().AddDate(0, 0, 20).Format("2006-01-02"),
	})
}

func TestAdmin_UpdatePreservesRedemptionCount(t *testing.T) {
	code := uniqueCode("UPD")
	created := createCoupon(t, map[string]any{
		"code":   code,
		"kind":   "percentage",
		"amount": 10,
	})

	// Redeem once so the counter is nonzero.
	redeemResp := doJSON(t, http.MethodPost, "/api/coupons/redeem", map[string]any{
		"code":   code,
		"amount": "100.00",
		"userId": "updater",
	})
	defer redeemResp.Body.Close()
	if got := decodeJSON[redeemResponse](t, redeemResp); got.Status != "found" {
		t.Fatalf("redeem: expected found, got %q", got.Status)
	}

	resp := doJSON(t, http.MethodPut, "/api/admin/coupons/"+created.ID, map[string]any{
		"code":   code,
		"kind":   "percentage",
		"amount": 30,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	updated := decodeJSON[couponResponse](t, resp)
	if updated.Amount != 30 {
		t.Fatalf("expected amount 30, got %d", updated.Amount)
	}
	if updated.RedemptionCount != 1 {
		t.Fatalf("expected redemption count 1 after edit, got %d", updated.RedemptionCount)
	}
}

func TestAdmin_Delete(t *testing.T) {
	created := createCoupon(t, map[string]any{
		"code":   uniqueCode("DEL"),
		"kind":   "amount",
		"amount": 3,
	})

	resp := doJSON(t, http.MethodDelete, "/api/admin/coupons/"+created.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	getResp := doGet(t, "/api/admin/coupons/"+created.ID)
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", getResp.StatusCode)
	}
}

func TestAdmin_WeeklyCoupon(t *testing.T) {
	created := createCoupon(t, map[string]any{
		"code":           uniqueCode("WKLY"),
		"kind":           "percentage",
		"amount":         25,
		"recurrenceDays": []int{0, 6},
	})

	if len(created.RecurrenceDays) != 2 {
		t.Fatalf("expected weekday set to round-trip, got %v", created.RecurrenceDays)
	}
}
