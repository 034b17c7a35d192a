package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculator_Apply(t *testing.T) {
	tests := []struct {
		name         string
		kind         Kind
		value        int
		amount       string
		wantDiscount string
		wantTotal    string
	}{
		{"percentage half off", KindPercentage, 50, "200.00", "100", "100"},
		{"percentage of odd amount rounds", KindPercentage, 10, "19.99", "2", "17.99"},
		{"percentage full discount", KindPercentage, 100, "42.50", "42.5", "0"},
		{"fixed amount", KindAmount, 5, "20.00", "5", "15"},
		{"fixed amount exceeding total floors at zero", KindAmount, 30, "20.00", "30", "0"},
		{"fixed amount on zero input", KindAmount, 10, "0", "10", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewCalculator()
			c := &Coupon{Kind: tt.kind, Amount: tt.value}

			amount, err := decimal.NewFromString(tt.amount)
			assert.NoError(t, err)

			got := calc.Apply(c, Options{Amount: amount})

			assert.True(t, got.Discount.Equal(decimal.RequireFromString(tt.wantDiscount)),
				"discount: got %s, want %s", got.Discount, tt.wantDiscount)
			assert.True(t, got.Total.Equal(decimal.RequireFromString(tt.wantTotal)),
				"total: got %s, want %s", got.Total, tt.wantTotal)
		})
	}
}

func TestCalculator_ResolverChainOrder(t *testing.T) {
	var calls []string

	named := func(name string) Resolver {
		return ResolverFunc(func(_ *Coupon, opts Options) Options {
			calls = append(calls, name)
			if opts.Meta == nil {
				opts.Meta = map[string]any{}
			}
			opts.Meta["last"] = name
			return opts
		})
	}

	calc := NewCalculator(named("first"), named("second"), named("third"))
	c := &Coupon{Kind: KindAmount, Amount: 1}

	got := calc.Apply(c, Options{Amount: decimal.NewFromInt(10)})

	assert.Equal(t, []string{"first", "second", "third"}, calls)
	assert.Equal(t, "third", got.Meta["last"])
}

func TestCalculator_ResolverSeesComputedFigures(t *testing.T) {
	var seen Options
	capture := ResolverFunc(func(_ *Coupon, opts Options) Options {
		seen = opts
		return opts
	})

	calc := NewCalculator(capture)
	c := &Coupon{Kind: KindPercentage, Amount: 25}

	calc.Apply(c, Options{
		Amount:  decimal.NewFromInt(80),
		UserID:  "u1",
		OrderID: "o1",
	})

	assert.True(t, seen.Discount.Equal(decimal.NewFromInt(20)))
	assert.True(t, seen.Total.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, "u1", seen.UserID)
	assert.Equal(t, "o1", seen.OrderID)
}
