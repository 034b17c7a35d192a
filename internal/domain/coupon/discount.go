package coupon

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Options is the value threaded through discount calculation and the
// post-resolver chain. Amount is the caller's input; Discount and Total are
// filled by the calculator. Meta carries whatever upstream callers or
// resolvers attach.
type Options struct {
	Amount   decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
	UserID   string
	OrderID  string
	Meta     map[string]any
}

// Resolver post-processes calculation results. Resolvers run in registration
// order; the output of one feeds the next. This is the calculator's sole
// extension point for side effects such as attaching metadata or emitting
// events.
type Resolver interface {
	Resolve(c *Coupon, opts Options) Options
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(c *Coupon, opts Options) Options

// Resolve calls f.
func (f ResolverFunc) Resolve(c *Coupon, opts Options) Options {
	return f(c, opts)
}

// Calculator turns a coupon and an input amount into a discount and total
// using exact decimal arithmetic. The resolver chain is fixed at construction
// so tests can substitute deterministic chains per instance.
type Calculator struct {
	resolvers []Resolver
}

// NewCalculator creates a Calculator with the given resolver chain.
func NewCalculator(resolvers ...Resolver) *Calculator {
	return &Calculator{resolvers: resolvers}
}

// Apply computes the discount figures for the coupon and runs the resolver
// chain over the result.
//
// Percentage coupons discount amount * value / 100; fixed coupons discount
// the stored value outright. The total is floored at zero: a discount larger
// than the input never produces a negative total. Monetary outputs are
// rounded to 2 decimal places.
func (calc *Calculator) Apply(c *Coupon, opts Options) Options {
	value := decimal.NewFromInt(int64(c.Amount))

	var discount decimal.Decimal
	if c.Kind == KindPercentage {
		discount = opts.Amount.Mul(value).Div(hundred)
	} else {
		discount = value
	}
	discount = discount.Round(2)

	total := opts.Amount.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	opts.Discount = discount
	opts.Total = total.Round(2)

	for _, r := range calc.resolvers {
		opts = r.Resolve(c, opts)
	}
	return opts
}
