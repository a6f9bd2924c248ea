// Package revenue attributes batch revenue and sale totals to stakeholders.
//
// All arithmetic is carried out in decimal and rounded half-up to cents, so
// results are stable across repeated calls on the same input.
package revenue

import (
	"github.com/shopspring/decimal"
)

// Default attribution rates.
const (
	DefaultTeacherBatchRate    = 0.20
	DefaultPlatformBatchRate   = 0.30
	DefaultTeacherEarningsRate = 0.30
)

// Rates configures how revenue is attributed. Batch rates are independent
// fractions of a batch's revenue and are not required to sum to one.
type Rates struct {
	TeacherBatch    float64
	PlatformBatch   float64
	TeacherEarnings float64
}

// DefaultRates returns the stock attribution rates.
func DefaultRates() Rates {
	return Rates{
		TeacherBatch:    DefaultTeacherBatchRate,
		PlatformBatch:   DefaultPlatformBatchRate,
		TeacherEarnings: DefaultTeacherEarningsRate,
	}
}

// WithDefaults replaces negative rates with the defaults. Zero is a valid
// rate and is kept.
func (r Rates) WithDefaults() Rates {
	if r.TeacherBatch < 0 {
		r.TeacherBatch = DefaultTeacherBatchRate
	}
	if r.PlatformBatch < 0 {
		r.PlatformBatch = DefaultPlatformBatchRate
	}
	if r.TeacherEarnings < 0 {
		r.TeacherEarnings = DefaultTeacherEarningsRate
	}
	return r
}

// Shares is the per-batch split of revenue.
type Shares struct {
	TeacherShare  float64 `json:"teacherShare"`
	PlatformShare float64 `json:"platformShare"`
}

// Allocator computes revenue shares and earnings.
type Allocator struct {
	teacherBatch    decimal.Decimal
	platformBatch   decimal.Decimal
	teacherEarnings decimal.Decimal
}

// NewAllocator builds an Allocator from rates. Negative rates fall back to
// the defaults.
func NewAllocator(rates Rates) *Allocator {
	rates = rates.WithDefaults()
	return &Allocator{
		teacherBatch:    decimal.NewFromFloat(rates.TeacherBatch),
		platformBatch:   decimal.NewFromFloat(rates.PlatformBatch),
		teacherEarnings: decimal.NewFromFloat(rates.TeacherEarnings),
	}
}

// Allocate splits a batch's revenue into teacher and platform shares.
func (a *Allocator) Allocate(revenue float64) Shares {
	amount := decimal.NewFromFloat(revenue)
	return Shares{
		TeacherShare:  toCents(amount.Mul(a.teacherBatch)),
		PlatformShare: toCents(amount.Mul(a.platformBatch)),
	}
}

// Earnings returns the teacher's cut of the summed completed-sale amounts.
func (a *Allocator) Earnings(amounts []float64) float64 {
	sum := decimal.Zero
	for _, amount := range amounts {
		sum = sum.Add(decimal.NewFromFloat(amount))
	}
	return toCents(sum.Mul(a.teacherEarnings))
}

// Round2 rounds a money amount to two decimals, half-up.
func Round2(value float64) float64 {
	return toCents(decimal.NewFromFloat(value))
}

func toCents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
