package service

import (
	"sort"

	"cashledger/internal/apierror"

	"github.com/shopspring/decimal"
)

// DenominationCounter turns a (denomination → count) breakdown into a total.
// The same counter is used for opening floats and closing declarations so the
// two numbers can never be computed differently. The accepted denomination set
// comes from configuration, not code.
type DenominationCounter struct {
	values map[string]decimal.Decimal // canonical string -> value
}

func NewDenominationCounter(values []decimal.Decimal) *DenominationCounter {
	m := make(map[string]decimal.Decimal, len(values))
	for _, v := range values {
		m[v.String()] = v
	}
	return &DenominationCounter{values: m}
}

// Total computes Σ(value × count). Pure function: rejects negative counts and
// denominations outside the configured set, touches nothing else.
func (c *DenominationCounter) Total(breakdown map[string]int) (decimal.Decimal, error) {
	total := decimal.Zero
	for denom, count := range breakdown {
		value, ok := c.values[denom]
		if !ok {
			// Accept "500.00" for "500" and the like.
			parsed, err := decimal.NewFromString(denom)
			if err != nil {
				return decimal.Zero, apierror.Validationf("unknown denomination %q", denom)
			}
			value, ok = c.values[parsed.String()]
			if !ok {
				return decimal.Zero, apierror.Validationf("unknown denomination %q", denom)
			}
		}
		if count < 0 {
			return decimal.Zero, apierror.Validationf("negative count %d for denomination %q", count, denom)
		}
		total = total.Add(value.Mul(decimal.NewFromInt(int64(count))))
	}
	return total, nil
}

// Values returns the configured denomination set, largest first.
func (c *DenominationCounter) Values() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(c.values))
	for _, v := range c.values {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GreaterThan(out[j]) })
	return out
}
