// Package valuation computes invested cost, current value and profit/loss for
// a single position. Everything here is a pure function of the position and
// the supplied price lookup: no I/O, no logging, safe to call repeatedly from
// a display refresh loop.
package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/dmarkov/finance_tracker/internal/category"
	"github.com/dmarkov/finance_tracker/internal/model"
)

// PriceLookup maps a position name to its current market unit price.
// It is assembled by the caller from whatever market-data source is available;
// a missing key means "no live price" and triggers the cost-basis fallback.
type PriceLookup map[string]decimal.Decimal

// fallbackUnitPrice is the last-resort unit price when an investment position
// reaches market valuation with no lookup entry and no lots to fall back on.
// Kept at 1 rather than 0 so a valuation never silently vanishes.
var fallbackUnitPrice = decimal.NewFromInt(1)

// TotalInvested returns the position's cost basis: the lot-sum when purchase
// history exists, the scalar purchase price otherwise. The rule is the same
// for every category.
func TotalInvested(p model.Position) decimal.Decimal {
	if len(p.Lots) == 0 {
		return p.PurchasePrice
	}

	total := decimal.Zero
	for _, lot := range p.Lots {
		total = total.Add(lot.Cost())
	}
	return total
}

// CurrentValue returns the position's current worth.
//
// A position without lots is valued at its stored scalar CurrentValue, the
// appraised-value path used for inventory and expenses. A lot-bearing
// investment position with a non-empty price lookup is valued at total units
// times one resolved unit price (lookup entry, else the most recently added
// lot's price). Everything else collapses to historical cost.
//
// ErrUnknownCategory propagates from the category router for lot-bearing
// positions with an unrecognized category; that is a data-integrity problem
// upstream, not a valuation edge case.
func CurrentValue(p model.Position, prices PriceLookup) (decimal.Decimal, error) {
	if len(p.Lots) == 0 {
		return p.CurrentValue, nil
	}

	partition, err := category.PartitionFor(p.Category)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if partition == category.Investment && len(prices) > 0 {
		unitPrice, ok := prices[p.Name]
		if !ok {
			if len(p.Lots) > 0 {
				unitPrice = p.Lots[len(p.Lots)-1].UnitPrice
			} else {
				unitPrice = fallbackUnitPrice
			}
		}

		units := decimal.Zero
		for _, lot := range p.Lots {
			units = units.Add(lot.Quantity)
		}
		return units.Mul(unitPrice), nil
	}

	// No live price, or not a priced investment type: cost basis.
	total := decimal.Zero
	for _, lot := range p.Lots {
		total = total.Add(lot.Cost())
	}
	return total, nil
}

// OverallProfitLoss is CurrentValue minus TotalInvested, so the three reported
// numbers are always internally consistent.
func OverallProfitLoss(p model.Position, prices PriceLookup) (decimal.Decimal, error) {
	current, err := CurrentValue(p, prices)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return current.Sub(TotalInvested(p)), nil
}
