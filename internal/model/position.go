package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidLot = errors.New("error lot has negative quantity or unit price")

// Lot is a single purchase transaction. Immutable once attached to a Position:
// lots are only ever appended and only removed by deleting the owning Position.
type Lot struct {
	ID        int64
	Date      string // YYYY-MM-DD
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

func (l Lot) Cost() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Position is one tracked holding: an investment, an inventory item or an
// expense. Holdings with purchase history carry it in Lots (insertion order =
// purchase chronology); holdings without history use the scalar
// PurchasePrice/CurrentValue/ProfitLoss fields instead. When Lots is non-empty
// the scalar fields are ignored by valuation reads.
type Position struct {
	ID             int64
	Name           string
	Category       string
	PurchasePrice  decimal.Decimal
	DateOfPurchase string
	CurrentValue   decimal.Decimal
	ProfitLoss     decimal.Decimal
	Lots           []Lot
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AddLot appends lot to the position's purchase history. Quantity and unit
// price must be non-negative; on ErrInvalidLot the position is left untouched.
func (p *Position) AddLot(lot Lot) error {
	if lot.Quantity.IsNegative() || lot.UnitPrice.IsNegative() {
		return ErrInvalidLot
	}
	p.Lots = append(p.Lots, lot)
	return nil
}

// NewExpense builds an expense position. An expense is a pure loss: it never
// carries lots, its current value is always zero and its profit/loss is the
// negated amount.
func NewExpense(name string, amount decimal.Decimal, date string) Position {
	return Position{
		Name:           name,
		Category:       "Expense",
		PurchasePrice:  amount,
		DateOfPurchase: date,
		CurrentValue:   decimal.Zero,
		ProfitLoss:     amount.Neg(),
	}
}
