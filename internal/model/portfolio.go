package model

import (
	"github.com/shopspring/decimal"
)

// PositionOverview is a display-ready valuation row for one position.
type PositionOverview struct {
	PositionID int64
	Name       string
	Category   string
	Invested   decimal.Decimal
	Current    decimal.Decimal
	ProfitLoss decimal.Decimal
	LotsCount  int
}

type PartitionTotals struct {
	Invested   decimal.Decimal
	Current    decimal.Decimal
	ProfitLoss decimal.Decimal
}

// PortfolioOverview is what the presentation layer renders: one row per
// position plus per-partition and overall totals.
type PortfolioOverview struct {
	Investments []PositionOverview
	Inventory   []PositionOverview
	Expenses    []PositionOverview

	InvestmentTotals PartitionTotals
	InventoryTotals  PartitionTotals
	ExpenseTotals    PartitionTotals
	OverallTotals    PartitionTotals
}
