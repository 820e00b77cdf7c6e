package valuation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkov/finance_tracker/internal/category"
	"github.com/dmarkov/finance_tracker/internal/model"
)

func stockPosition() model.Position {
	return model.Position{
		Name:     "AAPL",
		Category: "Stocks",
		Lots: []model.Lot{
			{Date: "2024-01-01", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(100)},
			{Date: "2024-01-02", Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(120)},
		},
	}
}

func TestTotalInvested_LotSum(t *testing.T) {
	p := stockPosition()

	// 10*100 + 5*120
	assert.True(t, TotalInvested(p).Equal(decimal.NewFromInt(1600)))
}

func TestTotalInvested_ScalarFallback(t *testing.T) {
	p := model.Position{
		Name:          "MacBook",
		Category:      "Electronics",
		PurchasePrice: decimal.NewFromInt(2000),
	}

	assert.True(t, TotalInvested(p).Equal(decimal.NewFromInt(2000)))
}

func TestCurrentValue_InvestmentWithLivePrice(t *testing.T) {
	p := stockPosition()
	prices := PriceLookup{"AAPL": decimal.NewFromInt(150)}

	current, err := CurrentValue(p, prices)
	require.NoError(t, err)

	// total units times resolved price, not per-lot historical prices
	assert.True(t, current.Equal(decimal.NewFromInt(2250)))

	profitLoss, err := OverallProfitLoss(p, prices)
	require.NoError(t, err)
	assert.True(t, profitLoss.Equal(decimal.NewFromInt(650)))
}

func TestCurrentValue_InvestmentMissingFromLookup(t *testing.T) {
	p := stockPosition()
	// a non-empty lookup without AAPL: falls back to the most recently added
	// lot's unit price
	prices := PriceLookup{"MSFT": decimal.NewFromInt(400)}

	current, err := CurrentValue(p, prices)
	require.NoError(t, err)
	assert.True(t, current.Equal(decimal.NewFromInt(1800))) // 15 * 120

	profitLoss, err := OverallProfitLoss(p, prices)
	require.NoError(t, err)
	assert.True(t, profitLoss.Equal(decimal.NewFromInt(200)))
}

func TestCurrentValue_InvestmentWithoutLookup(t *testing.T) {
	p := stockPosition()

	// nil or empty lookup: valuation collapses to historical cost
	for _, prices := range []PriceLookup{nil, {}} {
		current, err := CurrentValue(p, prices)
		require.NoError(t, err)
		assert.True(t, current.Equal(decimal.NewFromInt(1600)))
	}
}

func TestCurrentValue_EmptyLotsScalarFallback(t *testing.T) {
	p := model.Position{
		Name:          "MacBook",
		Category:      "Electronics",
		PurchasePrice: decimal.NewFromInt(2000),
		CurrentValue:  decimal.NewFromInt(1800),
		ProfitLoss:    decimal.NewFromInt(-200),
	}

	// scalar fields are authoritative regardless of lookup contents
	for _, prices := range []PriceLookup{nil, {}, {"MacBook": decimal.NewFromInt(9999)}} {
		current, err := CurrentValue(p, prices)
		require.NoError(t, err)
		assert.True(t, current.Equal(decimal.NewFromInt(1800)))

		profitLoss, err := OverallProfitLoss(p, prices)
		require.NoError(t, err)
		assert.True(t, profitLoss.Equal(decimal.NewFromInt(-200)))
	}

	assert.True(t, TotalInvested(p).Equal(decimal.NewFromInt(2000)))
}

func TestCurrentValue_InventoryLotsIgnoreLookup(t *testing.T) {
	p := model.Position{
		Name:     "MacBook2",
		Category: "Electronics",
		Lots: []model.Lot{
			{Date: "2024-01-01", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(2000)},
		},
	}
	prices := PriceLookup{"MacBook2": decimal.NewFromInt(9999)}

	current, err := CurrentValue(p, prices)
	require.NoError(t, err)

	// non-investment categories have no market feed: cost basis
	assert.True(t, current.Equal(decimal.NewFromInt(2000)))
}

func TestInvestmentAndInventoryFallbacksDiffer(t *testing.T) {
	lots := []model.Lot{
		{Date: "2024-01-01", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(100)},
		{Date: "2024-01-02", Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(120)},
	}
	prices := PriceLookup{"SomethingElse": decimal.NewFromInt(1)}

	investment := model.Position{Name: "X", Category: "Stocks", Lots: lots}
	inventory := model.Position{Name: "X", Category: "Furniture", Lots: lots}

	investmentValue, err := CurrentValue(investment, prices)
	require.NoError(t, err)
	inventoryValue, err := CurrentValue(inventory, prices)
	require.NoError(t, err)

	assert.True(t, investmentValue.Equal(decimal.NewFromInt(1800)))
	assert.True(t, inventoryValue.Equal(TotalInvested(inventory)))
	assert.False(t, investmentValue.Equal(inventoryValue))
}

func TestExpenseConvention(t *testing.T) {
	p := model.NewExpense("Dinner", decimal.NewFromInt(50), "2024-06-01")

	assert.True(t, TotalInvested(p).Equal(decimal.NewFromInt(50)))

	current, err := CurrentValue(p, nil)
	require.NoError(t, err)
	assert.True(t, current.IsZero())

	profitLoss, err := OverallProfitLoss(p, nil)
	require.NoError(t, err)
	assert.True(t, profitLoss.Equal(decimal.NewFromInt(-50)))
}

func TestUnknownCategoryPropagates(t *testing.T) {
	p := model.Position{
		Name:     "Timeshare",
		Category: "Timeshare",
		Lots: []model.Lot{
			{Date: "2024-01-01", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		},
	}

	_, err := CurrentValue(p, nil)
	assert.ErrorIs(t, err, category.ErrUnknownCategory)

	_, err = OverallProfitLoss(p, nil)
	assert.ErrorIs(t, err, category.ErrUnknownCategory)
}

func TestUnknownCategoryWithoutLotsUsesScalar(t *testing.T) {
	// the router is only consulted for lot-bearing positions; the scalar path
	// returns before classification
	p := model.Position{
		Name:         "Mystery",
		Category:     "Timeshare",
		CurrentValue: decimal.NewFromInt(123),
	}

	current, err := CurrentValue(p, nil)
	require.NoError(t, err)
	assert.True(t, current.Equal(decimal.NewFromInt(123)))
}

// profit/loss must always equal current minus invested, whatever the inputs
func TestProfitLossConsistency(t *testing.T) {
	positions := []model.Position{
		stockPosition(),
		{Name: "MacBook", Category: "Electronics", PurchasePrice: decimal.NewFromInt(2000), CurrentValue: decimal.NewFromInt(1800)},
		{Name: "Couch", Category: "Furniture", Lots: []model.Lot{{Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(300)}}},
		model.NewExpense("Rent", decimal.NewFromInt(1500), "2024-01-01"),
		{Name: "GOLD", Category: "Gold", Lots: []model.Lot{{Quantity: decimal.RequireFromString("1.5"), UnitPrice: decimal.NewFromInt(1900)}}},
	}
	lookups := []PriceLookup{
		nil,
		{},
		{"AAPL": decimal.NewFromInt(150)},
		{"GOLD": decimal.RequireFromString("2350.25"), "AAPL": decimal.NewFromInt(1)},
		{"Unrelated": decimal.NewFromInt(7)},
	}

	for _, p := range positions {
		for _, lookup := range lookups {
			current, err := CurrentValue(p, lookup)
			require.NoError(t, err)

			profitLoss, err := OverallProfitLoss(p, lookup)
			require.NoError(t, err)

			require.True(
				t,
				profitLoss.Equal(current.Sub(TotalInvested(p))),
				"inconsistent triple for %s with lookup %v", p.Name, lookup,
			)
		}
	}
}

func TestFractionalQuantities(t *testing.T) {
	p := model.Position{
		Name:     "BTC",
		Category: "Crypto",
		Lots: []model.Lot{
			{Date: "2024-01-01", Quantity: decimal.RequireFromString("0.25"), UnitPrice: decimal.NewFromInt(40000)},
			{Date: "2024-02-01", Quantity: decimal.RequireFromString("0.1"), UnitPrice: decimal.NewFromInt(50000)},
		},
	}

	assert.True(t, TotalInvested(p).Equal(decimal.NewFromInt(15000)))

	current, err := CurrentValue(p, PriceLookup{"BTC": decimal.NewFromInt(60000)})
	require.NoError(t, err)
	assert.True(t, current.Equal(decimal.NewFromInt(21000))) // 0.35 * 60000
}
