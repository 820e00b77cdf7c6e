package xlsxGenerator

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dmarkov/finance_tracker/internal/model"
)

func TestGenerate(t *testing.T) {
	overview := model.PortfolioOverview{
		Investments: []model.PositionOverview{
			{Name: "AAPL", Category: "Stocks", LotsCount: 2, Invested: decimal.NewFromInt(1600), Current: decimal.NewFromInt(2250), ProfitLoss: decimal.NewFromInt(650)},
		},
		Inventory: []model.PositionOverview{
			{Name: "MacBook", Category: "Electronics", Invested: decimal.NewFromInt(2000), Current: decimal.NewFromInt(1800), ProfitLoss: decimal.NewFromInt(-200)},
		},
		Expenses: []model.PositionOverview{
			{Name: "Dinner", Category: "Expense", Invested: decimal.NewFromInt(50), ProfitLoss: decimal.NewFromInt(-50)},
		},
		OverallTotals: model.PartitionTotals{
			Invested:   decimal.NewFromInt(3650),
			Current:    decimal.NewFromInt(4050),
			ProfitLoss: decimal.NewFromInt(400),
		},
	}

	fileBytes, ext, err := New().Generate(context.Background(), overview)
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", ext)
	require.NotEmpty(t, fileBytes)

	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Summary", "Investments", "Inventory", "Expenses"}, f.GetSheetList())

	name, err := f.GetCellValue("Investments", "A2")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", name)

	overall, err := f.GetCellValue("Summary", "B5")
	require.NoError(t, err)
	assert.Equal(t, "3650", overall)
}
