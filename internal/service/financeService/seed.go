package financeService

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/dmarkov/finance_tracker/data/repository"
	"github.com/dmarkov/finance_tracker/internal/model"
	"github.com/dmarkov/finance_tracker/utils"
)

// SeedDemoData loads a small sample portfolio so a fresh install has
// something to show. Samples already present in the store are skipped, so
// calling it on every start is safe.
func (s *FinanceService) SeedDemoData(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.SeedDemoData"

	slog.Debug("SeedDemoData start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("SeedDemoData finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	samples := []model.Position{
		{
			Name:     "AAPL",
			Category: "Stocks",
			Lots: []model.Lot{
				{Date: "2024-01-15", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(185)},
				{Date: "2024-03-02", Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(170)},
			},
		},
		{
			Name:     "BTC",
			Category: "Crypto",
			Lots: []model.Lot{
				{Date: "2023-11-20", Quantity: decimal.NewFromFloat(0.25), UnitPrice: decimal.NewFromInt(36000)},
			},
		},
		{
			Name:           "MacBook Pro",
			Category:       "Electronics",
			PurchasePrice:  decimal.NewFromInt(2400),
			DateOfPurchase: "2023-09-10",
			CurrentValue:   decimal.NewFromInt(1900),
			ProfitLoss:     decimal.NewFromInt(-500),
		},
		{
			Name:           "Dining Table",
			Category:       "Furniture",
			PurchasePrice:  decimal.NewFromInt(800),
			DateOfPurchase: "2022-05-01",
			CurrentValue:   decimal.NewFromInt(500),
			ProfitLoss:     decimal.NewFromInt(-300),
		},
		model.NewExpense("Car Insurance", decimal.NewFromInt(1200), "2024-04-01"),
	}

	seeded := 0
	for _, sample := range samples {
		_, err := s.CreatePosition(ctx, sample)
		if err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				slog.Debug("sample already present, skipped", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", sample.Name))
				continue
			}
			slog.Error("failed seeding position", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", sample.Name), slog.String("err", err.Error()))
			return err
		}
		seeded++
	}

	slog.Info("demo data seeded", slog.String("rqID", rqID), slog.String("op", op), slog.Int("seeded", seeded), slog.Int("skipped", len(samples)-seeded))

	return nil
}
