package sqlite

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmarkov/finance_tracker/config"
	"github.com/dmarkov/finance_tracker/data/repository"
	"github.com/dmarkov/finance_tracker/internal/category"
	"github.com/dmarkov/finance_tracker/internal/model"
)

func newTestRepo(t *testing.T) *Sqlite {
	t.Helper()

	db, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// a second connection would get its own empty :memory: database
	db.SetMaxOpenConns(1)

	schema, err := os.ReadFile("../../../migrations/000001_init.up.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return NewSqlite(&config.Config{}, db)
}

func TestInsertPosition_RoutesByCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		category string
		table    string
	}{
		{"Stocks", "investments"},
		{"Electronics", "inventory"},
		{"Expense", "expenses"},
	}

	for _, tt := range tests {
		id, err := repo.InsertPosition(ctx, model.Position{
			Name:           "item-" + tt.category,
			Category:       tt.category,
			PurchasePrice:  decimal.NewFromInt(100),
			DateOfPurchase: "2024-01-01",
		})
		require.NoError(t, err)
		require.Greater(t, id, int64(0))

		var count int
		err = repo.db.Get(&count, `SELECT COUNT(*) FROM `+tt.table+` WHERE id = ?`, id)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "expected row in %s", tt.table)
	}
}

func TestInsertPosition_UnknownCategory(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.InsertPosition(context.Background(), model.Position{Name: "Hut", Category: "Timeshare"})
	assert.ErrorIs(t, err, category.ErrUnknownCategory)

	for _, table := range []string{"investments", "inventory", "expenses"} {
		var count int
		require.NoError(t, repo.db.Get(&count, `SELECT COUNT(*) FROM `+table))
		assert.Zero(t, count)
	}
}

func TestInsertPosition_DuplicateName(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.InsertPosition(ctx, model.Position{Name: "AAPL", Category: "Stocks"})
	require.NoError(t, err)

	_, err = repo.InsertPosition(ctx, model.Position{Name: "AAPL", Category: "Stocks"})
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)

	var count int
	require.NoError(t, repo.db.Get(&count, `SELECT COUNT(*) FROM investments WHERE name = 'AAPL'`))
	assert.Equal(t, 1, count)

	// uniqueness is per partition table; another partition may reuse the name
	_, err = repo.InsertPosition(ctx, model.Position{Name: "AAPL", Category: "Electronics"})
	assert.NoError(t, err)
}

func TestGetPositionByID_WithLots(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.InsertPosition(ctx, model.Position{
		Name:           "AAPL",
		Category:       "Stocks",
		DateOfPurchase: "2024-01-01",
	})
	require.NoError(t, err)

	_, err = repo.InsertLot(ctx, id, "Stocks", model.Lot{
		Date: "2024-01-01", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	_, err = repo.InsertLot(ctx, id, "Stocks", model.Lot{
		Date: "2024-01-02", Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(120),
	})
	require.NoError(t, err)

	position, err := repo.GetPositionByID(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", position.Name)
	require.Len(t, position.Lots, 2)
	// insertion order preserved
	assert.Equal(t, "2024-01-01", position.Lots[0].Date)
	assert.Equal(t, "2024-01-02", position.Lots[1].Date)
	assert.True(t, position.Lots[1].UnitPrice.Equal(decimal.NewFromInt(120)))
}

func TestGetPositionByID_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetPositionByID(context.Background(), 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdatePosition(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.InsertPosition(ctx, model.Position{
		Name:           "MacBook",
		Category:       "Electronics",
		PurchasePrice:  decimal.NewFromInt(2000),
		DateOfPurchase: "2023-09-10",
		CurrentValue:   decimal.NewFromInt(1800),
	})
	require.NoError(t, err)

	err = repo.UpdatePosition(ctx, model.Position{
		ID:             id,
		Name:           "MacBook",
		Category:       "Electronics",
		PurchasePrice:  decimal.NewFromInt(2000),
		DateOfPurchase: "2023-09-10",
		CurrentValue:   decimal.NewFromInt(1500),
		ProfitLoss:     decimal.NewFromInt(-500),
	})
	require.NoError(t, err)

	position, err := repo.GetPositionByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, position.CurrentValue.Equal(decimal.NewFromInt(1500)))
}

func TestUpdatePosition_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.UpdatePosition(context.Background(), model.Position{ID: 42, Category: "Electronics"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeletePosition_CascadesToLots(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.InsertPosition(ctx, model.Position{Name: "AAPL", Category: "Stocks", DateOfPurchase: "2024-01-01"})
	require.NoError(t, err)
	_, err = repo.InsertLot(ctx, id, "Stocks", model.Lot{Date: "2024-01-01", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)})
	require.NoError(t, err)

	require.NoError(t, repo.DeletePosition(ctx, id))

	_, err = repo.GetPositionByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	var count int
	require.NoError(t, repo.db.Get(&count, `SELECT COUNT(*) FROM purchases`))
	assert.Zero(t, count)
}

func TestDeletePosition_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.DeletePosition(context.Background(), 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetAllPositions_AcrossPartitions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.InsertPosition(ctx, model.Position{Name: "AAPL", Category: "Stocks", DateOfPurchase: "2024-01-01"})
	require.NoError(t, err)
	_, err = repo.InsertPosition(ctx, model.Position{Name: "MacBook", Category: "Electronics", DateOfPurchase: "2024-01-01"})
	require.NoError(t, err)
	_, err = repo.InsertPosition(ctx, model.Position{Name: "Dinner", Category: "Expense", DateOfPurchase: "2024-01-01"})
	require.NoError(t, err)

	positions, err := repo.GetAllPositions(ctx)
	require.NoError(t, err)
	assert.Len(t, positions, 3)

	investments, err := repo.GetPositionsByPartition(ctx, category.Investment)
	require.NoError(t, err)
	require.Len(t, investments, 1)
	assert.Equal(t, "AAPL", investments[0].Name)
}

func TestClearAllPositions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.InsertPosition(ctx, model.Position{Name: "AAPL", Category: "Stocks", DateOfPurchase: "2024-01-01"})
	require.NoError(t, err)
	_, err = repo.InsertLot(ctx, id, "Stocks", model.Lot{Date: "2024-01-01", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)})
	require.NoError(t, err)
	_, err = repo.InsertPosition(ctx, model.Position{Name: "Dinner", Category: "Expense", DateOfPurchase: "2024-01-01"})
	require.NoError(t, err)

	items, lots, err := repo.ClearAllPositions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), items)
	assert.Equal(t, int64(1), lots)

	positions, err := repo.GetAllPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions)
}
