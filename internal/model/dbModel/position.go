package dbModel

import (
	"github.com/shopspring/decimal"
)

type Position struct {
	ID             int64           `db:"id"`
	Name           string          `db:"name"`
	Category       string          `db:"category"`
	PurchasePrice  decimal.Decimal `db:"purchase_price"`
	DateOfPurchase string          `db:"date_of_purchase"`
	CurrentValue   decimal.Decimal `db:"current_value"`
	ProfitLoss     decimal.Decimal `db:"profit_loss"`
	CreatedAt      string          `db:"created_at"`
	UpdatedAt      string          `db:"updated_at"`
}

type Lot struct {
	ID        int64           `db:"id"`
	ItemID    int64           `db:"item_id"`
	TableName string          `db:"table_name"`
	Date      string          `db:"date"`
	Quantity  decimal.Decimal `db:"amount"`
	Price     decimal.Decimal `db:"price"`
}
