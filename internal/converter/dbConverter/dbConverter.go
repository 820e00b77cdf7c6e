package dbConverter

import (
	"time"

	"github.com/dmarkov/finance_tracker/internal/model"
	"github.com/dmarkov/finance_tracker/internal/model/dbModel"
)

func ConvertPosition(dbPosition dbModel.Position) model.Position {
	createdAt, _ := time.Parse(time.RFC3339, dbPosition.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, dbPosition.UpdatedAt)

	return model.Position{
		ID:             dbPosition.ID,
		Name:           dbPosition.Name,
		Category:       dbPosition.Category,
		PurchasePrice:  dbPosition.PurchasePrice,
		DateOfPurchase: dbPosition.DateOfPurchase,
		CurrentValue:   dbPosition.CurrentValue,
		ProfitLoss:     dbPosition.ProfitLoss,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}
}

func ConvertLot(dbLot dbModel.Lot) model.Lot {
	return model.Lot{
		ID:        dbLot.ID,
		Date:      dbLot.Date,
		Quantity:  dbLot.Quantity,
		UnitPrice: dbLot.Price,
	}
}
