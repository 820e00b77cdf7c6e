package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/dmarkov/finance_tracker/internal/model"
	"github.com/dmarkov/finance_tracker/utils"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate renders the portfolio overview into an xlsx workbook: a summary
// sheet with per-partition totals plus one sheet per partition.
func (g *XLSXGenerator) Generate(ctx context.Context, overview model.PortfolioOverview) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillSummarySheet(f, overview); err != nil {
		return nil, "", err
	}

	sheets := []struct {
		name string
		rows []model.PositionOverview
	}{
		{"Investments", overview.Investments},
		{"Inventory", overview.Inventory},
		{"Expenses", overview.Expenses},
	}

	for _, sheet := range sheets {
		if err := g.fillPartitionSheet(f, sheet.name, sheet.rows); err != nil {
			slog.Error("got error while filling sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("sheet", sheet.name), slog.String("err", err.Error()))
			return nil, "", err
		}
	}

	// drop the default sheet
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) fillSummarySheet(f *excelize.File, overview model.PortfolioOverview) error {
	const sheetName = "Summary"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	headers := []string{"Partition", "Invested", "Current Value", "Profit/Loss"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	rows := []struct {
		label  string
		totals model.PartitionTotals
	}{
		{"Investments", overview.InvestmentTotals},
		{"Inventory", overview.InventoryTotals},
		{"Expenses", overview.ExpenseTotals},
		{"Overall", overview.OverallTotals},
	}

	for i, row := range rows {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", i+2), row.label)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", i+2), row.totals.Invested.InexactFloat64())
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", i+2), row.totals.Current.InexactFloat64())
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", i+2), row.totals.ProfitLoss.InexactFloat64())
	}

	return nil
}

func (g *XLSXGenerator) fillPartitionSheet(f *excelize.File, sheetName string, rows []model.PositionOverview) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E2EFDA"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	headers := []string{"Name", "Category", "Lots", "Invested", "Current Value", "Profit/Loss"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, row := range rows {
		rowNum := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), row.Name)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), row.Category)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), row.LotsCount)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), row.Invested.InexactFloat64())
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), row.Current.InexactFloat64())
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), row.ProfitLoss.InexactFloat64())
	}

	return nil
}
