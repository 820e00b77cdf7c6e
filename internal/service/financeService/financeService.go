package financeService

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmarkov/finance_tracker/config"
	"github.com/dmarkov/finance_tracker/data/repository"
	"github.com/dmarkov/finance_tracker/internal/category"
	"github.com/dmarkov/finance_tracker/internal/externalApi"
	"github.com/dmarkov/finance_tracker/internal/model"
	"github.com/dmarkov/finance_tracker/internal/model/quoteModel"
	"github.com/dmarkov/finance_tracker/internal/service"
	"github.com/dmarkov/finance_tracker/internal/valuation"
	"github.com/dmarkov/finance_tracker/utils"
)

type Repository interface {
	InsertPosition(ctx context.Context, position model.Position) (positionID int64, err error)
	GetPositionByID(ctx context.Context, positionID int64) (model.Position, error)
	UpdatePosition(ctx context.Context, position model.Position) error
	DeletePosition(ctx context.Context, positionID int64) error
	InsertLot(ctx context.Context, positionID int64, positionCategory string, lot model.Lot) (lotID int64, err error)
	GetAllPositions(ctx context.Context) ([]model.Position, error)
	GetPositionsByPartition(ctx context.Context, partition category.Partition) ([]model.Position, error)
	ClearAllPositions(ctx context.Context) (itemsDeleted int64, lotsDeleted int64, err error)
}

type Cache interface {
	SetQuotes(ctx context.Context, quotes []quoteModel.Quote) error
	GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error)
}

type QuoteApi interface {
	GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, overview model.PortfolioOverview) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type FinanceService struct {
	cfg             *config.Config
	repo            Repository
	cache           Cache
	quoteApi        QuoteApi
	reportGenerator ReportGenerator
	cloudStorage    CloudStorage
}

func New(
	cfg *config.Config,
	repo Repository,
	cache Cache,
	quoteApi QuoteApi,
	reportGenerator ReportGenerator,
	cloudStorage CloudStorage,
) *FinanceService {
	return &FinanceService{
		cfg:             cfg,
		repo:            repo,
		cache:           cache,
		quoteApi:        quoteApi,
		reportGenerator: reportGenerator,
		cloudStorage:    cloudStorage,
	}
}

// CreatePosition persists a new holding, routing it to the partition table
// chosen by its category. ErrUnknownCategory surfaces here as a validation
// error before anything is written.
func (s *FinanceService) CreatePosition(ctx context.Context, position model.Position) (positionID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.CreatePosition"

	slog.Debug("CreatePosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", position.Name))
	defer func() {
		slog.Debug("CreatePosition finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", position.Name))
	}()

	if _, err := category.PartitionFor(position.Category); err != nil {
		slog.Warn("unknown category on CreatePosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("category", position.Category))
		return 0, err
	}

	positionID, err = s.repo.InsertPosition(ctx, position)
	if err != nil {
		slog.Error("got error from repo.InsertPosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	for _, lot := range position.Lots {
		if _, err := s.repo.InsertLot(ctx, positionID, position.Category, lot); err != nil {
			slog.Error("got error from repo.InsertLot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return 0, err
		}
	}

	return positionID, nil
}

// CreateExpense records an expense: a lot-free position whose profit/loss is
// the negated amount and whose current value is always zero.
func (s *FinanceService) CreateExpense(ctx context.Context, name string, amount decimal.Decimal, date string) (positionID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.CreateExpense"

	slog.Debug("CreateExpense start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name))
	defer func() {
		slog.Debug("CreateExpense finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name))
	}()

	return s.CreatePosition(ctx, model.NewExpense(name, amount, date))
}

// UpdatePosition edits a holding's scalar fields in place; this is how an
// inventory item gets re-appraised (a new CurrentValue) after purchase. The
// category is not editable: the stored partition stays where it is.
func (s *FinanceService) UpdatePosition(ctx context.Context, position model.Position) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.UpdatePosition"

	slog.Debug("UpdatePosition start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", position.ID))
	defer func() {
		slog.Debug("UpdatePosition finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", position.ID))
	}()

	if _, err := category.PartitionFor(position.Category); err != nil {
		slog.Warn("unknown category on UpdatePosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("category", position.Category))
		return err
	}

	err := s.repo.UpdatePosition(ctx, position)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.UpdatePosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// AddLotToPosition appends one purchase to an existing position. The lot is
// validated in memory first; the stored scalar fields are left untouched.
func (s *FinanceService) AddLotToPosition(ctx context.Context, positionID int64, lot model.Lot) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.AddLotToPosition"

	slog.Debug("AddLotToPosition start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", positionID))
	defer func() {
		slog.Debug("AddLotToPosition finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", positionID))
	}()

	position, err := s.repo.GetPositionByID(ctx, positionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.GetPositionByID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if err := position.AddLot(lot); err != nil {
		slog.Warn("invalid lot rejected", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if _, err := s.repo.InsertLot(ctx, positionID, position.Category, lot); err != nil {
		slog.Error("got error from repo.InsertLot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// DeletePosition removes a holding and its purchase history.
func (s *FinanceService) DeletePosition(ctx context.Context, positionID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.DeletePosition"

	slog.Debug("DeletePosition start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", positionID))
	defer func() {
		slog.Debug("DeletePosition finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", positionID))
	}()

	err := s.repo.DeletePosition(ctx, positionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.DeletePosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// GetPositionOverview values a single position against the freshest available
// prices.
func (s *FinanceService) GetPositionOverview(ctx context.Context, positionID int64) (model.PositionOverview, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.GetPositionOverview"

	slog.Debug("GetPositionOverview start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", positionID))
	defer func() {
		slog.Debug("GetPositionOverview finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", positionID))
	}()

	position, err := s.repo.GetPositionByID(ctx, positionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.PositionOverview{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetPositionByID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PositionOverview{}, err
	}

	lookup := s.buildPriceLookup(ctx, []model.Position{position})

	return overviewFor(position, lookup)
}

// GetPortfolioOverview produces the display-ready valuation of the whole
// portfolio: one row per position plus partition and overall totals.
func (s *FinanceService) GetPortfolioOverview(ctx context.Context) (model.PortfolioOverview, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.GetPortfolioOverview"

	slog.Debug("GetPortfolioOverview start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetPortfolioOverview finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	positions, err := s.repo.GetAllPositions(ctx)
	if err != nil {
		slog.Error("got error from repo.GetAllPositions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioOverview{}, err
	}

	lookup := s.buildPriceLookup(ctx, positions)

	overview := model.PortfolioOverview{}

	for _, position := range positions {
		row, err := overviewFor(position, lookup)
		if err != nil {
			slog.Error("failed valuing position", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", position.Name), slog.String("err", err.Error()))
			return model.PortfolioOverview{}, err
		}

		partition, err := category.PartitionFor(position.Category)
		if err != nil {
			return model.PortfolioOverview{}, err
		}

		switch partition {
		case category.Investment:
			overview.Investments = append(overview.Investments, row)
			overview.InvestmentTotals = addToTotals(overview.InvestmentTotals, row)
		case category.Inventory:
			overview.Inventory = append(overview.Inventory, row)
			overview.InventoryTotals = addToTotals(overview.InventoryTotals, row)
		case category.Expense:
			overview.Expenses = append(overview.Expenses, row)
			overview.ExpenseTotals = addToTotals(overview.ExpenseTotals, row)
		}

		overview.OverallTotals = addToTotals(overview.OverallTotals, row)
	}

	return overview, nil
}

// GetQuoteInfo returns the current quote for one symbol, cache-first. A quote
// that is inactive or has no price is reported as ErrQuoteInactive so the
// caller can warn before recording a purchase against it.
func (s *FinanceService) GetQuoteInfo(ctx context.Context, symbol string) (quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.GetQuoteInfo"

	slog.Debug("GetQuoteInfo start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("GetQuoteInfo finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	quote, err := s.cache.GetQuote(ctx, symbol)
	if err != nil {
		slog.Warn("can't get quote from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

		quote, err = s.quoteApi.GetQuote(ctx, symbol)
		if err != nil {
			if errors.Is(err, externalApi.ErrNotFound) {
				slog.Warn("symbol not found in quoteApi", slog.String("rqID", rqID), slog.String("op", op))
				return quoteModel.Quote{}, service.ErrNotFound
			}
			slog.Error("can't get quote from quoteApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return quoteModel.Quote{}, err
		}
	}

	if !quote.Active || quote.Price.IsZero() {
		return quoteModel.Quote{}, service.ErrQuoteInactive
	}

	return quote, nil
}

// RefreshQuotes pulls current prices for every investment position into the
// cache. Runs on a schedule so portfolio reads are cache-hits.
func (s *FinanceService) RefreshQuotes(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.RefreshQuotes"

	slog.Debug("RefreshQuotes start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RefreshQuotes finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	positions, err := s.repo.GetPositionsByPartition(ctx, category.Investment)
	if err != nil {
		slog.Error("got error from repo.GetPositionsByPartition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	symbols := investmentSymbols(positions)
	if len(symbols) == 0 {
		return nil
	}

	quotesMap, err := s.quoteApi.GetQuotes(ctx, symbols)
	if err != nil {
		slog.Error("got error from quoteApi.GetQuotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	quotes := make([]quoteModel.Quote, 0, len(quotesMap))
	for _, quote := range quotesMap {
		quotes = append(quotes, quote)
	}

	if err := s.cache.SetQuotes(ctx, quotes); err != nil {
		slog.Error("got error from cache.SetQuotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// GenerateReport renders the current portfolio overview to xlsx bytes.
func (s *FinanceService) GenerateReport(ctx context.Context) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.GenerateReport"

	slog.Debug("GenerateReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GenerateReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	overview, err := s.GetPortfolioOverview(ctx)
	if err != nil {
		return nil, "", err
	}

	return s.reportGenerator.Generate(ctx, overview)
}

// BackupDatabase uploads the sqlite file to cloud storage under a timestamped
// name and returns the share link.
func (s *FinanceService) BackupDatabase(ctx context.Context) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.BackupDatabase"

	slog.Debug("BackupDatabase start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("BackupDatabase finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	f, err := os.Open(s.cfg.Sqlite.Path)
	if err != nil {
		slog.Error("can't open sqlite file for backup", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}
	defer f.Close()

	filename := fmt.Sprintf("finance_backup_%s.db", time.Now().UTC().Format("20060102_150405"))

	downloadLink, err = s.cloudStorage.UploadFile(ctx, f, filename)
	if err != nil {
		slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	slog.Info("database backup uploaded", slog.String("rqID", rqID), slog.String("op", op), slog.String("link", downloadLink))

	return downloadLink, nil
}

// ClearAllData wipes every holding, expense and purchase row. Meant for the
// maintenance path only; take a backup first.
func (s *FinanceService) ClearAllData(ctx context.Context) (itemsDeleted int64, lotsDeleted int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.ClearAllData"

	slog.Debug("ClearAllData start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ClearAllData finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	itemsDeleted, lotsDeleted, err = s.repo.ClearAllPositions(ctx)
	if err != nil {
		slog.Error("got error from repo.ClearAllPositions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, 0, err
	}

	slog.Info("all data cleared", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("itemsDeleted", itemsDeleted), slog.Int64("lotsDeleted", lotsDeleted))

	return itemsDeleted, lotsDeleted, nil
}

// CleanupCloudBackups deletes backups past their TTL.
func (s *FinanceService) CleanupCloudBackups(ctx context.Context) error {
	return s.cloudStorage.DeleteOldFiles(ctx)
}

func (s *FinanceService) buildPriceLookup(ctx context.Context, positions []model.Position) valuation.PriceLookup {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.buildPriceLookup"

	symbols := investmentSymbols(positions)
	if len(symbols) == 0 {
		return valuation.PriceLookup{}
	}

	quotes, err := s.cache.GetQuotes(ctx, symbols)
	if err != nil {
		slog.Warn("can't get quotes from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

		quotes, err = s.quoteApi.GetQuotes(ctx, symbols)
		if err != nil {
			// no live prices at all: valuation degrades to cost basis
			slog.Warn("can't get quotes from quoteApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return valuation.PriceLookup{}
		}
	}

	lookup := make(valuation.PriceLookup, len(quotes))
	for symbol, quote := range quotes {
		if !quote.Active || quote.Price.IsZero() {
			continue
		}
		lookup[symbol] = quote.Price
	}

	return lookup
}

func overviewFor(position model.Position, lookup valuation.PriceLookup) (model.PositionOverview, error) {
	current, err := valuation.CurrentValue(position, lookup)
	if err != nil {
		return model.PositionOverview{}, err
	}

	profitLoss, err := valuation.OverallProfitLoss(position, lookup)
	if err != nil {
		return model.PositionOverview{}, err
	}

	return model.PositionOverview{
		PositionID: position.ID,
		Name:       position.Name,
		Category:   position.Category,
		Invested:   valuation.TotalInvested(position),
		Current:    current,
		ProfitLoss: profitLoss,
		LotsCount:  len(position.Lots),
	}, nil
}

func addToTotals(totals model.PartitionTotals, row model.PositionOverview) model.PartitionTotals {
	totals.Invested = totals.Invested.Add(row.Invested)
	totals.Current = totals.Current.Add(row.Current)
	totals.ProfitLoss = totals.ProfitLoss.Add(row.ProfitLoss)
	return totals
}

func investmentSymbols(positions []model.Position) []string {
	seen := make(map[string]struct{}, len(positions))
	symbols := make([]string, 0, len(positions))

	for _, position := range positions {
		partition, err := category.PartitionFor(position.Category)
		if err != nil || partition != category.Investment {
			continue
		}
		if _, ok := seen[position.Name]; ok {
			continue
		}
		seen[position.Name] = struct{}{}
		symbols = append(symbols, position.Name)
	}

	return symbols
}
