package quoteApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/dmarkov/finance_tracker/config"
	"github.com/dmarkov/finance_tracker/internal/externalApi"
	"github.com/dmarkov/finance_tracker/internal/model/quoteModel"
	"github.com/dmarkov/finance_tracker/utils"
)

type QuoteApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *QuoteApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.QuoteApi.Url)
	return &QuoteApi{client: client}
}

func (a *QuoteApi) GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start QuoteApi.GetQuote request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	quotes, err := a.getQuotes(ctx, []string{symbol})
	if err != nil {
		return quoteModel.Quote{}, err
	}

	quote, ok := quotes[symbol]
	if !ok {
		return quoteModel.Quote{}, externalApi.ErrNotFound
	}

	slog.Debug("QuoteApi.GetQuote request complete", slog.String("rqID", rqID), slog.String("symbol", symbol))

	return quote, nil
}

func (a *QuoteApi) GetQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start QuoteApi.GetQuotes request", slog.String("rqID", rqID), slog.Int("symbols", len(symbols)))

	quotes, err := a.getQuotes(ctx, symbols)
	if err != nil {
		return nil, err
	}

	slog.Debug("QuoteApi.GetQuotes request complete", slog.String("rqID", rqID), slog.Int("quotes", len(quotes)))

	return quotes, nil
}

func (a *QuoteApi) getQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("symbols", strings.Join(symbols, ",")).
		Get("/v1/quotes")

	if err != nil {
		slog.Error("error while dialing QuoteApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	if resp.IsError() {
		slog.Error("QuoteApi returned error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		return nil, fmt.Errorf("quote api status %d", resp.StatusCode())
	}

	rawQuotes := quoteModel.RawQuotesResponse{}
	err = json.Unmarshal(resp.Body(), &rawQuotes)
	if err != nil {
		slog.Error("can't unmarshall response into quoteModel.RawQuotesResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	return parseRawQuotes(rawQuotes)
}

func parseRawQuotes(raw quoteModel.RawQuotesResponse) (map[string]quoteModel.Quote, error) {
	res := make(map[string]quoteModel.Quote, len(raw.Quotes))

	for _, rawQuote := range raw.Quotes {
		if rawQuote.Symbol == "" {
			return nil, fmt.Errorf("quote without symbol: %+v", rawQuote)
		}

		quote := quoteModel.Quote{
			Symbol:    rawQuote.Symbol,
			Shortname: rawQuote.Shortname,
			Currency:  rawQuote.Currency,
			Active:    rawQuote.Status == "A",
		}

		if rawQuote.Price != nil {
			quote.Price = decimal.NewFromFloat(*rawQuote.Price)
		}

		res[quote.Symbol] = quote
	}

	return res, nil
}
