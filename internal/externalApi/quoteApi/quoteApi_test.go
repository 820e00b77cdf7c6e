package quoteApi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkov/finance_tracker/config"
	"github.com/dmarkov/finance_tracker/internal/externalApi"
)

func newTestApi(t *testing.T, handler http.HandlerFunc) *QuoteApi {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.API.Timeout = 5 * time.Second
	cfg.API.QuoteApi.Url = srv.URL

	return New(cfg)
}

func TestGetQuotes(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/quotes", r.URL.Path)
		assert.Equal(t, "AAPL,MSFT", r.URL.Query().Get("symbols"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quotes":[
			{"symbol":"AAPL","shortname":"Apple Inc.","currency":"USD","price":150.5,"status":"A"},
			{"symbol":"MSFT","shortname":"Microsoft","currency":"USD","price":null,"status":"S"}
		]}`))
	})

	quotes, err := api.GetQuotes(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	aapl := quotes["AAPL"]
	assert.Equal(t, "Apple Inc.", aapl.Shortname)
	assert.True(t, aapl.Active)
	assert.True(t, aapl.Price.Equal(decimal.RequireFromString("150.5")))

	msft := quotes["MSFT"]
	assert.False(t, msft.Active)
	assert.True(t, msft.Price.IsZero())
}

func TestGetQuote(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quotes":[{"symbol":"AAPL","shortname":"Apple Inc.","currency":"USD","price":150.5,"status":"A"}]}`))
	})

	quote, err := api.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", quote.Symbol)
}

func TestGetQuote_NotFound(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quotes":[]}`))
	})

	_, err := api.GetQuote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, externalApi.ErrNotFound)
}

func TestGetQuotes_ErrorStatus(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := api.GetQuotes(context.Background(), []string{"AAPL"})
	assert.Error(t, err)
}

func TestGetQuotes_MalformedQuote(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quotes":[{"shortname":"no symbol"}]}`))
	})

	_, err := api.GetQuotes(context.Background(), []string{"AAPL"})
	assert.Error(t, err)
}
