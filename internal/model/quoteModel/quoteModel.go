package quoteModel

import "github.com/shopspring/decimal"

type RawQuotesResponse struct {
	Quotes []RawQuote `json:"quotes"`
}

type RawQuote struct {
	Symbol    string   `json:"symbol"`
	Shortname string   `json:"shortname"`
	Currency  string   `json:"currency"`
	Price     *float64 `json:"price"`
	Status    string   `json:"status"`
}

type Quote struct {
	Symbol    string
	Shortname string
	Currency  string
	Active    bool
	Price     decimal.Decimal
}
