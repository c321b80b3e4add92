package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one cleaned invoice line item. Revenue is derived
// (Quantity x UnitPrice) during ingestion and never recomputed.
type Transaction struct {
	Invoice     string
	StockCode   string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	InvoiceDate time.Time
	CustomerID  string
	Country     string
	Revenue     decimal.Decimal
}

// KPISummary holds the scalar metrics for a (possibly filtered) dataset.
// AvgOrderValue is only meaningful when HasAvg is true; with zero orders
// the average is undefined rather than a division error.
type KPISummary struct {
	TotalRevenue  decimal.Decimal
	OrderCount    int
	AvgOrderValue decimal.Decimal
	HasAvg        bool
}

type CountryRevenue struct {
	Country      string
	Revenue      decimal.Decimal
	Transactions int
}

type ProductRevenue struct {
	Description string
	Revenue     decimal.Decimal
	UnitsSold   int
}

type DailyRevenue struct {
	Date    time.Time
	Revenue decimal.Decimal
}
