// Package analytics computes the dashboard aggregates as pure functions over
// a (possibly filtered) slice of cleaned transactions. Every function is
// total on empty input: zero values and empty slices come back, never a
// division error or panic.
package analytics

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Akaleli1/retail-analytics-dashboard/internal/models"
)

// DefaultTopProducts is the product count the dashboard shows when the
// caller does not ask for another limit.
const DefaultTopProducts = 5

// Summarize computes the scalar KPIs. Order count is the number of distinct
// invoice identifiers; the average order value is undefined (HasAvg false)
// when there are no orders.
func Summarize(rows []models.Transaction) models.KPISummary {
	total := decimal.Zero
	invoices := make(map[string]struct{})
	for _, tx := range rows {
		total = total.Add(tx.Revenue)
		invoices[tx.Invoice] = struct{}{}
	}

	summary := models.KPISummary{
		TotalRevenue: total,
		OrderCount:   len(invoices),
	}
	if summary.OrderCount > 0 {
		summary.AvgOrderValue = total.Div(decimal.NewFromInt(int64(summary.OrderCount)))
		summary.HasAvg = true
	}
	return summary
}

// CountryBreakdown sums revenue per country, revenue-descending with country
// name as the deterministic tiebreak.
func CountryBreakdown(rows []models.Transaction) []models.CountryRevenue {
	groups := make(map[string]*models.CountryRevenue)
	for _, tx := range rows {
		cr := groups[tx.Country]
		if cr == nil {
			cr = &models.CountryRevenue{Country: tx.Country, Revenue: decimal.Zero}
			groups[tx.Country] = cr
		}
		cr.Revenue = cr.Revenue.Add(tx.Revenue)
		cr.Transactions++
	}

	out := make([]models.CountryRevenue, 0, len(groups))
	for _, cr := range groups {
		out = append(out, *cr)
	}
	slices.SortFunc(out, func(a, b models.CountryRevenue) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return strings.Compare(a.Country, b.Country)
	})
	return out
}

// TopProducts sums revenue per product description and returns the n highest,
// descending. Fewer than n distinct products returns all of them, not padded.
func TopProducts(rows []models.Transaction, n int) []models.ProductRevenue {
	if n <= 0 {
		n = DefaultTopProducts
	}

	groups := make(map[string]*models.ProductRevenue)
	for _, tx := range rows {
		pr := groups[tx.Description]
		if pr == nil {
			pr = &models.ProductRevenue{Description: tx.Description, Revenue: decimal.Zero}
			groups[tx.Description] = pr
		}
		pr.Revenue = pr.Revenue.Add(tx.Revenue)
		pr.UnitsSold += tx.Quantity
	}

	out := make([]models.ProductRevenue, 0, len(groups))
	for _, pr := range groups {
		out = append(out, *pr)
	}
	slices.SortFunc(out, func(a, b models.ProductRevenue) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return strings.Compare(a.Description, b.Description)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// DailySeries sums revenue per calendar day, ascending. The series is sparse:
// days with no transactions have no entry, and a presentation layer that
// wants a continuous line must handle the gaps itself.
func DailySeries(rows []models.Transaction) []models.DailyRevenue {
	groups := make(map[time.Time]decimal.Decimal)
	for _, tx := range rows {
		day := time.Date(tx.InvoiceDate.Year(), tx.InvoiceDate.Month(), tx.InvoiceDate.Day(), 0, 0, 0, 0, time.UTC)
		groups[day] = groups[day].Add(tx.Revenue)
	}

	out := make([]models.DailyRevenue, 0, len(groups))
	for day, revenue := range groups {
		out = append(out, models.DailyRevenue{Date: day, Revenue: revenue})
	}
	slices.SortFunc(out, func(a, b models.DailyRevenue) int {
		return a.Date.Compare(b.Date)
	})
	return out
}
