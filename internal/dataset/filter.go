package dataset

import (
	"time"

	"github.com/Akaleli1/retail-analytics-dashboard/internal/models"
)

// CountryAll is the sentinel meaning "no country restriction".
const CountryAll = "all"

// Filter is one user interaction's selection. A zero Start or End leaves
// that side of the range unbounded.
type Filter struct {
	Country string
	Start   time.Time
	End     time.Time
}

// Unrestricted reports whether the filter keeps every row.
func (f Filter) Unrestricted() bool {
	return (f.Country == "" || f.Country == CountryAll) && f.Start.IsZero() && f.End.IsZero()
}

// Apply returns the rows matching the filter. Date inclusion compares
// calendar dates only, inclusive on both bounds. Degenerate selections
// (start after end, a country not present in the data) yield an empty
// result, never an error: emptiness is the caller's decision to handle.
func Apply(rows []models.Transaction, f Filter) []models.Transaction {
	if f.Unrestricted() {
		return rows
	}
	if !f.Start.IsZero() && !f.End.IsZero() && dayOf(f.Start).After(dayOf(f.End)) {
		return nil
	}

	restrictCountry := f.Country != "" && f.Country != CountryAll
	out := make([]models.Transaction, 0, len(rows))
	for _, tx := range rows {
		if restrictCountry && tx.Country != f.Country {
			continue
		}
		day := dayOf(tx.InvoiceDate)
		if !f.Start.IsZero() && day.Before(dayOf(f.Start)) {
			continue
		}
		if !f.End.IsZero() && day.After(dayOf(f.End)) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Filter computes a fresh filtered view over the cleaned dataset.
func (d *Dataset) Filter(f Filter) []models.Transaction {
	return Apply(d.rows, f)
}

// dayOf floors a timestamp to its calendar date. The time-of-day component
// of the invoice timestamp is ignored for range inclusion.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
