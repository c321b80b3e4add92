package dataset

import (
	"slices"
	"strings"
	"time"

	"github.com/Akaleli1/retail-analytics-dashboard/internal/models"
)

// CleanStats records how many rows each cleaning rule removed, in rule
// order. The rules are conjunctive so the retained set is order-independent,
// but the per-rule counts are only reproducible because each row is charged
// to the first rule that rejects it.
type CleanStats struct {
	TotalRows           int64 `json:"total_rows"`
	Retained            int64 `json:"retained"`
	MissingCustomer     int64 `json:"dropped_missing_customer"`
	Cancelled           int64 `json:"dropped_cancelled"`
	NonPositive         int64 `json:"dropped_non_positive"`
	ExcludedDescription int64 `json:"dropped_excluded_description"`
}

// Dataset is the cleaned transaction set. It is immutable after construction
// and shared read-only across all interactions in the process; filtered views
// are freshly computed slices that never outlive the request.
type Dataset struct {
	rows      []models.Transaction
	countries []string
	minDate   time.Time
	maxDate   time.Time
	stats     CleanStats
	loadedAt  time.Time
}

// New builds a Dataset from already-cleaned rows. Used by the loader and by
// tests that bypass the CSV path.
func New(rows []models.Transaction) *Dataset {
	d := &Dataset{
		rows:     rows,
		loadedAt: time.Now(),
		stats: CleanStats{
			TotalRows: int64(len(rows)),
			Retained:  int64(len(rows)),
		},
	}
	d.index()
	return d
}

func (d *Dataset) index() {
	seen := make(map[string]struct{})
	for i, tx := range d.rows {
		if _, ok := seen[tx.Country]; !ok {
			seen[tx.Country] = struct{}{}
			d.countries = append(d.countries, tx.Country)
		}
		day := tx.InvoiceDate
		if i == 0 || day.Before(d.minDate) {
			d.minDate = day
		}
		if i == 0 || day.After(d.maxDate) {
			d.maxDate = day
		}
	}
	slices.SortFunc(d.countries, strings.Compare)
}

// Rows returns the cleaned records in original file order. Callers must not
// mutate the returned slice.
func (d *Dataset) Rows() []models.Transaction { return d.rows }

func (d *Dataset) Len() int { return len(d.rows) }

// Countries returns the sorted distinct countries, the value set for the
// country filter control.
func (d *Dataset) Countries() []string { return d.countries }

// DateBounds returns the min and max invoice timestamps, the bounds for the
// date-range control.
func (d *Dataset) DateBounds() (time.Time, time.Time) { return d.minDate, d.maxDate }

func (d *Dataset) Stats() CleanStats { return d.stats }

func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }
