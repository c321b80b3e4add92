package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"

	"github.com/Akaleli1/retail-analytics-dashboard/internal/models"
)

const (
	// cancelMarker prefixes invoice identifiers of reversed orders.
	cancelMarker = "C"

	maxWorkers = 8
)

// excludedDescriptions are the non-product placeholder rows (fees, postage,
// manual adjustments, discounts). Matched case-sensitively against the raw
// description, before title-casing.
var excludedDescriptions = map[string]struct{}{
	"Manual":          {},
	"POSTAGE":         {},
	"DOTCOM POSTAGE":  {},
	"CRUK Commission": {},
	"Discount":        {},
}

// dateLayouts are the invoice timestamp formats the retail export uses.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

var requiredColumns = []string{"invoice", "stockcode", "description", "quantity", "invoicedate", "price", "customer id", "country"}

// Load reads the retail export at path, applies the cleaning rules in order
// and returns the immutable cleaned dataset. The file is ISO-8859-1 encoded
// with a header row.
func Load(ctx context.Context, path string, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	file, err := os.Open(path)
	if err != nil {
		return nil, &SourceUnavailableError{Path: path, Err: err}
	}
	defer file.Close()

	reader := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(file))
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		return nil, &SourceUnavailableError{Path: path, Err: fmt.Errorf("read header: %w", err)}
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, &SourceUnavailableError{Path: path, Err: err}
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &SourceUnavailableError{Path: path, Err: fmt.Errorf("read rows: %w", err)}
	}

	rows, stats, err := cleanRecords(ctx, records, cols)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}

	d := New(rows)
	d.stats = stats

	logger.Info("dataset loaded",
		"path", path,
		"rows", stats.TotalRows,
		"retained", stats.Retained,
		"dropped_missing_customer", stats.MissingCustomer,
		"dropped_cancelled", stats.Cancelled,
		"dropped_non_positive", stats.NonPositive,
		"dropped_excluded_description", stats.ExcludedDescription,
		"duration", time.Since(start),
	)
	return d, nil
}

type columnIndex struct {
	invoice, stockCode, description, quantity, invoiceDate, price, customerID, country int
}

func mapColumns(header []string) (columnIndex, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		// A UTF-8 BOM decoded as ISO-8859-1 lands on the first header
		// cell as these three characters.
		h = strings.TrimPrefix(strings.TrimSpace(h), "\u00ef\u00bb\u00bf")
		byName[strings.ToLower(h)] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := byName[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return columnIndex{}, fmt.Errorf("header missing columns: %s", strings.Join(missing, ", "))
	}

	return columnIndex{
		invoice:     byName["invoice"],
		stockCode:   byName["stockcode"],
		description: byName["description"],
		quantity:    byName["quantity"],
		invoiceDate: byName["invoicedate"],
		price:       byName["price"],
		customerID:  byName["customer id"],
		country:     byName["country"],
	}, nil
}

type dropRule int

const (
	dropNone dropRule = iota
	dropMissingCustomer
	dropCancelled
	dropNonPositive
	dropExcludedDescription
)

type rowResult struct {
	tx   models.Transaction
	drop dropRule
	err  error
}

// cleanRecords converts raw CSV records in bounded parallel chunks, keeping
// original row order. Each row is charged to the first rule that rejects it.
func cleanRecords(ctx context.Context, records [][]string, cols columnIndex) ([]models.Transaction, CleanStats, error) {
	results := make([]rowResult, len(records))

	workers := maxWorkers
	if len(records) < workers {
		workers = len(records)
	}
	if workers == 0 {
		return nil, CleanStats{}, nil
	}
	chunk := (len(records) + workers - 1) / workers

	var g errgroup.Group
	g.SetLimit(maxWorkers)
	for lo := 0; lo < len(records); lo += chunk {
		hi := min(lo+chunk, len(records))
		g.Go(func() error {
			// Casers are stateful and not safe for concurrent use.
			titler := cases.Title(language.BritishEnglish)
			for i := lo; i < hi; i++ {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				results[i] = cleanRow(records[i], i+2, cols, titler)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, CleanStats{}, err
	}

	stats := CleanStats{TotalRows: int64(len(records))}
	rows := make([]models.Transaction, 0, len(records))
	for _, res := range results {
		if res.err != nil {
			return nil, CleanStats{}, res.err
		}
		switch res.drop {
		case dropNone:
			stats.Retained++
			rows = append(rows, res.tx)
		case dropMissingCustomer:
			stats.MissingCustomer++
		case dropCancelled:
			stats.Cancelled++
		case dropNonPositive:
			stats.NonPositive++
		case dropExcludedDescription:
			stats.ExcludedDescription++
		}
	}
	return rows, stats, nil
}

// cleanRow applies the cleaning rules to one record. line is the 1-based
// file line, used only in error reports.
func cleanRow(record []string, line int, cols columnIndex, titler cases.Caser) rowResult {
	customerID := strings.TrimSpace(record[cols.customerID])
	if customerID == "" {
		return rowResult{drop: dropMissingCustomer}
	}

	invoice := strings.TrimSpace(record[cols.invoice])
	if strings.HasPrefix(invoice, cancelMarker) {
		return rowResult{drop: dropCancelled}
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(record[cols.quantity]))
	if err != nil {
		return rowResult{err: &MalformedNumberError{Line: line, Field: "quantity", Value: record[cols.quantity]}}
	}
	price, err := decimal.NewFromString(strings.TrimSpace(record[cols.price]))
	if err != nil {
		return rowResult{err: &MalformedNumberError{Line: line, Field: "price", Value: record[cols.price]}}
	}
	if quantity <= 0 || !price.IsPositive() {
		return rowResult{drop: dropNonPositive}
	}

	rawDescription := strings.TrimSpace(record[cols.description])
	if _, excluded := excludedDescriptions[rawDescription]; excluded {
		return rowResult{drop: dropExcludedDescription}
	}

	// Only retained rows may fail the load on a bad date.
	invoiceDate, err := parseInvoiceDate(record[cols.invoiceDate])
	if err != nil {
		return rowResult{err: &MalformedDateError{Line: line, Value: record[cols.invoiceDate]}}
	}

	return rowResult{tx: models.Transaction{
		Invoice:     invoice,
		StockCode:   strings.TrimSpace(record[cols.stockCode]),
		Description: titler.String(rawDescription),
		Quantity:    quantity,
		UnitPrice:   price,
		InvoiceDate: invoiceDate,
		CustomerID:  customerID,
		Country:     strings.TrimSpace(record[cols.country]),
		Revenue:     price.Mul(decimal.NewFromInt(int64(quantity))),
	}}
}

func parseInvoiceDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
