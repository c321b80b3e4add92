package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const csvHeader = "Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Customer ID,Country\n"

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "retail.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_CleaningRules(t *testing.T) {
	csv := csvHeader +
		"536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,2.55,17850,United Kingdom\n" +
		"536366,71053,WHITE METAL LANTERN,6,2010-12-01 08:28:00,3.39,,United Kingdom\n" + // missing customer
		"C536367,84406B,CREAM CUPID HEARTS,8,2010-12-01 08:34:00,2.75,17850,United Kingdom\n" + // cancelled
		"536368,84029G,KNITTED UNION FLAG,-2,2010-12-01 08:34:00,3.39,17850,United Kingdom\n" + // non-positive qty
		"536369,84029E,RED WOOLLY HOTTIE,4,2010-12-01 08:35:00,0,17850,United Kingdom\n" + // non-positive price
		"536370,POST,POSTAGE,1,2010-12-01 08:45:00,18.00,12583,France\n" + // excluded description
		"536371,22728,ALARM CLOCK BAKELIKE,24,2010-12-01 09:00:00,3.75,13047,France\n"

	d, err := Load(context.Background(), writeCSV(t, csv), nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if d.Len() != 2 {
		t.Fatalf("expected 2 retained rows, got %d", d.Len())
	}

	stats := d.Stats()
	if stats.TotalRows != 7 {
		t.Errorf("TotalRows = %d, want 7", stats.TotalRows)
	}
	if stats.MissingCustomer != 1 {
		t.Errorf("MissingCustomer = %d, want 1", stats.MissingCustomer)
	}
	if stats.Cancelled != 1 {
		t.Errorf("Cancelled = %d, want 1", stats.Cancelled)
	}
	if stats.NonPositive != 2 {
		t.Errorf("NonPositive = %d, want 2", stats.NonPositive)
	}
	if stats.ExcludedDescription != 1 {
		t.Errorf("ExcludedDescription = %d, want 1", stats.ExcludedDescription)
	}

	for _, tx := range d.Rows() {
		if tx.CustomerID == "" {
			t.Error("retained row has empty customer id")
		}
		if strings.HasPrefix(tx.Invoice, "C") {
			t.Errorf("retained row has cancelled invoice %q", tx.Invoice)
		}
		if tx.Quantity <= 0 || !tx.UnitPrice.IsPositive() {
			t.Errorf("retained row has non-positive quantity/price: %d, %s", tx.Quantity, tx.UnitPrice)
		}
		want := tx.UnitPrice.Mul(decimal.NewFromInt(int64(tx.Quantity)))
		if !tx.Revenue.Equal(want) {
			t.Errorf("revenue = %s, want %s", tx.Revenue, want)
		}
	}
}

func TestLoad_ExcludedDescriptionsAreCaseSensitive(t *testing.T) {
	// "MANUAL" is a real product label; only the literal "Manual" is the
	// administrative placeholder.
	csv := csvHeader +
		"536365,M,Manual,1,2010-12-01 08:26:00,10.00,17850,United Kingdom\n" +
		"536366,85123A,MANUAL,1,2010-12-01 08:26:00,10.00,17850,United Kingdom\n"

	d, err := Load(context.Background(), writeCSV(t, csv), nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if d.Len() != 1 {
		t.Fatalf("expected 1 retained row, got %d", d.Len())
	}
	if d.Stats().ExcludedDescription != 1 {
		t.Errorf("ExcludedDescription = %d, want 1", d.Stats().ExcludedDescription)
	}
}

func TestLoad_TitleCasesDescriptions(t *testing.T) {
	csv := csvHeader +
		"536365,85123A,WHITE HANGING HEART T-LIGHT HOLDER,6,2010-12-01 08:26:00,2.55,17850,United Kingdom\n"

	d, err := Load(context.Background(), writeCSV(t, csv), nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	got := d.Rows()[0].Description
	if got != "White Hanging Heart T-Light Holder" {
		t.Errorf("Description = %q, want title case", got)
	}
}

func TestLoad_MalformedDateFailsWholeLoad(t *testing.T) {
	csv := csvHeader +
		"536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,2.55,17850,United Kingdom\n" +
		"536366,71053,WHITE METAL LANTERN,6,not-a-date,3.39,17850,United Kingdom\n"

	_, err := Load(context.Background(), writeCSV(t, csv), nil)
	var dateErr *MalformedDateError
	if !errors.As(err, &dateErr) {
		t.Fatalf("expected *MalformedDateError, got %v", err)
	}
	if dateErr.Line != 3 {
		t.Errorf("Line = %d, want 3", dateErr.Line)
	}
}

func TestLoad_MalformedDateOnDroppedRowIsIgnored(t *testing.T) {
	// The cancelled row has a junk date but never reaches date parsing.
	csv := csvHeader +
		"C536366,71053,WHITE METAL LANTERN,6,not-a-date,3.39,17850,United Kingdom\n" +
		"536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,2.55,17850,United Kingdom\n"

	d, err := Load(context.Background(), writeCSV(t, csv), nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if d.Len() != 1 {
		t.Errorf("expected 1 retained row, got %d", d.Len())
	}
}

func TestLoad_MalformedQuantityFailsWholeLoad(t *testing.T) {
	csv := csvHeader +
		"536365,85123A,WHITE HANGING HEART,six,2010-12-01 08:26:00,2.55,17850,United Kingdom\n"

	_, err := Load(context.Background(), writeCSV(t, csv), nil)
	var numErr *MalformedNumberError
	if !errors.As(err, &numErr) {
		t.Fatalf("expected *MalformedNumberError, got %v", err)
	}
	if numErr.Field != "quantity" {
		t.Errorf("Field = %q, want %q", numErr.Field, "quantity")
	}
	if numErr.Line != 2 {
		t.Errorf("Line = %d, want 2", numErr.Line)
	}
}

func TestLoad_MalformedPriceFailsWholeLoad(t *testing.T) {
	csv := csvHeader +
		"536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,cheap,17850,United Kingdom\n"

	_, err := Load(context.Background(), writeCSV(t, csv), nil)
	var numErr *MalformedNumberError
	if !errors.As(err, &numErr) {
		t.Fatalf("expected *MalformedNumberError, got %v", err)
	}
	if numErr.Field != "price" {
		t.Errorf("Field = %q, want %q", numErr.Field, "price")
	}
}

func TestLoad_EmptyAfterCleaning(t *testing.T) {
	csv := csvHeader +
		"C536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,2.55,17850,United Kingdom\n"

	_, err := Load(context.Background(), writeCSV(t, csv), nil)
	if !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestLoad_SourceUnavailable(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), nil)
	var srcErr *SourceUnavailableError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected *SourceUnavailableError, got %v", err)
	}
}

func TestLoad_MissingColumns(t *testing.T) {
	_, err := Load(context.Background(), writeCSV(t, "Invoice,Quantity\n1,2\n"), nil)
	var srcErr *SourceUnavailableError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected *SourceUnavailableError, got %v", err)
	}
}

func TestLoad_DecodesLatin1(t *testing.T) {
	// 0xA3 is the pound sign in ISO-8859-1.
	row := []byte("536365,85123A,SIGN \xa3 SHAPED,6,2010-12-01 08:26:00,2.55,17850,United Kingdom\n")
	content := append([]byte(csvHeader), row...)

	path := filepath.Join(t.TempDir(), "latin1.csv")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := Load(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got := d.Rows()[0].Description; !strings.Contains(got, "£") {
		t.Errorf("Description = %q, want pound sign decoded", got)
	}
}

func TestLoad_StripsByteOrderMark(t *testing.T) {
	// Spreadsheet exports prepend EF BB BF, which the latin-1 decode turns
	// into three junk characters on the first header cell.
	csv := "\xef\xbb\xbf" + csvHeader +
		"536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,2.55,17850,United Kingdom\n"

	d, err := Load(context.Background(), writeCSV(t, csv), nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got := d.Rows()[0].Invoice; got != "536365" {
		t.Errorf("Invoice = %q, want %q", got, "536365")
	}
}

func TestDataset_CountriesAndBounds(t *testing.T) {
	csv := csvHeader +
		"536365,85123A,WHITE HANGING HEART,6,2010-12-05 08:26:00,2.55,17850,United Kingdom\n" +
		"536371,22728,ALARM CLOCK BAKELIKE,24,2010-12-01 09:00:00,3.75,13047,France\n" +
		"536372,22727,ALARM CLOCK GREEN,12,2010-12-09 09:00:00,3.75,13047,France\n"

	d, err := Load(context.Background(), writeCSV(t, csv), nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	countries := d.Countries()
	if len(countries) != 2 || countries[0] != "France" || countries[1] != "United Kingdom" {
		t.Errorf("Countries() = %v, want sorted [France, United Kingdom]", countries)
	}

	minDate, maxDate := d.DateBounds()
	if minDate.Day() != 1 || maxDate.Day() != 9 {
		t.Errorf("DateBounds() = %v, %v", minDate, maxDate)
	}
}

func TestStore_CachesUntilSourceChanges(t *testing.T) {
	path := writeCSV(t, csvHeader+
		"536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,2.55,17850,United Kingdom\n")

	store := NewStore(path, "", nil)
	first, err := store.Dataset(context.Background())
	if err != nil {
		t.Fatalf("Dataset() failed: %v", err)
	}

	// Unchanged modtime serves the same arena.
	again, err := store.Dataset(context.Background())
	if err != nil {
		t.Fatalf("Dataset() failed: %v", err)
	}
	if first != again {
		t.Error("expected the cached dataset while the source is unchanged")
	}

	// A newer file invalidates the cache.
	newContent := csvHeader +
		"536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,2.55,17850,United Kingdom\n" +
		"536371,22728,ALARM CLOCK BAKELIKE,24,2010-12-01 09:00:00,3.75,13047,France\n"
	if err := os.WriteFile(path, []byte(newContent), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	reloaded, err := store.Dataset(context.Background())
	if err != nil {
		t.Fatalf("Dataset() failed after change: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Errorf("reloaded Len() = %d, want 2", reloaded.Len())
	}
}

func TestStore_SnapshotSkipsReparse(t *testing.T) {
	content := csvHeader +
		"536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,2.55,17850,United Kingdom\n"
	path := writeCSV(t, content)
	cacheDir := t.TempDir()

	first := NewStore(path, cacheDir, nil)
	if _, err := first.Dataset(context.Background()); err != nil {
		t.Fatalf("Dataset() failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	// Corrupt the source but keep its modtime: a fresh store must come up
	// from the snapshot without touching the CSV contents.
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, info.ModTime(), info.ModTime()); err != nil {
		t.Fatal(err)
	}

	second := NewStore(path, cacheDir, nil)
	d, err := second.Dataset(context.Background())
	if err != nil {
		t.Fatalf("Dataset() from snapshot failed: %v", err)
	}
	if d.Len() != 1 {
		t.Errorf("snapshot Len() = %d, want 1", d.Len())
	}
}
