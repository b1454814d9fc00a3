// Package loader reads the accounts CSV into an ordered, fully materialized
// sequence of account records.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/okian/churnlens/internal/domain/dedupe"
	"github.com/okian/churnlens/internal/domain/model"
)

// Canonical column names.
const (
	ColumnAccountID    = "account_id"
	ColumnARR          = "arr"
	ColumnUsageTrend   = "usage_trend"
	ColumnDeclineFlag  = "decline_flag"
	ColumnTicketStress = "ticket_stress"
	ColumnRenewalFlag  = "renewal_flag"
)

// aliases maps normalized header cells to canonical columns.
var aliases = map[string]string{
	"account_id":          ColumnAccountID,
	"accounts":            ColumnAccountID,
	"account":             ColumnAccountID,
	"arr":                 ColumnARR,
	"usage_trend":         ColumnUsageTrend,
	"usage_jan":           ColumnUsageTrend,
	"usage":               ColumnUsageTrend,
	"decline_flag":        ColumnDeclineFlag,
	"decline_yes_no":      ColumnDeclineFlag,
	"decline":             ColumnDeclineFlag,
	"ticket_stress":       ColumnTicketStress,
	"ticket_stress_level": ColumnTicketStress,
	"renewal_flag":        ColumnRenewalFlag,
	"renewal":             ColumnRenewalFlag,
}

var required = []string{ColumnAccountID, ColumnARR, ColumnDeclineFlag, ColumnTicketStress, ColumnRenewalFlag}

// Dataset is the loader output.
type Dataset struct {
	Records    []model.AccountRecord
	Rejected   []*RecordError
	Duplicates []dedupe.Duplicate
}

type loader struct {
	strict  bool
	comma   rune
	deduper dedupe.Deduper
}

// Load parses r. Column order is free; headers are matched case-insensitively
// against the canonical names and the legacy dashboard headers.
func Load(ctx context.Context, r io.Reader, opts ...Option) (Dataset, error) {
	l := &loader{strict: true, comma: ','}
	for _, opt := range opts {
		opt(l)
	}
	if l.deduper == nil {
		l.deduper = dedupe.NewInMemoryDeduper()
	}
	return l.load(ctx, r)
}

// LoadFile opens path and calls Load.
func LoadFile(ctx context.Context, path string, opts ...Option) (Dataset, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return Dataset{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Load(ctx, f, opts...)
}

func (l *loader) load(ctx context.Context, r io.Reader) (Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comma = l.comma
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Dataset{}, ErrEmptyInput
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("%w: header: %w", ErrMalformedRecord, err)
	}
	index, err := columns(header)
	if err != nil {
		return Dataset{}, err
	}

	ds := Dataset{Records: []model.AccountRecord{}}
	for {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
		}
		line, _ := cr.FieldPos(0)
		if blank(row) {
			continue
		}

		rec, rerr := parseRow(row, index, line)
		if rerr != nil {
			if l.strict {
				return Dataset{}, rerr
			}
			ds.Rejected = append(ds.Rejected, rerr)
			continue
		}
		l.deduper.SeenAndRecord(dedupe.WithLine(ctx, line), rec.AccountID)
		ds.Records = append(ds.Records, rec)
	}
	ds.Duplicates = l.deduper.Duplicates()
	return ds, nil
}

// columns resolves the header into canonical column positions.
func columns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, cell := range header {
		if i == 0 {
			cell = strings.TrimPrefix(cell, "\ufeff")
		}
		if col, ok := aliases[normalizeHeader(cell)]; ok {
			if _, dup := index[col]; !dup {
				index[col] = i
			}
		}
	}
	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &RecordError{Line: 1, Field: strings.Join(missing, ","), Err: ErrMissingColumn}
	}
	return index, nil
}

// normalizeHeader lower-cases a header cell and folds every run of
// non-alphanumeric characters into one underscore.
func normalizeHeader(s string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			sep = false
			continue
		}
		sep = true
	}
	return b.String()
}

func parseRow(row []string, index map[string]int, line int) (model.AccountRecord, *RecordError) {
	cell := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	missing := func(col string) *RecordError {
		return &RecordError{Line: line, Field: col, Err: errors.New("value is missing")}
	}

	rec := model.AccountRecord{AccountID: cell(ColumnAccountID)}
	if rec.AccountID == "" {
		return rec, missing(ColumnAccountID)
	}

	raw := cell(ColumnARR)
	if raw == "" {
		return rec, missing(ColumnARR)
	}
	arr, err := parseMoney(raw)
	if err != nil {
		return rec, &RecordError{Line: line, Field: ColumnARR, Value: raw, Err: err}
	}
	rec.ARR = arr

	if raw := cell(ColumnUsageTrend); raw != "" {
		u, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(u) || math.IsInf(u, 0) {
			if err == nil {
				err = errors.New("not a finite number")
			}
			return rec, &RecordError{Line: line, Field: ColumnUsageTrend, Value: raw, Err: err}
		}
		rec.UsageTrend = &u
	}

	for _, col := range []string{ColumnDeclineFlag, ColumnTicketStress, ColumnRenewalFlag} {
		if cell(col) == "" {
			return rec, missing(col)
		}
	}
	rec.Decline = model.ParseDecline(cell(ColumnDeclineFlag))
	rec.TicketStress = model.ParseStress(cell(ColumnTicketStress))
	rec.Renewal = model.ParseRenewal(cell(ColumnRenewalFlag))
	return rec, nil
}

// parseMoney accepts "120000", "120,000.50" and "$120,000".
func parseMoney(raw string) (float64, error) {
	s := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	if v < 0 {
		return 0, errors.New("must not be negative")
	}
	return v, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
