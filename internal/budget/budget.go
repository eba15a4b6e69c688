// Package budget parses uploaded budget tables. A budget is tabular data
// with a required numeric "Amount" column; row order matters, the first
// row is treated as the first milestone disbursement.
package budget

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMissingAmountColumn is returned when the table header has no
// "Amount" column.
var ErrMissingAmountColumn = errors.New("budget table must include an 'Amount' column")

// Row is one budget line item. Position is significant: row 0 is the
// first milestone.
type Row struct {
	Amount float64 `json:"amount"`
}

// ParseCSV reads a budget table from CSV data. The header row must
// contain an "Amount" column (matched case-insensitively); additional
// columns are ignored. Amounts must parse as non-negative numbers.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingAmountColumn
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read budget header: %w", err)
	}

	amountCol := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "amount") {
			amountCol = i
			break
		}
	}
	if amountCol == -1 {
		return nil, ErrMissingAmountColumn
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read budget row %d: %w", line, err)
		}
		if amountCol >= len(record) {
			return nil, fmt.Errorf("budget row %d has no amount value", line)
		}

		amount, err := strconv.ParseFloat(strings.TrimSpace(record[amountCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("budget row %d has an unparsable amount %q", line, record[amountCol])
		}
		if amount < 0 {
			return nil, fmt.Errorf("budget row %d has a negative amount", line)
		}

		rows = append(rows, Row{Amount: amount})
	}

	return rows, nil
}

// Total sums all row amounts. An empty table totals zero.
func Total(rows []Row) float64 {
	total := 0.0
	for _, row := range rows {
		total += row.Amount
	}
	return total
}

// FirstMilestone returns the amount of the first row, or zero for an
// empty table.
func FirstMilestone(rows []Row) float64 {
	if len(rows) == 0 {
		return 0
	}
	return rows[0].Amount
}
