// Package importer reads credential price lists exported from spreadsheets.
package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
)

// Row is one credential line of a price list.
type Row struct {
	Line  int
	Name  string
	Price int64
}

var (
	nameHeaders  = []string{"name", "credential", "document"}
	priceHeaders = []string{"price", "amount", "fee"}
)

// Parse reads a semicolon or comma separated list with a header row naming
// the name and price columns. Lines before the header are skipped. Prices must
// be whole, non-negative amounts.
func Parse(r io.Reader) ([]Row, error) {
	utf8r, err := toUTF8(r)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(utf8r)
	comma := sniffDelimiter(br)

	reader := csv.NewReader(br)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var (
		rows      []Row
		idxName   = -1
		idxPrice  = -1
		hasHeader bool
	)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, apperr.Invalid("reading csv: %v", err)
		}

		line, _ := reader.FieldPos(0)

		if !hasHeader {
			idxName, idxPrice = locateColumns(record)
			hasHeader = idxName >= 0 && idxPrice >= 0

			continue
		}

		if len(record) <= max(idxName, idxPrice) {
			continue
		}

		name := strings.TrimSpace(record[idxName])
		rawPrice := strings.TrimSpace(record[idxPrice])

		if name == "" && rawPrice == "" {
			continue
		}

		if name == "" {
			return nil, apperr.Invalid("line %d: credential name is empty", line)
		}

		price, err := parsePrice(rawPrice, comma)
		if err != nil {
			return nil, apperr.Invalid("line %d: %v", line, err)
		}

		rows = append(rows, Row{Line: line, Name: name, Price: price})
	}

	if !hasHeader {
		return nil, apperr.Invalid("no header row with name and price columns")
	}

	return rows, nil
}

func locateColumns(record []string) (int, int) {
	idxName, idxPrice := -1, -1

	for i, col := range record {
		col = strings.ToLower(strings.TrimSpace(col))

		switch {
		case idxName < 0 && contains(nameHeaders, col):
			idxName = i
		case idxPrice < 0 && contains(priceHeaders, col):
			idxPrice = i
		}
	}

	return idxName, idxPrice
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}

	return false
}

// sniffDelimiter picks ';' when the first line has more semicolons than commas.
func sniffDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(512)

	first, _, _ := strings.Cut(string(head), "\n")
	if strings.Count(first, ";") > strings.Count(first, ",") {
		return ';'
	}

	return ','
}

// parsePrice accepts "150", "150.00", "1,500" and, in semicolon files,
// European notation such as "1.500,00".
func parsePrice(s string, comma rune) (int64, error) {
	clean := strings.ReplaceAll(s, " ", "")
	if comma == ';' && strings.Contains(clean, ",") {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	} else {
		clean = strings.ReplaceAll(clean, ",", "")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", s)
	}

	if d.IsNegative() {
		return 0, fmt.Errorf("price %q must not be negative", s)
	}

	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("price %q has a fractional part", s)
	}

	return d.IntPart(), nil
}
