package plans

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	colPlanID       = "id"
	colAllowance    = "franquia"
	colMonthlyPrice = "valor_mensal"
)

// CSVSource loads the plan catalog from a flat CSV file, preserving row
// order.
type CSVSource struct {
	path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: strings.TrimSpace(path)}
}

func (s *CSVSource) LoadPlans(ctx context.Context) (*Catalog, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open plan csv: %v", ErrUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrUnavailable, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colAllowance, colMonthlyPrice} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing %s column", ErrUnavailable, required)
		}
	}

	var offers []PlanOffer
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read row: %v", ErrUnavailable, err)
		}

		price, err := decimal.NewFromString(cell(row, cols, colMonthlyPrice))
		if err != nil {
			return nil, fmt.Errorf("%w: monthly price: %v", ErrUnavailable, err)
		}
		offers = append(offers, PlanOffer{
			ID:           cell(row, cols, colPlanID),
			Allowance:    cell(row, cols, colAllowance),
			MonthlyPrice: price,
		})
	}

	return NewCatalog(offers), nil
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
