package profile

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Column names follow the legacy flat-file export of the customer data store.
const (
	colUserID          = "user_id"
	colName            = "nome"
	colDebtAmount      = "valor"
	colDebtDescription = "divida"
	colDueDate         = "vencimento"
	colRecentLate      = "atrasos_recentes"
	colPreferredDueDay = "preferencia_vencimento"
	colCardLastDigits  = "cartao_ativo"
	colCardExpiry      = "cartao_vencimento"
	colPaymentHistory  = "historico_pagamentos"
	colExpiredCards    = "cartoes_vencidos"
)

// CSVSource loads customer profiles from a flat CSV file with one row per
// customer. The payment-history and expired-cards columns hold JSON.
type CSVSource struct {
	path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: strings.TrimSpace(path)}
}

func (s *CSVSource) LoadProfile(ctx context.Context, userID string) (*CustomerProfile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrNotFound)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open profile csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformed, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	if _, ok := cols[colUserID]; !ok {
		return nil, fmt.Errorf("%w: missing %s column", ErrMalformed, colUserID)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: user_id=%s", ErrNotFound, userID)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read row: %v", ErrMalformed, err)
		}
		if cell(row, cols, colUserID) != userID {
			continue
		}
		return parseRow(row, cols)
	}
}

func parseRow(row []string, cols map[string]int) (*CustomerProfile, error) {
	p := &CustomerProfile{
		UserID:          cell(row, cols, colUserID),
		Name:            cell(row, cols, colName),
		DebtDescription: cell(row, cols, colDebtDescription),
		DueDate:         cell(row, cols, colDueDate),
		CardLastDigits:  cell(row, cols, colCardLastDigits),
	}

	amount, err := decimal.NewFromString(cell(row, cols, colDebtAmount))
	if err != nil {
		return nil, fmt.Errorf("%w: debt amount: %v", ErrMalformed, err)
	}
	p.DebtAmount = amount

	if raw := cell(row, cols, colRecentLate); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: late-payment count: %v", ErrMalformed, err)
		}
		p.RecentLateCount = n
	}
	if raw := cell(row, cols, colPreferredDueDay); raw != "" {
		day, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: preferred due day: %v", ErrMalformed, err)
		}
		p.PreferredDueDay = day
	}
	if raw := cell(row, cols, colCardExpiry); raw != "" {
		expiry, err := parseCardExpiry(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: card expiry: %v", ErrMalformed, err)
		}
		p.CardExpiry = expiry
	}
	if raw := cell(row, cols, colPaymentHistory); raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.PaymentHistory); err != nil {
			return nil, fmt.Errorf("%w: payment history: %v", ErrMalformed, err)
		}
	}
	if raw := cell(row, cols, colExpiredCards); raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.ExpiredCards); err != nil {
			return nil, fmt.Errorf("%w: expired cards: %v", ErrMalformed, err)
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseCardExpiry accepts "01/2026" and "2026-01".
func parseCardExpiry(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"01/2006", "2006-01"} {
		if t, err := time.Parse(layout, raw); err == nil {
			// expiry means end of the named month
			return t.AddDate(0, 1, 0), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported expiry format %q", raw)
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
