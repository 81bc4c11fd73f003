package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testHeader = "user_id,nome,valor,divida,vencimento,atrasos_recentes,preferencia_vencimento,cartao_ativo,cartao_vencimento,historico_pagamentos,cartoes_vencidos\n"

func writeCSV(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clients.csv")
	if err := os.WriteFile(path, []byte(testHeader+rows), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestCSVSourceLoadProfile(t *testing.T) {
	t.Parallel()

	path := writeCSV(t,
		`+5511999990001,Mariana,1000.00,internet fibra,10,3,15,4521,10/2026,"[{""data"":""2026-07-14"",""valor"":""189.90"",""dias_atraso"":4}]","[""7830""]"`+"\n")
	src := NewCSVSource(path)

	p, err := src.LoadProfile(context.Background(), "+5511999990001")
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}

	if p.Name != "Mariana" {
		t.Errorf("name = %q", p.Name)
	}
	if p.DebtAmount.StringFixed(2) != "1000.00" {
		t.Errorf("debt = %s", p.DebtAmount)
	}
	if p.RecentLateCount != 3 {
		t.Errorf("late count = %d", p.RecentLateCount)
	}
	if p.PreferredDueDay != 15 {
		t.Errorf("preferred due day = %d", p.PreferredDueDay)
	}
	if p.CardLastDigits != "4521" {
		t.Errorf("card digits = %q", p.CardLastDigits)
	}
	if got := p.CardExpiryLabel(); got != "10/2026" {
		t.Errorf("expiry label = %q", got)
	}
	if len(p.PaymentHistory) != 1 || p.PaymentHistory[0].DaysLate != 4 {
		t.Errorf("payment history = %+v", p.PaymentHistory)
	}
	if len(p.ExpiredCards) != 1 || p.ExpiredCards[0] != "7830" {
		t.Errorf("expired cards = %v", p.ExpiredCards)
	}
}

func TestCSVSourceUnknownUser(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, "+5511999990001,Mariana,1000.00,internet,10,0,15,4521,10/2026,[],[]\n")
	src := NewCSVSource(path)

	_, err := src.LoadProfile(context.Background(), "+5500000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCSVSourceMalformedRows(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"bad debt amount":   "+551,Mariana,muito,internet,10,0,15,4521,10/2026,[],[]\n",
		"negative debt":     "+551,Mariana,-5.00,internet,10,0,15,4521,10/2026,[],[]\n",
		"bad late count":    "+551,Mariana,10.00,internet,10,alguns,15,4521,10/2026,[],[]\n",
		"bad card expiry":   "+551,Mariana,10.00,internet,10,0,15,4521,outubro,[],[]\n",
		"bad history json":  "+551,Mariana,10.00,internet,10,0,15,4521,10/2026,not-json,[]\n",
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			src := NewCSVSource(writeCSV(t, row))
			_, err := src.LoadProfile(context.Background(), "+551")
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestCSVSourceMissingUserIDColumn(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "clients.csv")
	if err := os.WriteFile(path, []byte("nome,valor\nMariana,10.00\n"), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	src := NewCSVSource(path)
	_, err := src.LoadProfile(context.Background(), "+551")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestCardExpiresWithin(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	horizon := 60 * 24 * time.Hour

	expiring := &CustomerProfile{CardExpiry: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)}
	if !expiring.CardExpiresWithin(now, horizon) {
		t.Error("card expiring next month should be within the horizon")
	}
	healthy := &CustomerProfile{CardExpiry: time.Date(2027, 8, 1, 0, 0, 0, 0, time.UTC)}
	if healthy.CardExpiresWithin(now, horizon) {
		t.Error("card expiring next year should not be within the horizon")
	}
	unknown := &CustomerProfile{}
	if unknown.CardExpiresWithin(now, horizon) {
		t.Error("unknown expiry should never match")
	}
}
