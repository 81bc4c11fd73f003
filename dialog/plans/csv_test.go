package plans

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writePlanCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plans.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestCSVSourceLoadPlans(t *testing.T) {
	t.Parallel()

	src := NewCSVSource(writePlanCSV(t,
		"id,franquia,valor_mensal\nplan-10gb,10GB,39.90\nplan-15gb,15GB,49.90\n"))

	cat, err := src.LoadPlans(context.Background())
	if err != nil {
		t.Fatalf("load plans: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("expected 2 offers, got %d", cat.Len())
	}

	offer, ok := cat.FindByAllowance("15gb")
	if !ok {
		t.Fatal("15GB offer not found (lookup should be case-insensitive)")
	}
	if offer.ID != "plan-15gb" || offer.MonthlyPrice.StringFixed(2) != "49.90" {
		t.Fatalf("unexpected offer: %+v", offer)
	}

	if _, ok := cat.FindByAllowance("99GB"); ok {
		t.Fatal("unknown allowance should not match")
	}
}

func TestCSVSourceFailuresWrapUnavailable(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		src := NewCSVSource(filepath.Join(t.TempDir(), "missing.csv"))
		if _, err := src.LoadPlans(context.Background()); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("missing column", func(t *testing.T) {
		t.Parallel()
		src := NewCSVSource(writePlanCSV(t, "id,franquia\nplan-10gb,10GB\n"))
		if _, err := src.LoadPlans(context.Background()); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("bad price", func(t *testing.T) {
		t.Parallel()
		src := NewCSVSource(writePlanCSV(t, "id,franquia,valor_mensal\nplan-10gb,10GB,caro\n"))
		if _, err := src.LoadPlans(context.Background()); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})
}

func TestFindByAllowancePrefersCatalogOrder(t *testing.T) {
	t.Parallel()

	cat := NewCatalog([]PlanOffer{
		{ID: "first", Allowance: "15GB"},
		{ID: "second", Allowance: "15GB"},
	})
	offer, ok := cat.FindByAllowance("15GB")
	if !ok || offer.ID != "first" {
		t.Fatalf("expected first matching offer, got %+v (ok=%v)", offer, ok)
	}
}
