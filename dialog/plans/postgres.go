package plans

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// PostgresSource loads the plan catalog from the product data store.
type PostgresSource struct {
	db      *bun.DB
	timeout time.Duration
}

type planRow struct {
	bun.BaseModel `bun:"table:plan_offers"`

	ID           string `bun:"id,pk"`
	Allowance    string `bun:"allowance"`
	MonthlyPrice string `bun:"monthly_price"`
	Position     int    `bun:"position"`
}

func NewPostgresSource(cfg PostgresConfig) (*PostgresSource, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: ping product data store: %v", ErrUnavailable, err)
	}

	return &PostgresSource{db: db, timeout: timeout}, nil
}

func (s *PostgresSource) LoadPlans(ctx context.Context) (*Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []planRow
	if err := s.db.NewSelect().Model(&rows).Order("position ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: query plan offers: %v", ErrUnavailable, err)
	}

	offers := make([]PlanOffer, 0, len(rows))
	for _, row := range rows {
		price, err := decimal.NewFromString(row.MonthlyPrice)
		if err != nil {
			return nil, fmt.Errorf("%w: monthly price for plan %s: %v", ErrUnavailable, row.ID, err)
		}
		offers = append(offers, PlanOffer{
			ID:           row.ID,
			Allowance:    row.Allowance,
			MonthlyPrice: price,
		})
	}

	return NewCatalog(offers), nil
}

func (s *PostgresSource) Close() error {
	return s.db.Close()
}
