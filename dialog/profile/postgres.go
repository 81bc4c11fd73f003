package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
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

// PostgresSource loads customer profiles from the customer data store.
type PostgresSource struct {
	db      *bun.DB
	timeout time.Duration
}

type profileRow struct {
	bun.BaseModel `bun:"table:customer_profiles"`

	UserID          string `bun:"user_id,pk"`
	Name            string `bun:"name"`
	DebtAmount      string `bun:"debt_amount"`
	DebtDescription string `bun:"debt_description"`
	DueDate         string `bun:"due_date"`
	RecentLateCount int    `bun:"recent_late_count"`
	PreferredDueDay int    `bun:"preferred_due_day"`
	CardLastDigits  string `bun:"card_last_digits"`
	CardExpiry      string `bun:"card_expiry"`
	PaymentHistory  string `bun:"payment_history"`
	ExpiredCards    string `bun:"expired_cards"`
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
		return nil, fmt.Errorf("ping customer data store: %w", err)
	}

	return &PostgresSource{db: db, timeout: timeout}, nil
}

func (s *PostgresSource) LoadProfile(ctx context.Context, userID string) (*CustomerProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row profileRow
	err := s.db.NewSelect().Model(&row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user_id=%s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("query customer profile: %w", err)
	}

	return row.toProfile()
}

func (s *PostgresSource) Close() error {
	return s.db.Close()
}

func (r *profileRow) toProfile() (*CustomerProfile, error) {
	p := &CustomerProfile{
		UserID:          r.UserID,
		Name:            r.Name,
		DebtDescription: r.DebtDescription,
		DueDate:         r.DueDate,
		RecentLateCount: r.RecentLateCount,
		PreferredDueDay: r.PreferredDueDay,
		CardLastDigits:  r.CardLastDigits,
	}

	amount, err := decimal.NewFromString(r.DebtAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: debt amount: %v", ErrMalformed, err)
	}
	p.DebtAmount = amount

	if r.CardExpiry != "" {
		expiry, err := parseCardExpiry(r.CardExpiry)
		if err != nil {
			return nil, fmt.Errorf("%w: card expiry: %v", ErrMalformed, err)
		}
		p.CardExpiry = expiry
	}
	if r.PaymentHistory != "" {
		if err := json.Unmarshal([]byte(r.PaymentHistory), &p.PaymentHistory); err != nil {
			return nil, fmt.Errorf("%w: payment history: %v", ErrMalformed, err)
		}
	}
	if r.ExpiredCards != "" {
		if err := json.Unmarshal([]byte(r.ExpiredCards), &p.ExpiredCards); err != nil {
			return nil, fmt.Errorf("%w: expired cards: %v", ErrMalformed, err)
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
