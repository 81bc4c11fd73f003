package profile

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("customer profile not found")
	ErrMalformed = errors.New("customer profile is malformed")
)

// PaymentRecord is one past payment of the customer.
type PaymentRecord struct {
	Date     string          `json:"data"`
	Amount   decimal.Decimal `json:"valor"`
	DaysLate int             `json:"dias_atraso"`
}

// CustomerProfile is the structured customer record. Immutable once loaded;
// the engine reloads it per message.
type CustomerProfile struct {
	UserID          string
	Name            string
	DebtAmount      decimal.Decimal
	DebtDescription string
	DueDate         string // day of month of the open invoice, as displayed
	RecentLateCount int
	PreferredDueDay int
	CardLastDigits  string
	CardExpiry      time.Time // month precision
	PaymentHistory  []PaymentRecord
	ExpiredCards    []string
}

// Validate enforces the profile invariants: non-negative debt and
// non-negative late-payment count.
func (p *CustomerProfile) Validate() error {
	if p.DebtAmount.IsNegative() {
		return fmt.Errorf("%w: negative debt amount %s", ErrMalformed, p.DebtAmount)
	}
	if p.RecentLateCount < 0 {
		return fmt.Errorf("%w: negative late-payment count %d", ErrMalformed, p.RecentLateCount)
	}
	return nil
}

// CardExpiryLabel renders the expiry month as "MM/YYYY" for display, or an
// empty string when unknown.
func (p *CustomerProfile) CardExpiryLabel() string {
	if p.CardExpiry.IsZero() {
		return ""
	}
	return p.CardExpiry.AddDate(0, -1, 0).Format("01/2006")
}

// CardExpiresWithin reports whether the active card expires before
// now+horizon. Profiles without a known expiry never match.
func (p *CustomerProfile) CardExpiresWithin(now time.Time, horizon time.Duration) bool {
	if p.CardExpiry.IsZero() {
		return false
	}
	return p.CardExpiry.Before(now.Add(horizon))
}
