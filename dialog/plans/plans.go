// Package plans holds the read-only catalog of product offers.
package plans

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrUnavailable = errors.New("plan catalog unavailable")

// PlanOffer is one purchasable plan.
type PlanOffer struct {
	ID           string
	Allowance    string // e.g. "15GB"
	MonthlyPrice decimal.Decimal
}

// Catalog is an ordered, read-only set of offers. Safe for unsynchronized
// concurrent reads after construction.
type Catalog struct {
	offers []PlanOffer
}

func NewCatalog(offers []PlanOffer) *Catalog {
	return &Catalog{offers: append([]PlanOffer(nil), offers...)}
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.offers)
}

// Offers returns a copy of the catalog in order.
func (c *Catalog) Offers() []PlanOffer {
	if c == nil {
		return nil
	}
	return append([]PlanOffer(nil), c.offers...)
}

// FindByAllowance returns the first offer with the given allowance, in
// catalog order. Matching is case-insensitive.
func (c *Catalog) FindByAllowance(allowance string) (PlanOffer, bool) {
	if c == nil {
		return PlanOffer{}, false
	}
	want := strings.ToLower(strings.TrimSpace(allowance))
	for _, offer := range c.offers {
		if strings.ToLower(strings.TrimSpace(offer.Allowance)) == want {
			return offer, true
		}
	}
	return PlanOffer{}, false
}
