package contract

import (
	"context"

	plansx "github.com/paytalk/dialogue-orchestrator/dialog/plans"
	profilex "github.com/paytalk/dialogue-orchestrator/dialog/profile"
)

// ProfileSource resolves a user id to a customer profile.
// Returns ErrProfileNotFound when the id is unknown and ErrMalformedProfile
// when the backing record cannot be parsed.
type ProfileSource interface {
	LoadProfile(ctx context.Context, userID string) (*profilex.CustomerProfile, error)
}

// PlanSource returns the full ordered plan catalog.
// Returns ErrCatalogUnavailable when the backing source cannot be read.
type PlanSource interface {
	LoadPlans(ctx context.Context) (*plansx.Catalog, error)
}

// MessageHandler is the inbound boundary consumed by transports.
type MessageHandler interface {
	HandleMessage(ctx context.Context, userID string, utterance string) (string, error)
}
