package nodes

import (
	"context"
	"errors"
	"fmt"

	plansx "github.com/paytalk/dialogue-orchestrator/dialog/plans"
)

// PlanProvider is satisfied by the engine's cached plan lookup.
type PlanProvider func(ctx context.Context) (*plansx.Catalog, error)

func LoadPlans(ctx context.Context, in *GraphState, provider PlanProvider) (*GraphState, error) {
	if in == nil {
		return nil, errors.New("graph state is nil")
	}

	cat, err := provider(ctx)
	if err != nil {
		return nil, fmt.Errorf("load plans: %w", err)
	}

	in.Plans = cat
	return in, nil
}
