package nodes

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/paytalk/dialogue-orchestrator/dialog/contract"
)

func ResolveProfile(ctx context.Context, in *GraphState, profiles contractx.ProfileSource) (*GraphState, error) {
	if in == nil {
		return nil, errors.New("graph state is nil")
	}

	p, err := profiles.LoadProfile(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve profile: %w", err)
	}

	in.Profile = p
	return in, nil
}
