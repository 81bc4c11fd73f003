package nodes

import (
	"context"
	"errors"
	"fmt"

	statex "github.com/paytalk/dialogue-orchestrator/dialog/state"
)

func LoadOrCreateState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, errors.New("graph state is nil")
	}

	st, err := store.Load(ctx, in.UserID)
	if err != nil {
		if !errors.Is(err, statex.ErrStateNotFound) {
			return nil, fmt.Errorf("load session: %w", err)
		}
		st = statex.NewSessionState(in.UserID, in.Now)
	}
	st.EnsureMaps()

	in.Session = st
	return in, nil
}
