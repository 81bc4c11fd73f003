package nodes

import (
	"errors"
	"strings"
	"time"

	"github.com/paytalk/dialogue-orchestrator/dialog/classify"
	plansx "github.com/paytalk/dialogue-orchestrator/dialog/plans"
	profilex "github.com/paytalk/dialogue-orchestrator/dialog/profile"
	statex "github.com/paytalk/dialogue-orchestrator/dialog/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidUser    = errors.New("user id is empty")
)

type GraphInput struct {
	UserID string
	Text   string
}

type GraphOutput struct {
	Reply  string
	Action string
}

// GraphState is threaded through the decide pipeline.
type GraphState struct {
	UserID string
	Text   string
	Now    time.Time

	Session        *statex.SessionState
	Profile        *profilex.CustomerProfile
	Plans          *plansx.Catalog
	Classification classify.Result

	// FiredAction is the id of the action fired this cycle, empty on a
	// re-prompt or fallback.
	FiredAction string
	Reply       string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, ErrInvalidUser
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		UserID: userID,
		Text:   text,
		Now:    nowFn().UTC(),
	}, nil
}
