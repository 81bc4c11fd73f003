package contract

import (
	"errors"

	plansx "github.com/paytalk/dialogue-orchestrator/dialog/plans"
	profilex "github.com/paytalk/dialogue-orchestrator/dialog/profile"
	statex "github.com/paytalk/dialogue-orchestrator/dialog/state"
)

// The error taxonomy surfaced to transports. Loader and store errors are
// owned by their packages; these names give boundaries a single import.
var (
	ErrProfileNotFound    = profilex.ErrNotFound
	ErrMalformedProfile   = profilex.ErrMalformed
	ErrCatalogUnavailable = plansx.ErrUnavailable
	ErrStoreUnavailable   = statex.ErrStoreUnavailable

	ErrSessionConcluded = errors.New("session already concluded")
)
