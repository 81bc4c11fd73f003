// Package engine hosts the dialogue orchestrator: per-user serialized
// decide cycles over the read-only action catalog.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	catalogx "github.com/paytalk/dialogue-orchestrator/dialog/catalog"
	"github.com/paytalk/dialogue-orchestrator/dialog/classify"
	contractx "github.com/paytalk/dialogue-orchestrator/dialog/contract"
	nodex "github.com/paytalk/dialogue-orchestrator/dialog/nodes"
	plansx "github.com/paytalk/dialogue-orchestrator/dialog/plans"
	statex "github.com/paytalk/dialogue-orchestrator/dialog/state"
	"github.com/paytalk/dialogue-orchestrator/pkg/metrics"
)

var (
	ErrInvalidMessage   = nodex.ErrInvalidMessage
	ErrInvalidUser      = nodex.ErrInvalidUser
	ErrSessionConcluded = contractx.ErrSessionConcluded
)

type Engine struct {
	store      statex.Store
	profiles   contractx.ProfileSource
	planSource contractx.PlanSource
	classifier classify.Classifier
	catalog    *catalogx.Catalog
	recorder   metrics.Recorder

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	// locks serializes the load→decide→save cycle per user id (§ concurrency
	// contract: two messages for the same user must not race).
	locks sync.Map // user id -> *sync.Mutex

	planMu      sync.Mutex
	planCatalog *plansx.Catalog

	now func() time.Time
}

type Option func(*Engine)

func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func New(
	store statex.Store,
	profiles contractx.ProfileSource,
	planSource contractx.PlanSource,
	classifier classify.Classifier,
	cat *catalogx.Catalog,
	opts ...Option,
) (*Engine, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if profiles == nil {
		return nil, errors.New("profile source is required")
	}
	if planSource == nil {
		return nil, errors.New("plan source is required")
	}
	if classifier == nil {
		classifier = classify.NewRuleClassifier()
	}
	if cat == nil {
		cat = catalogx.New(catalogx.Config{})
	}

	e := &Engine{
		store:      store,
		profiles:   profiles,
		planSource: planSource,
		classifier: classifier,
		catalog:    cat,
		recorder:   metrics.Noop{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	graphRunner, err := e.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	e.graphRunner = graphRunner

	return e, nil
}

var _ contractx.MessageHandler = (*Engine)(nil)

// HandleMessage runs one decide cycle for an inbound utterance and returns
// the reply text. Calls for the same user id are serialized.
func (e *Engine) HandleMessage(ctx context.Context, userID string, utterance string) (string, error) {
	mu := e.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	started := e.now()
	out, err := e.graphRunner.Invoke(ctx, nodex.GraphInput{
		UserID: userID,
		Text:   utterance,
	})
	if err != nil {
		e.recorder.IncError(errorKind(err))
		return "", err
	}

	e.recorder.ObserveDecision(out.Action, e.now().Sub(started))
	return out.Reply, nil
}

func (e *Engine) userLock(userID string) *sync.Mutex {
	if v, ok := e.locks.Load(userID); ok {
		return v.(*sync.Mutex)
	}
	v, _ := e.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// loadPlans caches the catalog after the first successful load; the catalog
// is read-only, so one fetch per process is enough.
func (e *Engine) loadPlans(ctx context.Context) (*plansx.Catalog, error) {
	e.planMu.Lock()
	defer e.planMu.Unlock()

	if e.planCatalog != nil {
		return e.planCatalog, nil
	}
	cat, err := e.planSource.LoadPlans(ctx)
	if err != nil {
		return nil, err
	}
	e.planCatalog = cat
	return cat, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, contractx.ErrProfileNotFound):
		return "profile_not_found"
	case errors.Is(err, contractx.ErrMalformedProfile):
		return "malformed_profile"
	case errors.Is(err, contractx.ErrCatalogUnavailable):
		return "catalog_unavailable"
	case errors.Is(err, contractx.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, contractx.ErrSessionConcluded):
		return "session_concluded"
	case errors.Is(err, nodex.ErrInvalidMessage), errors.Is(err, nodex.ErrInvalidUser):
		return "invalid_request"
	default:
		return "internal"
	}
}

// StartSweeper evicts sessions idle longer than maxIdle every interval,
// taking the same per-user lock as live requests. Stores without stale
// listing (Redis expires natively) make this a no-op.
func (e *Engine) StartSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	lister, ok := e.store.(statex.StaleLister)
	if !ok {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				evicted, err := e.sweepOnce(ctx, lister, maxIdle)
				if err != nil {
					log.Warn().Err(err).Msg("session sweep failed")
					continue
				}
				if evicted > 0 {
					log.Info().Int("evicted", evicted).Msg("stale sessions evicted")
				}
			}
		}
	}()
}

func (e *Engine) sweepOnce(ctx context.Context, lister statex.StaleLister, maxIdle time.Duration) (int, error) {
	cutoff := e.now().Add(-maxIdle)
	ids, err := lister.StaleSessions(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	evicted := 0
	for _, id := range ids {
		mu := e.userLock(id)
		mu.Lock()
		// Re-check under the lock: a live request may have touched the
		// session after listing.
		st, err := e.store.Load(ctx, id)
		if err == nil && st.UpdatedAt.Before(cutoff) {
			if err := e.store.Delete(ctx, id); err == nil {
				evicted++
			}
		}
		mu.Unlock()
	}
	return evicted, nil
}
