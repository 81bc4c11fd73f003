package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	catalogx "github.com/paytalk/dialogue-orchestrator/dialog/catalog"
	contractx "github.com/paytalk/dialogue-orchestrator/dialog/contract"
	plansx "github.com/paytalk/dialogue-orchestrator/dialog/plans"
	profilex "github.com/paytalk/dialogue-orchestrator/dialog/profile"
	statex "github.com/paytalk/dialogue-orchestrator/dialog/state"
)

var testNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

type fakeProfileSource struct {
	profiles map[string]*profilex.CustomerProfile
	loadErr  error
}

func (f *fakeProfileSource) LoadProfile(ctx context.Context, userID string) (*profilex.CustomerProfile, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user_id=%s", profilex.ErrNotFound, userID)
	}
	return p, nil
}

type fakePlanSource struct {
	offers  []plansx.PlanOffer
	loadErr error
	calls   int
}

func (f *fakePlanSource) LoadPlans(ctx context.Context) (*plansx.Catalog, error) {
	f.calls++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return plansx.NewCatalog(f.offers), nil
}

// flakyStore fails Save a configurable number of times, then delegates to an
// in-memory store.
type flakyStore struct {
	*statex.MemoryStore
	mu        sync.Mutex
	saveFails int
}

func (f *flakyStore) Save(ctx context.Context, st *statex.SessionState) error {
	f.mu.Lock()
	fail := f.saveFails > 0
	if fail {
		f.saveFails--
	}
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: write timed out", statex.ErrStoreUnavailable)
	}
	return f.MemoryStore.Save(ctx, st)
}

func defaultProfile() *profilex.CustomerProfile {
	return &profilex.CustomerProfile{
		UserID:          "user-1",
		Name:            "Mariana",
		DebtAmount:      decimal.RequireFromString("1000.00"),
		DebtDescription: "internet fibra",
		DueDate:         "10",
		RecentLateCount: 3,
		PreferredDueDay: 15,
		CardLastDigits:  "4521",
		CardExpiry:      testNow.AddDate(0, 1, 0),
	}
}

func defaultPlans() []plansx.PlanOffer {
	return []plansx.PlanOffer{
		{ID: "plan-15gb", Allowance: "15GB", MonthlyPrice: decimal.RequireFromString("49.90")},
	}
}

type engineFixture struct {
	eng      *Engine
	store    statex.Store
	profiles *fakeProfileSource
	plans    *fakePlanSource
}

func newFixture(t *testing.T, profile *profilex.CustomerProfile, store statex.Store) *engineFixture {
	t.Helper()

	if store == nil {
		store = statex.NewMemoryStore()
	}
	profiles := &fakeProfileSource{profiles: map[string]*profilex.CustomerProfile{}}
	if profile != nil {
		profiles.profiles[profile.UserID] = profile
	}
	plans := &fakePlanSource{offers: defaultPlans()}

	eng, err := New(store, profiles, plans, nil, nil, WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return &engineFixture{eng: eng, store: store, profiles: profiles, plans: plans}
}

func (f *engineFixture) say(t *testing.T, userID, text string) string {
	t.Helper()
	reply, err := f.eng.HandleMessage(context.Background(), userID, text)
	if err != nil {
		t.Fatalf("message %q failed: %v", text, err)
	}
	return reply
}

func TestDebtInfoFiresFirst(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultProfile(), nil)
	reply := f.say(t, "user-1", "oi, tudo bem?")

	for _, want := range []string{"1000.00", "internet fibra", "dia 10"} {
		if !strings.Contains(reply, want) {
			t.Errorf("debt info reply missing %q: %s", want, reply)
		}
	}
}

func TestPaymentFlowWithInstallmentSelection(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultProfile(), nil)

	f.say(t, "user-1", "oi")
	options := f.say(t, "user-1", "e como posso pagar?")
	for _, want := range []string{"500.00", "250.00"} {
		if !strings.Contains(options, want) {
			t.Errorf("payment options missing %q: %s", want, options)
		}
	}

	confirm := f.say(t, "user-1", "quero 2 parcelas")
	if !strings.Contains(confirm, "2 parcelas") {
		t.Fatalf("confirmation should echo the chosen option: %s", confirm)
	}

	done := f.say(t, "user-1", "sim, confirmo")
	if !strings.Contains(done, "Pagamento confirmado") {
		t.Fatalf("expected payment confirmation, got: %s", done)
	}

	st, err := f.store.Load(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if st.InstallmentOption != "2 parcelas" {
		t.Fatalf("installment option = %q, want %q", st.InstallmentOption, "2 parcelas")
	}
	if !st.IsCompleted(catalogx.ActionPaymentConfirmed) {
		t.Fatal("payment confirmed should be marked completed")
	}
}

func TestDeclineClosesPaymentChain(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultProfile(), nil)

	f.say(t, "user-1", "oi")
	f.say(t, "user-1", "quais as opções?")
	f.say(t, "user-1", "2 parcelas")

	// Declining the confirmation closes the whole payment chain and moves on
	// to the next pending subject in one reply.
	next := f.say(t, "user-1", "não, mudei de ideia")
	if !strings.Contains(next, "cartão") {
		t.Fatalf("expected the card expiry alert as the next step, got: %s", next)
	}

	st, err := f.store.Load(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if !st.IsDeclined(catalogx.ActionConfirmPayment) {
		t.Fatal("confirm payment should be declined")
	}
	if !st.IsDeclined(catalogx.ActionPaymentOptions) {
		t.Fatal("payment options should be declined together with the confirmation")
	}
}

func TestDueDateSuggestSkippedForPunctualCustomers(t *testing.T) {
	t.Parallel()

	punctual := defaultProfile()
	punctual.RecentLateCount = 1
	punctual.CardExpiry = time.Time{} // no card subject either

	f := newFixture(t, punctual, nil)

	var replies []string
	for i := 0; i < 12; i++ {
		replies = append(replies, f.say(t, "user-1", "não quero"))
		st, err := f.store.Load(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("load session: %v", err)
		}
		if st.Concluded {
			break
		}
	}

	for _, r := range replies {
		if strings.Contains(r, "vencimento será no dia") || strings.Contains(r, "troca na data") {
			t.Fatalf("due date change offered to a punctual customer: %s", r)
		}
	}

	st, err := f.store.Load(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if st.IsCompleted(catalogx.ActionDueDateSuggest) {
		t.Fatal("due date suggestion fired for a punctual customer")
	}
	if !st.Concluded {
		t.Fatal("conversation should conclude once every subject is terminal")
	}
}

func TestFullConversationReachesConclude(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultProfile(), nil)

	script := []struct {
		text string
		want string
	}{
		{"oi", "1000.00"},                  // debt.info
		{"como pago?", "parcelamento"},     // debt.payment_options
		{"4 parcelas", "4 parcelas"},       // debt.confirm_payment
		{"sim", "Pagamento confirmado"},    // debt.payment_confirmed
		{"ok", "expirar"},                  // card.expiry_alert
		{"sim", "Cobrar em Qualquer"},      // card.charge_any_offer
		{"sim", "ativada com sucesso"},     // card.charge_any_activated
		{"ok", "data de vencimento"},       // duedate.suggest
		{"dia 20", "dia 20"},               // duedate.changed
		{"ok", "15GB"},                     // internet.offer
		{"sim", "nova franquia"},           // internet.activated
		{"ok", "notificações"},             // alerts.offer
		{"sim", "Alertas de consumo"},      // alerts.activated
		{"ok", "sempre disponível"},        // conclude
	}
	for i, step := range script {
		reply := f.say(t, "user-1", step.text)
		if !strings.Contains(reply, step.want) {
			t.Fatalf("step %d (%q): reply missing %q: %s", i, step.text, step.want, reply)
		}
	}

	st, err := f.store.Load(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if !st.Concluded {
		t.Fatal("session should be concluded")
	}

	_, err = f.eng.HandleMessage(context.Background(), "user-1", "oi de novo")
	if !errors.Is(err, ErrSessionConcluded) {
		t.Fatalf("expected ErrSessionConcluded, got %v", err)
	}
}

func TestUnrecognizedRepromptIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultProfile(), nil)

	f.say(t, "user-1", "oi")
	f.say(t, "user-1", "como pago?") // payment options now awaiting

	first := f.say(t, "user-1", "hmm deixa eu pensar")
	second := f.say(t, "user-1", "volto a falar disso")
	if first != second {
		t.Fatalf("re-prompt should be identical:\nfirst:  %s\nsecond: %s", first, second)
	}

	st, err := f.store.Load(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if st.Awaiting != catalogx.ActionPaymentOptions {
		t.Fatalf("awaiting = %q, want %q", st.Awaiting, catalogx.ActionPaymentOptions)
	}
}

func TestInvalidInstallmentSelectionReprompts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultProfile(), nil)

	f.say(t, "user-1", "oi")
	options := f.say(t, "user-1", "como pago?")

	// "3 parcelas" is not an offered option.
	reply := f.say(t, "user-1", "3 parcelas")
	if reply != options {
		t.Fatalf("invalid selection should repeat the options:\nwant: %s\ngot:  %s", options, reply)
	}
}

func TestFailedSaveLeavesStoredStateUntouched(t *testing.T) {
	t.Parallel()

	store := &flakyStore{MemoryStore: statex.NewMemoryStore(), saveFails: 1}
	f := newFixture(t, defaultProfile(), store)

	_, err := f.eng.HandleMessage(context.Background(), "user-1", "oi")
	if !errors.Is(err, contractx.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	// Nothing was persisted, so the next message starts over with debt info.
	reply := f.say(t, "user-1", "oi de novo")
	if !strings.Contains(reply, "1000.00") {
		t.Fatalf("expected debt info on retry, got: %s", reply)
	}
}

func TestProfileNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	_, err := f.eng.HandleMessage(context.Background(), "stranger", "oi")
	if !errors.Is(err, contractx.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestCatalogUnavailable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultProfile(), nil)
	f.plans.loadErr = fmt.Errorf("%w: connection refused", plansx.ErrUnavailable)

	_, err := f.eng.HandleMessage(context.Background(), "user-1", "oi")
	if !errors.Is(err, contractx.ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestPlanCatalogIsCachedAfterFirstLoad(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultProfile(), nil)
	f.say(t, "user-1", "oi")
	f.say(t, "user-1", "como pago?")

	if f.plans.calls != 1 {
		t.Fatalf("plan source called %d times, want 1", f.plans.calls)
	}
}

func TestInvalidRequests(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultProfile(), nil)

	if _, err := f.eng.HandleMessage(context.Background(), "", "oi"); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
	if _, err := f.eng.HandleMessage(context.Background(), "user-1", "   "); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestSessionsAreIndependentPerUser(t *testing.T) {
	t.Parallel()

	store := statex.NewMemoryStore()
	profiles := &fakeProfileSource{profiles: map[string]*profilex.CustomerProfile{}}
	for _, id := range []string{"user-a", "user-b"} {
		p := defaultProfile()
		p.UserID = id
		profiles.profiles[id] = p
	}
	eng, err := New(store, profiles, &fakePlanSource{offers: defaultPlans()}, nil, nil,
		WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	if _, err := eng.HandleMessage(context.Background(), "user-a", "oi"); err != nil {
		t.Fatalf("user-a message failed: %v", err)
	}
	if _, err := eng.HandleMessage(context.Background(), "user-a", "como pago?"); err != nil {
		t.Fatalf("user-a message failed: %v", err)
	}

	// A fresh user starts from the top, unaffected by user-a's progress.
	reply, err := eng.HandleMessage(context.Background(), "user-b", "oi")
	if err != nil {
		t.Fatalf("user-b message failed: %v", err)
	}
	if !strings.Contains(reply, "1000.00") {
		t.Fatalf("user-b should get debt info first, got: %s", reply)
	}
}

func TestConcurrentMessagesForOneUserStayConsistent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultProfile(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.eng.HandleMessage(context.Background(), "user-1", "sim")
		}()
	}
	wg.Wait()

	st, err := f.store.Load(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if err := st.Validate(); err != nil {
		t.Fatalf("session invariants violated after concurrent messages: %v", err)
	}
}

func TestSweeperEvictsIdleSessions(t *testing.T) {
	t.Parallel()

	store := statex.NewMemoryStore()
	stale := statex.NewSessionState("idle-user", testNow.Add(-72*time.Hour))
	if err := store.Save(context.Background(), stale); err != nil {
		t.Fatalf("seed stale session: %v", err)
	}

	f := newFixture(t, defaultProfile(), store)
	f.say(t, "user-1", "oi") // fresh session, must survive

	lister, ok := f.store.(statex.StaleLister)
	if !ok {
		t.Fatal("memory store should implement StaleLister")
	}
	evicted, err := f.eng.sweepOnce(context.Background(), lister, 24*time.Hour)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if evicted != 1 {
		t.Fatalf("evicted %d sessions, want 1", evicted)
	}

	if _, err := store.Load(context.Background(), "idle-user"); !errors.Is(err, statex.ErrStateNotFound) {
		t.Fatalf("stale session should be gone, got %v", err)
	}
	if _, err := store.Load(context.Background(), "user-1"); err != nil {
		t.Fatalf("fresh session should survive the sweep: %v", err)
	}
}
