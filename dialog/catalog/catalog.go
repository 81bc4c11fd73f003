// Package catalog defines the closed set of conversational actions: each
// entry pairs a precondition over (profile, session), a pure text generator,
// and a declared effect on session state. The catalog is read-only after
// construction and safe for concurrent use.
package catalog

import (
	"time"

	plansx "github.com/paytalk/dialogue-orchestrator/dialog/plans"
	profilex "github.com/paytalk/dialogue-orchestrator/dialog/profile"
	statex "github.com/paytalk/dialogue-orchestrator/dialog/state"
)

// Action ids, in scan priority order for the scannable subset.
const (
	ActionDebtInfo           = "debt.info"
	ActionPaymentOptions     = "debt.payment_options"
	ActionConfirmPayment     = "debt.confirm_payment"
	ActionPaymentConfirmed   = "debt.payment_confirmed"
	ActionCardExpiryAlert    = "card.expiry_alert"
	ActionChargeAnyOffer     = "card.charge_any_offer"
	ActionChargeAnyActivated = "card.charge_any_activated"
	ActionDueDateSuggest     = "duedate.suggest"
	ActionDueDateChanged     = "duedate.changed"
	ActionInternetOffer      = "internet.offer"
	ActionInternetActivated  = "internet.activated"
	ActionAlertsOffer        = "alerts.offer"
	ActionAlertsActivated    = "alerts.activated"
	ActionConclude           = "conclude"
)

// Slot keys for parameter-selection flows.
const (
	SlotInstallmentOption = "installment_option"
	SlotDueDay            = "due_day"
)

// Effect declares how firing an action changes the session.
type Effect int

const (
	// EffectComplete marks the action complete with no pending question.
	EffectComplete Effect = iota
	// EffectAwait marks the action complete and leaves its question pending
	// a user response.
	EffectAwait
)

// Context carries everything a precondition or generator may read. Generators
// are pure given a Context.
type Context struct {
	Profile *profilex.CustomerProfile
	Session *statex.SessionState
	Plans   *plansx.Catalog
	Param   string
	Now     time.Time
}

// Action is one static catalog entry.
type Action struct {
	ID          string
	Description string

	// Eligible gates candidate selection during the scan. Nil means the
	// action never surfaces via scan and fires only through a confirmation
	// or parameter selection on another action.
	Eligible func(Context) bool

	// Generate produces the reply text. Deterministic, side-effect free.
	Generate func(Context) string

	// EffectFor returns the effect of firing; it may depend on data (an
	// offer with no matching plan degrades to a terminal message).
	EffectFor func(Context) Effect

	// AcceptID is the action fired when the user affirms this action's
	// pending question.
	AcceptID string

	// ParamActionID is the action fired when the user selects a parameter
	// in response to this action's pending question. ParamSlot names the
	// session slot the normalized parameter is bound to, and NormalizeParam
	// validates/normalizes the raw selection (ok=false rejects it).
	ParamActionID  string
	ParamSlot      string
	NormalizeParam func(raw string) (string, bool)

	// PostFire applies an extra session effect after the action fires
	// (e.g. recording the bound installment option).
	PostFire func(Context)

	// DeclineWith lists extra action ids marked declined when this action's
	// question is declined (closes multi-step chains like the payment flow).
	DeclineWith []string

	// Concludes marks the terminal action that ends active orchestration.
	Concludes bool
}

func constantEffect(e Effect) func(Context) Effect {
	return func(Context) Effect { return e }
}

// Config carries the tunables of profile-dependent preconditions.
type Config struct {
	// CardExpiryHorizon is how far ahead an active card expiry counts as
	// "expiring soon".
	CardExpiryHorizon time.Duration
	// InternetAllowance is the plan allowance looked up for the internet
	// upsell offer.
	InternetAllowance string
	// DueDateLateThreshold is the recent-late-payment count at which the
	// due-date change suggestion becomes eligible.
	DueDateLateThreshold int
}

func (c Config) withDefaults() Config {
	if c.CardExpiryHorizon <= 0 {
		c.CardExpiryHorizon = 60 * 24 * time.Hour
	}
	if c.InternetAllowance == "" {
		c.InternetAllowance = "15GB"
	}
	if c.DueDateLateThreshold <= 0 {
		c.DueDateLateThreshold = 3
	}
	return c
}

// Catalog is the fixed, ordered action list.
type Catalog struct {
	cfg     Config
	byID    map[string]*Action
	scan    []*Action
	ordered []*Action
}

// New builds the catalog. The scan order below is the priority order among
// simultaneously eligible actions.
func New(cfg Config) *Catalog {
	cfg = cfg.withDefaults()

	actions := buildActions(cfg)

	c := &Catalog{
		cfg:  cfg,
		byID: make(map[string]*Action, len(actions)),
	}
	for _, a := range actions {
		c.byID[a.ID] = a
		c.ordered = append(c.ordered, a)
		if a.Eligible != nil {
			c.scan = append(c.scan, a)
		}
	}
	return c
}

// Get returns an action by id.
func (c *Catalog) Get(id string) (*Action, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// Scan returns the scannable actions in priority order.
func (c *Catalog) Scan() []*Action {
	return c.scan
}

// Actions returns every catalog entry in declaration order.
func (c *Catalog) Actions() []*Action {
	return c.ordered
}
