package nodes

import (
	"errors"
	"fmt"

	catalogx "github.com/paytalk/dialogue-orchestrator/dialog/catalog"
	"github.com/paytalk/dialogue-orchestrator/dialog/classify"
	contractx "github.com/paytalk/dialogue-orchestrator/dialog/contract"
)

// FallbackReply guards step 4 of the decision algorithm: the engine never
// returns empty text.
const FallbackReply = "No momento não tenho mais nenhuma ação pendente. Se precisar de algo, é só chamar!"

// Decide is the decision core: apply an outstanding confirmation if one is
// pending, otherwise scan the catalog in priority order and fire the first
// eligible action.
func Decide(in *GraphState, cat *catalogx.Catalog) (*GraphState, error) {
	if in == nil || in.Session == nil || in.Profile == nil {
		return nil, errors.New("graph state is incomplete")
	}

	s := in.Session
	if s.Concluded {
		return nil, contractx.ErrSessionConcluded
	}

	if s.Awaiting == "" {
		return scanAndFire(in, cat)
	}

	pending, ok := cat.Get(s.Awaiting)
	if !ok {
		return nil, fmt.Errorf("unknown awaiting action %q", s.Awaiting)
	}

	switch in.Classification.Kind {
	case classify.Affirm:
		if pending.AcceptID == "" {
			// The pending question expects a concrete option, not a yes.
			return reprompt(in, pending)
		}
		accept, ok := cat.Get(pending.AcceptID)
		if !ok {
			return nil, fmt.Errorf("unknown accept action %q", pending.AcceptID)
		}
		s.Awaiting = ""
		return fire(in, accept, "")

	case classify.Decline:
		s.Awaiting = ""
		s.MarkDeclined(pending.ID, in.Now)
		for _, id := range pending.DeclineWith {
			s.MarkDeclined(id, in.Now)
		}
		// Move the conversation along: the reply is the next step.
		return scanAndFire(in, cat)

	case classify.SelectParameter:
		if pending.ParamActionID == "" || pending.NormalizeParam == nil {
			return reprompt(in, pending)
		}
		normalized, ok := pending.NormalizeParam(in.Classification.Value)
		if !ok {
			return reprompt(in, pending)
		}
		next, ok := cat.Get(pending.ParamActionID)
		if !ok {
			return nil, fmt.Errorf("unknown parameter action %q", pending.ParamActionID)
		}
		s.SetSlot(pending.ParamSlot, normalized)
		s.Awaiting = ""
		return fire(in, next, normalized)

	default:
		// Unrecognized: re-emit the pending question unchanged, so retries
		// are idempotent.
		return reprompt(in, pending)
	}
}

func scanAndFire(in *GraphState, cat *catalogx.Catalog) (*GraphState, error) {
	s := in.Session
	evalCtx := catalogx.Context{
		Profile: in.Profile,
		Session: s,
		Plans:   in.Plans,
		Now:     in.Now,
	}

	for _, a := range cat.Scan() {
		if s.IsTerminal(a.ID) {
			continue
		}
		if !a.Eligible(evalCtx) {
			continue
		}
		return fire(in, a, "")
	}

	in.Reply = FallbackReply
	in.FiredAction = ""
	return in, nil
}

func fire(in *GraphState, a *catalogx.Action, param string) (*GraphState, error) {
	s := in.Session
	genCtx := catalogx.Context{
		Profile: in.Profile,
		Session: s,
		Plans:   in.Plans,
		Param:   param,
		Now:     in.Now,
	}

	text := a.Generate(genCtx)
	effect := a.EffectFor(genCtx)

	s.MarkCompleted(a.ID, in.Now)
	if a.PostFire != nil {
		a.PostFire(genCtx)
	}

	s.Awaiting = ""
	if effect == catalogx.EffectAwait {
		s.Awaiting = a.ID
	}
	if a.Concludes {
		s.Concluded = true
	}

	in.Reply = text
	in.FiredAction = a.ID
	return in, nil
}

func reprompt(in *GraphState, pending *catalogx.Action) (*GraphState, error) {
	genCtx := catalogx.Context{
		Profile: in.Profile,
		Session: in.Session,
		Plans:   in.Plans,
		Now:     in.Now,
	}
	in.Reply = pending.Generate(genCtx)
	in.FiredAction = ""
	return in, nil
}
