package classify

import (
	"context"
	"regexp"
	"strings"
)

var (
	installmentPattern = regexp.MustCompile(`(\d+)\s*parcelas?`)
	dueDayPattern      = regexp.MustCompile(`dia\s*(\d{1,2})`)
	bareNumberPattern  = regexp.MustCompile(`^\d{1,2}$`)
)

var declineWords = map[string]bool{
	"não": true, "nao": true, "negativo": true, "recuso": true,
	"dispenso": true, "depois": true, "nunca": true,
}

var affirmWords = map[string]bool{
	"sim": true, "quero": true, "pode": true, "claro": true,
	"confirmo": true, "ok": true, "aceito": true, "desejo": true,
	"vamos": true, "confirmar": true, "isso": true, "beleza": true,
}

// RuleClassifier is the default keyword/pattern matcher for pt-BR
// utterances. Deterministic and dependency-free.
type RuleClassifier struct{}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

func (c *RuleClassifier) Classify(_ context.Context, req Request) (Result, error) {
	text := strings.ToLower(strings.TrimSpace(req.Utterance))
	if text == "" {
		return Result{Kind: Unrecognized}, nil
	}

	// Parameter selections are the most specific signals; check them before
	// affirm words ("quero 2 parcelas" affirms and selects at once).
	if req.ExpectsParameter {
		if m := installmentPattern.FindStringSubmatch(text); m != nil {
			return Result{Kind: SelectParameter, Value: m[1]}, nil
		}
		if m := dueDayPattern.FindStringSubmatch(text); m != nil {
			return Result{Kind: SelectParameter, Value: m[1]}, nil
		}
		if bareNumberPattern.MatchString(text) {
			return Result{Kind: SelectParameter, Value: text}, nil
		}
	}

	// Negation wins over affirmation: "não quero" declines.
	words := strings.Fields(strings.Map(stripPunct, text))
	for _, w := range words {
		if declineWords[w] {
			return Result{Kind: Decline}, nil
		}
	}
	for _, w := range words {
		if affirmWords[w] {
			return Result{Kind: Affirm}, nil
		}
	}

	return Result{Kind: Unrecognized}, nil
}

func stripPunct(r rune) rune {
	switch r {
	case '.', ',', '!', '?', ';', ':':
		return ' '
	}
	return r
}
