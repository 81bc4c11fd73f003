// Package classify maps a raw utterance to the closed response set the
// engine understands. The strategy is pluggable; the engine only depends on
// the Classifier contract.
package classify

import "context"

// Kind is the classification outcome.
type Kind string

const (
	Affirm          Kind = "affirm"
	Decline         Kind = "decline"
	SelectParameter Kind = "select_parameter"
	Unrecognized    Kind = "unrecognized"
)

// Result carries the outcome and, for SelectParameter, the raw value.
type Result struct {
	Kind  Kind
	Value string
}

// Request is the classification input. AwaitingAction and ExpectsParameter
// describe the pending question, letting classifiers resolve bare values
// ("2") that would otherwise be ambiguous.
type Request struct {
	Utterance        string
	AwaitingAction   string
	ExpectsParameter bool
}

type Classifier interface {
	Classify(ctx context.Context, req Request) (Result, error)
}
