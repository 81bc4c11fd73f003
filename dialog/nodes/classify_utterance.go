package nodes

import (
	"context"
	"errors"
	"fmt"

	catalogx "github.com/paytalk/dialogue-orchestrator/dialog/catalog"
	"github.com/paytalk/dialogue-orchestrator/dialog/classify"
)

// ClassifyUtterance runs the classifier when a confirmation is outstanding.
// With nothing awaiting, the utterance is a free-form request and the
// classification is irrelevant to the scan.
func ClassifyUtterance(
	ctx context.Context,
	in *GraphState,
	classifier classify.Classifier,
	cat *catalogx.Catalog,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, errors.New("graph session is nil")
	}

	if in.Session.Awaiting == "" {
		in.Classification = classify.Result{Kind: classify.Unrecognized}
		return in, nil
	}

	pending, ok := cat.Get(in.Session.Awaiting)
	if !ok {
		return nil, fmt.Errorf("unknown awaiting action %q", in.Session.Awaiting)
	}

	result, err := classifier.Classify(ctx, classify.Request{
		Utterance:        in.Text,
		AwaitingAction:   pending.ID,
		ExpectsParameter: pending.ParamActionID != "",
	})
	if err != nil {
		return nil, fmt.Errorf("classify utterance: %w", err)
	}

	in.Classification = result
	return in, nil
}
