package nodes

import (
	"errors"
	"strings"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, errors.New("graph state is nil")
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		// Decide guarantees non-empty text; this is a hard invariant.
		return GraphOutput{}, errors.New("decide produced empty reply")
	}
	return GraphOutput{Reply: reply, Action: in.FiredAction}, nil
}
