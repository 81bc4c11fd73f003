package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	promptx "github.com/paytalk/dialogue-orchestrator/dialog/prompt"
	openrouterx "github.com/paytalk/dialogue-orchestrator/pkg/openrouter"
)

// LLMClassifier delegates classification to a chat model and falls back to
// the rule matcher when the model call fails or returns garbage. The closed
// result set keeps the orchestrator contract independent of the model.
type LLMClassifier struct {
	model    model.ToolCallingChatModel
	fallback *RuleClassifier
}

func NewLLMClassifier(ctx context.Context, builder openrouterx.LLMBuilder) (*LLMClassifier, error) {
	m, err := builder.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("build classifier model: %w", err)
	}
	return &LLMClassifier{
		model:    m,
		fallback: NewRuleClassifier(),
	}, nil
}

func (c *LLMClassifier) Classify(ctx context.Context, req Request) (Result, error) {
	messages := []*schema.Message{
		schema.SystemMessage(promptx.Classifier()),
		schema.UserMessage(fmt.Sprintf(
			"Pending question: %s\nExpects a parameter: %t\nCustomer message: %s",
			req.AwaitingAction, req.ExpectsParameter, req.Utterance,
		)),
	}

	resp, err := c.model.Generate(ctx, messages)
	if err != nil {
		log.Warn().Err(err).Msg("llm classifier failed, falling back to rules")
		return c.fallback.Classify(ctx, req)
	}

	if result, ok := parseLabel(resp.Content); ok {
		return result, nil
	}
	log.Warn().Str("content", resp.Content).Msg("llm classifier returned unknown label, falling back to rules")
	return c.fallback.Classify(ctx, req)
}

func parseLabel(content string) (Result, bool) {
	line := strings.TrimSpace(content)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	upper := strings.ToUpper(line)

	switch {
	case upper == "AFFIRM":
		return Result{Kind: Affirm}, true
	case upper == "DECLINE":
		return Result{Kind: Decline}, true
	case upper == "UNRECOGNIZED":
		return Result{Kind: Unrecognized}, true
	case strings.HasPrefix(upper, "SELECT:"):
		value := strings.TrimSpace(line[len("SELECT:"):])
		if value == "" {
			return Result{}, false
		}
		return Result{Kind: SelectParameter, Value: value}, true
	}
	return Result{}, false
}
