// Package natsx is the NATS request/reply boundary for deployments where
// inbound messages arrive from a broker instead of an HTTP webhook.
package natsx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	contractx "github.com/paytalk/dialogue-orchestrator/dialog/contract"
	"github.com/paytalk/dialogue-orchestrator/pkg/metrics"
)

type Config struct {
	URL     string        `envconfig:"URL" split_words:"true" default:"nats://127.0.0.1:4222"`
	Subject string        `envconfig:"SUBJECT" split_words:"true" default:"dialogue.inbound"`
	Name    string        `envconfig:"NAME" split_words:"true" default:"dialogue-orchestrator"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

type inboundMessage struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type outboundMessage struct {
	UserID    string `json:"user_id"`
	Reply     string `json:"reply"`
	ErrorCode string `json:"error_code,omitempty"`
}

const (
	replyUnavailable = "Desculpe, estou com uma instabilidade no momento. Pode tentar novamente em alguns instantes?"
	replyConcluded   = "Nossa conversa já foi concluída. Se precisar de algo novo, entre em contato pelos nossos canais de atendimento!"
)

type Transport struct {
	conn     *nats.Conn
	cfg      Config
	handler  contractx.MessageHandler
	recorder metrics.Recorder
	sub      *nats.Subscription
}

func New(cfg Config, handler contractx.MessageHandler, recorder metrics.Recorder) (*Transport, error) {
	if recorder == nil {
		recorder = metrics.Noop{}
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("connected to nats")

	return &Transport{
		conn:     conn,
		cfg:      cfg,
		handler:  handler,
		recorder: recorder,
	}, nil
}

func (t *Transport) Start() error {
	sub, err := t.conn.Subscribe(t.cfg.Subject, t.handleInbound)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", t.cfg.Subject, err)
	}
	t.sub = sub
	log.Info().Str("subject", t.cfg.Subject).Msg("subscribed to inbound subject")
	return nil
}

func (t *Transport) handleInbound(msg *nats.Msg) {
	var in inboundMessage
	if err := json.Unmarshal(msg.Data, &in); err != nil {
		log.Warn().Err(err).Msg("invalid inbound payload")
		t.respond(msg, outboundMessage{
			Reply:     replyUnavailable,
			ErrorCode: "bad_request",
		})
		return
	}

	t.recorder.IncMessage("nats")

	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.Timeout)
	defer cancel()

	reply, err := t.handler.HandleMessage(ctx, in.UserID, in.Text)
	if err != nil {
		log.Error().Err(err).Str("user_id", in.UserID).Msg("decide cycle failed")
		t.respond(msg, outboundMessage{
			UserID:    in.UserID,
			Reply:     safeReply(err),
			ErrorCode: errorCode(err),
		})
		return
	}

	t.respond(msg, outboundMessage{UserID: in.UserID, Reply: reply})
}

func (t *Transport) respond(msg *nats.Msg, out outboundMessage) {
	payload, err := json.Marshal(out)
	if err != nil {
		log.Error().Err(err).Msg("marshal outbound message")
		return
	}
	if err := msg.Respond(payload); err != nil {
		log.Error().Err(err).Msg("send outbound message")
	}
}

func safeReply(err error) string {
	if errors.Is(err, contractx.ErrSessionConcluded) {
		return replyConcluded
	}
	return replyUnavailable
}

func errorCode(err error) string {
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
	default:
		return "internal"
	}
}

func (t *Transport) Close() {
	if t.sub != nil {
		_ = t.sub.Drain()
	}
	if t.conn != nil {
		t.conn.Close()
		log.Info().Msg("nats connection closed")
	}
}
