// Package httpd is the inbound webhook boundary: it maps messaging-provider
// payloads to engine calls and engine output back to outbound replies.
package httpd

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	contractx "github.com/paytalk/dialogue-orchestrator/dialog/contract"
	"github.com/paytalk/dialogue-orchestrator/pkg/metrics"
)

type Config struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

// User-safe fallback replies. Internal error detail goes to the logs only.
const (
	replyUnavailable = "Desculpe, estou com uma instabilidade no momento. Pode tentar novamente em alguns instantes?"
	replyUnknownUser = "Não encontrei seu cadastro por aqui. Pode confirmar se está usando o número cadastrado?"
	replyConcluded   = "Nossa conversa já foi concluída. Se precisar de algo novo, entre em contato pelos nossos canais de atendimento!"
)

type Server struct {
	handler  contractx.MessageHandler
	recorder metrics.Recorder
	router   http.Handler
}

func New(handler contractx.MessageHandler, recorder metrics.Recorder) *Server {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	s := &Server{handler: handler, recorder: recorder}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(req *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(req).Info().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("http request")
	}))

	r.Post("/bot", s.handleWebhook)
	r.Post("/v1/messages", s.handleJSON)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router = r
	return s
}

func (s *Server) Router() http.Handler {
	return s.router
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// handleWebhook speaks the Twilio messaging webhook contract: form fields
// From/Body in, TwiML out.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	userID := strings.TrimSpace(r.FormValue("From"))
	body := strings.TrimSpace(r.FormValue("Body"))
	if userID == "" || body == "" {
		http.Error(w, "missing From or Body", http.StatusBadRequest)
		return
	}

	s.recorder.IncMessage("http")
	reply := s.reply(r, userID, body)

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(twimlResponse{Message: reply})
}

type messageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type messageResponse struct {
	ReplyID string `json:"reply_id"`
	Reply   string `json:"reply"`
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	text := strings.TrimSpace(req.Text)
	if userID == "" || text == "" {
		http.Error(w, "missing user_id or text", http.StatusBadRequest)
		return
	}

	s.recorder.IncMessage("http")
	reply := s.reply(r, userID, text)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(messageResponse{
		ReplyID: uuid.NewString(),
		Reply:   reply,
	})
}

// reply runs the engine and translates failures into user-safe text.
func (s *Server) reply(r *http.Request, userID, text string) string {
	reply, err := s.handler.HandleMessage(r.Context(), userID, text)
	if err == nil {
		return reply
	}

	hlog.FromRequest(r).Error().Err(err).Str("user_id", userID).Msg("decide cycle failed")
	switch {
	case errors.Is(err, contractx.ErrSessionConcluded):
		return replyConcluded
	case errors.Is(err, contractx.ErrProfileNotFound):
		return replyUnknownUser
	default:
		return replyUnavailable
	}
}

// NewHTTPServer wires the router into an http.Server with the configured
// timeouts. The caller owns ListenAndServe and Shutdown.
func NewHTTPServer(cfg Config, s *Server) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
