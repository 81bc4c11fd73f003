package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	catalogx "github.com/paytalk/dialogue-orchestrator/dialog/catalog"
	"github.com/paytalk/dialogue-orchestrator/dialog/classify"
	contractx "github.com/paytalk/dialogue-orchestrator/dialog/contract"
	"github.com/paytalk/dialogue-orchestrator/dialog/engine"
	plansx "github.com/paytalk/dialogue-orchestrator/dialog/plans"
	profilex "github.com/paytalk/dialogue-orchestrator/dialog/profile"
	statex "github.com/paytalk/dialogue-orchestrator/dialog/state"
	configx "github.com/paytalk/dialogue-orchestrator/pkg/config"
	_ "github.com/paytalk/dialogue-orchestrator/pkg/logger/autoload"
	"github.com/paytalk/dialogue-orchestrator/pkg/metrics"
	openrouterx "github.com/paytalk/dialogue-orchestrator/pkg/openrouter"
	"github.com/paytalk/dialogue-orchestrator/transport/httpd"
	"github.com/paytalk/dialogue-orchestrator/transport/natsx"
)

type AppConfig struct {
	// Backend selection. Everything defaults to the local file/memory setup
	// so the bot runs with no infrastructure at all.
	StoreBackend      string `envconfig:"STORE_BACKEND" split_words:"true" default:"memory"`
	ProfileBackend    string `envconfig:"PROFILE_BACKEND" split_words:"true" default:"csv"`
	PlanBackend       string `envconfig:"PLAN_BACKEND" split_words:"true" default:"csv"`
	ClassifierBackend string `envconfig:"CLASSIFIER_BACKEND" split_words:"true" default:"rules"`

	CustomerCSVPath string `envconfig:"CUSTOMER_CSV_PATH" split_words:"true" default:"data/client_data.csv"`
	PlanCSVPath     string `envconfig:"PLAN_CSV_PATH" split_words:"true" default:"data/internet_plans.csv"`
	SQLitePath      string `envconfig:"SQLITE_PATH" split_words:"true" default:"data/sessions.db"`

	SessionTTL    time.Duration `envconfig:"SESSION_TTL" split_words:"true" default:"24h"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" split_words:"true" default:"10m"`

	CardExpiryHorizonDays int    `envconfig:"CARD_EXPIRY_HORIZON_DAYS" split_words:"true" default:"60"`
	InternetAllowance     string `envconfig:"INTERNET_ALLOWANCE" split_words:"true" default:"15GB"`
	DueDateLateThreshold  int    `envconfig:"DUE_DATE_LATE_THRESHOLD" split_words:"true" default:"3"`

	NATSEnabled bool `envconfig:"NATS_ENABLED" split_words:"true" default:"false"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := buildStore(*appCfg)
	profiles := buildProfileSource(*appCfg)
	planSource := buildPlanSource(*appCfg)
	classifier := buildClassifier(ctx, *appCfg)

	cat := catalogx.New(catalogx.Config{
		CardExpiryHorizon:    time.Duration(appCfg.CardExpiryHorizonDays) * 24 * time.Hour,
		InternetAllowance:    appCfg.InternetAllowance,
		DueDateLateThreshold: appCfg.DueDateLateThreshold,
	})

	recorder := metrics.NewPrometheusRecorder()

	eng, err := engine.New(store, profiles, planSource, classifier, cat,
		engine.WithRecorder(recorder),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build engine")
	}

	eng.StartSweeper(ctx, appCfg.SweepInterval, appCfg.SessionTTL)

	if appCfg.NATSEnabled {
		natsCfg := configx.MustNew[natsx.Config]("NATS")
		natsTransport, err := natsx.New(*natsCfg, eng, recorder)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect nats transport")
		}
		if err := natsTransport.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start nats transport")
		}
		defer natsTransport.Close()
	}

	httpCfg := configx.MustNew[httpd.Config]("HTTP")
	srv := httpd.NewHTTPServer(*httpCfg, httpd.New(eng, recorder))

	go func() {
		log.Info().Str("addr", httpCfg.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown did not finish cleanly")
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	log.Info().Msg("bye")
}

func buildStore(cfg AppConfig) statex.Store {
	switch cfg.StoreBackend {
	case "redis":
		redisCfg := configx.MustNew[statex.RedisConfig]("REDIS")
		store, err := statex.NewRedisStore(*redisCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open redis session store")
		}
		return store
	case "sqlite":
		store, err := statex.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open sqlite session store")
		}
		return store
	case "memory":
		return statex.NewMemoryStore()
	default:
		log.Fatal().Str("backend", cfg.StoreBackend).Msg("unknown store backend")
		return nil
	}
}

func buildProfileSource(cfg AppConfig) contractx.ProfileSource {
	switch cfg.ProfileBackend {
	case "postgres":
		pgCfg := configx.MustNew[profilex.PostgresConfig]("CUSTOMER_PG")
		src, err := profilex.NewPostgresSource(*pgCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open customer data store")
		}
		return src
	case "csv":
		return profilex.NewCSVSource(cfg.CustomerCSVPath)
	default:
		log.Fatal().Str("backend", cfg.ProfileBackend).Msg("unknown profile backend")
		return nil
	}
}

func buildPlanSource(cfg AppConfig) contractx.PlanSource {
	switch cfg.PlanBackend {
	case "postgres":
		pgCfg := configx.MustNew[plansx.PostgresConfig]("PLAN_PG")
		src, err := plansx.NewPostgresSource(*pgCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open plan data store")
		}
		return src
	case "csv":
		return plansx.NewCSVSource(cfg.PlanCSVPath)
	default:
		log.Fatal().Str("backend", cfg.PlanBackend).Msg("unknown plan backend")
		return nil
	}
}

func buildClassifier(ctx context.Context, cfg AppConfig) classify.Classifier {
	switch cfg.ClassifierBackend {
	case "llm":
		openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
		c, err := classify.NewLLMClassifier(ctx, openRouterCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build llm classifier")
		}
		return c
	case "rules":
		return classify.NewRuleClassifier()
	default:
		log.Fatal().Str("backend", cfg.ClassifierBackend).Msg("unknown classifier backend")
		return nil
	}
}
