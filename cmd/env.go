package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/andes-group/invest-cli/internal/llm"
	"github.com/andes-group/invest-cli/internal/report"
	"github.com/andes-group/invest-cli/internal/resilience"
	"github.com/andes-group/invest-cli/internal/sources"
	"github.com/andes-group/invest-cli/internal/store"
	"github.com/andes-group/invest-cli/pkg/goplaceit"
	"github.com/andes-group/invest-cli/pkg/mesimulator"
	"github.com/andes-group/invest-cli/pkg/portal"
)

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

// env bundles the wired pipeline and its shared protection state.
type env struct {
	orchestrator *report.Orchestrator
	breaker      *resilience.Breaker
	store        store.Store
}

func (e *env) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

// initPipeline wires the three source clients, the analyzer and the
// orchestrator from config.
func initPipeline(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	extractor := sources.NewPortalExtractor(
		portal.New(
			portal.WithTimeout(time.Duration(cfg.Portal.TimeoutSecs)*time.Second),
			portal.WithHeadless(cfg.Portal.Headless),
		),
		cfg.Report.UFValueCLP,
	)

	searcher := sources.NewSearchAdapter(
		goplaceit.NewClient(
			goplaceit.WithBaseURL(cfg.Search.BaseURL),
			goplaceit.WithRateLimit(cfg.Search.RatePerSec),
		),
		cfg.Report.UFValueCLP,
	)

	simulator := sources.NewSimulatorAdapter(
		mesimulator.NewClient(
			mesimulator.WithBaseURL(cfg.Simulator.BaseURL),
			mesimulator.WithRateLimit(cfg.Simulator.RatePerSec),
		),
	)

	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		OnStateChange: func(from, to resilience.State) {
			zap.L().Warn("model circuit state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	var analyzer report.Analyzer
	if cfg.Anthropic.Key != "" {
		budget := resilience.NewTokenBudget(cfg.Budget.TokensPerHour, cfg.Budget.Window())
		analyzer = llm.NewAnalyzer(llm.NewClient(cfg.Anthropic.Key), breaker, budget, cfg.Anthropic.Analyzer())
	} else {
		zap.L().Warn("no anthropic key configured, reports will use fallback analysis")
	}

	cfg.Report.Costs = cfg.CostParams()

	return &env{
		orchestrator: report.NewOrchestrator(extractor, searcher, simulator, analyzer, cfg.Report),
		breaker:      breaker,
		store:        st,
	}, nil
}
