package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/andes-group/invest-cli/internal/model"
	"github.com/andes-group/invest-cli/internal/resilience"
)

// Outcome classifies how an analysis attempt ended. The orchestrator
// never inspects error strings; it branches on this value.
type Outcome int

const (
	// OutcomeOK means the model returned text.
	OutcomeOK Outcome = iota
	// OutcomeCircuitOpen means the call was short-circuited without
	// touching the service.
	OutcomeCircuitOpen
	// OutcomeBudget means the rolling token budget was exhausted.
	OutcomeBudget
	// OutcomeNonRetryable means the first real failure was permanent.
	OutcomeNonRetryable
	// OutcomeRetriesExhausted means every attempt failed transiently.
	OutcomeRetriesExhausted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeCircuitOpen:
		return "circuit-open"
	case OutcomeBudget:
		return "budget-exhausted"
	case OutcomeNonRetryable:
		return "non-retryable"
	case OutcomeRetriesExhausted:
		return "retries-exhausted"
	default:
		return "unknown"
	}
}

// Result carries the analysis text plus enough context for the caller to
// decide between model output and fallback synthesis.
type Result struct {
	Outcome Outcome
	Text    string
	Usage   model.TokenUsage
	Err     error
}

// Config holds the analyzer's model parameters.
type Config struct {
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"max_tokens"`
}

// Analyzer runs analysis calls through the full protection stack:
// budget gate, circuit breaker, retry with backoff.
type Analyzer struct {
	client  Client
	breaker *resilience.Breaker
	budget  *resilience.TokenBudget
	retry   resilience.RetryConfig
	cfg     Config
}

// NewAnalyzer wires an analyzer. breaker and budget are shared
// process-wide; passing nil budget disables budget enforcement.
func NewAnalyzer(client Client, breaker *resilience.Breaker, budget *resilience.TokenBudget, cfg Config) *Analyzer {
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("llm")
	return &Analyzer{
		client:  client,
		breaker: breaker,
		budget:  budget,
		retry:   retry,
		cfg:     cfg,
	}
}

// Analyze sends one analysis request. It never panics and always returns
// a classified Result; the zero-value text means no model output exists.
func (a *Analyzer) Analyze(ctx context.Context, system, user string) Result {
	if a.budget != nil {
		if err := a.budget.Allow(); err != nil {
			zap.L().Warn("token budget exhausted, skipping model call")
			return Result{Outcome: OutcomeBudget, Err: err}
		}
	}

	if err := a.breaker.Allow(); err != nil {
		zap.L().Warn("circuit open, skipping model call",
			zap.Int("failures", a.breaker.Failures()))
		return Result{Outcome: OutcomeCircuitOpen, Err: err}
	}

	start := time.Now()
	resp, err := resilience.Retry(ctx, a.retry, func(ctx context.Context) (*MessageResponse, error) {
		// Re-checked per attempt: a failed half-open probe reopens the
		// circuit mid-retry, and the remaining attempts must not reach
		// the service.
		if err := a.breaker.Allow(); err != nil {
			return nil, err
		}
		resp, err := a.client.CreateMessage(ctx, MessageRequest{
			Model:     a.cfg.Model,
			MaxTokens: a.cfg.MaxTokens,
			System:    system,
			Messages:  []Message{{Role: "user", Content: user}},
		})
		a.breaker.Record(err)
		if err == nil && a.budget != nil {
			a.budget.Spend(resp.Usage.Total())
		}
		return resp, err
	})
	if err != nil {
		outcome := OutcomeNonRetryable
		switch {
		case errors.Is(err, resilience.ErrCircuitOpen):
			outcome = OutcomeCircuitOpen
		case resilience.IsTransient(err):
			outcome = OutcomeRetriesExhausted
		}
		zap.L().Error("model call failed",
			zap.String("outcome", outcome.String()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return Result{Outcome: outcome, Err: err}
	}

	zap.L().Info("model call succeeded",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.String("stop_reason", resp.StopReason),
		zap.Duration("elapsed", time.Since(start)))
	LogCost(resp.Usage, a.cfg.Model)

	return Result{Outcome: OutcomeOK, Text: resp.Text, Usage: resp.Usage}
}

// BreakerState exposes the shared breaker state for health reporting.
func (a *Analyzer) BreakerState() resilience.State {
	return a.breaker.State()
}
