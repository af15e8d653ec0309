package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andes-group/invest-cli/internal/model"
	"github.com/andes-group/invest-cli/internal/sources"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server for report requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: buildRouter(ctx, env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter assembles the webhook routes. Report generation runs
// against serverCtx so in-flight runs stop with the server, not with
// the webhook request.
func buildRouter(serverCtx context.Context, env *env) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":        "ok",
			"model_circuit": env.breaker.State().String(),
		})
	})

	r.Post("/webhook/report", func(w http.ResponseWriter, req *http.Request) {
		var body model.ReportRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if err := sources.ValidateRequest(body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		run, err := env.store.CreateRun(req.Context(), body)
		if err != nil {
			zap.L().Error("webhook: create run", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not create run"})
			return
		}

		go runReport(serverCtx, env, run.ID, body)

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"run_id": run.ID,
		})
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, err := env.store.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	return r
}

// runReport drives one run through its lifecycle, persisting the
// outcome.
func runReport(ctx context.Context, env *env, runID string, req model.ReportRequest) {
	if env.orchestrator == nil {
		if err := env.store.FailRun(ctx, runID, "pipeline not initialized"); err != nil {
			zap.L().Error("webhook: fail run", zap.String("run_id", runID), zap.Error(err))
		}
		return
	}

	if err := env.store.UpdateRunStatus(ctx, runID, model.RunStatusRunning); err != nil {
		zap.L().Error("webhook: mark run running", zap.String("run_id", runID), zap.Error(err))
	}

	rep, err := env.orchestrator.Generate(ctx, req)
	if err != nil {
		zap.L().Error("webhook: report failed",
			zap.String("run_id", runID),
			zap.String("url", req.ListingURL),
			zap.Error(err),
		)
		if ferr := env.store.FailRun(ctx, runID, err.Error()); ferr != nil {
			zap.L().Error("webhook: fail run", zap.String("run_id", runID), zap.Error(ferr))
		}
		return
	}

	if err := env.store.CompleteRun(ctx, runID, rep); err != nil {
		zap.L().Error("webhook: persist report", zap.String("run_id", runID), zap.Error(err))
		return
	}
	zap.L().Info("webhook: report complete",
		zap.String("run_id", runID),
		zap.String("origin", string(rep.Meta.AnalysisOrigin)),
		zap.Float64("confidence_pct", rep.Meta.ConfidencePct),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
