package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbansafe/saferoute-cli/internal/geo"
	"github.com/urbansafe/saferoute-cli/internal/planner"
	"github.com/urbansafe/saferoute-cli/internal/store"
)

var servePort int

// routePlanner is the planning boundary the HTTP layer depends on.
type routePlanner interface {
	Plan(ctx context.Context, req planner.Request) (*planner.Plan, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP routing API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

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
			Handler: newRouter(env.planner, env.store, cfg.Server.CORSOrigins),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background()) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(p routePlanner, st store.Store, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", handleHealth)
	r.Post("/api/routes", handlePlanRoutes(p, st))
	r.Get("/api/datasets/status", handleDatasetStatus(st))
	r.Get("/api/queries", handleListQueries(st))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handlePlanRoutes(p routePlanner, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req planner.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !validCoord(req.Start) || !validCoord(req.End) {
			writeError(w, http.StatusBadRequest, "start and end coordinates are required")
			return
		}

		plan, err := p.Plan(r.Context(), req)
		if err != nil {
			zap.L().Error("route planning failed",
				zap.Float64("start_lat", req.Start.Lat),
				zap.Float64("end_lat", req.End.Lat),
				zap.Error(err),
			)
			writeError(w, http.StatusBadGateway, "no routes available")
			return
		}

		logServedPlan(r.Context(), st, req, plan)
		writeJSON(w, http.StatusOK, plan)
	}
}

func handleDatasetStatus(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := st.CountDatasets(r.Context())
		if err != nil {
			zap.L().Error("dataset status failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "dataset status unavailable")
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

func handleListQueries(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.QueryFilter{}
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			filter.Limit = n
		}

		queries, err := st.ListQueries(r.Context(), filter)
		if err != nil {
			zap.L().Error("query listing failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "query log unavailable")
			return
		}
		if queries == nil {
			queries = []store.QueryRecord{}
		}
		writeJSON(w, http.StatusOK, queries)
	}
}

func logServedPlan(ctx context.Context, st store.Store, req planner.Request, plan *planner.Plan) {
	if _, err := st.LogQuery(ctx, newQueryRecord(req, plan)); err != nil {
		zap.L().Warn("query log failed", zap.Error(err))
	}
}

// validCoord rejects out-of-range values and the zero value, which a JSON
// body produces when a coordinate is omitted.
func validCoord(c geo.Coordinate) bool {
	return c != (geo.Coordinate{}) && c.InBounds()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
