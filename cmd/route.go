package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbansafe/saferoute-cli/internal/geo"
	"github.com/urbansafe/saferoute-cli/internal/planner"
	"github.com/urbansafe/saferoute-cli/internal/route"
	"github.com/urbansafe/saferoute-cli/internal/scorer"
	"github.com/urbansafe/saferoute-cli/internal/store"
)

var routeFlags struct {
	from            string
	to              string
	via             string
	preferLit       bool
	preferPopulated bool
	preferMainRoads bool
	safetyWeight    float64
	distanceWeight  float64
	jsonOut         bool
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Plan and rank safe routes between two points",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("route"); err != nil {
			return err
		}

		req, err := buildRequest()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		plan, err := env.planner.Plan(ctx, req)
		if err != nil {
			return err
		}

		logPlan(ctx, env.store, req, plan)

		if routeFlags.jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		}
		printPlan(plan)
		return nil
	},
}

func buildRequest() (planner.Request, error) {
	start, err := geo.ParseCoordinate(routeFlags.from)
	if err != nil {
		return planner.Request{}, err
	}
	end, err := geo.ParseCoordinate(routeFlags.to)
	if err != nil {
		return planner.Request{}, err
	}

	req := planner.Request{
		Start: start,
		End:   end,
		Preferences: scorer.Preferences{
			PreferWellLit:   routeFlags.preferLit,
			PreferPopulated: routeFlags.preferPopulated,
			PreferMainRoads: routeFlags.preferMainRoads,
		},
	}

	if routeFlags.via != "" {
		via, err := geo.ParseCoordinate(routeFlags.via)
		if err != nil {
			return planner.Request{}, err
		}
		req.Via = &via
	}
	if routeFlags.safetyWeight >= 0 {
		w := routeFlags.safetyWeight
		req.Preferences.SafetyWeight = &w
	}
	if routeFlags.distanceWeight >= 0 {
		w := routeFlags.distanceWeight
		req.Preferences.DistanceWeight = &w
	}
	return req, nil
}

// newQueryRecord summarizes a served plan for the query log: endpoints,
// requested preferences as JSON, and the picked route's fingerprint,
// safety, and composite.
func newQueryRecord(req planner.Request, plan *planner.Plan) store.QueryRecord {
	rec := store.QueryRecord{
		StartLat:   req.Start.Lat,
		StartLon:   req.Start.Lon,
		EndLat:     req.End.Lat,
		EndLon:     req.End.Lon,
		RouteCount: len(plan.Routes),
	}
	if prefs, err := json.Marshal(req.Preferences); err == nil {
		rec.Preferences = string(prefs)
	}
	if best := plan.Best(); best != nil {
		rec.BestComposite = best.Composite
		if fp, ok := route.Fingerprint(best.Geometry); ok {
			rec.BestFingerprint = fp
		}
		if best.SafetyMetrics != nil {
			rec.BestSafety = best.SafetyScore
		}
	}
	return rec
}

// logPlan records the query outcome; failure to log never fails the command.
func logPlan(ctx context.Context, st store.Store, req planner.Request, plan *planner.Plan) {
	if _, err := st.LogQuery(ctx, newQueryRecord(req, plan)); err != nil {
		zap.L().Warn("query log failed", zap.Error(err))
	}
}

func printPlan(plan *planner.Plan) {
	for _, r := range plan.Routes {
		marker := " "
		if r.IsRecommended {
			marker = "*"
		}
		fmt.Printf("%s %d. [%s] %s, %s, safety %s (score %.3f)\n",
			marker, r.Rank, r.Category, r.DistanceDisplay, r.DurationDisplay, r.SafetyDisplay, r.Composite)
		fmt.Printf("     %s\n", r.Description)
		for _, reason := range r.Reasons {
			fmt.Printf("     + %s\n", reason)
		}
		if r.Warning != "" {
			fmt.Printf("     ! %s\n", r.Warning)
		}
	}
}

func init() {
	routeCmd.Flags().StringVar(&routeFlags.from, "from", "", "start coordinate as lat,lon (required)")
	routeCmd.Flags().StringVar(&routeFlags.to, "to", "", "end coordinate as lat,lon (required)")
	routeCmd.Flags().StringVar(&routeFlags.via, "via", "", "optional waypoint as lat,lon")
	routeCmd.Flags().BoolVar(&routeFlags.preferLit, "prefer-lit", false, "prefer well-lit streets")
	routeCmd.Flags().BoolVar(&routeFlags.preferPopulated, "prefer-populated", false, "prefer busy, populated areas")
	routeCmd.Flags().BoolVar(&routeFlags.preferMainRoads, "prefer-main-roads", false, "prefer main roads")
	routeCmd.Flags().Float64Var(&routeFlags.safetyWeight, "safety-weight", -1, "safety weight override (0-1)")
	routeCmd.Flags().Float64Var(&routeFlags.distanceWeight, "distance-weight", -1, "distance weight override (0-1)")
	routeCmd.Flags().BoolVar(&routeFlags.jsonOut, "json", false, "emit the full plan as JSON")
	routeCmd.MarkFlagRequired("from") //nolint:errcheck
	routeCmd.MarkFlagRequired("to")   //nolint:errcheck
	rootCmd.AddCommand(routeCmd)
}
