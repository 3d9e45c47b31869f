package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/deorejayesh9663/UniTrade/api/responses"
	"github.com/deorejayesh9663/UniTrade/pkg/config"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is any dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-UniTrade-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency and answers 503 naming the ones that failed.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-UniTrade-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var failed []string
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": name, "error": err.Error()}), "readiness check failed")
				}
				failed = append(failed, name)
			}
		}
		if len(failed) > 0 {
			sort.Strings(failed)
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").
				WithDetails(map[string]any{"failed": failed}))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
