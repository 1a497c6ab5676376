package core

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	deploymentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kubidu_deployments_created_total",
		Help: "Deployments created, by trigger.",
	}, []string{"trigger"})

	jobsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kubidu_jobs_enqueued_total",
		Help: "Jobs handed to the queue, by kind.",
	}, []string{"kind"})

	sideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kubidu_side_effect_failures_total",
		Help: "Best-effort side effects that failed and were not returned to the caller.",
	}, []string{"operation"})
)

// Deployment triggers.
const (
	triggerImage      = "image"
	triggerRepository = "repository"
	triggerRedeploy   = "redeploy"
	triggerRollback   = "rollback"
)

// nonFatal records a failed best-effort side effect. The error is logged and
// counted but never returned.
func nonFatal(ctx context.Context, operation string, err error) {
	if err == nil {
		return
	}
	sideEffectFailures.WithLabelValues(operation).Inc()
	zerolog.Ctx(ctx).Warn().Err(err).Str("side_effect", operation).Msg("side effect failed")
}
