package expr

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evalTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vane_expr_evals_total",
		Help: "Total number of expression tree evaluations",
	})

	fusionDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vane_expr_fusion_dispatches_total",
		Help: "Total number of fused kernel dispatches by rewrite rule",
	}, []string{"rule"})

	scratchHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vane_expr_scratch_hits_total",
		Help: "Total number of successful scratch buffer pool retrievals",
	})

	scratchMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vane_expr_scratch_misses_total",
		Help: "Total number of scratch buffer pool misses (allocations)",
	})
)
