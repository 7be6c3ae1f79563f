package kernel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vane_kernel_dispatches_total",
	Help: "Total number of kernel calls issued to the numeric backend",
}, []string{"backend", "op"})
