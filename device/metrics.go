package device

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vane_device_uploads_total",
		Help: "Total number of host to device matrix transfers",
	}, []string{"device"})

	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vane_device_downloads_total",
		Help: "Total number of device to host matrix transfers",
	}, []string{"device"})

	poolHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vane_device_pool_hits_total",
		Help: "Total number of successful device buffer pool retrievals",
	})

	poolMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vane_device_pool_misses_total",
		Help: "Total number of device buffer pool misses (allocations)",
	})
)
