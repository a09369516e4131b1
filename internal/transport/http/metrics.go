package httptransport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricMonitorSSETotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "botdash_monitor_sse_connections_total",
		Help: "Monitor event streams opened",
	})
	metricMonitorSSEActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "botdash_monitor_sse_connections_active",
		Help: "Monitor event streams currently open",
	})
	metricControlErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "botdash_control_errors_total",
		Help: "Status changes the bot-runner refused or could not be reached for",
	})
)
