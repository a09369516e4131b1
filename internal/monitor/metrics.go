package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricViewsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "botdash_monitor_views_active",
		Help: "Mounted monitor views",
	})
	metricSubscriptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "botdash_monitor_subscriptions_total",
		Help: "Live feed subscriptions opened by monitor views",
	})
	metricEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botdash_monitor_events_total",
		Help: "Live feed events applied, by kind",
	}, []string{"kind"})
	metricFetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botdash_monitor_fetch_failures_total",
		Help: "Balance and bet history fetches that failed",
	}, []string{"source"})
	metricStaleResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botdash_monitor_stale_results_total",
		Help: "Fetch results dropped because a newer request or instance superseded them",
	}, []string{"source"})
)
