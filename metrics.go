package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redirs_match_total",
			Help: "Number of requests matched to a redirect, by host and phase",
		},
		[]string{"host", "phase"},
	)
	noMatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redirs_no_match_total",
			Help: "Number of requests with no matching redirect rule, by host",
		},
		[]string{"host"},
	)
	destResolveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redirs_dest_resolve_total",
			Help: "Number of destination resolver invocations, by name and result",
		},
		[]string{"name", "result"},
	)
	reloadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redirs_reload_total",
			Help: "Number of configuration reload attempts, by result",
		},
		[]string{"result"},
	)
	reloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "redirs_reload_duration_milliseconds",
			Help: "Duration of configuration reload attempts",
		},
	)
)

func recordMatch(host, phase string) {
	matchTotal.With(prometheus.Labels{"host": host, "phase": phase}).Inc()
}

func recordNoMatch(host string) {
	noMatchTotal.With(prometheus.Labels{"host": host}).Inc()
}

func recordDestResolve(name string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	destResolveTotal.With(prometheus.Labels{"name": name, "result": result}).Inc()
}

func recordReload(err error, durationMillis float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	reloadTotal.With(prometheus.Labels{"result": result}).Inc()
	reloadDuration.Observe(durationMillis)
}
