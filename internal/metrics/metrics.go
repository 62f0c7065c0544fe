package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LoginSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eduportal", Name: "login_success_total", Help: "Successful logins",
	})
	LoginFailure = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eduportal", Name: "login_failure_total", Help: "Rejected logins",
	})
	AttemptStarts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eduportal", Name: "attempt_starts_total", Help: "Quiz attempts started",
	})
	AttemptCompletions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eduportal", Name: "attempt_completions_total", Help: "Quiz attempts completed",
	})
	AttemptAbandons = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eduportal", Name: "attempt_abandons_total", Help: "Quiz attempts abandoned",
	})
	SweepRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eduportal", Name: "sweep_runs_total", Help: "Reconciliation sweep invocations",
	})
	SweepRepairs = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eduportal", Name: "sweep_repairs_total", Help: "Attempts repaired by the sweep",
	})
)

func init() {
	prometheus.MustRegister(
		LoginSuccess, LoginFailure,
		AttemptStarts, AttemptCompletions, AttemptAbandons,
		SweepRuns, SweepRepairs,
	)
}

func Handler() http.Handler { return promhttp.Handler() }
