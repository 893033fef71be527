package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// generations counts EnsureArtifact outcomes: cache_hit, generated, failed.
	generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farcasturd_generations_total",
			Help: "Artifact generation requests by outcome.",
		},
		[]string{"outcome"},
	)

	// mints counts mint attempts by outcome.
	mints = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farcasturd_mints_total",
			Help: "Mint requests by outcome.",
		},
		[]string{"outcome"},
	)

	// botCasts counts processed bot casts by status.
	botCasts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farcasturd_bot_casts_total",
			Help: "Bot casts processed by status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(generations, mints, botCasts)
}
