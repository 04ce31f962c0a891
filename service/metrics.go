package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storyboardsAssembled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyboard_assemblies_total",
		Help: "Storyboards assembled, by origin (create or regenerate).",
	}, []string{"origin"})

	shotsRecomputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyboard_shot_recomputes_total",
		Help: "Single shots rebuilt after an edit.",
	})

	generationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyboard_generation_total",
		Help: "Per-shot generation calls, by media kind and outcome.",
	}, []string{"kind", "outcome"})

	durationWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyboard_duration_warnings_total",
		Help: "Submissions whose scene durations do not add up to the project length.",
	})
)
