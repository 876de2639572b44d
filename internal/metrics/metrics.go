package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WeatherAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agroconnect_weather_api_calls_total",
			Help: "Total OpenWeatherMap API calls",
		},
		[]string{"endpoint", "status"},
	)

	WeatherAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agroconnect_weather_api_latency_seconds",
			Help:    "OpenWeatherMap API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	InsightsDerived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agroconnect_insights_derived_total",
			Help: "Agricultural insights derived, by risk level",
		},
		[]string{"risk"},
	)

	ChatReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agroconnect_chat_replies_total",
			Help: "Assistant replies, by intent",
		},
		[]string{"intent"},
	)

	Diagnoses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agroconnect_diagnoses_total",
			Help: "Crop health diagnoses, by source and outcome",
		},
		[]string{"source", "status"},
	)
)
