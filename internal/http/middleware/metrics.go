package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
    RLRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "rate_limiter_requests_total",
            Help: "Total requests seen by the rate limiter",
        },
        []string{"endpoint"},
    )
    RLBlocked = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "rate_limiter_blocked_total",
            Help: "Total requests blocked by the rate limiter",
        },
        []string{"endpoint"},
    )

    Taps = prometheus.NewCounter(
        prometheus.CounterOpts{
            Name: "economy_taps_total",
            Help: "Total successful taps",
        },
    )
    Claims = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "economy_claims_total",
            Help: "Total successful reward claims by kind",
        },
        []string{"kind"},
    )
    Conversions = prometheus.NewCounter(
        prometheus.CounterOpts{
            Name: "economy_conversions_total",
            Help: "Total point conversions into hug points",
        },
    )
)

func init() {
    prometheus.MustRegister(RLRequests)
    prometheus.MustRegister(RLBlocked)
    prometheus.MustRegister(Taps)
    prometheus.MustRegister(Claims)
    prometheus.MustRegister(Conversions)
}
