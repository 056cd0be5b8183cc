package main

import (
	"context"

	"github.com/yaegashi/resourceprovisioner/internal/metrics"
)

type metricsKey struct{}

func withMetrics(ctx context.Context, m *metrics.Metrics) context.Context {
	return context.WithValue(ctx, metricsKey{}, m)
}

// metricsFromContext returns the process metrics, creating a detached set
// when none was installed (tests).
func metricsFromContext(ctx context.Context) *metrics.Metrics {
	if m, ok := ctx.Value(metricsKey{}).(*metrics.Metrics); ok && m != nil {
		return m
	}
	return metrics.New()
}
