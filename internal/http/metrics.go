package http

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repopackd/internal/logging"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/repopackd/internal/http"

// HTTPMetrics records request metrics through the global meter provider.
type HTTPMetrics struct {
	meter         metric.Meter
	logger        *logging.Logger
	requestsTotal metric.Int64Counter
	requestDur    metric.Float64Histogram
	activeStreams metric.Int64UpDownCounter
}

// NewHTTPMetrics creates the instruments. Instruments that fail to
// register are skipped.
func NewHTTPMetrics(logger *logging.Logger) *HTTPMetrics {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &HTTPMetrics{meter: otel.Meter(httpInstrumentationName), logger: logger}
	m.init()
	return m
}

func (m *HTTPMetrics) init() {
	ctx := context.Background()
	var err error

	m.requestsTotal, err = m.meter.Int64Counter(
		"repopackd.http.requests_total",
		metric.WithDescription("HTTP requests by method, route and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create requests counter", zap.Error(err))
	}

	// Streams last as long as their job, so the upper buckets are wide.
	m.requestDur, err = m.meter.Float64Histogram(
		"repopackd.http.request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds by method, route and status"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.05, 0.25, 1, 5, 15, 60, 180, 600),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create duration histogram", zap.Error(err))
	}

	m.activeStreams, err = m.meter.Int64UpDownCounter(
		"repopackd.http.active_requests",
		metric.WithDescription("Requests currently being served, including open job streams"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create active requests gauge", zap.Error(err))
	}
}

// MetricsMiddleware returns an Echo middleware that records HTTP metrics.
// Routes are labelled by their pattern, so job IDs never become labels.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			ctx := c.Request().Context()
			if m.activeStreams != nil {
				m.activeStreams.Add(ctx, 1)
			}

			err := next(c)

			route := c.Path()
			if route == "" {
				route = "/"
			}
			attrs := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("route", route),
				attribute.Int("status", c.Response().Status),
			)
			if m.requestsTotal != nil {
				m.requestsTotal.Add(ctx, 1, attrs)
			}
			if m.requestDur != nil {
				m.requestDur.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			if m.activeStreams != nil {
				m.activeStreams.Add(ctx, -1)
			}
			return err
		}
	}
}
