// Package telemetry is the uniform façade over the metrics backend, log
// backend, and cluster event stream (spec §4.1): all three surfaces
// normalize timestamps to UTC and return a typed BackendUnavailable
// failure distinct from an empty result set, so callers can tell "no
// data" from "couldn't ask".
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/recist-project/recist/internal/errors"
	"github.com/recist-project/recist/internal/retry"
	"github.com/recist-project/recist/pkg/domain"
)

// MetricsClient queries the metrics backend via PromQL (spec §6).
type MetricsClient interface {
	QueryMetrics(ctx context.Context, selector string, window TimeWindow) ([]domain.MetricSeries, error)
}

type TimeWindow struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
}

type promMetricsClient struct {
	api     promv1.API
	timeout time.Duration
}

func NewPrometheusMetricsClient(url string, timeout time.Duration) (MetricsClient, error) {
	apiClient, err := api.NewClient(api.Config{Address: url})
	if err != nil {
		return nil, errors.NewBackendUnavailableError("metrics", err)
	}
	return &promMetricsClient{api: promv1.NewAPI(apiClient), timeout: timeout}, nil
}

func (c *promMetricsClient) QueryMetrics(ctx context.Context, selector string, window TimeWindow) ([]domain.MetricSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var series []domain.MetricSeries
	err := retry.Do(ctx, retry.DefaultSchedule(), func(ctx context.Context) error {
		value, _, err := c.api.QueryRange(ctx, selector, promv1.Range{Start: window.Start, End: window.End, Step: window.Step})
		if err != nil {
			return errors.NewBackendUnavailableError("metrics", err)
		}
		series, err = parseMatrix(value)
		return err
	})
	return series, err
}

func parseMatrix(value model.Value) ([]domain.MetricSeries, error) {
	matrix, ok := value.(model.Matrix)
	if !ok {
		return nil, errors.New(errors.ErrorTypeParse, "unexpected PromQL result type")
	}
	series := make([]domain.MetricSeries, 0, len(matrix))
	for _, stream := range matrix {
		points := make([]domain.Sample, 0, len(stream.Values))
		for _, sample := range stream.Values {
			points = append(points, domain.Sample{
				Timestamp: sample.Timestamp.Time().UTC(),
				Value:     float64(sample.Value),
			})
		}
		series = append(series, domain.MetricSeries{
			Name:   string(stream.Metric["__name__"]),
			Labels: metricToMap(stream.Metric),
			Points: points,
		})
	}
	return series, nil
}

func metricToMap(metric model.Metric) map[string]string {
	labels := make(map[string]string, len(metric))
	for k, v := range metric {
		labels[string(k)] = string(v)
	}
	return labels
}
