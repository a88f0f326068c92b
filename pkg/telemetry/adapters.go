package telemetry

import (
	"context"
	"time"

	"github.com/recist-project/recist/pkg/domain"
)

// Adapters composes the three telemetry surfaces behind a single facade
// so agents depend on one interface rather than three, as spec §4.1
// describes ("Telemetry Adapters").
type Adapters struct {
	Metrics MetricsClient
	Logs    LogsClient
	Events  EventsClient
}

func New(metrics MetricsClient, logs LogsClient, events EventsClient) *Adapters {
	return &Adapters{Metrics: metrics, Logs: logs, Events: events}
}

// Slice assembles a TelemetrySlice for the window [t0,t1] (spec §4.3
// step 1). The window is closed-open and clock-skew tolerant: callers
// should pad by ±2s before calling, per spec §3.
func (a *Adapters) Slice(ctx context.Context, namespace, metricSelector, logSelector string, start, end time.Time, logLimit int) (domain.TelemetrySlice, error) {
	metrics, err := a.Metrics.QueryMetrics(ctx, metricSelector, TimeWindow{Start: start, End: end, Step: 15 * time.Second})
	if err != nil {
		return domain.TelemetrySlice{}, err
	}
	logs, err := a.Logs.QueryLogs(ctx, logSelector, TimeWindow{Start: start, End: end}, logLimit)
	if err != nil {
		return domain.TelemetrySlice{}, err
	}

	var events []domain.ClusterEvent
	if a.Events != nil {
		stream, err := a.Events.StreamEvents(ctx, namespace)
		if err == nil {
			drainCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
			defer cancel()
		drain:
			for {
				select {
				case e, ok := <-stream:
					if !ok {
						break drain
					}
					if !e.Timestamp.Before(start) && e.Timestamp.Before(end) {
						events = append(events, e)
					}
				case <-drainCtx.Done():
					break drain
				}
			}
		}
	}

	return domain.TelemetrySlice{
		WindowStart: start.UTC(),
		WindowEnd:   end.UTC(),
		Logs:        logs,
		Metrics:     metrics,
		Events:      events,
	}, nil
}
