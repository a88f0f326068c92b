package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	sharedhttp "github.com/recist-project/recist/pkg/shared/http"

	"github.com/recist-project/recist/internal/errors"
	"github.com/recist-project/recist/internal/retry"
	"github.com/recist-project/recist/pkg/domain"
)

// LogsClient queries the log backend via LogQL (spec §6). No LogQL
// client library appears anywhere in the example corpus, so this talks
// to Loki's HTTP query-range endpoint directly over the shared resilient
// *http.Client (pkg/shared/http) rather than hand-rolling a bespoke
// transport.
type LogsClient interface {
	QueryLogs(ctx context.Context, selector string, window TimeWindow, limit int) ([]domain.LogEntry, error)
}

type lokiLogsClient struct {
	baseURL string
	client  *http.Client
}

func NewLokiLogsClient(baseURL string, timeout time.Duration) LogsClient {
	return &lokiLogsClient{baseURL: strings.TrimRight(baseURL, "/"), client: sharedhttp.NewClientWithTimeout(timeout)}
}

type lokiQueryResponse struct {
	Data struct {
		Result []struct {
			Stream map[string]string `json:"stream"`
			Values [][2]string       `json:"values"`
		} `json:"result"`
	} `json:"data"`
}

// QueryLogs enforces limit, defaulting to 1000 (spec §4.1), and returns
// the most recent entries when the backend has more than limit.
func (c *lokiLogsClient) QueryLogs(ctx context.Context, selector string, window TimeWindow, limit int) ([]domain.LogEntry, error) {
	if limit <= 0 {
		limit = 1000
	}
	q := url.Values{}
	q.Set("query", selector)
	q.Set("start", strconv.FormatInt(window.Start.UnixNano(), 10))
	q.Set("end", strconv.FormatInt(window.End.UnixNano(), 10))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("direction", "backward")

	endpoint := fmt.Sprintf("%s/loki/api/v1/query_range?%s", c.baseURL, q.Encode())

	var parsed lokiQueryResponse
	err := retry.Do(ctx, retry.DefaultSchedule(), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to build Loki request")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return errors.NewBackendUnavailableError("logs", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return errors.NewBackendUnavailableError("logs", fmt.Errorf("unexpected status %d", resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return errors.Wrap(err, errors.ErrorTypeParse, "failed to decode Loki response")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var entries []domain.LogEntry
	for _, stream := range parsed.Data.Result {
		for _, v := range stream.Values {
			ns, err := strconv.ParseInt(v[0], 10, 64)
			if err != nil {
				continue
			}
			entries = append(entries, parseLogLine(time.Unix(0, ns).UTC(), stream.Stream, v[1]))
		}
	}
	entries = normalizeLogs(entries)
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

var logLevels = []domain.LogLevel{
	domain.LogLevelError, domain.LogLevelWarn, domain.LogLevelInfo,
	domain.LogLevelDebug, domain.LogLevelTrace,
}

// parseLogLine extracts level and source module from a raw line with a
// conservative heuristic: the first recognized level token sets Level,
// everything after an optional "module:" prefix is the message.
func parseLogLine(ts time.Time, labels map[string]string, line string) domain.LogEntry {
	level := domain.LogLevelInfo
	for _, l := range logLevels {
		if strings.Contains(strings.ToUpper(line), string(l)) {
			level = l
			break
		}
	}
	source := labels["source"]
	if source == "" {
		source = labels["app"]
	}
	return domain.LogEntry{
		Timestamp: ts,
		Level:     level,
		Source:    source,
		Message:   line,
		Fields:    labels,
	}
}

// normalizeLogs collapses repeated identical messages within 500ms into
// a single entry with RepeatCount set (spec §4.1). Entries are assumed
// sorted ascending by Timestamp on input.
func normalizeLogs(entries []domain.LogEntry) []domain.LogEntry {
	if len(entries) == 0 {
		return entries
	}
	sortByTimestamp(entries)

	collapsed := make([]domain.LogEntry, 0, len(entries))
	for _, e := range entries {
		if n := len(collapsed); n > 0 {
			last := &collapsed[n-1]
			if last.Message == e.Message && last.Source == e.Source &&
				e.Timestamp.Sub(last.Timestamp) <= 500*time.Millisecond {
				if last.RepeatCount == 0 {
					last.RepeatCount = 1
				}
				last.RepeatCount++
				continue
			}
		}
		collapsed = append(collapsed, e)
	}
	return collapsed
}

func sortByTimestamp(entries []domain.LogEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
}
