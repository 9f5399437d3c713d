package biz

import (
	"sync"
	"time"
)

// OverallSeriesKey is the single key of overall success-rate points.
const OverallSeriesKey = "overall"

// TimeSeriesPoint is one aggregation tick.
type TimeSeriesPoint struct {
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// ConnectorCounts are the cumulative counters of one connector.
type ConnectorCounts struct {
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
}

// ConnectorStats are the counters of one connector plus derived percentages.
type ConnectorStats struct {
	ID          string  `json:"id"`
	Successful  int64   `json:"successful"`
	Failed      int64   `json:"failed"`
	Attempts    int64   `json:"attempts"`
	SuccessRate float64 `json:"success_rate"`
	VolumeShare float64 `json:"volume_share"`
}

// StatsSnapshot is a consistent copy of the aggregator state.
type StatsSnapshot struct {
	TotalSuccessful    int64             `json:"total_successful"`
	TotalFailed        int64             `json:"total_failed"`
	Processed          int64             `json:"processed"`
	OverallSuccessRate float64           `json:"overall_success_rate"`
	Connectors         []ConnectorStats  `json:"connectors"`
	SuccessRateHistory []TimeSeriesPoint `json:"success_rate_history"`
	VolumeHistory      []TimeSeriesPoint `json:"volume_history"`
	OverallHistory     []TimeSeriesPoint `json:"overall_success_rate_history"`
}

// StatsAggregator owns the counters, histories and outcome log of a run.
// Fold is the only mutation path besides Reset.
type StatsAggregator struct {
	mu sync.RWMutex

	keys   []string
	order  []string
	counts map[string]*ConnectorCounts
	folded map[int64]struct{}

	totalSuccessful int64
	totalFailed     int64

	successRateHistory []TimeSeriesPoint
	volumeHistory      []TimeSeriesPoint
	overallHistory     []TimeSeriesPoint
	logs               []AttemptOutcome

	now func() time.Time
}

// NewStatsAggregator creates an empty aggregator tracking the given registry keys.
func NewStatsAggregator(keys []string) *StatsAggregator {
	a := &StatsAggregator{now: time.Now}
	a.Reset(keys)
	return a
}

// Reset clears everything and tracks a new set of registry keys.
func (a *StatsAggregator) Reset(keys []string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.keys = append([]string(nil), keys...)
	a.order = append([]string(nil), keys...)
	a.counts = make(map[string]*ConnectorCounts, len(keys))
	for _, k := range keys {
		a.counts[k] = &ConnectorCounts{}
	}
	a.folded = make(map[int64]struct{})
	a.totalSuccessful, a.totalFailed = 0, 0
	a.successRateHistory = nil
	a.volumeHistory = nil
	a.overallHistory = nil
	a.logs = nil
}

// Fold adds a batch of outcomes and appends one point to each history.
// Outcomes whose sequence number was already folded are ignored. It returns
// the number of outcomes added; no point is appended when that is zero.
//
// Unresolved outcomes count toward the global totals only.
func (a *StatsAggregator) Fold(outcomes []AttemptOutcome) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	batchAttempts := make(map[string]int64)
	batchSuccesses := make(map[string]int64)
	added := 0

	for _, o := range outcomes {
		if o.Sequence > 0 {
			if _, dup := a.folded[o.Sequence]; dup {
				continue
			}
			a.folded[o.Sequence] = struct{}{}
		}
		added++
		a.logs = append(a.logs, o)

		if o.Success {
			a.totalSuccessful++
		} else {
			a.totalFailed++
		}
		if !o.Resolved() {
			continue
		}

		c, ok := a.counts[o.ConnectorID]
		if !ok {
			c = &ConnectorCounts{}
			a.counts[o.ConnectorID] = c
			a.order = append(a.order, o.ConnectorID)
		}
		batchAttempts[o.ConnectorID]++
		if o.Success {
			c.Successful++
			batchSuccesses[o.ConnectorID]++
		} else {
			c.Failed++
		}
	}

	if added == 0 {
		return 0
	}

	ts := a.now()
	rates := make(map[string]float64, len(a.keys))
	volumes := make(map[string]float64, len(a.keys))
	for _, k := range a.keys {
		rates[k] = percent(batchSuccesses[k], batchAttempts[k])
		c := a.counts[k]
		volumes[k] = float64(c.Successful + c.Failed)
	}
	a.successRateHistory = append(a.successRateHistory, TimeSeriesPoint{Timestamp: ts, Values: rates})
	a.volumeHistory = append(a.volumeHistory, TimeSeriesPoint{Timestamp: ts, Values: volumes})
	a.overallHistory = append(a.overallHistory, TimeSeriesPoint{
		Timestamp: ts,
		Values:    map[string]float64{OverallSeriesKey: a.overallRateLocked()},
	})

	return added
}

// Snapshot returns the counters with every percentage recomputed from them.
func (a *StatsAggregator) Snapshot() StatsSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var resolved int64
	for _, c := range a.counts {
		resolved += c.Successful + c.Failed
	}

	connectors := make([]ConnectorStats, 0, len(a.order))
	for _, k := range a.order {
		c := a.counts[k]
		attempts := c.Successful + c.Failed
		connectors = append(connectors, ConnectorStats{
			ID:          k,
			Successful:  c.Successful,
			Failed:      c.Failed,
			Attempts:    attempts,
			SuccessRate: percent(c.Successful, attempts),
			VolumeShare: percent(attempts, resolved),
		})
	}

	return StatsSnapshot{
		TotalSuccessful:    a.totalSuccessful,
		TotalFailed:        a.totalFailed,
		Processed:          a.totalSuccessful + a.totalFailed,
		OverallSuccessRate: a.overallRateLocked(),
		Connectors:         connectors,
		SuccessRateHistory: copyPoints(a.successRateHistory),
		VolumeHistory:      copyPoints(a.volumeHistory),
		OverallHistory:     copyPoints(a.overallHistory),
	}
}

// Totals returns the global counters and the overall success rate.
func (a *StatsAggregator) Totals() (successful, failed int64, overallRate float64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.totalSuccessful, a.totalFailed, a.overallRateLocked()
}

// Counts returns the cumulative counters of one connector.
func (a *StatsAggregator) Counts(key string) ConnectorCounts {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if c, ok := a.counts[key]; ok {
		return *c
	}
	return ConnectorCounts{}
}

// Logs returns a page of the outcome log and its total length.
func (a *StatsAggregator) Logs(offset, limit int) ([]AttemptOutcome, int) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	total := len(a.logs)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []AttemptOutcome{}, total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return append([]AttemptOutcome(nil), a.logs[offset:end]...), total
}

func (a *StatsAggregator) overallRateLocked() float64 {
	return percent(a.totalSuccessful, a.totalSuccessful+a.totalFailed)
}

func percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func copyPoints(points []TimeSeriesPoint) []TimeSeriesPoint {
	out := make([]TimeSeriesPoint, len(points))
	for i, p := range points {
		values := make(map[string]float64, len(p.Values))
		for k, v := range p.Values {
			values[k] = v
		}
		out[i] = TimeSeriesPoint{Timestamp: p.Timestamp, Values: values}
	}
	return out
}
