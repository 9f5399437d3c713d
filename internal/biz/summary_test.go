package biz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSummaryInput(t *testing.T) {
	a := NewStatsAggregator([]string{"mca_a", "mca_b"})
	logs := []AttemptOutcome{
		outcome(1, true, "mca_a"),
		outcome(2, true, "mca_a"),
		outcome(3, false, "mca_b"),
		outcome(4, false, ""),
	}
	a.Fold(logs)

	cfg := testConfig()
	cfg.TotalAttempts = 100
	cfg.FailurePercentages = map[string]float64{"B": 30}
	cfg.Incidents = map[string]bool{"B": true}

	in := buildSummaryInput(twoConnectors, cfg, a.Snapshot(), logs)

	assert.Equal(t, int64(4), in.TotalPaymentsProcessed)
	assert.Equal(t, 100, in.TargetTotalPayments)
	assert.Equal(t, 50.0, in.OverallSuccessRate)
	assert.Equal(t, int64(2), in.TotalSuccessful)
	assert.Equal(t, int64(2), in.TotalFailed)
	assert.Zero(t, in.EffectiveTPS)
	assert.Equal(t, 1, in.SimulationDurationSteps)
	assert.Len(t, in.TransactionLogs, 4)

	require.Len(t, in.ProcessorMetrics, 2)
	assert.Equal(t, ProcessorMetric{Name: "A", Volume: 2, ObservedSR: 100, BaseSR: 100}, in.ProcessorMetrics[0])
	assert.Equal(t, ProcessorMetric{Name: "B", Volume: 1, ObservedSR: 0, BaseSR: 70}, in.ProcessorMetrics[1])

	assert.Equal(t, []IncidentFlag{
		{ProcessorName: "A", IsActive: false},
		{ProcessorName: "B", IsActive: true},
	}, in.Incidents)
}

func TestSummaryInput_JSONFieldNames(t *testing.T) {
	raw, err := json.Marshal(SummaryInput{ProcessorMetrics: []ProcessorMetric{{Name: "A"}}})
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{
		"totalPaymentsProcessed", "targetTotalPayments", "overallSuccessRate", "totalSuccessful",
		"totalFailed", "effectiveTps", "processorMetrics", "incidents", "simulationDurationSteps", "transactionLogs",
	} {
		assert.Contains(t, fields, key)
	}
	metric := fields["processorMetrics"].([]interface{})[0].(map[string]interface{})
	assert.Contains(t, metric, "observedSr")
	assert.Contains(t, metric, "baseSr")
}
