package biz

import (
	"fmt"
	"strings"
)

// BlockThreshold bounds the router's current aggregation block.
type BlockThreshold struct {
	DurationMinutes int `json:"duration_in_mins"`
	MaxTotalCount   int `json:"max_total_count"`
}

// SimulationConfig holds the parameters of one run. A copy is taken at start
// and stays fixed until the run ends.
type SimulationConfig struct {
	TotalAttempts       int                  `json:"total_attempts"`
	BatchSize           int                  `json:"batch_size"`
	MinAggregatesSize   int                  `json:"min_aggregates_size"`
	MaxAggregatesSize   int                  `json:"max_aggregates_size"`
	ExplorationPercent  float64              `json:"exploration_percent"`
	BlockThreshold      BlockThreshold       `json:"current_block_threshold"`
	FailurePercentages  map[string]float64   `json:"failure_percentages,omitempty"`
	TestCards           map[string]TestCards `json:"test_cards,omitempty"`
	Incidents           map[string]bool      `json:"incidents,omitempty"`
	SuccessBasedRouting bool                 `json:"success_based_routing"`
	Amount              int64                `json:"amount"`
	Currency            string               `json:"currency"`
}

// Validate checks the invariants of a run configuration.
func (c SimulationConfig) Validate() error {
	var problems []string
	if c.TotalAttempts < 0 {
		problems = append(problems, "total_attempts must be >= 0")
	}
	if c.BatchSize < 1 {
		problems = append(problems, "batch_size must be >= 1")
	}
	if c.ExplorationPercent < 0 || c.ExplorationPercent > 100 {
		problems = append(problems, "exploration_percent must be within [0,100]")
	}
	for label, pct := range c.FailurePercentages {
		if pct < 0 || pct > 100 {
			problems = append(problems, fmt.Sprintf("failure percentage of %q must be within [0,100]", label))
		}
	}
	if len(problems) > 0 {
		return NewConfigurationError(problems...)
	}
	return nil
}

// FailurePercent returns the configured failure probability of a connector
// label, 0 when none is set.
func (c SimulationConfig) FailurePercent(label string) float64 {
	if label == "" {
		return 0
	}
	return c.FailurePercentages[label]
}

// Clone returns a deep copy so a running batch never observes later edits.
func (c SimulationConfig) Clone() SimulationConfig {
	out := c
	out.FailurePercentages = make(map[string]float64, len(c.FailurePercentages))
	for k, v := range c.FailurePercentages {
		out.FailurePercentages[k] = v
	}
	out.TestCards = make(map[string]TestCards, len(c.TestCards))
	for k, v := range c.TestCards {
		out.TestCards[k] = v
	}
	out.Incidents = make(map[string]bool, len(c.Incidents))
	for k, v := range c.Incidents {
		out.Incidents[k] = v
	}
	return out
}

// UpstreamSettings is the external configuration a run cannot start without.
type UpstreamSettings struct {
	BaseURL    string
	APIKey     string
	ProfileID  string
	MerchantID string
}

// Validate lists every missing field as one configuration error.
func (u UpstreamSettings) Validate() error {
	var missing []string
	if strings.TrimSpace(u.BaseURL) == "" {
		missing = append(missing, "upstream.base_url")
	}
	if strings.TrimSpace(u.APIKey) == "" {
		missing = append(missing, "upstream.api_key (PAYMENTS_API_KEY)")
	}
	if strings.TrimSpace(u.ProfileID) == "" {
		missing = append(missing, "upstream.profile_id (PAYMENTS_PROFILE_ID)")
	}
	if strings.TrimSpace(u.MerchantID) == "" {
		missing = append(missing, "upstream.merchant_id (PAYMENTS_MERCHANT_ID)")
	}
	if len(missing) > 0 {
		return NewConfigurationError("missing " + strings.Join(missing, ", "))
	}
	return nil
}
