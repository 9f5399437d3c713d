package biz

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Instrument is the card a synthetic payment is paid with.
type Instrument struct {
	Number     string `json:"card_number"`
	ExpMonth   string `json:"card_exp_month"`
	ExpYear    string `json:"card_exp_year"`
	HolderName string `json:"card_holder_name"`
	CVC        string `json:"card_cvc"`
}

// TestCards are the per-connector overrides of the two fallback instruments.
// Any field left empty falls back individually.
type TestCards struct {
	Success *Instrument `json:"success_card,omitempty"`
	Failure *Instrument `json:"failure_card,omitempty"`
}

var (
	// DefaultSuccessInstrument is accepted by the sandbox processors.
	DefaultSuccessInstrument = Instrument{
		Number:     "4242424242424242",
		ExpMonth:   "10",
		ExpYear:    "25",
		HolderName: "Joseph Doe",
		CVC:        "123",
	}
	// DefaultFailureInstrument is declined by the sandbox processors.
	DefaultFailureInstrument = Instrument{
		Number:     "4000000000000002",
		ExpMonth:   "12",
		ExpYear:    "26",
		HolderName: "Jane Roe",
		CVC:        "999",
	}
)

// CardSelector picks the instrument that decides whether an attempt on a
// connector is accepted downstream.
type CardSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewCardSelector creates a selector seeded from the clock.
func NewCardSelector() *CardSelector {
	seed := uint64(time.Now().UnixNano())
	return NewSeededCardSelector(seed, seed>>1|1)
}

// NewSeededCardSelector creates a selector with a fixed PCG seed.
func NewSeededCardSelector(seed1, seed2 uint64) *CardSelector {
	return &CardSelector{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// SelectInstrument draws a value in [0,100) and returns the failure instrument
// of label when the value is below failurePercent, the success instrument
// otherwise. An empty label always yields the success instrument.
func (s *CardSelector) SelectInstrument(label string, failurePercent float64, cards map[string]TestCards) Instrument {
	if label == "" {
		failurePercent = 0
	}

	s.mu.Lock()
	draw := s.rng.Float64() * 100
	s.mu.Unlock()

	override := cards[label]
	if draw < failurePercent {
		return mergeInstrument(override.Failure, DefaultFailureInstrument)
	}
	return mergeInstrument(override.Success, DefaultSuccessInstrument)
}

func mergeInstrument(override *Instrument, fallback Instrument) Instrument {
	if override == nil {
		return fallback
	}
	out := *override
	if out.Number == "" {
		out.Number = fallback.Number
	}
	if out.ExpMonth == "" {
		out.ExpMonth = fallback.ExpMonth
	}
	if out.ExpYear == "" {
		out.ExpYear = fallback.ExpYear
	}
	if out.HolderName == "" {
		out.HolderName = fallback.HolderName
	}
	if out.CVC == "" {
		out.CVC = fallback.CVC
	}
	return out
}
