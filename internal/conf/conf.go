package conf

import "google.golang.org/protobuf/types/known/durationpb"

// Bootstrap is the root configuration tree.
type Bootstrap struct {
	Server     *Server
	Data       *Data
	Log        *Log
	Upstream   *Upstream
	Summary    *Summary
	Simulation *Simulation
}

// Server holds the listener settings of the control plane.
type Server struct {
	Http *HTTP
	Grpc *GRPC
}

type HTTP struct {
	Network string
	Addr    string
	Timeout *durationpb.Duration
}

type GRPC struct {
	Network string
	Addr    string
	Timeout *durationpb.Duration
}

// Data holds optional storage backends. Both may be left empty.
type Data struct {
	Database *Database
	Redis    *Redis
}

type Database struct {
	Driver string
	Source string
}

type Redis struct {
	Network      string
	Addr         string
	Password     string
	DB           int
	ReadTimeout  *durationpb.Duration
	WriteTimeout *durationpb.Duration
	// ProgressTTL is how long the latest progress snapshot of a run is kept.
	ProgressTTL *durationpb.Duration
}

type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}

// Upstream describes the payments API and the success-rate router.
type Upstream struct {
	BaseURL    string
	RouterURL  string
	APIKey     string
	ProfileID  string
	MerchantID string
	ProxyURL   string
	Timeout    *durationpb.Duration
	// BreakerTimeout is how long the routing breaker stays open before probing.
	BreakerTimeout *durationpb.Duration
}

// Summary describes the narrative summary service.
type Summary struct {
	Endpoint   string
	Timeout    *durationpb.Duration
	MaxRetries uint
}

// Simulation holds the default run parameters.
type Simulation struct {
	TotalAttempts        int
	BatchSize            int
	MinAggregatesSize    int
	MaxAggregatesSize    int
	ExplorationPercent   float64
	BlockDurationMinutes int
	BlockMaxCount        int
	SuccessBasedRouting  bool
	Amount               int64
	Currency             string
	MaxAttemptsPerSecond float64
	Schedule             string
	Connectors           []Connector
}

// Connector is a statically configured connector together with its
// failure injection settings. Settings are keyed by connector name.
type Connector struct {
	ID             string    `mapstructure:"id"`
	Name           string    `mapstructure:"name"`
	Label          string    `mapstructure:"label"`
	Type           string    `mapstructure:"type"`
	Disabled       bool      `mapstructure:"disabled"`
	FailurePercent float64   `mapstructure:"failure_percent"`
	Incident       bool      `mapstructure:"incident"`
	SuccessCard    *TestCard `mapstructure:"success_card"`
	FailureCard    *TestCard `mapstructure:"failure_card"`
}

type TestCard struct {
	Number     string `mapstructure:"number"`
	ExpMonth   string `mapstructure:"exp_month"`
	ExpYear    string `mapstructure:"exp_year"`
	HolderName string `mapstructure:"holder_name"`
	CVC        string `mapstructure:"cvc"`
}
