// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/protobuf/types/known/durationpb"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with ROUTESIM_.
//
// Configuration priority: Environment variables > Config file > Defaults
//
// Upstream credentials may also be given as:
//   - PAYMENTS_API_KEY or ROUTESIM_UPSTREAM_API_KEY
//   - PAYMENTS_PROFILE_ID or ROUTESIM_UPSTREAM_PROFILE_ID
//   - PAYMENTS_MERCHANT_ID or ROUTESIM_UPSTREAM_MERCHANT_ID
//
// Missing credentials are not an error here: a run cannot start without
// them, but the control plane still comes up.
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ROUTESIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("upstream.api_key", "PAYMENTS_API_KEY", "ROUTESIM_UPSTREAM_API_KEY")
	_ = v.BindEnv("upstream.profile_id", "PAYMENTS_PROFILE_ID", "ROUTESIM_UPSTREAM_PROFILE_ID")
	_ = v.BindEnv("upstream.merchant_id", "PAYMENTS_MERCHANT_ID", "ROUTESIM_UPSTREAM_MERCHANT_ID")
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "ROUTESIM_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "ROUTESIM_DATA_REDIS_ADDR")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var connectors []Connector
	if err := v.UnmarshalKey("simulation.connectors", &connectors); err != nil {
		return nil, fmt.Errorf("failed to parse simulation.connectors: %w", err)
	}

	bc := &Bootstrap{
		Server: &Server{
			Http: &HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: durationpb.New(v.GetDuration("server.http.timeout")),
			},
			Grpc: &GRPC{
				Network: v.GetString("server.grpc.network"),
				Addr:    v.GetString("server.grpc.addr"),
				Timeout: durationpb.New(v.GetDuration("server.grpc.timeout")),
			},
		},
		Data: &Data{
			Database: &Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				DB:           v.GetInt("data.redis.db"),
				ReadTimeout:  durationpb.New(v.GetDuration("data.redis.read_timeout")),
				WriteTimeout: durationpb.New(v.GetDuration("data.redis.write_timeout")),
				ProgressTTL:  durationpb.New(v.GetDuration("data.redis.progress_ttl")),
			},
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
		Upstream: &Upstream{
			BaseURL:        v.GetString("upstream.base_url"),
			RouterURL:      v.GetString("upstream.router_url"),
			APIKey:         v.GetString("upstream.api_key"),
			ProfileID:      v.GetString("upstream.profile_id"),
			MerchantID:     v.GetString("upstream.merchant_id"),
			ProxyURL:       v.GetString("upstream.proxy_url"),
			Timeout:        durationpb.New(v.GetDuration("upstream.timeout")),
			BreakerTimeout: durationpb.New(v.GetDuration("upstream.breaker_timeout")),
		},
		Summary: &Summary{
			Endpoint:   v.GetString("summary.endpoint"),
			Timeout:    durationpb.New(v.GetDuration("summary.timeout")),
			MaxRetries: v.GetUint("summary.max_retries"),
		},
		Simulation: &Simulation{
			TotalAttempts:        v.GetInt("simulation.total_attempts"),
			BatchSize:            v.GetInt("simulation.batch_size"),
			MinAggregatesSize:    v.GetInt("simulation.min_aggregates_size"),
			MaxAggregatesSize:    v.GetInt("simulation.max_aggregates_size"),
			ExplorationPercent:   v.GetFloat64("simulation.exploration_percent"),
			BlockDurationMinutes: v.GetInt("simulation.block_duration_minutes"),
			BlockMaxCount:        v.GetInt("simulation.block_max_count"),
			SuccessBasedRouting:  v.GetBool("simulation.success_based_routing"),
			Amount:               v.GetInt64("simulation.amount"),
			Currency:             v.GetString("simulation.currency"),
			MaxAttemptsPerSecond: v.GetFloat64("simulation.max_attempts_per_second"),
			Schedule:             v.GetString("simulation.schedule"),
			Connectors:           connectors,
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)

	v.SetDefault("server.grpc.network", "tcp")
	v.SetDefault("server.grpc.addr", ":9000")
	v.SetDefault("server.grpc.timeout", 30*time.Second)

	// Data defaults
	// Note: an empty source or address disables that backend
	v.SetDefault("data.database.driver", "mysql")
	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.progress_ttl", time.Hour)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Upstream defaults
	v.SetDefault("upstream.base_url", "https://sandbox.hyperswitch.io")
	v.SetDefault("upstream.timeout", 30*time.Second)
	v.SetDefault("upstream.breaker_timeout", 30*time.Second)

	// Summary defaults
	v.SetDefault("summary.timeout", time.Minute)
	v.SetDefault("summary.max_retries", 3)

	// Simulation defaults
	v.SetDefault("simulation.total_attempts", 1000)
	v.SetDefault("simulation.batch_size", 10)
	v.SetDefault("simulation.min_aggregates_size", 5)
	v.SetDefault("simulation.max_aggregates_size", 10)
	v.SetDefault("simulation.exploration_percent", 20)
	v.SetDefault("simulation.block_duration_minutes", 15)
	v.SetDefault("simulation.block_max_count", 5)
	v.SetDefault("simulation.success_based_routing", true)
	v.SetDefault("simulation.amount", 6540)
	v.SetDefault("simulation.currency", "USD")
}

// Validate checks that configured values are well formed.
// It returns an error listing all invalid fields.
func Validate(bc *Bootstrap) error {
	var invalid []string

	if s := bc.Simulation; s != nil {
		if s.TotalAttempts < 0 {
			invalid = append(invalid, "simulation.total_attempts must be >= 0")
		}
		if s.BatchSize < 1 {
			invalid = append(invalid, "simulation.batch_size must be >= 1")
		}
		if s.ExplorationPercent < 0 || s.ExplorationPercent > 100 {
			invalid = append(invalid, "simulation.exploration_percent must be within [0,100]")
		}
		if s.MaxAttemptsPerSecond < 0 {
			invalid = append(invalid, "simulation.max_attempts_per_second must be >= 0")
		}
		seen := make(map[string]bool, len(s.Connectors))
		for i, c := range s.Connectors {
			if c.ID == "" && c.Name == "" {
				invalid = append(invalid, fmt.Sprintf("simulation.connectors[%d] needs an id or a name", i))
				continue
			}
			key := c.Key()
			if seen[key] {
				invalid = append(invalid, fmt.Sprintf("simulation.connectors[%d] duplicates %q", i, key))
			}
			seen[key] = true
			if c.FailurePercent < 0 || c.FailurePercent > 100 {
				invalid = append(invalid, fmt.Sprintf("simulation.connectors[%d].failure_percent must be within [0,100]", i))
			}
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(invalid, ", "))
	}

	return nil
}

// Key returns the stable registry key: the connector instance id, else its name.
func (c Connector) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Name
}
