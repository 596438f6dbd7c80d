// internal/workers/decisioning/score-credit-risk/config.go
package scorecreditrisk

import "time"

type Config struct {
	// Endpoints maps model name to its scoring URL.
	Endpoints    map[string]string
	ModelTimeout time.Duration
	CacheTTL     time.Duration
	Timeout      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Endpoints:    map[string]string{},
		ModelTimeout: 2 * time.Second,
		CacheTTL:     10 * time.Minute,
		Timeout:      10 * time.Second,
	}
}
