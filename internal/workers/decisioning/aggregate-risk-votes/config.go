// internal/workers/decisioning/aggregate-risk-votes/config.go
package aggregateriskvotes

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
