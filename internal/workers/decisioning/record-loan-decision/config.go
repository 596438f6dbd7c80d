// internal/workers/decisioning/record-loan-decision/config.go
package recordloandecision

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
