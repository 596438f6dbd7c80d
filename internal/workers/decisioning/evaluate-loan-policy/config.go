// internal/workers/decisioning/evaluate-loan-policy/config.go
package evaluateloanpolicy

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
