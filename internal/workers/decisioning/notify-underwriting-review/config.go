// internal/workers/decisioning/notify-underwriting-review/config.go
package notifyunderwritingreview

import "time"

type Config struct {
	Enabled      bool
	TopicARN     string
	EmailEnabled bool
	FromEmail    string
	ToEmails     []string
	Timeout      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Enabled: true,
		Timeout: 15 * time.Second,
	}
}
