// internal/workers/directory/set-listing-status/config.go
package setlistingstatus

import "time"

type Config struct {
	MaxJobsActive int
	Timeout       time.Duration
	AdminRole     string
}

func LoadConfig() *Config {
	return &Config{
		MaxJobsActive: 10,
		Timeout:       15 * time.Second,
		AdminRole:     "admin",
	}
}
