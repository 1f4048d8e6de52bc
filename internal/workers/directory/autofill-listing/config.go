// internal/workers/directory/autofill-listing/config.go
package autofilllisting

import "time"

type Config struct {
	MaxJobsActive int
	Timeout       time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxJobsActive: 5,
		Timeout:       45 * time.Second,
	}
}
