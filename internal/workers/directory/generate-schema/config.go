// internal/workers/directory/generate-schema/config.go
package generateschema

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
