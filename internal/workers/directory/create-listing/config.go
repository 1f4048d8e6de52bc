// internal/workers/directory/create-listing/config.go
package createlisting

import "time"

type Config struct {
	MaxJobsActive int
	Timeout       time.Duration
	// AdminRole is the process role name that grants ADMIN.
	AdminRole string
}

func LoadConfig() *Config {
	return &Config{
		MaxJobsActive: 10,
		Timeout:       15 * time.Second,
		AdminRole:     "admin",
	}
}
