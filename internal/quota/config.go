package quota

import "time"

type Config struct {
	FreeTierLimit int
	CacheTTL      time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		FreeTierLimit: 3,
		CacheTTL:      5 * time.Minute,
	}
}
