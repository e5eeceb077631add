package styleanalyzer

type Config struct {
	MaxTokens   int
	Temperature float64
}

func DefaultConfig() *Config {
	return &Config{
		MaxTokens:   1024,
		Temperature: 0.5,
	}
}
