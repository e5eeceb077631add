package scriptwriter

type Config struct {
	MaxTokens   int
	Temperature float64

	// VoiceoverOnly swaps the visual-cue guideline for an explicit
	// prohibition of bracketed cues.
	VoiceoverOnly bool
}

func DefaultConfig() *Config {
	return &Config{
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}
