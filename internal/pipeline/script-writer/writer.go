// Package scriptwriter turns a topic and content type into a ready-to-record
// video script with a single completion call.
package scriptwriter

import (
	"context"
	"fmt"
	"strings"

	apperrors "tubescript/internal/common/errors"
	"tubescript/internal/common/logger"
	"tubescript/internal/common/validation"
	"tubescript/internal/provider"
)

const writerPersona = "You are an expert video script writer, known for creating scripts " +
	"that are natural, engaging, and sound like a real person talking to their audience. " +
	"Your scripts are ready to be used for recording immediately."

type Writer struct {
	config   *Config
	provider provider.Provider
	logger   logger.Logger
}

func NewWriter(config *Config, p provider.Provider, log logger.Logger) *Writer {
	return &Writer{
		config:   config,
		provider: p,
		logger:   log.WithFields(map[string]interface{}{"component": "script-writer"}),
	}
}

// Write generates a script for the topic. styleGuide is optional and must
// already be resolved by the caller; this component never fetches one.
// Exactly one outbound completion call per invocation.
func (w *Writer) Write(ctx context.Context, topic, contentType, styleGuide string) (string, error) {
	if err := validateInput(topic, contentType); err != nil {
		return "", err
	}

	script, err := w.provider.Complete(ctx, provider.CompletionRequest{
		System:      writerPersona,
		User:        w.buildPrompt(topic, contentType, styleGuide),
		MaxTokens:   w.config.MaxTokens,
		Temperature: w.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("script generation: %w", err)
	}

	if strings.TrimSpace(script) == "" {
		return "", fmt.Errorf("script generation: %w", provider.ErrEmptyCompletion)
	}

	w.logger.Info("script generated", map[string]interface{}{
		"contentType": contentType,
		"styled":      styleGuide != "",
		"chars":       len(script),
	})

	return script, nil
}

func validateInput(topic, contentType string) error {
	trimmed := strings.TrimSpace(topic)
	if len(trimmed) < validation.TopicMinLength || len(trimmed) > validation.TopicMaxLength {
		return apperrors.NewValidationError("topic", fmt.Sprintf(
			"topic must be between %d and %d characters",
			validation.TopicMinLength, validation.TopicMaxLength))
	}
	for _, ct := range validation.ContentTypes {
		if ct == contentType {
			return nil
		}
	}
	return apperrors.NewValidationError("contentType", fmt.Sprintf("unknown content type %q", contentType))
}

func (w *Writer) buildPrompt(topic, contentType, styleGuide string) string {
	var parts []string

	parts = append(parts, "Generate a complete video script based on the following information:")
	parts = append(parts, fmt.Sprintf("\nTopic: %s", topic))
	parts = append(parts, fmt.Sprintf("Content Type: %s", contentType))

	parts = append(parts, "\nYour script should have a clear structure:")
	parts = append(parts, "1. Introduction (Hook): Grab the viewer's attention in the first 10-15 seconds. State what the video is about and why they should watch.")
	parts = append(parts, "2. Main Content: Deliver the core message. Break it down into clear, easy-to-follow points.")
	parts = append(parts, `3. Conclusion (Outro): Summarize the key takeaways and include a clear call to action (e.g., "like and subscribe," "check out this other video," "leave a comment below").`)

	parts = append(parts, "\nWriting Style Guidelines:")
	parts = append(parts, `- Be Conversational: Write as if you're talking to a friend. Use contractions (e.g., "it's," "you're").`)
	parts = append(parts, `- Add Pauses: Indicate where the speaker should pause for effect, using "(pause)" or "...".`)
	parts = append(parts, "- Emphasize Words: Suggest which words or phrases should be emphasized to add personality.")
	if w.config.VoiceoverOnly {
		parts = append(parts, "- Voiceover Only: Do NOT include any bracketed visual cues, action notes, b-roll suggestions, or on-screen text directions. Every line must be spoken narration.")
	} else {
		parts = append(parts, `- Include Action/Visual Cues: Add notes in brackets like "[Show B-roll of...]" or "[Text on screen: ...]" to suggest visuals. This makes the script ready for editing.`)
	}
	parts = append(parts, "- Clarity is Key: Make sure the script is easy to read and understand.")

	if styleGuide != "" {
		parts = append(parts, "\nMimic the tone, pacing, and vocabulary described in this style guide:")
		parts = append(parts, styleGuide)
	}

	parts = append(parts, "\nThe output should be the script itself, formatted and ready for a creator to read.")

	return strings.Join(parts, "\n")
}
