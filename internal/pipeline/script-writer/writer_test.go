package scriptwriter

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "tubescript/internal/common/errors"
	"tubescript/internal/common/logger"
	"tubescript/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls    int
	lastReq  provider.CompletionRequest
	response string
	err      error
}

func (f *fakeProvider) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeProvider) Name() string { return "fake" }

func TestWriter_Write_Success(t *testing.T) {
	fake := &fakeProvider{response: "HOOK...BODY...OUTRO"}
	writer := NewWriter(DefaultConfig(), fake, logger.NewTestLogger(t))

	script, err := writer.Write(context.Background(), "Unboxing a new gadget", "Vlog", "")

	require.NoError(t, err)
	assert.Equal(t, "HOOK...BODY...OUTRO", script)
	assert.Equal(t, 1, fake.calls)
}

func TestWriter_Write_PromptStructure(t *testing.T) {
	fake := &fakeProvider{response: "script"}
	writer := NewWriter(DefaultConfig(), fake, logger.NewTestLogger(t))

	_, err := writer.Write(context.Background(), "How to sharpen kitchen knives", "Tutorial", "")
	require.NoError(t, err)

	prompt := fake.lastReq.User
	assert.Contains(t, prompt, "Topic: How to sharpen kitchen knives")
	assert.Contains(t, prompt, "Content Type: Tutorial")
	assert.Contains(t, prompt, "Introduction (Hook)")
	assert.Contains(t, prompt, "Main Content")
	assert.Contains(t, prompt, "Conclusion (Outro)")
	assert.Contains(t, prompt, "call to action")
	assert.Contains(t, prompt, "(pause)")
	assert.Contains(t, prompt, "[Show B-roll of...]")
	assert.Contains(t, fake.lastReq.System, "expert video script writer")
}

func TestWriter_Write_VoiceoverOnlyProhibitsCues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VoiceoverOnly = true
	fake := &fakeProvider{response: "script"}
	writer := NewWriter(cfg, fake, logger.NewTestLogger(t))

	_, err := writer.Write(context.Background(), "A day in my life", "Vlog", "")
	require.NoError(t, err)

	prompt := fake.lastReq.User
	assert.Contains(t, prompt, "Do NOT include any bracketed visual cues")
	assert.NotContains(t, prompt, "[Show B-roll of...]")
}

func TestWriter_Write_StyleGuidePassedVerbatim(t *testing.T) {
	styleGuide := "Dry humor, long pauses, British vocabulary, self-deprecating asides."
	fake := &fakeProvider{response: "script"}
	writer := NewWriter(DefaultConfig(), fake, logger.NewTestLogger(t))

	_, err := writer.Write(context.Background(), "Review of a mechanical keyboard", "Review", styleGuide)
	require.NoError(t, err)

	assert.Contains(t, fake.lastReq.User, styleGuide)
	assert.Contains(t, fake.lastReq.User, "Mimic the tone, pacing, and vocabulary")
}

func TestWriter_Write_NoStyleGuideNoMimicInstruction(t *testing.T) {
	fake := &fakeProvider{response: "script"}
	writer := NewWriter(DefaultConfig(), fake, logger.NewTestLogger(t))

	_, err := writer.Write(context.Background(), "Commentary on esports finals", "Commentary", "")
	require.NoError(t, err)

	assert.NotContains(t, fake.lastReq.User, "Mimic the tone")
}

func TestWriter_Write_Validation(t *testing.T) {
	tests := []struct {
		name        string
		topic       string
		contentType string
		field       string
	}{
		{"topic too short", "Hi", "Vlog", "topic"},
		{"topic too long", strings.Repeat("x", 501), "Vlog", "topic"},
		{"unknown content type", "A valid topic here", "Podcast", "contentType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeProvider{response: "should not be called"}
			writer := NewWriter(DefaultConfig(), fake, logger.NewNoOpLogger())

			_, err := writer.Write(context.Background(), tt.topic, tt.contentType, "")

			require.Error(t, err)
			var stdErr *apperrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, apperrors.ErrCodeValidationFailed, stdErr.Code)
			assert.Equal(t, tt.field, stdErr.Metadata["field"])
			assert.Equal(t, 0, fake.calls)
		})
	}
}

func TestWriter_Write_EmptyOutputIsError(t *testing.T) {
	fake := &fakeProvider{response: "  \n "}
	writer := NewWriter(DefaultConfig(), fake, logger.NewNoOpLogger())

	_, err := writer.Write(context.Background(), "Unboxing a new gadget", "Vlog", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrEmptyCompletion)
}

func TestWriter_Write_ProviderError(t *testing.T) {
	fake := &fakeProvider{err: errors.New("rate limited")}
	writer := NewWriter(DefaultConfig(), fake, logger.NewNoOpLogger())

	_, err := writer.Write(context.Background(), "Unboxing a new gadget", "Vlog", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
