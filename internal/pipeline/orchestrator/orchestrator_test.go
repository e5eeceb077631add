package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "tubescript/internal/common/errors"
	"tubescript/internal/common/logger"
	"tubescript/internal/models"
	"tubescript/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	calls   int
	lastURL string
	guide   string
	err     error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, referenceURL string) (string, error) {
	f.calls++
	f.lastURL = referenceURL
	return f.guide, f.err
}

type fakeWriter struct {
	calls     int
	lastTopic string
	lastType  string
	lastGuide string
	script    string
	err       error
}

func (f *fakeWriter) Write(ctx context.Context, topic, contentType, styleGuide string) (string, error) {
	f.calls++
	f.lastTopic = topic
	f.lastType = contentType
	f.lastGuide = styleGuide
	return f.script, f.err
}

func newOrchestrator(t *testing.T, a *fakeAnalyzer, w *fakeWriter) *Orchestrator {
	return New(a, w, 30*time.Second, logger.NewTestLogger(t))
}

func TestGenerate_NoReferenceURL_SkipsAnalyzer(t *testing.T) {
	analyzer := &fakeAnalyzer{guide: "should not be used"}
	writer := &fakeWriter{script: "HOOK...BODY...OUTRO"}
	orch := newOrchestrator(t, analyzer, writer)

	result, err := orch.Generate(context.Background(), models.GenerationRequest{
		Topic:       "Unboxing a new gadget",
		ContentType: "Vlog",
	})

	require.NoError(t, err)
	assert.Equal(t, "HOOK...BODY...OUTRO", result.Script)
	assert.False(t, result.StyleApplied)
	assert.Equal(t, 0, analyzer.calls, "analyzer must never run without a reference URL")
	assert.Equal(t, 1, writer.calls)
	assert.Equal(t, "", writer.lastGuide)
}

func TestGenerate_AnalyzerFailure_FailsOpen(t *testing.T) {
	analyzer := &fakeAnalyzer{err: apperrors.NewStyleAnalysisError(errors.New("provider unreachable"))}
	writer := &fakeWriter{script: "a complete script"}
	orch := newOrchestrator(t, analyzer, writer)

	result, err := orch.Generate(context.Background(), models.GenerationRequest{
		Topic:        "Review of a laptop",
		ContentType:  "Review",
		ReferenceURL: "https://broken.example",
	})

	require.NoError(t, err, "an unanalyzable reference URL must never block generation")
	assert.NotEmpty(t, result.Script)
	assert.False(t, result.StyleApplied)
	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, "", writer.lastGuide, "writer runs without a style guide on analyzer failure")
}

func TestGenerate_StyleGuidePassedUnmodified(t *testing.T) {
	guide := "Energetic, meme-heavy, lots of jump cuts.\nAlways opens with a question."
	analyzer := &fakeAnalyzer{guide: guide}
	writer := &fakeWriter{script: "styled script"}
	orch := newOrchestrator(t, analyzer, writer)

	result, err := orch.Generate(context.Background(), models.GenerationRequest{
		Topic:        "Trying viral food hacks",
		ContentType:  "Vlog",
		ReferenceURL: "https://youtube.com/@creator",
	})

	require.NoError(t, err)
	assert.True(t, result.StyleApplied)
	assert.Equal(t, "https://youtube.com/@creator", analyzer.lastURL)
	assert.Equal(t, guide, writer.lastGuide, "style guide must reach the writer byte-for-byte")
}

func TestGenerate_WriterFailure_IsTerminal(t *testing.T) {
	analyzer := &fakeAnalyzer{guide: "some style"}
	writer := &fakeWriter{err: fmt.Errorf("script generation: %w", provider.ErrProviderFailed)}
	orch := newOrchestrator(t, analyzer, writer)

	_, err := orch.Generate(context.Background(), models.GenerationRequest{
		Topic:       "Unboxing a new gadget",
		ContentType: "Vlog",
	})

	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeGenerationFailed, stdErr.Code)
	assert.Equal(t, "There was a problem generating your script", stdErr.Message)
}

func TestGenerate_WriterTimeout_MapsToProviderTimeout(t *testing.T) {
	writer := &fakeWriter{err: fmt.Errorf("script generation: %w", provider.ErrProviderTimeout)}
	orch := newOrchestrator(t, &fakeAnalyzer{}, writer)

	_, err := orch.Generate(context.Background(), models.GenerationRequest{
		Topic:       "Unboxing a new gadget",
		ContentType: "Vlog",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeProviderTimeout, apperrors.CodeOf(err))
}

func TestGenerate_ValidationErrorPreserved(t *testing.T) {
	writer := &fakeWriter{err: apperrors.NewValidationError("topic", "too short")}
	orch := newOrchestrator(t, &fakeAnalyzer{}, writer)

	_, err := orch.Generate(context.Background(), models.GenerationRequest{
		Topic:       "Hi",
		ContentType: "Vlog",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.CodeOf(err))
}

func TestGenerate_Deterministic(t *testing.T) {
	analyzer := &fakeAnalyzer{guide: "steady tone"}
	writer := &fakeWriter{script: "same script every time"}
	orch := newOrchestrator(t, analyzer, writer)

	req := models.GenerationRequest{
		Topic:        "Commentary on chess openings",
		ContentType:  "Commentary",
		ReferenceURL: "https://example.com/channel",
	}

	first, err := orch.Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := orch.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Script, second.Script, "no hidden state between calls")
	assert.Equal(t, first.StyleApplied, second.StyleApplied)
}
