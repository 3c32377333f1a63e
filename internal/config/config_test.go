package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPipelineDefaults(t *testing.T) {
	p := LoadPipeline()
	assert.Equal(t, ProviderOpenAI, p.Provider)
	assert.Equal(t, 6000, p.ExcerptChars)
	assert.Equal(t, int64(25<<20), p.MaxUploadBytes)
	assert.Equal(t, []string{".pdf", ".doc", ".docx", ".ppt", ".pptx"}, p.AllowedExtensions)
	assert.Equal(t, 60*time.Second, p.CompletionTimeout)
	assert.NoError(t, p.Validate())
}

func TestLoadPipelineFromEnv(t *testing.T) {
	t.Setenv("COMPLETION_PROVIDER", "gemini")
	t.Setenv("EXCERPT_CHARS", "100")
	t.Setenv("COMPLETION_TIMEOUT", "5s")
	t.Setenv("ALLOWED_EXTENSIONS", ".pdf, .txt ,")

	p := LoadPipeline()
	assert.Equal(t, ProviderGemini, p.Provider)
	assert.Equal(t, 100, p.ExcerptChars)
	assert.Equal(t, 5*time.Second, p.CompletionTimeout)
	assert.Equal(t, []string{".pdf", ".txt"}, p.AllowedExtensions)
}

func TestLoadPipelineExtensions(t *testing.T) {
	t.Setenv("ALLOWED_EXTENSIONS", ".PDF, Docx,,.pptx")
	p := LoadPipeline()
	assert.Equal(t, []string{".pdf", ".docx", ".pptx"}, p.AllowedExtensions)

	path := filepath.Join(t.TempDir(), "docmind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("allowed_extensions: [\".DOC\", \"ppt\"]\n"), 0o600))
	require.NoError(t, p.Overlay(path))
	assert.Equal(t, []string{".doc", ".ppt"}, p.AllowedExtensions)
}

func TestValidate(t *testing.T) {
	base := LoadPipeline()

	tests := []struct {
		name   string
		mutate func(*Pipeline)
	}{
		{"unknown provider", func(p *Pipeline) { p.Provider = "llama" }},
		{"zero timeout", func(p *Pipeline) { p.CompletionTimeout = 0 }},
		{"zero excerpt", func(p *Pipeline) { p.ExcerptChars = 0 }},
		{"negative upload", func(p *Pipeline) { p.MaxUploadBytes = -1 }},
		{"zero questions", func(p *Pipeline) { p.MaxQuizQuestions = 0 }},
		{"zero recent", func(p *Pipeline) { p.RecentSearches = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docmind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: gpt-4o-mini\nmax_quiz_questions: 3\ncompletion_timeout: 10s\n"), 0o600))

	p := LoadPipeline()
	require.NoError(t, p.Overlay(path))
	assert.Equal(t, "gpt-4o-mini", p.Model)
	assert.Equal(t, 3, p.MaxQuizQuestions)
	assert.Equal(t, 10*time.Second, p.CompletionTimeout)
	assert.Equal(t, 6000, p.ExcerptChars)
}

func TestOverlayMissingFile(t *testing.T) {
	p := LoadPipeline()
	assert.Error(t, p.Overlay(filepath.Join(t.TempDir(), "nope.yaml")))
}
