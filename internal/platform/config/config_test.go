package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(50<<20), cfg.Server.MaxBodyBytes)
	assert.False(t, cfg.Server.PersistOnlineClaim)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.VisionModel)
	assert.Equal(t, 1000, cfg.OpenAI.VisionMaxTokens)
	assert.Equal(t, 1536, cfg.OpenAI.EmbeddingDimension)
	assert.Equal(t, 200, cfg.Search.VectorCandidates)
	assert.Equal(t, 3, cfg.Search.SimilarLimit)
	assert.Equal(t, 7, cfg.Search.HybridLimit)
	assert.Equal(t, "./dataset", cfg.Seed.DatasetDir)
	assert.True(t, cfg.Seed.ContinueOnError)
}

func TestLoad_EnvFileOverrides(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "PORT=8081\nCORS_ALLOWED_ORIGINS=http://a.example, http://b.example\nPERSIST_ONLINE_CLAIMS=true\nSEED_CONTINUE_ON_ERROR=false\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	// godotenv は既存の環境変数を上書きしないため、テスト終了時に消しておく
	for _, key := range []string{"PORT", "CORS_ALLOWED_ORIGINS", "PERSIST_ONLINE_CLAIMS", "SEED_CONTINUE_ON_ERROR"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Server.PersistOnlineClaim)
	assert.False(t, cfg.Seed.ContinueOnError)
}

func TestGetEnvHelpers_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CLAIM_TEST_INT", "abc")
	t.Setenv("CLAIM_TEST_BOOL", "maybe")
	t.Setenv("CLAIM_TEST_LIST", " , ")

	assert.Equal(t, 5, getEnvAsInt("CLAIM_TEST_INT", 5))
	assert.True(t, getEnvAsBool("CLAIM_TEST_BOOL", true))
	assert.Equal(t, []string{"x"}, getEnvAsList("CLAIM_TEST_LIST", []string{"x"}))
}
