package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（画像解析 + Embeddings）
	OpenAI OpenAIConfig

	// HTTPサーバー設定
	Server ServerConfig

	// 類似検索設定
	Search SearchConfig

	// バッチ投入設定
	Seed SeedConfig

	// ログ設定
	Log LogConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	URL      string // DATABASE_URL が設定されている場合は個別項目より優先
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string // OpenAI互換サーバーを使う場合のみ指定
	VisionModel        string
	VisionMaxTokens    int
	EmbeddingModel     string
	EmbeddingDimension int
	EmbeddingMaxTokens int
}

// ServerConfig はHTTPサーバー設定
type ServerConfig struct {
	Port               int
	AllowedOrigins     []string
	MaxBodyBytes       int64
	PersistOnlineClaim bool
}

// SearchConfig は類似検索のパラメータ
type SearchConfig struct {
	VectorCandidates int
	SimilarLimit     int
	HybridLimit      int
}

// SeedConfig は画像ディレクトリからの一括投入設定
type SeedConfig struct {
	DatasetDir      string
	ContinueOnError bool
}

// LogConfig はログ出力設定
type LogConfig struct {
	Level  string
	Format string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "claims"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "claims"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			BaseURL:            getEnv("OPENAI_BASE_URL", ""),
			VisionModel:        getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
			VisionMaxTokens:    getEnvAsInt("OPENAI_VISION_MAX_TOKENS", 1000),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-ada-002"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			EmbeddingMaxTokens: getEnvAsInt("OPENAI_EMBEDDING_MAX_TOKENS", 8191),
		},
		Server: ServerConfig{
			Port:               getEnvAsInt("PORT", 9090),
			AllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:8080"}),
			MaxBodyBytes:       int64(getEnvAsInt("MAX_BODY_BYTES", 50<<20)), // 画像を base64 で受け取るため大きめ
			PersistOnlineClaim: getEnvAsBool("PERSIST_ONLINE_CLAIMS", false),
		},
		Search: SearchConfig{
			VectorCandidates: getEnvAsInt("VECTOR_CANDIDATES", 200),
			SimilarLimit:     getEnvAsInt("SIMILAR_LIMIT", 3),
			HybridLimit:      getEnvAsInt("HYBRID_LIMIT", 7),
		},
		Seed: SeedConfig{
			DatasetDir:      getEnv("SEED_DATASET_DIR", "./dataset"),
			ContinueOnError: getEnvAsBool("SEED_CONTINUE_ON_ERROR", true),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList はカンマ区切りの環境変数をスライスとして取得します
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
