package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jinford/claim-rag/internal/core/assessment"
	"github.com/jinford/claim-rag/internal/core/claim"
	"github.com/jinford/claim-rag/internal/core/search"
	"github.com/jinford/claim-rag/internal/infra/openai"
	"github.com/jinford/claim-rag/internal/infra/postgres"
	"github.com/jinford/claim-rag/internal/platform/config"
	"github.com/jinford/claim-rag/internal/platform/database"
)

// ErrDatabaseRequired は Database なしでコンテナを組み立てようとした場合のエラー
var ErrDatabaseRequired = errors.New("database is required")

// ServiceContainer はアプリケーションの依存関係を保持する。
// HTTPハンドラとCLIはここからサービスを受け取り、グローバルな接続は持たない。
type ServiceContainer struct {
	Pipeline        *claim.Pipeline
	Seeder          *claim.Seeder
	DatasetImporter *claim.DatasetImporter
	Backfiller      *claim.Backfiller
	ReviewService   *claim.ReviewService
	SearchService   *search.SearchService
	ClaimRepository claim.Repository // 一括投入のオプション差し替え用

	logger   *slog.Logger
	database *database.Database
}

type containerOptions struct {
	logger       *slog.Logger
	visionClient assessment.VisionClient
	embedder     claim.Embedder
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerVisionClient は画像解析クライアントを注入する
func WithContainerVisionClient(client assessment.VisionClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.visionClient = client
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder claim.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// NewContainer は設定からコンテナを生成する。接続後にスキーマを適用する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	db, err := database.New(ctx, database.ConnectionParams{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
	}

	if err := db.Migrate(ctx, cfg.OpenAI.EmbeddingDimension); err != nil {
		db.Close()
		return nil, fmt.Errorf("スキーマの適用に失敗しました: %w", err)
	}

	c, err := NewContainerWithDB(cfg, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewContainerWithDB は既存の Database を受け取りコンテナを生成する。
func NewContainerWithDB(cfg *config.Config, db *database.Database, opts ...ContainerOption) (*ServiceContainer, error) {
	if db == nil || db.Pool == nil {
		return nil, ErrDatabaseRequired
	}

	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	// Vision (OpenAI)
	visionClient := options.visionClient
	if visionClient == nil {
		client, err := openai.NewClient(
			cfg.OpenAI.APIKey,
			openai.WithVisionModel(cfg.OpenAI.VisionModel),
			openai.WithVisionMaxTokens(cfg.OpenAI.VisionMaxTokens),
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("OpenAI クライアント初期化に失敗しました: %w", err)
		}
		visionClient = client
	}

	// Embedder (OpenAI)
	embedder := options.embedder
	if embedder == nil {
		embedderOpts := []openai.EmbedderOption{
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
			openai.WithEmbeddingMaxTokens(cfg.OpenAI.EmbeddingMaxTokens),
			openai.WithEmbeddingBaseURL(cfg.OpenAI.BaseURL),
			openai.WithEmbedderLogger(options.logger),
		}
		trimmer, err := openai.NewTokenTrimmer()
		if err != nil {
			options.logger.Warn("トークナイザを読み込めないため埋め込み入力を切り詰めません", "error", err)
		} else {
			embedderOpts = append(embedderOpts, openai.WithTokenTrimmer(trimmer))
		}
		embedder = openai.NewEmbedder(cfg.OpenAI.APIKey, embedderOpts...)
	}

	// Repository (PostgreSQL)
	claimRepo := postgres.NewClaimRepository(db.Pool)
	unhandledRepo := postgres.NewUnhandledRepository(db.Pool)
	searchRepo := postgres.NewSearchRepository(db.Pool)

	// SearchService
	searchService := search.NewSearchService(
		searchRepo,
		embedder,
		search.WithSearchLogger(options.logger),
		search.WithCandidates(cfg.Search.VectorCandidates),
		search.WithSimilarLimit(cfg.Search.SimilarLimit),
		search.WithHybridLimit(cfg.Search.HybridLimit),
	)

	// Pipeline
	assessor := assessment.NewAssessor(visionClient, assessment.WithAssessorLogger(options.logger))
	pipelineOpts := []claim.PipelineOption{claim.WithPipelineLogger(options.logger)}
	if cfg.Server.PersistOnlineClaim {
		pipelineOpts = append(pipelineOpts, claim.WithOnlinePersistence(claimRepo))
	}
	pipeline := claim.NewPipeline(assessor, embedder, searchService, pipelineOpts...)

	c := &ServiceContainer{
		Pipeline:        pipeline,
		DatasetImporter: claim.NewDatasetImporter(claimRepo, embedder, claim.WithDatasetImporterLogger(options.logger)),
		Backfiller:      claim.NewBackfiller(claimRepo, embedder, claim.WithBackfillerLogger(options.logger)),
		ReviewService:   claim.NewReviewService(unhandledRepo, claim.WithReviewLogger(options.logger)),
		SearchService:   searchService,
		ClaimRepository: claimRepo,
		logger:          options.logger,
		database:        db,
	}
	c.Seeder = c.NewSeeder(cfg.Seed.ContinueOnError)

	return c, nil
}

// NewSeeder は失敗時の扱いを指定して Seeder を生成する
func (c *ServiceContainer) NewSeeder(continueOnError bool) *claim.Seeder {
	return claim.NewSeeder(
		c.Pipeline,
		c.ClaimRepository,
		claim.WithSeederLogger(c.Logger()),
		claim.WithContinueOnError(continueOnError),
	)
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c != nil && c.database != nil {
		c.database.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Database はデータベースを返す。
func (c *ServiceContainer) Database() *database.Database {
	if c == nil {
		return nil
	}
	return c.database
}
