package claim

import (
	"context"
	"fmt"
	"log/slog"
)

// BackfillReport は埋め込み補完の結果
type BackfillReport struct {
	Updated int
	Failed  int
}

// Backfiller は埋め込みが未生成の請求に埋め込みを付与する
type Backfiller struct {
	repo     Repository
	embedder Embedder
	logger   *slog.Logger
}

type backfillerOptions struct {
	logger *slog.Logger
}

// BackfillerOption は Backfiller のオプション設定
type BackfillerOption func(*backfillerOptions)

// WithBackfillerLogger はロガーを差し替える
func WithBackfillerLogger(logger *slog.Logger) BackfillerOption {
	return func(o *backfillerOptions) {
		o.logger = logger
	}
}

// NewBackfiller は新しい Backfiller を作成する
func NewBackfiller(repo Repository, embedder Embedder, opts ...BackfillerOption) *Backfiller {
	options := backfillerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Backfiller{
		repo:     repo,
		embedder: embedder,
		logger:   options.logger,
	}
}

// Backfill は埋め込みのない請求すべてについて description から埋め込みを生成する。
// 1件の失敗では中断しない
func (b *Backfiller) Backfill(ctx context.Context) (*BackfillReport, error) {
	claims, err := b.repo.ListMissingEmbedding(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims without embedding: %w", err)
	}

	report := &BackfillReport{}
	for _, c := range claims {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		embedding, err := b.embedder.Embed(ctx, c.Description)
		if err != nil {
			b.logger.Error("埋め込みの生成に失敗しました", "image_path", c.ImagePath, "error", err)
			report.Failed++
			continue
		}
		if err := b.repo.UpdateEmbedding(ctx, c.ID, embedding); err != nil {
			b.logger.Error("埋め込みの保存に失敗しました", "image_path", c.ImagePath, "error", err)
			report.Failed++
			continue
		}

		b.logger.Info("埋め込みを生成しました", "image_path", c.ImagePath, "dimension", len(embedding))
		report.Updated++
	}

	b.logger.Info("埋め込みの補完が完了しました", "updated", report.Updated, "failed", report.Failed)
	return report, nil
}
