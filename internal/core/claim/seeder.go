package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jinford/claim-rag/internal/core/imagecodec"
)

// SeedFailure は一括投入で失敗した画像
type SeedFailure struct {
	ImagePath string
	Err       error
}

// SeedReport は一括投入の結果
type SeedReport struct {
	Processed int
	Skipped   int
	Failed    []SeedFailure
}

// Seeder は画像ディレクトリから請求ストアを初期投入する
type Seeder struct {
	pipeline        *Pipeline
	repo            Repository
	continueOnError bool
	logger          *slog.Logger
}

type seederOptions struct {
	logger          *slog.Logger
	continueOnError bool
}

// SeederOption は Seeder のオプション設定
type SeederOption func(*seederOptions)

// WithSeederLogger はロガーを差し替える
func WithSeederLogger(logger *slog.Logger) SeederOption {
	return func(o *seederOptions) {
		o.logger = logger
	}
}

// WithContinueOnError は画像単位の失敗時に続行するかどうかを設定する（デフォルトは続行）
func WithContinueOnError(v bool) SeederOption {
	return func(o *seederOptions) {
		o.continueOnError = v
	}
}

// NewSeeder は新しい Seeder を作成する
func NewSeeder(pipeline *Pipeline, repo Repository, opts ...SeederOption) *Seeder {
	options := seederOptions{
		logger:          slog.Default(),
		continueOnError: true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Seeder{
		pipeline:        pipeline,
		repo:            repo,
		continueOnError: options.continueOnError,
		logger:          options.logger,
	}
}

// SeedDirectory は dir 直下の通常ファイルを列挙順に処理する。
// image_path（ファイル名）が既に登録済みの画像はスキップするため、同じディレクトリで何度実行してもよい。
func (s *Seeder) SeedDirectory(ctx context.Context, dir string) (*SeedReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}

	s.logger.Info("画像の一括投入を開始します", "dir", dir, "entries", len(entries))

	report := &SeedReport{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !entry.Type().IsRegular() {
			continue
		}

		imagePath := entry.Name()
		skipped, err := s.seedOne(ctx, dir, imagePath)
		switch {
		case err != nil:
			s.logger.Error("画像の処理に失敗しました", "image_path", imagePath, "error", err)
			report.Failed = append(report.Failed, SeedFailure{ImagePath: imagePath, Err: err})
			if !s.continueOnError {
				s.logSummary(report)
				return report, err
			}
		case skipped:
			report.Skipped++
		default:
			report.Processed++
		}
	}

	s.logSummary(report)
	return report, nil
}

// seedOne は画像1枚を処理する。登録済みでスキップした場合は true を返す
func (s *Seeder) seedOne(ctx context.Context, dir, imagePath string) (bool, error) {
	existing, err := s.repo.FindByImagePath(ctx, imagePath)
	if err != nil {
		return false, &PipelineError{Stage: StageAbsent, ImagePath: imagePath, Err: err}
	}
	if existing.IsPresent() {
		s.logger.Info("既に登録済みのためスキップします", "image_path", imagePath)
		return true, nil
	}

	image, err := imagecodec.EncodeFile(filepath.Join(dir, imagePath))
	if err != nil {
		return false, &PipelineError{Stage: StageAbsent, ImagePath: imagePath, Err: err}
	}

	draft, err := s.pipeline.ingest(ctx, image)
	if err != nil {
		var pipelineErr *PipelineError
		if errors.As(err, &pipelineErr) {
			pipelineErr.ImagePath = imagePath
		}
		return false, err
	}

	draft.ImagePath = imagePath
	draft.AnalysisSource = AnalysisSourceBatch
	id, err := s.repo.Insert(ctx, draft)
	if err != nil {
		// 存在確認と保存の間に別プロセスが登録した場合
		if errors.Is(err, ErrClaimConflict) {
			s.logger.Info("同時に登録されたためスキップします", "image_path", imagePath)
			return true, nil
		}
		return false, &PipelineError{Stage: StagePriced, ImagePath: imagePath, Err: err}
	}

	s.logger.Info("請求を登録しました",
		"id", id,
		"image_path", imagePath,
		"title", draft.Title,
		"severity", draft.Severity,
		"cost_estimate", draft.CostEstimate,
	)
	return false, nil
}

func (s *Seeder) logSummary(report *SeedReport) {
	s.logger.Info("画像の一括投入が完了しました",
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", len(report.Failed),
	)
}
