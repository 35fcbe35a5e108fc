package claim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jinford/claim-rag/internal/core/assessment"
)

// AnalysisSourceDataset は静的データセットから投入した請求の analysis_source
const AnalysisSourceDataset = "static_dataset"

// DatasetRecord は静的データセットの1件
type DatasetRecord struct {
	ImagePath    string    `json:"image_path"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Severity     string    `json:"severity"`
	Embedding    []float32 `json:"embedding,omitempty"`
	CostEstimate *int      `json:"cost_estimate,omitempty"`
}

// LoadDataset は DatasetRecord の JSON 配列ファイルを読み込む
func LoadDataset(path string) ([]DatasetRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	var records []DatasetRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: dataset file must be a JSON array: %v", ErrInvalidInput, err)
	}
	return records, nil
}

// DatasetImporter は評価済みの静的データセットを請求ストアへ投入する。
// 画像解析は行わず、埋め込みと見積額だけを必要に応じて補う。
type DatasetImporter struct {
	repo      Repository
	embedder  Embedder
	estimator *Estimator
	logger    *slog.Logger
}

type datasetImporterOptions struct {
	logger    *slog.Logger
	estimator *Estimator
}

// DatasetImporterOption は DatasetImporter のオプション設定
type DatasetImporterOption func(*datasetImporterOptions)

// WithDatasetImporterLogger はロガーを差し替える
func WithDatasetImporterLogger(logger *slog.Logger) DatasetImporterOption {
	return func(o *datasetImporterOptions) {
		o.logger = logger
	}
}

// WithDatasetEstimator は見積額が欠けたレコードに使う Estimator を差し替える
func WithDatasetEstimator(estimator *Estimator) DatasetImporterOption {
	return func(o *datasetImporterOptions) {
		o.estimator = estimator
	}
}

// NewDatasetImporter は新しい DatasetImporter を作成する
func NewDatasetImporter(repo Repository, embedder Embedder, opts ...DatasetImporterOption) *DatasetImporter {
	options := datasetImporterOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.estimator == nil {
		options.estimator = NewEstimator(nil)
	}

	return &DatasetImporter{
		repo:      repo,
		embedder:  embedder,
		estimator: options.estimator,
		logger:    options.logger,
	}
}

// Import はレコードを順に投入する。
// 登録済みの image_path はスキップし、1件の失敗では止めずに結果へ記録する。
func (d *DatasetImporter) Import(ctx context.Context, records []DatasetRecord) (*SeedReport, error) {
	d.logger.Info("データセットの投入を開始します", "records", len(records))

	report := &SeedReport{}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		skipped, err := d.importOne(ctx, rec)
		switch {
		case err != nil:
			d.logger.Error("レコードの投入に失敗しました", "image_path", rec.ImagePath, "error", err)
			report.Failed = append(report.Failed, SeedFailure{ImagePath: rec.ImagePath, Err: err})
		case skipped:
			report.Skipped++
		default:
			report.Processed++
		}
	}

	d.logger.Info("データセットの投入が完了しました",
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", len(report.Failed),
	)
	return report, nil
}

func (d *DatasetImporter) importOne(ctx context.Context, rec DatasetRecord) (bool, error) {
	draft, err := rec.toClaim()
	if err != nil {
		return false, err
	}

	existing, err := d.repo.FindByImagePath(ctx, draft.ImagePath)
	if err != nil {
		return false, err
	}
	if existing.IsPresent() {
		d.logger.Info("既に登録済みのためスキップします", "image_path", draft.ImagePath)
		return true, nil
	}

	if !draft.HasEmbedding() {
		vector, err := d.embedder.Embed(ctx, draft.Description)
		if err != nil {
			return false, &PipelineError{Stage: StageAssessed, ImagePath: draft.ImagePath, Err: err}
		}
		draft.Embedding = vector
	}
	if draft.CostEstimate <= 0 {
		draft.CostEstimate = d.estimator.Estimate(draft.Severity, nil)
	}

	id, err := d.repo.Insert(ctx, draft)
	if err != nil {
		if errors.Is(err, ErrClaimConflict) {
			d.logger.Info("同時に登録されたためスキップします", "image_path", draft.ImagePath)
			return true, nil
		}
		return false, err
	}

	d.logger.Info("請求を登録しました", "id", id, "image_path", draft.ImagePath)
	return false, nil
}

func (r DatasetRecord) toClaim() (*Claim, error) {
	imagePath := strings.TrimSpace(r.ImagePath)
	if imagePath == "" {
		return nil, fmt.Errorf("%w: image_path is required", ErrInvalidInput)
	}
	if strings.TrimSpace(r.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	sev, err := assessment.ParseSeverity(r.Severity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	c := &Claim{
		ImagePath:      imagePath,
		Title:          r.Title,
		Description:    r.Description,
		Severity:       sev,
		Embedding:      r.Embedding,
		Processed:      true,
		AnalysisSource: AnalysisSourceDataset,
	}
	if r.CostEstimate != nil {
		c.CostEstimate = *r.CostEstimate
	}
	return c, nil
}
