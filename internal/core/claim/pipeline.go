package claim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/jinford/claim-rag/internal/core/assessment"
	"github.com/jinford/claim-rag/internal/core/imagecodec"
	"github.com/jinford/claim-rag/internal/core/search"
)

// CreateParams はオンライン取り込みの入力
type CreateParams struct {
	// Image は base64 画像。data URI ヘッダや JSON 文字列リテラルでもよい
	Image string
}

// Result はオンライン取り込みの結果
type Result struct {
	ClaimID       *uuid.UUID          `json:"claimId,omitempty"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Severity      assessment.Severity `json:"severity"`
	CostEstimate  int                 `json:"cost_estimate"`
	Embedding     []float32           `json:"embedding"`
	SimilarClaims []*search.Match     `json:"similar_claims"`
}

// Pipeline は画像1枚を評価・埋め込み・類似検索・見積まで処理する
type Pipeline struct {
	assessor  Assessor
	embedder  Embedder
	finder    SimilarFinder
	estimator *Estimator
	repo      Repository
	persist   bool
	imageKey  func() string
	now       func() time.Time
	logger    *slog.Logger
}

type pipelineOptions struct {
	logger    *slog.Logger
	estimator *Estimator
	repo      Repository
	persist   bool
	imageKey  func() string
	now       func() time.Time
}

// PipelineOption は Pipeline のオプション設定
type PipelineOption func(*pipelineOptions)

// WithPipelineLogger はロガーを差し替える
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(o *pipelineOptions) {
		o.logger = logger
	}
}

// WithEstimator は見積ロジックを差し替える
func WithEstimator(estimator *Estimator) PipelineOption {
	return func(o *pipelineOptions) {
		o.estimator = estimator
	}
}

// WithOnlinePersistence はオンライン取り込み結果を repo に保存する
func WithOnlinePersistence(repo Repository) PipelineOption {
	return func(o *pipelineOptions) {
		o.repo = repo
		o.persist = repo != nil
	}
}

// WithImageKeyGenerator はオンライン保存時の image_path 生成を差し替える
func WithImageKeyGenerator(fn func() string) PipelineOption {
	return func(o *pipelineOptions) {
		o.imageKey = fn
	}
}

// WithPipelineClock は作成日時に使う時計を差し替える
func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(o *pipelineOptions) {
		o.now = now
	}
}

// NewPipeline は新しい Pipeline を作成する
func NewPipeline(assessor Assessor, embedder Embedder, finder SimilarFinder, opts ...PipelineOption) *Pipeline {
	options := pipelineOptions{
		logger:   slog.Default(),
		imageKey: newImageKey,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.estimator == nil {
		options.estimator = NewEstimator(nil)
	}

	return &Pipeline{
		assessor:  assessor,
		embedder:  embedder,
		finder:    finder,
		estimator: options.estimator,
		repo:      options.repo,
		persist:   options.persist,
		imageKey:  options.imageKey,
		now:       options.now,
		logger:    options.logger,
	}
}

// newImageKey は時刻順に並ぶ一意な image_path を生成する
func newImageKey() string {
	return fmt.Sprintf("claim_%s.jpg", ulid.Make().String())
}

// CreateClaim は画像を評価し、類似請求と見積額を付けて返す。
// 評価または埋め込みに失敗した場合は中断し、類似検索の失敗は空の結果として続行する。
func (p *Pipeline) CreateClaim(ctx context.Context, params CreateParams) (*Result, error) {
	image := imagecodec.StripDataURI(params.Image)
	if image == "" {
		return nil, fmt.Errorf("%w: image is required", ErrInvalidInput)
	}

	draft, err := p.ingest(ctx, image)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Title:         draft.Title,
		Description:   draft.Description,
		Severity:      draft.Severity,
		CostEstimate:  draft.CostEstimate,
		Embedding:     draft.Embedding,
		SimilarClaims: draft.SimilarClaims,
	}

	if !p.persist {
		return result, nil
	}

	draft.ImagePath = p.imageKey()
	draft.AnalysisSource = AnalysisSourceOnline
	id, err := p.repo.Insert(ctx, draft)
	if err != nil {
		return nil, &PipelineError{Stage: StagePriced, ImagePath: draft.ImagePath, Err: err}
	}
	result.ClaimID = &id

	p.logger.Info("請求を保存しました", "id", id, "image_path", draft.ImagePath)
	return result, nil
}

// ingest は評価・埋め込み・類似検索・見積を行い、保存前の請求を返す
func (p *Pipeline) ingest(ctx context.Context, image string) (*Claim, error) {
	assessed, err := p.assessor.Assess(ctx, image)
	if err != nil {
		return nil, &PipelineError{Stage: StageAbsent, Err: err}
	}

	embedding, err := p.embedder.Embed(ctx, assessed.Description)
	if err != nil {
		return nil, &PipelineError{Stage: StageAssessed, Err: err}
	}
	p.logger.Debug("埋め込みを生成しました", "dimension", len(embedding))

	matches, err := p.finder.Similar(ctx, search.SimilarParams{Embedding: embedding})
	if err != nil {
		p.logger.Warn("類似請求の検索に失敗したため、類似請求なしで続行します", "error", err)
		matches = []*search.Match{}
	}
	if matches == nil {
		matches = []*search.Match{}
	}
	p.logger.Info("類似請求を検索しました", "count", len(matches))

	cost := p.estimator.Estimate(assessed.Severity, matches)

	return &Claim{
		Title:          assessed.Title,
		Description:    assessed.Description,
		Severity:       assessed.Severity,
		DamageLocation: assessed.DamageLocation,
		EstimatedParts: assessed.EstimatedParts,
		Embedding:      embedding,
		CostEstimate:   cost,
		ImageBase64:    image,
		Processed:      true,
		SimilarClaims:  matches,
		CreatedAt:      p.now(),
	}, nil
}
