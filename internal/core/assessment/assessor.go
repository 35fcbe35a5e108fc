package assessment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/claim-rag/internal/core/imagecodec"
)

// VisionClient は画像とプロンプトを受け取りテキスト応答を返す vision モデルのインターフェース
type VisionClient interface {
	DescribeImage(ctx context.Context, imageURL, prompt string) (string, error)
}

// Assessor は vision モデルを使って画像から損傷評価を得る
type Assessor struct {
	client VisionClient
	logger *slog.Logger
}

type assessorOptions struct {
	logger *slog.Logger
}

// AssessorOption は Assessor のオプション設定
type AssessorOption func(*assessorOptions)

// WithAssessorLogger はロガーを差し替える
func WithAssessorLogger(logger *slog.Logger) AssessorOption {
	return func(o *assessorOptions) {
		o.logger = logger
	}
}

// NewAssessor は新しい Assessor を作成する
func NewAssessor(client VisionClient, opts ...AssessorOption) *Assessor {
	options := assessorOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Assessor{
		client: client,
		logger: options.logger,
	}
}

// Assess は base64 画像を評価する。リトライは行わない
func (a *Assessor) Assess(ctx context.Context, base64Image string) (DamageAssessment, error) {
	content, err := a.client.DescribeImage(ctx, imagecodec.DataURI(base64Image), BuildPrompt())
	if err != nil {
		return DamageAssessment{}, fmt.Errorf("failed to describe image: %w", err)
	}

	result, err := Parse(content)
	if err != nil {
		a.logger.Warn("モデル応答を解釈できませんでした", "error", err)
		return DamageAssessment{}, err
	}

	a.logger.Info("損傷評価が完了しました",
		"title", result.Title,
		"severity", result.Severity,
	)
	return result, nil
}
