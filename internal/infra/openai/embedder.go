package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"

	"github.com/jinford/claim-rag/internal/core/claim"
	"github.com/jinford/claim-rag/internal/core/search"
)

const (
	// DefaultEmbeddingModel はモデル未指定時のデフォルトモデル
	DefaultEmbeddingModel = "text-embedding-ada-002"
	// DefaultEmbeddingDimension はOpenAI推奨のデフォルト次元
	DefaultEmbeddingDimension = 1536
	// DefaultEmbeddingMaxTokens は埋め込み入力の最大トークン数
	DefaultEmbeddingMaxTokens = 8191
)

// Embedder は OpenAI 互換の埋め込みAPIでテキストをベクトルに変換する
type Embedder struct {
	client    openai.Client
	model     string
	dimension int
	maxTokens int
	trimmer   TokenTrimmer
	logger    *slog.Logger
}

type embedderOptions struct {
	model     string
	dimension int
	maxTokens int
	baseURL   string
	trimmer   TokenTrimmer
	logger    *slog.Logger
}

// EmbedderOption は Embedder のオプション設定
type EmbedderOption func(*embedderOptions)

// WithEmbeddingModel はモデル名を上書きする
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithEmbeddingDimension はベクトル次元を上書きする。0 の場合は次元を検証しない
func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// WithEmbeddingMaxTokens は入力の最大トークン数を上書きする
func WithEmbeddingMaxTokens(maxTokens int) EmbedderOption {
	return func(o *embedderOptions) {
		o.maxTokens = maxTokens
	}
}

// WithEmbeddingBaseURL は OpenAI 互換サーバーのURLを指定する
func WithEmbeddingBaseURL(baseURL string) EmbedderOption {
	return func(o *embedderOptions) {
		o.baseURL = baseURL
	}
}

// WithTokenTrimmer は入力の切り詰めに使う TokenTrimmer を指定する
func WithTokenTrimmer(trimmer TokenTrimmer) EmbedderOption {
	return func(o *embedderOptions) {
		o.trimmer = trimmer
	}
}

// WithEmbedderLogger はロガーを差し替える
func WithEmbedderLogger(logger *slog.Logger) EmbedderOption {
	return func(o *embedderOptions) {
		o.logger = logger
	}
}

// NewEmbedder は新しい Embedder を作成する
func NewEmbedder(apiKey string, opts ...EmbedderOption) *Embedder {
	options := embedderOptions{
		model:     DefaultEmbeddingModel,
		dimension: DefaultEmbeddingDimension,
		maxTokens: DefaultEmbeddingMaxTokens,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.trimmer == nil {
		options.logger.Warn("TokenTrimmer が未設定のため埋め込み入力を切り詰めません")
	}

	return &Embedder{
		client:    openai.NewClient(requestOptions(apiKey, options.baseURL)...),
		model:     options.model,
		dimension: options.dimension,
		maxTokens: options.maxTokens,
		trimmer:   options.trimmer,
		logger:    options.logger,
	}
}

// embeddingRequest は埋め込みAPIのリクエストボディ
type embeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions *int   `json:"dimensions,omitempty"`
}

// Embed は単一テキストの Embedding を生成する。
// 応答は OpenAI 形式以外の互換サーバーの形も受け付けるため、生の JSON を受け取ってから解釈する
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.trimmer != nil && e.maxTokens > 0 {
		text = e.trimmer.TrimToTokenLimit(text, e.maxTokens)
	}

	body := embeddingRequest{Model: e.model, Input: text}
	// ada-002 など旧モデルは dimensions を受け付けない
	if e.dimension > 0 && strings.HasPrefix(e.model, "text-embedding-3") {
		dim := e.dimension
		body.Dimensions = &dim
	}

	var raw json.RawMessage
	if err := e.client.Post(ctx, "embeddings", body, &raw); err != nil {
		return nil, upstreamError("embeddings", err)
	}

	vector, err := decodeEmbedding(raw)
	if err != nil {
		return nil, err
	}

	if e.dimension > 0 && len(vector) != e.dimension {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d", claim.ErrUnexpectedEmbeddingFormat, e.dimension, len(vector))
	}

	return vector, nil
}

// ModelName はモデル名を返す
func (e *Embedder) ModelName() string {
	return e.model
}

// Dimension はベクトル次元数を返す
func (e *Embedder) Dimension() int {
	return e.dimension
}

// インターフェース実装の確認
var (
	_ claim.Embedder  = (*Embedder)(nil)
	_ search.Embedder = (*Embedder)(nil)
)
