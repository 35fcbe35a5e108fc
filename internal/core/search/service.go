package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	// DefaultCandidates は近似探索で評価する候補数のデフォルト
	DefaultCandidates = 200
	// DefaultSimilarLimit は Similar の返却件数のデフォルト
	DefaultSimilarLimit = 3
	// DefaultHybridLimit は Find の返却件数のデフォルト
	DefaultHybridLimit = 7
)

// ErrInvalidQuery は検索条件が不正な場合のエラー
var ErrInvalidQuery = errors.New("invalid search query")

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchService は類似請求検索のビジネスロジックを提供する
type SearchService struct {
	repo         Repository
	embedder     Embedder
	candidates   int
	similarLimit int
	hybridLimit  int
	logger       *slog.Logger
}

type searchOptions struct {
	logger       *slog.Logger
	candidates   int
	similarLimit int
	hybridLimit  int
}

// SearchOption は SearchService のオプション設定
type SearchOption func(*searchOptions)

// WithSearchLogger はロガーを差し替える
func WithSearchLogger(logger *slog.Logger) SearchOption {
	return func(o *searchOptions) {
		o.logger = logger
	}
}

// WithCandidates は近似探索の候補数を上書きする
func WithCandidates(n int) SearchOption {
	return func(o *searchOptions) {
		if n > 0 {
			o.candidates = n
		}
	}
}

// WithSimilarLimit は Similar のデフォルト件数を上書きする
func WithSimilarLimit(n int) SearchOption {
	return func(o *searchOptions) {
		if n > 0 {
			o.similarLimit = n
		}
	}
}

// WithHybridLimit は Find の件数を上書きする
func WithHybridLimit(n int) SearchOption {
	return func(o *searchOptions) {
		if n > 0 {
			o.hybridLimit = n
		}
	}
}

// NewSearchService は新しいSearchServiceを作成する
func NewSearchService(repo Repository, embedder Embedder, opts ...SearchOption) *SearchService {
	options := searchOptions{
		logger:       slog.Default(),
		candidates:   DefaultCandidates,
		similarLimit: DefaultSimilarLimit,
		hybridLimit:  DefaultHybridLimit,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &SearchService{
		repo:         repo,
		embedder:     embedder,
		candidates:   options.candidates,
		similarLimit: options.similarLimit,
		hybridLimit:  options.hybridLimit,
		logger:       options.logger,
	}
}

// Similar は埋め込みに近い過去の請求を類似度の高い順に返す。
// Limit 件を取得したあとで先頭 Skip 件を読み飛ばす。
func (s *SearchService) Similar(ctx context.Context, params SimilarParams) ([]*Match, error) {
	if len(params.Embedding) == 0 {
		return nil, fmt.Errorf("%w: embedding is required", ErrInvalidQuery)
	}
	if params.Skip < 0 {
		return nil, fmt.Errorf("%w: skip must not be negative", ErrInvalidQuery)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = s.similarLimit
	}

	matches, err := s.repo.VectorSearch(ctx, VectorQuery{
		Vector:       params.Embedding,
		Candidates:   s.candidates,
		Limit:        limit,
		Skip:         params.Skip,
		IncludeImage: params.IncludeImage,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	s.logger.Debug("類似請求を検索しました", "count", len(matches), "limit", limit, "skip", params.Skip)
	return matches, nil
}

// Find は検索語を埋め込み、ベクトル近傍とキーワード一致を融合した上位の請求を返す。
// 埋め込みを持たない請求は対象外。
func (s *SearchService) Find(ctx context.Context, term string) ([]*Match, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: search term is required", ErrInvalidQuery)
	}

	queryVector, err := s.embedder.Embed(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := s.repo.HybridSearch(ctx, HybridQuery{
		Text:       term,
		Vector:     queryVector,
		Candidates: s.candidates,
		Limit:      s.hybridLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("hybrid search failed: %w", err)
	}

	s.logger.Debug("ハイブリッド検索を実行しました", "term", term, "count", len(matches))
	return matches, nil
}
