package search

import "context"

// Repository は類似請求の検索を行うデータアクセスのインターフェース
// テスト時のモック用に消費者側で定義
type Repository interface {
	// VectorSearch は埋め込みのコサイン類似度で近傍の請求を取得する
	VectorSearch(ctx context.Context, query VectorQuery) ([]*Match, error)

	// HybridSearch はベクトル近傍と全文検索の順位を融合して請求を取得する
	HybridSearch(ctx context.Context, query HybridQuery) ([]*Match, error)
}
