package claim

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/claim-rag/internal/core/assessment"
	"github.com/jinford/claim-rag/internal/core/search"
)

// Repository は請求ドキュメントのデータアクセスインターフェース
// テスト時のモック用に消費者側で定義
type Repository interface {
	// FindByImagePath は image_path が一致する請求を取得する
	FindByImagePath(ctx context.Context, imagePath string) (mo.Option[*Claim], error)

	// Insert は請求を保存する。image_path が重複する場合は ErrClaimConflict を返す
	Insert(ctx context.Context, c *Claim) (uuid.UUID, error)

	// ListMissingEmbedding は埋め込み未生成の請求を作成順に取得する
	ListMissingEmbedding(ctx context.Context) ([]*Claim, error)

	// UpdateEmbedding は請求の埋め込みを更新する
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
}

// UnhandledRepository は未処理請求のデータアクセスインターフェース
type UnhandledRepository interface {
	Insert(ctx context.Context, c *UnhandledClaim) (uuid.UUID, error)

	// List は全件を新しい順に取得する
	List(ctx context.Context) ([]*UnhandledClaim, error)

	// MarkProcessed は処理済みに更新し、更新件数を返す
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
}

// Assessor は画像から損傷評価を得るインターフェース
type Assessor interface {
	Assess(ctx context.Context, base64Image string) (assessment.DamageAssessment, error)
}

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SimilarFinder は類似請求を検索するインターフェース
type SimilarFinder interface {
	Similar(ctx context.Context, params search.SimilarParams) ([]*search.Match, error)
}
