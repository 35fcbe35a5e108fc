package search

import (
	"github.com/google/uuid"

	"github.com/jinford/claim-rag/internal/core/assessment"
)

// Match は類似検索でヒットした過去の請求を表す
type Match struct {
	ID           *uuid.UUID          `json:"_id,omitempty"`
	Title        string              `json:"title,omitempty"`
	Description  string              `json:"description"`
	Severity     assessment.Severity `json:"severity"`
	CostEstimate *int                `json:"cost_estimate,omitempty"`
	ImageBase64  string              `json:"image_base64,omitempty"`
	Score        float64             `json:"score"`
}

// VectorQuery はベクトル近傍検索の条件
type VectorQuery struct {
	Vector []float32
	// Candidates は近似探索で評価する候補数
	Candidates int
	// Limit 件まで取得したうえで先頭 Skip 件を読み飛ばす
	Limit int
	Skip  int
	// IncludeImage が true の場合は画像とタイトルも返す
	IncludeImage bool
}

// HybridQuery はベクトル近傍とキーワード一致を融合する検索の条件
type HybridQuery struct {
	Text       string
	Vector     []float32
	Candidates int
	Limit      int
}

// SimilarParams は Similar の入力
type SimilarParams struct {
	Embedding []float32
	Skip      int
	Limit     int
	// IncludeImage が true の場合は画像とタイトルも返す
	IncludeImage bool
}
