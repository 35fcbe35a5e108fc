package claim

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/claim-rag/internal/core/assessment"
	"github.com/jinford/claim-rag/internal/core/search"
)

// 解析元を区別するための analysis_source の値
const (
	AnalysisSourceOnline = "openai_standard"
	AnalysisSourceBatch  = "openai_batch"
)

// Claim は損傷評価済みの請求ドキュメント
type Claim struct {
	ID             uuid.UUID
	ImagePath      string
	Title          string
	Description    string
	Severity       assessment.Severity
	DamageLocation *string
	EstimatedParts []string
	Embedding      []float32 // 未生成の場合は nil
	CostEstimate   int
	ImageBase64    string
	Processed      bool
	SimilarClaims  []*search.Match
	AnalysisSource string
	CreatedAt      time.Time
}

// HasEmbedding は埋め込みが生成済みかどうかを返す
func (c *Claim) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ReviewStatus は未処理請求の状態
type ReviewStatus string

const (
	ReviewStatusPending   ReviewStatus = "pending"
	ReviewStatusProcessed ReviewStatus = "processed"
)

// UnhandledClaim は人手の確認待ちとして投稿された請求
type UnhandledClaim struct {
	ID        uuid.UUID
	Payload   map[string]any
	Handled   bool
	Status    ReviewStatus
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// reservedPayloadKeys はシステムが管理するため投稿内容から取り除くキー
var reservedPayloadKeys = []string{"_id", "handled", "status", "createdAt", "updatedAt"}

// MarshalJSON は投稿内容とシステム管理項目を1つのドキュメントとして出力する
func (u *UnhandledClaim) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(u.Payload)+len(reservedPayloadKeys))
	for k, v := range u.Payload {
		doc[k] = v
	}
	doc["_id"] = u.ID
	doc["handled"] = u.Handled
	doc["status"] = u.Status
	doc["createdAt"] = u.CreatedAt
	if u.UpdatedAt != nil {
		doc["updatedAt"] = *u.UpdatedAt
	} else {
		delete(doc, "updatedAt")
	}
	return json.Marshal(doc)
}
