package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/mo"

	"github.com/jinford/claim-rag/internal/core/assessment"
	"github.com/jinford/claim-rag/internal/core/claim"
	"github.com/jinford/claim-rag/internal/core/search"
)

// ClaimRepository は core/claim.Repository を実装する PostgreSQL リポジトリ
type ClaimRepository struct {
	db DBTX
}

// NewClaimRepository は新しい ClaimRepository を返す
func NewClaimRepository(db DBTX) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// コンパイル時の型チェック
var _ claim.Repository = (*ClaimRepository)(nil)

const findClaimByImagePathSQL = `
SELECT id, image_path, title, description, severity, damage_location, estimated_parts,
       cost_estimate, processed, similar_claims, analysis_source, created_at
FROM claims
WHERE image_path = $1`

// FindByImagePath は image_path が一致する請求を取得する。画像と埋め込みは読み込まない
func (r *ClaimRepository) FindByImagePath(ctx context.Context, imagePath string) (mo.Option[*claim.Claim], error) {
	var (
		id             pgtype.UUID
		c              claim.Claim
		severity       string
		damageLocation pgtype.Text
		estimatedParts []byte
		similarClaims  []byte
	)
	err := r.db.QueryRow(ctx, findClaimByImagePathSQL, imagePath).Scan(
		&id,
		&c.ImagePath,
		&c.Title,
		&c.Description,
		&severity,
		&damageLocation,
		&estimatedParts,
		&c.CostEstimate,
		&c.Processed,
		&similarClaims,
		&c.AnalysisSource,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*claim.Claim](), nil
		}
		return mo.None[*claim.Claim](), fmt.Errorf("failed to get claim by image path: %w", err)
	}

	c.ID = PgtypeToUUID(id)
	c.Severity = assessment.Severity(severity)
	c.DamageLocation = PgtextToStringPtr(damageLocation)
	c.EstimatedParts = StringSliceFromJSONB(estimatedParts)
	if len(similarClaims) > 0 {
		if err := json.Unmarshal(similarClaims, &c.SimilarClaims); err != nil {
			return mo.None[*claim.Claim](), fmt.Errorf("failed to decode similar claims: %w", err)
		}
	}

	return mo.Some(&c), nil
}

const insertClaimSQL = `
INSERT INTO claims (
    image_path, title, description, severity, damage_location, estimated_parts, embedding,
    cost_estimate, image_base64, processed, similar_claims, analysis_source, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id`

// Insert は請求を保存する。image_path が重複する場合は claim.ErrClaimConflict を返す
func (r *ClaimRepository) Insert(ctx context.Context, c *claim.Claim) (uuid.UUID, error) {
	similar := c.SimilarClaims
	if similar == nil {
		similar = []*search.Match{}
	}
	similarJSON, err := json.Marshal(similar)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode similar claims: %w", err)
	}

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id pgtype.UUID
	err = r.db.QueryRow(ctx, insertClaimSQL,
		c.ImagePath,
		c.Title,
		c.Description,
		string(c.Severity),
		StringPtrToPgtext(c.DamageLocation),
		JSONBFromStringSlice(c.EstimatedParts),
		VectorOrNull(c.Embedding),
		c.CostEstimate,
		c.ImageBase64,
		c.Processed,
		similarJSON,
		c.AnalysisSource,
		TimeToPgtype(createdAt),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, fmt.Errorf("failed to insert claim %s: %w", c.ImagePath, claim.ErrClaimConflict)
		}
		return uuid.Nil, fmt.Errorf("failed to insert claim: %w", err)
	}

	c.ID = PgtypeToUUID(id)
	return c.ID, nil
}

const listClaimsMissingEmbeddingSQL = `
SELECT id, image_path, description
FROM claims
WHERE embedding IS NULL
ORDER BY created_at, id`

// ListMissingEmbedding は埋め込み未生成の請求を作成順に取得する
func (r *ClaimRepository) ListMissingEmbedding(ctx context.Context) ([]*claim.Claim, error) {
	rows, err := r.db.Query(ctx, listClaimsMissingEmbeddingSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims without embedding: %w", err)
	}
	defer rows.Close()

	var claims []*claim.Claim
	for rows.Next() {
		var (
			id pgtype.UUID
			c  claim.Claim
		)
		if err := rows.Scan(&id, &c.ImagePath, &c.Description); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		c.ID = PgtypeToUUID(id)
		claims = append(claims, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claims: %w", err)
	}

	return claims, nil
}

const updateClaimEmbeddingSQL = `UPDATE claims SET embedding = $2 WHERE id = $1`

// UpdateEmbedding は請求の埋め込みを更新する
func (r *ClaimRepository) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	tag, err := r.db.Exec(ctx, updateClaimEmbeddingSQL, UUIDToPgtype(id), VectorOrNull(embedding))
	if err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("claim %s: %w", id, claim.ErrNotFound)
	}
	return nil
}
