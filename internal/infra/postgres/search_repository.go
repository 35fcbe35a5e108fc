package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/claim-rag/internal/core/assessment"
	"github.com/jinford/claim-rag/internal/core/search"
	"github.com/jinford/claim-rag/internal/platform/database"
)

// rrfK は reciprocal rank fusion の定数
const rrfK = 60

// SearchRepository は core/search.Repository を実装する PostgreSQL リポジトリ
type SearchRepository struct {
	pool *pgxpool.Pool
}

// NewSearchRepository は新しい SearchRepository を返す
func NewSearchRepository(pool *pgxpool.Pool) *SearchRepository {
	return &SearchRepository{pool: pool}
}

var _ search.Repository = (*SearchRepository)(nil)

// 近傍 Limit 件を取得してから先頭 Skip 件を読み飛ばす
const vectorSearchSQL = `
SELECT id,
       CASE WHEN $4::boolean THEN title ELSE '' END,
       description, severity, cost_estimate,
       CASE WHEN $4::boolean THEN image_base64 ELSE '' END,
       score
FROM (
    SELECT id, title, description, severity, cost_estimate, image_base64,
           (1 - (embedding <=> $1))::float8 AS score
    FROM claims
    WHERE embedding IS NOT NULL
    ORDER BY embedding <=> $1
    LIMIT $2
) AS nearest
ORDER BY score DESC
OFFSET $3`

func (r *SearchRepository) VectorSearch(ctx context.Context, query search.VectorQuery) ([]*search.Match, error) {
	return database.Transact(ctx, r.pool, func(tx pgx.Tx) ([]*search.Match, error) {
		if err := setEfSearch(ctx, tx, query.Candidates); err != nil {
			return nil, err
		}

		rows, err := tx.Query(ctx, vectorSearchSQL,
			pgvector.NewVector(query.Vector),
			query.Limit,
			query.Skip,
			query.IncludeImage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to run vector search: %w", err)
		}
		return scanMatches(rows, false)
	})
}

// ベクトル近傍と全文検索の順位を reciprocal rank fusion で統合する。埋め込みのない請求は対象外
const hybridSearchSQL = `
WITH vector_ranked AS (
    SELECT id, ROW_NUMBER() OVER (ORDER BY embedding <=> $1) AS rank
    FROM claims
    WHERE embedding IS NOT NULL
    ORDER BY embedding <=> $1
    LIMIT $2
),
text_ranked AS (
    SELECT id,
           ROW_NUMBER() OVER (
               ORDER BY ts_rank_cd(to_tsvector('english', description), plainto_tsquery('english', $3)) DESC
           ) AS rank
    FROM claims
    WHERE embedding IS NOT NULL
      AND to_tsvector('english', description) @@ plainto_tsquery('english', $3)
    ORDER BY rank
    LIMIT $2
),
fused AS (
    SELECT COALESCE(v.id, t.id) AS id,
           COALESCE(1.0 / ($4::int + v.rank), 0) + COALESCE(1.0 / ($4::int + t.rank), 0) AS score
    FROM vector_ranked v
    FULL OUTER JOIN text_ranked t ON v.id = t.id
)
SELECT c.id, c.title, c.description, c.severity, c.cost_estimate, c.image_base64, f.score::float8
FROM fused f
JOIN claims c ON c.id = f.id
ORDER BY f.score DESC, c.created_at DESC
LIMIT $5`

func (r *SearchRepository) HybridSearch(ctx context.Context, query search.HybridQuery) ([]*search.Match, error) {
	return database.Transact(ctx, r.pool, func(tx pgx.Tx) ([]*search.Match, error) {
		if err := setEfSearch(ctx, tx, query.Candidates); err != nil {
			return nil, err
		}

		rows, err := tx.Query(ctx, hybridSearchSQL,
			pgvector.NewVector(query.Vector),
			query.Candidates,
			query.Text,
			rrfK,
			query.Limit,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to run hybrid search: %w", err)
		}
		return scanMatches(rows, true)
	})
}

// setEfSearch は HNSW 探索の候補数をトランザクション内に限って設定する
func setEfSearch(ctx context.Context, tx pgx.Tx, candidates int) error {
	if candidates <= 0 {
		return nil
	}
	if _, err := tx.Exec(ctx, "SELECT set_config('hnsw.ef_search', $1, true)", strconv.Itoa(candidates)); err != nil {
		return fmt.Errorf("failed to set hnsw.ef_search: %w", err)
	}
	return nil
}

func scanMatches(rows pgx.Rows, includeID bool) ([]*search.Match, error) {
	defer rows.Close()

	matches := []*search.Match{}
	for rows.Next() {
		var (
			id       pgtype.UUID
			severity string
			cost     pgtype.Int4
			m        search.Match
		)
		if err := rows.Scan(&id, &m.Title, &m.Description, &severity, &cost, &m.ImageBase64, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		if includeID {
			uid := PgtypeToUUID(id)
			m.ID = &uid
		}
		m.Severity = assessment.Severity(severity)
		m.CostEstimate = PgtypeToIntPtr(cost)
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}

	return matches, nil
}
