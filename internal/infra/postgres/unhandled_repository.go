package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jinford/claim-rag/internal/core/claim"
)

// UnhandledRepository は core/claim.UnhandledRepository を実装する PostgreSQL リポジトリ
type UnhandledRepository struct {
	db DBTX
}

// NewUnhandledRepository は新しい UnhandledRepository を返す
func NewUnhandledRepository(db DBTX) *UnhandledRepository {
	return &UnhandledRepository{db: db}
}

// コンパイル時の型チェック
var _ claim.UnhandledRepository = (*UnhandledRepository)(nil)

const insertUnhandledClaimSQL = `
INSERT INTO unhandled_claims (payload, handled, status, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id`

func (r *UnhandledRepository) Insert(ctx context.Context, c *claim.UnhandledClaim) (uuid.UUID, error) {
	payload := c.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode claim payload: %w", err)
	}

	var id pgtype.UUID
	err = r.db.QueryRow(ctx, insertUnhandledClaimSQL,
		payloadJSON,
		c.Handled,
		string(c.Status),
		TimeToPgtype(c.CreatedAt),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert unhandled claim: %w", err)
	}

	c.ID = PgtypeToUUID(id)
	return c.ID, nil
}

const listUnhandledClaimsSQL = `
SELECT id, payload, handled, status, created_at, updated_at
FROM unhandled_claims
ORDER BY created_at DESC, id`

func (r *UnhandledRepository) List(ctx context.Context) ([]*claim.UnhandledClaim, error) {
	rows, err := r.db.Query(ctx, listUnhandledClaimsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list unhandled claims: %w", err)
	}
	defer rows.Close()

	claims := []*claim.UnhandledClaim{}
	for rows.Next() {
		var (
			id        pgtype.UUID
			payload   []byte
			status    string
			updatedAt pgtype.Timestamptz
			c         claim.UnhandledClaim
		)
		if err := rows.Scan(&id, &payload, &c.Handled, &status, &c.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unhandled claim: %w", err)
		}
		if err := json.Unmarshal(payload, &c.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode claim payload: %w", err)
		}
		c.ID = PgtypeToUUID(id)
		c.Status = claim.ReviewStatus(status)
		c.UpdatedAt = PgtypeToTimePtr(updatedAt)
		claims = append(claims, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unhandled claims: %w", err)
	}

	return claims, nil
}

const markUnhandledClaimProcessedSQL = `
UPDATE unhandled_claims
SET handled = TRUE, status = 'processed', updated_at = $2
WHERE id = $1`

// MarkProcessed は処理済みに更新する。updated_at は毎回更新されるため、存在するIDなら1を返す
func (r *UnhandledRepository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, markUnhandledClaimProcessedSQL, UUIDToPgtype(id), TimeToPgtype(at))
	if err != nil {
		return 0, fmt.Errorf("failed to mark claim processed: %w", err)
	}
	return tag.RowsAffected(), nil
}
