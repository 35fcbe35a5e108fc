package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/claim-rag/internal/core/assessment"
	"github.com/jinford/claim-rag/internal/core/claim"
	"github.com/jinford/claim-rag/internal/core/search"
)

func newClaim(imagePath, description string, severity assessment.Severity, cost int, embedding []float32) *claim.Claim {
	return &claim.Claim{
		ImagePath:      imagePath,
		Title:          "title " + imagePath,
		Description:    description,
		Severity:       severity,
		Embedding:      embedding,
		CostEstimate:   cost,
		ImageBase64:    "QUJD",
		Processed:      true,
		AnalysisSource: claim.AnalysisSourceBatch,
	}
}

func TestClaimRepository_InsertAndFind(t *testing.T) {
	db := requireDB(t)
	repo := NewClaimRepository(db.Pool)
	ctx := context.Background()

	location := "rear"
	c := newClaim("a.jpg", "dent on the rear bumper", assessment.SeverityLow, 800, []float32{1, 0, 0})
	c.DamageLocation = &location
	c.EstimatedParts = []string{"bumper"}
	id, err := repo.Insert(ctx, c)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	found, err := repo.FindByImagePath(ctx, "a.jpg")
	require.NoError(t, err)
	require.True(t, found.IsPresent())
	got := found.MustGet()
	assert.Equal(t, id, got.ID)
	assert.Equal(t, assessment.SeverityLow, got.Severity)
	assert.Equal(t, 800, got.CostEstimate)
	assert.Equal(t, "rear", *got.DamageLocation)
	assert.Equal(t, []string{"bumper"}, got.EstimatedParts)
	assert.Empty(t, got.SimilarClaims)

	missing, err := repo.FindByImagePath(ctx, "none.jpg")
	require.NoError(t, err)
	assert.True(t, missing.IsAbsent())
}

func TestClaimRepository_InsertConflict(t *testing.T) {
	db := requireDB(t)
	repo := NewClaimRepository(db.Pool)
	ctx := context.Background()

	_, err := repo.Insert(ctx, newClaim("a.jpg", "dent", assessment.SeverityLow, 500, nil))
	require.NoError(t, err)

	_, err = repo.Insert(ctx, newClaim("a.jpg", "other", assessment.SeverityHigh, 5000, nil))
	assert.ErrorIs(t, err, claim.ErrClaimConflict)
}

func TestClaimRepository_BackfillFlow(t *testing.T) {
	db := requireDB(t)
	repo := NewClaimRepository(db.Pool)
	ctx := context.Background()

	_, err := repo.Insert(ctx, newClaim("a.jpg", "dent", assessment.SeverityLow, 500, nil))
	require.NoError(t, err)
	_, err = repo.Insert(ctx, newClaim("b.jpg", "scratch", assessment.SeverityLow, 500, []float32{0, 1, 0}))
	require.NoError(t, err)

	missing, err := repo.ListMissingEmbedding(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "a.jpg", missing[0].ImagePath)

	require.NoError(t, repo.UpdateEmbedding(ctx, missing[0].ID, []float32{1, 0, 0}))

	missing, err = repo.ListMissingEmbedding(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)

	err = repo.UpdateEmbedding(ctx, uuid.New(), []float32{1, 0, 0})
	assert.ErrorIs(t, err, claim.ErrNotFound)
}

func TestSearchRepository_VectorSearch(t *testing.T) {
	db := requireDB(t)
	claims := NewClaimRepository(db.Pool)
	repo := NewSearchRepository(db.Pool)
	ctx := context.Background()

	for _, c := range []*claim.Claim{
		newClaim("near.jpg", "dent on door", assessment.SeverityLow, 1200, []float32{1, 0, 0}),
		newClaim("mid.jpg", "scratch on hood", assessment.SeverityMedium, 1800, []float32{1, 1, 0}),
		newClaim("far.jpg", "broken axle", assessment.SeverityHigh, 9000, []float32{0, 0, 1}),
		newClaim("none.jpg", "no embedding yet", assessment.SeverityLow, 400, nil),
	} {
		_, err := claims.Insert(ctx, c)
		require.NoError(t, err)
	}

	matches, err := repo.VectorSearch(ctx, search.VectorQuery{Vector: []float32{1, 0, 0}, Candidates: 200, Limit: 3})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "dent on door", matches[0].Description)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "scratch on hood", matches[1].Description)
	assert.Equal(t, "broken axle", matches[2].Description)
	assert.Nil(t, matches[0].ID)
	assert.Empty(t, matches[0].Title, "画像なしの検索ではタイトルも返さないこと")
	assert.Empty(t, matches[0].ImageBase64)
	require.NotNil(t, matches[0].CostEstimate)
	assert.Equal(t, 1200, *matches[0].CostEstimate)

	skipped, err := repo.VectorSearch(ctx, search.VectorQuery{Vector: []float32{1, 0, 0}, Candidates: 200, Limit: 3, Skip: 1, IncludeImage: true})
	require.NoError(t, err)
	require.Len(t, skipped, 2)
	assert.Equal(t, "scratch on hood", skipped[0].Description)
	assert.Equal(t, "QUJD", skipped[0].ImageBase64)
	assert.Equal(t, "title mid.jpg", skipped[0].Title)
	assert.Nil(t, skipped[0].ID)
}

func TestSearchRepository_HybridSearch(t *testing.T) {
	db := requireDB(t)
	claims := NewClaimRepository(db.Pool)
	repo := NewSearchRepository(db.Pool)
	ctx := context.Background()

	for _, c := range []*claim.Claim{
		newClaim("a.jpg", "cracked windshield after hail", assessment.SeverityMedium, 2000, []float32{0, 1, 0}),
		newClaim("b.jpg", "dent on the rear door", assessment.SeverityLow, 700, []float32{1, 0, 0}),
		newClaim("c.jpg", "windshield chip", assessment.SeverityLow, 300, nil),
	} {
		_, err := claims.Insert(ctx, c)
		require.NoError(t, err)
	}

	matches, err := repo.HybridSearch(ctx, search.HybridQuery{
		Text:       "windshield",
		Vector:     []float32{1, 0, 0},
		Candidates: 200,
		Limit:      7,
	})
	require.NoError(t, err)
	require.Len(t, matches, 2, "埋め込みのない請求は含めないこと")

	// 両方の順位に現れる請求が先頭になる
	assert.Equal(t, "cracked windshield after hail", matches[0].Description)
	assert.Equal(t, "dent on the rear door", matches[1].Description)
	assert.Greater(t, matches[0].Score, matches[1].Score)
	for _, m := range matches {
		assert.NotNil(t, m.ID)
		assert.Greater(t, m.Score, 0.0)
	}
}

func TestUnhandledRepository(t *testing.T) {
	db := requireDB(t)
	repo := NewUnhandledRepository(db.Pool)
	ctx := context.Background()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id, err := repo.Insert(ctx, &claim.UnhandledClaim{
		Payload:   map[string]any{"customer": "Jane", "amount": 1200.0},
		Status:    claim.ReviewStatusPending,
		CreatedAt: created,
	})
	require.NoError(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "Jane", list[0].Payload["customer"])
	assert.False(t, list[0].Handled)
	assert.Nil(t, list[0].UpdatedAt)

	first := created.Add(time.Hour)
	modified, err := repo.MarkProcessed(ctx, id, first)
	require.NoError(t, err)
	assert.Equal(t, int64(1), modified)

	second := first.Add(time.Hour)
	modified, err = repo.MarkProcessed(ctx, id, second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), modified)

	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.True(t, list[0].Handled)
	assert.Equal(t, claim.ReviewStatusProcessed, list[0].Status)
	require.NotNil(t, list[0].UpdatedAt)
	assert.True(t, list[0].UpdatedAt.Equal(second))

	modified, err = repo.MarkProcessed(ctx, uuid.New(), second)
	require.NoError(t, err)
	assert.Zero(t, modified)
}
