package claim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/claim-rag/internal/core/assessment"
	"github.com/jinford/claim-rag/internal/core/search"
)

func lowScratch() assessment.DamageAssessment {
	return assessment.DamageAssessment{
		Title:       "Scratch on door",
		Description: "Light scratch on the driver door",
		Severity:    assessment.SeverityLow,
	}
}

func TestPipeline_CreateClaim_LowSeverityWithoutMatches(t *testing.T) {
	assessor := &stubAssessor{result: lowScratch()}
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	finder := &stubFinder{}
	pipeline := NewPipeline(assessor, embedder, finder, WithPipelineLogger(discardLogger()))

	result, err := pipeline.CreateClaim(context.Background(), CreateParams{Image: "data:image/jpeg;base64,QUJD"})
	require.NoError(t, err)

	assert.Equal(t, []string{"QUJD"}, assessor.images, "data URI ヘッダを除去してから評価すること")
	assert.Equal(t, []string{"Light scratch on the driver door"}, embedder.texts)
	assert.Equal(t, "Scratch on door", result.Title)
	assert.Equal(t, assessment.SeverityLow, result.Severity)
	assert.GreaterOrEqual(t, result.CostEstimate, 300)
	assert.LessOrEqual(t, result.CostEstimate, 1500)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, result.Embedding)
	assert.NotNil(t, result.SimilarClaims)
	assert.Empty(t, result.SimilarClaims)
	assert.Nil(t, result.ClaimID)
}

func TestPipeline_CreateClaim_AveragesSimilarCosts(t *testing.T) {
	c1, c2 := 1200, 1800
	finder := &stubFinder{matches: []*search.Match{
		{Description: "a", Severity: assessment.SeverityMedium, CostEstimate: &c1, Score: 0.9},
		{Description: "b", Severity: assessment.SeverityMedium, CostEstimate: &c2, Score: 0.8},
	}}
	pipeline := NewPipeline(&stubAssessor{result: lowScratch()}, &stubEmbedder{vector: []float32{1}}, finder, WithPipelineLogger(discardLogger()))

	result, err := pipeline.CreateClaim(context.Background(), CreateParams{Image: "QUJD"})
	require.NoError(t, err)

	assert.Equal(t, 1500, result.CostEstimate)
	assert.Len(t, result.SimilarClaims, 2)
}

func TestPipeline_CreateClaim_SearchFailureFallsBack(t *testing.T) {
	finder := &stubFinder{err: errors.New("index offline")}
	pipeline := NewPipeline(&stubAssessor{result: lowScratch()}, &stubEmbedder{vector: []float32{1}}, finder, WithPipelineLogger(discardLogger()))

	result, err := pipeline.CreateClaim(context.Background(), CreateParams{Image: "QUJD"})
	require.NoError(t, err)

	assert.Empty(t, result.SimilarClaims)
	assert.GreaterOrEqual(t, result.CostEstimate, 300)
	assert.LessOrEqual(t, result.CostEstimate, 1500)
}

func TestPipeline_CreateClaim_Aborts(t *testing.T) {
	tests := []struct {
		name      string
		assessor  *stubAssessor
		embedder  *stubEmbedder
		wantErr   error
		wantStage Stage
	}{
		{
			name:      "評価の失敗",
			assessor:  &stubAssessor{err: assessment.ErrUpstreamUnavailable},
			embedder:  &stubEmbedder{vector: []float32{1}},
			wantErr:   assessment.ErrUpstreamUnavailable,
			wantStage: StageAbsent,
		},
		{
			name:      "応答の解釈失敗",
			assessor:  &stubAssessor{err: &assessment.MalformedResponseError{Excerpt: "nope"}},
			embedder:  &stubEmbedder{vector: []float32{1}},
			wantErr:   assessment.ErrMalformedResponse,
			wantStage: StageAbsent,
		},
		{
			name:      "埋め込みの失敗",
			assessor:  &stubAssessor{result: lowScratch()},
			embedder:  &stubEmbedder{err: ErrUnexpectedEmbeddingFormat},
			wantErr:   ErrUnexpectedEmbeddingFormat,
			wantStage: StageAssessed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := &stubFinder{}
			pipeline := NewPipeline(tt.assessor, tt.embedder, finder, WithPipelineLogger(discardLogger()))

			_, err := pipeline.CreateClaim(context.Background(), CreateParams{Image: "QUJD"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var pipelineErr *PipelineError
			require.True(t, errors.As(err, &pipelineErr))
			assert.Equal(t, tt.wantStage, pipelineErr.Stage)
			assert.Zero(t, finder.calls)
		})
	}
}

func TestPipeline_CreateClaim_EmptyImage(t *testing.T) {
	assessor := &stubAssessor{result: lowScratch()}
	pipeline := NewPipeline(assessor, &stubEmbedder{}, &stubFinder{}, WithPipelineLogger(discardLogger()))

	_, err := pipeline.CreateClaim(context.Background(), CreateParams{Image: "data:image/png;base64,"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, assessor.calls)
}

func TestPipeline_CreateClaim_Persists(t *testing.T) {
	repo := newMemoryRepo()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	pipeline := NewPipeline(&stubAssessor{result: lowScratch()}, &stubEmbedder{vector: []float32{1}}, &stubFinder{},
		WithPipelineLogger(discardLogger()),
		WithOnlinePersistence(repo),
		WithImageKeyGenerator(func() string { return "claim_test.jpg" }),
		WithPipelineClock(func() time.Time { return now }),
	)

	result, err := pipeline.CreateClaim(context.Background(), CreateParams{Image: "QUJD"})
	require.NoError(t, err)
	require.NotNil(t, result.ClaimID)

	stored := repo.claims["claim_test.jpg"]
	require.NotNil(t, stored)
	assert.Equal(t, *result.ClaimID, stored.ID)
	assert.Equal(t, AnalysisSourceOnline, stored.AnalysisSource)
	assert.True(t, stored.Processed)
	assert.Equal(t, "QUJD", stored.ImageBase64)
	assert.Equal(t, now, stored.CreatedAt)
}

func TestPipeline_CreateClaim_PersistFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.insertErr = errors.New("connection reset")
	pipeline := NewPipeline(&stubAssessor{result: lowScratch()}, &stubEmbedder{vector: []float32{1}}, &stubFinder{},
		WithPipelineLogger(discardLogger()),
		WithOnlinePersistence(repo),
	)

	_, err := pipeline.CreateClaim(context.Background(), CreateParams{Image: "QUJD"})
	var pipelineErr *PipelineError
	require.True(t, errors.As(err, &pipelineErr))
	assert.Equal(t, StagePriced, pipelineErr.Stage)
}

func TestNewImageKey(t *testing.T) {
	key := newImageKey()
	assert.Regexp(t, `^claim_[0-9A-HJKMNP-TV-Z]{26}\.jpg$`, key)
	assert.NotEqual(t, key, newImageKey())
}
