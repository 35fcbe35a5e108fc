package claim

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/claim-rag/internal/core/assessment"
	"github.com/jinford/claim-rag/internal/core/search"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type stubAssessor struct {
	result assessment.DamageAssessment
	err    error
	calls  int
	images []string
}

func (a *stubAssessor) Assess(ctx context.Context, base64Image string) (assessment.DamageAssessment, error) {
	a.calls++
	a.images = append(a.images, base64Image)
	return a.result, a.err
}

type stubEmbedder struct {
	vector []float32
	err    error
	texts  []string
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.texts = append(e.texts, text)
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}

type stubFinder struct {
	matches []*search.Match
	err     error
	calls   int
}

func (f *stubFinder) Similar(ctx context.Context, params search.SimilarParams) ([]*search.Match, error) {
	f.calls++
	return f.matches, f.err
}

// memoryRepo は image_path の一意制約を持つインメモリの Repository
type memoryRepo struct {
	mu        sync.Mutex
	claims    map[string]*Claim
	inserts   int
	findErr   error
	insertErr error
	// conflictOn に含まれる image_path は Insert 時に競合を返す
	conflictOn map[string]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{claims: map[string]*Claim{}, conflictOn: map[string]bool{}}
}

func (r *memoryRepo) FindByImagePath(ctx context.Context, imagePath string) (mo.Option[*Claim], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return mo.None[*Claim](), r.findErr
	}
	if c, ok := r.claims[imagePath]; ok {
		return mo.Some(c), nil
	}
	return mo.None[*Claim](), nil
}

func (r *memoryRepo) Insert(ctx context.Context, c *Claim) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return uuid.Nil, r.insertErr
	}
	if _, ok := r.claims[c.ImagePath]; ok || r.conflictOn[c.ImagePath] {
		return uuid.Nil, ErrClaimConflict
	}
	c.ID = uuid.New()
	r.claims[c.ImagePath] = c
	r.inserts++
	return c.ID, nil
}

func (r *memoryRepo) ListMissingEmbedding(ctx context.Context) ([]*Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Claim
	for _, c := range r.claims {
		if !c.HasEmbedding() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryRepo) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.claims {
		if c.ID == id {
			c.Embedding = embedding
			return nil
		}
	}
	return ErrNotFound
}

type memoryUnhandledRepo struct {
	claims map[uuid.UUID]*UnhandledClaim
	order  []uuid.UUID
}

func newMemoryUnhandledRepo() *memoryUnhandledRepo {
	return &memoryUnhandledRepo{claims: map[uuid.UUID]*UnhandledClaim{}}
}

func (r *memoryUnhandledRepo) Insert(ctx context.Context, c *UnhandledClaim) (uuid.UUID, error) {
	c.ID = uuid.New()
	r.claims[c.ID] = c
	r.order = append(r.order, c.ID)
	return c.ID, nil
}

func (r *memoryUnhandledRepo) List(ctx context.Context) ([]*UnhandledClaim, error) {
	out := make([]*UnhandledClaim, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.claims[r.order[i]])
	}
	return out, nil
}

func (r *memoryUnhandledRepo) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	c, ok := r.claims[id]
	if !ok {
		return 0, nil
	}
	c.Handled = true
	c.Status = ReviewStatusProcessed
	c.UpdatedAt = &at
	return 1, nil
}
