package claim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ReviewService は人手確認待ちの請求を扱う
type ReviewService struct {
	repo   UnhandledRepository
	now    func() time.Time
	logger *slog.Logger
}

type reviewOptions struct {
	logger *slog.Logger
	now    func() time.Time
}

// ReviewOption は ReviewService のオプション設定
type ReviewOption func(*reviewOptions)

// WithReviewLogger はロガーを差し替える
func WithReviewLogger(logger *slog.Logger) ReviewOption {
	return func(o *reviewOptions) {
		o.logger = logger
	}
}

// WithReviewClock は時計を差し替える
func WithReviewClock(now func() time.Time) ReviewOption {
	return func(o *reviewOptions) {
		o.now = now
	}
}

// NewReviewService は新しい ReviewService を作成する
func NewReviewService(repo UnhandledRepository, opts ...ReviewOption) *ReviewService {
	options := reviewOptions{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &ReviewService{
		repo:   repo,
		now:    options.now,
		logger: options.logger,
	}
}

// Submit は任意の内容を未処理請求として登録する。状態項目はシステム側で上書きする
func (s *ReviewService) Submit(ctx context.Context, payload map[string]any) (uuid.UUID, error) {
	if payload == nil {
		return uuid.Nil, fmt.Errorf("%w: claim payload must be a JSON object", ErrInvalidInput)
	}

	cleaned := make(map[string]any, len(payload))
	for k, v := range payload {
		cleaned[k] = v
	}
	for _, k := range reservedPayloadKeys {
		delete(cleaned, k)
	}

	id, err := s.repo.Insert(ctx, &UnhandledClaim{
		Payload:   cleaned,
		Handled:   false,
		Status:    ReviewStatusPending,
		CreatedAt: s.now(),
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to submit claim: %w", err)
	}

	s.logger.Info("未処理請求を登録しました", "id", id)
	return id, nil
}

// ListUnhandled は未処理請求コレクションの全件を新しい順に返す
func (s *ReviewService) ListUnhandled(ctx context.Context) ([]*UnhandledClaim, error) {
	claims, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unhandled claims: %w", err)
	}
	return claims, nil
}

// MarkProcessed は請求を処理済みにして更新件数を返す。
// 既に処理済みでも updated_at は更新されるので、存在するIDなら常に1を返す
func (s *ReviewService) MarkProcessed(ctx context.Context, id string) (int64, error) {
	claimID, err := uuid.Parse(id)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid claim id %q", ErrNotFound, id)
	}

	modified, err := s.repo.MarkProcessed(ctx, claimID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to update claim: %w", err)
	}

	s.logger.Info("未処理請求を処理済みにしました", "id", claimID, "modified", modified)
	return modified, nil
}
