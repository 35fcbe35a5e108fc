package claim

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedEmbeddingFormat は埋め込みAPIの応答がどの既知の形にも一致しない場合のエラー
	ErrUnexpectedEmbeddingFormat = errors.New("unexpected embedding response format")

	// ErrStoreUnavailable はストアが初期化されていない場合のエラー
	ErrStoreUnavailable = errors.New("claim store unavailable")

	// ErrNotFound は対象の請求が見つからない、またはIDが不正な場合のエラー
	ErrNotFound = errors.New("claim not found")

	// ErrClaimConflict は同じ image_path の請求が既に存在する場合のエラー
	ErrClaimConflict = errors.New("claim already exists")

	// ErrInvalidInput はリクエスト内容が不正な場合のエラー
	ErrInvalidInput = errors.New("invalid input")
)

// Stage は請求の取り込みがどこまで進んだかを表す
type Stage string

const (
	StageAbsent    Stage = "absent"
	StageAssessed  Stage = "assessed"
	StageEmbedded  Stage = "embedded"
	StagePriced    Stage = "priced"
	StagePersisted Stage = "persisted"
)

// PipelineError は取り込み処理の失敗と、失敗時点で到達していた段階を保持する
type PipelineError struct {
	Stage     Stage
	ImagePath string
	Err       error
}

func (e *PipelineError) Error() string {
	if e.ImagePath != "" {
		return fmt.Sprintf("claim pipeline failed at stage %s (%s): %v", e.Stage, e.ImagePath, e.Err)
	}
	return fmt.Sprintf("claim pipeline failed at stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
