package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jinford/claim-rag/internal/core/claim"
	"github.com/jinford/claim-rag/internal/core/search"
)

// ClaimCreator は画像から請求を作成するインターフェース
type ClaimCreator interface {
	CreateClaim(ctx context.Context, params claim.CreateParams) (*claim.Result, error)
}

// ClaimSearcher は類似請求を検索するインターフェース
type ClaimSearcher interface {
	Similar(ctx context.Context, params search.SimilarParams) ([]*search.Match, error)
	Find(ctx context.Context, term string) ([]*search.Match, error)
}

// ClaimReviewer は未処理請求を扱うインターフェース
type ClaimReviewer interface {
	Submit(ctx context.Context, payload map[string]any) (uuid.UUID, error)
	ListUnhandled(ctx context.Context) ([]*claim.UnhandledClaim, error)
	MarkProcessed(ctx context.Context, id string) (int64, error)
}

// HealthChecker はストアへの疎通を確認するインターフェース
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// ClaimHandler は請求APIのハンドラ。依存が nil の場合は 503 を返す
type ClaimHandler struct {
	creator  ClaimCreator
	searcher ClaimSearcher
	reviewer ClaimReviewer
	health   HealthChecker
}

// NewClaimHandler は新しい ClaimHandler を作成する
func NewClaimHandler(creator ClaimCreator, searcher ClaimSearcher, reviewer ClaimReviewer, health HealthChecker) *ClaimHandler {
	return &ClaimHandler{
		creator:  creator,
		searcher: searcher,
		reviewer: reviewer,
		health:   health,
	}
}

type createClaimRequest struct {
	Image string `json:"image"`
}

type createClaimResponse struct {
	Message string `json:"message"`
	*claim.Result
}

// CreateClaim は画像を評価し、類似請求と見積額を返す。
// ボディは base64 文字列、data URI、JSON 文字列、{"image": ...} のいずれか
func (h *ClaimHandler) CreateClaim(c *gin.Context) {
	if h.creator == nil {
		respondError(c, claim.ErrStoreUnavailable)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, fmt.Errorf("failed to read request body: %w", err))
		return
	}

	image := string(body)
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		var req createClaimRequest
		if err := json.Unmarshal(trimmed, &req); err != nil {
			respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		image = req.Image
	}

	result, err := h.creator.CreateClaim(c.Request.Context(), claim.CreateParams{Image: image})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, createClaimResponse{
		Message: "Image processed and description generated successfully",
		Result:  result,
	})
}

type similarClaimsRequest struct {
	Embedding []float32 `json:"embedding"`
	Skip      int       `json:"skip"`
	Limit     int       `json:"limit"`
}

// SimilarClaims は埋め込みに近い請求を画像付きで返す
func (h *ClaimHandler) SimilarClaims(c *gin.Context) {
	if h.searcher == nil {
		respondError(c, claim.ErrStoreUnavailable)
		return
	}

	var req similarClaimsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	matches, err := h.searcher.Similar(c.Request.Context(), search.SimilarParams{
		Embedding:    req.Embedding,
		Skip:         req.Skip,
		Limit:        req.Limit,
		IncludeImage: true,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondList(c, matches)
}

type findClaimRequest struct {
	SearchTerm string `json:"searchTerm"`
}

// FindClaim は説明文のキーワードと意味の両方で請求を検索する。
// ボディは {"searchTerm": ...}、JSON 文字列、生のテキストのいずれか
func (h *ClaimHandler) FindClaim(c *gin.Context) {
	if h.searcher == nil {
		respondError(c, claim.ErrStoreUnavailable)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, fmt.Errorf("failed to read request body: %w", err))
		return
	}

	term, err := parseSearchTerm(body)
	if err != nil {
		respondError(c, err)
		return
	}

	matches, err := h.searcher.Find(c.Request.Context(), term)
	if err != nil {
		respondError(c, err)
		return
	}

	respondList(c, matches)
}

func parseSearchTerm(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", nil
	}
	switch trimmed[0] {
	case '{':
		var req findClaimRequest
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return "", fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return req.SearchTerm, nil
	case '"':
		var term string
		if err := json.Unmarshal(trimmed, &term); err != nil {
			return "", fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return term, nil
	default:
		return string(trimmed), nil
	}
}

// SubmitClaim は請求を人手の確認待ちとして登録する
func (h *ClaimHandler) SubmitClaim(c *gin.Context) {
	if h.reviewer == nil {
		respondError(c, claim.ErrStoreUnavailable)
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	id, err := h.reviewer.Submit(c.Request.Context(), payload)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Claim submitted successfully",
		"insertedId": id,
	})
}

// GetUnhandledClaims は確認待ちとして登録された請求をすべて返す
func (h *ClaimHandler) GetUnhandledClaims(c *gin.Context) {
	if h.reviewer == nil {
		respondError(c, claim.ErrStoreUnavailable)
		return
	}

	claims, err := h.reviewer.ListUnhandled(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondList(c, claims)
}

type updateClaimRequest struct {
	ID string `json:"id"`
}

// UpdateClaim は確認待ちの請求を処理済みにする。
// 形式は正しいが存在しないIDは 404 にせず、modifiedCount 0 の 200 を返す。
func (h *ClaimHandler) UpdateClaim(c *gin.Context) {
	if h.reviewer == nil {
		respondError(c, claim.ErrStoreUnavailable)
		return
	}

	var req updateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	modified, err := h.reviewer.MarkProcessed(c.Request.Context(), req.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Claim updated successfully",
		"modifiedCount": modified,
	})
}

// HealthCheck はストアに疎通できれば "ok" を返す
func (h *ClaimHandler) HealthCheck(c *gin.Context) {
	if h.health == nil {
		c.String(http.StatusServiceUnavailable, "unavailable")
		return
	}
	if err := h.health.Ping(c.Request.Context()); err != nil {
		c.String(http.StatusServiceUnavailable, "unavailable")
		return
	}
	c.String(http.StatusOK, "ok")
}
