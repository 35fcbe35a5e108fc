package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jinford/claim-rag/internal/core/assessment"
	"github.com/jinford/claim-rag/internal/core/claim"
	"github.com/jinford/claim-rag/internal/core/search"
)

// errBadRequest はリクエストボディを解釈できない場合のエラー
var errBadRequest = errors.New("bad request")

// errorResponse はエラー時のレスポンス
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// listResponse は一覧・検索結果のレスポンス
type listResponse struct {
	Success bool `json:"success"`
	Result  any  `json:"result"`
}

// statusFor はエラーを HTTP ステータスに対応付ける
func statusFor(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, assessment.ErrUpstreamUnavailable),
		errors.Is(err, assessment.ErrMalformedResponse),
		errors.Is(err, assessment.ErrInvalidSeverity),
		errors.Is(err, claim.ErrUnexpectedEmbeddingFormat):
		return http.StatusBadGateway
	case errors.Is(err, claim.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, claim.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, claim.ErrInvalidInput),
		errors.Is(err, search.ErrInvalidQuery),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, claim.ErrClaimConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(statusFor(err), errorResponse{Success: false, Error: msg})
}

func respondList(c *gin.Context, result any) {
	c.JSON(http.StatusOK, listResponse{Success: true, Result: result})
}
