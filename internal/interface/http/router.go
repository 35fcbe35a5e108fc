package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouterConfig はルーター構築時の設定
type RouterConfig struct {
	Handler        *ClaimHandler
	AllowedOrigins []string
	MaxBodyBytes   int64
	Logger         *slog.Logger
}

// NewRouter は請求APIのルーティングを設定した gin.Engine を返す
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(cfg.Logger))
	router.Use(CORS(cfg.AllowedOrigins))
	router.Use(BodyLimit(cfg.MaxBodyBytes))

	h := cfg.Handler
	if h == nil {
		h = NewClaimHandler(nil, nil, nil, nil)
	}

	router.GET("/healthcheck", h.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/createClaim", h.CreateClaim)
		api.POST("/similarClaims", h.SimilarClaims)
		api.POST("/getSimilarClaims", h.SimilarClaims)
		api.POST("/findClaim", h.FindClaim)
		api.POST("/submitClaim", h.SubmitClaim)
		api.GET("/getUnhandledClaims", h.GetUnhandledClaims)
		api.PUT("/updateClaim", h.UpdateClaim)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{
			Success: false,
			Error:   "Not Found - " + c.Request.URL.Path,
		})
	})

	return router
}
