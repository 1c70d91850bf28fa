// internal/httpapi/router.go

// Package httpapi exposes the classifier over HTTP with gin.
package httpapi

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SyedDaiam9101/transfer-classifier/internal/middleware"
	"github.com/SyedDaiam9101/transfer-classifier/internal/service"
)

// Deps are the collaborators behind the HTTP routes.
type Deps struct {
	Classifier *service.Service
	Registry   *service.Registry
	Retrain    *service.RetrainJob
	// Healthy reports process liveness, e.g. the gRPC health status.
	Healthy func() bool
	// MaxUploadBytes bounds /v1/classify/upload bodies; 0 means 32MB.
	MaxUploadBytes int64
}

// NewRouter builds the engine serving the API, health probes and /metrics.
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Metrics(),
		middleware.AccessLog(),
	)

	h := &Handler{deps: deps}
	router.GET("/healthz", h.Healthz)
	router.GET("/readyz", h.Readyz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/v1")
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	RegisterRoutes(api, h)
	return router
}

func RegisterRoutes(api *gin.RouterGroup, h *Handler) {
	api.POST("/classify", h.Classify)
	api.POST("/classify/upload", h.ClassifyUpload)
	api.GET("/model", h.Model)
	api.POST("/retrain", h.Retrain)
}
