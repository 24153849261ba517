package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"offer-relay/internal/handler/api"
	"offer-relay/internal/handler/middleware"
	"offer-relay/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

func NewRouter(engine *gin.Engine, cfg config.Config, logger *slog.Logger, offerHandler *api.OfferHandler, cycleHandler *api.CycleHandler) {
	setupMiddleware(engine, cfg, logger)
	setupRoutes(engine, offerHandler, cycleHandler)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config, logger *slog.Logger) {
	// The request logger runs first so a recovered panic still carries its request ID.
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS, logger))
	engine.Use(middleware.ErrorHandler(logger))

	engine.HandleMethodNotAllowed = true
	engine.NoRoute(middleware.NoRoute)
	engine.NoMethod(middleware.NoMethod)
}

func setupRoutes(engine *gin.Engine, offerHandler *api.OfferHandler, cycleHandler *api.CycleHandler) {
	engine.GET("/health", healthCheck)

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiGroup := engine.Group("/api")
	addRoutes(apiGroup.Group("/offers"), []route{
		{Method: http.MethodGet, Path: "", Handler: offerHandler.List},
		{Method: http.MethodGet, Path: "/:id", Handler: offerHandler.Get},
	})
	addRoutes(apiGroup.Group("/cycles"), []route{
		{Method: http.MethodPost, Path: "/ingestion", Handler: cycleHandler.RunIngestion},
		{Method: http.MethodPost, Path: "/notification", Handler: cycleHandler.RunNotification},
	})
}

// @Summary Health check
// @Description Liveness of the offer relay process
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		g.Handle(r.Method, r.Path, r.Handler)
	}
}
