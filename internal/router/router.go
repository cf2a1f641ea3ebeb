package router

import (
	"net/http"
	"time"

	"github.com/Sufyane-M/UniTOLC-sub001/internal/config"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/handler"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/middleware"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/response"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Simulation *handler.SimulationHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Catalog Group (JWT) ────────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireUserJWT(authService))
	{
		api.GET("/exam-types", handlers.Simulation.ListExamTypes)

		// ─── 2. Simulation Group ───────────────────────────────────────
		sim := api.Group("/simulations")
		{
			sim.POST("", handlers.Simulation.Start)
			sim.POST("/:session_id/resume", handlers.Simulation.Resume)
			sim.GET("/:session_id/state", handlers.Simulation.State)
			sim.GET("/:session_id/questions", handlers.Simulation.Questions)
			sim.POST("/:session_id/answers", handlers.Simulation.Answer)
			sim.POST("/:session_id/advance", handlers.Simulation.Advance)
			sim.POST("/:session_id/retreat", handlers.Simulation.Retreat)
			sim.POST("/:session_id/complete-section", handlers.Simulation.CompleteSection)
			sim.POST("/:session_id/next-section", handlers.Simulation.NextSection)
			sim.POST("/:session_id/abandon", handlers.Simulation.Abandon)
		}
	}

	// ─── 3. WebSocket Group (WS Auth via query token) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireUserWSAuth(authService))
	{
		ws.GET("/simulations/:session_id/stream", handlers.WS.SimulationStream)
	}

	return router
}
