package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/server/handlers"
)

// Handlers groups the HTTP adapters mounted by the router.
type Handlers struct {
	MasterData    *handlers.MasterDataHandler
	Collections   *handlers.CollectionHandler
	Statements    *handlers.StatementHandler
	Notifications *handlers.NotificationHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	farmers := api.Group("/farmers")
	farmers.GET("", h.MasterData.ListFarmers)
	farmers.POST("", h.MasterData.CreateFarmer)
	farmers.GET("/:id", h.MasterData.GetFarmer)
	farmers.PUT("/:id", h.MasterData.UpdateFarmer)
	farmers.DELETE("/:id", h.MasterData.DeleteFarmer)

	configs := api.Group("/rate-configs")
	configs.GET("", h.MasterData.ListRateConfigs)
	configs.POST("", h.MasterData.CreateRateConfig)
	configs.GET("/applicable", h.MasterData.ApplicableRateConfig)
	configs.GET("/:id", h.MasterData.GetRateConfig)
	configs.PUT("/:id", h.MasterData.UpdateRateConfig)
	configs.DELETE("/:id", h.MasterData.DeleteRateConfig)

	periods := api.Group("/bill-periods")
	periods.GET("", h.MasterData.ListBillPeriods)
	periods.PUT("", h.MasterData.SaveBillPeriods)
	periods.GET("/resolve", h.MasterData.ResolveBillPeriod)

	locks := api.Group("/locks")
	locks.GET("", h.MasterData.ListLocks)
	locks.POST("/toggle", h.MasterData.ToggleLock)
	locks.GET("/check", h.MasterData.CheckLock)

	collections := api.Group("/collections")
	collections.GET("", h.Collections.List)
	collections.POST("", h.Collections.Create)
	collections.POST("/bulk", h.Collections.Bulk)
	collections.POST("/import-sheet", h.Collections.ImportSheet)
	collections.POST("/recalculate", h.Collections.Recalculate)
	collections.POST("/valuate", h.Collections.Valuate)
	collections.GET("/:id", h.Collections.Get)
	collections.PUT("/:id", h.Collections.Update)
	collections.DELETE("/:id", h.Collections.Delete)

	api.GET("/statements", h.Statements.Get)
	api.POST("/statements/generate", h.Statements.Generate)

	api.POST("/notifications/send", h.Notifications.Send)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
