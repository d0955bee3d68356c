package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/repository/mongodb"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(att *handlers.AttendanceHandler, ros *handlers.RosterHandler, adm *handlers.AdminHandler, users mongodb.UserStore, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	api := r.Group("/api")
	{
		attendance := api.Group("/attendance")
		{
			attendance.POST("/yes", att.RespondYes)
			attendance.POST("/no", att.RespondNo)
			attendance.POST("/food", att.SelectFood)
			attendance.POST("/cancel", att.RequestCancel)
			attendance.POST("/cancel/confirm", att.ConfirmCancel)
		}

		api.POST("/users/register", ros.Register)
		api.POST("/users/name", ros.ChangeName)
		api.GET("/users/:id/balance", ros.Balance)
		api.GET("/users/:id/history", ros.History)
		api.GET("/users/:id/attendance", ros.Attendance)
		api.GET("/menu", ros.MenuToday)
		api.GET("/menu/:name", ros.Menu)
		api.GET("/card", ros.Card)

		admin := api.Group("/admin", handlers.AdminGuard(users, logger))
		{
			admin.GET("/users", adm.ListUsers)
			admin.POST("/users/promote", adm.Promote)
			admin.POST("/users/demote", adm.Demote)
			admin.POST("/users/delete", adm.DeleteUser)
			admin.GET("/report", adm.Report)
			admin.POST("/cancel-date", adm.CancelDate)
			admin.POST("/run-settlement", adm.RunSettlement)
			admin.POST("/check-debts", adm.CheckDebts)
			admin.POST("/broadcast", adm.Broadcast)
			admin.POST("/menu/add", adm.AddMenuItem)
			admin.POST("/menu/remove", adm.RemoveMenuItem)
			admin.POST("/card/number", adm.SetCardNumber)
			admin.POST("/card/owner", adm.SetCardOwner)
			admin.GET("/kassa", adm.Kassa)
		}
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

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
