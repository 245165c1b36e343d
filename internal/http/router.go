package http

import (
	"net/http"
	"time"

	"durak_webapp/internal/config"
	"durak_webapp/internal/http/handlers"
	"durak_webapp/internal/http/middleware"
	"durak_webapp/internal/service"
	"durak_webapp/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// RegisterRoutes собирает сервисы и вешает все маршруты.
// Возвращает hub и сервис расчёта — они нужны админ-боту
func RegisterRoutes(r *gin.Engine, dbPool *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, version string) (*ws.Hub, *service.SettlementService) {
	h := handlers.NewHandler(dbPool, cfg.BotToken)

	balance := service.NewBalanceService(dbPool)
	audit := service.NewAuditService(dbPool)
	rating := service.NewRatingService(rdb)
	achievements := service.NewAchievementService(dbPool)
	settler := service.NewSettlementService(
		service.NewPgSettlementStore(dbPool),
		rating,
		achievements,
		rating,
		audit,
	)

	hub := ws.NewHub(balance, settler, audit)
	hub.StartCleanup()
	wsHandler := ws.NewWSHandler(hub, h.UserRepo, balance)

	h.Balance = balance
	h.Audit = audit
	h.Rating = rating
	h.Achievements = achievements
	h.Hub = hub

	r.GET("/healthz", func(c *gin.Context) {
		if err := dbPool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version})
	})

	api := r.Group("/api")
	{
		api.POST("/auth/telegram", middleware.RateLimit(10, time.Minute), h.AuthTelegram)
		api.GET("/leaderboard", middleware.RateLimit(30, time.Minute), h.GetLeaderboard)
		api.GET("/leaderboard/rating", middleware.RateLimit(30, time.Minute), h.GetRatingTop)
		api.GET("/rooms", h.GetRooms)
		api.GET("/profile/:id", h.Profile)
		api.GET("/matches/:id/participants", h.MatchParticipants)

		auth := api.Group("", handlers.AuthRequired())
		{
			auth.GET("/me", h.MyProfile)
			auth.GET("/me/balance", h.GetBalance)
			auth.GET("/me/history", h.GetHistory)
			auth.GET("/me/matches", h.MyMatches)
			auth.GET("/me/rank", h.GetMyRank)
		}
	}

	// аутентификация самого соединения - внутри хендлера (токен в query)
	r.GET("/ws", wsHandler.HandleWS())

	return hub, settler
}
