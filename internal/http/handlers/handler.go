package handlers

import (
	"net/http"
	"strings"

	"durak_webapp/internal/repository"
	"durak_webapp/internal/service"
	"durak_webapp/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler объединяет зависимости HTTP-эндпоинтов
type Handler struct {
	DB              *pgxpool.Pool
	BotToken        string
	UserRepo        *repository.UserRepository
	MatchRepo       *repository.MatchRepository
	TransactionRepo *repository.TransactionRepository
	Balance         *service.BalanceService
	Audit           *service.AuditService
	Rating          *service.RatingService
	Achievements    *service.AchievementService
	Hub             *ws.Hub
}

func NewHandler(db *pgxpool.Pool, botToken string) *Handler {
	return &Handler{
		DB:              db,
		BotToken:        botToken,
		UserRepo:        repository.NewUserRepository(db),
		MatchRepo:       repository.NewMatchRepository(db),
		TransactionRepo: repository.NewTransactionRepository(db),
	}
}

// getUserID извлекает id пользователя, положенный в контекст middleware-ом
func getUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// AuthRequired проверяет JWT из заголовка Authorization
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		userID, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
