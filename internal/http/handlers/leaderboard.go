package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// список 100 лучших игроков по победам
func (h *Handler) GetLeaderboard(c *gin.Context) {
	ctx := c.Request.Context()

	top, err := h.Rating.TopWins(ctx, 100)
	if err == nil && len(top) > 0 {
		c.JSON(http.StatusOK, gin.H{"leaderboard": top, "source": "cache"})
		return
	}

	// кэш пуст или редис недоступен — читаем из базы
	users, err := h.UserRepo.TopByRating(ctx, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	var out []map[string]interface{}
	for _, u := range users {
		name := u.FirstName
		if name == "" {
			name = u.Username
		}
		out = append(out, map[string]interface{}{
			"user_id": u.ID,
			"name":    name,
			"rating":  u.Rating,
			"wins":    u.Wins,
		})
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": out, "source": "db"})
}

// топ по накопленному рейтингу
func (h *Handler) GetRatingTop(c *gin.Context) {
	top, err := h.Rating.TopRating(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": top})
}

// позиция пользователя в топе по победам
func (h *Handler) GetMyRank(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rank, wins, err := h.Rating.Rank(c.Request.Context(), userID)
	if err != nil {
		// если редис лёг, ранг - 0, профиль всё равно работает
		c.JSON(http.StatusOK, gin.H{"rank": 0, "wins_count": 0})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rank":       rank,
		"wins_count": wins,
	})
}
