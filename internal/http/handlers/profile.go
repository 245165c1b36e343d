package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Профиль текущего пользователя
func (h *Handler) MyProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.UserRepo.GetByID(ctx, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	achievements, _ := h.Achievements.GetUserAchievements(ctx, userID)

	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"tg_id":        user.TgID,
		"username":     user.Username,
		"first_name":   user.FirstName,
		"created_at":   user.CreatedAt,
		"coins":        user.Coins,
		"rating":       user.Rating,
		"wins":         user.Wins,
		"losses":       user.Losses,
		"draws":        user.Draws,
		"win_streak":   user.WinStreak,
		"best_streak":  user.BestStreak,
		"achievements": achievements,
	})
}

// Публичный профиль по id (без баланса)
func (h *Handler) Profile(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.UserRepo.GetByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	achievements, _ := h.Achievements.GetUserAchievements(ctx, id)

	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"first_name":   user.FirstName,
		"rating":       user.Rating,
		"wins":         user.Wins,
		"losses":       user.Losses,
		"draws":        user.Draws,
		"best_streak":  user.BestStreak,
		"achievements": achievements,
	})
}

// История партий текущего пользователя
func (h *Handler) MyMatches(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	matches, err := h.MatchRepo.GetByUserID(c.Request.Context(), userID, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get matches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// Участники конкретной партии
func (h *Handler) MatchParticipants(c *gin.Context) {
	matchID := c.Param("id")
	if matchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	parts, err := h.MatchRepo.GetParticipants(c.Request.Context(), matchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"participants": parts})
}
