package handlers

import (
	"encoding/json"
	"net/http"

	"durak_webapp/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthTelegram проверяет init_data мини-аппа и выдаёт JWT.
// Пользователь создаётся при первом входе.
func (h *Handler) AuthTelegram(c *gin.Context) {
	var req struct {
		InitData string `json:"init_data"`
	}
	if err := c.BindJSON(&req); err != nil || req.InitData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data required"})
		return
	}

	values, ok := service.ValidateTelegramInitData(req.InitData, h.BotToken)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid init data"})
		return
	}

	// поле user — JSON от Telegram
	var tgUser struct {
		ID        int64  `json:"id"`
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &tgUser); err != nil || tgUser.ID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid init data"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.UserRepo.CreateOrUpdate(ctx, tgUser.ID, tgUser.Username, tgUser.FirstName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	token, err := service.GenerateJWT(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	h.Audit.LogLogin(ctx, user.ID, c.ClientIP(), c.Request.UserAgent())

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":         user.ID,
			"tg_id":      user.TgID,
			"username":   user.Username,
			"first_name": user.FirstName,
			"coins":      user.Coins,
			"rating":     user.Rating,
		},
	})
}

// Баланс текущего пользователя
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	coins, err := h.Balance.GetBalance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coins": coins})
}

// Последние транзакции пользователя
func (h *Handler) GetHistory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	transactions, err := h.Balance.GetTransactionHistory(c.Request.Context(), userID, 200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	var out []map[string]interface{}
	for _, tx := range transactions {
		out = append(out, map[string]interface{}{
			"id":     tx.ID,
			"type":   tx.Type,
			"amount": tx.Amount,
			"meta":   tx.Meta,
			"date":   tx.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

// Открытые столы, ожидающие игроков
func (h *Handler) GetRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.Hub.OpenRooms()})
}
