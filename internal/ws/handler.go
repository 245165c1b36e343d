package ws

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"durak_webapp/internal/domain"
	"durak_webapp/internal/game"
	"durak_webapp/internal/repository"
	"durak_webapp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// содержит зависимости для обработки WebSocket
type WSHandler struct {
	Hub      *Hub
	UserRepo *repository.UserRepository
	Balance  *service.BalanceService

	guestSeq int64 // гостевые идентификаторы отрицательные
}

func NewWSHandler(hub *Hub, userRepo *repository.UserRepository, balance *service.BalanceService) *WSHandler {
	return &WSHandler{
		Hub:      hub,
		UserRepo: userRepo,
		Balance:  balance,
	}
}

func (h *WSHandler) HandleWS() gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			userID    int64
			accountID *int64
			name      string
		)

		token := c.Query("token")
		if token != "" {
			uid, err := service.ParseJWT(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "неверный токен"})
				return
			}
			userID = uid
			accountID = &uid

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			user, err := h.UserRepo.GetByID(ctx, uid)
			cancel()
			if err != nil || user == nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "пользователь не найден"})
				return
			}
			name = user.FirstName
			if name == "" {
				name = user.Username
			}
		} else {
			// гость: играет без наград и ставок
			name = c.Query("name")
			if name == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "нужен токен или имя гостя"})
				return
			}
			userID = -atomic.AddInt64(&h.guestSeq, 1) - 1_000_000
		}

		spectator := c.Query("spectate") == "1"
		joinID := c.Query("match_id")

		// создание стола: конфигурация из query
		var createCfg *game.Config
		if joinID == "" && !spectator {
			cfg := game.Config{
				DeckSize:    queryInt(c, "deck", 36),
				MaxPlayers:  queryInt(c, "players", 2),
				TurnSeconds: queryInt(c, "turn", 30),
				Mode:        game.Mode(c.Query("mode")),
			}
			if betStr := c.Query("bet"); betStr != "" {
				if bet, err := strconv.ParseInt(betStr, 10, 64); err == nil && bet > 0 {
					cfg.Bet = bet
				}
			}
			cfg.Normalize()
			createCfg = &cfg
		}

		// сумма ставки: для входа берётся из конфигурации стола;
		// реконнект на своё место ставку не резервирует — она уже в банке
		var bet int64
		if !spectator {
			if createCfg != nil {
				bet = createCfg.Bet
			} else if room := h.Hub.FindRoom(joinID); room != nil && !room.Match.IsSeated(userID) {
				bet = room.Match.Snapshot(0, false).Bet
			}
		}

		if bet > 0 && accountID == nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "ставки доступны только зарегистрированным игрокам"})
			return
		}

		// резервируем ставку до апгрейда, недостаток средств — отказ сразу
		if bet > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_, err := h.Balance.Debit(ctx, *accountID, bet, domain.TxTypeBet,
				map[string]interface{}{"match_id": joinID})
			cancel()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "не удалось зарезервировать ставку"})
				return
			}
		}

		allowedOrigin := os.Getenv("ALLOWED_ORIGIN")
		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("ошибка обновления ws:", err)
			// возвращаем ставку, если обновление WebSocket не удалось
			if bet > 0 {
				ctx := context.Background()
				_, _ = h.Balance.Credit(ctx, *accountID, bet, domain.TxTypeRefund,
					map[string]interface{}{"reason": "upgrade_failed"})
			}
			return
		}

		client := NewClient(userID, accountID, name, conn, h.Hub)
		client.Spectator = spectator
		client.JoinID = joinID
		client.CreateCfg = createCfg
		client.Bet = bet
		go client.Run()
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	if s := c.Query(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return def
}
