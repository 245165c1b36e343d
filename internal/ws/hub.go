package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"durak_webapp/internal/domain"
	"durak_webapp/internal/game"
	"durak_webapp/internal/metrics"
	"durak_webapp/internal/service"

	"github.com/google/uuid"
)

// Hub — реестр активных матчей: match id → комната плюс отображение
// пользователь → комната для реконнекта. Реестр только добавляет и
// удаляет записи, внутрь матчей не лезет
type Hub struct {
	Rooms    map[string]*Room
	UserRoom map[int64]string
	mu       sync.RWMutex

	Balance *service.BalanceService
	Settler *service.SettlementService
	Audit   *service.AuditService

	// уведомление админов о сбое сеттлмента; комната зовёт его вне
	// своего событийного цикла
	OnSettleFailure func(matchID string, err error)
}

func NewHub(balance *service.BalanceService, settler *service.SettlementService, audit *service.AuditService) *Hub {
	return &Hub{
		Rooms:    make(map[string]*Room),
		UserRoom: make(map[int64]string),
		Balance:  balance,
		Settler:  settler,
		Audit:    audit,
	}
}

// AssignClient находит клиенту комнату: реконнект в свой матч, вход по
// match_id или создание нового стола
func (h *Hub) AssignClient(c *Client) *Room {
	h.mu.Lock()

	// реконнект: у пользователя уже есть живой матч
	if roomID, ok := h.UserRoom[c.UserID]; ok {
		if room, ok2 := h.Rooms[roomID]; ok2 && room.Match.IsSeated(c.UserID) {
			h.mu.Unlock()
			log.Printf("Hub.AssignClient: реконнект пользователя=%d в комнату=%s", c.UserID, roomID)
			if !room.deliver(c) {
				return nil
			}
			return room
		}
		// матч уже умер — чистим устаревшее отображение
		delete(h.UserRoom, c.UserID)
	}

	// вход в существующий матч по идентификатору
	if c.JoinID != "" {
		room, ok := h.Rooms[c.JoinID]
		if !ok {
			h.mu.Unlock()
			log.Printf("Hub.AssignClient: матч=%s не найден для пользователя=%d", c.JoinID, c.UserID)
			h.refundReserved(c)
			sendError(c, "матч не найден")
			return nil
		}
		if !c.Spectator {
			h.UserRoom[c.UserID] = room.ID
		}
		h.mu.Unlock()
		if !room.deliver(c) {
			return nil
		}
		return room
	}

	// создание нового стола
	cfg := game.Config{}
	if c.CreateCfg != nil {
		cfg = *c.CreateCfg
	}
	id := uuid.NewString()
	room := newRoom(id, game.NewMatch(id, c.UserID, cfg), h)
	h.Rooms[id] = room
	h.UserRoom[c.UserID] = id
	metrics.ActiveMatches.Set(float64(len(h.Rooms)))
	h.mu.Unlock()

	log.Printf("Hub.AssignClient: пользователь=%d создал комнату=%s", c.UserID, id)
	go room.Run()

	if !room.deliver(c) {
		return nil
	}
	return room
}

// OnDisconnect маршрутизирует обрыв соединения в комнату клиента
func (h *Hub) OnDisconnect(c *Client) {
	h.mu.RLock()
	roomID, ok := h.UserRoom[c.UserID]
	var room *Room
	if ok {
		room = h.Rooms[roomID]
	}
	if room == nil && c.Room != nil {
		room = h.Rooms[c.Room.ID]
	}
	h.mu.RUnlock()

	if room == nil {
		h.refundReserved(c)
		return
	}

	select {
	case room.Disconnect <- c:
	default:
		log.Printf("Hub.OnDisconnect: комната=%s канал Disconnect заполнен/закрыт", roomID)
	}
}

// removeRoom выкидывает комнату из реестра вместе с отображениями её игроков
func (h *Hub) removeRoom(roomID string, userIDs []int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.Rooms, roomID)
	for _, uid := range userIDs {
		if h.UserRoom[uid] == roomID {
			delete(h.UserRoom, uid)
		}
	}
	metrics.ActiveMatches.Set(float64(len(h.Rooms)))
	log.Printf("Hub.removeRoom: комната=%s убрана из реестра", roomID)
}

// FindRoom возвращает комнату по идентификатору матча
func (h *Hub) FindRoom(matchID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.Rooms[matchID]
}

// OpenRooms возвращает идентификаторы столов, ждущих игроков (для лобби)
func (h *Hub) OpenRooms() []map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []map[string]any
	for id, room := range h.Rooms {
		snap := room.Match.Snapshot(0, false)
		if snap.Status != game.StatusWaiting {
			continue
		}
		out = append(out, map[string]any{
			"match_id": id,
			"mode":     snap.Mode,
			"bet":      snap.Bet,
			"players":  len(snap.Players),
		})
	}
	return out
}

// refundReserved возвращает ставку, зарезервированную на входе,
// когда клиент так и не сел за стол
func (h *Hub) refundReserved(c *Client) {
	if c.Bet <= 0 || c.AccountID == nil {
		return
	}
	bet := c.Bet
	c.Bet = 0
	if h.Balance == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := h.Balance.Credit(ctx, *c.AccountID, bet, domain.TxTypeRefund, map[string]interface{}{"reason": "join_failed"}); err != nil {
		log.Printf("Hub.refundReserved: не удалось вернуть ставку пользователю=%d: %v", *c.AccountID, err)
	}
}

// StartCleanup запускает фоновую уборку брошенных комнат
func (h *Hub) StartCleanup() {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			h.cleanupStaleRooms()
		}
	}()
}

func (h *Hub) cleanupStaleRooms() {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()

	for roomID, room := range h.Rooms {
		room.mu.RLock()
		clientsCount := len(room.Clients)
		createdAt := room.createdAt
		room.mu.RUnlock()

		if clientsCount == 0 && now.Sub(createdAt) > time.Hour {
			room.Stop()
			delete(h.Rooms, roomID)

			for uid, rid := range h.UserRoom {
				if rid == roomID {
					delete(h.UserRoom, uid)
				}
			}

			log.Printf("очищена устаревшая комната: %s", roomID)
		}
	}
	metrics.ActiveMatches.Set(float64(len(h.Rooms)))
}
