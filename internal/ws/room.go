package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"durak_webapp/internal/domain"
	"durak_webapp/internal/game"
	"durak_webapp/internal/metrics"

	"github.com/google/uuid"
)

const (
	// грейс-период на реконнект после обрыва соединения
	disconnectGrace = 60 * time.Second
	// искусственная пауза перед ходом бота, чтобы партия читалась глазами
	botThinkDelay = 900 * time.Millisecond
	// запас к таймеру хода: ход, отправленный на границе дедлайна,
	// не должен сгорать из-за сетевой задержки
	turnTimerSlack = 2 * time.Second
)

// Message — конверт исходящего сообщения
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// clientMessage — входящее сообщение игрока
type clientMessage struct {
	Type  string     `json:"type"`
	Card  *game.Card `json:"card,omitempty"`
	Level string     `json:"level,omitempty"` // сложность добавляемого бота
}

type inbound struct {
	c   *Client
	raw []byte
}

// Room — событийный цикл одного матча. Все мутации состояния проходят
// через единственную горутину Run: входящие действия, таймауты хода,
// грейс-таймеры дисконнекта и ходы ботов встают в общую очередь событий
// и применяются строго по одному
type Room struct {
	ID    string
	Match *game.Match

	Clients map[int64]*Client

	Register   chan *Client
	Disconnect chan *Client
	Inbound    chan inbound
	events     chan func() // колбэки таймеров и ботов, исполняются циклом

	mu        sync.RWMutex
	createdAt time.Time
	done      chan struct{}
	stopOnce  sync.Once

	// планировщик хода: таймер всегда с номером поколения, устаревшее
	// срабатывание игнорируется
	turnTimer *time.Timer
	timerGen  int

	// супервизор дисконнектов: по таймеру на оборванное место
	graceTimers map[int64]*time.Timer

	// защита от повторного запуска бота для одного и того же хода
	botPending bool

	botSeq int64

	hub *Hub
}

func newRoom(id string, m *game.Match, hub *Hub) *Room {
	return &Room{
		ID:          id,
		Match:       m,
		Clients:     make(map[int64]*Client),
		Register:    make(chan *Client, 8),
		Disconnect:  make(chan *Client, 8),
		Inbound:     make(chan inbound, 64),
		events:      make(chan func(), 64),
		graceTimers: make(map[int64]*time.Timer),
		createdAt:   time.Now(),
		done:        make(chan struct{}),
		botSeq:      -100, // идентификаторы ботов отрицательные, с людьми не пересекаются
		hub:         hub,
	}
}

// deliver передаёт клиента событийному циклу комнаты
func (r *Room) deliver(c *Client) bool {
	select {
	case r.Register <- c:
		return true
	case <-time.After(5 * time.Second):
		log.Printf("Room.deliver: ТАЙМАУТ регистрации пользователя=%d в комнату=%s", c.UserID, r.ID)
		return false
	}
}

// HandleMessage ставит сырое сообщение клиента в очередь цикла
func (r *Room) HandleMessage(c *Client, raw []byte) {
	select {
	case r.Inbound <- inbound{c: c, raw: append([]byte(nil), raw...)}:
	case <-time.After(2 * time.Second):
		log.Printf("Room.HandleMessage: очередь комнаты=%s переполнена, сообщение пользователя=%d отброшено", r.ID, c.UserID)
	}
}

// Stop останавливает событийный цикл (зовёт уборщик хаба)
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}

func (r *Room) Run() {
	log.Printf("Room.Run: запуск комнаты=%s", r.ID)

	for {
		select {
		case c := <-r.Register:
			r.handleRegister(c)
		case c := <-r.Disconnect:
			r.handleDisconnect(c)
		case in := <-r.Inbound:
			r.handleClientMessage(in.c, in.raw)
		case ev := <-r.events:
			ev()
		case <-r.done:
			r.shutdownTimers()
			log.Printf("Room.Run: комната=%s остановлена", r.ID)
			return
		}
	}
}

// postEvent отдаёт колбэк циклу; если комната уже остановлена — молча бросает
func (r *Room) postEvent(ev func()) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

func (r *Room) handleRegister(c *Client) {
	r.mu.Lock()
	r.Clients[c.UserID] = c
	r.mu.Unlock()

	log.Printf("Room.handleRegister: комната=%s пользователь=%d наблюдатель=%v", r.ID, c.UserID, c.Spectator)

	if !c.Spectator {
		if r.Match.IsSeated(c.UserID) {
			// реконнект: гасим грейс-таймер и снимаем флаг. Ставка этого
			// места уже в банке — резервация нового соединения возвращается
			if t := r.graceTimers[c.UserID]; t != nil {
				t.Stop()
				delete(r.graceTimers, c.UserID)
			}
			r.Match.SetConnected(c.UserID, true, time.Time{})
			r.hub.refundReserved(c)
		} else {
			if err := r.Match.AddSeat(c.UserID, c.AccountID, c.Name); err != nil {
				sendError(c, err.Error())
				r.hub.refundReserved(c)
				r.mu.Lock()
				delete(r.Clients, c.UserID)
				r.mu.Unlock()
				return
			}
			c.Bet = 0 // ставка теперь в банке матча
		}
	}

	// проигрываем сообщения, пришедшие до назначения комнаты
	for _, raw := range c.drainPending() {
		r.handleClientMessage(c, raw)
	}

	r.broadcast()
}

func (r *Room) handleDisconnect(c *Client) {
	r.mu.Lock()
	if r.Clients[c.UserID] == c {
		delete(r.Clients, c.UserID)
	} else if r.Clients[c.UserID] != nil {
		// место уже занято новым соединением того же пользователя
		r.mu.Unlock()
		return
	}
	clientsLeft := len(r.Clients)
	r.mu.Unlock()

	log.Printf("Room.handleDisconnect: комната=%s пользователь=%d осталось=%d", r.ID, c.UserID, clientsLeft)

	if c.Spectator || !r.Match.IsSeated(c.UserID) {
		r.maybeRetire(clientsLeft)
		return
	}

	snap := r.Match.Snapshot(0, false)
	switch {
	case snap.Status == game.StatusWaiting:
		// до старта место просто освобождается, ставка возвращается
		r.Match.RemoveSeat(c.UserID)
		r.refundSeat(c)
		r.broadcast()

	case snap.Status == game.StatusInProgress && snap.Winner == nil:
		// супервизор дисконнекта: 60 секунд на возвращение
		deadline := time.Now().Add(disconnectGrace)
		r.Match.SetConnected(c.UserID, false, deadline)
		uid := c.UserID
		gen := r.timerGen
		r.graceTimers[uid] = time.AfterFunc(disconnectGrace, func() {
			r.postEvent(func() { r.onGraceExpired(uid, gen) })
		})
		r.broadcast()

	default:
		r.Match.SetConnected(c.UserID, false, time.Time{})
	}

	r.maybeRetire(clientsLeft)
}

// onGraceExpired исключает место, так и не вернувшееся за грейс-период
func (r *Room) onGraceExpired(uid int64, _ int) {
	if t := r.graceTimers[uid]; t == nil {
		return
	}
	delete(r.graceTimers, uid)

	r.mu.RLock()
	_, reconnected := r.Clients[uid]
	r.mu.RUnlock()
	if reconnected {
		return
	}

	log.Printf("Room.onGraceExpired: комната=%s пользователь=%d не вернулся, исключаем", r.ID, uid)
	r.eject(uid, "не вернулся в игру")
}

// eject убирает место из активного матча и доигрывает последствия:
// либо партия продолжается с перестроенной ротацией, либо завершается
func (r *Room) eject(uid int64, reason string) {
	if !r.Match.InProgress() {
		return
	}
	r.Match.EjectSeat(uid, reason)
	if r.hub.Audit != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		r.hub.Audit.LogForfeit(ctx, uid, r.ID, reason)
		cancel()
	}
	r.broadcast()
}

func (r *Room) handleClientMessage(c *Client, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("Room.handleClientMessage: не удалось разобрать сообщение: %v", err)
		return
	}

	switch msg.Type {
	case "state":
		r.sendSnapshot(c)
		return
	case "ready", "ping":
		return
	}

	if c.Spectator {
		sendError(c, "наблюдатель не может ходить")
		return
	}

	var err error
	switch msg.Type {
	case "add_bot":
		err = r.addBot(c, msg.Level)
	case "start":
		err = r.startMatch(c)
	case "attack":
		err = r.applyCardAction(c, game.ActionAttack, msg.Card)
	case "defend":
		err = r.applyCardAction(c, game.ActionDefend, msg.Card)
	case "transfer":
		if msg.Card == nil {
			err = game.ErrCardNotInHand
		} else {
			err = r.Match.Transfer(c.UserID, *msg.Card)
			r.countAction(err, "transfer")
		}
	case "take":
		err = r.Match.Apply(c.UserID, &game.Move{Type: game.ActionTake})
		r.countAction(err, "take")
	case "pass":
		err = r.Match.Apply(c.UserID, &game.Move{Type: game.ActionPass})
		r.countAction(err, "pass")
	case "rematch":
		err = r.voteRematch(c)
	case "leave":
		r.leave(c)
		return
	default:
		sendError(c, "неизвестный тип сообщения")
		return
	}

	if err != nil {
		// отклонённое действие не меняет состояние и не вещается
		sendError(c, err.Error())
		return
	}

	r.broadcast()
}

func (r *Room) applyCardAction(c *Client, action game.ActionType, card *game.Card) error {
	if card == nil {
		return game.ErrCardNotInHand
	}
	err := r.Match.Apply(c.UserID, &game.Move{Type: action, Card: card})
	r.countAction(err, string(action))
	return err
}

func (r *Room) countAction(err error, action string) {
	if err != nil {
		metrics.RejectedActions.Inc()
		return
	}
	metrics.ActionsTotal.WithLabelValues(action).Inc()
}

func (r *Room) addBot(c *Client, level string) error {
	if c.UserID != r.Match.Snapshot(0, false).HostID {
		return game.ErrNotYourTurn
	}
	r.botSeq--
	names := []string{"Гоша", "Толя", "Зина", "Клава", "Федя"}
	name := names[int(-r.botSeq)%len(names)]
	return r.Match.AddBot(r.botSeq, name, game.BotLevel(level))
}

func (r *Room) startMatch(c *Client) error {
	snap := r.Match.Snapshot(0, false)
	if c.UserID != snap.HostID {
		return game.ErrNotYourTurn
	}
	if err := r.Match.Start(); err != nil {
		return err
	}
	if r.hub.Audit != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		r.hub.Audit.Log(ctx, c.UserID, domain.AuditActionMatchStart, domain.AuditCategoryGame,
			map[string]interface{}{"match_id": r.ID, "players": len(snap.Players)})
		cancel()
	}
	return nil
}

func (r *Room) voteRematch(c *Client) error {
	all, err := r.Match.VoteRematch(c.UserID)
	if err != nil {
		return err
	}
	if all {
		// итог прошлой партии записан под старым идентификатором,
		// реванш получает свой — и заново собирает ставки
		r.Match.ResetForRematch(uuid.NewString())
		r.collectRematchBets()
	}
	return nil
}

// collectRematchBets повторно списывает ставки на реванш: банк прошлой
// партии уже выплачен сеттлментом. Не потянувший ставку теряет место
func (r *Room) collectRematchBets() {
	snap := r.Match.Snapshot(0, false)
	if snap.Bet <= 0 {
		return
	}
	for _, seat := range r.Match.Participants() {
		if seat.IsBot || seat.AccountID == nil {
			continue
		}
		if r.hub.Balance == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := r.hub.Balance.Debit(ctx, *seat.AccountID, snap.Bet, domain.TxTypeBet,
			map[string]interface{}{"match_id": snap.MatchID, "rematch": true})
		cancel()
		if err != nil {
			log.Printf("Room.collectRematchBets: ставка пользователя=%d не списана: %v", *seat.AccountID, err)
			r.Match.RemoveSeat(seat.ID)
			r.mu.RLock()
			cl := r.Clients[seat.ID]
			r.mu.RUnlock()
			if cl != nil {
				sendError(cl, "не хватает монет на ставку реванша")
			}
			continue
		}
		r.Match.AddToBank(snap.Bet)
	}
}

func (r *Room) leave(c *Client) {
	snap := r.Match.Snapshot(0, false)
	if snap.Status == game.StatusWaiting {
		r.Match.RemoveSeat(c.UserID)
		r.refundSeat(c)
	} else if snap.Status == game.StatusInProgress && snap.Winner == nil {
		r.eject(c.UserID, "покинул игру")
	}
	r.mu.Lock()
	delete(r.Clients, c.UserID)
	r.mu.Unlock()
	r.broadcast()
}

// refundSeat возвращает ставку игроку, вышедшему до старта партии
func (r *Room) refundSeat(c *Client) {
	if c.AccountID == nil || r.hub.Balance == nil {
		return
	}
	bet := r.Match.Snapshot(0, false).Bet
	if bet <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.hub.Balance.Credit(ctx, *c.AccountID, bet, domain.TxTypeRefund,
		map[string]interface{}{"match_id": r.ID, "reason": "left_before_start"}); err != nil {
		log.Printf("Room.refundSeat: не удалось вернуть ставку пользователю=%d: %v", *c.AccountID, err)
	}
}

// broadcast публикует каждому наблюдателю его проекцию состояния и
// продвигает цикл планирования: вещание — не пассивное чтение, именно
// оно взводит таймер хода и будит бота
func (r *Room) broadcast() {
	r.mu.RLock()
	clients := make(map[int64]*Client, len(r.Clients))
	for k, v := range r.Clients {
		clients[k] = v
	}
	r.mu.RUnlock()

	for _, c := range clients {
		r.sendSnapshot(c)
	}

	r.afterBroadcast()
}

func (r *Room) sendSnapshot(c *Client) {
	snap := r.Match.Snapshot(c.UserID, c.Spectator)
	data, err := json.Marshal(Message{Type: "state", Payload: snap})
	if err != nil {
		log.Printf("Room.sendSnapshot: ошибка маршалинга: %v", err)
		return
	}
	select {
	case c.Send <- data:
	case <-time.After(2 * time.Second):
		log.Printf("Room.sendSnapshot: таймаут отправки пользователю=%d", c.UserID)
	}
}

// afterBroadcast — шаг планировщика после публикации состояния:
// завершённый матч уходит в сеттлмент, иначе взводится таймер хода
// или будится бот
func (r *Room) afterBroadcast() {
	if r.Match.Result() != nil {
		r.disarmTurnTimer()
		r.handoffSettlement()
		return
	}

	holder, isBot := r.Match.TurnHolder()
	if holder == 0 {
		return
	}

	if isBot {
		r.armBot(holder)
		return
	}
	r.armTurnTimer(holder)
}

// armTurnTimer перевзводит таймер хода; прежний всегда гасится первым,
// устаревшее срабатывание отфильтровывается по поколению
func (r *Room) armTurnTimer(holder int64) {
	seconds := r.Match.Snapshot(0, false).TurnSeconds
	if seconds <= 0 {
		return
	}

	if r.turnTimer != nil {
		r.turnTimer.Stop()
	}
	r.timerGen++
	gen := r.timerGen
	r.Match.SetTurnDeadline(time.Now().Add(time.Duration(seconds) * time.Second))
	r.turnTimer = time.AfterFunc(turnTimerDuration(seconds), func() {
		r.postEvent(func() { r.onTurnTimeout(holder, gen) })
	})
}

// turnTimerDuration — срок жизни таймера хода: дедлайн плюс запас
func turnTimerDuration(seconds int) time.Duration {
	return time.Duration(seconds)*time.Second + turnTimerSlack
}

func (r *Room) disarmTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	r.timerGen++
	r.Match.SetTurnDeadline(time.Time{})
}

// onTurnTimeout — просрочка хода человеком: страйк и синтетический ход,
// после второго страйка место исключается
func (r *Room) onTurnTimeout(holder int64, gen int) {
	if gen != r.timerGen {
		return
	}
	current, _ := r.Match.TurnHolder()
	if current != holder {
		return
	}

	metrics.Timeouts.Inc()
	strikes := r.Match.AddStrike(holder)
	log.Printf("Room.onTurnTimeout: комната=%s пользователь=%d страйк %d/%d", r.ID, holder, strikes, game.MaxStrikes)

	if strikes >= game.MaxStrikes {
		metrics.AFKEjections.Inc()
		r.eject(holder, "исключён за бездействие")
		return
	}

	if mv := r.Match.TimeoutMove(holder); mv != nil {
		if err := r.Match.Apply(holder, mv); err != nil {
			log.Printf("Room.onTurnTimeout: синтетический ход отклонён: %v", err)
		}
	}
	r.broadcast()
}

// armBot планирует ровно один ход бота с искусственной задержкой
func (r *Room) armBot(botID int64) {
	if r.botPending {
		return
	}
	r.botPending = true
	gen := r.timerGen
	time.AfterFunc(botThinkDelay, func() {
		r.postEvent(func() { r.onBotTurn(botID, gen) })
	})
}

func (r *Room) onBotTurn(botID int64, _ int) {
	r.botPending = false

	current, isBot := r.Match.TurnHolder()
	if current != botID || !isBot {
		return
	}

	mv := r.Match.ChooseBotMove(botID)
	if mv == nil {
		mv = r.Match.TimeoutMove(botID)
	}
	if mv == nil {
		return
	}
	if err := r.Match.Apply(botID, mv); err != nil {
		log.Printf("Room.onBotTurn: ход бота=%d отклонён: %v", botID, err)
		return
	}
	metrics.BotMoves.Inc()
	r.broadcast()
}

// handoffSettlement передаёт завершённый матч финализатору ровно один
// раз; гарантию единственности несёт флаг на самом матче
func (r *Room) handoffSettlement() {
	if r.hub.Settler == nil || r.Match.Settled() {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := r.hub.Settler.Settle(ctx, r.Match); err != nil {
			metrics.Settlements.WithLabelValues("failed").Inc()
			// сбой инфраструктуры: игрокам не сообщаем, зовём админов
			if r.hub.OnSettleFailure != nil {
				r.hub.OnSettleFailure(r.ID, err)
			}
			return
		}
		metrics.Settlements.WithLabelValues("ok").Inc()
	}()
}

// maybeRetire убирает комнату из реестра, когда в ней не осталось
// соединений и матч не ждёт игроков
func (r *Room) maybeRetire(clientsLeft int) {
	if clientsLeft > 0 {
		return
	}
	snap := r.Match.Snapshot(0, false)
	if snap.Status == game.StatusInProgress && snap.Winner == nil {
		// все отвалились, но грейс-таймеры ещё могут вернуть игроков
		return
	}

	var uids []int64
	for _, p := range snap.Players {
		uids = append(uids, p.ID)
	}
	r.hub.removeRoom(r.ID, uids)
	r.Stop()
}

func (r *Room) shutdownTimers() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
	}
	for _, t := range r.graceTimers {
		t.Stop()
	}
}

func sendError(c *Client, text string) {
	data, err := json.Marshal(Message{Type: "error", Payload: map[string]string{"message": text}})
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	case <-time.After(time.Second):
	}
}
