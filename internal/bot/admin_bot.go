package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"durak_webapp/internal/domain"
	"durak_webapp/internal/logger"
	"durak_webapp/internal/service"
	"durak_webapp/internal/ws"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AdminBot обрабатывает команды администраторов через Telegram
type AdminBot struct {
	bot          *tgbotapi.BotAPI
	adminService *service.AdminService
	audit        *service.AuditService
	hub          *ws.Hub
	settler      *service.SettlementService
	adminIDs     []int64 // Telegram ID пользователей с правами админа
	stopCh       chan struct{}
	wg           sync.WaitGroup
	log          *slog.Logger

	broadcastPending map[int64]bool // админы, ожидающие ввода сообщения для рассылки
}

// NewAdminBot создаёт нового админ бота
func NewAdminBot(token string, adminService *service.AdminService, audit *service.AuditService, hub *ws.Hub, settler *service.SettlementService, adminIDs []int64) (*AdminBot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log := logger.With("component", "admin_bot")
	log.Info("admin bot authorized", "username", botAPI.Self.UserName)

	return &AdminBot{
		bot:              botAPI,
		adminService:     adminService,
		audit:            audit,
		hub:              hub,
		settler:          settler,
		adminIDs:         adminIDs,
		stopCh:           make(chan struct{}),
		log:              log,
		broadcastPending: make(map[int64]bool),
	}, nil
}

// Start запускает прослушивание команд
func (b *AdminBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}

			if update.Message == nil {
				continue
			}

			// Проверка является ли пользователь админом
			if !b.isAdmin(update.Message.From.ID) {
				continue
			}

			// Проверка находится ли админ в режиме рассылки (ожидает сообщение)
			if b.broadcastPending[update.Message.From.ID] && !update.Message.IsCommand() {
				b.wg.Add(1)
				go func(msg *tgbotapi.Message) {
					defer b.wg.Done()
					b.executeBroadcast(msg)
				}(update.Message)
				continue
			}

			if !update.Message.IsCommand() {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleCommand(msg)
			}(update.Message)
		}
	}
}

// Stop плавно останавливает бота
func (b *AdminBot) Stop() {
	b.log.Info("stopping admin bot...")
	close(b.stopCh)
	b.bot.StopReceivingUpdates()

	// Ожидание завершения обработчиков с таймаутом
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("admin bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("admin bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *AdminBot) isAdmin(userID int64) bool {
	for _, id := range b.adminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *AdminBot) handleCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var response string

	switch msg.Command() {
	case "start", "help":
		response = b.helpMessage()

	case "stats":
		response = b.handleStats(ctx)

	case "user":
		response = b.handleUser(ctx, msg.CommandArguments())

	case "addcoins":
		response = b.handleAddCoins(ctx, msg.From.ID, msg.CommandArguments())

	case "ban":
		response = b.handleBan(ctx, msg.From.ID, msg.CommandArguments())

	case "unban":
		response = b.handleUnban(ctx, msg.From.ID, msg.CommandArguments())

	case "top":
		response = b.handleTop(ctx, msg.CommandArguments())

	case "matches":
		response = b.handleRecentMatches(ctx)

	case "rooms":
		response = b.handleRooms()

	case "settle":
		response = b.handleSettle(ctx, msg.From.ID, msg.CommandArguments())

	case "broadcast":
		response = b.handleBroadcastStart(msg.From.ID)

	case "addadmin":
		response = b.handleAddAdmin(msg.CommandArguments())

	default:
		response = "❌ Неизвестная команда. Используйте /help для списка команд."
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, response)
	reply.ParseMode = "HTML"
	reply.ReplyToMessageID = msg.MessageID

	if _, err := b.bot.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}

func (b *AdminBot) helpMessage() string {
	return `<b>🤖 Команды администратора</b>

<b>📊 Статистика:</b>
/stats - Статистика платформы
/top [лимит] - Топ игроков по победам
/matches - Последние партии
/rooms - Открытые столы

<b>👤 Управление пользователями:</b>
/user &lt;@username|tg_id&gt; - Информация о пользователе
/addcoins &lt;@username|tg_id&gt; &lt;сумма&gt; - Добавить монеты
/ban &lt;@username|tg_id&gt; - Заблокировать
/unban &lt;@username|tg_id&gt; - Разблокировать

<b>💰 Расчёты:</b>
/settle &lt;match_id&gt; - Повторить расчёт зависшей партии

<b>🔐 Управление админами:</b>
/addadmin &lt;tg_id&gt; - Добавить админа

<b>📢 Рассылка:</b>
/broadcast - Отправить сообщение всем (фото, кнопки)`
}

func (b *AdminBot) handleStats(ctx context.Context) string {
	stats, err := b.adminService.GetStats(ctx)
	if err != nil {
		return fmt.Sprintf("Ошибка: %v", err)
	}

	return fmt.Sprintf(`<b>Статистика платформы</b>

<b>Пользователи:</b>
- Всего: %d
- Активных сегодня: %d
- Активных за неделю: %d

<b>Партии:</b>
- Всего сыграно: %d
- Сегодня: %d

<b>Экономика:</b>
- Монет в обращении: %d
- Всего поставлено: %d
- Поставлено сегодня: %d

<b>Расчёты:</b>
- Сбоев за неделю: %d`,
		stats.TotalUsers,
		stats.ActiveUsersToday,
		stats.ActiveUsersWeek,
		stats.TotalMatches,
		stats.MatchesToday,
		stats.TotalCoins,
		stats.TotalWagered,
		stats.WageredToday,
		stats.FailedSettles,
	)
}

func (b *AdminBot) handleUser(ctx context.Context, args string) string {
	if args == "" {
		return "Использование: /user <@username|tg_id>"
	}

	user, err := b.adminService.GetUser(ctx, args)
	if err != nil {
		return fmt.Sprintf("Пользователь не найден: %v", err)
	}

	banned := "нет"
	if user.Banned {
		banned = "да"
	}

	return fmt.Sprintf(`<b>Информация о пользователе</b>

- ID: %d
- Telegram ID: %d
- Username: @%s
- Имя: %s
- Монеты: %d
- Рейтинг: %d
- Побед: %d
- Поражений: %d
- Ничьих: %d
- Серия побед: %d (лучшая %d)
- Забанен: %s
- Регистрация: %s`,
		user.ID,
		user.TgID,
		user.Username,
		user.FirstName,
		user.Coins,
		user.Rating,
		user.Wins,
		user.Losses,
		user.Draws,
		user.WinStreak,
		user.BestStreak,
		banned,
		user.CreatedAt.Format("02.01.2006 15:04"),
	)
}

func (b *AdminBot) handleAddCoins(ctx context.Context, adminID int64, args string) string {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return "Использование: /addcoins <@username|tg_id> <сумма>"
	}

	user, err := b.adminService.GetUser(ctx, parts[0])
	if err != nil {
		return fmt.Sprintf("Пользователь не найден: %v", err)
	}

	amount, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "Неверная сумма"
	}

	newBalance, err := b.adminService.AddUserCoins(ctx, user.TgID, amount)
	if err != nil {
		return fmt.Sprintf("Ошибка: %v", err)
	}

	b.audit.LogAdminAction(ctx, adminID, domain.AuditActionAdminAddCoins, user.ID, map[string]interface{}{
		"amount":      amount,
		"new_balance": newBalance,
	})

	return fmt.Sprintf("Добавлено %d монет пользователю. Новый баланс: %d", amount, newBalance)
}

func (b *AdminBot) handleBan(ctx context.Context, adminID int64, args string) string {
	if args == "" {
		return "Использование: /ban <@username|tg_id>"
	}

	userID, err := b.adminService.ResolveUserIdentifier(ctx, args)
	if err != nil {
		return fmt.Sprintf("Пользователь не найден: %v", err)
	}

	if err := b.adminService.BanUser(ctx, userID); err != nil {
		return fmt.Sprintf("Ошибка: %v", err)
	}

	b.audit.LogAdminAction(ctx, adminID, domain.AuditActionAdminBanUser, userID, nil)
	return fmt.Sprintf("Пользователь %d заблокирован", userID)
}

func (b *AdminBot) handleUnban(ctx context.Context, adminID int64, args string) string {
	if args == "" {
		return "Использование: /unban <@username|tg_id>"
	}

	userID, err := b.adminService.ResolveUserIdentifier(ctx, args)
	if err != nil {
		return fmt.Sprintf("Пользователь не найден: %v", err)
	}

	if err := b.adminService.UnbanUser(ctx, userID); err != nil {
		return fmt.Sprintf("Ошибка: %v", err)
	}

	b.audit.LogAdminAction(ctx, adminID, domain.AuditActionAdminUnbanUser, userID, nil)
	return fmt.Sprintf("Пользователь %d разблокирован", userID)
}

func (b *AdminBot) handleTop(ctx context.Context, args string) string {
	limit := 10
	if args != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(args)); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	users, err := b.adminService.GetTopUsersByWins(ctx, limit)
	if err != nil {
		return fmt.Sprintf("Ошибка: %v", err)
	}
	if len(users) == 0 {
		return "Пока нет игроков"
	}

	var sb strings.Builder
	sb.WriteString("<b>Топ игроков по победам</b>\n\n")
	for i, u := range users {
		name := u.FirstName
		if u.Username != "" {
			name = "@" + u.Username
		}
		sb.WriteString(fmt.Sprintf("%d. %s — побед %d, рейтинг %d\n", i+1, name, u.Wins, u.Rating))
	}
	return sb.String()
}

func (b *AdminBot) handleRecentMatches(ctx context.Context) string {
	matches, err := b.adminService.GetRecentMatches(ctx, 15)
	if err != nil {
		return fmt.Sprintf("Ошибка: %v", err)
	}
	if len(matches) == 0 {
		return "Ещё не сыграно ни одной партии"
	}

	var sb strings.Builder
	sb.WriteString("<b>Последние партии</b>\n\n")
	for _, m := range matches {
		sb.WriteString(fmt.Sprintf("<code>%s</code>\n  %s, игроков %d, банк %d (%s), %s\n",
			m.MatchID, m.Mode, m.Players, m.Bank, m.Reason, m.FinishedAt.Format("02.01 15:04")))
	}
	return sb.String()
}

func (b *AdminBot) handleRooms() string {
	rooms := b.hub.OpenRooms()
	if len(rooms) == 0 {
		return "Открытых столов нет"
	}

	var sb strings.Builder
	sb.WriteString("<b>Открытые столы</b>\n\n")
	for _, r := range rooms {
		sb.WriteString(fmt.Sprintf("<code>%v</code> — ставка %v, мест %v\n",
			r["match_id"], r["bet"], r["players"]))
	}
	return sb.String()
}

// handleSettle повторяет расчёт партии, у которой он сорвался.
// Работает только пока комната ещё жива в памяти
func (b *AdminBot) handleSettle(ctx context.Context, adminID int64, args string) string {
	matchID := strings.TrimSpace(args)
	if matchID == "" {
		return "Использование: /settle <match_id>"
	}

	room := b.hub.FindRoom(matchID)
	if room == nil {
		return "Партия не найдена в памяти. Если процесс перезапускался, банк возвращается вручную через /addcoins."
	}

	b.audit.Log(ctx, adminID, domain.AuditActionSettleRetry, domain.AuditCategoryAdmin, map[string]interface{}{
		"match_id": matchID,
	})

	if err := b.settler.Settle(ctx, room.Match); err != nil {
		return fmt.Sprintf("Расчёт снова не прошёл: %v", err)
	}
	return "Расчёт выполнен ✅"
}

func (b *AdminBot) handleBroadcastStart(adminID int64) string {
	b.broadcastPending[adminID] = true

	return `<b>Broadcast Mode</b>

Введите сообщение для рассылки ниже.

<b>Поддерживается:</b>
- Текст с HTML разметкой
- Фото с подписью

Отправьте /cancel для отмены.`
}

func (b *AdminBot) executeBroadcast(msg *tgbotapi.Message) {
	adminID := msg.From.ID
	chatID := msg.Chat.ID

	// Отмена если пользователь отправил /cancel
	if msg.Text == "/cancel" {
		delete(b.broadcastPending, adminID)
		reply := tgbotapi.NewMessage(chatID, "Рассылка отменена")
		b.bot.Send(reply)
		return
	}

	delete(b.broadcastPending, adminID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	b.log.Info("starting broadcast", "admin_id", adminID)

	userIDs, err := b.adminService.GetAllUserTgIDs(ctx)
	if err != nil {
		b.log.Error("failed to get user IDs", "error", err)
		reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("Ошибка: %v", err))
		b.bot.Send(reply)
		return
	}

	if len(userIDs) == 0 {
		reply := tgbotapi.NewMessage(chatID, "Нет пользователей для рассылки")
		b.bot.Send(reply)
		return
	}

	// Отправка сообщения о прогрессе
	progressMsg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Начинаю рассылку %d пользователям...", len(userIDs)))
	b.bot.Send(progressMsg)

	sent := 0
	failed := 0
	blocked := 0

	for _, tgID := range userIDs {
		var err error

		// Проверка является ли это фото-сообщением
		if len(msg.Photo) > 0 {
			// Получаем фото наибольшего размера
			photo := msg.Photo[len(msg.Photo)-1]
			photoMsg := tgbotapi.NewPhoto(tgID, tgbotapi.FileID(photo.FileID))
			photoMsg.Caption = msg.Caption
			photoMsg.ParseMode = "HTML"
			_, err = b.bot.Send(photoMsg)
		} else {
			// Текстовое сообщение
			textMsg := tgbotapi.NewMessage(tgID, msg.Text)
			textMsg.ParseMode = "HTML"
			textMsg.DisableWebPagePreview = true
			_, err = b.bot.Send(textMsg)
		}

		if err != nil {
			if strings.Contains(err.Error(), "blocked") || strings.Contains(err.Error(), "deactivated") {
				blocked++
			} else {
				b.log.Error("failed to send broadcast", "tg_id", tgID, "error", err)
			}
			failed++
		} else {
			sent++
		}

		// Ограничение скорости - 20 сообщений в секунду
		time.Sleep(50 * time.Millisecond)
	}

	b.log.Info("broadcast complete", "sent", sent, "failed", failed, "blocked", blocked)

	result := fmt.Sprintf(`<b>Рассылка завершена</b>

Отправлено: %d
Не доставлено: %d
Заблокировали бота: %d`, sent, failed-blocked, blocked)

	reply := tgbotapi.NewMessage(chatID, result)
	reply.ParseMode = "HTML"
	b.bot.Send(reply)
}

func (b *AdminBot) handleAddAdmin(args string) string {
	tgID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return "Использование: /addadmin <tg_id>"
	}

	if b.isAdmin(tgID) {
		return "Этот пользователь уже админ"
	}

	b.adminIDs = append(b.adminIDs, tgID)
	return fmt.Sprintf("Добавлен админ %d\n\nЭто временно до перезапуска. Добавьте в ADMIN_TELEGRAM_IDS для постоянного доступа.", tgID)
}

// SendNotification отправляет произвольное сообщение пользователю
func (b *AdminBot) SendNotification(tgID int64, message string) error {
	msg := tgbotapi.NewMessage(tgID, message)
	msg.ParseMode = "HTML"
	_, err := b.bot.Send(msg)
	return err
}

// NotifyAdminsSettleFailure уведомляет всех админов о сорвавшемся расчёте партии
func (b *AdminBot) NotifyAdminsSettleFailure(matchID string, settleErr error) {
	text := fmt.Sprintf(`<b>⚠️ Сбой расчёта партии</b>

Партия: <code>%s</code>
Ошибка: %v

Повторить: /settle %s`, matchID, settleErr, matchID)

	for _, adminID := range b.adminIDs {
		if err := b.SendNotification(adminID, text); err != nil {
			b.log.Error("failed to notify admin", "admin_id", adminID, "error", err)
		}
	}
}
