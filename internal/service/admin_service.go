package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// предоставляет административную статистику и операции
type AdminService struct {
	db *pgxpool.Pool
}

// создает новый административный сервис
func NewAdminService(db *pgxpool.Pool) *AdminService {
	return &AdminService{db: db}
}

// представляет статистику платформы
type Stats struct {
	TotalUsers       int64 `json:"total_users"`
	ActiveUsersToday int64 `json:"active_users_today"`
	ActiveUsersWeek  int64 `json:"active_users_week"`
	TotalMatches     int64 `json:"total_matches"`
	MatchesToday     int64 `json:"matches_today"`
	TotalCoins       int64 `json:"total_coins"`   // общее количество монет в обращении
	TotalWagered     int64 `json:"total_wagered"` // общая сумма банков за все время
	WageredToday     int64 `json:"wagered_today"` // сумма банков за сегодня
	FailedSettles    int64 `json:"failed_settles"` // сбои сеттлмента за неделю
}

// возвращает статистику платформы
func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	today := time.Now().Truncate(24 * time.Hour)
	weekAgo := today.Add(-7 * 24 * time.Hour)

	// общее количество пользователей
	_ = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&stats.TotalUsers)

	// активные пользователи сегодня (сыграли хотя бы один матч)
	_ = s.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT p.user_id) FROM match_participants p
		JOIN matches m ON m.match_id = p.match_id
		WHERE m.finished_at >= $1 AND NOT p.is_bot
	`, today).Scan(&stats.ActiveUsersToday)

	// активные пользователи за эту неделю
	_ = s.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT p.user_id) FROM match_participants p
		JOIN matches m ON m.match_id = p.match_id
		WHERE m.finished_at >= $1 AND NOT p.is_bot
	`, weekAgo).Scan(&stats.ActiveUsersWeek)

	// общее количество сыгранных матчей
	_ = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM matches`).Scan(&stats.TotalMatches)

	// матчи сегодня
	_ = s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM matches WHERE finished_at >= $1
	`, today).Scan(&stats.MatchesToday)

	// общее количество монет в обращении
	_ = s.db.QueryRow(ctx, `SELECT COALESCE(SUM(coins), 0) FROM users`).Scan(&stats.TotalCoins)

	// общая сумма банков за все время
	_ = s.db.QueryRow(ctx, `SELECT COALESCE(SUM(bank), 0) FROM matches`).Scan(&stats.TotalWagered)

	// сумма банков сегодня
	_ = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(bank), 0) FROM matches WHERE finished_at >= $1
	`, today).Scan(&stats.WageredToday)

	// сбои сеттлмента за неделю
	_ = s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_logs
		WHERE action = 'settle_failed' AND created_at >= $1
	`, weekAgo).Scan(&stats.FailedSettles)

	return stats, nil
}

// представляет информацию о пользователе для админки
type UserInfo struct {
	ID         int64     `json:"id"`
	TgID       int64     `json:"tg_id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	Coins      int64     `json:"coins"`
	Rating     int       `json:"rating"`
	Wins       int       `json:"wins"`
	Losses     int       `json:"losses"`
	Draws      int       `json:"draws"`
	WinStreak  int       `json:"win_streak"`
	BestStreak int       `json:"best_streak"`
	Banned     bool      `json:"banned"`
	CreatedAt  time.Time `json:"created_at"`
}

const adminUserColumns = `id, tg_id, username, first_name, coins, rating, wins, losses, draws, win_streak, best_streak, COALESCE(banned, false), created_at`

// возвращает пользователя по идентификатору: id, tg_id или @username
func (s *AdminService) GetUser(ctx context.Context, identifier string) (*UserInfo, error) {
	var row = s.db.QueryRow(ctx, `SELECT `+adminUserColumns+` FROM users WHERE id = $1 OR tg_id = $1 LIMIT 1`, 0)

	if strings.HasPrefix(identifier, "@") {
		username := strings.TrimPrefix(identifier, "@")
		row = s.db.QueryRow(ctx,
			`SELECT `+adminUserColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username)
	} else {
		id, err := strconv.ParseInt(identifier, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("неверный идентификатор: %s", identifier)
		}
		row = s.db.QueryRow(ctx,
			`SELECT `+adminUserColumns+` FROM users WHERE id = $1 OR tg_id = $1 LIMIT 1`, id)
	}

	var u UserInfo
	err := row.Scan(&u.ID, &u.TgID, &u.Username, &u.FirstName, &u.Coins, &u.Rating,
		&u.Wins, &u.Losses, &u.Draws, &u.WinStreak, &u.BestStreak, &u.Banned, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// начисляет монеты пользователю по tg_id, возвращает новый баланс
func (s *AdminService) AddUserCoins(ctx context.Context, tgID int64, amount int64) (int64, error) {
	var newBalance int64
	err := s.db.QueryRow(ctx,
		`UPDATE users SET coins = coins + $1 WHERE tg_id = $2 RETURNING coins`,
		amount, tgID,
	).Scan(&newBalance)
	return newBalance, err
}

// банит пользователя
func (s *AdminService) BanUser(ctx context.Context, userID int64) error {
	_, err := s.db.Exec(ctx, `UPDATE users SET banned = true WHERE id = $1`, userID)
	return err
}

// разбанивает пользователя
func (s *AdminService) UnbanUser(ctx context.Context, userID int64) error {
	_, err := s.db.Exec(ctx, `UPDATE users SET banned = false WHERE id = $1`, userID)
	return err
}

// возвращает топ пользователей по победам
func (s *AdminService) GetTopUsersByWins(ctx context.Context, limit int) ([]UserInfo, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+adminUserColumns+` FROM users ORDER BY wins DESC, rating DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []UserInfo
	for rows.Next() {
		var u UserInfo
		if err := rows.Scan(&u.ID, &u.TgID, &u.Username, &u.FirstName, &u.Coins, &u.Rating,
			&u.Wins, &u.Losses, &u.Draws, &u.WinStreak, &u.BestStreak, &u.Banned, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// запись о сыгранном матче для админки
type MatchSummary struct {
	MatchID    string    `json:"match_id"`
	Mode       string    `json:"mode"`
	Bet        int64     `json:"bet"`
	Bank       int64     `json:"bank"`
	Reason     string    `json:"reason"`
	Players    int       `json:"players"`
	FinishedAt time.Time `json:"finished_at"`
}

// возвращает последние сыгранные матчи
func (s *AdminService) GetRecentMatches(ctx context.Context, limit int) ([]MatchSummary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT m.match_id, m.mode, m.bet, m.bank, m.reason, m.finished_at,
			(SELECT COUNT(*) FROM match_participants p WHERE p.match_id = m.match_id)
		FROM matches m
		ORDER BY m.finished_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchSummary
	for rows.Next() {
		var m MatchSummary
		if err := rows.Scan(&m.MatchID, &m.Mode, &m.Bet, &m.Bank, &m.Reason, &m.FinishedAt, &m.Players); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// возвращает tg_id всех пользователей (для рассылок)
func (s *AdminService) GetAllUserTgIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT tg_id FROM users WHERE tg_id > 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// разрешает идентификатор (id, tg_id или @username) во внутренний id
func (s *AdminService) ResolveUserIdentifier(ctx context.Context, identifier string) (int64, error) {
	u, err := s.GetUser(ctx, identifier)
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}
