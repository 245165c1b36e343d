package service

import (
	"context"

	"durak_webapp/internal/domain"
	"durak_webapp/internal/game"
	"durak_webapp/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Коды ачивок
const (
	AchFirstWin    = "first_win"
	AchTenWins     = "ten_wins"
	AchHundredWins = "hundred_wins"
	AchStreakFive  = "streak_5"
	AchCleanGame   = "clean_game" // победа, не взяв ни одной карты со стола
)

// AchievementService выдает ачивки по итогам матча. Вызывается после
// коммита сеттлмента, поэтому статистика пользователя уже обновлена
type AchievementService struct {
	db *pgxpool.Pool
}

func NewAchievementService(db *pgxpool.Pool) *AchievementService {
	return &AchievementService{db: db}
}

// CheckAfterMatch сверяет статистику со списком ачивок и выдает новые.
// Ошибки логируются и не влияют на итог матча
func (s *AchievementService) CheckAfterMatch(ctx context.Context, userID int64, result string, seat *game.Seat) {
	if result != domain.MatchResultWin {
		return
	}

	var wins, streak int
	err := s.db.QueryRow(ctx,
		`SELECT wins, win_streak FROM users WHERE id = $1`, userID).Scan(&wins, &streak)
	if err != nil {
		logger.Warn("проверка ачивок: не удалось прочитать статистику", "error", err, "user_id", userID)
		return
	}

	var earned []string
	if wins >= 1 {
		earned = append(earned, AchFirstWin)
	}
	if wins >= 10 {
		earned = append(earned, AchTenWins)
	}
	if wins >= 100 {
		earned = append(earned, AchHundredWins)
	}
	if streak >= 5 {
		earned = append(earned, AchStreakFive)
	}
	if seat != nil && seat.CardsTaken == 0 {
		earned = append(earned, AchCleanGame)
	}

	for _, code := range earned {
		s.grant(ctx, userID, code)
	}
}

// grant выдает ачивку, повторная выдача гасится на уровне БД
func (s *AchievementService) grant(ctx context.Context, userID int64, code string) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO achievements (user_id, code)
		VALUES ($1, $2)
		ON CONFLICT (user_id, code) DO NOTHING
	`, userID, code)
	if err != nil {
		logger.Warn("не удалось выдать ачивку", "error", err, "user_id", userID, "code", code)
		return
	}
	if tag.RowsAffected() > 0 {
		logger.Info("выдана ачивка", "user_id", userID, "code", code)
	}
}

// GetUserAchievements возвращает коды ачивок пользователя
func (s *AchievementService) GetUserAchievements(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT code FROM achievements WHERE user_id = $1 ORDER BY earned_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
