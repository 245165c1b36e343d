package service

import (
	"context"
	"strconv"

	"durak_webapp/internal/domain"
	"durak_webapp/internal/logger"

	"github.com/redis/go-redis/v9"
)

const (
	ratingWinDelta  = 20
	ratingLoseDelta = -20

	lbRatingKey = "lb:rating"
	lbWinsKey   = "lb:wins"
)

// RatingService — рейтинговый коллаборатор плюс кэш лидерборда в редисе.
// Сама формула намеренно примитивная, наружу торчит только дельта
type RatingService struct {
	rdb *redis.Client
}

func NewRatingService(rdb *redis.Client) *RatingService {
	return &RatingService{rdb: rdb}
}

// DeltaFor возвращает изменение рейтинга за исход матча
func (s *RatingService) DeltaFor(result string) int {
	switch result {
	case domain.MatchResultWin:
		return ratingWinDelta
	case domain.MatchResultLose:
		return ratingLoseDelta
	}
	return 0
}

// ApplyResult обновляет кэш лидерборда после коммита сеттлмента.
// Редис здесь только кэш: сбой логируется и не влияет на расчёт
func (s *RatingService) ApplyResult(ctx context.Context, userID int64, name string, ratingDelta int, won bool) {
	if s.rdb == nil {
		return
	}

	member := strconv.FormatInt(userID, 10)
	pipe := s.rdb.Pipeline()
	pipe.ZIncrBy(ctx, lbRatingKey, float64(ratingDelta), member)
	if won {
		pipe.ZIncrBy(ctx, lbWinsKey, 1, member)
	}
	if name != "" {
		pipe.HSet(ctx, "lb:names", member, name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("не удалось обновить кэш лидерборда", "error", err, "user_id", userID)
	}
}

// LeaderboardEntry — строка кэшированного лидерборда
type LeaderboardEntry struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Score  int64  `json:"score"`
}

// TopWins возвращает топ по числу побед из кэша
func (s *RatingService) TopWins(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	return s.top(ctx, lbWinsKey, limit)
}

// TopRating возвращает топ по накопленной дельте рейтинга из кэша
func (s *RatingService) TopRating(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	return s.top(ctx, lbRatingKey, limit)
}

// Rank возвращает позицию пользователя в топе по победам (1 = лучший)
// и его счёт. Если пользователь не сыграл ни одной партии — (0, 0)
func (s *RatingService) Rank(ctx context.Context, userID int64) (rank int64, wins int64, err error) {
	if s.rdb == nil {
		return 0, 0, nil
	}

	member := strconv.FormatInt(userID, 10)
	pos, err := s.rdb.ZRevRank(ctx, lbWinsKey, member).Result()
	if err == redis.Nil {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	score, err := s.rdb.ZScore(ctx, lbWinsKey, member).Result()
	if err != nil && err != redis.Nil {
		return 0, 0, err
	}
	return pos + 1, int64(score), nil
}

func (s *RatingService) top(ctx context.Context, key string, limit int) ([]LeaderboardEntry, error) {
	if s.rdb == nil {
		return nil, nil
	}

	zs, err := s.rdb.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	members := make([]string, len(zs))
	for i, z := range zs {
		members[i], _ = z.Member.(string)
	}
	var names map[string]string
	if len(members) > 0 {
		names, err = s.rdb.HGetAll(ctx, "lb:names").Result()
		if err != nil {
			names = nil
		}
	}

	out := make([]LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		id, _ := strconv.ParseInt(member, 10, 64)
		out = append(out, LeaderboardEntry{
			UserID: id,
			Name:   names[member],
			Score:  int64(z.Score),
		})
	}
	return out, nil
}
