package service

import (
	"context"
	"errors"
	"time"

	"durak_webapp/internal/domain"
	"durak_webapp/internal/game"
	"durak_webapp/internal/logger"
)

var ErrMatchNotConcluded = errors.New("итог матча ещё не записан")

// SettlementStore — персистентный коллаборатор сеттлмента. Реализация
// обязана применять SaveSettlement атомарно: либо весь итог, либо ничего
type SettlementStore interface {
	AlreadySettled(ctx context.Context, matchID string) (bool, error)
	SaveSettlement(ctx context.Context, rec *domain.MatchRecord, parts []*domain.MatchParticipant) error
}

// Rater — внешний рейтинговый коллаборатор, формула внутри него
type Rater interface {
	DeltaFor(result string) int
}

// AchievementChecker вызывается после успешного коммита, ошибки не
// откатывают сеттлмент
type AchievementChecker interface {
	CheckAfterMatch(ctx context.Context, userID int64, result string, seat *game.Seat)
}

// публикация итогов в кэш лидерборда, после коммита
type leaderboardPublisher interface {
	ApplyResult(ctx context.Context, userID int64, name string, ratingDelta int, won bool)
}

type settlementAuditor interface {
	LogSettlement(ctx context.Context, matchID string, ok bool, details map[string]interface{})
	LogMatchResult(ctx context.Context, userID int64, matchID, result string, bet, payout int64)
}

// SettlementService — одноразовый финализатор завершённого матча.
// Захватывает флаг на матче, пишет итог одной транзакцией, при сбое
// снимает флаг: повтор возможен только по внешнему триггеру
type SettlementService struct {
	store        SettlementStore
	rater        Rater
	achievements AchievementChecker
	leaderboard  leaderboardPublisher
	audit        settlementAuditor
}

func NewSettlementService(store SettlementStore, rater Rater, achievements AchievementChecker, leaderboard leaderboardPublisher, audit settlementAuditor) *SettlementService {
	return &SettlementService{
		store:        store,
		rater:        rater,
		achievements: achievements,
		leaderboard:  leaderboard,
		audit:        audit,
	}
}

// Settle применяет итоги матча ровно один раз. Повторный вызов для уже
// рассчитанного (или рассчитываемого прямо сейчас) матча — no-op
func (s *SettlementService) Settle(ctx context.Context, m *game.Match) error {
	o := m.Outcome()
	if o == nil {
		return ErrMatchNotConcluded
	}

	if !m.BeginSettlement() {
		return nil
	}

	already, err := s.store.AlreadySettled(ctx, o.MatchID)
	if err != nil {
		m.AbortSettlement()
		s.logFailure(ctx, o.MatchID, err)
		return err
	}
	if already {
		// итог уже в базе (например, расчёт упал после коммита)
		m.FinishSettlement()
		return nil
	}

	rec, parts := s.buildOutcome(o)

	if err := s.store.SaveSettlement(ctx, rec, parts); err != nil {
		m.AbortSettlement()
		s.logFailure(ctx, o.MatchID, err)
		return err
	}

	m.FinishSettlement()

	if s.audit != nil {
		s.audit.LogSettlement(ctx, o.MatchID, true, map[string]interface{}{
			"bank":   o.Bank,
			"reason": o.Winner.Reason,
		})
	}

	// пост-коммитные коллабораторы: их сбои не откатывают расчёт
	seatByAccount := make(map[int64]*game.Seat)
	for _, seat := range o.Seats {
		if seat.AccountID != nil {
			seatByAccount[*seat.AccountID] = seat
		}
	}
	for _, p := range parts {
		if p.IsBot || p.UserID == 0 {
			continue
		}
		if s.audit != nil {
			s.audit.LogMatchResult(ctx, p.UserID, o.MatchID, p.Result, o.Bet, p.Payout)
		}
		if s.leaderboard != nil {
			name := ""
			if seat := seatByAccount[p.UserID]; seat != nil {
				name = seat.Name
			}
			s.leaderboard.ApplyResult(ctx, p.UserID, name, p.RatingDelta, p.Result == domain.MatchResultWin)
		}
		if s.achievements != nil {
			s.achievements.CheckAfterMatch(ctx, p.UserID, p.Result, seatByAccount[p.UserID])
		}
	}

	logger.Info("матч рассчитан", "match_id", o.MatchID, "bank", o.Bank, "participants", len(parts))
	return nil
}

// buildOutcome переводит слепок матча в запись для базы: результат и
// выплата каждому участнику
func (s *SettlementService) buildOutcome(o *game.Outcome) (*domain.MatchRecord, []*domain.MatchParticipant) {
	rec := &domain.MatchRecord{
		MatchID:    o.MatchID,
		Mode:       string(o.Mode),
		DeckSize:   o.DeckSize,
		Bet:        o.Bet,
		Bank:       o.Bank,
		Reason:     o.Winner.Reason,
		StartedAt:  o.StartedAt,
		FinishedAt: o.FinishedAt,
	}
	if rec.Reason == "" {
		rec.Reason = domain.MatchReasonNormal
	}

	// без внятного итога записываем только факт завершения
	if len(o.Winner.Winners) == 0 && o.Winner.Loser == nil {
		return rec, nil
	}

	winners := make(map[int64]bool, len(o.Winner.Winners))
	for _, id := range o.Winner.Winners {
		winners[id] = true
	}
	draw := o.Winner.Loser == nil

	var parts []*domain.MatchParticipant
	var registeredWinners []*domain.MatchParticipant
	var registered []*domain.MatchParticipant

	for _, seat := range o.Seats {
		result := domain.MatchResultLose
		switch {
		case draw && winners[seat.ID]:
			result = domain.MatchResultDraw
		case winners[seat.ID]:
			result = domain.MatchResultWin
		}

		p := &domain.MatchParticipant{
			MatchID:   o.MatchID,
			IsBot:     seat.IsBot,
			Result:    result,
			FinalHand: len(seat.Hand),
		}
		if seat.AccountID != nil {
			p.UserID = *seat.AccountID
			if s.rater != nil && result != domain.MatchResultDraw {
				p.RatingDelta = s.rater.DeltaFor(result)
			}
			registered = append(registered, p)
			if result == domain.MatchResultWin {
				registeredWinners = append(registeredWinners, p)
			}
		}
		parts = append(parts, p)
	}

	// банк делится поровну между зарегистрированными победителями,
	// остаток от целочисленного деления не перераспределяется.
	// если таких нет — всем зарегистрированным возвращается ставка
	if o.Bank > 0 {
		if len(registeredWinners) > 0 {
			share := o.Bank / int64(len(registeredWinners))
			for _, p := range registeredWinners {
				p.Payout = share
			}
		} else {
			for _, p := range registered {
				p.Payout = o.Bet
			}
		}
	}

	return rec, parts
}

func (s *SettlementService) logFailure(ctx context.Context, matchID string, err error) {
	logger.Error("сбой сеттлмента, флаг снят для повторной попытки",
		"match_id", matchID, "error", err)
	if s.audit != nil {
		s.audit.LogSettlement(ctx, matchID, false, map[string]interface{}{
			"error": err.Error(),
			"at":    time.Now().Format(time.RFC3339),
		})
	}
}
