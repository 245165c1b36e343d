package repository

import (
	"context"

	"durak_webapp/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MatchRepository struct {
	db *pgxpool.Pool
}

func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// сохраняет итог матча и всех участников одним вызовом внутри транзакции
func (r *MatchRepository) CreateWithParticipantsTx(ctx context.Context, tx pgx.Tx, rec *domain.MatchRecord, parts []*domain.MatchParticipant) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO matches (match_id, mode, deck_size, bet, bank, reason, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.MatchID, rec.Mode, rec.DeckSize, rec.Bet, rec.Bank, rec.Reason, rec.StartedAt, rec.FinishedAt)
	if err != nil {
		return err
	}

	for _, p := range parts {
		_, err = tx.Exec(ctx, `
			INSERT INTO match_participants (match_id, user_id, is_bot, result, payout, rating_delta, final_hand)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, rec.MatchID, p.UserID, p.IsBot, p.Result, p.Payout, p.RatingDelta, p.FinalHand)
		if err != nil {
			return err
		}
	}
	return nil
}

// проверяет, записан ли уже матч, защита от повторного расчёта
func (r *MatchRepository) Exists(ctx context.Context, matchID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM matches WHERE match_id = $1)`, matchID).Scan(&exists)
	return exists, err
}

// возвращает последние матчи пользователя
func (r *MatchRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.MatchRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.match_id, m.mode, m.deck_size, m.bet, m.bank, m.reason, m.started_at, m.finished_at
		FROM matches m
		JOIN match_participants p ON p.match_id = m.match_id
		WHERE p.user_id = $1
		ORDER BY m.finished_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMatches(rows)
}

// возвращает последние сыгранные матчи
func (r *MatchRepository) GetRecent(ctx context.Context, limit int) ([]*domain.MatchRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT match_id, mode, deck_size, bet, bank, reason, started_at, finished_at
		FROM matches
		ORDER BY finished_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMatches(rows)
}

// возвращает участников матча
func (r *MatchRepository) GetParticipants(ctx context.Context, matchID string) ([]*domain.MatchParticipant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, match_id, user_id, is_bot, result, payout, rating_delta, final_hand
		FROM match_participants
		WHERE match_id = $1
		ORDER BY id
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []*domain.MatchParticipant
	for rows.Next() {
		var p domain.MatchParticipant
		if err := rows.Scan(&p.ID, &p.MatchID, &p.UserID, &p.IsBot, &p.Result, &p.Payout, &p.RatingDelta, &p.FinalHand); err != nil {
			return nil, err
		}
		parts = append(parts, &p)
	}
	return parts, rows.Err()
}

func scanMatches(rows pgx.Rows) ([]*domain.MatchRecord, error) {
	var recs []*domain.MatchRecord
	for rows.Next() {
		var m domain.MatchRecord
		if err := rows.Scan(&m.MatchID, &m.Mode, &m.DeckSize, &m.Bet, &m.Bank, &m.Reason, &m.StartedAt, &m.FinishedAt); err != nil {
			return nil, err
		}
		recs = append(recs, &m)
	}
	return recs, rows.Err()
}
