package repository

import (
	"context"
	"errors"

	"durak_webapp/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrInsufficientCoins = errors.New("недостаточно монет")

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, tg_id, username, first_name, created_at, coins, rating, wins, losses, draws, win_streak, best_streak`

// возвращает пользователя по внутреннему ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// возвращает пользователя по telegram ID
func (r *UserRepository) GetByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE tg_id = $1`, tgID)
	return scanUser(row)
}

// создает пользователя при первом входе или обновляет имя при повторном
func (r *UserRepository) CreateOrUpdate(ctx context.Context, tgID int64, username, firstName string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (tg_id, username, first_name, coins, rating)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tg_id) DO UPDATE
		SET username = EXCLUDED.username, first_name = EXCLUDED.first_name
		RETURNING `+userColumns,
		tgID, username, firstName, domain.StartingCoins, domain.StartingRating)
	return scanUser(row)
}

// списывает монеты внутри транзакции, строка блокируется FOR UPDATE
func (r *UserRepository) DebitCoinsTx(ctx context.Context, tx pgx.Tx, userID, amount int64) error {
	var coins int64
	err := tx.QueryRow(ctx,
		`SELECT coins FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&coins)
	if err != nil {
		return err
	}
	if coins < amount {
		return ErrInsufficientCoins
	}
	_, err = tx.Exec(ctx,
		`UPDATE users SET coins = coins - $1 WHERE id = $2`, amount, userID)
	return err
}

// начисляет монеты внутри транзакции
func (r *UserRepository) CreditCoinsTx(ctx context.Context, tx pgx.Tx, userID, amount int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE users SET coins = coins + $1 WHERE id = $2`, amount, userID)
	return err
}

// начисляет монеты вне транзакции, для админских операций
func (r *UserRepository) AddCoins(ctx context.Context, userID, amount int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET coins = coins + $1 WHERE id = $2`, amount, userID)
	return err
}

// применяет итог матча к статистике игрока внутри транзакции
func (r *UserRepository) ApplyMatchResultTx(ctx context.Context, tx pgx.Tx, userID int64, result string, ratingDelta int) error {
	var err error
	switch result {
	case domain.MatchResultWin:
		_, err = tx.Exec(ctx, `
			UPDATE users
			SET wins = wins + 1,
				win_streak = win_streak + 1,
				best_streak = GREATEST(best_streak, win_streak + 1),
				rating = GREATEST(0, rating + $1)
			WHERE id = $2`, ratingDelta, userID)
	case domain.MatchResultLose:
		_, err = tx.Exec(ctx, `
			UPDATE users
			SET losses = losses + 1,
				win_streak = 0,
				rating = GREATEST(0, rating + $1)
			WHERE id = $2`, ratingDelta, userID)
	case domain.MatchResultDraw:
		_, err = tx.Exec(ctx, `
			UPDATE users SET draws = draws + 1 WHERE id = $1`, userID)
	}
	return err
}

// возвращает топ игроков по рейтингу
func (r *UserRepository) TopByRating(ctx context.Context, limit int) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY rating DESC, wins DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.TgID, &u.Username, &u.FirstName, &u.CreatedAt,
		&u.Coins, &u.Rating, &u.Wins, &u.Losses, &u.Draws, &u.WinStreak, &u.BestStreak)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
