package domain

import "time"

type User struct {
	ID         int64     `db:"id" json:"id"`
	TgID       int64     `db:"tg_id" json:"tg_id"`
	Username   string    `db:"username" json:"username"`
	FirstName  string    `db:"first_name" json:"first_name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	Coins      int64     `db:"coins" json:"coins"`             // игровая валюта, ставки списываются отсюда
	Rating     int       `db:"rating" json:"rating"`           // эло-подобный рейтинг
	Wins       int       `db:"wins" json:"wins"`
	Losses     int       `db:"losses" json:"losses"`
	Draws      int       `db:"draws" json:"draws"`
	WinStreak  int       `db:"win_streak" json:"win_streak"`   // текущая серия побед
	BestStreak int       `db:"best_streak" json:"best_streak"` // лучшая серия за всё время
}

// Валюты для ставок
type Currency string

const (
	CurrencyCoins Currency = "coins"
)

const (
	StartingCoins = 1000 // стартовый баланс нового игрока
	StartingRating = 1200
	MinBet         = 10
	MaxBet         = 100000
)
