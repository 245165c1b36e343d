package domain

import "time"

// Итог матча, одна строка на партию; ключ — идентификатор матча
type MatchRecord struct {
	MatchID    string    `db:"match_id" json:"match_id"`
	Mode       string    `db:"mode" json:"mode"`
	DeckSize   int       `db:"deck_size" json:"deck_size"`
	Bet        int64     `db:"bet" json:"bet"`
	Bank       int64     `db:"bank" json:"bank"`
	Reason     string    `db:"reason" json:"reason"` // normal / forfeit / forced
	StartedAt  time.Time `db:"started_at" json:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
}

// Участник матча, по строке на место за столом
type MatchParticipant struct {
	ID          int64  `db:"id" json:"id"`
	MatchID     string `db:"match_id" json:"match_id"`
	UserID      int64  `db:"user_id" json:"user_id"` // 0 для ботов
	IsBot       bool   `db:"is_bot" json:"is_bot"`
	Result      string `db:"result" json:"result"` // win / lose / draw
	Payout      int64  `db:"payout" json:"payout"`
	RatingDelta int    `db:"rating_delta" json:"rating_delta"`
	FinalHand   int    `db:"final_hand" json:"final_hand"` // карт на руках к финалу
}

const (
	MatchResultWin  = "win"
	MatchResultLose = "lose"
	MatchResultDraw = "draw"
)

const (
	MatchReasonNormal  = "normal"  // партия доиграна до конца
	MatchReasonForfeit = "forfeit" // игрок выбыл по АФК или дисконнекту
	MatchReasonForced  = "forced"  // принудительное завершение админом
)
